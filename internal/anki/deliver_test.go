package anki

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeCollection backs the fake AnkiConnect endpoint with a note store
// and a media directory, enough to observe the add-or-update flow
type fakeCollection struct {
	mediaDir string
	notes    map[int64]Note
	added    []Note
	updated  []int64
	nextID   int64
}

func newFakeCollection(t *testing.T) *fakeCollection {
	t.Helper()
	return &fakeCollection{
		mediaDir: t.TempDir(),
		notes:    make(map[int64]Note),
		nextID:   1500000,
	}
}

func (c *fakeCollection) handle(action string, params json.RawMessage) (interface{}, string) {
	switch action {
	case "version":
		return 6, ""
	case "getMediaDirPath":
		return c.mediaDir, ""
	case "findNotes":
		var p struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err.Error()
		}
		word := wordFromQuery(p.Query)
		ids := []int64{}
		for id, note := range c.notes {
			if word != "" && note.Fields[FieldWord] == word {
				ids = append(ids, id)
			}
		}
		return ids, ""
	case "addNote":
		var p struct {
			Note Note `json:"note"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err.Error()
		}
		c.nextID++
		c.notes[c.nextID] = p.Note
		c.added = append(c.added, p.Note)
		return c.nextID, ""
	case "updateNoteFields":
		var p struct {
			Note struct {
				ID     int64             `json:"id"`
				Fields map[string]string `json:"fields"`
			} `json:"note"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err.Error()
		}
		note, ok := c.notes[p.Note.ID]
		if !ok {
			return nil, "note was not found"
		}
		note.Fields = p.Note.Fields
		c.notes[p.Note.ID] = note
		c.updated = append(c.updated, p.Note.ID)
		return nil, ""
	}
	return nil, "unsupported action " + action
}

// wordFromQuery pulls the quoted Word field value out of a search query
func wordFromQuery(query string) string {
	const marker = `Word:"`
	i := strings.Index(query, marker)
	if i < 0 {
		return ""
	}
	rest := query[i+len(marker):]
	j := strings.LastIndex(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func deliveredCard() Card {
	return Card{
		Word:                "en hund, -en, -e",
		Translation:         "a dog",
		Sentence:            "Jeg har en <b>hund</b> derhjemme.",
		SentenceTranslation: "I have a dog at home.",
		AudioFile:           "en_hund_-en_-e.wav",
		SentenceAudioFile:   "en_hund_-en_-e_sentence.wav",
	}
}

func writeAudioFixtures(t *testing.T, dir string, card Card) {
	t.Helper()
	for _, file := range []string{card.AudioFile, card.SentenceAudioFile} {
		if file == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, file), []byte("RIFF"+file), 0644); err != nil {
			t.Fatalf("Failed to write audio fixture: %v", err)
		}
	}
}

func TestNoteFields(t *testing.T) {
	fields := NoteFields(deliveredCard())

	if fields[FieldWord] != "<b>en hund, -en, -e</b>" {
		t.Errorf("Expected bolded word, got %s", fields[FieldWord])
	}
	if fields[FieldSentence] != "Jeg har en <b>hund</b> derhjemme." {
		t.Errorf("Unexpected sentence field: %s", fields[FieldSentence])
	}
	if fields[FieldWordTranslation] != "<b>a dog</b>" {
		t.Errorf("Expected bolded translation, got %s", fields[FieldWordTranslation])
	}
	if fields[FieldSentenceTranslation] != "I have a dog at home." {
		t.Errorf("Unexpected sentence translation: %s", fields[FieldSentenceTranslation])
	}
	if fields[FieldAudio] != "[sound:en_hund_-en_-e.wav]" {
		t.Errorf("Unexpected audio field: %s", fields[FieldAudio])
	}
	if fields[FieldSentenceAudio] != "[sound:en_hund_-en_-e_sentence.wav]" {
		t.Errorf("Unexpected sentence audio field: %s", fields[FieldSentenceAudio])
	}
}

func TestNoteFieldsWithoutAudio(t *testing.T) {
	card := deliveredCard()
	card.AudioFile = ""
	card.SentenceAudioFile = ""

	fields := NoteFields(card)
	if fields[FieldAudio] != "" {
		t.Errorf("Expected empty audio field, got %s", fields[FieldAudio])
	}
	if fields[FieldSentenceAudio] != "" {
		t.Errorf("Expected empty sentence audio field, got %s", fields[FieldSentenceAudio])
	}
}

func TestReverseNoteFields(t *testing.T) {
	fields := ReverseNoteFields(deliveredCard())

	if fields[ReverseFieldEnglish] != "<b>a dog</b>" {
		t.Errorf("Expected bolded translation, got %s", fields[ReverseFieldEnglish])
	}
	if fields[ReverseFieldEnglishSentence] != "I have a dog at home." {
		t.Errorf("Unexpected English sentence: %s", fields[ReverseFieldEnglishSentence])
	}
	if fields[ReverseFieldDanishWord] != "<b>en hund, -en, -e</b>" {
		t.Errorf("Expected bolded word, got %s", fields[ReverseFieldDanishWord])
	}
	if fields[ReverseFieldDanishSentence] != "Jeg har en <b>hund</b> derhjemme." {
		t.Errorf("Unexpected Danish sentence: %s", fields[ReverseFieldDanishSentence])
	}
	if fields[FieldAudio] != "[sound:en_hund_-en_-e.wav]" {
		t.Errorf("Unexpected audio field: %s", fields[FieldAudio])
	}
}

func TestDelivererPing(t *testing.T) {
	collection := newFakeCollection(t)
	_, client := newFakeAnki(t, collection.handle)

	deliverer := NewDeliverer(client, DelivererOptions{DeckName: "Danish vocab", ModelName: "Danish"})
	if err := deliverer.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestDeliverNewWord(t *testing.T) {
	collection := newFakeCollection(t)
	_, client := newFakeAnki(t, collection.handle)

	audioDir := t.TempDir()
	card := deliveredCard()
	writeAudioFixtures(t, audioDir, card)

	deliverer := NewDeliverer(client, DelivererOptions{
		DeckName:  "Danish vocab",
		ModelName: "Danish",
		AudioDir:  audioDir,
	})

	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if len(collection.added) != 1 {
		t.Fatalf("Expected 1 added note, got %d", len(collection.added))
	}
	note := collection.added[0]
	if note.DeckName != "Danish vocab" {
		t.Errorf("Expected deck 'Danish vocab', got %s", note.DeckName)
	}
	if note.ModelName != "Danish" {
		t.Errorf("Expected model 'Danish', got %s", note.ModelName)
	}
	if note.Fields[FieldWord] != "<b>en hund, -en, -e</b>" {
		t.Errorf("Unexpected word field: %s", note.Fields[FieldWord])
	}
	if len(collection.updated) != 0 {
		t.Errorf("Expected no updates, got %v", collection.updated)
	}

	for _, file := range []string{card.AudioFile, card.SentenceAudioFile} {
		copied, err := os.ReadFile(filepath.Join(collection.mediaDir, file))
		if err != nil {
			t.Errorf("Expected %s in media collection: %v", file, err)
			continue
		}
		if string(copied) != "RIFF"+file {
			t.Errorf("Media file %s content mismatch", file)
		}
	}
}

func TestDeliverTwiceUpdatesExistingNote(t *testing.T) {
	collection := newFakeCollection(t)
	_, client := newFakeAnki(t, collection.handle)

	audioDir := t.TempDir()
	card := deliveredCard()
	writeAudioFixtures(t, audioDir, card)

	deliverer := NewDeliverer(client, DelivererOptions{
		DeckName:  "Danish vocab",
		ModelName: "Danish",
		AudioDir:  audioDir,
	})

	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Fatalf("First delivery failed: %v", err)
	}
	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Fatalf("Second delivery failed: %v", err)
	}

	if len(collection.added) != 1 {
		t.Errorf("Expected 1 added note after redelivery, got %d", len(collection.added))
	}
	if len(collection.updated) != 1 {
		t.Errorf("Expected 1 updated note after redelivery, got %d", len(collection.updated))
	}
}

func TestDeliverReverseCards(t *testing.T) {
	collection := newFakeCollection(t)
	_, client := newFakeAnki(t, collection.handle)

	audioDir := t.TempDir()
	card := deliveredCard()
	writeAudioFixtures(t, audioDir, card)

	deliverer := NewDeliverer(client, DelivererOptions{
		DeckName:         "Danish vocab",
		ModelName:        "Danish",
		ReverseModelName: "Danish Reverse",
		ReverseCards:     true,
		AudioDir:         audioDir,
	})

	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if len(collection.added) != 2 {
		t.Fatalf("Expected forward and reverse notes, got %d", len(collection.added))
	}
	reverse := collection.added[1]
	if reverse.ModelName != "Danish Reverse" {
		t.Errorf("Expected reverse model 'Danish Reverse', got %s", reverse.ModelName)
	}
	if reverse.Fields[ReverseFieldEnglish] != "<b>a dog</b>" {
		t.Errorf("Unexpected reverse English field: %s", reverse.Fields[ReverseFieldEnglish])
	}
}

func TestDeliverReverseFailureDoesNotFailWord(t *testing.T) {
	collection := newFakeCollection(t)
	_, client := newFakeAnki(t, func(action string, params json.RawMessage) (interface{}, string) {
		if action == "addNote" {
			var p struct {
				Note Note `json:"note"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, err.Error()
			}
			if p.Note.ModelName == "Danish Reverse" {
				return nil, "cannot create note because it is a duplicate"
			}
		}
		return collection.handle(action, params)
	})

	audioDir := t.TempDir()
	card := deliveredCard()
	writeAudioFixtures(t, audioDir, card)

	deliverer := NewDeliverer(client, DelivererOptions{
		DeckName:         "Danish vocab",
		ModelName:        "Danish",
		ReverseModelName: "Danish Reverse",
		ReverseCards:     true,
		AudioDir:         audioDir,
	})

	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Errorf("Expected reverse failure to be swallowed, got %v", err)
	}
	if len(collection.added) != 1 {
		t.Errorf("Expected the forward note to be added, got %d notes", len(collection.added))
	}
}

func TestDeliverWithoutAudioSkipsMediaLookup(t *testing.T) {
	collection := newFakeCollection(t)
	fake, client := newFakeAnki(t, collection.handle)

	card := deliveredCard()
	card.AudioFile = ""
	card.SentenceAudioFile = ""

	deliverer := NewDeliverer(client, DelivererOptions{DeckName: "Danish vocab", ModelName: "Danish"})
	if err := deliverer.Deliver(context.Background(), card); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	for _, action := range fake.actions {
		if action == "getMediaDirPath" {
			t.Error("Expected no media dir lookup for a card without audio")
		}
	}
	if len(collection.added) != 1 {
		t.Errorf("Expected 1 added note, got %d", len(collection.added))
	}
	if collection.added[0].Fields[FieldAudio] != "" {
		t.Errorf("Expected empty audio field, got %s", collection.added[0].Fields[FieldAudio])
	}
}

func TestDeliverMissingMediaDirAbortsAsConnectivity(t *testing.T) {
	collection := newFakeCollection(t)
	collection.mediaDir = filepath.Join(t.TempDir(), "missing")
	_, client := newFakeAnki(t, collection.handle)

	audioDir := t.TempDir()
	card := deliveredCard()
	writeAudioFixtures(t, audioDir, card)

	deliverer := NewDeliverer(client, DelivererOptions{
		DeckName:  "Danish vocab",
		ModelName: "Danish",
		AudioDir:  audioDir,
	})

	err := deliverer.Deliver(context.Background(), card)
	if err == nil {
		t.Fatal("Expected error for missing media directory")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Expected DeliveryError, got %T", err)
	}
	if !deliveryErr.Connectivity {
		t.Error("Missing media directory should abort the run as a connectivity failure")
	}
}

func TestCopyIntoCollectionIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	dst := filepath.Join(dir, "dst.wav")

	if err := os.WriteFile(src, []byte("RIFFdata"), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	if err := copyIntoCollection(src, dst); err != nil {
		t.Fatalf("First copy failed: %v", err)
	}

	// An identical destination must be left untouched
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(dst, past, past); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
	if err := copyIntoCollection(src, dst); err != nil {
		t.Fatalf("Second copy failed: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Failed to stat destination: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Error("Expected identical destination to be left untouched")
	}

	// A changed source must overwrite the destination
	if err := os.WriteFile(src, []byte("RIFFother"), 0644); err != nil {
		t.Fatalf("Failed to rewrite source: %v", err)
	}
	if err := copyIntoCollection(src, dst); err != nil {
		t.Fatalf("Third copy failed: %v", err)
	}
	content, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("Failed to read destination: %v", err)
	}
	if string(content) != "RIFFother" {
		t.Errorf("Expected destination to be replaced, got %s", content)
	}
}
