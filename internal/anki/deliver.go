package anki

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Field names of the forward note model
const (
	FieldWord                = "Word"
	FieldSentence            = "Danish Sentence"
	FieldWordTranslation     = "Word Translation"
	FieldSentenceTranslation = "Sentence Translation"
	FieldAudio               = "Audio"
	FieldSentenceAudio       = "Sentence Audio"
)

// Field names of the reverse note model
const (
	ReverseFieldEnglish         = "English"
	ReverseFieldEnglishSentence = "English Sentence"
	ReverseFieldDanishWord      = "Danish Word"
	ReverseFieldDanishSentence  = "Danish Sentence"
)

// NoteFields builds the field map for a card's forward note. The word
// and its translation carry bold markup so they stand out on rendered
// cards without any styling in the note model.
func NoteFields(card Card) map[string]string {
	return map[string]string{
		FieldWord:                fmt.Sprintf("<b>%s</b>", card.Word),
		FieldSentence:            card.Sentence,
		FieldWordTranslation:     fmt.Sprintf("<b>%s</b>", card.Translation),
		FieldSentenceTranslation: card.SentenceTranslation,
		FieldAudio:               soundTag(card.AudioFile),
		FieldSentenceAudio:       soundTag(card.SentenceAudioFile),
	}
}

// ReverseNoteFields builds the field map for the optional
// English-to-Danish note
func ReverseNoteFields(card Card) map[string]string {
	return map[string]string{
		ReverseFieldEnglish:         fmt.Sprintf("<b>%s</b>", card.Translation),
		ReverseFieldEnglishSentence: card.SentenceTranslation,
		ReverseFieldDanishWord:      fmt.Sprintf("<b>%s</b>", card.Word),
		ReverseFieldDanishSentence:  card.Sentence,
		FieldAudio:                  soundTag(card.AudioFile),
		FieldSentenceAudio:          soundTag(card.SentenceAudioFile),
	}
}

// DelivererOptions configures delivery into a running Anki instance
type DelivererOptions struct {
	DeckName         string
	ModelName        string
	ReverseModelName string
	ReverseCards     bool
	AudioDir         string
}

// Deliverer pushes finished cards into Anki over AnkiConnect, copying
// their audio into the media collection first
type Deliverer struct {
	client  *Client
	options DelivererOptions

	mediaDir string
}

func NewDeliverer(client *Client, options DelivererOptions) *Deliverer {
	return &Deliverer{client: client, options: options}
}

// Ping verifies that AnkiConnect answers before a run starts sending
// cards
func (d *Deliverer) Ping(ctx context.Context) error {
	version, err := d.client.Version(ctx)
	if err != nil {
		return err
	}
	zap.S().Debugf("AnkiConnect answered with version %d", version)
	return nil
}

// Deliver copies the card's audio into Anki's media collection and
// creates its note, updating the fields in place when the word already
// has one. Delivering the same card twice therefore leaves a single
// note behind.
func (d *Deliverer) Deliver(ctx context.Context, card Card) error {
	if err := d.copyMedia(ctx, card); err != nil {
		return err
	}

	fields := NoteFields(card)

	noteIDs, err := d.client.FindNotes(ctx, d.findQuery(card))
	if err != nil {
		return err
	}

	if len(noteIDs) > 0 {
		if err := d.client.UpdateNoteFields(ctx, noteIDs[0], fields); err != nil {
			return err
		}
		zap.S().Infof("Updated existing note for %q", card.Word)
	} else {
		if _, err := d.client.AddNote(ctx, Note{
			DeckName:  d.options.DeckName,
			ModelName: d.options.ModelName,
			Fields:    fields,
			Options:   NoteOptions{AllowDuplicate: false},
		}); err != nil {
			return err
		}
		zap.S().Infof("Added note for %q", card.Word)
	}

	if d.options.ReverseCards {
		d.deliverReverse(ctx, card)
	}

	return nil
}

// deliverReverse adds the English-to-Danish note. The forward note is
// the primary deliverable, so reverse failures are only logged.
func (d *Deliverer) deliverReverse(ctx context.Context, card Card) {
	_, err := d.client.AddNote(ctx, Note{
		DeckName:  d.options.DeckName,
		ModelName: d.options.ReverseModelName,
		Fields:    ReverseNoteFields(card),
		Options:   NoteOptions{AllowDuplicate: false},
	})
	if err != nil {
		zap.S().Warnf("Reverse card for %q not added: %v", card.Word, err)
	}
}

// findQuery matches the note previously created for card. The Word
// field stores the bolded word, so the query has to include the markup.
func (d *Deliverer) findQuery(card Card) string {
	return fmt.Sprintf(`deck:"%s" %s:"<b>%s</b>"`, d.options.DeckName, FieldWord, card.Word)
}

func (d *Deliverer) copyMedia(ctx context.Context, card Card) error {
	if card.AudioFile == "" && card.SentenceAudioFile == "" {
		return nil
	}

	mediaDir, err := d.mediaPath(ctx)
	if err != nil {
		return err
	}

	for _, file := range []string{card.AudioFile, card.SentenceAudioFile} {
		if file == "" {
			continue
		}
		src := filepath.Join(d.options.AudioDir, file)
		dst := filepath.Join(mediaDir, file)
		if err := copyIntoCollection(src, dst); err != nil {
			return &DeliveryError{Action: "copy media", Err: fmt.Errorf("%s: %w", file, err)}
		}
	}
	return nil
}

// mediaPath resolves and caches Anki's media directory. A missing
// directory means no card can reach the user's collection, so it
// aborts the run like any other connectivity failure.
func (d *Deliverer) mediaPath(ctx context.Context) (string, error) {
	if d.mediaDir != "" {
		return d.mediaDir, nil
	}

	dir, err := d.client.MediaDirPath(ctx)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", &DeliveryError{Action: "getMediaDirPath", Connectivity: true, Err: fmt.Errorf("media directory %s: %w", dir, err)}
	}

	d.mediaDir = dir
	return dir, nil
}

// copyIntoCollection copies src over dst unless an identical file is
// already there
func copyIntoCollection(src, dst string) error {
	srcSum, err := fileChecksum(src)
	if err != nil {
		return err
	}

	if dstSum, err := fileChecksum(dst); err == nil && bytes.Equal(srcSum, dstSum) {
		zap.S().Debugf("Media %s already in collection", filepath.Base(dst))
		return nil
	}

	return copyFile(src, dst)
}

func fileChecksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
