package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Card represents a single Anki flashcard
type Card struct {
	Word                string // Danish word with article and plural endings
	Translation         string // English translation of the word
	Sentence            string // Danish example sentence
	SentenceTranslation string // English translation of the sentence
	AudioFile           string // Word audio filename inside the audio directory
	SentenceAudioFile   string // Sentence audio filename inside the audio directory
}

// GeneratorOptions configures the Anki export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	AudioDir       string // Directory holding the audio files
	IncludeHeaders bool   // Include CSV headers
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "anki_import.csv",
		AudioDir:       "audio",
		IncludeHeaders: true,
	}
}

// Generator creates Anki-compatible import files for cards that never
// went through AnkiConnect
type Generator struct {
	options *GeneratorOptions
	cards   []Card
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// GetCards returns a slice of all cards for modification
func (g *Generator) GetCards() []Card {
	return g.cards
}

// GenerateCSV creates a CSV file for Anki import. Columns follow the
// note model's field order, so a mapped import reproduces exactly what
// AnkiConnect delivery would have written.
func (g *Generator) GenerateCSV() error {
	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if g.options.IncludeHeaders {
		headers := []string{FieldWord, FieldSentence, FieldWordTranslation, FieldSentenceTranslation, FieldAudio, FieldSentenceAudio}
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, card := range g.cards {
		fields := NoteFields(card)
		record := []string{
			fields[FieldWord],
			fields[FieldSentence],
			fields[FieldWordTranslation],
			fields[FieldSentenceTranslation],
			fields[FieldAudio],
			fields[FieldSentenceAudio],
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	return nil
}

// soundTag formats an audio file reference for Anki
func soundTag(audioFile string) string {
	if audioFile == "" {
		return ""
	}

	// Anki audio format: [sound:filename.mp3]
	return fmt.Sprintf("[sound:%s]", filepath.Base(audioFile))
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	apkgGen := NewAPKGGenerator(deckName, g.options.AudioDir)

	for _, card := range g.cards {
		apkgGen.AddCard(card)
	}

	return apkgGen.GenerateAPKG(outputPath)
}

// Stats returns statistics about the card collection
func (g *Generator) Stats() (totalCards, withAudio, withSentenceAudio int) {
	totalCards = len(g.cards)

	for _, card := range g.cards {
		if card.AudioFile != "" {
			withAudio++
		}
		if card.SentenceAudioFile != "" {
			withSentenceAudio++
		}
	}

	return
}
