package audio

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ordkort/internal"
	"ordkort/internal/content"
	"ordkort/internal/ratelimit"
)

// ErrMissingTestAudio reports that test mode needed a pre-existing audio
// file and found none. Test mode never calls a provider.
var ErrMissingTestAudio = errors.New("test mode requires an existing audio file")

// Error reports a failed synthesis step for one word
type Error struct {
	Word string
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("audio for %q (%s): %v", e.Word, e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StageConfig controls where audio lands and when synthesis is skipped
type StageConfig struct {
	Dir           string // output directory for synthesized files
	Format        string // file extension without the dot: "wav" or "mp3"
	SkipExisting  bool   // reuse files that already exist on disk
	TestMode      bool   // never call the provider, require existing files
	SentenceAudio bool   // also synthesize the example sentence
}

// Result names the files produced for one card, relative to the stage directory
type Result struct {
	WordFile     string
	SentenceFile string
}

// Stage turns a generated card into audio files on disk
type Stage struct {
	provider Provider
	policy   *ratelimit.Policy
	config   StageConfig
}

// NewStage creates an audio stage. All provider calls go through the
// retry policy under the "audio" kind.
func NewStage(provider Provider, policy *ratelimit.Policy, config StageConfig) *Stage {
	config.Format = strings.TrimPrefix(config.Format, ".")
	if config.Format == "" {
		config.Format = "wav"
	}
	return &Stage{
		provider: provider,
		policy:   policy,
		config:   config,
	}
}

// FileName derives the audio filename for a card's word. The same card
// always maps to the same name and the extension is appended exactly
// once.
func (s *Stage) FileName(card *content.Card) string {
	return s.stem(card) + "." + s.config.Format
}

// SentenceFileName derives the filename for the example sentence audio
func (s *Stage) SentenceFileName(card *content.Card) string {
	return s.stem(card) + "_sentence." + s.config.Format
}

func (s *Stage) stem(card *content.Card) string {
	stem := internal.SanitizeFilename(card.Word)
	if stem == "" {
		// A word of nothing but dropped runes still needs a stable name
		sum := md5.Sum([]byte(card.Word))
		stem = "word_" + hex.EncodeToString(sum[:])[:8]
	}
	return stem
}

// Synthesize produces the audio files for a card. Existing files are
// reused when skip existing is on. In test mode the files must already
// be on disk.
func (s *Stage) Synthesize(ctx context.Context, word string, card *content.Card) (*Result, error) {
	result := &Result{WordFile: s.FileName(card)}

	if err := s.produce(ctx, word, card.Word, result.WordFile); err != nil {
		return nil, err
	}

	if s.config.SentenceAudio {
		result.SentenceFile = s.SentenceFileName(card)
		if err := s.produce(ctx, word, card.Sentence, result.SentenceFile); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// produce makes one audio file from text. Skipped files never touch the
// provider and therefore never consume pacing budget.
func (s *Stage) produce(ctx context.Context, word, text, file string) error {
	path := filepath.Join(s.config.Dir, file)

	if s.config.TestMode {
		if _, err := os.Stat(path); err != nil {
			return &Error{Word: word, File: file, Err: ErrMissingTestAudio}
		}
		zap.S().Debugf("Test mode, using existing audio %s", file)
		return nil
	}

	if s.config.SkipExisting {
		if _, err := os.Stat(path); err == nil {
			zap.S().Infof("Audio %s already exists, skipping synthesis", file)
			return nil
		}
	}

	if s.config.Dir != "" {
		if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
			return &Error{Word: word, File: file, Err: err}
		}
	}

	err := s.policy.Do(ctx, "audio", func(ctx context.Context) error {
		return s.provider.GenerateAudio(ctx, text, path)
	})
	if err != nil {
		return &Error{Word: word, File: file, Err: err}
	}
	return nil
}
