// Package checkpoint persists per-word pipeline progress as a JSON file.
//
// The store is rewritten after every status change so that an aborted
// run resumes exactly where it stopped. It is not safe for concurrent
// use, one process owns a checkpoint file at a time.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ordkort/internal/content"
)

// Status tracks how far a word has progressed through the pipeline
type Status string

const (
	StatusPending     Status = "pending"
	StatusContentDone Status = "content_done"
	StatusAudioDone   Status = "audio_done"
	StatusDelivered   Status = "delivered"
	StatusFailed      Status = "failed"
)

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusContentDone, StatusAudioDone, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// Record holds everything the pipeline has produced for one word
type Record struct {
	Word              string        `json:"word"`
	Status            Status        `json:"status"`
	Content           *content.Card `json:"content,omitempty"`
	AudioFile         string        `json:"audio_file,omitempty"`
	SentenceAudioFile string        `json:"sentence_audio_file,omitempty"`
	Error             string        `json:"error,omitempty"`
	Attempts          int           `json:"attempts,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// CorruptError reports a checkpoint file that exists but cannot be
// parsed. The run can recover by resetting the store, the damaged file
// is kept next to the original for inspection.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("checkpoint file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Summary counts records by status
type Summary struct {
	Total       int
	Pending     int
	ContentDone int
	AudioDone   int
	Delivered   int
	Failed      int
}

// Store keeps checkpoint records in memory and mirrors every change to disk
type Store struct {
	path    string
	records map[string]Record
}

// Open loads the checkpoint file at path. A missing file yields an
// empty store. An unparseable file yields a *CorruptError, see Reset.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	// The map key is authoritative, older files may miss the word field
	for word, rec := range s.records {
		if rec.Word == "" {
			rec.Word = word
			s.records[word] = rec
		}
	}

	return s, nil
}

// Reset moves a damaged checkpoint file aside and returns a fresh
// store bound to the same path. The damaged file is kept with a
// .corrupt suffix, replacing any previous one.
func Reset(path string) (*Store, error) {
	backup := path + ".corrupt"
	if err := os.Rename(path, backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to move corrupt checkpoint aside: %w", err)
	}

	return &Store{
		path:    path,
		records: make(map[string]Record),
	}, nil
}

// Get returns a copy of the record for word
func (s *Store) Get(word string) (Record, bool) {
	rec, ok := s.records[word]
	return rec, ok
}

// Put upserts a record and persists the store before returning, so a
// crash after Put never loses the recorded progress
func (s *Store) Put(rec Record) error {
	if rec.Word == "" {
		return fmt.Errorf("checkpoint record without a word")
	}
	if !rec.Status.IsValid() {
		return fmt.Errorf("invalid checkpoint status: %q", rec.Status)
	}

	rec.UpdatedAt = time.Now().UTC()
	s.records[rec.Word] = rec

	return s.persist()
}

// Len returns the number of recorded words
func (s *Store) Len() int {
	return len(s.records)
}

// All returns a copy of every record, keyed by word
func (s *Store) All() map[string]Record {
	out := make(map[string]Record, len(s.records))
	for word, rec := range s.records {
		out[word] = rec
	}
	return out
}

// Summary aggregates the record statuses
func (s *Store) Summary() Summary {
	var sum Summary
	for _, rec := range s.records {
		sum.Total++
		switch rec.Status {
		case StatusPending:
			sum.Pending++
		case StatusContentDone:
			sum.ContentDone++
		case StatusAudioDone:
			sum.AudioDone++
		case StatusDelivered:
			sum.Delivered++
		case StatusFailed:
			sum.Failed++
		}
	}
	return sum
}

// Path returns the checkpoint file location
func (s *Store) Path() string {
	return s.path
}

// persist writes the store atomically: marshal to a temp file in the
// same directory, then rename over the real path. Readers only ever
// see the old or the new content, never a truncated file.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp checkpoint file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	return nil
}
