package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ordkort/internal/config"
)

// Session identifies one run and carries its counters. The settings are
// snapshotted at start so a run is unaffected by later config changes.
type Session struct {
	ID       string
	Settings *config.Settings
	Started  time.Time

	Total       int
	Delivered   int
	Skipped     int
	Failed      int
	FailedWords []FailedWord
}

// FailedWord pairs a failed word with its recorded error text
type FailedWord struct {
	Word   string
	Reason string
}

// NewSession starts a run session over the given settings
func NewSession(settings *config.Settings) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Settings: settings,
		Started:  time.Now(),
	}
}

// Summary is the final account of a run
type Summary struct {
	RunID       string
	Total       int
	Delivered   int
	Skipped     int
	Failed      int
	FailedWords []FailedWord
	Elapsed     time.Duration
}

// Summary finalizes the session counters
func (s *Session) Summary() *Summary {
	return &Summary{
		RunID:       s.ID,
		Total:       s.Total,
		Delivered:   s.Delivered,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		FailedWords: s.FailedWords,
		Elapsed:     time.Since(s.Started),
	}
}

func (s *Summary) String() string {
	return fmt.Sprintf("delivered %d, skipped %d, failed %d of %d words in %s",
		s.Delivered, s.Skipped, s.Failed, s.Total, s.Elapsed.Round(time.Millisecond))
}
