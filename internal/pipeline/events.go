package pipeline

import (
	"time"

	"ordkort/internal/checkpoint"
)

// EventType names the progress events a run emits
type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventWordStageChanged EventType = "word_stage_changed"
	EventWordFinished     EventType = "word_finished"
	EventRunFinished      EventType = "run_finished"
	EventLog              EventType = "log"
)

// Event describes one step of run progress. Events are dispatched
// synchronously from the run goroutine, so the sequence number follows
// processing order exactly.
type Event struct {
	Seq       int
	Type      EventType
	Word      string
	Status    checkpoint.Status
	Message   string
	Timestamp time.Time
}

// Listener receives run events. It must not block, the run waits for it.
type Listener func(Event)
