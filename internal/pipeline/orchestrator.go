package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ordkort/internal/anki"
	"ordkort/internal/audio"
	"ordkort/internal/checkpoint"
	"ordkort/internal/config"
	"ordkort/internal/content"
)

// ContentStage produces the enriched card for a word
type ContentStage interface {
	Generate(ctx context.Context, word string) (*content.Card, error)
}

// AudioStage synthesizes the audio files for a card
type AudioStage interface {
	Synthesize(ctx context.Context, word string, card *content.Card) (*audio.Result, error)
}

// DeliveryStage pushes a finished card into Anki
type DeliveryStage interface {
	Ping(ctx context.Context) error
	Deliver(ctx context.Context, card anki.Card) error
}

// Orchestrator walks the word list through content, audio and delivery,
// checkpointing after every stage. It runs one word at a time on the
// calling goroutine and owns its checkpoint file for the duration, see
// the checkpoint package.
type Orchestrator struct {
	settings *config.Settings
	store    *checkpoint.Store
	content  ContentStage
	audio    AudioStage
	delivery DeliveryStage
	listener Listener
	seq      int
}

// New assembles an orchestrator from its stages. The listener may be
// nil when no progress reporting is wanted.
func New(settings *config.Settings, store *checkpoint.Store, contentStage ContentStage, audioStage AudioStage, deliveryStage DeliveryStage, listener Listener) *Orchestrator {
	return &Orchestrator{
		settings: settings,
		store:    store,
		content:  contentStage,
		audio:    audioStage,
		delivery: deliveryStage,
		listener: listener,
	}
}

// Run processes the word list. Words already delivered are skipped,
// words that failed earlier are skipped unless retry_failed is set, and
// everything else resumes at its recorded stage. The summary is
// returned even when the run aborts early.
func (o *Orchestrator) Run(ctx context.Context, list []string) (*Summary, error) {
	session := NewSession(o.settings)
	session.Total = len(list)

	o.emit(Event{
		Type:    EventRunStarted,
		Message: fmt.Sprintf("run %s over %d words", session.ID, len(list)),
	})

	// A dead Anki is reported before any API spend
	if err := o.delivery.Ping(ctx); err != nil {
		o.emit(Event{Type: EventLog, Message: fmt.Sprintf("AnkiConnect check failed: %v", err)})
		return o.finish(session, err)
	}

	for _, word := range list {
		if err := ctx.Err(); err != nil {
			o.emit(Event{Type: EventLog, Message: "run canceled, progress is checkpointed"})
			return o.finish(session, err)
		}

		rec, ok := o.store.Get(word)
		if !ok {
			rec = checkpoint.Record{Word: word, Status: checkpoint.StatusPending}
		}

		switch rec.Status {
		case checkpoint.StatusDelivered:
			session.Skipped++
			o.emit(Event{
				Type:    EventWordFinished,
				Word:    word,
				Status:  rec.Status,
				Message: "already delivered in an earlier run",
			})
			continue
		case checkpoint.StatusFailed:
			if !o.settings.RetryFailed {
				session.Skipped++
				o.emit(Event{
					Type:    EventWordFinished,
					Word:    word,
					Status:  rec.Status,
					Message: "failed in an earlier run, retry_failed is off",
				})
				continue
			}
			rec.Error = ""
		}

		rec.Status = entryStatus(rec)

		if err := o.processWord(ctx, &rec); err != nil {
			var deliveryErr *anki.DeliveryError
			if errors.As(err, &deliveryErr) && deliveryErr.Connectivity {
				// The word keeps its last completed stage, the next run
				// picks it up from there
				o.emit(Event{Type: EventLog, Word: word, Message: fmt.Sprintf("aborting run: %v", err)})
				return o.finish(session, err)
			}

			rec.Status = checkpoint.StatusFailed
			rec.Error = err.Error()
			if perr := o.store.Put(rec); perr != nil {
				return o.finish(session, perr)
			}

			session.Failed++
			session.FailedWords = append(session.FailedWords, FailedWord{Word: word, Reason: rec.Error})
			o.emit(Event{
				Type:    EventWordFinished,
				Word:    word,
				Status:  rec.Status,
				Message: rec.Error,
			})
			continue
		}

		session.Delivered++
		o.emit(Event{
			Type:   EventWordFinished,
			Word:   word,
			Status: checkpoint.StatusDelivered,
		})
	}

	return o.finish(session, nil)
}

// processWord advances one word from its current stage to delivered.
// The record is checkpointed after every completed stage, so a crash or
// failure between stages never repeats finished work.
func (o *Orchestrator) processWord(ctx context.Context, rec *checkpoint.Record) error {
	// An in-flight word always runs to completion. Cancellation is
	// honored between words so the checkpoint only ever records
	// completed stages.
	stageCtx := context.WithoutCancel(ctx)

	rec.Attempts++

	if rec.Status == checkpoint.StatusPending {
		card, err := o.content.Generate(stageCtx, rec.Word)
		if err != nil {
			return err
		}
		rec.Content = card
		rec.Status = checkpoint.StatusContentDone
		if err := o.checkpointStage(*rec); err != nil {
			return err
		}
	}

	if rec.Status == checkpoint.StatusContentDone {
		result, err := o.audio.Synthesize(stageCtx, rec.Word, rec.Content)
		if err != nil {
			return err
		}
		rec.AudioFile = result.WordFile
		rec.SentenceAudioFile = result.SentenceFile
		rec.Status = checkpoint.StatusAudioDone
		if err := o.checkpointStage(*rec); err != nil {
			return err
		}
	}

	if err := o.delivery.Deliver(stageCtx, CardFor(*rec)); err != nil {
		return err
	}
	rec.Status = checkpoint.StatusDelivered
	return o.checkpointStage(*rec)
}

func (o *Orchestrator) checkpointStage(rec checkpoint.Record) error {
	if err := o.store.Put(rec); err != nil {
		return err
	}
	o.emit(Event{Type: EventWordStageChanged, Word: rec.Word, Status: rec.Status})
	return nil
}

// entryStatus decides where processing re-enters for a record. Progress
// claims are only honored when the payload backing them is present, so
// a hand-edited checkpoint degrades to redoing work instead of
// delivering an empty card.
func entryStatus(rec checkpoint.Record) checkpoint.Status {
	switch rec.Status {
	case checkpoint.StatusContentDone, checkpoint.StatusAudioDone:
		if rec.Content == nil {
			return checkpoint.StatusPending
		}
		return rec.Status
	case checkpoint.StatusFailed:
		// Retried failures resume at the furthest stage with a payload
		if rec.Content == nil {
			return checkpoint.StatusPending
		}
		if rec.AudioFile == "" {
			return checkpoint.StatusContentDone
		}
		return checkpoint.StatusAudioDone
	default:
		return checkpoint.StatusPending
	}
}

// CardFor assembles the deliverable card from a checkpoint record. The
// card shows the enriched word from the content stage, the raw source
// word only identifies the record.
func CardFor(rec checkpoint.Record) anki.Card {
	card := anki.Card{Word: rec.Word}
	if rec.Content != nil {
		card.Word = rec.Content.Word
		card.Translation = rec.Content.Translation
		card.Sentence = rec.Content.Sentence
		card.SentenceTranslation = rec.Content.SentenceTranslation
	}
	card.AudioFile = rec.AudioFile
	card.SentenceAudioFile = rec.SentenceAudioFile
	return card
}

func (o *Orchestrator) finish(session *Session, cause error) (*Summary, error) {
	summary := session.Summary()
	o.emit(Event{Type: EventRunFinished, Message: summary.String()})

	if cause != nil {
		zap.S().Warnf("Run %s aborted: %v", session.ID, cause)
	}
	return summary, cause
}

func (o *Orchestrator) emit(event Event) {
	if o.listener == nil {
		return
	}
	o.seq++
	event.Seq = o.seq
	event.Timestamp = time.Now()
	o.listener(event)
}
