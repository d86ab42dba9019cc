package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Emitter journals synchronized stimulations and hands them to the output
// queue. It runs on the acquisition goroutine.
type Emitter struct {
	runID      string
	journal    ports.Journal
	queue      ports.EventQueue
	pol        ports.Policy
	obs        ports.Observability
	lateMarker uint64
}

type EmitterOption func(*Emitter)

// WithEmitterLateMarker sets the identifier that opens a marker pair.
func WithEmitterLateMarker(id uint64) EmitterOption {
	return func(e *Emitter) { e.lateMarker = id }
}

func NewEmitter(runID string, journal ports.Journal, q ports.EventQueue, pol ports.Policy, obs ports.Observability, opts ...EmitterOption) *Emitter {
	e := &Emitter{runID: runID, journal: journal, queue: q, pol: pol, obs: obs, lateMarker: domain.StimulationIncorrect}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	ErrJournalFull = errors.New("tagsync: journal full")
	ErrQueueFull   = errors.New("tagsync: output queue full")
)

// Emit records every stimulation of set in order and returns how many were
// accepted by the output queue. A late marker and the stimulation it dates
// are accepted or dropped together.
func (e *Emitter) Emit(set domain.StimulationSet) int {
	accepted := 0
	for i := 0; i < len(set); {
		n := e.unitLen(set, i)
		if err := e.publish(set[i : i+n]); err != nil {
			e.obs.IncCounter("tagsync_output_dropped_total", float64(n))
		} else {
			accepted += n
		}
		i += n
	}

	e.obs.SetGauge("tagsync_output_queue_length", float64(e.queue.Len()))
	e.obs.SetGauge("tagsync_journal_size_bytes", float64(e.journal.Stats().SizeBytes))
	return accepted
}

// unitLen is 2 when set[i] is a late marker followed by its stimulation.
func (e *Emitter) unitLen(set domain.StimulationSet, i int) int {
	if set[i].Identifier == e.lateMarker && i+1 < len(set) && set[i+1].Date == set[i].Date {
		return 2
	}
	return 1
}

// Publish journals one stimulation and queues it for the sinks.
func (e *Emitter) Publish(st domain.Stimulation) error {
	return e.publish([]domain.Stimulation{st})
}

func (e *Emitter) publish(unit []domain.Stimulation) error {
	if !waitForJournalCapacity(e.journal, e.pol, e.obs) {
		return ErrJournalFull
	}

	items := make([]ports.QueuedEvent, 0, len(unit))
	for _, st := range unit {
		ev := domain.Event{RunID: e.runID, Stimulation: st}
		id, err := e.journal.Append(&ev)
		if err != nil {
			e.obs.LogCritical("journal_append_failed", err)
			return fmt.Errorf("journal append: %w", err)
		}
		e.obs.IncCounter("tagsync_stimulations_emitted_total", 1)
		items = append(items, ports.QueuedEvent{ID: id, Event: ev})
	}

	if !enqueueAllWithPolicy(e.queue, items, e.pol, e.obs) {
		return ErrQueueFull
	}
	return nil
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}

// waitForJournalCapacity reclaims committed history before applying the
// journal-full policy.
func waitForJournalCapacity(journal ports.Journal, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxJournalSizeBytes <= 0 {
		return true
	}
	sleep := idleSleep(pol)

	for {
		stats := journal.Stats()
		if stats.SizeBytes < pol.MaxJournalSizeBytes {
			return true
		}

		freed, err := journal.TruncateCommitted()
		if err != nil {
			obs.LogError("journal_truncate_failed", err)
		}
		if freed > 0 {
			obs.LogInfo("journal_truncated", ports.Field{Key: "reclaimed_bytes", Value: freed})
			continue
		}

		switch pol.OnJournalFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("journal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxJournalSizeBytes))
			return false
		default:
			obs.LogError("journal_policy_invalid", fmt.Errorf("policy=%s", pol.OnJournalFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.EventQueue, id ports.EntryID, ev domain.Event, pol ports.Policy, obs ports.Observability) bool {
	return enqueueAllWithPolicy(q, []ports.QueuedEvent{{ID: id, Event: ev}}, pol, obs)
}

func enqueueAllWithPolicy(q ports.EventQueue, items []ports.QueuedEvent, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.EnqueueAll(items); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
