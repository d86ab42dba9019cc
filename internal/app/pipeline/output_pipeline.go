package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

const maxSinkBackoff = 2 * time.Second

// RunOutputPipeline moves queued events to the sink and commits the journal
// behind them. A batch the sink rejects is retried until it is written or ctx
// ends, so the commit watermark never passes an unwritten event. On
// cancellation the queue is flushed once before returning.
func RunOutputPipeline(ctx context.Context, journal ports.Journal, q ports.EventQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	sleep := idleSleep(pol)
	for {
		select {
		case <-ctx.Done():
			flushOutput(journal, q, sink, pol, obs)
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(sleep):
			}
			continue
		}

		events, maxID := unpack(batch)
		backoff := sleep
		for !writeBatch(journal, sink, events, maxID, obs) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxSinkBackoff {
				backoff = maxSinkBackoff
			}
		}
		obs.SetGauge("tagsync_output_queue_length", float64(q.Len()))
	}
}

func flushOutput(journal ports.Journal, q ports.EventQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			return
		}
		events, maxID := unpack(batch)
		if !writeBatch(journal, sink, events, maxID, obs) {
			return
		}
	}
}

func unpack(batch []ports.QueuedEvent) ([]domain.Event, ports.EntryID) {
	var (
		out   = make([]domain.Event, 0, len(batch))
		maxID ports.EntryID
	)
	for _, item := range batch {
		out = append(out, item.Event)
		if item.ID > maxID {
			maxID = item.ID
		}
	}
	return out, maxID
}

func writeBatch(journal ports.Journal, sink ports.Sink, events []domain.Event, maxID ports.EntryID, obs ports.Observability) bool {
	start := time.Now()
	if err := sink.WriteBatch(events); err != nil {
		obs.LogError("sink_write_failed", err, ports.Field{Key: "sink", Value: sink.Name()}, ports.Field{Key: "events", Value: len(events)})
		return false
	}
	obs.ObserveLatency("tagsync_sink_latency_seconds", time.Since(start).Seconds())
	obs.IncCounter("tagsync_stimulations_written_total", float64(len(events)))

	if err := journal.Commit(maxID); err != nil {
		obs.LogError("journal_commit_failed", err)
	}
	return true
}

// ReplayJournal queues every uncommitted journal entry. The output pipeline
// must already be draining q since the replay blocks on a full queue.
func ReplayJournal(ctx context.Context, journal ports.Journal, q ports.EventQueue, pol ports.Policy, obs ports.Observability) (int, error) {
	stats := journal.Stats()
	if stats.LatestAppended < stats.OldestUncommitted {
		return 0, nil
	}

	pol.OnQueueFull = "block"
	n := 0
	err := journal.Iterate(stats.OldestUncommitted, func(id ports.EntryID, e domain.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if enqueueWithPolicy(q, id, e, pol, obs) {
			n++
		}
		return nil
	})
	if n > 0 {
		obs.LogInfo("journal_replayed", ports.Field{Key: "events", Value: n}, ports.Field{Key: "from", Value: uint64(stats.OldestUncommitted)})
	}
	return n, err
}
