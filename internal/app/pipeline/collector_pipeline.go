package pipeline

import (
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// TagSink accepts tags produced in-process.
type TagSink interface {
	Inject(t domain.Tag)
}

// RunCollectorPipeline starts col and forwards its tags to dst after applying
// the receipt timestamp policy. The forwarding goroutine ends when col closes
// the channel or stop is closed.
func RunCollectorPipeline(col ports.TagCollector, dst TagSink, clock ports.Clock, buffer int, stop <-chan struct{}, obs ports.Observability) error {
	ch := make(chan domain.Tag, buffer)

	if err := col.Start(ch); err != nil {
		return err
	}

	go func() {
		warned := false
		for {
			select {
			case <-stop:
				return
			case t, ok := <-ch:
				if !ok {
					return
				}
				resolved, replaced := t.Resolve(clock.Now())
				if replaced && !warned {
					warned = true
					obs.LogWarn("collector_timestamp_not_fixed_point", ports.Field{Key: "identifier", Value: t.Identifier})
				}
				dst.Inject(resolved)
				obs.IncCounter("tagsync_collector_tags_total", 1)
			}
		}
	}()

	return nil
}
