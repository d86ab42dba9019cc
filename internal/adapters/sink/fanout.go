package sink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Fanout writes every batch to all of its sinks. A batch is only reported as
// written once each sink accepted it.
type Fanout struct {
	sinks []ports.Sink
}

func NewFanout(sinks ...ports.Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return "fanout(" + strings.Join(names, ",") + ")"
}

func (f *Fanout) WriteBatch(events []domain.Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.WriteBatch(events); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.Sink = (*Fanout)(nil)
