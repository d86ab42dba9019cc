package tagsync

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → TagsIN →
// StimulationsOUT without touching the underlying wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// TagsInOption configures the tag side of the pipeline.
type TagsInOption func(*Flow)

// StimulationsOutOption configures the journal/sink side of the pipeline.
type StimulationsOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// TagsIN records tag-side overrides (collectors, clock, observability).
func (f *Flow) TagsIN(opts ...TagsInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StimulationsOUT records sink-side overrides and builds a Runtime ready to run.
func (f *Flow) StimulationsOUT(opts ...StimulationsOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StimulationsOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StimulationsOutOption) error {
	rt, err := f.StimulationsOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// TagsInCollector adds a tag collector next to the TCP server.
func TagsInCollector(col TagCollector) TagsInOption {
	return func(f *Flow) {
		if f != nil && col != nil {
			f.appendOptions(WithCollector(col))
		}
	}
}

// TagsInClock overrides the wall clock.
func TagsInClock(c Clock) TagsInOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithClock(c))
		}
	}
}

// TagsInObservability overrides the default Prometheus-based observability stack.
func TagsInObservability(obs Observability) TagsInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StimulationsOutSink injects a custom Sink implementation.
func StimulationsOutSink(s Sink) StimulationsOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StimulationsOutJournal lets callers bring their own journal.
func StimulationsOutJournal(j Journal) StimulationsOutOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// StimulationsOutCallback installs a sink built from a simple callback function.
func StimulationsOutCallback(name string, fn EventBatchSink) StimulationsOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
