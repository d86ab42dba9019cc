package tagsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/TagSync/internal/adapters/clock"
	"github.com/ghalamif/TagSync/internal/adapters/journal"
	"github.com/ghalamif/TagSync/internal/adapters/observability"
	"github.com/ghalamif/TagSync/internal/adapters/opcua"
	"github.com/ghalamif/TagSync/internal/adapters/queue"
	"github.com/ghalamif/TagSync/internal/adapters/sink"
	"github.com/ghalamif/TagSync/internal/adapters/tcptag"
	"github.com/ghalamif/TagSync/internal/app/pipeline"
	"github.com/ghalamif/TagSync/internal/ports"
)

var (
	// ErrQueueFull indicates the output queue rejected a stimulation according to policy.
	ErrQueueFull = pipeline.ErrQueueFull
	// ErrJournalFull indicates the journal is at capacity and on_journal_full != "block".
	ErrJournalFull = pipeline.ErrJournalFull
	// ErrBind wraps a failure to reserve the tagging port.
	ErrBind = tcptag.ErrBind
	// ErrNotStarted is returned by calls that need a running tag stream.
	ErrNotStarted = errors.New("tagsync: runtime not started")
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     TagCollector
	sink          Sink
	journal       Journal
	queue         EventQueue
	clock         Clock
	observability Observability
	registry      *prometheus.Registry
}

// WithCollector adds a tag source next to the TCP server (OPC UA, simulators, etc.).
func WithCollector(col TagCollector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithSink replaces the configured SQL/NATS sinks.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithJournal lets callers bring their own journal implementation.
func WithJournal(j Journal) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithOutputQueue injects a custom output queue implementation.
func WithOutputQueue(q EventQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithClock overrides the wall clock used to stamp and synchronize tags.
func WithClock(c Clock) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = c
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithRegistry registers the runtime metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// Runtime wires the tag stream → synchronizer → journal → queue → sink
// pipeline and exposes lifecycle hooks for embedding TagSync in an
// acquisition server.
type Runtime struct {
	cfg       *Config
	runID     string
	policy    ports.Policy
	obs       ports.Observability
	registry  *prometheus.Registry
	clock     ports.Clock
	journal   ports.Journal
	queue     ports.EventQueue
	collector ports.TagCollector
	sink      ports.Sink
	closers   []io.Closer

	mu           sync.Mutex
	started      bool
	stream       *tcptag.Stream
	synchronizer *pipeline.Synchronizer
	emitter      *pipeline.Emitter

	metricsSrv    *http.Server
	gaugeStopCh   chan struct{}
	collectorStop chan struct{}
	outputCancel  context.CancelFunc
	outputDoneCh  chan struct{}
}

// NewRuntime bootstraps the default adapters (file journal, in-memory queue,
// SQL and NATS sinks, optional OPC UA collector, Prometheus observability).
// RuntimeOption values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	r := &Runtime{
		cfg:      cfg,
		runID:    uuid.NewString(),
		policy:   cfg.Policy,
		registry: overrides.registry,
	}
	defer func() {
		if err != nil {
			r.closeAll()
		}
	}()

	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
		r.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	r.obs = overrides.observability
	if r.obs == nil {
		logger, err := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		r.obs = observability.NewPromObs(r.registry, logger.With("run_id", r.runID))
	}

	r.clock = overrides.clock
	if r.clock == nil {
		r.clock = clock.NewSystemClock()
	}

	r.journal = overrides.journal
	if r.journal == nil {
		fj, err := journal.NewFileJournal(cfg.Journal.Dir)
		if err != nil {
			return nil, err
		}
		r.journal = fj
	}

	r.queue = overrides.queue
	if r.queue == nil {
		r.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	r.sink = overrides.sink
	if r.sink == nil {
		if r.sink, err = r.buildSinks(); err != nil {
			return nil, err
		}
	}

	r.collector = overrides.collector
	if r.collector == nil && cfg.OPCUA != nil {
		if r.collector, err = opcua.NewTriggerCollector(*cfg.OPCUA, r.clock, r.obs); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Runtime) buildSinks() (ports.Sink, error) {
	var sinks []ports.Sink

	if r.cfg.Sink.Driver != "" && r.cfg.Sink.Driver != "none" {
		db, err := sink.OpenSQL(r.cfg.Sink.Driver, r.cfg.Sink.DSN)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, db)
		s := sink.NewSQLSink(db, r.cfg.Sink.Driver, r.cfg.Sink.Table)
		if err := s.EnsureSchema(); err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if r.cfg.NATS.URL != "" {
		nc, err := sink.ConnectNATS(r.cfg.NATS.URL, "tagsync-"+r.runID)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, closerFunc(func() error { nc.Close(); return nil }))
		sinks = append(sinks, sink.NewNATSSink(nc, r.cfg.NATS.Subject))
	}

	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("no sink configured: set sink.driver or nats.url, or pass WithSink")
	case 1:
		return sinks[0], nil
	default:
		return sink.NewFanout(sinks...), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// RunID identifies this runtime in every emitted event.
func (r *Runtime) RunID() string { return r.runID }

// Registry exposes the Prometheus registry the runtime reports to.
func (r *Runtime) Registry() *prometheus.Registry { return r.registry }

// Start replays the journal, binds the tagging port and launches the output
// pipeline, collectors and metrics server. A bind failure is returned and
// leaves nothing running. Start does not drive the acquisition loop; Run does
// that in internal mode.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}

	outputCtx, cancel := context.WithCancel(context.Background())
	r.outputCancel = cancel
	r.outputDoneCh = make(chan struct{})
	go func() {
		defer close(r.outputDoneCh)
		pipeline.RunOutputPipeline(outputCtx, r.journal, r.queue, r.sink, r.policy, r.obs)
	}()

	if _, err := pipeline.ReplayJournal(outputCtx, r.journal, r.queue, r.policy, r.obs); err != nil {
		r.stopOutput(context.Background())
		return fmt.Errorf("journal replay: %w", err)
	}

	stream, err := tcptag.NewStream(r.cfg.Tagging.Config, r.clock, r.obs)
	if err != nil {
		r.stopOutput(context.Background())
		return err
	}
	r.stream = stream

	r.synchronizer = pipeline.NewSynchronizer(stream, r.clock, r.obs, pipeline.WithLateMarker(r.cfg.Tagging.LateMarkerID))
	r.synchronizer.Start()
	r.emitter = pipeline.NewEmitter(r.runID, r.journal, r.queue, r.policy, r.obs, pipeline.WithEmitterLateMarker(r.cfg.Tagging.LateMarkerID))

	if r.collector != nil {
		r.collectorStop = make(chan struct{})
		if err := pipeline.RunCollectorPipeline(r.collector, stream, r.clock, 64, r.collectorStop, r.obs); err != nil {
			close(r.collectorStop)
			_ = stream.Close()
			r.stopOutput(context.Background())
			return fmt.Errorf("start collector: %w", err)
		}
	}

	r.startMetrics()
	r.started = true
	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "tagging_addr", Value: stream.Addr().String()},
		ports.Field{Key: "mode", Value: r.cfg.Acquisition.Mode},
		ports.Field{Key: "sink", Value: r.sink.Name()})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// In internal acquisition mode the block clock drives OnLoop; in external
// mode the embedding driver is expected to call OnLoop itself. Upon
// cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}

	if r.cfg.Acquisition.Mode == ModeExternal {
		<-ctx.Done()
	} else {
		bc := pipeline.NewBlockClock(r.cfg.Acquisition.SamplingRate, r.cfg.Acquisition.BlockSize)
		_ = bc.Run(ctx, r)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// OnLoop synchronizes every pending tag against sampleTime, the date of the
// newest acquired sample, and hands the result to the journal and sinks. The
// returned set is also meant to be merged into the caller's own stream.
func (r *Runtime) OnLoop(sampleTime Time) StimulationSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}

	var out StimulationSet
	r.synchronizer.OnLoop(&out, sampleTime)
	if len(out) > 0 {
		r.emitter.Emit(out)
	}
	r.obs.SetGauge("tagsync_tag_queue_length", float64(r.stream.Len()))
	return out
}

// Inject queues a tag produced in-process as if it had arrived over TCP.
func (r *Runtime) Inject(t Tag) error {
	r.mu.Lock()
	stream := r.stream
	r.mu.Unlock()
	if stream == nil {
		return ErrNotStarted
	}
	resolved, _ := t.Resolve(r.clock.Now())
	stream.Inject(resolved)
	return nil
}

// Record journals a stimulation that is already dated on the sample axis,
// bypassing synchronization.
func (r *Runtime) Record(st Stimulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotStarted
	}
	return r.emitter.Publish(st)
}

// Addr returns the bound tagging address, or nil before Start.
func (r *Runtime) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return nil
	}
	return r.stream.Addr()
}

// Shutdown closes the tag stream, stops collectors, drains the output
// pipeline and closes the journal, sinks and metrics server.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	r.mu.Lock()
	stream := r.stream
	wasStarted := r.started
	r.started = false
	r.stream = nil
	r.mu.Unlock()

	if r.collectorStop != nil {
		close(r.collectorStop)
		r.collectorStop = nil
	}
	if r.collector != nil {
		if err := r.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if stream != nil {
		if err := stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if wasStarted {
		if err := r.stopOutput(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	if err := r.closeAll(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (r *Runtime) stopOutput(ctx context.Context) error {
	if r.outputCancel == nil {
		return nil
	}
	r.outputCancel()
	r.outputCancel = nil
	select {
	case <-r.outputDoneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("output pipeline drain: %w", ctx.Err())
	}
}

func (r *Runtime) closeAll() error {
	var errs []error
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		r.metricsSrv = &http.Server{
			Addr:              r.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		srv := r.metricsSrv
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.obs.LogError("metrics_server_exited", err)
			}
		}()
	}

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("tagsync_journal_size_bytes", float64(r.journal.Stats().SizeBytes))
			r.obs.SetGauge("tagsync_output_queue_length", float64(r.queue.Len()))
		}
	}
}

// OpenDB is exposed for callers building their own SQL sink with NewSQLSink.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	return sink.OpenSQL(driver, dsn)
}

// NewSQLSink builds the stock SQL sink on an open database and creates its table.
func NewSQLSink(db *sql.DB, driver, table string) (Sink, error) {
	s := sink.NewSQLSink(db, driver, table)
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewNATSSink publishes every event as JSON on subject through pub, typically a *nats.Conn.
func NewNATSSink(pub Publisher, subject string) Sink {
	return sink.NewNATSSink(pub, subject)
}
