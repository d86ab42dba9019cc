package tagsync

import (
	"database/sql"

	base "github.com/ghalamif/TagSync/pkg/tagsync"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrJournalFull       = base.ErrJournalFull
	ErrBind              = base.ErrBind
	ErrNotStarted        = base.ErrNotStarted
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/TagSync directly.
type (
	Config                = base.Config
	Policy                = base.Policy
	TaggingConfig         = base.TaggingConfig
	ServerConfig          = base.ServerConfig
	AcquisitionConfig     = base.AcquisitionConfig
	SinkConfig            = base.SinkConfig
	NATSConfig            = base.NATSConfig
	OPCUAConfig           = base.OPCUAConfig
	OPCUANodeConfig       = base.OPCUANodeConfig
	MetricsConfig         = base.MetricsConfig
	JournalConfig         = base.JournalConfig
	LogConfig             = base.LogConfig
	Flow                  = base.Flow
	FlowOption            = base.FlowOption
	TagsInOption          = base.TagsInOption
	StimulationsOutOption = base.StimulationsOutOption
	Runtime               = base.Runtime
	RuntimeOption         = base.RuntimeOption
	Time                  = base.Time
	Tag                   = base.Tag
	TagFlags              = base.TagFlags
	Stimulation           = base.Stimulation
	StimulationSet        = base.StimulationSet
	Event                 = base.Event
	EventBatchSink        = base.EventBatchSink
	TagCollector          = base.TagCollector
	Sink                  = base.Sink
	EventQueue            = base.EventQueue
	Journal               = base.Journal
	Clock                 = base.Clock
	Observability         = base.Observability
	QueuedEvent           = base.QueuedEvent
	EntryID               = base.EntryID
	JournalStats          = base.JournalStats
	Publisher             = base.Publisher
)

const (
	ModeInternal            = base.ModeInternal
	ModeExternal            = base.ModeExternal
	FlagFPTime              = base.FlagFPTime
	FlagAutostampClientSide = base.FlagAutostampClientSide
	FlagAutostampServerSide = base.FlagAutostampServerSide
	StimulationIncorrect    = base.StimulationIncorrect
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Time helpers.
func SecondsToTime(s float64) Time {
	return base.SecondsToTime(s)
}

func SamplesToTime(count uint64, rate uint32) Time {
	return base.SamplesToTime(count, rate)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func TagsInCollector(col TagCollector) TagsInOption {
	return base.TagsInCollector(col)
}

func TagsInClock(c Clock) TagsInOption {
	return base.TagsInClock(c)
}

func TagsInObservability(obs Observability) TagsInOption {
	return base.TagsInObservability(obs)
}

func StimulationsOutSink(s Sink) StimulationsOutOption {
	return base.StimulationsOutSink(s)
}

func StimulationsOutJournal(j Journal) StimulationsOutOption {
	return base.StimulationsOutJournal(j)
}

func StimulationsOutCallback(name string, fn EventBatchSink) StimulationsOutOption {
	return base.StimulationsOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col TagCollector) RuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithJournal(j Journal) RuntimeOption {
	return base.WithJournal(j)
}

func WithOutputQueue(q EventQueue) RuntimeOption {
	return base.WithOutputQueue(q)
}

func WithClock(c Clock) RuntimeOption {
	return base.WithClock(c)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return base.WithRegistry(reg)
}

// Sink adapters.
func NewCallbackSink(name string, fn EventBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Event, func()) {
	return base.NewChannelSink(name, buffer)
}

func OpenDB(driver, dsn string) (*sql.DB, error) {
	return base.OpenDB(driver, dsn)
}

func NewSQLSink(db *sql.DB, driver, table string) (Sink, error) {
	return base.NewSQLSink(db, driver, table)
}

func NewNATSSink(pub Publisher, subject string) Sink {
	return base.NewNATSSink(pub, subject)
}
