package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/TagSync/internal/adapters/opcua"
	"github.com/ghalamif/TagSync/internal/adapters/tcptag"
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Acquisition modes.
const (
	ModeInternal = "internal"
	ModeExternal = "external"
)

// SinkNone disables the SQL sink.
const SinkNone = "none"

type Config struct {
	Tagging     TaggingConfig     `yaml:"tagging"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Policy      ports.Policy      `yaml:"policy"`
	Sink        SinkConfig        `yaml:"sink"`
	NATS        NATSConfig        `yaml:"nats"`
	OPCUA       *opcua.Config     `yaml:"opcua"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Journal     JournalConfig     `yaml:"journal"`
	Log         LogConfig         `yaml:"log"`
}

type TaggingConfig struct {
	tcptag.Config `yaml:",inline"`
	LateMarkerID  uint64 `yaml:"late_marker_id"`
}

type AcquisitionConfig struct {
	Mode         string `yaml:"mode"`
	SamplingRate uint32 `yaml:"sampling_rate"`
	BlockSize    uint32 `yaml:"block_size"`
}

// BlockDuration is the wall-clock length of one acquisition block.
func (a AcquisitionConfig) BlockDuration() time.Duration {
	if a.SamplingRate == 0 {
		return 0
	}
	return time.Duration(a.BlockSize) * time.Second / time.Duration(a.SamplingRate)
}

type SinkConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Tagging.Port == 0 {
		c.Tagging.Port = tcptag.DefaultPort
	}
	if c.Tagging.Bind == "" {
		c.Tagging.Bind = "0.0.0.0"
	}
	if c.Tagging.LateMarkerID == 0 {
		c.Tagging.LateMarkerID = domain.StimulationIncorrect
	}
	if c.Acquisition.Mode == "" {
		c.Acquisition.Mode = ModeInternal
	}
	if c.Acquisition.SamplingRate == 0 {
		c.Acquisition.SamplingRate = 512
	}
	if c.Acquisition.BlockSize == 0 {
		c.Acquisition.BlockSize = 32
	}
	if c.Policy.MaxJournalSizeBytes == 0 {
		c.Policy.MaxJournalSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}
	if c.Policy.OnJournalFull == "" {
		c.Policy.OnJournalFull = "drop"
	}
	if c.Sink.Driver == "" {
		c.Sink.Driver = "sqlite3"
	}
	if c.Sink.DSN == "" && c.Sink.Driver == "sqlite3" {
		c.Sink.DSN = "./data/stimulations.db"
	}
	if c.Sink.Table == "" {
		c.Sink.Table = "stimulations"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "tagsync.stimulations"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.OPCUA != nil {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	if c.Tagging.Port < 0 || c.Tagging.Port > 65535 {
		return fmt.Errorf("tagging.port %d out of range", c.Tagging.Port)
	}
	switch c.Acquisition.Mode {
	case ModeInternal, ModeExternal:
	default:
		return fmt.Errorf("acquisition.mode must be %q or %q, got %q", ModeInternal, ModeExternal, c.Acquisition.Mode)
	}
	if c.Acquisition.BlockSize > c.Acquisition.SamplingRate {
		return fmt.Errorf("acquisition.block_size %d exceeds sampling_rate %d", c.Acquisition.BlockSize, c.Acquisition.SamplingRate)
	}
	if err := validatePolicyValue("policy.on_queue_full", c.Policy.OnQueueFull, "block", "drop", "reject"); err != nil {
		return err
	}
	if err := validatePolicyValue("policy.on_journal_full", c.Policy.OnJournalFull, "block", "drop"); err != nil {
		return err
	}
	switch c.Sink.Driver {
	case "postgres", "sqlite3":
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn is required for driver %s", c.Sink.Driver)
		}
	case SinkNone:
	default:
		return fmt.Errorf("sink.driver %q is not supported", c.Sink.Driver)
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}
	if c.OPCUA != nil {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}

func validatePolicyValue(key, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", key, allowed, val)
}
