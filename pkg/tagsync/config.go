package tagsync

import (
	"github.com/ghalamif/TagSync/internal/adapters/opcua"
	"github.com/ghalamif/TagSync/internal/adapters/tcptag"
	"github.com/ghalamif/TagSync/internal/app/config"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls journal/queue thresholds.
	Policy = ports.Policy
	// TaggingConfig configures the TCP tagging server.
	TaggingConfig = config.TaggingConfig
	// ServerConfig is the bind address part of TaggingConfig.
	ServerConfig = tcptag.Config
	// AcquisitionConfig configures the built-in block clock.
	AcquisitionConfig = config.AcquisitionConfig
	// SinkConfig configures the SQL sink.
	SinkConfig = config.SinkConfig
	// NATSConfig configures the NATS sink.
	NATSConfig = config.NATSConfig
	// OPCUAConfig holds connection + trigger node details.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig describes a monitored trigger node.
	OPCUANodeConfig = opcua.NodeConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures on-disk durability.
	JournalConfig = config.JournalConfig
	// LogConfig configures structured logging.
	LogConfig = config.LogConfig
)

// Acquisition modes.
const (
	ModeInternal = config.ModeInternal
	ModeExternal = config.ModeExternal
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
