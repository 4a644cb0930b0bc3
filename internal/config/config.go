// Package config provides hierarchical configuration loading for commitcast.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the commitcast daemon.
type Config struct {
	Objects      Channel   `yaml:"objects"`
	Transactions Channel   `yaml:"transactions"`
	Logging      Logging   `yaml:"logging"`
	Telemetry    Telemetry `yaml:"telemetry"`
	NATS         NATS      `yaml:"nats"`
	Admin        Admin     `yaml:"admin"`
}

// Channel holds the settings of one broadcast socket.
type Channel struct {
	Enabled       bool          `yaml:"enabled"`
	SocketPath    string        `yaml:"socket_path"`
	QueueCapacity int           `yaml:"queue_capacity"` // 0 = unbounded
	Overflow      string        `yaml:"overflow"`       // "reject" | "drop_oldest"
	FanoutMode    string        `yaml:"fanout_mode"`    // "locked" | "snapshot"
	WriteTimeout  time.Duration `yaml:"write_timeout"`  // 0 = block until the write fails
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	// Accept error pacing; a zero initial interval retries immediately.
	AcceptBackoffInitial time.Duration `yaml:"accept_backoff_initial"`
	AcceptBackoffMax     time.Duration `yaml:"accept_backoff_max"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Telemetry holds OpenTelemetry exporter configuration. An empty endpoint
// disables export.
type Telemetry struct {
	ServiceName    string        `yaml:"service_name"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	Insecure       bool          `yaml:"insecure"`
	MetricInterval time.Duration `yaml:"metric_interval"`
}

// NATS holds the optional ingress from the execution engine. An empty URL
// disables it.
type NATS struct {
	URL            string `yaml:"url"`
	ObjectsSubject string `yaml:"objects_subject"`
	TxSubject      string `yaml:"tx_subject"`
}

// Admin holds the optional status HTTP endpoint. An empty address disables it.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Default socket locations.
const (
	DefaultSocketDir         = "/tmp/commitcast"
	DefaultObjectsSocketPath = DefaultSocketDir + "/object_updates.sock"
	DefaultTxSocketPath      = DefaultSocketDir + "/tx_effects.sock"
)

// Fan-out modes and overflow policies accepted by validate.
const (
	FanoutLocked   = "locked"
	FanoutSnapshot = "snapshot"

	OverflowReject     = "reject"
	OverflowDropOldest = "drop_oldest"
)

func defaultChannel(path string) Channel {
	return Channel{
		Enabled:              true,
		SocketPath:           path,
		QueueCapacity:        0,
		Overflow:             OverflowReject,
		FanoutMode:           FanoutLocked,
		ProbeTimeout:         time.Second,
		AcceptBackoffInitial: 5 * time.Millisecond,
		AcceptBackoffMax:     time.Second,
	}
}

// Defaults returns a Config with sensible default values for a local node.
func Defaults() Config {
	return Config{
		Objects:      defaultChannel(DefaultObjectsSocketPath),
		Transactions: defaultChannel(DefaultTxSocketPath),
		Logging: Logging{
			Level:   "info",
			Service: "commitcast",
		},
		Telemetry: Telemetry{
			ServiceName:    "commitcast",
			Insecure:       true,
			MetricInterval: 30 * time.Second,
		},
		NATS: NATS{
			ObjectsSubject: "commitcast.objects",
			TxSubject:      "commitcast.tx",
		},
	}
}
