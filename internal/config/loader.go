package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "commitcast.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	loadChannelEnv(&cfg.Objects, "COMMITCAST_OBJECTS")
	loadChannelEnv(&cfg.Transactions, "COMMITCAST_TX")

	setString(&cfg.Logging.Level, "COMMITCAST_LOG_LEVEL")
	setString(&cfg.Logging.Service, "COMMITCAST_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "COMMITCAST_LOG_ASYNC")

	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "COMMITCAST_OTLP_INSECURE")
	setDuration(&cfg.Telemetry.MetricInterval, "COMMITCAST_METRIC_INTERVAL")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.ObjectsSubject, "COMMITCAST_NATS_OBJECTS_SUBJECT")
	setString(&cfg.NATS.TxSubject, "COMMITCAST_NATS_TX_SUBJECT")

	setString(&cfg.Admin.Addr, "COMMITCAST_ADMIN_ADDR")
}

func loadChannelEnv(ch *Channel, prefix string) {
	setBool(&ch.Enabled, prefix+"_ENABLED")
	setString(&ch.SocketPath, prefix+"_SOCKET")
	setInt(&ch.QueueCapacity, prefix+"_QUEUE_CAPACITY")
	setString(&ch.Overflow, prefix+"_OVERFLOW")
	setString(&ch.FanoutMode, prefix+"_FANOUT_MODE")
	setDuration(&ch.WriteTimeout, prefix+"_WRITE_TIMEOUT")
	setDuration(&ch.ProbeTimeout, prefix+"_PROBE_TIMEOUT")
	setDuration(&ch.AcceptBackoffInitial, prefix+"_ACCEPT_BACKOFF_INITIAL")
	setDuration(&ch.AcceptBackoffMax, prefix+"_ACCEPT_BACKOFF_MAX")
}

// validate checks that required fields are set and enums are known.
func validate(cfg *Config) error {
	if err := validateChannel("objects", &cfg.Objects); err != nil {
		return err
	}
	if err := validateChannel("transactions", &cfg.Transactions); err != nil {
		return err
	}
	if cfg.Objects.Enabled && cfg.Transactions.Enabled &&
		cfg.Objects.SocketPath == cfg.Transactions.SocketPath {
		return errors.New("objects.socket_path and transactions.socket_path must differ")
	}
	if cfg.NATS.URL != "" && (cfg.NATS.ObjectsSubject == "" || cfg.NATS.TxSubject == "") {
		return errors.New("nats subjects are required when nats.url is set")
	}
	if cfg.Telemetry.OTLPEndpoint != "" && cfg.Telemetry.MetricInterval <= 0 {
		return errors.New("telemetry.metric_interval must be > 0")
	}
	return nil
}

func validateChannel(name string, ch *Channel) error {
	if !ch.Enabled {
		return nil
	}
	if ch.SocketPath == "" {
		return fmt.Errorf("%s.socket_path is required", name)
	}
	if ch.QueueCapacity < 0 {
		return fmt.Errorf("%s.queue_capacity must be >= 0", name)
	}
	switch ch.Overflow {
	case OverflowReject, OverflowDropOldest:
	default:
		return fmt.Errorf("%s.overflow must be %q or %q", name, OverflowReject, OverflowDropOldest)
	}
	switch ch.FanoutMode {
	case FanoutLocked, FanoutSnapshot:
	default:
		return fmt.Errorf("%s.fanout_mode must be %q or %q", name, FanoutLocked, FanoutSnapshot)
	}
	if ch.WriteTimeout < 0 {
		return fmt.Errorf("%s.write_timeout must be >= 0", name)
	}
	if ch.ProbeTimeout <= 0 {
		return fmt.Errorf("%s.probe_timeout must be > 0", name)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
