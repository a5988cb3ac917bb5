package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the respeaker service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Poll      PollConfig      `yaml:"poll"`
	Recording RecordingConfig `yaml:"recording"`
	Presets   PresetConfig    `yaml:"presets"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig contains USB device selection and transfer settings.
type DeviceConfig struct {
	// Index selects which matching device to open when more than one is
	// attached. -1 means auto-select, which fails if several are present.
	Index int `yaml:"index"`

	// TransferTimeout bounds every control transfer, in milliseconds.
	TransferTimeout int `yaml:"transfer_timeout"`

	// SettleTime is the wait after a device reset before reconnecting,
	// in milliseconds.
	SettleTime int `yaml:"settle_time"`
}

// PollConfig contains the refresh intervals of the state loop.
type PollConfig struct {
	// Interval is the interactive poll period in milliseconds.
	Interval int `yaml:"interval"`

	// RecordInterval is the poll period while recording, in milliseconds.
	RecordInterval int `yaml:"record_interval"`
}

// RecordingConfig contains CSV recording settings.
type RecordingConfig struct {
	Dir string `yaml:"dir"`
}

// PresetConfig contains the SQLite preset store settings.
type PresetConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RESPEAKER_SECTION_KEY
// For example: RESPEAKER_DEVICE_INDEX, RESPEAKER_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. Callers that run
// without a config file use this directly (after applying their own flag
// overrides).
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Index:           -1,
			TransferTimeout: 2000,
			SettleTime:      2000,
		},
		Poll: PollConfig{
			Interval:       50,
			RecordInterval: 10,
		},
		Recording: RecordingConfig{
			Dir: "./recordings",
		},
		Presets: PresetConfig{
			Path:        "./data/respeaker.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "respeaker",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RESPEAKER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("RESPEAKER_DEVICE_INDEX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Device.Index = n
		}
	}

	// Recording
	if v := os.Getenv("RESPEAKER_RECORDING_DIR"); v != "" {
		cfg.Recording.Dir = v
	}

	// Presets
	if v := os.Getenv("RESPEAKER_PRESETS_PATH"); v != "" {
		cfg.Presets.Path = v
	}

	// MQTT
	if v := os.Getenv("RESPEAKER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RESPEAKER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RESPEAKER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("RESPEAKER_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("RESPEAKER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("RESPEAKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.TransferTimeout <= 0 {
		errs = append(errs, "device.transfer_timeout must be positive")
	}
	if c.Device.SettleTime < 0 {
		errs = append(errs, "device.settle_time must not be negative")
	}

	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	if c.Poll.RecordInterval <= 0 {
		errs = append(errs, "poll.record_interval must be positive")
	}

	if c.Recording.Dir == "" {
		errs = append(errs, "recording.dir is required")
	}
	if c.Presets.Path == "" {
		errs = append(errs, "presets.path is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set RESPEAKER_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TransferTimeout returns the USB control transfer timeout as a Duration.
func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.Device.TransferTimeout) * time.Millisecond
}

// SettleTime returns the post-reset settle delay as a Duration.
func (c *Config) SettleTime() time.Duration {
	return time.Duration(c.Device.SettleTime) * time.Millisecond
}

// PollInterval returns the interactive poll period as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Millisecond
}

// RecordInterval returns the recording poll period as a Duration.
func (c *Config) RecordInterval() time.Duration {
	return time.Duration(c.Poll.RecordInterval) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
