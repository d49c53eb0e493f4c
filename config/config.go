package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the root configuration structure
type Config struct {
	App        AppConfig        `json:"app"`
	Serial     SerialConfig     `json:"serial"`
	Window     WindowConfig     `json:"window"`
	Poll       PollConfig       `json:"poll"`
	Plot       PlotConfig       `json:"plot"`
	Logging    LoggingConfig    `json:"logging"`
	Monitoring MonitoringConfig `json:"monitoring"`
	Slack      SlackConfig      `json:"slack"`
	Recovery   RecoveryConfig   `json:"recovery"`
}

// AppConfig contains application metadata
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// SerialConfig defines the connection to the sampling device
type SerialConfig struct {
	Device        string `json:"device"`
	BaudRate      int    `json:"baud_rate"`
	DataBits      int    `json:"data_bits"`
	StopBits      int    `json:"stop_bits"`
	Parity        string `json:"parity"`
	ReadTimeoutMs int    `json:"read_timeout_ms"`
	BufferSize    int    `json:"buffer_size"`
	IdleSleepMs   int    `json:"idle_sleep_ms"`
}

// WindowConfig controls how much history is retained
type WindowConfig struct {
	LengthSec    float64 `json:"length_sec"`
	MinLengthSec float64 `json:"min_length_sec"`
	MaxLengthSec float64 `json:"max_length_sec"`
	Floor        int     `json:"floor"`
}

// PollConfig controls how often the channel is drained
type PollConfig struct {
	IntervalMs int `json:"interval_ms"`
}

// PlotConfig holds renderer defaults
type PlotConfig struct {
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level      string `json:"level"`
	BasePath   string `json:"base_path"`
	Filename   string `json:"filename"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// MonitoringConfig defines HTTP monitoring settings
type MonitoringConfig struct {
	Port int `json:"port"`
}

// SlackConfig defines Slack notification settings
type SlackConfig struct {
	WebhookURL     string `json:"webhook_url"`
	NotifyStartup  bool   `json:"notify_startup"`
	NotifyShutdown bool   `json:"notify_shutdown"`
	NotifyErrors   bool   `json:"notify_errors"`
}

// RecoveryConfig defines how the service restarts a session whose producer
// has died
type RecoveryConfig struct {
	AutoRestart          bool `json:"auto_restart"`
	ReconnectDelaySec    int  `json:"reconnect_delay_sec"`
	MaxReconnectDelaySec int  `json:"max_reconnect_delay_sec"`
	ExponentialBackoff   bool `json:"exponential_backoff"`
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// Save writes the configuration as indented JSON
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Default returns a configuration with every default applied and no device
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unspecified fields
func (c *Config) applyDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "SerialPlotter"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	// Serial defaults
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 115200
	}
	if c.Serial.DataBits == 0 {
		c.Serial.DataBits = 8
	}
	if c.Serial.StopBits == 0 {
		c.Serial.StopBits = 1
	}
	if c.Serial.Parity == "" {
		c.Serial.Parity = "none"
	}
	if c.Serial.ReadTimeoutMs == 0 {
		c.Serial.ReadTimeoutMs = 100
	}
	if c.Serial.BufferSize == 0 {
		c.Serial.BufferSize = 1024
	}
	if c.Serial.IdleSleepMs == 0 {
		c.Serial.IdleSleepMs = 10
	}

	// Window defaults
	if c.Window.MinLengthSec == 0 {
		c.Window.MinLengthSec = 4
	}
	if c.Window.MaxLengthSec == 0 {
		c.Window.MaxLengthSec = 100
	}
	if c.Window.LengthSec == 0 {
		c.Window.LengthSec = 10
	}
	if c.Window.Floor == 0 {
		c.Window.Floor = 2
	}

	// Poll defaults
	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = 16
	}

	// Plot defaults
	if c.Plot.YMin == 0 && c.Plot.YMax == 0 {
		c.Plot.YMin = -100
		c.Plot.YMax = 1000
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "serialplotter.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	// Monitoring defaults
	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 8080
	}

	// Recovery defaults
	if c.Recovery.ReconnectDelaySec == 0 {
		c.Recovery.ReconnectDelaySec = 5
	}
	if c.Recovery.MaxReconnectDelaySec == 0 {
		c.Recovery.MaxReconnectDelaySec = 300
	}
}

// GetReadTimeout returns the per-read timeout as a duration
func (c *SerialConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// GetIdleSleep returns the pause after an empty read as a duration
func (c *SerialConfig) GetIdleSleep() time.Duration {
	return time.Duration(c.IdleSleepMs) * time.Millisecond
}

// GetInterval returns the poll interval as a duration
func (c *PollConfig) GetInterval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// GetReconnectDelay returns the initial reconnect delay as a duration
func (c *RecoveryConfig) GetReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySec) * time.Second
}

// GetMaxReconnectDelay returns the maximum reconnect delay as a duration
func (c *RecoveryConfig) GetMaxReconnectDelay() time.Duration {
	return time.Duration(c.MaxReconnectDelaySec) * time.Second
}
