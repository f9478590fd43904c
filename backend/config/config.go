package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener and the static dashboard bundle.
type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	FrontendPath string `yaml:"frontend_path"`
}

// DatabaseConfig points at the SQLite file used for users, settings and history.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects where daily log files are written.
type LogConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// SimulatorConfig tunes the synthetic traffic pipeline.
type SimulatorConfig struct {
	TickInterval     string  `yaml:"tick_interval"`
	SampleInterval   string  `yaml:"sample_interval"`
	AlertProbability float64 `yaml:"alert_probability"`
	PacketBuffer     int     `yaml:"packet_buffer"`
	AlertBuffer      int     `yaml:"alert_buffer"`
	SampleHistory    int     `yaml:"sample_history"`
	// Seed fixes the random sequence; 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// ClickHouseConfig holds the connection details for the optional columnar history sink.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HistoryConfig controls persistence of traffic samples and alerts.
type HistoryConfig struct {
	Enabled            bool             `yaml:"enabled"`
	FlushInterval      string           `yaml:"flush_interval"`
	QueueSize          int              `yaml:"queue_size"`
	RetentionDays      int              `yaml:"retention_days"`
	AlertRetentionDays int              `yaml:"alert_retention_days"`
	ClickHouse         ClickHouseConfig `yaml:"clickhouse"`
}

// NATSConfig enables republishing of generated events to a NATS server.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// GeoIPConfig points at a MaxMind country database. Empty disables lookups.
type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AuthConfig configures dashboard login tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

// CaptureConfig sets where recorded pcap files are kept.
type CaptureConfig struct {
	Dir string `yaml:"dir"`
}

// MonitorConfig holds startup behaviour of the monitor.
type MonitorConfig struct {
	AutoStart bool `yaml:"auto_start"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Simulator SimulatorConfig `yaml:"simulator"`
	History   HistoryConfig   `yaml:"history"`
	NATS      NATSConfig      `yaml:"nats"`
	GeoIP     GeoIPConfig     `yaml:"geoip"`
	Auth      AuthConfig      `yaml:"auth"`
	Capture   CaptureConfig   `yaml:"capture"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8080",
			FrontendPath: "./frontend/dist",
		},
		Database: DatabaseConfig{Path: "netmon.db"},
		Log:      LogConfig{Dir: "./logs", Prefix: "netmon"},
		Simulator: SimulatorConfig{
			TickInterval:     "100ms",
			SampleInterval:   "1s",
			AlertProbability: 0.02,
			PacketBuffer:     1000,
			AlertBuffer:      100,
			SampleHistory:    60,
		},
		History: HistoryConfig{
			Enabled:            true,
			FlushInterval:      "3s",
			QueueSize:          1024,
			RetentionDays:      7,
			AlertRetentionDays: 30,
			ClickHouse: ClickHouseConfig{
				Host:     "localhost",
				Port:     9000,
				Database: "default",
				Username: "default",
			},
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "netmon",
		},
		Auth: AuthConfig{
			JWTSecret: "change-me-netmon-secret",
			TokenTTL:  "24h",
		},
		Capture: CaptureConfig{Dir: "./captures"},
	}
}

// LoadConfig reads the YAML file at filePath over the defaults. A missing file
// yields the defaults. Environment overrides are applied last.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv("NETMON_DATA_DIR"); dir != "" {
		c.Database.Path = filepath.Join(dir, filepath.Base(c.Database.Path))
		c.Log.Dir = filepath.Join(dir, "logs")
		c.Capture.Dir = filepath.Join(dir, "captures")
	}
	if secret := os.Getenv("NETMON_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if addr := os.Getenv("NETMON_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"simulator.tick_interval":   c.Simulator.TickInterval,
		"simulator.sample_interval": c.Simulator.SampleInterval,
		"history.flush_interval":    c.History.FlushInterval,
		"auth.token_ttl":            c.Auth.TokenTTL,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}

	if c.Simulator.AlertProbability < 0 || c.Simulator.AlertProbability > 1 {
		return fmt.Errorf("simulator.alert_probability must be within [0,1], got %v", c.Simulator.AlertProbability)
	}
	if c.Simulator.PacketBuffer <= 0 || c.Simulator.AlertBuffer <= 0 || c.Simulator.SampleHistory <= 0 {
		return errors.New("simulator buffer sizes must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}

// TickInterval returns the generator cadence.
func (c *Config) TickInterval() time.Duration {
	return mustDuration(c.Simulator.TickInterval)
}

// SampleInterval returns the traffic sampler cadence.
func (c *Config) SampleInterval() time.Duration {
	return mustDuration(c.Simulator.SampleInterval)
}

// FlushInterval returns how often queued history is written.
func (c *Config) FlushInterval() time.Duration {
	return mustDuration(c.History.FlushInterval)
}

// TokenTTL returns the lifetime of issued login tokens.
func (c *Config) TokenTTL() time.Duration {
	return mustDuration(c.Auth.TokenTTL)
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated duration %q", s))
	}
	return d
}
