package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Caséta bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Caseta   CasetaConfig   `yaml:"caseta"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id" env:"GRAYLOGIC_SITE_ID"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path" env:"GRAYLOGIC_DATABASE_PATH"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" env:"GRAYLOGIC_MQTT_HOST"`
	Port     int    `yaml:"port" env:"GRAYLOGIC_MQTT_PORT"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"GRAYLOGIC_MQTT_USERNAME"`
	Password string `yaml:"password" env:"GRAYLOGIC_MQTT_PASSWORD"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host" env:"GRAYLOGIC_API_HOST"`
	Port     int              `yaml:"port" env:"GRAYLOGIC_API_PORT"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url" env:"GRAYLOGIC_INFLUXDB_URL"`
	Token         string `yaml:"token" env:"GRAYLOGIC_INFLUXDB_TOKEN"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"GRAYLOGIC_LOG_LEVEL"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CasetaConfig contains Lutron Caséta integration settings.
type CasetaConfig struct {
	// Bridges is the legacy static bridge list. Each entry is imported as a
	// config entry on startup unless its host is already configured.
	Bridges []BridgeConfig `yaml:"bridges"`

	// ConnectTimeout bounds a single bridge connection attempt (seconds).
	// Default: 10
	ConnectTimeout int `yaml:"connect_timeout"`

	// AwaitPlatforms makes entry setup wait for all sub-platforms and fail
	// if any of them fails. When false, sub-platform setup runs detached.
	AwaitPlatforms bool `yaml:"await_platforms"`
}

// BridgeConfig is one statically configured Caséta bridge.
type BridgeConfig struct {
	Host     string `yaml:"host"`
	Keyfile  string `yaml:"keyfile"`
	Certfile string `yaml:"certfile"`
	CACerts  string `yaml:"ca_certs"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/caseta.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-caseta",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8081,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Caseta: CasetaConfig{
			ConnectTimeout: 10,
		},
	}
}

// applyEnvOverrides applies GRAYLOGIC_* environment variables on top of the
// file values. Unset variables leave the field untouched.
//
// The caseta section is file-only: bridge lists do not map onto flat variables.
func applyEnvOverrides(cfg *Config) error {
	targets := []any{&cfg.Site, &cfg.Database, &cfg.MQTT, &cfg.API, &cfg.InfluxDB, &cfg.Logging}
	for _, target := range targets {
		if err := env.Parse(target); err != nil {
			return fmt.Errorf("parsing environment overrides: %w", err)
		}
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Every problem is collected so operators can fix a file in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Caseta.ConnectTimeout < 0 {
		errs = append(errs, "caseta.connect_timeout must not be negative")
	}

	hosts := make(map[string]bool, len(c.Caseta.Bridges))
	for i, b := range c.Caseta.Bridges {
		for _, missing := range b.missingFields() {
			errs = append(errs, fmt.Sprintf("caseta.bridges[%d].%s is required", i, missing))
		}
		if b.Host != "" {
			if hosts[b.Host] {
				errs = append(errs, fmt.Sprintf("caseta.bridges[%d].host %q is duplicated", i, b.Host))
			}
			hosts[b.Host] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// missingFields lists the required bridge keys that are empty.
func (b BridgeConfig) missingFields() []string {
	var missing []string
	if b.Host == "" {
		missing = append(missing, "host")
	}
	if b.Keyfile == "" {
		missing = append(missing, "keyfile")
	}
	if b.Certfile == "" {
		missing = append(missing, "certfile")
	}
	if b.CACerts == "" {
		missing = append(missing, "ca_certs")
	}
	return missing
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

// GetConnectTimeout returns the bridge connection timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Caseta.ConnectTimeout) * time.Second
}
