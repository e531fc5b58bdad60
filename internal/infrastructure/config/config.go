package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Home.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig        `yaml:"site"`
	Database   DatabaseConfig    `yaml:"database"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	Channels   map[string]string `yaml:"channels"`
	API        APIConfig         `yaml:"api"`
	WebSocket  WebSocketConfig   `yaml:"websocket"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	Logging    LoggingConfig     `yaml:"logging"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Network    NetworkConfig     `yaml:"network"`
}

// SiteConfig contains household identification.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains settings for the SQLite activity archive.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays trims journal rows older than this many days.
	// Zero keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// AutoConnect connects the broker bridge at startup using Broker and Auth.
	// When false the bridge stays Disconnected until an operator connects it.
	AutoConnect bool `yaml:"auto_connect"`

	// Stub selects the no-op broker client instead of paho.
	Stub bool `yaml:"stub"`

	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`

	// KeepAlive is the ping interval used to detect a dead connection (seconds).
	KeepAlive int `yaml:"keep_alive"`

	// ConnectTimeout bounds the initial connection attempt (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// PublishTimeout bounds each publish/subscribe acknowledgement (seconds).
	PublishTimeout int `yaml:"publish_timeout"`

	// TopicPrefix is used for the status topic and for default channel topics.
	TopicPrefix string `yaml:"topic_prefix"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// PanelDir serves dashboard assets from disk instead of the embedded copy.
	PanelDir string `yaml:"panel_dir"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	ReadSeconds  int `yaml:"read"`
	WriteSeconds int `yaml:"write"`
	IdleSeconds  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
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

// SimulationConfig controls the simulated physical environment.
type SimulationConfig struct {
	// TickInterval is how often the host advances sensor signals (seconds).
	TickInterval int `yaml:"tick_interval"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	Temperature SignalConfig `yaml:"temperature"`
	Humidity    SignalConfig `yaml:"humidity"`
}

// SignalConfig describes one bounded, drifting sensor signal.
type SignalConfig struct {
	Initial   float64 `yaml:"initial"`
	Low       float64 `yaml:"low"`
	High      float64 `yaml:"high"`
	Drift     float64 `yaml:"drift"`
	Precision int     `yaml:"precision"`
}

// NetworkConfig controls the simulated WiFi environment.
type NetworkConfig struct {
	HistorySize       int     `yaml:"history_size"`
	AddProbability    float64 `yaml:"add_probability"`
	RemoveProbability float64 `yaml:"remove_probability"`
}

// DefaultChannels returns the logical channel names and their default topics
// under the given prefix.
func DefaultChannels(prefix string) map[string]string {
	names := []string{
		"temperature", "humidity", "motion", "lights", "thermostat",
		"fan", "security", "doors", "cameras", "irrigation",
	}
	channels := make(map[string]string, len(names))
	for _, name := range names {
		channels[name] = prefix + "/" + name
	}
	return channels
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYHOME_SECTION_KEY
// For example: GRAYHOME_MQTT_HOST, GRAYHOME_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	cfg.fillChannels()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := defaultConfig()
	cfg.fillChannels()
	return cfg
}

// fillChannels adds the default topic for every logical channel the file did
// not name. Defaults are derived from the final topic prefix.
func (c *Config) fillChannels() {
	if c.Channels == nil {
		c.Channels = make(map[string]string)
	}
	for name, topic := range DefaultChannels(c.MQTT.TopicPrefix) {
		if _, ok := c.Channels[name]; !ok {
			c.Channels[name] = topic
		}
	}
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "home-001",
			Name:     "Gray Logic Home",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Path:          "./data/grayhome.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "grayhome-core",
			},
			QoS:            1,
			KeepAlive:      60,
			ConnectTimeout: 10,
			PublishTimeout: 5,
			TopicPrefix:    "grayhome",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				ReadSeconds:  30,
				WriteSeconds: 30,
				IdleSeconds:  60,
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
			Format: "json",
			Output: "stdout",
		},
		Simulation: SimulationConfig{
			TickInterval: 2,
			Temperature: SignalConfig{
				Initial:   21.5,
				Low:       15,
				High:      35,
				Drift:     0.4,
				Precision: 1,
			},
			Humidity: SignalConfig{
				Initial:   42,
				Low:       20,
				High:      80,
				Drift:     1,
				Precision: 0,
			},
		},
		Network: NetworkConfig{
			HistorySize:       10,
			AddProbability:    0.05,
			RemoveProbability: 0.05,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYHOME_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYHOME_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYHOME_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYHOME_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYHOME_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYHOME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYHOME_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYHOME_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days cannot be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.ConnectTimeout <= 0 {
		errs = append(errs, "mqtt.connect_timeout must be positive")
	}
	for name, topic := range c.Channels {
		if topic == "" {
			errs = append(errs, fmt.Sprintf("channels.%s topic cannot be empty", name))
		}
		if strings.ContainsAny(topic, "+#") {
			errs = append(errs, fmt.Sprintf("channels.%s topic cannot contain wildcards", name))
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Simulation.TickInterval <= 0 {
		errs = append(errs, "simulation.tick_interval must be positive")
	}
	errs = append(errs, c.Simulation.Temperature.validate("simulation.temperature")...)
	errs = append(errs, c.Simulation.Humidity.validate("simulation.humidity")...)

	if c.Network.HistorySize <= 0 {
		errs = append(errs, "network.history_size must be positive")
	}
	if !isProbability(c.Network.AddProbability) || !isProbability(c.Network.RemoveProbability) {
		errs = append(errs, "network probabilities must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SignalConfig) validate(name string) []string {
	var errs []string
	if s.Low >= s.High {
		errs = append(errs, name+".low must be less than high")
	}
	if s.Drift < 0 {
		errs = append(errs, name+".drift cannot be negative")
	}
	if s.Precision < 0 {
		errs = append(errs, name+".precision cannot be negative")
	}
	return errs
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// GetTickInterval returns the simulation tick interval as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return seconds(c.Simulation.TickInterval)
}

// seconds converts a whole-second config value.
func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Read, Write and Idle convert the HTTP timeouts for http.Server.
func (t APITimeoutConfig) Read() time.Duration  { return seconds(t.ReadSeconds) }
func (t APITimeoutConfig) Write() time.Duration { return seconds(t.WriteSeconds) }
func (t APITimeoutConfig) Idle() time.Duration  { return seconds(t.IdleSeconds) }
