package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 3001
	DefaultDataPath       = "data/process_data.csv"
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultAllowOrigin    = "*"
	DefaultStreamInterval = 5 * time.Second
	DefaultStreamCount    = 100
	DefaultAlertInterval  = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Environment variables that override file values.
const (
	EnvPort     = "PORT"
	EnvDataPath = "DATA_FILE_PATH"
	EnvLogLevel = "LOG_LEVEL"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Stream StreamConfig `yaml:"stream"`
	Alerts AlertsConfig `yaml:"alerts"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds listener and request settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, metrics and WebSocket stream listen on.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port for the gRPC health service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RequestTimeout bounds the time a single API request may take,
	// including the source file load.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig controls the cross-origin headers added to every response.
type CORSConfig struct {
	AllowOrigin string `yaml:"allow_origin"`
}

// DataConfig locates the process data file.
type DataConfig struct {
	// Path is the CSV file read on every load.
	Path string `yaml:"path"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig controls the optional in-memory record cache.
type CacheConfig struct {
	// Enabled keeps the last loaded record set until the file changes.
	Enabled bool `yaml:"enabled"`

	// TTL additionally expires the cached set after this long. 0 means no expiry.
	TTL time.Duration `yaml:"ttl"`
}

// StreamConfig controls the WebSocket live feed.
type StreamConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`

	// Count is how many of the latest records each broadcast carries.
	Count int `yaml:"count"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	// Interval is how often rules are evaluated against the newest record.
	Interval time.Duration   `yaml:"interval"`
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is "<column> <op> <value>", e.g. "Temperature > 165".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// Load builds the configuration. If path is non-empty the YAML file is read
// over the defaults; environment overrides are applied last, then the result
// is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			RequestTimeout: DefaultRequestTimeout,
			CORS:           CORSConfig{AllowOrigin: DefaultAllowOrigin},
		},
		Data: DataConfig{
			Path: DefaultDataPath,
		},
		Stream: StreamConfig{
			Enabled:  true,
			Interval: DefaultStreamInterval,
			Count:    DefaultStreamCount,
		},
		Alerts: AlertsConfig{
			Interval: DefaultAlertInterval,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnv overrides file values with PORT, DATA_FILE_PATH and LOG_LEVEL.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a port number", EnvPort, v)
		}
		cfg.Server.HTTPPort = port
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.GRPCPort != 0 && cfg.Server.GRPCPort == cfg.Server.HTTPPort {
		return fmt.Errorf("server.grpc_port and server.http_port must differ")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 || cfg.Server.RequestTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if cfg.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if cfg.Data.Cache.TTL < 0 {
		return fmt.Errorf("data.cache.ttl must not be negative")
	}
	if cfg.Stream.Enabled {
		if cfg.Stream.Interval <= 0 {
			return fmt.Errorf("stream.interval must be positive")
		}
		if cfg.Stream.Count <= 0 {
			return fmt.Errorf("stream.count must be positive")
		}
	}
	if len(cfg.Alerts.Rules) > 0 && cfg.Alerts.Interval <= 0 {
		return fmt.Errorf("alerts.interval must be positive")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q: want slack|teams|http", i, wh.Type)
		}
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	return nil
}
