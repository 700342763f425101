package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PolicyZero        = "zero"
	PolicyRenormalize = "renormalize"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port               int      `yaml:"port"`
	MetricsPort        int      `yaml:"metrics_port"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// RemoteConfig points at the central scoring service. An empty URL disables
// the remote path and every request is served by the local engine.
type RemoteConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type ScoringConfig struct {
	// AbsentDimensionPolicy is "zero" (absent dimensions keep their weight and
	// contribute nothing) or "renormalize".
	AbsentDimensionPolicy string `yaml:"absent_dimension_policy"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:4173"},
			RateLimitPerMinute: 120,
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Remote: RemoteConfig{
			TimeoutMs: 10000,
		},
		Scoring: ScoringConfig{
			AbsentDimensionPolicy: PolicyZero,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, eris.Wrap(err, "parse config")
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return eris.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Scoring.AbsentDimensionPolicy {
	case PolicyZero, PolicyRenormalize:
	default:
		return eris.Errorf("unknown absent_dimension_policy %q", c.Scoring.AbsentDimensionPolicy)
	}
	if c.Remote.TimeoutMs <= 0 {
		return eris.Errorf("remote.timeout_ms must be > 0, got %d", c.Remote.TimeoutMs)
	}
	return nil
}

// LogLevel maps the configured level name onto slog; unknown names fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BRAINNOVA_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("BRAINNOVA_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("BRAINNOVA_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("BRAINNOVA_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("BRAINNOVA_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BRAINNOVA_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("BRAINNOVA_REMOTE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutMs = n
		}
	}
	if v := os.Getenv("BRAINNOVA_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("BRAINNOVA_ABSENT_DIMENSION_POLICY"); v != "" {
		cfg.Scoring.AbsentDimensionPolicy = v
	}
	if v := os.Getenv("BRAINNOVA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
