// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the job board.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	HttpListenAddr      string        `mapstructure:"http_listen_addr"`
	StoreDriver         string        `mapstructure:"store_driver"`
	DatabaseURL         string        `mapstructure:"database_url"`
	DBMaxConns          int32         `mapstructure:"db_max_conns"`
	DBMinConns          int32         `mapstructure:"db_min_conns"`
	RedisURL            string        `mapstructure:"redis_url"`
	ChangeFeed          string        `mapstructure:"change_feed"`
	EtcdEndpoints       []string      `mapstructure:"etcd_endpoints"`
	EtcdTimeout         time.Duration `mapstructure:"etcd_timeout"`
	LeaderElectionTTL   time.Duration `mapstructure:"leader_election_ttl"`
	MaintenanceSchedule string        `mapstructure:"maintenance_schedule"`
	JWTSecret           string        `mapstructure:"jwt_secret"`
	SavedCacheTTL       time.Duration `mapstructure:"saved_cache_ttl"`
	RefreshDebounce     time.Duration `mapstructure:"refresh_debounce"`
	CORSAllowedOrigins  []string      `mapstructure:"cors_allowed_origins"`
	LogLevel            string        `mapstructure:"log_level"`
	TraceEnabled        bool          `mapstructure:"trace_enabled"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	FeedPostgres = "postgres"
	FeedRedis    = "redis"
	FeedEtcd     = "etcd"
	FeedMemory   = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_listen_addr", ":8080")
	v.SetDefault("store_driver", DriverMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("db_min_conns", 1)
	v.SetDefault("redis_url", "")
	v.SetDefault("change_feed", "")
	v.SetDefault("etcd_endpoints", []string{})
	v.SetDefault("etcd_timeout", "5s")
	v.SetDefault("leader_election_ttl", "10s")
	v.SetDefault("maintenance_schedule", "@every 15m")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("saved_cache_ttl", "720h")
	v.SetDefault("refresh_debounce", "250ms")
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("trace_enabled", false)
}

// Load reads configuration from defaults, an optional config file and the
// environment. A local .env file is loaded into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("JOBBOARD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Comma separated lists arrive from the environment as a single element.
	cfg.EtcdEndpoints = splitList(cfg.EtcdEndpoints)
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	if cfg.ChangeFeed == "" {
		cfg.ChangeFeed = defaultFeed(cfg.StoreDriver)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultFeed(driver string) string {
	if driver == DriverPostgres {
		return FeedPostgres
	}
	return FeedMemory
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}

	switch c.ChangeFeed {
	case FeedMemory:
	case FeedPostgres:
		if c.StoreDriver != DriverPostgres {
			return errors.New("the postgres change feed requires the postgres store")
		}
	case FeedRedis:
		if c.RedisURL == "" {
			return errors.New("redis_url is required for the redis change feed")
		}
	case FeedEtcd:
		if len(c.EtcdEndpoints) == 0 {
			return errors.New("etcd_endpoints is required for the etcd change feed")
		}
	default:
		return fmt.Errorf("unknown change_feed %q", c.ChangeFeed)
	}

	if c.DBMinConns > c.DBMaxConns {
		return errors.New("db_min_conns cannot exceed db_max_conns")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
