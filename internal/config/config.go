package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Store    StoreConfig    `mapstructure:"store"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Invite   InviteConfig   `mapstructure:"invite"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Mail     MailConfig     `mapstructure:"mail"`
	Features FeaturesConfig `mapstructure:"features"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN renders the libpq keyword/value connection string shared by gorm and pgxpool.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "postgres" | "memory"
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// AdminConfig seeds the first administrator on migrate.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type InviteConfig struct {
	DelegateTTL time.Duration `mapstructure:"delegate_ttl"`
	ProxyTTL    time.Duration `mapstructure:"proxy_ttl"`
}

type IngestConfig struct {
	Interval   time.Duration    `mapstructure:"interval"`
	RunOnStart bool             `mapstructure:"run_on_start"`
	LockTTL    time.Duration    `mapstructure:"lock_ttl"`
	Source     string           `mapstructure:"source"` // "mysideline" | "file"
	File       string           `mapstructure:"file"`
	MySideline MySidelineConfig `mapstructure:"mysideline"`
}

type MySidelineConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SearchTerm        string        `mapstructure:"search_term"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	FromEmail     string `mapstructure:"from_email"`
	FromName      string `mapstructure:"from_name"`
	UseSTARTTLS   bool   `mapstructure:"use_starttls"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

type MailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// FeaturesConfig gates are read by the HTTP layer only.
type FeaturesConfig struct {
	MaintenanceMode bool `mapstructure:"maintenance_mode"`
	ComingSoonMode  bool `mapstructure:"coming_soon_mode"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 10*time.Second)

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("state.backend", "memory")
	v.SetDefault("store.backend", "postgres")

	v.SetDefault("jwt.issuer", "carnivalhub")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("invite.delegate_ttl", 7*24*time.Hour)
	v.SetDefault("invite.proxy_ttl", 14*24*time.Hour)

	v.SetDefault("ingest.interval", 24*time.Hour)
	v.SetDefault("ingest.lock_ttl", 30*time.Minute)
	v.SetDefault("ingest.source", "mysideline")
	v.SetDefault("ingest.mysideline.base_url", "https://profile.mysideline.com.au")
	v.SetDefault("ingest.mysideline.search_term", "Masters")
	v.SetDefault("ingest.mysideline.requests_per_second", 1.0)
	v.SetDefault("ingest.mysideline.timeout", 30*time.Second)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Masters Rugby League Carnivals")
	v.SetDefault("smtp.use_starttls", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the YAML file at path, overlays environment variables, and returns Config.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.State.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("state.backend: unknown backend %q", c.State.Backend))
	}
	switch c.Ingest.Source {
	case "mysideline":
		if c.Ingest.MySideline.BaseURL == "" {
			errs = append(errs, errors.New("ingest.mysideline.base_url: required"))
		}
	case "file":
		if c.Ingest.File == "" {
			errs = append(errs, errors.New("ingest.file: required when ingest.source is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("ingest.source: unknown source %q", c.Ingest.Source))
	}
	if c.Invite.DelegateTTL <= 0 {
		errs = append(errs, errors.New("invite.delegate_ttl: must be positive"))
	}
	if c.Invite.ProxyTTL <= 0 {
		errs = append(errs, errors.New("invite.proxy_ttl: must be positive"))
	}
	if c.Ingest.Interval <= 0 {
		errs = append(errs, errors.New("ingest.interval: must be positive"))
	}
	if c.Mail.Enabled && c.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host: required when mail.enabled"))
	}
	return errors.Join(errs...)
}
