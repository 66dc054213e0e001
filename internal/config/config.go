// Package config loads service configuration from an optional .env file,
// the process environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type HTTPConf struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins restricts websocket upgrades; empty allows any origin
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConf struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

type AuthConf struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTAudience   string `mapstructure:"jwt_audience"`
	SessionCookie string `mapstructure:"session_cookie"`
	ChapterCookie string `mapstructure:"chapter_cookie"`
}

type RateLimitConf struct {
	Backend  string        `mapstructure:"backend"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PushConf struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
}

type EmailConf struct {
	ResendAPIKey string        `mapstructure:"resend_api_key"`
	From         string        `mapstructure:"from"`
	SendDelay    time.Duration `mapstructure:"send_delay"`
}

type StorageConf struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Config is the full service configuration
type Config struct {
	Env       string        `mapstructure:"app_env"`
	HTTP      HTTPConf      `mapstructure:"http"`
	Database  DatabaseConf  `mapstructure:"database"`
	Auth      AuthConf      `mapstructure:"auth"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Redis     RedisConf     `mapstructure:"redis"`
	Push      PushConf      `mapstructure:"push"`
	Email     EmailConf     `mapstructure:"email"`
	Storage   StorageConf   `mapstructure:"storage"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
}

var defaults = map[string]interface{}{
	"app_env":                   "development",
	"http.addr":                 ":8080",
	"http.shutdown_timeout":     "10s",
	"http.allowed_origins":      []string{},
	"database.driver":           "postgres",
	"database.dsn":              "",
	"database.migrate":          true,
	"auth.jwt_secret":           "",
	"auth.jwt_audience":         "",
	"auth.session_cookie":       "sb-access-token",
	"auth.chapter_cookie":       "selected_chapter",
	"ratelimit.backend":         "memory",
	"ratelimit.requests":        120,
	"ratelimit.window":          "1m",
	"redis.addr":                "localhost:6379",
	"redis.password":            "",
	"redis.db":                  0,
	"push.vapid_public_key":     "",
	"push.vapid_private_key":    "",
	"push.subscriber":           "",
	"email.resend_api_key":      "",
	"email.from":                "",
	"email.send_delay":          "600ms",
	"storage.bucket":            "",
	"storage.region":            "us-east-1",
	"storage.endpoint":          "",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.presign_ttl":       "15m",
	"kafka.brokers":             []string{},
	"kafka.topic":               "chapterhub.events",
}

// Flags returns the command-line flags understood by Load
func Flags() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("chapterhub", pflag.ContinueOnError)
	flagSet.String("config", "", "path to an optional config file (yaml, json or toml)")
	flagSet.String("addr", "", "HTTP listen address, overrides HTTP_ADDR")
	return flagSet
}

// Load builds the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("addr"); f != nil && f.Changed {
			if err := v.BindPFlag("http.addr", f); err != nil {
				return nil, err
			}
		}
		if path, _ := flags.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: DATABASE_DSN is required")
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("config: rate limit requests and window must be positive")
	}
	return nil
}
