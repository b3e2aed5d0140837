package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bot
type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Spoonacular SpoonacularConfig `mapstructure:"spoonacular"`
	Store       StoreConfig       `mapstructure:"store"`
	Session     SessionConfig     `mapstructure:"session"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Events      EventsConfig      `mapstructure:"events"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	Debug         bool   `mapstructure:"debug"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SpoonacularConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

type StoreConfig struct {
	Type        string `mapstructure:"type"` // "sqlite", "postgres" or "dynamodb"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	TableName   string `mapstructure:"table_name"`
	TokenSecret string `mapstructure:"token_secret"`
}

type SessionConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL      string        `mapstructure:"redis_url"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type EventsConfig struct {
	TopicArn string `mapstructure:"topic_arn"`
}

// AdminConfig guards the favorites admin API; it is disabled when Token
// is empty.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

func (c *Config) IsDevelopment() bool {
	return c.Log.Environment == "development"
}

// Load reads .env (if present), an optional chefbot.yaml and the
// environment. Variables are CHEFBOT_<SECTION>_<KEY>; the bot token, API
// key, table name and topic also accept their bare legacy names.
func Load() (*Config, error) {
	config, err := read()
	if err != nil {
		return nil, err
	}
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadEvents loads the configuration for the stream processor, which only
// publishes notifications and needs neither the bot token nor the API key.
func LoadEvents() (*Config, error) {
	config, err := read()
	if err != nil {
		return nil, err
	}
	if config.Events.TopicArn == "" {
		return nil, fmt.Errorf("invalid configuration: topic ARN is required (set TOPIC_ARN)")
	}
	return config, nil
}

func read() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("chefbot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chefbot/")

	v.SetEnvPrefix("CHEFBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacy(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

func bindLegacy(v *viper.Viper) {
	v.BindEnv("telegram.token", "CHEFBOT_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	v.BindEnv("spoonacular.api_key", "CHEFBOT_SPOONACULAR_API_KEY", "SPOONACULAR_API_KEY")
	v.BindEnv("store.table_name", "CHEFBOT_STORE_TABLE_NAME", "TABLE_NAME")
	v.BindEnv("events.topic_arn", "CHEFBOT_EVENTS_TOPIC_ARN", "TOPIC_ARN")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.webhook_secret", "")

	v.SetDefault("spoonacular.api_key", "")
	v.SetDefault("spoonacular.base_url", "https://api.spoonacular.com")
	v.SetDefault("spoonacular.timeout", "10s")
	v.SetDefault("spoonacular.rate_per_second", 1.0)
	v.SetDefault("spoonacular.burst", 5)

	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "recipes.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.table_name", "")
	v.SetDefault("store.token_secret", "")

	v.SetDefault("session.type", "memory")
	v.SetDefault("session.redis_url", "")
	v.SetDefault("session.idle_timeout", "24h")
	v.SetDefault("session.sweep_interval", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "production")

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("events.topic_arn", "")

	v.SetDefault("admin.token", "")
}

func validate(config *Config) error {
	if config.Telegram.Token == "" {
		return fmt.Errorf("Telegram token is required (set TELEGRAM_TOKEN)")
	}

	if config.Spoonacular.APIKey == "" {
		return fmt.Errorf("Spoonacular API key is required (set SPOONACULAR_API_KEY)")
	}

	switch config.Store.Type {
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
		}
	case "postgres":
		if config.Store.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required when store type is 'postgres'")
		}
	case "dynamodb":
		if config.Store.TableName == "" {
			return fmt.Errorf("table name is required when store type is 'dynamodb' (set TABLE_NAME)")
		}
		if config.Store.TokenSecret == "" {
			return fmt.Errorf("token secret is required when store type is 'dynamodb'")
		}
	default:
		return fmt.Errorf("store type must be 'sqlite', 'postgres' or 'dynamodb', got: %s", config.Store.Type)
	}

	if config.Session.Type != "memory" && config.Session.Type != "redis" {
		return fmt.Errorf("session type must be 'memory' or 'redis', got: %s", config.Session.Type)
	}

	if config.Session.Type == "redis" && config.Session.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when session type is 'redis'")
	}

	return nil
}
