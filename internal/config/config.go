package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Notification NotificationConfig `mapstructure:"notification"`
	Definitions  DefinitionsConfig  `mapstructure:"definitions"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	CreateIfMissing bool   `mapstructure:"create_if_missing"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SchedulerConfig struct {
	MaxJitter         time.Duration `mapstructure:"max_jitter"`
	BaseTick          time.Duration `mapstructure:"base_tick"`
	TimeoutRatio      float64       `mapstructure:"timeout_ratio"`
	Retention         time.Duration `mapstructure:"retention"`
	RetentionInterval time.Duration `mapstructure:"retention_interval"`
}

type OAuthConfig struct {
	ExpirySkew   time.Duration `mapstructure:"expiry_skew"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type NotificationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

type DefinitionsConfig struct {
	Path string `mapstructure:"path"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Load читает configs/config.yaml (или файл из path) и переменные VIGIL_*
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Warn("config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed, %w", err)
	}

	slog.Info("configuration loaded successfully")
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vigil")
	v.SetDefault("app.version", "dev")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "10s")

	// database defaults
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "vigil")
	v.SetDefault("database.password", "vigil")
	v.SetDefault("database.dbname", "vigil")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.create_if_missing", false)

	// redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "vigil:heartbeats")

	// logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// scheduler defaults
	v.SetDefault("scheduler.max_jitter", "5s")
	v.SetDefault("scheduler.base_tick", "1s")
	v.SetDefault("scheduler.timeout_ratio", 0.8)
	v.SetDefault("scheduler.retention", "720h") // 30 дней
	v.SetDefault("scheduler.retention_interval", "1h")

	v.SetDefault("oauth.expiry_skew", "30s")
	v.SetDefault("oauth.fetch_timeout", "10s")

	v.SetDefault("notification.timeout", "10s")
	v.SetDefault("notification.retries", 2)

	v.SetDefault("definitions.path", "")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" && cfg.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode %s", cfg.Server.Mode)
	}

	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.Scheduler.TimeoutRatio <= 0 || cfg.Scheduler.TimeoutRatio > 1 {
		return fmt.Errorf("scheduler timeout ratio must be in (0, 1], got %v", cfg.Scheduler.TimeoutRatio)
	}

	if cfg.Scheduler.BaseTick <= 0 {
		return errors.New("scheduler base tick must be positive")
	}

	if cfg.Scheduler.MaxJitter < 0 {
		return errors.New("scheduler max jitter must not be negative")
	}

	return nil
}

// GetDSN возвращает DSN строку для PostgreSQL
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// возвращает настройки для Redis клиента
func (r *RedisConfig) GetRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:            r.Addr,
		Password:        r.Password,
		DB:              r.DB,
		DisableIdentity: true,
	}
}
