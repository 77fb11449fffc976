package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the HireDeck booking service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Booking     BookingConfig     `mapstructure:"booking"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// BookingConfig tunes the reservation and offer flows.
type BookingConfig struct {
	ReservationLockTTL time.Duration `mapstructure:"reservation_lock_ttl"`
	OfferTokenTTL      time.Duration `mapstructure:"offer_token_ttl"`
}

// OutboxConfig tunes the notification delivery worker.
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
}

// MaintenanceConfig schedules the periodic cleanup job.
type MaintenanceConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Schedule        string        `mapstructure:"schedule"`
	TokenRetention  time.Duration `mapstructure:"token_retention"`
	OutboxRetention time.Duration `mapstructure:"outbox_retention"`
}

// MonitoringConfig enables the Prometheus metrics endpoint.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("HIREDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/hiredeck.sqlite")

	v.SetDefault("booking.reservation_lock_ttl", "5m")
	v.SetDefault("booking.offer_token_ttl", "48h")

	v.SetDefault("outbox.poll_interval", "5s")
	v.SetDefault("outbox.batch_size", 25)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.lock_timeout", "30s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.schedule", "@every 1h")
	v.SetDefault("maintenance.token_retention", "720h") // 30 days
	v.SetDefault("maintenance.outbox_retention", "168h")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
