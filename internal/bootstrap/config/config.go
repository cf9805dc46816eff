package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Casino   CasinoConfig   `mapstructure:"casino"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// CasinoConfig carries the property-level settings the floor engine needs:
// which casino this instance serves and how its gaming day is derived.
type CasinoConfig struct {
	ID              string `mapstructure:"id"`
	GamingDayCutoff int    `mapstructure:"gaming_day_cutoff"`
	Timezone        string `mapstructure:"timezone"`

	// IdempotencyTTLHours bounds how long replayed mutation keys are honored.
	IdempotencyTTLHours int `mapstructure:"idempotency_ttl_hours"`
}

// AuditConfig optionally mirrors committed audit events to a NATS subject.
// Empty URL disables the stream; the sqlite audit log is always written.
type AuditConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("casino", cfg.Casino.ID),
		slog.Int("gaming_day_cutoff", cfg.Casino.GamingDayCutoff),
		slog.String("timezone", cfg.Casino.Timezone),
	)

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.Casino.ID == "" {
		return errors.New("casino.id is required")
	}
	if cfg.Casino.GamingDayCutoff < 0 || cfg.Casino.GamingDayCutoff > 23 {
		return fmt.Errorf("casino.gaming_day_cutoff must be an hour in [0,23], got %d", cfg.Casino.GamingDayCutoff)
	}
	if _, err := time.LoadLocation(cfg.Casino.Timezone); err != nil {
		return errs.Wrapf(err, "casino.timezone %q", cfg.Casino.Timezone)
	}
	if cfg.Casino.IdempotencyTTLHours <= 0 {
		return fmt.Errorf("casino.idempotency_ttl_hours must be positive, got %d", cfg.Casino.IdempotencyTTLHours)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pitboss")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".pitboss/state/floor.sqlite")
	v.SetDefault("casino.id", "main")
	v.SetDefault("casino.gaming_day_cutoff", 6)
	v.SetDefault("casino.timezone", "America/Los_Angeles")
	v.SetDefault("casino.idempotency_ttl_hours", 24)
	v.SetDefault("audit.subject", "pitboss.audit")
}
