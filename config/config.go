// Package config loads runtime settings from a YAML, TOML or JSON file with
// GOLIATH_* environment overrides.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/malweka/GoliathData-sub001/logger"
)

// EnvPrefix prefix of environment overrides: database.dsn is read from GOLIATH_DATABASE_DSN
const EnvPrefix = "GOLIATH"

type Config struct {
	Database     DatabaseConfig `mapstructure:"database"`
	MappingFile  string         `mapstructure:"mapping_file"`
	MetadataFile string         `mapstructure:"metadata_file"`
	Logger       LoggerConfig   `mapstructure:"logger"`
	// CommandTimeout seconds allowed per command, zero for none
	CommandTimeout     int `mapstructure:"command_timeout"`
	StatementCacheSize int `mapstructure:"statement_cache_size"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type LoggerConfig struct {
	// Kind one of default, discard, zap, zerolog, logrus, slog
	Kind                      string        `mapstructure:"kind"`
	Level                     string        `mapstructure:"level"`
	SlowThreshold             time.Duration `mapstructure:"slow_threshold"`
	Colorful                  bool          `mapstructure:"colorful"`
	IgnoreRecordNotFoundError bool          `mapstructure:"ignore_record_not_found_error"`
	ParameterizedQueries      bool          `mapstructure:"parameterized_queries"`
}

// Load reads path, when not empty, over the defaults and applies environment
// overrides
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("mapping_file", "")
	v.SetDefault("metadata_file", "")
	v.SetDefault("logger.kind", "default")
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.slow_threshold", "200ms")
	v.SetDefault("logger.colorful", false)
	v.SetDefault("logger.ignore_record_not_found_error", false)
	v.SetDefault("logger.parameterized_queries", false)
	v.SetDefault("command_timeout", 30)
	v.SetDefault("statement_cache_size", 1024)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// New builds the configured logger
func (c LoggerConfig) New() (logger.Interface, error) {
	config := logger.Config{
		SlowThreshold:             c.SlowThreshold,
		Colorful:                  c.Colorful,
		IgnoreRecordNotFoundError: c.IgnoreRecordNotFoundError,
		ParameterizedQueries:      c.ParameterizedQueries,
		LogLevel:                  logger.ParseLevel(c.Level),
	}

	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case "", "default":
		return logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), config), nil
	case "discard":
		return logger.Discard, nil
	case "zap":
		return logger.NewZapLoggerWithConfig(config), nil
	case "zerolog":
		return logger.NewZerologConsoleLogger(config), nil
	case "logrus":
		return logger.NewLogrusLogger(logrus.StandardLogger(), config), nil
	case "slog":
		return logger.NewSlogLogger(slog.Default(), config), nil
	}
	return nil, fmt.Errorf("unknown logger kind %q", c.Kind)
}
