// Package config loads gateway settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/fhevm"
)

// Config is the gateway configuration.
type Config struct {
	LogLevel          string        `mapstructure:"log-level"`
	HTTPAddr          string        `mapstructure:"http-addr"`
	Storage           string        `mapstructure:"storage"`
	StorageCapacityMB int64         `mapstructure:"storage-capacity-mb"`
	Queue             string        `mapstructure:"queue"`
	QueueName         string        `mapstructure:"queue-name"`
	QueueCapacity     int           `mapstructure:"queue-capacity"`
	RedisAddr         string        `mapstructure:"redis-addr"`
	RedisPassword     string        `mapstructure:"redis-password"`
	RedisDB           int           `mapstructure:"redis-db"`
	Workers           int           `mapstructure:"workers"`
	RateLimit         int           `mapstructure:"rate-limit"`
	RateWindow        time.Duration `mapstructure:"rate-window"`
	DefaultType       string        `mapstructure:"default-type"`
}

// BuildFlagSet declares every flag the gateway understands.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fhevm-gateway", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Optional JSON or YAML config file")
	fs.Bool(VersionKey, false, "Display version and exit")
	fs.Bool(HelpKey, false, "Display help text and exit")

	fs.String(LogLevelKey, defaultLogLevel, "Log level: debug, info, warn, error")
	fs.String(HTTPAddrKey, defaultHTTPAddr, "HTTP API address")
	fs.String(StorageKey, defaultStorage, `Input record storage: "memory" or a directory path`)
	fs.Int64(StorageCapacityMBKey, defaultStorageCapacityMB, "Capacity of memory storage in MB")
	fs.String(QueueKey, defaultQueue, `Decryption queue backend: "memory" or "redis"`)
	fs.String(QueueNameKey, defaultQueueName, "Queue name")
	fs.Int(QueueCapacityKey, defaultQueueCapacity, "Pending jobs held by the memory queue")
	fs.String(RedisAddrKey, defaultRedisAddr, "Redis address for the redis queue and shared rate limits")
	fs.String(RedisPasswordKey, "", "Redis password")
	fs.Int(RedisDBKey, 0, "Redis database number")
	fs.Int(WorkersKey, defaultWorkers, "Decryption worker goroutines")
	fs.Int(RateLimitKey, defaultRateLimit, "Requests per client per window, 0 disables")
	fs.Duration(RateWindowKey, defaultRateWindow, "Rate limit sliding window")
	fs.String(DefaultTypeKey, defaultDefaultType, "Type tag used when a request omits one")
	return fs
}

// DisplayUsageText prints flag usage to stderr.
func DisplayUsageText(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: fhevm-gateway [flags]\n\n%s", fs.FlagUsages())
	fmt.Fprintf(os.Stderr, "\nEvery flag may also be set as %s_<FLAG> with dashes replaced by underscores.\n", EnvPrefix)
}

// BuildViper binds fs and the environment, and reads the config file when
// one is named.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Map flag names to env var names. Hyphens are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

// NewConfig builds and validates the configuration.
func NewConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and backend names.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid %s: %w", LogLevelKey, err))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("%s is required", HTTPAddrKey))
	}
	if c.Storage == "" {
		errs = append(errs, fmt.Errorf("%s is required", StorageKey))
	}
	if c.Storage == BackendMemory && c.StorageCapacityMB <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", StorageCapacityMBKey))
	}
	switch c.Queue {
	case BackendMemory:
		if c.QueueCapacity <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", QueueCapacityKey))
		}
		if c.Workers == 0 {
			errs = append(errs, fmt.Errorf("%s must be positive with the %s queue: nothing else reads it", WorkersKey, BackendMemory))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis queue", RedisAddrKey))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid %s %q: want %q or %q", QueueKey, c.Queue, BackendMemory, BackendRedis))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", WorkersKey))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", RateLimitKey))
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive when %s is set", RateWindowKey, RateLimitKey))
	}
	if _, err := fhevm.ParseTypeTag(c.DefaultType); err != nil {
		errs = append(errs, fmt.Errorf("invalid %s: %w", DefaultTypeKey, err))
	}

	return errors.Join(errs...)
}

// DefaultTag returns the parsed default type tag.
func (c *Config) DefaultTag() fhevm.TypeTag {
	tag, err := fhevm.ParseTypeTag(c.DefaultType)
	if err != nil {
		return fhevm.DefaultTypeTag
	}
	return tag
}

// ZapLevel returns the parsed log level, info if unparseable.
func (c *Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// SharedRateLimit reports whether rate limit counters should live in Redis.
func (c *Config) SharedRateLimit() bool {
	return c.Queue == BackendRedis
}
