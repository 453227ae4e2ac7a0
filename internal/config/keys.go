package config

import "time"

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Top-level configuration keys
	LogLevelKey          = "log-level"
	HTTPAddrKey          = "http-addr"
	StorageKey           = "storage"
	StorageCapacityMBKey = "storage-capacity-mb"
	QueueKey             = "queue"
	QueueNameKey         = "queue-name"
	QueueCapacityKey     = "queue-capacity"
	RedisAddrKey         = "redis-addr"
	RedisPasswordKey     = "redis-password"
	RedisDBKey           = "redis-db"
	WorkersKey           = "workers"
	RateLimitKey         = "rate-limit"
	RateWindowKey        = "rate-window"
	DefaultTypeKey       = "default-type"

	// EnvPrefix namespaces environment overrides, e.g. FHEVM_HTTP_ADDR.
	EnvPrefix = "FHEVM"
)

// Backend names for StorageKey and QueueKey.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const (
	defaultLogLevel          = "info"
	defaultHTTPAddr          = ":8080"
	defaultStorage           = BackendMemory
	defaultStorageCapacityMB = 256
	defaultQueue             = BackendMemory
	defaultQueueName         = "default"
	defaultQueueCapacity     = 1024
	defaultRedisAddr         = "localhost:6379"
	defaultWorkers           = 4
	defaultRateLimit         = 60
	defaultRateWindow        = time.Minute
	defaultDefaultType       = "uint8"
)
