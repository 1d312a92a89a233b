// Package config reads the churchledger settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"churchledger/internal/blob"
	"churchledger/internal/core"
	redisstore "churchledger/internal/infra/persistence/redis"

	"github.com/joho/godotenv"
)

const envPrefix = "CHURCHLEDGER_"

type Config struct {
	// Snapshot storage
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Backup documents
	BlobDriver        string
	BlobFSRoot        string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3PathStyle       bool
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Change events; disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	AutoSaveInterval time.Duration
	LogLevel         string
	MetricsFile      string
}

// Load reads .env files (the working directory's .env when none are given)
// without overriding variables already set, then builds the configuration.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		StorageDriver: getEnv("STORAGE_DRIVER", string(core.StorageSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "churchledger.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", redisstore.DefaultPrefix),

		BlobDriver:        getEnv("BLOB_DRIVER", string(blob.DriverFilesystem)),
		BlobFSRoot:        getEnv("BLOB_FS_ROOT", "./blobdata"),
		S3Bucket:          getEnv("BLOB_S3_BUCKET", ""),
		S3Region:          getEnv("BLOB_S3_REGION", ""),
		S3Endpoint:        getEnv("BLOB_S3_ENDPOINT", ""),
		S3PathStyle:       getEnvBool("BLOB_S3_PATH_STYLE", false),
		S3AccessKeyID:     getEnv("BLOB_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("BLOB_S3_SECRET_ACCESS_KEY", ""),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "churchledger"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger.events"),

		AutoSaveInterval: getEnvDuration("AUTOSAVE_INTERVAL", core.DefaultAutoSaveInterval),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsFile:      getEnv("METRICS_FILE", ""),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	driver, err := core.ParseStorageDriver(c.StorageDriver)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid storage driver '%s': must be one of [memory sqlite postgres redis]", c.StorageDriver))
	}
	switch driver {
	case core.StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, "SQLite path cannot be empty when using sqlite storage")
		}
	case core.StoragePostgres:
		if c.PostgresDSN != "" && strings.Contains(c.PostgresDSN, "://") {
			if u, err := url.Parse(c.PostgresDSN); err != nil {
				errs = append(errs, fmt.Sprintf("invalid Postgres DSN: %v", err))
			} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
				errs = append(errs, fmt.Sprintf("invalid Postgres DSN scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
			}
		}
	case core.StorageRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, "Redis address cannot be empty when using redis storage")
		}
		if c.RedisDB < 0 {
			errs = append(errs, fmt.Sprintf("invalid Redis database %d: must not be negative", c.RedisDB))
		}
	}

	switch blob.Driver(c.BlobDriver) {
	case blob.DriverFilesystem:
		if strings.TrimSpace(c.BlobFSRoot) == "" {
			errs = append(errs, "blob root cannot be empty when using the fs blob driver")
		}
	case blob.DriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, "S3 bucket is required when using the s3 blob driver")
		}
		if c.S3Region == "" {
			errs = append(errs, "S3 region is required when using the s3 blob driver")
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			errs = append(errs, "S3 access key id and secret access key must be set together")
		}
	case blob.DriverMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid blob driver '%s': must be one of [fs s3 memory]", c.BlobDriver))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AutoSaveInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid auto-save interval %v: must be at least 1 second", c.AutoSaveInterval))
	} else if c.AutoSaveInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid auto-save interval %v: must be at most 24 hours", c.AutoSaveInterval))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Storage maps the settings onto the snapshot store factory.
func (c *Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(strings.TrimSpace(c.StorageDriver))),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
		Redis: redisstore.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		},
	}
}

// Blob maps the settings onto the document store factory.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BlobDriver),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			Endpoint:        c.S3Endpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			PathStyle:       c.S3PathStyle,
		},
	}
}

// Level returns the slog level named by LogLevel, or info when it is unknown.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of [debug info warn error]", raw)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
