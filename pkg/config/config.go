// Package config loads the engine configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/chunkstore/internal/bytesize"
)

// Config is the chunkstore configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CHUNKSTORE_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ConnectionStrings holds the external service endpoints. Empty values
	// select the in-memory fallbacks.
	ConnectionStrings ConnectionStrings `mapstructure:"connection_strings" yaml:"connection_strings"`

	// DatabaseSettings names the metadata database and its collections.
	DatabaseSettings DatabaseSettings `mapstructure:"database_settings" yaml:"database_settings"`

	// ChunkSettings controls the chunk pipeline.
	ChunkSettings ChunkSettings `mapstructure:"chunk_settings" yaml:"chunk_settings"`

	// StorageProviderSettings configures the storage backends and the
	// distribution strategy across them.
	StorageProviderSettings StorageProviderSettings `mapstructure:"storage_provider_settings" yaml:"storage_provider_settings"`

	// CacheTTL bounds the lifetime of cached descriptors. Zero disables
	// expiry.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// SlowCommandThreshold is the duration above which a command is logged
	// as slow.
	SlowCommandThreshold time.Duration `mapstructure:"slow_command_threshold" yaml:"slow_command_threshold"`

	// Metrics enables the Prometheus registry.
	Metrics bool `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN or ERROR.
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format selects "text" or "json" output.
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
}

// ConnectionStrings holds external service endpoints.
type ConnectionStrings struct {
	// MongoDB is the metadata database URI (e.g.
	// "mongodb://localhost:27017"). Empty selects in-memory repositories.
	MongoDB string `mapstructure:"mongodb" yaml:"mongodb"`

	// Redis is the descriptor cache address as "host:port". Empty selects
	// the in-memory cache.
	Redis string `mapstructure:"redis" yaml:"redis"`
}

// DatabaseSettings names the metadata database and collections.
type DatabaseSettings struct {
	DatabaseName               string `mapstructure:"database_name" yaml:"database_name"`
	ChunkCollectionName        string `mapstructure:"chunk_collection_name" yaml:"chunk_collection_name"`
	FileMetadataCollectionName string `mapstructure:"file_metadata_collection_name" yaml:"file_metadata_collection_name"`
	LogsCollectionName         string `mapstructure:"logs_collection_name" yaml:"logs_collection_name"`
}

// ChunkSettings controls the chunk pipeline.
type ChunkSettings struct {
	// DefaultChunkSize is the chunk size for mid-sized files. Accepts
	// human-readable values like "1MB".
	DefaultChunkSize bytesize.ByteSize `mapstructure:"default_chunk_size_in_bytes" yaml:"default_chunk_size_in_bytes"`

	// MinChunkSize is the single-chunk threshold.
	MinChunkSize bytesize.ByteSize `mapstructure:"min_chunk_size_in_bytes" yaml:"min_chunk_size_in_bytes"`

	// MaxChunkSize caps the scaled chunk size for large files.
	MaxChunkSize bytesize.ByteSize `mapstructure:"max_chunk_size_in_bytes" yaml:"max_chunk_size_in_bytes"`

	// CompressionEnabled gzips chunk blobs when it shrinks them.
	CompressionEnabled bool `mapstructure:"compression_enabled" yaml:"compression_enabled"`

	// CompressionLevel is the gzip level, 0-9.
	CompressionLevel int `mapstructure:"compression_level" validate:"gte=0,lte=9" yaml:"compression_level"`

	// ChecksumAlgorithm is fixed to SHA256.
	ChecksumAlgorithm string `mapstructure:"checksum_algorithm" validate:"omitempty,eq=SHA256" yaml:"checksum_algorithm"`

	// Parallelism bounds concurrent chunk processing per upload.
	Parallelism int `mapstructure:"parallelism" validate:"gte=0" yaml:"parallelism"`

	// RollbackOnFailure removes already-stored chunks when an upload
	// aborts.
	RollbackOnFailure bool `mapstructure:"rollback_on_failure" yaml:"rollback_on_failure"`
}

// StorageProviderSettings configures the storage backends.
type StorageProviderSettings struct {
	// FileSystemPath is the root directory of the filesystem provider.
	// Empty disables the provider.
	FileSystemPath string `mapstructure:"file_system_path" yaml:"file_system_path"`

	// MongoDBPath enables the GridFS provider with the given bucket name.
	MongoDBPath string `mapstructure:"mongodb_path" yaml:"mongodb_path"`

	// BadgerPath enables the embedded Badger provider at the given
	// directory.
	BadgerPath string `mapstructure:"badger_path" yaml:"badger_path"`

	// S3 configures the S3 provider. A bucket name enables it.
	S3 S3Settings `mapstructure:"s3" yaml:"s3"`

	// DistributionStrategy selects chunk placement across providers:
	// "roundrobin" (default) or "first".
	DistributionStrategy string `mapstructure:"distribution_strategy" yaml:"distribution_strategy"`

	// OperationTimeout wraps every provider call. Zero disables the
	// per-operation timeout.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// S3Settings configures the S3 provider.
type S3Settings struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// GetDefaultConfig returns the built-in defaults: in-memory metadata and
// cache, a filesystem provider under the working directory, 1 MiB default
// chunks with compression.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		DatabaseSettings: DatabaseSettings{
			DatabaseName:               "chunkstore",
			ChunkCollectionName:        "chunks",
			FileMetadataCollectionName: "files",
			LogsCollectionName:         "logs",
		},
		ChunkSettings: ChunkSettings{
			DefaultChunkSize:   bytesize.ByteSize(1024 * 1024),
			MinChunkSize:       bytesize.ByteSize(256 * 1024),
			MaxChunkSize:       bytesize.ByteSize(16 * 1024 * 1024),
			CompressionEnabled: true,
			CompressionLevel:   6,
			ChecksumAlgorithm:  "SHA256",
			Parallelism:        4,
			RollbackOnFailure:  true,
		},
		StorageProviderSettings: StorageProviderSettings{
			FileSystemPath:       "./chunks",
			DistributionStrategy: "roundrobin",
			OperationTimeout:     30 * time.Second,
		},
		CacheTTL:             5 * time.Minute,
		SlowCommandThreshold: time.Second,
	}
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath skips the file and uses environment plus defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CHUNKSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints plus the chunk sizing ordering
// min <= default <= max.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	cs := cfg.ChunkSettings
	if cs.MinChunkSize == 0 || cs.DefaultChunkSize == 0 || cs.MaxChunkSize == 0 {
		return fmt.Errorf("chunk sizes must be positive")
	}
	if cs.MinChunkSize > cs.DefaultChunkSize || cs.DefaultChunkSize > cs.MaxChunkSize {
		return fmt.Errorf("chunk sizes must satisfy min <= default <= max, got %s <= %s <= %s",
			cs.MinChunkSize, cs.DefaultChunkSize, cs.MaxChunkSize)
	}
	return nil
}

// SaveConfig writes the configuration to path in YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// configDecodeHooks combines the custom decode hooks: ByteSize and
// time.Duration from human-readable strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can say "1MB" as well as 1048576.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
