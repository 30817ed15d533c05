// Package config loads runtime settings from OBSCORE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Archive drivers.
const (
	ArchiveMemory     = "memory"
	ArchiveFilesystem = "fs"
	ArchiveS3         = "s3"
)

// Config holds every runtime setting with defaults applied.
type Config struct {
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string

	ArchiveDriver      string
	ArchiveFSRoot      string
	ArchiveS3Bucket    string
	ArchiveS3Region    string
	ArchiveS3Endpoint  string
	ArchiveS3PathStyle bool

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	ObservatoryFile string

	LogLevel  string
	LogFormat string
}

// Load reads the process environment.
func Load() (Config, error) { return LoadFrom(os.LookupEnv) }

// LoadFrom reads settings through lookup, which has the os.LookupEnv signature.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup("OBSCORE_" + key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	cfg := Config{
		StorageDriver:     strings.ToLower(get("STORAGE_DRIVER", StorageMemory)),
		SQLitePath:        get("SQLITE_PATH", "obscore.db"),
		PostgresDSN:       get("POSTGRES_DSN", ""),
		ArchiveDriver:     strings.ToLower(get("ARCHIVE_DRIVER", ArchiveFilesystem)),
		ArchiveFSRoot:     get("ARCHIVE_FS_ROOT", "./archive"),
		ArchiveS3Bucket:   get("ARCHIVE_S3_BUCKET", ""),
		ArchiveS3Region:   get("ARCHIVE_S3_REGION", ""),
		ArchiveS3Endpoint: get("ARCHIVE_S3_ENDPOINT", ""),
		KafkaBrokers:      splitAndTrim(get("KAFKA_BROKERS", ""), ","),
		KafkaTopic:        get("KAFKA_TOPIC", "obscore.events"),
		HTTPAddr:          get("HTTP_ADDR", ":8080"),
		ObservatoryFile:   get("OBSERVATORY_FILE", ""),
		LogLevel:          strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(get("LOG_FORMAT", "text")),
	}
	pathStyle, err := parseBool(get("ARCHIVE_S3_PATH_STYLE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("OBSCORE_ARCHIVE_S3_PATH_STYLE: %w", err)
	}
	cfg.ArchiveS3PathStyle = pathStyle
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enumerated values and missing required settings.
func (c Config) Validate() error {
	if err := oneOf("OBSCORE_STORAGE_DRIVER", c.StorageDriver, StorageMemory, StorageSQLite, StoragePostgres); err != nil {
		return err
	}
	if err := oneOf("OBSCORE_ARCHIVE_DRIVER", c.ArchiveDriver, ArchiveMemory, ArchiveFilesystem, ArchiveS3); err != nil {
		return err
	}
	if c.ArchiveDriver == ArchiveS3 && c.ArchiveS3Bucket == "" {
		return fmt.Errorf("OBSCORE_ARCHIVE_S3_BUCKET is required for the s3 archive driver")
	}
	if err := oneOf("OBSCORE_LOG_LEVEL", c.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	return oneOf("OBSCORE_LOG_FORMAT", c.LogFormat, "text", "json")
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q (want one of %s)", name, v, strings.Join(allowed, ", "))
}

func parseBool(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
