package config

import (
	"strings"
	"testing"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageMemory || cfg.SQLitePath != "obscore.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg)
	}
	if cfg.ArchiveDriver != ArchiveFilesystem || cfg.ArchiveFSRoot != "./archive" {
		t.Fatalf("unexpected archive defaults %+v", cfg)
	}
	if cfg.KafkaTopic != "obscore.events" || cfg.KafkaBrokers != nil {
		t.Fatalf("unexpected kafka defaults %+v", cfg)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected ambient defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"OBSCORE_STORAGE_DRIVER":        "SQLite",
		"OBSCORE_SQLITE_PATH":           "/tmp/x.db",
		"OBSCORE_ARCHIVE_DRIVER":        "s3",
		"OBSCORE_ARCHIVE_S3_BUCKET":     "reports",
		"OBSCORE_ARCHIVE_S3_PATH_STYLE": "true",
		"OBSCORE_KAFKA_BROKERS":         " a:9092, ,b:9092 ",
		"OBSCORE_LOG_FORMAT":            "json",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageSQLite || cfg.SQLitePath != "/tmp/x.db" {
		t.Fatalf("unexpected storage %+v", cfg)
	}
	if cfg.ArchiveDriver != ArchiveS3 || cfg.ArchiveS3Bucket != "reports" || !cfg.ArchiveS3PathStyle {
		t.Fatalf("unexpected archive %+v", cfg)
	}
	if strings.Join(cfg.KafkaBrokers, "|") != "a:9092|b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("unexpected format %s", cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"storage":    {"OBSCORE_STORAGE_DRIVER": "mongo"},
		"archive":    {"OBSCORE_ARCHIVE_DRIVER": "tape"},
		"s3 bucket":  {"OBSCORE_ARCHIVE_DRIVER": "s3"},
		"path style": {"OBSCORE_ARCHIVE_S3_PATH_STYLE": "sometimes"},
		"log level":  {"OBSCORE_LOG_LEVEL": "trace"},
		"log format": {"OBSCORE_LOG_FORMAT": "xml"},
	}
	for name, values := range cases {
		if _, err := LoadFrom(env(values)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
