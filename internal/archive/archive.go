// Package archive stores rollup reports and other JSON documents in the
// configured object backend.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"obscore/internal/archive/core"
	fsstore "obscore/internal/infra/archive/fs"
	memorystore "obscore/internal/infra/archive/memory"
	s3store "obscore/internal/infra/archive/s3"
)

type (
	// Driver identifies an archive backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is the archive backend interface.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = s3store.Config
)

// Archive drivers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrExists is returned when writing to a key that is already stored.
	ErrExists = core.ErrExists
	// ErrNotFound is returned when a key is not stored.
	ErrNotFound = core.ErrNotFound
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the configured backend; the filesystem driver is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		s, err := fsstore.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverS3:
		s, err := s3store.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

// NewMemory returns an in-process archive.
func NewMemory() Store { return memorystore.New() }

// RollupKey returns a fresh key under rollups/<program>/.
func RollupKey(programID string) string {
	return fmt.Sprintf("rollups/%s/%s.json", strings.ReplaceAll(programID, "/", "_"), uuid.NewString())
}

// PutJSON encodes v as indented JSON and stores it at key.
func PutJSON(ctx context.Context, store Store, key string, v any, metadata map[string]string) (Info, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, bytes.NewReader(data), PutOptions{ContentType: "application/json", Metadata: metadata})
}

// GetJSON decodes the object at key into v.
func GetJSON(ctx context.Context, store Store, key string, v any) (Info, error) {
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Info{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return info, nil
}
