package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/msalah0e/conceptmap/internal/cache"
	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/graph"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a source has no map for a key.
var ErrNotFound = errors.New("map not found")

// ErrInvalidKey is returned for keys that cannot name a map.
var ErrInvalidKey = errors.New("invalid map key")

// Source is a graph data source.
type Source interface {
	// Fetch returns the snapshot stored under key.
	Fetch(ctx context.Context, key string) (*graph.Snapshot, error)
	// Keys lists the available map keys.
	Keys(ctx context.Context) ([]string, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidKey checks that key is safe to use as a file name or URL segment.
func ValidKey(key string) error {
	if !keyPattern.MatchString(key) || len(key) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// New builds the source selected by cfg. embedded holds the demo maps.
func New(cfg config.SourceConfig, embedded fs.FS, logger *zap.Logger) (Source, error) {
	switch cfg.Kind {
	case "embedded", "":
		return NewFS(embedded, "maps"), nil
	case "dir":
		info, err := os.Stat(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("source dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source dir: %s is not a directory", cfg.Dir)
		}
		return Dir(cfg.Dir), nil
	case "http":
		return NewHTTP(cfg.BaseURL, WithLogger(logger), WithCache(cache.Default())), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}
