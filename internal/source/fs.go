package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/msalah0e/conceptmap/internal/graph"
)

// FS serves `<key>.json` files from a directory of an fs.FS.
type FS struct {
	fsys fs.FS
	dir  string
}

// NewFS returns a source reading dir inside fsys.
func NewFS(fsys fs.FS, dir string) *FS {
	return &FS{fsys: fsys, dir: dir}
}

// Dir returns a source over a directory on disk.
func Dir(dir string) *FS {
	return NewFS(os.DirFS(dir), ".")
}

// Fetch reads and decodes one map.
func (s *FS) Fetch(ctx context.Context, key string) (*graph.Snapshot, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fsys.Open(path.Join(s.dir, key+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open map %s: %w", key, err)
	}
	defer f.Close()

	snap, err := graph.DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", key, err)
	}
	if snap.Key == "" {
		snap.Key = key
	}
	return snap, nil
}

// Keys lists the `.json` files of the directory.
func (s *FS) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if ValidKey(key) != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
