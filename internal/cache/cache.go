package cache

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir returns the cache directory path.
func Dir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "conceptmap")
}

// Store is a directory of cached snapshot payloads keyed by map key.
type Store struct {
	dir string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Default returns the store under Dir().
func Default() *Store {
	return New(filepath.Join(Dir(), "maps"))
}

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

// Put stores a raw payload. The write goes through a temp file so readers
// never see a partial map.
func (s *Store) Put(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path(key))
}

// Get returns a cached payload.
func (s *Store) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Has reports whether key is cached.
func (s *Store) Has(key string) bool {
	return fileExists(s.Path(key))
}

// Keys lists cached map keys in sorted order.
func (s *Store) Keys() []string {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*.json"))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every cached map.
func (s *Store) Clear() error {
	return os.RemoveAll(s.dir)
}

// Bundle creates a tar.gz archive of the cached maps, for moving them to a
// machine without access to the source.
func (s *Store) Bundle(output string) error {
	if len(s.Keys()) == 0 {
		return fmt.Errorf("cache is empty, load a map from an http source first")
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := s.writeBundle(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeBundle writes the archive to w. The tar and gzip writers are closed
// explicitly because their final flush can fail.
func (s *Store) writeBundle(w io.Writer) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(info.Name(), ".put-") {
			return nil
		}
		rel, _ := filepath.Rel(s.dir, path)
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = rel
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "@", "_", "\\", "_", "..", "_")
	return r.Replace(s)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
