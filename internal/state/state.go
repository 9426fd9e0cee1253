package state

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/conceptmap/internal/config"
)

// Opened tracks the last map opened from one source.
type Opened struct {
	Key      string    `toml:"key"`
	Opens    int       `toml:"opens"`
	OpenedAt time.Time `toml:"opened_at"`
}

// State maps a source identity to its last opened map.
type State struct {
	Sources map[string]Opened `toml:"sources"`
}

func statePath() string {
	return filepath.Join(config.ConfigDir(), "state.toml")
}

// SourceID identifies a source by kind and location, e.g. "dir:/srv/maps".
// The embedded demo maps have no location.
func SourceID(src config.SourceConfig) string {
	switch src.Kind {
	case "dir":
		if abs, err := filepath.Abs(src.Dir); err == nil {
			return "dir:" + abs
		}
		return "dir:" + src.Dir
	case "http":
		return "http:" + src.BaseURL
	}
	return src.Kind
}

// Load reads the state file, returning empty state if it doesn't exist.
func Load() *State {
	s := &State{Sources: make(map[string]Opened)}
	data, err := os.ReadFile(statePath())
	if err != nil {
		return s
	}
	_ = toml.Unmarshal(data, s)
	if s.Sources == nil {
		s.Sources = make(map[string]Opened)
	}
	return s
}

// Save writes the state file to disk.
func Save(s *State) error {
	path := statePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// Record notes that key was opened from source. Reopening the same key bumps
// its count; a different key starts over.
func Record(source, key string) error {
	s := Load()
	prev := s.Sources[source]
	opens := 1
	if prev.Key == key {
		opens = prev.Opens + 1
	}
	s.Sources[source] = Opened{Key: key, Opens: opens, OpenedAt: time.Now()}
	return Save(s)
}

// LastMap returns the key last opened from source.
func LastMap(source string) (string, bool) {
	o, ok := Load().Sources[source]
	if !ok || o.Key == "" {
		return "", false
	}
	return o.Key, true
}

// Forget drops what is remembered for source.
func Forget(source string) error {
	s := Load()
	if _, ok := s.Sources[source]; !ok {
		return nil
	}
	delete(s.Sources, source)
	return Save(s)
}
