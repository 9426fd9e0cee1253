package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/graph"
	"go.uber.org/zap"
)

// Entry is one selected concept.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Map       string    `json:"map"`
	NodeID    string    `json:"node"`
	Label     string    `json:"label,omitempty"`
	Category  string    `json:"category,omitempty"`
}

// Concept is a visited node with its visit count.
type Concept struct {
	Map    string
	NodeID string
	Label  string
	Visits int
	Last   time.Time
}

// Summary aggregates the whole log.
type Summary struct {
	Visits    int
	Maps      int
	LastVisit time.Time
	Top       []Concept
}

// Path returns the history file path.
func Path() string {
	return filepath.Join(config.ConfigDir(), "history.jsonl")
}

// Record appends an entry. A zero timestamp is set to now.
func Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns up to count entries, newest first. count <= 0 returns all.
// Lines that fail to parse are skipped.
func Read(count int) ([]Entry, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(entries)
	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search returns up to count entries whose map, node id, label or category
// contains query, ignoring case. Newest first.
func Search(query string, count int) ([]Entry, error) {
	all, err := Read(0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		hay := strings.ToLower(strings.Join([]string{e.Map, e.NodeID, e.Label, e.Category}, "\x00"))
		if strings.Contains(hay, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

// Clear removes the log. Clearing an empty history is not an error.
func Clear() error {
	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Summarize counts visits per concept and keeps the top n (all when n <= 0),
// most visited first, ties broken by the most recent visit.
func Summarize(n int) (*Summary, error) {
	entries, err := Read(0)
	if err != nil {
		return nil, err
	}

	s := &Summary{Visits: len(entries)}
	maps := make(map[string]struct{})
	byNode := make(map[[2]string]*Concept)
	for _, e := range entries {
		maps[e.Map] = struct{}{}
		if e.Timestamp.After(s.LastVisit) {
			s.LastVisit = e.Timestamp
		}
		k := [2]string{e.Map, e.NodeID}
		c, ok := byNode[k]
		if !ok {
			c = &Concept{Map: e.Map, NodeID: e.NodeID, Label: e.Label}
			byNode[k] = c
		}
		c.Visits++
		if e.Timestamp.After(c.Last) {
			c.Last = e.Timestamp
			c.Label = e.Label
		}
	}
	s.Maps = len(maps)

	for _, c := range byNode {
		s.Top = append(s.Top, *c)
	}
	slices.SortFunc(s.Top, func(a, b Concept) int {
		if a.Visits != b.Visits {
			return b.Visits - a.Visits
		}
		if c := b.Last.Compare(a.Last); c != 0 {
			return c
		}
		return strings.Compare(a.Map+"/"+a.NodeID, b.Map+"/"+b.NodeID)
	})
	if n > 0 && len(s.Top) > n {
		s.Top = s.Top[:n]
	}
	return s, nil
}

// Recorder writes entries from a background goroutine so that callers
// holding locks never wait on the disk. Entries beyond the buffer are dropped.
type Recorder struct {
	entries chan Entry
	done    chan struct{}
	logger  *zap.Logger
}

// NewRecorder creates a recorder buffering up to size entries.
func NewRecorder(size int, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		entries: make(chan Entry, max(size, 1)),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Visit queues a selection. Its signature matches session.OnSelect.
func (r *Recorder) Visit(key string, n graph.Node) {
	e := Entry{
		Timestamp: time.Now(),
		Map:       key,
		NodeID:    n.ID,
		Label:     n.Label,
		Category:  string(n.Category),
	}
	select {
	case r.entries <- e:
	default:
		r.logger.Debug("history entry dropped", zap.String("node", n.ID))
	}
}

// Run writes queued entries until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() { <-r.done }

func (r *Recorder) write(e Entry) {
	if err := Record(e); err != nil {
		r.logger.Warn("history write failed", zap.String("node", e.NodeID), zap.Error(err))
	}
}
