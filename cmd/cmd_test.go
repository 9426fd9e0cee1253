package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/source"
	"go.uber.org/zap"
)

const pathJSON = `{
  "key": "path",
  "title": "Path",
  "nodes": [
    {"id": "a", "label": "Numbers", "category": "core-concept"},
    {"id": "b", "label": "Fractions", "category": "concept"},
    {"id": "c", "label": "Decimals", "category": "skill"}
  ],
  "edges": [
    {"id": "ab", "source": "a", "target": "b", "relationType": 1},
    {"id": "bc", "source": "b", "target": "c", "relationType": 2}
  ]
}`

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	mapsFS = fstest.MapFS{"maps/path.json": {Data: []byte(pathJSON)}}
	cfg = config.Default()
	cfg.Source.Default = "path"
}

func TestConsoleURL(t *testing.T) {
	tests := map[string]string{
		":8420":          "http://localhost:8420",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := consoleURL(addr); got != want {
			t.Errorf("consoleURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestMapKey(t *testing.T) {
	setup(t)

	if key, err := mapKey(nil); err != nil || key != "path" {
		t.Errorf("mapKey(nil) = %q, %v", key, err)
	}
	if key, err := mapKey([]string{"other"}); err != nil || key != "other" {
		t.Errorf("mapKey(other) = %q, %v", key, err)
	}
	if key, err := mapKey([]string{""}); err != nil || key != "path" {
		t.Errorf("empty flag should fall back to the default, got %q, %v", key, err)
	}

	cfg.Source.Default = ""
	if _, err := mapKey(nil); err == nil {
		t.Error("expected an error without a default map")
	}
}

func TestMapKeyRemembersLastMap(t *testing.T) {
	setup(t)

	rememberMap(zap.NewNop(), "geometry")
	if key, err := mapKey(nil); err != nil || key != "geometry" {
		t.Errorf("expected the last opened map, got %q, %v", key, err)
	}
	if key, _ := mapKey([]string{"algebra"}); key != "algebra" {
		t.Errorf("an explicit key should win, got %q", key)
	}

	// Memory is per source.
	cfg.Source.Kind = "dir"
	cfg.Source.Dir = t.TempDir()
	if key, _ := mapKey(nil); key != "path" {
		t.Errorf("expected the default for a new source, got %q", key)
	}
}

func TestAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-time.Minute - time.Second), "1 min ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-49 * time.Hour), "2 days ago"},
	}
	for _, tt := range tests {
		if got := ago(tt.t); got != tt.want {
			t.Errorf("ago(%v) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
	old := time.Date(2020, 5, 4, 12, 0, 0, 0, time.Local)
	if got := ago(old); got != "2020-05-04" {
		t.Errorf("expected a date for old entries, got %q", got)
	}
}

func TestLoadMapAndRender(t *testing.T) {
	setup(t)
	src, err := openSource(zap.NewNop())
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}

	sess := newSession(zap.NewNop(), 640, 480, nil)
	report, res, err := loadMap(context.Background(), src, sess, "path")
	if err != nil {
		t.Fatalf("loadMap: %v", err)
	}
	if report.Nodes != 3 || report.Edges != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if res.Iterations == 0 {
		t.Error("expected at least one iteration")
	}

	tests := []struct {
		format string
		want   string
	}{
		{"svg", "<svg"},
		{"frame", `"screenX"`},
		{"json", `"nodes"`},
		{"dot", "graph concept_map"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeRender(&buf, sess, tt.format); err != nil {
			t.Fatalf("writeRender(%s): %v", tt.format, err)
		}
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("%s output missing %q", tt.format, tt.want)
		}
	}
}

func TestLoadMapNotFound(t *testing.T) {
	setup(t)
	src, err := openSource(zap.NewNop())
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	sess := newSession(zap.NewNop(), 640, 480, nil)
	if _, _, err := loadMap(context.Background(), src, sess, "missing"); !errors.Is(err, source.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchModel(t *testing.T) {
	setup(t)
	src, _ := openSource(zap.NewNop())
	m, err := fetchModel(context.Background(), src, "path", zap.NewNop())
	if err != nil {
		t.Fatalf("fetchModel: %v", err)
	}
	if m.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", m.Len())
	}
	if n, _ := m.Node("a"); n.Placed {
		t.Error("fetchModel must not lay out")
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, graph.LoadReport{
		DroppedNodes: []string{"dup"},
		DroppedEdges: []graph.DroppedEdge{{Edge: graph.Edge{ID: "bx"}, Reason: "unknown target"}},
	})
	out := buf.String()
	if !strings.Contains(out, `"dup"`) || !strings.Contains(out, "bx dropped: unknown target") {
		t.Errorf("unexpected report output %q", out)
	}
}

func TestLayoutCommandWritesFiles(t *testing.T) {
	setup(t)
	out := t.TempDir()

	rootCmd.SetArgs([]string{"layout", "path", "--out", out})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("layout: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "path.json"))
	if err != nil {
		t.Fatalf("expected laid-out file: %v", err)
	}
	snap, err := graph.DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(snap.Nodes))
	}
}

func TestPrintTrace(t *testing.T) {
	var stats []layout.IterationStats
	for i := 1; i <= 40; i++ {
		stats = append(stats, layout.IterationStats{Iteration: i, MaxDisplacement: 40 / float64(i)})
	}

	var buf bytes.Buffer
	printTrace(&buf, "path", stats)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header plus every third iteration (1, 4, ..., 40).
	if len(lines) != 1+14 {
		t.Fatalf("expected 15 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "path") {
		t.Errorf("expected the key as header, got %q", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "  40  ") {
		t.Errorf("expected the last iteration, got %q", lines[len(lines)-1])
	}

	buf.Reset()
	printTrace(&buf, "empty", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output without stats, got %q", buf.String())
	}
}
