package parallel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func ok(out string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return out, nil }
}

func TestRun_Success(t *testing.T) {
	tasks := []Task{
		{Name: "algebra", Fn: ok("16 nodes")},
		{Name: "geometry", Fn: ok("13 nodes")},
		{Name: "biology", Fn: ok("9 nodes")},
	}

	results := Run(context.Background(), io.Discard, tasks, 4)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.OK || r.Err != nil {
			t.Errorf("task %s should be OK", r.Name)
		}
	}
	if Failed(results) != 0 {
		t.Errorf("expected no failures, got %d", Failed(results))
	}
}

func TestRun_WithErrors(t *testing.T) {
	tasks := []Task{
		{Name: "ok-task", Fn: ok("")},
		{Name: "fail-task", Fn: func(context.Context) (string, error) {
			return "line1\nline2", fmt.Errorf("simulated failure")
		}},
	}

	var out strings.Builder
	results := Run(context.Background(), &out, tasks, 4)

	// Results should be in order
	if !results[0].OK {
		t.Error("first task should be OK")
	}
	if results[1].OK || results[1].Err == nil {
		t.Error("second task should have failed")
	}
	if results[1].Output != "line1\nline2" {
		t.Errorf("expected output to be kept, got %q", results[1].Output)
	}
	if Failed(results) != 1 {
		t.Errorf("expected 1 failure, got %d", Failed(results))
	}
	if !strings.Contains(out.String(), "simulated failure") || !strings.Contains(out.String(), "line2") {
		t.Errorf("expected failure and output in progress log:\n%s", out.String())
	}
}

func TestRun_Concurrency(t *testing.T) {
	var maxConcurrent int64
	var current int64

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			Name: fmt.Sprintf("map-%d", i),
			Fn: func(context.Context) (string, error) {
				c := atomic.AddInt64(&current, 1)
				for {
					old := atomic.LoadInt64(&maxConcurrent)
					if c <= old || atomic.CompareAndSwapInt64(&maxConcurrent, old, c) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return "", nil
			},
		}
	}

	results := Run(context.Background(), nil, tasks, 2)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if maxConcurrent > 2 {
		t.Errorf("max concurrent should be <= 2, got %d", maxConcurrent)
	}
}

func TestRun_DefaultConcurrency(t *testing.T) {
	results := Run(context.Background(), nil, []Task{{Name: "test", Fn: ok("")}}, 0)
	if len(results) != 1 || !results[0].OK {
		t.Fatalf("expected 1 OK result, got %+v", results)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	results := Run(ctx, nil, []Task{{Name: "late", Fn: func(context.Context) (string, error) {
		ran.Store(true)
		return "", nil
	}}}, 1)
	if ran.Load() {
		t.Error("task should not start after cancel")
	}
	if results[0].OK {
		t.Error("cancelled task should not be OK")
	}
}

func TestTruncateLines(t *testing.T) {
	lines := truncateLines("a\nb\nc\nd", 2)
	if len(lines) != 3 || lines[2] != "... (2 more lines)" {
		t.Errorf("unexpected truncation %v", lines)
	}
}
