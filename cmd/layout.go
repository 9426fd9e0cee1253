package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/parallel"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

// traceRows caps how many iterations a trace prints.
const traceRows = 16

func layoutCmd() *cobra.Command {
	var (
		all         bool
		outDir      string
		concurrency int
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "layout [key...]",
		Short: "Run layout passes and report convergence",
		Long: `Lay out one or more maps and report how each pass ended.

Passes for different maps run concurrently. With --out, each laid-out map is
written as <key>.json with its positions filled in. With --trace, the
largest per-iteration node movement is charted after each pass.

  conceptmap layout                 # Lay out the default map
  conceptmap layout algebra geometry
  conceptmap layout --all --out ./laid-out
  conceptmap layout geometry --trace`,
		ValidArgsFunction: mapKeyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cliLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			src, err := openSource(logger)
			if err != nil {
				return err
			}

			keys := args
			switch {
			case all:
				if keys, err = src.Keys(cmd.Context()); err != nil {
					return fmt.Errorf("list maps: %w", err)
				}
			case len(keys) == 0:
				key, err := mapKey(nil)
				if err != nil {
					return err
				}
				keys = []string{key}
			}
			if len(keys) == 0 {
				fmt.Println("  No maps found")
				return nil
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}

			ui.Banner("layout")

			traces := make([][]layout.IterationStats, len(keys))
			tasks := make([]parallel.Task, 0, len(keys))
			for i, key := range keys {
				var observer func(layout.IterationStats)
				if trace {
					observer = func(st layout.IterationStats) { traces[i] = append(traces[i], st) }
				}
				tasks = append(tasks, parallel.Task{
					Name: key,
					Fn: func(ctx context.Context) (string, error) {
						sess := newSession(logger, cfg.Server.Width, cfg.Server.Height, observer)
						report, res, err := loadMap(ctx, src, sess, key)
						if err != nil {
							return "", err
						}

						var b strings.Builder
						state := "converged"
						if !res.Converged {
							state = "stopped at cap"
						}
						fmt.Fprintf(&b, "%d nodes, %d edges, %s after %d iterations",
							report.Nodes, report.Edges, state, res.Iterations)
						if n := len(report.DroppedEdges) + len(report.DroppedNodes); n > 0 {
							fmt.Fprintf(&b, ", %d dropped", n)
						}

						if outDir != "" {
							data, err := exportSnapshot(sess)
							if err != nil {
								return b.String(), err
							}
							if err := os.WriteFile(filepath.Join(outDir, key+".json"), data, 0o644); err != nil {
								return b.String(), err
							}
						}
						return b.String(), nil
					},
				})
			}

			results := parallel.Run(cmd.Context(), os.Stdout, tasks, concurrency)
			if trace {
				for i, key := range keys {
					printTrace(os.Stdout, key, traces[i])
				}
			}

			fmt.Println()
			failed := parallel.Failed(results)
			fmt.Printf("  %d laid out", len(results)-failed)
			if failed > 0 {
				fmt.Printf(" · %s", ui.Bad.Sprintf("%d failed", failed))
			}
			if outDir != "" {
				fmt.Printf(" · written to %s", outDir)
			}
			fmt.Println()

			if failed > 0 {
				return fmt.Errorf("%d of %d layouts failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Lay out every map the source lists")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write laid-out maps to this directory")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 4, "Maps to lay out concurrently")
	cmd.Flags().BoolVar(&trace, "trace", false, "Chart node movement per iteration")

	return cmd
}

// printTrace charts the max displacement of sampled iterations against the
// largest one. The last iteration is always shown.
func printTrace(w io.Writer, key string, stats []layout.IterationStats) {
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s\n", ui.Brand.Sprint(key))

	peak := 0.0
	for _, st := range stats {
		peak = max(peak, st.MaxDisplacement)
	}
	step := max(1, (len(stats)+traceRows-1)/traceRows)
	for i := 0; i < len(stats); i++ {
		if i%step != 0 && i != len(stats)-1 {
			continue
		}
		st := stats[i]
		frac := 0.0
		if peak > 0 {
			frac = st.MaxDisplacement / peak
		}
		fmt.Fprintf(w, "    %4d  %s  max %8.3f  total %9.2f\n",
			st.Iteration, ui.Bar(frac, 24), st.MaxDisplacement, st.TotalDisplacement)
	}
}
