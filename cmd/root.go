package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/logging"
	"github.com/msalah0e/conceptmap/internal/session"
	"github.com/msalah0e/conceptmap/internal/source"
	"github.com/msalah0e/conceptmap/internal/state"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	mapsFS fs.FS
	cfg    *config.Config

	sourceDir string
	sourceURL string
	verbose   bool
)

// SetMapsFS sets the embedded filesystem holding the demo maps.
func SetMapsFS(fsys fs.FS) {
	mapsFS = fsys
}

var rootCmd = &cobra.Command{
	Use:   "conceptmap",
	Short: "conceptmap — explore how curriculum concepts relate",
	Long: ui.Brand.Sprint(ui.Glyph+" conceptmap") + " — force-directed concept maps in the terminal and the browser\n" +
		ui.Subtle.Sprint("Lay out, render, search and explore typed concept graphs"),
	Version:       version + " " + ui.Glyph,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if !cfg.UI.Color {
			color.NoColor = true
		}
		return nil
	},
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig() error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	switch {
	case sourceDir != "":
		c.Source.Kind = "dir"
		c.Source.Dir = sourceDir
	case sourceURL != "":
		c.Source.Kind = "http"
		c.Source.BaseURL = sourceURL
	}
	if verbose {
		c.Log.Level = "debug"
	}
	cfg = c
	return nil
}

func init() {
	rootCmd.SetVersionTemplate("conceptmap {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&sourceDir, "dir", "", "Read maps from a directory of <key>.json files")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", "", "Read maps from a REST endpoint")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.MarkFlagsMutuallyExclusive("dir", "url")

	rootCmd.AddCommand(
		layoutCmd(),
		renderCmd(),
		searchCmd(),
		showCmd(),
		viewCmd(),
		serveCmd(),
		mapsCmd(),
		configCmd(),
		historyCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Bad.Fprintf(os.Stderr, "conceptmap: %v\n", err)
	}
	return err
}

// mapKey picks the map named on the command line, then the map last opened
// from the current source, then the configured default.
func mapKey(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if key, ok := state.LastMap(state.SourceID(cfg.Source)); ok {
		return key, nil
	}
	if cfg.Source.Default == "" {
		return "", fmt.Errorf("no map given and no default configured (source.default)")
	}
	return cfg.Source.Default, nil
}

// rememberMap records key as the last map opened from the current source.
func rememberMap(logger *zap.Logger, key string) {
	if err := state.Record(state.SourceID(cfg.Source), key); err != nil {
		logger.Warn("could not save state", zap.String("key", key), zap.Error(err))
	}
}

func openSource(logger *zap.Logger) (source.Source, error) {
	return source.New(cfg.Source, mapsFS, logger)
}

func newSession(logger *zap.Logger, width, height float64, observer func(layout.IterationStats)) *session.Session {
	return session.New(session.Options{
		Layout:   cfg.Layout,
		Camera:   cfg.Camera,
		Styles:   cfg.Styles,
		Width:    width,
		Height:   height,
		Logger:   logger,
		Observer: observer,
	})
}

// loadMap fetches key into sess and lays it out.
func loadMap(ctx context.Context, src source.Source, sess *session.Session, key string) (graph.LoadReport, layout.Result, error) {
	snap, err := src.Fetch(ctx, key)
	if err != nil {
		return graph.LoadReport{}, layout.Result{}, fmt.Errorf("fetch %s: %w", key, err)
	}
	report := sess.Load(key, snap)
	res, err := sess.Layout(ctx)
	if err != nil {
		return report, res, fmt.Errorf("layout %s: %w", key, err)
	}
	return report, res, nil
}

// fetchModel loads key into a bare model, without a layout pass.
func fetchModel(ctx context.Context, src source.Source, key string, logger *zap.Logger) (*graph.Model, error) {
	snap, err := src.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	m := graph.New(logger)
	m.LoadSnapshot(snap)
	return m, nil
}

// mapKeyCompletion completes map keys from the configured source.
func mapKeyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := loadConfig(); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	src, err := openSource(zap.NewNop())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	keys, err := src.Keys(context.Background())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// cliLogger logs to stderr only with --verbose; otherwise only to a
// configured log file, so command output stays clean.
func cliLogger() (*zap.Logger, error) {
	if verbose {
		return logging.New(cfg.Log)
	}
	return logging.Quiet(cfg.Log)
}

// printReport warns about anything dropped while loading a map.
func printReport(w io.Writer, r graph.LoadReport) {
	for _, id := range r.DroppedNodes {
		fmt.Fprintf(w, "  %s node %q dropped\n", ui.WarnIcon(), id)
	}
	for _, d := range r.DroppedEdges {
		fmt.Fprintf(w, "  %s edge %s dropped: %s\n", ui.WarnIcon(), d.Edge.ID, d.Reason)
	}
}
