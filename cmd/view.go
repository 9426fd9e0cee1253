package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msalah0e/conceptmap/internal/history"
	"github.com/msalah0e/conceptmap/internal/logging"
	"github.com/msalah0e/conceptmap/internal/tui"
	"github.com/spf13/cobra"
)

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "view [key]",
		Aliases: []string{"ui", "tui"},
		Short:   "Explore a map in the terminal",
		Long: `Open a map in a full-screen terminal view.

Hover and click concepts with the mouse, drag to pan, scroll to zoom.
Press / to search, ? for all keys, q to quit. Selected concepts are
added to the history (see conceptmap history).

  conceptmap view
  conceptmap view geometry
  conceptmap view --dir ./maps curriculum`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: mapKeyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := mapKey(args)
			if err != nil {
				return err
			}
			// The view owns the terminal, so logs only go to a file.
			logger, err := logging.Quiet(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			src, err := openSource(logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			snap, err := src.Fetch(ctx, key)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			sess := newSession(logger, cfg.Server.Width, cfg.Server.Height, nil)
			defer sess.Close()
			report := sess.Load(key, snap)
			rememberMap(logger, key)

			rec := history.NewRecorder(64, logger)
			sess.OnSelect(rec.Visit)
			recCtx, stopRec := context.WithCancel(context.Background())
			go rec.Run(recCtx)
			defer func() {
				stopRec()
				rec.Wait()
			}()

			// The first window size starts the layout pass.
			if err := tui.Run(ctx, sess); err != nil {
				return err
			}
			printReport(os.Stderr, report)
			return nil
		},
	}

	return cmd
}
