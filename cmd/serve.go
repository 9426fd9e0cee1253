package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msalah0e/conceptmap/internal/history"
	"github.com/msalah0e/conceptmap/internal/logging"
	"github.com/msalah0e/conceptmap/internal/server"
	"github.com/msalah0e/conceptmap/internal/source"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [key]",
		Short: "Serve the web console",
		Long: `Serve a browser console for exploring maps, backed by a JSON API.

The console draws the map on a canvas and forwards pointer events to the
server, which owns layout, camera and selection. With --watch and a
directory source, the current map reloads whenever its file changes.

  conceptmap serve
  conceptmap serve algebra --addr :9000
  conceptmap serve --dir ./maps curriculum --watch`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: mapKeyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if watch && cfg.Source.Kind != "dir" {
				return errors.New("--watch needs a directory source (--dir or source.kind = \"dir\")")
			}

			logger, err := logging.New(cfg.Log)
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

			sess := newSession(logger, cfg.Server.Width, cfg.Server.Height, nil)
			srv := server.New(sess, src, cfg.Server, cfg.UI.Background, logger)
			srv.OnLoad(func(key string) { rememberMap(logger, key) })

			rec := history.NewRecorder(256, logger)
			sess.OnSelect(rec.Visit)

			key, err := mapKey(args)
			if err == nil {
				report, err := srv.Reload(ctx, key)
				if err != nil {
					return err
				}
				printReport(os.Stderr, report)
			}

			ui.Banner("console")
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "URL"), consoleURL(cfg.Server.Addr))
			if key != "" {
				fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Map"), key)
			}
			if watch {
				fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Watching"), cfg.Source.Dir)
			}
			fmt.Println()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx)
			})
			g.Go(func() error {
				rec.Run(gctx)
				return nil
			})
			if watch {
				g.Go(func() error {
					if err := source.Watch(gctx, cfg.Source.Dir, logger, func(changed string) {
						if changed != sess.Key() {
							return
						}
						if _, err := srv.Reload(gctx, changed); err != nil {
							logger.Warn("reload failed", zap.String("key", changed), zap.Error(err))
							return
						}
						logger.Info("map reloaded", zap.String("key", changed))
					}); err != nil {
						return err
					}
					<-gctx.Done()
					return nil
				})
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the current map when its file changes")

	return cmd
}

// consoleURL turns a listen address into something a browser can open.
func consoleURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
