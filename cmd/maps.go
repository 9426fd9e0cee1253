package cmd

import (
	"fmt"
	"strconv"

	"github.com/msalah0e/conceptmap/internal/cache"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func mapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maps",
		Short: "List maps and manage the offline cache",
	}

	cmd.AddCommand(
		mapsListCmd(),
		mapsBundleCmd(),
		mapsClearCacheCmd(),
	)

	return cmd
}

func mapsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the maps the source provides",
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
			keys, err := src.Keys(cmd.Context())
			if err != nil {
				return fmt.Errorf("list maps: %w", err)
			}

			ui.Banner(cfg.Source.Kind + " maps")
			if len(keys) == 0 {
				fmt.Println("  No maps found")
				return nil
			}

			current, _ := mapKey(nil)
			store := cache.Default()
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				title, nodes, edges := "", "?", "?"
				if snap, err := src.Fetch(cmd.Context(), key); err == nil {
					m := graph.New(logger)
					m.LoadSnapshot(snap)
					st := m.GetStats()
					title, nodes, edges = snap.Title, strconv.Itoa(st.Nodes), strconv.Itoa(st.Edges)
				}
				marker := ""
				if key == current {
					marker = ui.Glyph
				}
				if cfg.Source.Kind == "http" && store.Has(key) {
					marker += " cached"
				}
				rows = append(rows, []string{key, title, nodes, edges, marker})
			}
			ui.Table([]string{"KEY", "TITLE", "NODES", "EDGES", ""}, rows)
			return nil
		},
	}
}

func mapsBundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <output.tar.gz>",
		Short: "Archive cached maps for an offline machine",
		Long: `Pack every map cached from an HTTP source into a tar.gz archive.
Extract it into $XDG_CACHE_HOME/conceptmap/maps on the target machine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.Default()
			if err := store.Bundle(args[0]); err != nil {
				return err
			}
			fmt.Printf("  %s %d maps bundled into %s\n", ui.StatusIcon(true), len(store.Keys()), args[0])
			return nil
		},
	}
}

func mapsClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove every cached map",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.Default()
			n := len(store.Keys())
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Printf("  %s removed %d cached maps\n", ui.StatusIcon(true), n)
			return nil
		},
	}
}
