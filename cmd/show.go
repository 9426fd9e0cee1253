package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/session"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	var mapName string

	cmd := &cobra.Command{
		Use:     "show <node-id>",
		Aliases: []string{"info"},
		Short:   "Show a concept with its relations",
		Long: `Print what the detail panel shows for one concept: its category,
description, metadata, and every relation in or out.

  conceptmap show slope
  conceptmap show triangles --map geometry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := mapKey([]string{mapName})
			if err != nil {
				return err
			}
			logger, err := cliLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			src, err := openSource(logger)
			if err != nil {
				return err
			}
			m, err := fetchModel(cmd.Context(), src, key, logger)
			if err != nil {
				return err
			}

			d, ok := session.DetailFor(m, args[0])
			if !ok {
				if hits := m.Search(args[0]); len(hits) > 0 {
					fmt.Printf("  %s no concept with id %q. Did you mean:\n\n", ui.WarnIcon(), args[0])
					printResults(hits[:min(len(hits), 5)])
				}
				return fmt.Errorf("show %s: %w", args[0], graph.ErrNodeNotFound)
			}
			printDetail(d)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mapName, "map", "m", "", "Map to read (default from config)")
	_ = cmd.RegisterFlagCompletionFunc("map", mapKeyCompletion)

	return cmd
}

func printDetail(d session.Detail) {
	swatch := ui.Swatch(cfg.Styles.Node(d.Node.Category).Color)
	fmt.Printf("  %s %s  %s\n", swatch, ui.Brand.Sprint(d.Node.Label), ui.Subtle.Sprint(d.Node.ID))
	fmt.Printf("    %s\n", ui.Subtle.Sprint(d.Node.Category))
	if d.Node.Description != "" {
		fmt.Printf("\n    %s\n", d.Node.Description)
	}
	if len(d.Node.Metadata) > 0 {
		fmt.Println()
		for _, k := range slices.Sorted(maps.Keys(d.Node.Metadata)) {
			fmt.Printf("    %s  %s\n", ui.Info.Sprintf("%-14s", k), d.Node.Metadata[k])
		}
	}

	fmt.Println()
	if len(d.Relations) == 0 {
		fmt.Println(ui.Subtle.Sprint("    no relations"))
		return
	}
	for _, r := range d.Relations {
		arrow := "→"
		if !r.Outgoing {
			arrow = "←"
		}
		st := cfg.Styles.Relation(graph.RelationType(r.Type))
		fmt.Printf("    %s %s %s %s\n",
			ui.Swatch(st.Color), arrow, ui.Info.Sprintf("%-14s", r.Label), r.Other.Label)
	}
	fmt.Printf("\n  %d neighbours · %d relations\n", len(d.Neighbors), len(d.Relations))
}
