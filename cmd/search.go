package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		mapName string
		limit   int
	)

	cmd := &cobra.Command{
		Use:     "search <query>",
		Aliases: []string{"s", "find"},
		Short:   "Search concepts by label, category, description or metadata",
		Long: `Search the concepts of a map. Exact label or id matches rank first,
then partial label matches, then category, then description and metadata.

  conceptmap search equation
  conceptmap search skill --map geometry`,
		Args: cobra.MinimumNArgs(1),
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

			query := strings.Join(args, " ")
			results := m.Search(query)
			if len(results) == 0 {
				fmt.Printf("  No concepts matching %q in %s\n", query, key)
				return nil
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			ui.Banner(fmt.Sprintf("%q in %s", query, key))
			printResults(results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mapName, "map", "m", "", "Map to search (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many results")
	_ = cmd.RegisterFlagCompletionFunc("map", mapKeyCompletion)

	return cmd
}

func printResults(results []graph.SearchResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(r.Score),
			r.Node.ID,
			r.Node.Label,
			string(r.Node.Category),
		})
	}
	ui.Table([]string{"SCORE", "ID", "LABEL", "CATEGORY"}, rows)
}
