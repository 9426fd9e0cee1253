package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/msalah0e/conceptmap/internal/history"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		count int
		top   bool
		query string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the concepts you have explored",
		Long: `Show concepts selected in the terminal view and the web console,
newest first.

  conceptmap history
  conceptmap history -n 50 --search slope
  conceptmap history --top
  conceptmap history clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top {
				s, err := history.Summarize(count)
				if err != nil {
					return err
				}
				if s.Visits == 0 {
					fmt.Println("  No history yet")
					return nil
				}
				ui.Banner("most explored")
				rows := make([][]string, 0, len(s.Top))
				for _, c := range s.Top {
					rows = append(rows, []string{strconv.Itoa(c.Visits), c.Map, c.NodeID, c.Label, ago(c.Last)})
				}
				ui.Table([]string{"VISITS", "MAP", "ID", "LABEL", "LAST"}, rows)
				fmt.Printf("\n  %d visits across %d maps\n", s.Visits, s.Maps)
				return nil
			}

			var (
				entries []history.Entry
				err     error
			)
			if query != "" {
				entries, err = history.Search(query, count)
			} else {
				entries, err = history.Read(count)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("  No history yet")
				return nil
			}

			ui.Banner("history")
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{ago(e.Timestamp), e.Map, e.NodeID, e.Label, e.Category})
			}
			ui.Table([]string{"WHEN", "MAP", "ID", "LABEL", "CATEGORY"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "limit", "n", 20, "Show at most this many entries")
	cmd.Flags().BoolVar(&top, "top", false, "Rank concepts by how often they were opened")
	cmd.Flags().StringVarP(&query, "search", "s", "", "Only entries matching this text")
	cmd.MarkFlagsMutuallyExclusive("top", "search")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := history.Clear(); err != nil {
				return err
			}
			fmt.Printf("  %s history cleared\n", ui.StatusIcon(true))
			return nil
		},
	})

	return cmd
}

// ago renders a timestamp relative to now, falling back to a date after a week.
func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "min") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
	return t.Local().Format("2006-01-02")
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
