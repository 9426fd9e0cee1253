package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/msalah0e/conceptmap/internal/scene"
	"github.com/msalah0e/conceptmap/internal/session"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		format   string
		out      string
		width    float64
		height   float64
		selected string
	)

	cmd := &cobra.Command{
		Use:   "render [key]",
		Short: "Lay out a map and write it as SVG, DOT or JSON",
		Long: `Lay out a map and write the result.

Formats:
  svg     the drawn frame, as the console would show it (default)
  frame   the sprite frame as JSON
  json    the map snapshot with laid-out positions
  dot     a Graphviz graph with pinned positions

  conceptmap render algebra > algebra.svg
  conceptmap render algebra --select equations -o equations.svg
  conceptmap render geometry -f dot | neato -n -Tpng > geometry.png`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: mapKeyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case "svg", "frame", "json", "dot":
			default:
				return fmt.Errorf("unknown format %q (want svg, frame, json or dot)", format)
			}

			key, err := mapKey(args)
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
			if width <= 0 {
				width = cfg.Server.Width
			}
			if height <= 0 {
				height = cfg.Server.Height
			}

			sess := newSession(logger, width, height, nil)
			defer sess.Close()
			report, _, err := loadMap(cmd.Context(), src, sess, key)
			if err != nil {
				return err
			}
			printReport(os.Stderr, report)

			if selected != "" {
				if !sess.Select(selected) {
					return fmt.Errorf("select %s: no such node in %s", selected, key)
				}
			}

			w := io.Writer(os.Stdout)
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := writeRender(w, sess, format); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "  %s wrote %s\n", ui.StatusIcon(true), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Output format: svg, frame, json, dot")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Float64Var(&width, "width", 0, "Viewport width in pixels (default from config)")
	cmd.Flags().Float64Var(&height, "height", 0, "Viewport height in pixels (default from config)")
	cmd.Flags().StringVar(&selected, "select", "", "Render with this node selected")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{"svg", "frame", "json", "dot"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func writeRender(w io.Writer, sess *session.Session, format string) error {
	switch format {
	case "frame":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.Frame())
	case "json":
		data, err := exportSnapshot(sess)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "dot":
		_, err := io.WriteString(w, sess.Model().ExportDOT())
		return err
	}
	return scene.WriteSVG(w, sess.Frame(), cfg.UI.Background)
}

// exportSnapshot returns the laid-out map as a source payload, keeping its
// key and title.
func exportSnapshot(sess *session.Session) ([]byte, error) {
	snap := sess.Model().ExportSnapshot()
	snap.Key = sess.Key()
	snap.Title = sess.Title()
	return json.MarshalIndent(snap, "", "  ")
}
