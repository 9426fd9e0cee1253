package scene

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// WriteSVG draws a frame as a standalone SVG document.
func WriteSVG(w io.Writer, f Frame, background string) error {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		f.Width, f.Height, f.Width, f.Height)
	fmt.Fprintf(&b, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(background))

	if f.Empty() {
		fmt.Fprintf(&b, `  <text x="%.1f" y="%.1f" fill="#888" font-family="sans-serif" font-size="14" text-anchor="middle">No concepts to show</text>`+"\n",
			f.Width/2, f.Height/2)
	}

	b.WriteString(`  <g class="edges">` + "\n")
	for _, e := range f.Edges {
		width := 1.0
		if e.Highlighted {
			width = 2.5
		}
		fmt.Fprintf(&b, `    <line id="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.1f"><title>%s</title></line>`+"\n",
			html.EscapeString(e.EdgeID), e.X1, e.Y1, e.X2, e.Y2, html.EscapeString(e.Color), width, html.EscapeString(e.Label))
	}
	b.WriteString("  </g>\n")

	highlight := f.Highlight
	if highlight == "" {
		highlight = "#FFFFFF"
	}
	b.WriteString(`  <g class="nodes" font-family="sans-serif" font-size="11">` + "\n")
	for _, n := range f.Nodes {
		stroke := ""
		if n.Selected || n.Hovered {
			stroke = fmt.Sprintf(` stroke="%s" stroke-width="2"`, html.EscapeString(highlight))
		}
		fmt.Fprintf(&b, `    <g id="%s" class="%s">`+"\n", html.EscapeString(n.NodeID), html.EscapeString(n.Category))
		fmt.Fprintf(&b, `      <circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>`+"\n",
			n.X, n.Y, n.Radius, html.EscapeString(n.Color), stroke)
		fmt.Fprintf(&b, `      <text x="%.2f" y="%.2f" fill="#ddd" text-anchor="middle">%s</text>`+"\n",
			n.X, n.Y+n.Radius+12, html.EscapeString(n.Label))
		b.WriteString("    </g>\n")
	}
	b.WriteString("  </g>\n")
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}
