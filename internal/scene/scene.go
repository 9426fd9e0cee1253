package scene

import (
	"sort"

	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/interaction"
	"github.com/msalah0e/conceptmap/internal/viewport"
)

// NodeSprite is one node ready to draw.
type NodeSprite struct {
	NodeID   string  `json:"nodeId"`
	X        float64 `json:"screenX"`
	Y        float64 `json:"screenY"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	Hovered  bool    `json:"hovered,omitempty"`
	Selected bool    `json:"selected,omitempty"`
}

// EdgeSprite is one edge ready to draw.
type EdgeSprite struct {
	EdgeID      string  `json:"edgeId"`
	X1          float64 `json:"screenX1"`
	Y1          float64 `json:"screenY1"`
	X2          float64 `json:"screenX2"`
	Y2          float64 `json:"screenY2"`
	Color       string  `json:"color"`
	Label       string  `json:"label"`
	Relation    int     `json:"relationType"`
	Highlighted bool    `json:"highlighted,omitempty"`
}

// Frame is everything a drawing backend needs for one redraw.
type Frame struct {
	Width     float64               `json:"width"`
	Height    float64               `json:"height"`
	Zoom      float64               `json:"zoom"`
	Highlight string                `json:"highlight"`
	Nodes     []NodeSprite          `json:"nodes"`
	Edges     []EdgeSprite          `json:"edges"`
	Selection interaction.Selection `json:"selection"`
}

// Empty reports whether the frame has nothing to draw.
func (f *Frame) Empty() bool { return len(f.Nodes) == 0 }

// Build projects the model through the camera. Nodes are ordered by category
// z then insertion order, so later sprites are drawn on top.
func Build(m *graph.Model, cam *viewport.Camera, sel interaction.Selection, styles Styles) Frame {
	nodes := m.Nodes()
	edges := m.Edges()

	f := Frame{
		Width:     cam.Width,
		Height:    cam.Height,
		Zoom:      cam.Zoom,
		Highlight: styles.Highlight,
		Nodes:     make([]NodeSprite, 0, len(nodes)),
		Edges:     make([]EdgeSprite, 0, len(edges)),
		Selection: sel,
	}

	screen := make(map[string]graph.Point, len(nodes))
	for _, n := range nodes {
		screen[n.ID] = cam.WorldToScreen(n.Position)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		zi, zj := styles.Node(nodes[i].Category).Z, styles.Node(nodes[j].Category).Z
		if zi != zj {
			return zi < zj
		}
		return nodes[i].Index() < nodes[j].Index()
	})

	focus := sel.SelectedNodeID
	if sel.HoveredNodeID != "" {
		focus = sel.HoveredNodeID
	}

	for _, e := range edges {
		st := styles.Relation(e.Relation)
		a, b := screen[e.SourceID], screen[e.TargetID]
		label := e.Label
		if label == "" {
			label = st.Label
		}
		f.Edges = append(f.Edges, EdgeSprite{
			EdgeID:      e.ID,
			X1:          a.X,
			Y1:          a.Y,
			X2:          b.X,
			Y2:          b.Y,
			Color:       st.Color,
			Label:       label,
			Relation:    int(e.Relation),
			Highlighted: focus != "" && (e.SourceID == focus || e.TargetID == focus),
		})
	}

	for _, n := range nodes {
		st := styles.Node(n.Category)
		p := screen[n.ID]
		f.Nodes = append(f.Nodes, NodeSprite{
			NodeID:   n.ID,
			X:        p.X,
			Y:        p.Y,
			Radius:   st.Radius * cam.Zoom,
			Color:    st.Color,
			Label:    n.Label,
			Category: string(n.Category),
			Hovered:  n.ID == sel.HoveredNodeID,
			Selected: n.ID == sel.SelectedNodeID,
		})
	}
	return f
}

// HitTest returns the topmost node whose drawn disc contains (x, y).
func (f *Frame) HitTest(x, y float64) (string, bool) {
	for i := len(f.Nodes) - 1; i >= 0; i-- {
		s := f.Nodes[i]
		dx, dy := x-s.X, y-s.Y
		if dx*dx+dy*dy <= s.Radius*s.Radius {
			return s.NodeID, true
		}
	}
	return "", false
}

// Sprite returns the sprite for a node id.
func (f *Frame) Sprite(id string) (NodeSprite, bool) {
	for _, s := range f.Nodes {
		if s.NodeID == id {
			return s, true
		}
	}
	return NodeSprite{}, false
}

var _ interaction.HitTester = (*Frame)(nil)
