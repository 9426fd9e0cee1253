package interaction

import (
	"github.com/msalah0e/conceptmap/internal/graph"
	"go.uber.org/zap"
)

// State is the controller's mode.
type State int

const (
	Idle State = iota
	Hovering
	Selected
)

func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Selected:
		return "selected"
	}
	return "idle"
}

// Selection is the hover and selection state read by the rest of the UI.
type Selection struct {
	HoveredNodeID  string `json:"hoveredNodeId,omitempty"`
	SelectedNodeID string `json:"selectedNodeId,omitempty"`
}

// EventKind identifies a controller event.
type EventKind int

const (
	HoverChanged EventKind = iota
	NodeSelected
	SelectionCleared
)

func (k EventKind) String() string {
	switch k {
	case HoverChanged:
		return "hover-changed"
	case NodeSelected:
		return "node-selected"
	case SelectionCleared:
		return "selection-cleared"
	}
	return "unknown"
}

// Event is emitted on every hover or selection change. Node is the full node
// for NodeSelected and HoverChanged (when something is hovered).
type Event struct {
	Kind   EventKind
	NodeID string
	Node   *graph.Node
}

// HitTester resolves a screen position to the topmost node drawn there.
type HitTester interface {
	HitTest(x, y float64) (string, bool)
}

// NodeLookup resolves node ids to their data.
type NodeLookup interface {
	Node(id string) (graph.Node, bool)
}

// Listener receives controller events.
type Listener func(Event)

// Controller is the hover/select state machine.
type Controller struct {
	sel       Selection
	nodes     NodeLookup
	listeners []Listener
	logger    *zap.Logger
}

// New creates an idle controller.
func New(nodes NodeLookup, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{nodes: nodes, logger: logger}
}

// Subscribe registers a listener for events.
func (c *Controller) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

// State returns the current mode.
func (c *Controller) State() State {
	switch {
	case c.sel.SelectedNodeID != "":
		return Selected
	case c.sel.HoveredNodeID != "":
		return Hovering
	}
	return Idle
}

// Selection returns a copy of the hover and selection state.
func (c *Controller) Selection() Selection { return c.sel }

// PointerMove updates the hovered node from a pointer position.
func (c *Controller) PointerMove(hits HitTester, x, y float64) {
	id, _ := hits.HitTest(x, y)
	c.setHover(id)
}

// PointerLeave clears hover when the pointer leaves the canvas.
func (c *Controller) PointerLeave() {
	c.setHover("")
}

// Click selects the node under the pointer, or clears the selection when the
// click lands on empty canvas.
func (c *Controller) Click(hits HitTester, x, y float64) {
	id, ok := hits.HitTest(x, y)
	c.setHover(id)
	if ok {
		c.Select(id)
		return
	}
	if c.sel.SelectedNodeID != "" {
		c.sel.SelectedNodeID = ""
		c.logger.Debug("selection cleared")
		c.emit(Event{Kind: SelectionCleared})
	}
}

// Select moves the controller to Selected(id), e.g. for a search result.
// Unknown ids are ignored.
func (c *Controller) Select(id string) bool {
	n, ok := c.nodes.Node(id)
	if !ok {
		c.logger.Warn("select ignored unknown node", zap.String("node", id))
		return false
	}
	if c.sel.SelectedNodeID == id {
		return true
	}
	c.sel.SelectedNodeID = id
	c.logger.Debug("node selected", zap.String("node", id))
	c.emit(Event{Kind: NodeSelected, NodeID: id, Node: &n})
	return true
}

// Deselect clears the selection.
func (c *Controller) Deselect() {
	if c.sel.SelectedNodeID == "" {
		return
	}
	c.sel.SelectedNodeID = ""
	c.emit(Event{Kind: SelectionCleared})
}

// Reset returns to Idle unconditionally. It is called on every graph load.
func (c *Controller) Reset() {
	hadSelection := c.sel.SelectedNodeID != ""
	c.sel = Selection{}
	if hadSelection {
		c.emit(Event{Kind: SelectionCleared})
	}
}

func (c *Controller) setHover(id string) {
	if c.sel.HoveredNodeID == id {
		return
	}
	c.sel.HoveredNodeID = id
	ev := Event{Kind: HoverChanged, NodeID: id}
	if id != "" {
		if n, ok := c.nodes.Node(id); ok {
			ev.Node = &n
		}
	}
	c.emit(ev)
}

func (c *Controller) emit(ev Event) {
	for _, l := range c.listeners {
		l(ev)
	}
}
