package graph

import (
	"errors"
	"iter"
	"math"
	"sync"

	"go.uber.org/zap"
)

// Category is the closed set of concept kinds a node can have.
type Category string

const (
	CategoryCoreConcept Category = "core-concept"
	CategoryConcept     Category = "concept"
	CategorySkill       Category = "skill"
	CategoryKnowledge   Category = "knowledge"
)

// Categories lists every known category in drawing order (lowest z first).
var Categories = []Category{CategoryKnowledge, CategorySkill, CategoryConcept, CategoryCoreConcept}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCoreConcept, CategoryConcept, CategorySkill, CategoryKnowledge:
		return true
	}
	return false
}

// RelationType selects the semantic relation of an edge. It only affects styling.
type RelationType int

const (
	RelationRelated RelationType = iota
	RelationContainment
	RelationPrerequisite
	RelationSimilarity
	RelationApplication
)

func (r RelationType) String() string {
	switch r {
	case RelationRelated:
		return "related"
	case RelationContainment:
		return "contains"
	case RelationPrerequisite:
		return "prerequisite"
	case RelationSimilarity:
		return "similar"
	case RelationApplication:
		return "applies"
	}
	return "relation"
}

// Point is a coordinate in model space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Node is a concept in the map.
type Node struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Category    Category          `json:"category"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Position    Point             `json:"position"`
	// Placed is true once the node has a position, either supplied by the
	// data source or written by a layout pass.
	Placed bool `json:"placed"`

	index int
}

// Index returns the node's insertion index within the current load.
func (n *Node) Index() int { return n.index }

// Edge is a typed relation between two nodes.
type Edge struct {
	ID       string       `json:"id"`
	SourceID string       `json:"source"`
	TargetID string       `json:"target"`
	Relation RelationType `json:"relationType"`
	Label    string       `json:"label,omitempty"`
}

// DroppedEdge records an edge rejected during Load.
type DroppedEdge struct {
	Edge   Edge   `json:"edge"`
	Reason string `json:"reason"`
}

// LoadReport summarises what Load kept and what it dropped.
type LoadReport struct {
	Revision     uint64        `json:"revision"`
	Nodes        int           `json:"nodes"`
	Edges        int           `json:"edges"`
	DroppedNodes []string      `json:"droppedNodes,omitempty"`
	DroppedEdges []DroppedEdge `json:"droppedEdges,omitempty"`
}

var (
	// ErrStaleLayout is returned when layout results refer to a graph that
	// has since been replaced or cleared.
	ErrStaleLayout = errors.New("layout result is stale")
	// ErrNodeNotFound is returned when an id does not resolve to a node.
	ErrNodeNotFound = errors.New("node not found")
)

// Model owns the nodes and edges of one concept map.
type Model struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	order    []*Node
	edges    []*Edge
	revision uint64
	logger   *zap.Logger
}

// New creates an empty model. A nil logger discards warnings.
func New(logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		nodes:  make(map[string]*Node),
		logger: logger,
	}
}

// Load replaces the whole graph. Nodes are inserted first so edges can be
// resolved; edges with unknown endpoints or repeated ids are skipped and
// logged instead of failing the load.
func (m *Model) Load(nodes []Node, edges []Edge) LoadReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	report := LoadReport{Revision: m.revision}

	for _, in := range nodes {
		if in.ID == "" {
			m.logger.Warn("dropping node without id", zap.String("label", in.Label))
			report.DroppedNodes = append(report.DroppedNodes, in.ID)
			continue
		}
		if _, exists := m.nodes[in.ID]; exists {
			m.logger.Warn("dropping duplicate node", zap.String("node", in.ID))
			report.DroppedNodes = append(report.DroppedNodes, in.ID)
			continue
		}
		n := in
		if !n.Category.Valid() {
			m.logger.Warn("unknown node category, using concept",
				zap.String("node", n.ID),
				zap.String("category", string(n.Category)),
			)
			n.Category = CategoryConcept
		}
		n.Metadata = cloneMetadata(in.Metadata)
		n.index = len(m.order)
		m.nodes[n.ID] = &n
		m.order = append(m.order, &n)
	}

	seen := make(map[string]bool, len(edges))
	for _, in := range edges {
		reason := ""
		switch {
		case m.nodes[in.SourceID] == nil:
			reason = "unknown source"
		case m.nodes[in.TargetID] == nil:
			reason = "unknown target"
		case in.ID != "" && seen[in.ID]:
			reason = "duplicate id"
		}
		if reason != "" {
			m.logger.Warn("dropping edge",
				zap.String("edge", in.ID),
				zap.String("source", in.SourceID),
				zap.String("target", in.TargetID),
				zap.String("reason", reason),
			)
			report.DroppedEdges = append(report.DroppedEdges, DroppedEdge{Edge: in, Reason: reason})
			continue
		}
		seen[in.ID] = true
		e := in
		m.edges = append(m.edges, &e)
	}

	report.Nodes = len(m.order)
	report.Edges = len(m.edges)
	return report
}

// Clear empties the model.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Model) reset() {
	m.nodes = make(map[string]*Node)
	m.order = nil
	m.edges = nil
	m.revision++
}

// Revision identifies the current load. It changes on every Load and Clear.
func (m *Model) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// Len returns the number of nodes.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Node returns a copy of the node with the given id.
func (m *Model) Node(id string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in insertion order.
func (m *Model) Nodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, len(m.order))
	for i, n := range m.order {
		out[i] = *n
	}
	return out
}

// Edges returns copies of all edges in load order.
func (m *Model) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	for i, e := range m.edges {
		out[i] = *e
	}
	return out
}

// Neighbors yields the nodes adjacent to id, in edge order and without
// repeats. The sequence is single use: ranging over it a second time yields
// nothing, so callers that need two passes must call Neighbors again.
func (m *Model) Neighbors(id string) iter.Seq[Node] {
	var once sync.Once
	return func(yield func(Node) bool) {
		fresh := false
		once.Do(func() { fresh = true })
		if !fresh {
			return
		}

		m.mu.RLock()
		var adj []Node
		seen := map[string]bool{id: true}
		for _, e := range m.edges {
			other := ""
			switch id {
			case e.SourceID:
				other = e.TargetID
			case e.TargetID:
				other = e.SourceID
			default:
				continue
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			adj = append(adj, *m.nodes[other])
		}
		m.mu.RUnlock()

		for _, n := range adj {
			if !yield(n) {
				return
			}
		}
	}
}

// EdgesOf returns the edges touching id.
func (m *Model) EdgesOf(id string) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Edge
	for _, e := range m.edges {
		if e.SourceID == id || e.TargetID == id {
			out = append(out, *e)
		}
	}
	return out
}

// Stats holds summary counts.
type Stats struct {
	Nodes      int
	Edges      int
	Categories map[Category]int
}

// GetStats returns summary statistics.
func (m *Model) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Nodes: len(m.order), Edges: len(m.edges), Categories: make(map[Category]int)}
	for _, n := range m.order {
		s.Categories[n.Category]++
	}
	return s
}

// Bounds returns the bounding box of all placed nodes. ok is false when no
// node has a position yet.
func (m *Model) Bounds() (min, max Point, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.order {
		if !n.Placed {
			continue
		}
		if !ok {
			min, max, ok = n.Position, n.Position, true
			continue
		}
		min.X = math.Min(min.X, n.Position.X)
		min.Y = math.Min(min.Y, n.Position.Y)
		max.X = math.Max(max.X, n.Position.X)
		max.Y = math.Max(max.Y, n.Position.Y)
	}
	return min, max, ok
}

func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
