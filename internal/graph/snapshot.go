package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// Snapshot is the payload a graph data source returns for one subject.
type Snapshot struct {
	Key   string         `json:"key,omitempty"`
	Title string         `json:"title,omitempty"`
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
}

// SnapshotNode is a node as delivered by a data source.
type SnapshotNode struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Category    string            `json:"category"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	X           *float64          `json:"x,omitempty"`
	Y           *float64          `json:"y,omitempty"`
}

// SnapshotEdge is an edge as delivered by a data source.
type SnapshotEdge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType int    `json:"relationType"`
	Label        string `json:"label,omitempty"`
}

// edgeNamespace seeds the deterministic ids given to edges that arrive without one.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("conceptmap/edge"))

// DecodeSnapshot parses a data-source payload.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot parse: %w", err)
	}
	return &s, nil
}

// Graph converts the payload into model nodes and edges. Nodes carrying both
// coordinates keep them as their prior position.
func (s *Snapshot) Graph() ([]Node, []Edge) {
	nodes := make([]Node, 0, len(s.Nodes))
	for _, sn := range s.Nodes {
		n := Node{
			ID:          sn.ID,
			Label:       sn.Label,
			Category:    Category(sn.Category),
			Description: sn.Description,
			Metadata:    sn.Metadata,
		}
		if n.Label == "" {
			n.Label = sn.ID
		}
		if sn.X != nil && sn.Y != nil {
			n.Position = Point{X: *sn.X, Y: *sn.Y}
			n.Placed = true
		}
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(s.Edges))
	for _, se := range s.Edges {
		id := se.ID
		if id == "" {
			id = EdgeID(se.Source, se.Target, RelationType(se.RelationType))
		}
		edges = append(edges, Edge{
			ID:       id,
			SourceID: se.Source,
			TargetID: se.Target,
			Relation: RelationType(se.RelationType),
			Label:    se.Label,
		})
	}
	return nodes, edges
}

// EdgeID derives a stable id for an edge from its endpoints and relation.
func EdgeID(source, target string, rel RelationType) string {
	name := source + "\x00" + target + "\x00" + strconv.Itoa(int(rel))
	return uuid.NewSHA1(edgeNamespace, []byte(name)).String()
}

// LoadSnapshot loads a data-source payload into the model.
func (m *Model) LoadSnapshot(s *Snapshot) LoadReport {
	nodes, edges := s.Graph()
	return m.Load(nodes, edges)
}

// LayoutInput is an immutable copy of everything a layout pass reads.
type LayoutInput struct {
	Revision  uint64
	IDs       []string
	Positions []Point
	Placed    []bool
	Edges     []Edge
}

// LayoutInput captures the current graph for a layout pass.
func (m *Model) LayoutInput() LayoutInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := LayoutInput{
		Revision:  m.revision,
		IDs:       make([]string, len(m.order)),
		Positions: make([]Point, len(m.order)),
		Placed:    make([]bool, len(m.order)),
		Edges:     make([]Edge, len(m.edges)),
	}
	for i, n := range m.order {
		in.IDs[i] = n.ID
		in.Positions[i] = n.Position
		in.Placed[i] = n.Placed
	}
	for i, e := range m.edges {
		in.Edges[i] = *e
	}
	return in
}

// ApplyLayout writes the positions computed by a layout pass. It is the only
// way positions change after Load, and it refuses results computed against a
// previous revision.
func (m *Model) ApplyLayout(revision uint64, ids []string, positions []Point) error {
	if len(ids) != len(positions) {
		return fmt.Errorf("apply layout: %d ids for %d positions", len(ids), len(positions))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if revision != m.revision {
		return ErrStaleLayout
	}
	for _, id := range ids {
		if _, ok := m.nodes[id]; !ok {
			return fmt.Errorf("apply layout: %w: %s", ErrNodeNotFound, id)
		}
	}
	for i, id := range ids {
		n := m.nodes[id]
		n.Position = positions[i]
		n.Placed = true
	}
	return nil
}
