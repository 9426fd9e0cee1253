package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportSnapshot returns the current graph as a data-source payload,
// including the positions of placed nodes.
func (m *Model) ExportSnapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &Snapshot{
		Nodes: make([]SnapshotNode, 0, len(m.order)),
		Edges: make([]SnapshotEdge, 0, len(m.edges)),
	}
	for _, n := range m.order {
		sn := SnapshotNode{
			ID:          n.ID,
			Label:       n.Label,
			Category:    string(n.Category),
			Description: n.Description,
			Metadata:    n.Metadata,
		}
		if n.Placed {
			x, y := n.Position.X, n.Position.Y
			sn.X, sn.Y = &x, &y
		}
		s.Nodes = append(s.Nodes, sn)
	}
	for _, e := range m.edges {
		s.Edges = append(s.Edges, SnapshotEdge{
			ID:           e.ID,
			Source:       e.SourceID,
			Target:       e.TargetID,
			RelationType: int(e.Relation),
			Label:        e.Label,
		})
	}
	return s
}

// ExportJSON returns the graph as pretty-printed JSON.
func (m *Model) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(m.ExportSnapshot(), "", "  ")
}

// ExportDOT returns the graph in Graphviz DOT format. Placed nodes carry a
// pinned pos attribute so neato reproduces the computed layout.
func (m *Model) ExportDOT() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder
	b.WriteString("graph concept_map {\n")
	b.WriteString("  node [shape=ellipse, style=filled];\n\n")

	for _, n := range m.order {
		attrs := fmt.Sprintf("label=%q, class=%q", n.Label, string(n.Category))
		if n.Placed {
			attrs += fmt.Sprintf(", pos=\"%.2f,%.2f!\"", n.Position.X, -n.Position.Y)
		}
		b.WriteString(fmt.Sprintf("  %q [%s];\n", n.ID, attrs))
	}

	b.WriteString("\n")
	for _, e := range m.edges {
		label := e.Label
		if label == "" {
			label = e.Relation.String()
		}
		b.WriteString(fmt.Sprintf("  %q -- %q [label=%q];\n", e.SourceID, e.TargetID, label))
	}

	b.WriteString("}\n")
	return b.String()
}
