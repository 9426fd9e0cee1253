package session

import (
	"github.com/msalah0e/conceptmap/internal/graph"
)

// Relation is one edge seen from the selected node.
type Relation struct {
	EdgeID   string     `json:"edgeId"`
	Other    graph.Node `json:"other"`
	Outgoing bool       `json:"outgoing"`
	Type     int        `json:"relationType"`
	Label    string     `json:"label"`
}

// Detail is what the detail panel shows for the selected node.
type Detail struct {
	Node      graph.Node   `json:"node"`
	Neighbors []graph.Node `json:"neighbors"`
	Relations []Relation   `json:"relations"`
}

// Detail describes the selected node. ok is false in Idle and Hovering.
func (s *Session) Detail() (Detail, bool) {
	s.mu.Lock()
	id := s.ctl.Selection().SelectedNodeID
	s.mu.Unlock()
	if id == "" {
		return Detail{}, false
	}
	return DetailFor(s.model, id)
}

// DetailFor describes any node of m.
func DetailFor(m *graph.Model, id string) (Detail, bool) {
	n, ok := m.Node(id)
	if !ok {
		return Detail{}, false
	}

	d := Detail{Node: n}
	for nb := range m.Neighbors(id) {
		d.Neighbors = append(d.Neighbors, nb)
	}
	for _, e := range m.EdgesOf(id) {
		otherID, outgoing := e.TargetID, true
		if e.TargetID == id {
			otherID, outgoing = e.SourceID, false
		}
		other, _ := m.Node(otherID)
		label := e.Label
		if label == "" {
			label = e.Relation.String()
		}
		d.Relations = append(d.Relations, Relation{
			EdgeID:   e.ID,
			Other:    other,
			Outgoing: outgoing,
			Type:     int(e.Relation),
			Label:    label,
		})
	}
	return d, true
}
