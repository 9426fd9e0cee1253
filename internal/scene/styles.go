package scene

import (
	"strconv"

	"github.com/msalah0e/conceptmap/internal/graph"
)

// NodeStyle controls how a category is drawn.
type NodeStyle struct {
	Radius float64 `toml:"radius" json:"radius" validate:"gt=0"`
	Color  string  `toml:"color" json:"color" validate:"required"`
	// Z orders drawing; higher values are drawn later and win hit tests.
	Z int `toml:"z" json:"z"`
}

// EdgeStyle controls how a relation type is drawn.
type EdgeStyle struct {
	Color string `toml:"color" json:"color" validate:"required"`
	Label string `toml:"label" json:"label"`
}

// Styles maps categories and relation types to their looks.
type Styles struct {
	Nodes     map[string]NodeStyle `toml:"nodes" validate:"dive"`
	Relations map[string]EdgeStyle `toml:"relations" validate:"dive"`
	Highlight string               `toml:"highlight" validate:"required"`
	EdgeColor string               `toml:"edge_color" validate:"required"`
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Nodes: map[string]NodeStyle{
			string(graph.CategoryCoreConcept): {Radius: 18, Color: "#2DB682", Z: 3},
			string(graph.CategoryConcept):     {Radius: 13, Color: "#0171E3", Z: 2},
			string(graph.CategorySkill):       {Radius: 10, Color: "#E07C3A", Z: 1},
			string(graph.CategoryKnowledge):   {Radius: 8, Color: "#9B59B6", Z: 0},
		},
		Relations: map[string]EdgeStyle{
			"0": {Color: "#5f6b7a", Label: "related"},
			"1": {Color: "#2DB682", Label: "contains"},
			"2": {Color: "#E74C3C", Label: "prerequisite"},
			"3": {Color: "#3498DB", Label: "similar"},
			"4": {Color: "#F1C40F", Label: "applies"},
		},
		Highlight: "#FFFFFF",
		EdgeColor: "#39424e",
	}
}

// Node returns the style for a category, falling back to the concept style.
func (s Styles) Node(c graph.Category) NodeStyle {
	if st, ok := s.Nodes[string(c)]; ok {
		return st
	}
	if st, ok := s.Nodes[string(graph.CategoryConcept)]; ok {
		return st
	}
	return NodeStyle{Radius: 10, Color: "#0171E3"}
}

// Relation returns the style for a relation type.
func (s Styles) Relation(r graph.RelationType) EdgeStyle {
	if st, ok := s.Relations[strconv.Itoa(int(r))]; ok {
		if st.Label == "" {
			st.Label = r.String()
		}
		return st
	}
	return EdgeStyle{Color: s.EdgeColor, Label: r.String()}
}
