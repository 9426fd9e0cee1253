package graph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleNodes() []Node {
	return []Node{
		{ID: "algebra", Label: "Algebra", Category: CategoryCoreConcept, Description: "Symbols and rules"},
		{ID: "linear", Label: "Linear equations", Category: CategoryConcept},
		{ID: "solve", Label: "Solving for x", Category: CategorySkill},
		{ID: "axioms", Label: "Field axioms", Category: CategoryKnowledge, Metadata: map[string]string{"grade": "9"}},
	}
}

func sampleEdges() []Edge {
	return []Edge{
		{ID: "e1", SourceID: "algebra", TargetID: "linear", Relation: RelationContainment},
		{ID: "e2", SourceID: "linear", TargetID: "solve", Relation: RelationApplication},
		{ID: "e3", SourceID: "axioms", TargetID: "algebra", Relation: RelationPrerequisite},
	}
}

func TestLoad(t *testing.T) {
	m := New(nil)
	report := m.Load(sampleNodes(), sampleEdges())

	if report.Nodes != 4 || report.Edges != 3 {
		t.Fatalf("expected 4 nodes / 3 edges, got %d / %d", report.Nodes, report.Edges)
	}
	if m.Len() != 4 {
		t.Errorf("expected Len 4, got %d", m.Len())
	}

	n, ok := m.Node("solve")
	if !ok {
		t.Fatal("expected node solve")
	}
	if n.Label != "Solving for x" || n.Category != CategorySkill {
		t.Errorf("unexpected node: %+v", n)
	}
	if n.Index() != 2 {
		t.Errorf("expected insertion index 2, got %d", n.Index())
	}
}

func TestLoadDropsEdgesWithUnknownEndpoints(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := New(zap.New(core))

	edges := append(sampleEdges(),
		Edge{ID: "bad-src", SourceID: "ghost", TargetID: "algebra"},
		Edge{ID: "bad-dst", SourceID: "algebra", TargetID: "ghost"},
	)
	report := m.Load(sampleNodes(), edges)

	if report.Edges != 3 {
		t.Fatalf("expected 3 valid edges, got %d", report.Edges)
	}
	if len(m.Edges()) != 3 {
		t.Errorf("expected model to hold 3 edges, got %d", len(m.Edges()))
	}
	if len(report.DroppedEdges) != 2 {
		t.Fatalf("expected 2 dropped edges, got %d", len(report.DroppedEdges))
	}
	if report.DroppedEdges[0].Reason != "unknown source" {
		t.Errorf("expected unknown source, got %q", report.DroppedEdges[0].Reason)
	}
	if got := logs.FilterMessage("dropping edge").Len(); got != 2 {
		t.Errorf("expected 2 warnings, got %d", got)
	}
}

func TestLoadDropsDuplicates(t *testing.T) {
	m := New(nil)
	nodes := append(sampleNodes(), Node{ID: "algebra", Label: "Again"})
	edges := append(sampleEdges(), Edge{ID: "e1", SourceID: "solve", TargetID: "axioms"})

	report := m.Load(nodes, edges)
	if report.Nodes != 4 {
		t.Errorf("expected 4 nodes, got %d", report.Nodes)
	}
	if len(report.DroppedNodes) != 1 {
		t.Errorf("expected 1 dropped node, got %d", len(report.DroppedNodes))
	}
	n, _ := m.Node("algebra")
	if n.Label != "Algebra" {
		t.Errorf("first node should win, got %q", n.Label)
	}
	if report.Edges != 3 {
		t.Errorf("expected duplicate edge id to be dropped, got %d edges", report.Edges)
	}
}

func TestLoadUnknownCategory(t *testing.T) {
	m := New(nil)
	m.Load([]Node{{ID: "x", Label: "X", Category: "mystery"}}, nil)

	n, _ := m.Node("x")
	if n.Category != CategoryConcept {
		t.Errorf("expected fallback to concept, got %q", n.Category)
	}
}

func TestLoadReplacesPreviousGraph(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	rev := m.Revision()

	m.Load([]Node{{ID: "only", Label: "Only", Category: CategoryConcept}}, nil)

	if m.Len() != 1 {
		t.Fatalf("expected 1 node after reload, got %d", m.Len())
	}
	if _, ok := m.Node("algebra"); ok {
		t.Error("old node should be gone")
	}
	if m.Revision() == rev {
		t.Error("revision should change on load")
	}
}

func TestClear(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	m.Clear()

	if m.Len() != 0 || len(m.Edges()) != 0 {
		t.Errorf("expected empty model, got %d nodes / %d edges", m.Len(), len(m.Edges()))
	}
}

func TestNeighbors(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), append(sampleEdges(), Edge{ID: "e4", SourceID: "linear", TargetID: "algebra"}))

	var ids []string
	for n := range m.Neighbors("algebra") {
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "linear,axioms" {
		t.Errorf("expected linear,axioms got %v", ids)
	}
}

func TestNeighborsSingleUse(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())

	seq := m.Neighbors("linear")
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 2 {
		t.Errorf("expected 2 neighbours, got %d", first)
	}
	if second != 0 {
		t.Errorf("expected exhausted sequence, got %d", second)
	}

	again := 0
	for range m.Neighbors("linear") {
		again++
	}
	if again != 2 {
		t.Errorf("re-requested sequence should yield 2, got %d", again)
	}
}

func TestApplyLayout(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	in := m.LayoutInput()

	pos := make([]Point, len(in.IDs))
	for i := range pos {
		pos[i] = Point{X: float64(i), Y: float64(-i)}
	}
	if err := m.ApplyLayout(in.Revision, in.IDs, pos); err != nil {
		t.Fatalf("ApplyLayout failed: %v", err)
	}

	n, _ := m.Node("solve")
	if !n.Placed || n.Position != (Point{X: 2, Y: -2}) {
		t.Errorf("unexpected position %+v placed=%v", n.Position, n.Placed)
	}
}

func TestApplyLayoutStale(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	in := m.LayoutInput()

	m.Load(sampleNodes(), sampleEdges())

	err := m.ApplyLayout(in.Revision, in.IDs, make([]Point, len(in.IDs)))
	if !errors.Is(err, ErrStaleLayout) {
		t.Fatalf("expected ErrStaleLayout, got %v", err)
	}
	for _, n := range m.Nodes() {
		if n.Placed {
			t.Errorf("node %s should not have been written", n.ID)
		}
	}
}

func TestSearch(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())

	results := m.Search("algebra")
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Node.ID != "algebra" {
		t.Errorf("expected exact label match first, got %s", results[0].Node.ID)
	}

	results = m.Search("skill")
	if len(results) != 1 || results[0].Node.ID != "solve" {
		t.Errorf("expected category match on solve, got %+v", results)
	}

	results = m.Search("grade")
	if len(results) != 0 {
		t.Errorf("metadata keys should not match, got %d", len(results))
	}
	results = m.Search("9")
	if len(results) != 1 || results[0].Score != 10 {
		t.Errorf("expected metadata value match with score 10, got %+v", results)
	}
}

func TestSearchNoResults(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	if got := m.Search("calculus"); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
	if got := m.Search("  "); got != nil {
		t.Errorf("blank query should return nil, got %v", got)
	}
}

func TestGetStats(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	s := m.GetStats()
	if s.Nodes != 4 || s.Edges != 3 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Categories[CategorySkill] != 1 {
		t.Errorf("expected 1 skill, got %d", s.Categories[CategorySkill])
	}
}

func TestDecodeSnapshot(t *testing.T) {
	payload := `{
		"nodes": [
			{"id": "a", "label": "A", "category": "concept", "x": 3, "y": 4},
			{"id": "b", "category": "skill"}
		],
		"edges": [
			{"source": "a", "target": "b", "relationType": 2}
		]
	}`
	s, err := DecodeSnapshot(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}

	nodes, edges := s.Graph()
	if !nodes[0].Placed || nodes[0].Position != (Point{X: 3, Y: 4}) {
		t.Errorf("expected prior position on a, got %+v", nodes[0])
	}
	if nodes[1].Placed {
		t.Error("b has no coordinates and should not be placed")
	}
	if nodes[1].Label != "b" {
		t.Errorf("label should default to id, got %q", nodes[1].Label)
	}
	if edges[0].ID != EdgeID("a", "b", RelationPrerequisite) {
		t.Errorf("expected derived edge id, got %q", edges[0].ID)
	}
	if EdgeID("a", "b", RelationPrerequisite) == EdgeID("b", "a", RelationPrerequisite) {
		t.Error("edge ids should depend on direction")
	}
}

func TestDecodeSnapshotInvalid(t *testing.T) {
	_, err := DecodeSnapshot(strings.NewReader("{nodes"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "snapshot parse") {
		t.Errorf("expected snapshot parse prefix, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())
	in := m.LayoutInput()
	_ = m.ApplyLayout(in.Revision, in.IDs, make([]Point, len(in.IDs)))

	data, err := m.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("exported JSON invalid: %v", err)
	}
	if len(s.Nodes) != 4 || len(s.Edges) != 3 {
		t.Errorf("expected 4 nodes / 3 edges, got %d / %d", len(s.Nodes), len(s.Edges))
	}
	if s.Nodes[0].X == nil {
		t.Error("placed nodes should export coordinates")
	}
}

func TestExportDOT(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), sampleEdges())

	dot := m.ExportDOT()
	if !strings.HasPrefix(dot, "graph concept_map {") {
		t.Errorf("unexpected header: %q", dot[:30])
	}
	if !strings.Contains(dot, `"algebra" -- "linear" [label="contains"]`) {
		t.Errorf("expected containment edge in DOT output:\n%s", dot)
	}
}

func TestBounds(t *testing.T) {
	m := New(nil)
	m.Load(sampleNodes(), nil)
	if _, _, ok := m.Bounds(); ok {
		t.Error("unplaced graph should have no bounds")
	}

	in := m.LayoutInput()
	pos := []Point{{X: -1, Y: 2}, {X: 5, Y: -3}, {X: 0, Y: 0}, {X: 1, Y: 1}}
	_ = m.ApplyLayout(in.Revision, in.IDs, pos)

	min, max, ok := m.Bounds()
	if !ok || min != (Point{X: -1, Y: -3}) || max != (Point{X: 5, Y: 2}) {
		t.Errorf("unexpected bounds %v %v %v", min, max, ok)
	}
}
