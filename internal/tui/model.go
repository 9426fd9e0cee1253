package tui

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/session"
)

const (
	panelWidth    = 34
	minPanelWidth = 80
	panStep       = 4 * CellWidth
	maxResults    = 8
	dragThreshold = 1
)

// layoutDoneMsg carries the outcome of a layout pass started by the view.
type layoutDoneMsg struct {
	out session.Outcome
}

type press struct {
	col, row         int
	lastCol, lastRow int
	dragging         bool
}

// Model is the bubbletea model for the map view.
type Model struct {
	ctx  context.Context
	sess *session.Session

	help   help.Model
	search textinput.Model

	searching bool
	results   []graph.SearchResult
	cursor    int

	width, height    int
	mapCols, mapRows int

	press  *press
	status string
	failed bool
}

// New creates the map view over a loaded session. ctx bounds layout passes.
func New(ctx context.Context, sess *session.Session) *Model {
	input := textinput.New()
	input.Placeholder = "search concepts"
	input.Prompt = "/ "
	input.CharLimit = 64

	return &Model{
		ctx:    ctx,
		sess:   sess,
		help:   help.New(),
		search: input,
	}
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, sess *session.Session) error {
	p := tea.NewProgram(New(ctx, sess),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.mapCols, m.mapRows = m.mapArea()
		m.status = "laying out…"
		m.failed = false
		return m, m.wait(m.sess.Resize(m.ctx,
			float64(m.mapCols*CellWidth), float64(m.mapRows*CellHeight)))

	case layoutDoneMsg:
		m.onLayout(msg.out)
		return m, nil

	case tea.MouseMsg:
		m.onMouse(msg)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m, m.onSearchKey(msg)
		}
		return m, m.onKey(msg)
	}
	return m, nil
}

func (m *Model) wait(ch <-chan session.Outcome) tea.Cmd {
	return func() tea.Msg {
		return layoutDoneMsg{out: <-ch}
	}
}

func (m *Model) onLayout(out session.Outcome) {
	switch {
	case out.Err == nil:
		state := "converged"
		if !out.Result.Converged {
			state = "stopped"
		}
		m.status = fmt.Sprintf("%s after %d iterations", state, out.Result.Iterations)
		m.failed = false
	case errors.Is(out.Err, context.Canceled), errors.Is(out.Err, graph.ErrStaleLayout):
		// A newer pass owns the status line.
	default:
		m.status = "layout failed: " + out.Err.Error()
		m.failed = true
	}
}

func (m *Model) mapArea() (cols, rows int) {
	cols = m.width
	if m.width >= minPanelWidth {
		cols -= panelWidth
	}
	rows = m.height - 2
	return max(cols, 1), max(rows, 1)
}

func (m *Model) inMap(col, row int) bool {
	return col >= 0 && row >= 0 && col < m.mapCols && row < m.mapRows
}

// pointerAt maps a cell to a frame pixel. A cell showing a node glyph maps to
// that node's center so the glyph is clickable at any zoom.
func (m *Model) pointerAt(col, row int) (float64, float64) {
	f := m.sess.Frame()
	for i := len(f.Nodes) - 1; i >= 0; i-- {
		n := f.Nodes[i]
		if c, r := CellOf(n.X, n.Y); c == col && r == row {
			return n.X, n.Y
		}
	}
	return CellCenter(col, row)
}

func (m *Model) onMouse(msg tea.MouseMsg) {
	if !m.inMap(msg.X, msg.Y) {
		m.press = nil
		m.sess.PointerLeave()
		return
	}

	cam := m.sess.Camera()
	step := cam.Limits().ZoomStep

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		x, y := CellCenter(msg.X, msg.Y)
		m.sess.ZoomAt(x, y, step)
	case msg.Button == tea.MouseButtonWheelDown:
		x, y := CellCenter(msg.X, msg.Y)
		m.sess.ZoomAt(x, y, 1/step)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.press = &press{col: msg.X, row: msg.Y, lastCol: msg.X, lastRow: msg.Y}

	case msg.Action == tea.MouseActionMotion && m.press != nil:
		if abs(msg.X-m.press.col) > dragThreshold || abs(msg.Y-m.press.row) > dragThreshold {
			m.press.dragging = true
		}
		if m.press.dragging {
			m.sess.Pan(float64((msg.X-m.press.lastCol)*CellWidth), float64((msg.Y-m.press.lastRow)*CellHeight))
			m.press.lastCol, m.press.lastRow = msg.X, msg.Y
		}

	case msg.Action == tea.MouseActionRelease:
		if m.press != nil && !m.press.dragging {
			x, y := m.pointerAt(msg.X, msg.Y)
			m.sess.Click(x, y)
		}
		m.press = nil

	case msg.Action == tea.MouseActionMotion:
		x, y := m.pointerAt(msg.X, msg.Y)
		m.sess.PointerMove(x, y)
	}
}

func (m *Model) onKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, Keys.Quit):
		m.sess.Close()
		return tea.Quit
	case key.Matches(msg, Keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, Keys.ZoomIn):
		m.sess.ZoomIn()
	case key.Matches(msg, Keys.ZoomOut):
		m.sess.ZoomOut()
	case key.Matches(msg, Keys.Reset):
		m.sess.ResetCamera()
	case key.Matches(msg, Keys.Fit):
		m.sess.Fit()
	case key.Matches(msg, Keys.Up):
		m.sess.Pan(0, panStep)
	case key.Matches(msg, Keys.Down):
		m.sess.Pan(0, -panStep)
	case key.Matches(msg, Keys.Left):
		m.sess.Pan(panStep, 0)
	case key.Matches(msg, Keys.Right):
		m.sess.Pan(-panStep, 0)
	case key.Matches(msg, Keys.Deselect):
		m.sess.Deselect()
	case key.Matches(msg, Keys.Relayout):
		m.status = "laying out…"
		m.failed = false
		return m.wait(m.sess.StartLayout(m.ctx))
	case key.Matches(msg, Keys.Search):
		m.searching = true
		m.cursor = 0
		m.results = nil
		m.search.SetValue("")
		return m.search.Focus()
	}
	return nil
}

func (m *Model) onSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, SearchKeys.Cancel):
		m.closeSearch()
		return nil
	case key.Matches(msg, SearchKeys.Next):
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return nil
	case key.Matches(msg, SearchKeys.Prev):
		if m.cursor > 0 {
			m.cursor--
		}
		return nil
	case key.Matches(msg, SearchKeys.Select):
		if m.cursor < len(m.results) {
			id := m.results[m.cursor].Node.ID
			m.sess.Select(id)
			m.sess.Focus(id)
		}
		m.closeSearch()
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.results = m.sess.Search(m.search.Value())
	if len(m.results) > maxResults {
		m.results = m.results[:maxResults]
	}
	m.cursor = min(m.cursor, max(len(m.results)-1, 0))
	return cmd
}

func (m *Model) closeSearch() {
	m.searching = false
	m.results = nil
	m.cursor = 0
	m.search.Blur()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	body := m.viewMap()
	if m.width >= minPanelWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.viewPanel())
	}

	var footer string
	if m.searching {
		footer = m.search.View()
	} else {
		footer = m.help.View(Keys)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatus(), footer)
}

func (m *Model) viewMap() string {
	f := m.sess.Frame()
	if f.Empty() {
		return lipgloss.Place(m.mapCols, m.mapRows, lipgloss.Center, lipgloss.Center,
			Empty.Render("No concepts to show"))
	}
	c := NewCanvas(m.mapCols, m.mapRows)
	c.Draw(f, string(Muted))
	return c.String()
}

func (m *Model) viewStatus() string {
	title := m.sess.Title()
	if title == "" {
		title = m.sess.Key()
	}
	cam := m.sess.Camera()
	stats := m.sess.Model().GetStats()
	line := fmt.Sprintf("%s  %d concepts  %d relations  zoom %.2f  %s",
		title, stats.Nodes, stats.Edges, cam.Zoom, m.sess.State())
	if m.status != "" {
		status := m.status
		if m.failed {
			status = StatusError.Render(status)
		}
		line += "  " + status
	}
	return StatusBar.Width(m.width).MaxWidth(m.width).Render(line)
}

func (m *Model) viewPanel() string {
	inner := panelWidth - 4
	var b strings.Builder

	switch {
	case m.searching:
		b.WriteString(Title.Render("Search"))
		b.WriteString("\n")
		if len(m.results) == 0 {
			b.WriteString(Subtitle.Render("no matches"))
		}
		for i, r := range m.results {
			line := truncate(fmt.Sprintf("%s (%s)", r.Node.Label, r.Node.Category), inner)
			if i == m.cursor {
				line = ResultActive.Render(line)
			}
			b.WriteString(line + "\n")
		}

	default:
		d, ok := m.sess.Detail()
		if !ok {
			b.WriteString(Title.Render("conceptmap"))
			b.WriteString("\n")
			b.WriteString(Subtitle.Render("click a concept to see its relations"))
			break
		}
		b.WriteString(Title.Render(truncate(d.Node.Label, inner)))
		b.WriteString("\n")
		b.WriteString(Subtitle.Render(string(d.Node.Category)))
		b.WriteString("\n")
		if d.Node.Description != "" {
			b.WriteString(lipgloss.NewStyle().Width(inner).Render(d.Node.Description))
			b.WriteString("\n")
		}
		for k, v := range sortedMetadata(d.Node.Metadata) {
			b.WriteString(PanelLabel.Render(truncate(k+": "+v, inner)) + "\n")
		}
		if len(d.Relations) > 0 {
			b.WriteString("\n")
		}
		for _, r := range d.Relations {
			arrow := "→"
			if !r.Outgoing {
				arrow = "←"
			}
			b.WriteString(Relation.Render(truncate(fmt.Sprintf("%s %s %s", arrow, r.Label, r.Other.Label), inner)) + "\n")
		}
	}

	return Panel.Width(panelWidth - 2).Height(max(m.mapRows-2, 1)).MaxHeight(m.mapRows).Render(strings.TrimRight(b.String(), "\n"))
}

func sortedMetadata(md map[string]string) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range slices.Sorted(maps.Keys(md)) {
			if !yield(k, md[k]) {
				return
			}
		}
	}
}
