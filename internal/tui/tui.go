// internal/tui/tui.go

// Package tui is the interactive terminal front end of the table browser. It
// is a thin view over browser.Controller: every state rule (selection
// precedence, draft lifecycle, stale-response handling, save indicators)
// lives in the controller, the TUI only renders snapshots and forwards input.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shiftline/lineboard/internal/browser"
	"github.com/shiftline/lineboard/internal/render"
)

const (
	modeBrowse = iota
	modeEditComment
	modeFilter
)

const tickInterval = 120 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	tableStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	savingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	savedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// --- Messages ---

type tablesLoadedMsg struct{ err error }
type rowsLoadedMsg struct{ err error }
type saveDoneMsg struct {
	key string
	err error
}
type tickMsg time.Time

// Model is the bubbletea model for the browser.
type Model struct {
	ctrl *browser.Controller

	grid   table.Model
	input  textinput.Model
	filter textinput.Model
	spin   spinner.Model

	mode      int
	editingID int64
	cols      []render.Column
	visible   []map[string]any
	sortCol   int // index into cols, -1 for load order
	sortDesc  bool
	width     int
	height    int
}

// New builds the initial model around a controller.
func New(ctrl *browser.Controller) Model {
	input := textinput.New()
	input.Placeholder = "comment"
	input.CharLimit = 512

	filter := textinput.New()
	filter.Placeholder = "filter rows"

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	grid := table.New(table.WithFocused(true), table.WithHeight(18))

	return Model{ctrl: ctrl, grid: grid, input: input, filter: filter, spin: spin, sortCol: -1}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadTablesCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadTablesCmd() tea.Cmd {
	return func() tea.Msg {
		return tablesLoadedMsg{err: m.ctrl.LoadTables(context.Background())}
	}
}

func (m Model) loadRowsCmd() tea.Cmd {
	return func() tea.Msg {
		return rowsLoadedMsg{err: m.ctrl.LoadRows(context.Background())}
	}
}

func (m Model) saveCommentCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.SaveComment(context.Background(), id)
		return saveDoneMsg{key: browser.CellKey(id, browser.FieldComment), err: err}
	}
}

func (m Model) toggleFlagCmd(id int64, value int) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.SetNeedToSend(context.Background(), id, value)
		return saveDoneMsg{key: browser.CellKey(id, browser.FieldNeedToSend), err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.grid.SetHeight(maxInt(6, msg.Height-8))
		m.rebuild()
		return m, nil

	case tickMsg:
		// Indicator transitions are timer driven; redraw on a steady beat.
		return m, tick()

	case tablesLoadedMsg:
		if msg.err != nil {
			return m, nil
		}
		return m, m.loadRowsCmd()

	case rowsLoadedMsg:
		m.rebuild()
		return m, nil

	case saveDoneMsg:
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeEditComment:
		switch msg.String() {
		case "esc":
			m.ctrl.CancelEditComment(m.editingID)
			m.mode = modeBrowse
			m.rebuild()
			return m, nil
		case "enter":
			m.ctrl.SetCommentDraft(m.editingID, m.input.Value())
			m.mode = modeBrowse
			id := m.editingID
			m.rebuild()
			return m, m.saveCommentCmd(id)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetCommentDraft(m.editingID, m.input.Value())
		return m, cmd

	case modeFilter:
		switch msg.String() {
		case "esc", "enter":
			m.mode = modeBrowse
			m.rebuild()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.rebuild()
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.loadRowsCmd()
	case "[":
		m.cycleTable(-1)
		return m, m.loadRowsCmd()
	case "]":
		m.cycleTable(1)
		return m, m.loadRowsCmd()
	case "/":
		m.mode = modeFilter
		m.filter.Focus()
		return m, textinput.Blink
	case "s":
		// Cycle the sort column; past the last column returns to load order.
		m.sortCol++
		if m.sortCol >= len(m.cols) {
			m.sortCol = -1
		}
		m.rebuild()
		return m, nil
	case "S":
		m.sortDesc = !m.sortDesc
		m.rebuild()
		return m, nil
	case "enter":
		if id, ok := m.selectedRowID(); ok {
			m.editingID = id
			m.ctrl.StartEditComment(id)
			draft, _ := m.ctrl.CommentDraft(id)
			m.input.SetValue(draft)
			m.input.Focus()
			m.mode = modeEditComment
			return m, textinput.Blink
		}
	case " ":
		if id, ok := m.selectedRowID(); ok {
			next := 1 - m.currentFlag(id)
			return m, m.toggleFlagCmd(id, next)
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m *Model) cycleTable(delta int) {
	snap := m.ctrl.Snapshot()
	if len(snap.Tables) == 0 {
		return
	}
	idx := 0
	for i, t := range snap.Tables {
		if t.FullName == snap.Selected {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(snap.Tables)) % len(snap.Tables)
	m.ctrl.SelectTable(snap.Tables[idx].FullName)
}

func (m *Model) selectedRowID() (int64, bool) {
	cursor := m.grid.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return 0, false
	}
	return browser.RowID(m.visible[cursor])
}

func (m *Model) currentFlag(id int64) int {
	if pending, ok := m.ctrl.PendingFlag(id); ok {
		return pending
	}
	for _, row := range m.visible {
		if rowID, ok := browser.RowID(row); ok && rowID == id {
			switch v := row[browser.FieldNeedToSend].(type) {
			case int64:
				return int(v)
			case int:
				return v
			case float64:
				return int(v)
			case bool:
				if v {
					return 1
				}
			}
		}
	}
	return 0
}

// rebuild recomputes display columns and visible rows from the latest
// controller snapshot and pushes them into the table widget.
func (m *Model) rebuild() {
	snap := m.ctrl.Snapshot()
	m.cols = render.BuildColumns(snap.Columns)

	m.visible = m.visible[:0]
	for _, row := range snap.Rows {
		if render.MatchesFilter(row, m.cols, m.filter.Value()) {
			m.visible = append(m.visible, row)
		}
	}
	if m.sortCol >= 0 && m.sortCol < len(m.cols) {
		render.SortRows(m.visible, m.cols[m.sortCol], m.sortDesc)
	}

	colWidth := 18
	if len(m.cols) > 0 && m.width > 0 {
		if w := (m.width - 4) / len(m.cols); w > 8 {
			colWidth = w
		}
	}

	columns := make([]table.Column, len(m.cols))
	for i, col := range m.cols {
		title := col.Title
		if i == m.sortCol {
			if m.sortDesc {
				title += " v"
			} else {
				title += " ^"
			}
		}
		columns[i] = table.Column{Title: title, Width: colWidth}
	}

	rows := make([]table.Row, len(m.visible))
	for i, row := range m.visible {
		cells := make([]string, len(m.cols))
		for j, col := range m.cols {
			cells[j] = render.Truncate(m.cellText(row, col), colWidth)
		}
		rows[i] = cells
	}

	m.grid.SetColumns(columns)
	m.grid.SetRows(rows)
}

// cellText renders one cell, overlaying drafts and pending values so edits
// are visible before the server round trip completes.
func (m *Model) cellText(row map[string]any, col render.Column) string {
	id, hasID := browser.RowID(row)
	if hasID {
		switch col.Key {
		case browser.FieldComment:
			if draft, ok := m.ctrl.CommentDraft(id); ok {
				return draft + " *"
			}
		case browser.FieldNeedToSend:
			if pending, ok := m.ctrl.PendingFlag(id); ok {
				return render.FormatValue(pending != 0)
			}
		}
	}
	return render.RenderCell(row, col)
}

func (m Model) View() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	title := titleStyle.Render("lineboard") + "  " + statusStyle.Render(snap.Selected)
	if snap.LoadingTables || snap.LoadingRows {
		title += "  " + m.spin.View()
	}
	b.WriteString(title + "\n")

	if snap.TablesErr != "" {
		b.WriteString(errStyle.Render("tables: "+snap.TablesErr) + "\n")
	}
	if snap.RowsErr != "" {
		b.WriteString(errStyle.Render("rows: "+snap.RowsErr) + "\n")
	}

	b.WriteString(tableStyle.Render(m.grid.View()) + "\n")
	b.WriteString(m.statusLine() + "\n")

	switch m.mode {
	case modeEditComment:
		b.WriteString("comment: " + m.input.View() + "\n")
		b.WriteString(helpStyle.Render("enter save · esc cancel") + "\n")
	case modeFilter:
		b.WriteString("filter: " + m.filter.View() + "\n")
		b.WriteString(helpStyle.Render("enter/esc done") + "\n")
	default:
		b.WriteString(helpStyle.Render("[/] table · enter edit comment · space toggle flag · / filter · s sort · S reverse · r reload · q quit") + "\n")
	}
	return b.String()
}

// statusLine surfaces the save indicator and any cell error for the selected
// row.
func (m Model) statusLine() string {
	id, ok := m.selectedRowID()
	if !ok {
		return statusStyle.Render(fmt.Sprintf("%d rows", len(m.visible)))
	}

	parts := []string{fmt.Sprintf("%d rows", len(m.visible)), fmt.Sprintf("row %d", id)}
	for _, field := range []string{browser.FieldComment, browser.FieldNeedToSend} {
		key := browser.CellKey(id, field)
		switch m.ctrl.Indicator(key) {
		case browser.IndicatorSaving:
			parts = append(parts, savingStyle.Render(field+": saving…"))
		case browser.IndicatorSaved:
			parts = append(parts, savedStyle.Render(field+": saved"))
		}
		if msg, hasErr := m.ctrl.CellError(key); hasErr {
			parts = append(parts, errStyle.Render(field+": "+msg))
		}
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
