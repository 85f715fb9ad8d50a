// Package auditviewer is a Bubbletea viewer for the audit trail.
package auditviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/execute"
	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
)

const refreshInterval = 2 * time.Second

// Config holds viewer configuration
type Config struct {
	MaxRows int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{MaxRows: 1000}
}

// Model is the Bubbletea model for the audit viewer
type Model struct {
	// State
	width      int
	height     int
	ready      bool
	loading    bool
	paused     bool
	autoScroll bool
	err        error

	// Components
	viewport viewport.Model
	spinner  spinner.Model

	// Trail state
	trail        audit.Trail
	allRows      []Row
	filteredRows []Row
	statusFilter string // empty means all

	maxRows int
}

// New creates a viewer over trail.
func New(trail audit.Trail, cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return Model{
		spinner:    sp,
		trail:      trail,
		loading:    true,
		autoScroll: true,
		maxRows:    cfg.MaxRows,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadRecords,
		tea.EnterAltScreen,
		tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
			return tickMsg(t)
		}),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 4
		viewportHeight := msg.Height - headerHeight - footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case recordsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.allRows = msg.rows
			m.applyFilter()
			m.updateViewportContent()
			if m.autoScroll {
				m.viewport.GotoBottom()
			}
		}

	case tickMsg:
		if !m.paused {
			cmds = append(cmds, m.loadRecords)
		}
		cmds = append(cmds, tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
			return tickMsg(t)
		}))

	case refreshMsg:
		m.loading = true
		cmds = append(cmds, m.loadRecords, m.spinner.Tick)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "p":
		m.paused = !m.paused
		return m, nil

	case "enter":
		return m.Update(refreshMsg{})

	case "a":
		m.statusFilter = ""
	case "s":
		m.statusFilter = string(execute.StateSucceeded)
	case "r":
		m.statusFilter = string(execute.StateFailedRolledBack)
	case "n":
		m.statusFilter = string(execute.StateFailedNoRollback)

	case "end":
		m.autoScroll = true
		m.viewport.GotoBottom()
		return m, nil

	case "up", "down", "pgup", "pgdown", "home":
		m.autoScroll = false
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	default:
		return m, nil
	}

	m.applyFilter()
	m.updateViewportContent()
	return m, nil
}

// loadRecords queries the trail and flattens records into rows.
func (m Model) loadRecords() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recs, err := m.trail.Query(ctx, audit.Filter{Limit: m.maxRows})
	if err != nil {
		return recordsLoadedMsg{err: err}
	}

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rowFor(rec))
	}
	return recordsLoadedMsg{rows: rows}
}

// rowFor summarizes one record for display. Undecodable payloads still
// get a row; the trail is the source of truth, not the viewer.
func rowFor(rec audit.Record) Row {
	row := Row{
		Timestamp: rec.CreatedAt,
		PlanID:    rec.PlanID,
		Kind:      string(rec.Kind),
	}

	switch rec.Kind {
	case audit.KindIntent:
		var in intent.Intent
		if json.Unmarshal(rec.Payload, &in) == nil {
			row.Summary = fmt.Sprintf("%s %s", in.Verb, in.Target)
		}
	case audit.KindPlan:
		var p plan.Plan
		if json.Unmarshal(rec.Payload, &p) == nil {
			row.Summary = fmt.Sprintf("%d step(s), risk %s", len(p.Steps), p.Risk)
		}
	case audit.KindReport:
		var rep simulate.Report
		if json.Unmarshal(rec.Payload, &rep) == nil {
			row.Status = string(rep.Status)
			row.Summary = fmt.Sprintf("risk %s", rep.Risk)
		}
	case audit.KindResult:
		var res execute.Result
		if json.Unmarshal(rec.Payload, &res) == nil {
			row.Status = string(res.Status)
			row.Summary = fmt.Sprintf("%d step(s)", len(res.Steps))
			if res.RollbackInvoked {
				row.Summary += fmt.Sprintf(", %d rollback(s)", len(res.Rollbacks))
			}
		}
	}
	if row.Summary == "" {
		row.Summary = "(unreadable payload)"
	}
	return row
}

func (m *Model) applyFilter() {
	if m.statusFilter == "" {
		m.filteredRows = m.allRows
		return
	}
	filtered := make([]Row, 0, len(m.allRows))
	for _, row := range m.allRows {
		if row.Status == m.statusFilter {
			filtered = append(filtered, row)
		}
	}
	m.filteredRows = filtered
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, row := range m.filteredRows {
		b.WriteString(TimestampStyle.Render(row.Timestamp.Local().Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(RenderKindBadge(row.Kind))
		b.WriteString(" ")
		b.WriteString(PlanIDStyle.Render(shortID(row.PlanID)))
		b.WriteString(" ")
		if row.Status != "" {
			b.WriteString(RenderStatus(row.Status))
			b.WriteString(" ")
		}
		b.WriteString(SummaryStyle.Render(row.Summary))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// View renders the full screen
func (m Model) View() string {
	if !m.ready {
		return "\n  " + m.spinner.View() + " starting audit viewer..."
	}

	title := TitleStyle.Render("airlock audit trail")
	if m.loading {
		title += "  " + m.spinner.View()
	}
	if m.err != nil {
		title += "  " + statusFailStyle.Render("trail error: "+m.err.Error())
	}

	var status []string
	status = append(status, fmt.Sprintf("%d record(s)", len(m.filteredRows)))
	if m.paused {
		status = append(status, PausedStyle.Render("PAUSED"))
	}
	status = append(status,
		RenderFilterStatus("all", m.statusFilter == ""),
		RenderFilterStatus("succeeded", m.statusFilter == string(execute.StateSucceeded)),
		RenderFilterStatus("rolled-back", m.statusFilter == string(execute.StateFailedRolledBack)),
		RenderFilterStatus("no-rollback", m.statusFilter == string(execute.StateFailedNoRollback)),
	)
	statusBar := StatusBarStyle.Width(m.width).Render(strings.Join(status, "  "))

	help := HelpStyle.Render(strings.Join([]string{
		RenderKeyHint("a/s/r/n", "filter"),
		RenderKeyHint("p", "pause"),
		RenderKeyHint("enter", "refresh"),
		RenderKeyHint("q", "quit"),
	}, "  "))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		PanelStyle.Width(m.width-2).Render(m.viewport.View()),
		statusBar,
		help,
	)
}
