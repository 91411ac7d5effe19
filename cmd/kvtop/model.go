package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Refresh key.Binding
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
}

var keys = keyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Refresh, k.Quit},
	}
}

var columns = []table.Column{
	{Title: "Node", Width: 6},
	{Title: "Address", Width: 22},
	{Title: "Leader", Width: 8},
	{Title: "Alive", Width: 16},
	{Title: "Keys", Width: 8},
	{Title: "Fan-out", Width: 8},
	{Title: "Writes", Width: 10},
}

type model struct {
	poller   *poller
	interval time.Duration
	table    table.Model
	help     help.Model
	keys     keyMap
	results  []nodeResult
	updated  time.Time
	width    int
}

type tickMsg time.Time

type statusMsg []nodeResult

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) pollCmd() tea.Cmd {
	p := m.poller
	return func() tea.Msg {
		return statusMsg(p.poll(context.Background()))
	}
}

func initialModel(p *poller, interval time.Duration) model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(len(p.addrs)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return model{
		poller:   p,
		interval: interval,
		table:    t,
		help:     help.New(),
		keys:     keys,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tickCmd(m.interval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.pollCmd(), tickCmd(m.interval))

	case statusMsg:
		m.results = msg
		m.updated = time.Now()
		m.table.SetRows(buildRows(m.results))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.pollCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("cluso-kv cluster"))
	s.WriteString("\n")
	s.WriteString(contentStyle.Render(m.table.View()))
	s.WriteString("\n")
	s.WriteString(contentStyle.Render(summarize(m.results)))
	s.WriteString("\n")

	if !m.updated.IsZero() {
		s.WriteString(helpStyle.Render("updated " + m.updated.Format(time.TimeOnly)))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

// buildRows renders one table row per node.
func buildRows(results []nodeResult) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, table.Row{"?", r.Addr, "-", "-", "-", "-", "down"})
			continue
		}

		st := r.Status
		leader := "none"
		if st.LeaderID >= 0 {
			leader = strconv.Itoa(st.LeaderID)
			if st.IsLeader {
				leader += " *"
			}
		}
		writes := "ok"
		if st.WritesHalted {
			writes = "halted"
		}

		rows = append(rows, table.Row{
			strconv.Itoa(st.NodeID),
			r.Addr,
			leader,
			joinInts(st.Alive),
			strconv.Itoa(st.Keys),
			strconv.Itoa(st.FanOutInFlight),
			writes,
		})
	}
	return rows
}

// summarize reports whether reachable nodes agree on a single leader.
func summarize(results []nodeResult) string {
	if len(results) == 0 {
		return helpStyle.Render("waiting for first poll...")
	}

	leaders := make(map[int]bool)
	down := 0
	for _, r := range results {
		if r.Err != nil {
			down++
			continue
		}
		leaders[r.Status.LeaderID] = true
	}

	var line string
	switch {
	case len(leaders) == 0:
		return errorStyle.Render("no node reachable")
	case len(leaders) == 1:
		for id := range leaders {
			if id < 0 {
				line = warnStyle.Render("no leader elected")
			} else {
				line = successStyle.Render(fmt.Sprintf("leader %d agreed", id))
			}
		}
	default:
		line = errorStyle.Render(fmt.Sprintf("split brain: %d different leaders", len(leaders)))
	}

	if down > 0 {
		line += "  " + warnStyle.Render(fmt.Sprintf("%d unreachable", down))
	}
	return line
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
