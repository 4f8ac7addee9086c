// Package ui provides the interactive plan preview.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/nibzard/sheetplan/internal/plan"
)

// LoadFunc re-reads the previewed plan, typically by decoding its source again.
type LoadFunc func() (*plan.Plan, error)

// PreviewOption configures the preview behavior.
type PreviewOption func(*previewConfig)

type previewConfig struct {
	confirm  bool
	reload   LoadFunc
	interval time.Duration
	source   string
}

// WithConfirm asks the user to accept the plan with enter or y.
// RunPreview then reports whether it was accepted.
func WithConfirm(enabled bool) PreviewOption {
	return func(c *previewConfig) {
		c.confirm = enabled
	}
}

// WithReload refreshes the plan from load every interval and on r.
func WithReload(load LoadFunc, interval time.Duration) PreviewOption {
	return func(c *previewConfig) {
		c.reload = load
		c.interval = interval
	}
}

// WithSource names the file the plan came from in the footer.
func WithSource(path string) PreviewOption {
	return func(c *previewConfig) {
		c.source = path
	}
}

// RunPreview shows p in a full-screen viewer. It returns true only when
// confirmation is enabled and the user accepted the plan.
func RunPreview(ctx context.Context, p *plan.Plan, opts ...PreviewOption) (bool, error) {
	if !IsTTY(os.Stdout) {
		return false, fmt.Errorf("preview requires a TTY")
	}

	model := newPreviewModel(p, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return false, err
	}
	if m, ok := finalModel.(*previewModel); ok {
		return m.confirmed, nil
	}
	return false, nil
}

type previewModel struct {
	cfg       previewConfig
	plan      *plan.Plan
	loadErr   error
	filter    string // status filter, "" shows all
	showHelp  bool
	confirmed bool
	viewport  viewport.Model
	ready     bool
}

type tickMsg time.Time

func newPreviewModel(p *plan.Plan, opts ...PreviewOption) *previewModel {
	cfg := previewConfig{interval: time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = time.Second
	}
	return &previewModel{cfg: cfg, plan: p}
}

func (m *previewModel) Init() tea.Cmd {
	if m.cfg.reload == nil {
		return nil
	}
	return tickCmd(m.cfg.interval)
}

func (m *previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter", "y":
			if m.cfg.confirm && m.plan != nil && m.loadErr == nil {
				m.confirmed = true
				return m, tea.Quit
			}
			return m, nil
		case "r", "f5":
			m.refresh()
			return m, nil
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "1":
			m.setFilter(plan.StatusNotStarted)
			return m, nil
		case "2":
			m.setFilter(plan.StatusInProgress)
			return m, nil
		case "3":
			m.setFilter(plan.StatusCompleted)
			return m, nil
		case "0":
			m.setFilter("")
			return m, nil
		}
	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.bodyView())
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.cfg.interval)
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *previewModel) View() string {
	body := m.bodyView()
	if m.ready {
		body = m.viewport.View()
	}
	return m.headerView() + "\n" + body + "\n" + m.footerView()
}

func (m *previewModel) setFilter(status string) {
	m.filter = status
	m.syncContent()
}

func (m *previewModel) refresh() {
	if m.cfg.reload == nil {
		return
	}
	p, err := m.cfg.reload()
	if err != nil {
		m.loadErr = err
	} else {
		m.loadErr = nil
		m.plan = p
	}
	m.syncContent()
}

func (m *previewModel) syncContent() {
	if m.ready {
		m.viewport.SetContent(m.bodyView())
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dayStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func (m *previewModel) headerView() string {
	var b strings.Builder
	title := "Plan Preview"
	if m.plan != nil {
		title = m.plan.Title
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	if m.plan != nil {
		p := m.plan
		counts := p.Counts()
		fmt.Fprintf(&b, "%s to %s  %d tasks, %d completed (%.0f%%)\n",
			p.StartDate.Format("2006-01-02"),
			p.EndDate.Format("2006-01-02"),
			p.TotalTasks, p.CompletedTasks, p.Progress,
		)
		fmt.Fprintf(&b, "Not Started: %d  In Progress: %d  Completed: %d\n",
			counts[plan.StatusNotStarted],
			counts[plan.StatusInProgress],
			counts[plan.StatusCompleted],
		)
	}
	if m.filter != "" {
		fmt.Fprintf(&b, "Filter: %s (0 to clear)\n", m.filter)
	}
	return b.String()
}

func (m *previewModel) bodyView() string {
	var b strings.Builder

	if m.showHelp {
		writeHelp(&b, m.cfg.confirm)
		return b.String()
	}
	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Error loading plan:") + "\n")
		b.WriteString("  " + m.loadErr.Error() + "\n")
		return b.String()
	}
	if m.plan == nil {
		b.WriteString("Loading...\n")
		return b.String()
	}

	shown := 0
	for _, day := range m.plan.Days() {
		var tasks []plan.Task
		for _, t := range m.plan.TasksOn(day) {
			if m.filter == "" || strings.EqualFold(t.Status, m.filter) {
				tasks = append(tasks, t)
			}
		}
		if len(tasks) == 0 {
			continue
		}
		b.WriteString(dayStyle.Render(day.Format("Mon 2006-01-02")) + "\n")
		for i := range tasks {
			b.WriteString(formatTask(&tasks[i]))
		}
		b.WriteString("\n")
		shown += len(tasks)
	}
	if shown == 0 {
		b.WriteString(mutedStyle.Render("  No tasks to show.") + "\n")
	}
	return b.String()
}

func (m *previewModel) footerView() string {
	parts := []string{"h help", "q quit"}
	if m.cfg.confirm {
		parts = append([]string{"enter save"}, parts...)
	}
	if m.cfg.source != "" {
		parts = append(parts, m.cfg.source)
	}
	return mutedStyle.Render(strings.Join(parts, " | "))
}

func writeHelp(b *strings.Builder, confirm bool) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, esc       Quit\n")
	if confirm {
		b.WriteString("  enter, y     Save the plan\n")
	}
	b.WriteString("  r, F5        Reload\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  1            Filter by not started\n")
	b.WriteString("  2            Filter by in progress\n")
	b.WriteString("  3            Filter by completed\n")
	b.WriteString("  0            Clear filter\n")
	b.WriteString("  up/down      Scroll\n")
}

func formatTask(t *plan.Task) string {
	icon := " "
	style := lipgloss.NewStyle()
	switch {
	case t.Completed:
		icon, style = "x", doneStyle
	case strings.EqualFold(t.Status, plan.StatusInProgress):
		icon, style = ">", progressStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s %s\n",
		style.Render("["+icon+"]"),
		t.Title,
		mutedStyle.Render(fmt.Sprintf("(%s, %dm)", t.Priority, t.EstimatedTime)),
	)
	if t.Description != "" {
		details := t.Description
		if len(details) > 60 {
			details = details[:57] + "..."
		}
		b.WriteString("      " + mutedStyle.Render(details) + "\n")
	}
	for _, s := range t.Subtasks {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "      [%s] %s\n", mark, s.Title)
	}
	return b.String()
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
