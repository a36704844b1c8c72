// Package tui renders the live focusd dashboard. It never touches daemon
// internals: everything it shows comes from the status file and the
// persisted summaries, polled on a tick.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/focusd/internal/daemon"
	"github.com/christopherklint97/focusd/internal/summary"
)

const pollInterval = 2 * time.Second

// Status snapshots older than this are treated as a dead daemon.
const staleAfter = 90 * time.Second

type tickMsg time.Time

type Watch struct {
	summaries *summary.Generator

	status  *daemon.Status
	today   *summary.Summary
	spinner spinner.Model
}

func NewWatch(summaries *summary.Generator) Watch {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Watch{
		summaries: summaries,
		spinner:   sp,
	}
}

func (m Watch) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), poll())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type polledMsg struct {
	status *daemon.Status
}

func poll() tea.Cmd {
	return func() tea.Msg {
		status, err := daemon.ReadStatus()
		if err != nil {
			return polledMsg{}
		}
		return polledMsg{status: status}
	}
}

func (m Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(tick(), poll())

	case polledMsg:
		m.status = msg.status
		if s, err := m.summaries.Load(time.Now()); err == nil && s != nil {
			m.today = s
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Watch) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("focusd"))
	b.WriteString("\n")

	b.WriteString(boxStyle.Render(m.statusView()))
	b.WriteString("\n")

	if m.today != nil {
		b.WriteString(boxStyle.Render(m.summaryView()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

func (m Watch) statusView() string {
	if m.status == nil || time.Since(m.status.UpdatedAt) > staleAfter {
		return dimStyle.Render("daemon not running")
	}
	if m.status.State == "waiting" {
		return fmt.Sprintf("%s waiting for first screenshot", m.spinner.View())
	}
	if !m.status.Running {
		return dimStyle.Render("daemon stopped")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status:   %s\n", styleFor(m.status.State)(m.status.State))
	fmt.Fprintf(&b, "Activity: %s\n", m.status.Activity)
	fmt.Fprintf(&b, "Streak:   %s for %s",
		m.status.StreakStatus, formatDuration(time.Duration(m.status.StreakSeconds)*time.Second))
	if m.status.TopApp != "" {
		fmt.Fprintf(&b, "\nTop app:  %s", m.status.TopApp)
	}
	return b.String()
}

func (m Watch) summaryView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today:    %.1f (%s)\n", m.today.Score, highlightStyle.Render(m.today.Ranking))
	fmt.Fprintf(&b, "Checks:   %d  Tracked: %d min", m.today.Checks, m.today.TrackedMinutes)
	for i, app := range m.today.TopApps {
		if i == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n  %s %s", dimStyle.Render(fmt.Sprintf("%5.1f min", app.Minutes)), app.App)
	}
	return b.String()
}

func styleFor(state string) func(...string) string {
	switch state {
	case "on_task":
		return onTaskStyle.Render
	case "off_task":
		return offTaskStyle.Render
	case "break":
		return breakStyle.Render
	default:
		return dimStyle.Render
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
