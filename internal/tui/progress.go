// Package tui renders a live batch progress screen on top of the pipeline's
// event stream. It is opt-in; the plain leveled log stays the default
// interface and keeps receiving every line through the file sink while the
// screen owns the terminal.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/regimelab/regimebatch/internal/display"
	"github.com/regimelab/regimebatch/internal/pipeline"
)

const maxFailuresShown = 20

// progressModel is the Bubble Tea model for the batch progress screen.
type progressModel struct {
	total     int
	plotted   int
	skipped   int
	failed    int
	plotBytes int64
	current   string
	failures  []string
	logPath   string
	done      bool
	cancelled bool
	cancel    context.CancelFunc
	events    <-chan pipeline.Event
	width     int
	height    int
}

func newProgressModel(logPath string, events <-chan pipeline.Event, cancel context.CancelFunc) *progressModel {
	return &progressModel{
		logPath:  logPath,
		cancel:   cancel,
		events:   events,
		failures: make([]string, 0, maxFailuresShown),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *progressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
			// The run stops between files; keep consuming events until the
			// final one arrives so the last frame shows the real counts.
			if !m.cancelled {
				m.cancelled = true
				m.cancel()
			}
		}
		return m, nil

	case pipeline.Event:
		switch msg.Kind {
		case pipeline.EventStart:
			m.total = msg.Total

		case pipeline.EventItemStart:
			m.current = fmt.Sprintf("[%d/%d] %s", msg.Index, msg.Total, msg.Input)

		case pipeline.EventItemDone:
			m.applyStats(msg.Stats)
			m.current = ""
			if msg.Status == pipeline.StatusFailed {
				reason := "failed"
				if msg.Err != nil {
					reason = msg.Err.Error()
				}
				m.failures = append(m.failures, filepath.Base(msg.Input)+": "+reason)
				if len(m.failures) > maxFailuresShown {
					m.failures = m.failures[len(m.failures)-maxFailuresShown:]
				}
			}

		case pipeline.EventBatchDone:
			m.applyStats(msg.Stats)
			m.current = ""
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	default:
		return m, nil
	}
}

func (m *progressModel) applyStats(s pipeline.RunStats) {
	m.total = s.Total
	m.plotted = s.Plotted
	m.skipped = s.Skipped
	m.failed = s.Failed
	m.plotBytes = s.PlotBytes
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString("  regimebatch\n\n")
	b.WriteString(fmt.Sprintf("  Plotted: %d  Skipped: %d  Failed: %d  Total: %d\n",
		m.plotted, m.skipped, m.failed, m.total))
	if m.current != "" && !m.done {
		b.WriteString("  Current: " + truncate(m.current, 60) + "\n")
	}
	if m.logPath != "" {
		b.WriteString("  Log file: " + m.logPath + "\n")
	}

	if len(m.failures) > 0 {
		b.WriteString("\n  Recent failures:\n")
		start := 0
		if len(m.failures) > 10 {
			start = len(m.failures) - 10
		}
		for i := start; i < len(m.failures); i++ {
			b.WriteString("    • " + truncate(m.failures[i], 70) + "\n")
		}
	}

	if m.cancelled && !m.done {
		b.WriteString("\n  Cancelling after the current file...\n")
	}
	if m.done {
		b.WriteString(fmt.Sprintf("\n  Done: %d plotted, %d skipped, %d failed (%s of plots)\n",
			m.plotted, m.skipped, m.failed, display.FormatBytes(m.plotBytes)))
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Run drives the progress screen until the batch emits its final event.
// It renders inline rather than on the alternate screen, so the last frame
// with the final counts stays visible in the scrollback after exit. cancel
// is invoked when the user asks to stop (q or ctrl+c).
func Run(logPath string, events <-chan pipeline.Event, cancel context.CancelFunc) error {
	p := tea.NewProgram(newProgressModel(logPath, events, cancel))
	_, err := p.Run()
	return err
}
