package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// progressMsg reports completed work items.
type progressMsg struct {
	done, total int
}

// finishedMsg carries the outcome of the background work.
type finishedMsg struct {
	err error
}

// progressModel is the bubbletea model for a running comparison.
type progressModel struct {
	label    string
	cancel   context.CancelFunc
	done     int
	total    int
	progress progress.Model
	theme    Theme
	finished bool
	quitting bool
	err      error
}

func newProgressModel(label string, cancel context.CancelFunc) progressModel {
	return progressModel{
		label:    label,
		cancel:   cancel,
		progress: progress.New(progress.WithDefaultBlend(), progress.WithWidth(40)),
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// The worker sees the cancelled context and reports back
			// through finishedMsg.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case progressMsg:
		m.done, m.total = msg.done, msg.total
		return m, nil

	case finishedMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.finished {
		if m.quitting {
			return m.theme.hintStyle().Render("Cancelled.") + "\n"
		}
		return ""
	}
	if m.quitting {
		return m.theme.hintStyle().Render("Cancelling...") + "\n"
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	status := m.theme.titleStyle().Render(m.label)
	counts := fmt.Sprintf("%d/%d", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runWithProgress runs work, showing a progress bar on stderr when it is a
// terminal and interactive is true. Cancelling from the UI cancels the
// context passed to work; its error is returned as is.
func runWithProgress(ctx context.Context, stderr io.Writer, interactive bool, label string, work func(ctx context.Context, onProgress func(done, total int)) error) error {
	if !interactive || !isTerminal(stderr) {
		return work(ctx, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, cancel), tea.WithOutput(stderr))

	go func() {
		err := work(ctx, func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		})
		p.Send(finishedMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := final.(progressModel)
	if !ok {
		return errors.New("progress UI: unexpected model")
	}
	return m.err
}
