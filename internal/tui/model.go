// Package tui presents a deck in the terminal with Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"pitchdeck/internal/keys"
	"pitchdeck/internal/presenter"
)

const defaultTitle = "pitchdeck"

// Options tune the terminal renderer.
type Options struct {
	// Style is a glamour style name, or "auto".
	Style string
	// WordWrap is used until the first window size is known.
	WordWrap int
	// CopyText writes to the system clipboard. Defaults to clipboard.WriteAll.
	CopyText func(string) error
}

// slideChangedMsg tells the model the controller moved, possibly because of
// input from another renderer.
type slideChangedMsg struct{}

// Model is the Bubble Tea model of the terminal presenter.
type Model struct {
	ctrl   *presenter.Controller
	stream *keys.Stream
	opts   Options
	keys   keyMap

	renderer *glamour.TermRenderer
	viewport viewport.Model
	progress progress.Model
	help     help.Model
	showHelp bool

	// shown is the slide index rendered into the viewport, -1 when stale.
	shown  int
	notice string
	width  int
	height int
	err    error
}

// New returns a model presenting ctrl. Navigation keys are published to
// stream; ctrl must be mounted on it for them to have an effect.
func New(ctrl *presenter.Controller, stream *keys.Stream, opts Options) Model {
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}
	m := Model{
		ctrl:     ctrl,
		stream:   stream,
		opts:     opts,
		keys:     defaultKeys,
		viewport: viewport.New(opts.WordWrap, 20),
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		shown:    -1,
	}
	m.renderer, m.err = newRenderer(opts.Style, opts.WordWrap)
	return m
}

func newRenderer(style string, wrap int) (*glamour.TermRenderer, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r, nil
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return slideChangedMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Update renderer word wrap based on terminal width
		if r, err := newRenderer(m.opts.Style, max(msg.Width-4, 20)); err == nil {
			m.renderer = r
		}
		m.progress.Width = max(msg.Width-4, 1)
		m.resizeViewport()
		m.shown = -1
		return m.refresh()

	case slideChangedMsg:
		return m.refresh()

	case tea.KeyMsg:
		m.notice = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
			m.stream.Publish(keys.Parse(msg.String()))
			return m.refresh()

		case key.Matches(msg, m.keys.Copy):
			if err := m.opts.CopyText(m.ctrl.Current().Body); err != nil {
				m.notice = "copy failed: " + err.Error()
			} else {
				m.notice = "copied slide to clipboard"
			}
			return m, nil

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			m.resizeViewport()
			return m, nil

		case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	// FrameMsg is sent when the progress bar wants to animate itself
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// refresh re-renders the current slide if it changed and animates the
// progress bar towards the controller's progress.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	st := m.ctrl.Snapshot()
	if st.Index != m.shown {
		m.viewport.SetContent(m.render(st.Slide.Body))
		m.viewport.GotoTop()
		m.shown = st.Index
	}
	return m, m.progress.SetPercent(st.Progress)
}

func (m Model) render(body string) string {
	if m.renderer == nil {
		return body
	}
	rendered, err := m.renderer.Render(body)
	if err != nil {
		return "Error rendering markdown: " + err.Error()
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *Model) resizeViewport() {
	m.viewport.Width = m.width
	// Reserve the status line, the progress bar and the help block.
	m.viewport.Height = max(m.height-2-m.helpHeight(), 0)
}

func (m Model) helpHeight() int {
	if !m.showHelp {
		return 0
	}
	return lipgloss.Height(m.help.View(m.keys))
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress 'q' to quit.", m.err)
	}
	if m.width == 0 {
		return "Loading slides...\n\nPress 'q' to quit."
	}

	content := m.viewport.View()
	parts := []string{content, m.statusLine(), m.progress.View()}
	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	return strings.Join(parts, "\n")
}

func (m Model) statusLine() string {
	statusStyle := lipgloss.NewStyle().
		Width(m.width).
		Background(lipgloss.Color("240")).
		Foreground(lipgloss.Color("15")).
		Padding(0, 1)

	statusLeft := m.ctrl.Counter()
	statusRight := m.notice
	if statusRight == "" {
		statusRight = m.ctrl.Deck().Title()
	}
	if statusRight == "" {
		statusRight = defaultTitle
	}

	// Account for padding (2 on each side)
	availableWidth := m.width - 4
	leftWidth := lipgloss.Width(statusLeft)

	// If text is too long, truncate the right side
	if leftWidth+lipgloss.Width(statusRight) > availableWidth {
		maxRight := availableWidth - leftWidth - 4 // Reserve 4 spaces for spacing
		if maxRight < 10 {
			statusRight = defaultTitle
		} else {
			statusRight = truncate(statusRight, maxRight)
		}
	}

	remainingSpace := availableWidth - leftWidth - lipgloss.Width(statusRight)
	var statusContent string
	if remainingSpace > 0 {
		statusContent = statusLeft + strings.Repeat(" ", remainingSpace+2) + statusRight
	} else {
		// Minimal spacing if very tight
		statusContent = statusLeft + " " + statusRight
	}
	return statusStyle.Render(statusContent)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// Run presents ctrl until the user quits or ctx is cancelled. The controller
// is mounted on stream for exactly the lifetime of the program.
func Run(ctx context.Context, ctrl *presenter.Controller, stream *keys.Stream, opts Options) error {
	release := ctrl.Mount(stream)
	defer release()

	p := tea.NewProgram(New(ctrl, stream, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	// Send blocks until the event loop reads the message, and observers may
	// run on the event loop itself.
	remove := ctrl.OnChange(func(presenter.State) {
		go p.Send(slideChangedMsg{})
	})
	defer remove()

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
