package sink

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// recordMsg carries one handled delivery into the model.
type recordMsg struct{ Record }

// statusMsg updates the header counters.
type statusMsg struct {
	running int
	done    bool
}

// maxLogLines bounds the in-memory scrollback.
const maxLogLines = 5000

// TUIWriter renders the delivery log in a full-screen bubbletea program.
type TUIWriter struct {
	program teaProgram
	done    chan struct{}
	onQuit  func()
	closing atomic.Bool
}

// NewTUIWriter starts the program. onQuit runs if the user quits before Close,
// so the caller can cancel the run.
func NewTUIWriter(title string, onQuit func()) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{}), onQuit: onQuit}
	p := tea.NewProgram(newTUIModel(title), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if !w.closing.Load() && w.onQuit != nil {
			w.onQuit()
		}
	}()
	return w
}

func (w *TUIWriter) WriteRecord(r Record) error {
	w.program.Send(recordMsg{r})
	return nil
}

// SetRunning updates the running-node counter shown in the header.
func (w *TUIWriter) SetRunning(n int) {
	w.program.Send(statusMsg{running: n})
}

// Close marks the run finished and stops the program.
func (w *TUIWriter) Close() error {
	w.closing.Store(true)
	w.program.Send(statusMsg{done: true})
	w.program.Send(tea.Quit())
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	title      string
	vp         viewport.Model
	logs       []string
	delivered  int
	malformed  int
	running    int
	finished   bool
	wrap       bool
	autoscroll bool
	height     int
}

func newTUIModel(title string) tuiModel {
	return tuiModel{
		title:      title,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case recordMsg:
		m.delivered++
		if msg.Malformed {
			m.malformed++
		}
		m.logs = append(m.logs, msg.Line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case statusMsg:
		if msg.done {
			m.finished = true
			m.running = 0
		} else {
			m.running = msg.running
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderBottom()) - 2
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render(m.title)
	state := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("running")
	if m.finished {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("finished")
	}
	bad := fmt.Sprint(m.malformed)
	if m.malformed > 0 {
		bad = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(bad)
	}
	return fmt.Sprintf("%s  %s  delivered=%d malformed=%s nodes=%d",
		title, state, m.delivered, bad, m.running)
}

func (m tuiModel) renderBottom() string {
	indicator := func(on bool) string {
		c := lipgloss.Color("9")
		if on {
			c = lipgloss.Color("10")
		}
		return lipgloss.NewStyle().Foreground(c).Render("●")
	}
	return fmt.Sprintf("%s wrap (w)  %s autoscroll (s)  quit (q)", indicator(m.wrap), indicator(m.autoscroll))
}
