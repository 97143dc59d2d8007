package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chase3718/patchthru/patch"
	"github.com/chase3718/patchthru/thru"
)

// Navigator is the patch navigation the TUI drives.
type Navigator interface {
	Current() (patch.Selection, bool)
	Increment(delta int) (patch.Selection, bool)
	Reset() (patch.Selection, bool)
	HasPatches() bool
	PeekNext() (patch.Patch, bool)
	PeekPrevious() (patch.Patch, bool)
}

// monitor is implemented by navigators that can report relay health.
type monitor interface {
	Stats() thru.Stats
	InputDone() <-chan struct{}
}

const refreshInterval = 500 * time.Millisecond

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#777"))
	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fff")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#a0f")).
			Padding(1, 4)
	sentinelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f80"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
)

type tickMsg time.Time

// FatalMsg stops the program because the relay can no longer run. The error
// is kept for Err so the caller can report it once the terminal is restored.
type FatalMsg struct {
	Err error
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the full-screen patch display: previous patch on top, the
// selected patch in the middle and the next patch below.
type Model struct {
	nav      Navigator
	keys     keyMap
	help     help.Model
	sentinel string
	width    int
	height   int
	quitting bool
	err      error
}

func New(nav Navigator) Model {
	return Model{
		nav:  nav,
		keys: defaultKeys(),
		help: help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.step(1)
		case key.Matches(msg, m.keys.Previous):
			m.step(-1)
		case key.Matches(msg, m.keys.Reset):
			m.reset()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			break
		}
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.step(1)
		case tea.MouseButtonRight:
			m.step(-1)
		}

	case FatalMsg:
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// Err returns the error that stopped the program, if any.
func (m Model) Err() error {
	return m.err
}

func (m *Model) step(delta int) {
	if !m.nav.HasPatches() {
		m.sentinel = "NO PATCHES"
		return
	}
	if _, ok := m.nav.Increment(delta); ok {
		m.sentinel = ""
		return
	}
	if delta < 0 {
		m.sentinel = "FIRST PATCH"
	} else {
		m.sentinel = "LAST PATCH"
	}
}

func (m *Model) reset() {
	if _, ok := m.nav.Reset(); ok {
		m.sentinel = "RESET"
	} else {
		m.sentinel = "NO PATCHES"
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var prev, next string
	if p, ok := m.nav.PeekPrevious(); ok {
		prev = p.Name
	}
	if p, ok := m.nav.PeekNext(); ok {
		next = p.Name
	}
	current := "No Patches"
	if sel, ok := m.nav.Current(); ok {
		current = fmt.Sprintf("#%d %s", sel.Number, sel.Patch.Name)
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		dimStyle.Render(prev),
		currentStyle.Render(current),
		dimStyle.Render(next),
		"",
		sentinelStyle.Render(m.sentinel),
		statusStyle.Render(m.statusLine()),
		m.help.View(m.keys),
	)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m Model) statusLine() string {
	mon, ok := m.nav.(monitor)
	if !ok {
		return ""
	}
	st := mon.Stats()
	input := "in: connected"
	select {
	case <-mon.InputDone():
		input = "in: none"
	default:
	}
	return fmt.Sprintf("%s  thru: %d  dropped: %d  sent: %d", input, st.Forwarded, st.Dropped, st.Sent)
}
