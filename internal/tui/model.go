// Package tui provides the Bubble Tea timer interface.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuisplit/internal/session"
)

const (
	tickInterval  = 33 * time.Millisecond
	statusTimeout = 3 * time.Second
)

// Controller is the session surface the interface drives.
type Controller interface {
	Split()
	Start()
	Pause()
	Reset()
	SavePB() error
	UndoSplit()
	UndoPB()
	NextPage()
	PrevPage()
	ToggleHelp()
	Snapshot() session.Snapshot
}

type tickMsg time.Time

// Model implements the Bubble Tea timer UI. It owns no attempt state; every
// frame is rendered from a session snapshot.
type Model struct {
	ctrl   Controller
	themes *ThemeStore
	keys   keyMap
	help   help.Model

	width  int
	height int

	snap        session.Snapshot
	status      string
	statusUntil time.Time
}

// NewModel constructs a timer UI model.
func NewModel(ctrl Controller, themes *ThemeStore) *Model {
	if themes == nil {
		themes = NewThemeStore(DefaultTheme(), nil)
	}
	m := &Model{
		ctrl:   ctrl,
		themes: themes,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
	m.snap = ctrl.Snapshot()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		m.snap = m.ctrl.Snapshot()
		if !m.statusUntil.IsZero() && time.Time(msg).After(m.statusUntil) {
			m.status = ""
			m.statusUntil = time.Time{}
		}
		return m, tick()
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.snap = m.ctrl.Snapshot()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Split):
		m.ctrl.Split()
	case key.Matches(msg, m.keys.Start):
		m.ctrl.Start()
	case key.Matches(msg, m.keys.Pause):
		m.ctrl.Pause()
	case key.Matches(msg, m.keys.Reset):
		m.ctrl.Reset()
	case key.Matches(msg, m.keys.SavePB):
		if err := m.ctrl.SavePB(); err != nil {
			m.setStatus("save failed: " + err.Error())
		} else {
			m.setStatus("saved")
		}
	case key.Matches(msg, m.keys.UndoSplit):
		m.ctrl.UndoSplit()
	case key.Matches(msg, m.keys.UndoPB):
		m.ctrl.UndoPB()
		m.setStatus("restored splits from backup")
	case key.Matches(msg, m.keys.PrevPage):
		m.ctrl.PrevPage()
	case key.Matches(msg, m.keys.NextPage):
		m.ctrl.NextPage()
	case key.Matches(msg, m.keys.ToggleHelp):
		m.ctrl.ToggleHelp()
	}
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusUntil = time.Now().Add(statusTimeout)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
