package tui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the display colors as hex strings or ANSI color numbers.
type Theme struct {
	Timer    string
	Split    string
	Selected string
	Ahead    string
	Behind   string
	Gold     string
}

// DefaultTheme returns the built-in colors.
func DefaultTheme() Theme {
	return Theme{
		Timer:    "#F0F0F0",
		Split:    "#B0B0B0",
		Selected: "#C89A3A",
		Ahead:    "#3FB950",
		Behind:   "#FF4D4F",
		Gold:     "#FFD700",
	}
}

// withDefaults fills empty colors from DefaultTheme.
func (t Theme) withDefaults() Theme {
	def := DefaultTheme()
	fill := func(v *string, fallback string) {
		if *v == "" {
			*v = fallback
		}
	}
	fill(&t.Timer, def.Timer)
	fill(&t.Split, def.Split)
	fill(&t.Selected, def.Selected)
	fill(&t.Ahead, def.Ahead)
	fill(&t.Behind, def.Behind)
	fill(&t.Gold, def.Gold)
	return t
}

type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	timer    lipgloss.Style
	split    lipgloss.Style
	selected lipgloss.Style
	ahead    lipgloss.Style
	behind   lipgloss.Style
	gold     lipgloss.Style
	rule     lipgloss.Style
}

func newStyles(t Theme) styles {
	t = t.withDefaults()
	return styles{
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Timer)).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")),
		timer:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Timer)).Bold(true).Padding(1, 0),
		split:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Split)),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Selected)).Bold(true),
		ahead:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Ahead)),
		behind:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Behind)),
		gold:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Gold)),
		rule:     lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A")),
	}
}

// ThemeStore holds the active theme and reloads it on request.
type ThemeStore struct {
	mu     sync.RWMutex
	theme  Theme
	styles styles
	load   func() (Theme, error)
}

// NewThemeStore returns a store starting at theme. load is called by Reload;
// nil makes Reload a no-op.
func NewThemeStore(theme Theme, load func() (Theme, error)) *ThemeStore {
	return &ThemeStore{theme: theme, styles: newStyles(theme), load: load}
}

// Reload replaces the theme with a freshly loaded one. On error the current
// theme is kept.
func (s *ThemeStore) Reload() error {
	if s.load == nil {
		return nil
	}
	theme, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	s.styles = newStyles(theme)
	return nil
}

// Theme returns the active theme.
func (s *ThemeStore) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *ThemeStore) current() styles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.styles
}
