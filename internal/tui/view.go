package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuisplit/internal/durfmt"
	"github.com/verte-zerg/tuisplit/internal/session"
	"github.com/verte-zerg/tuisplit/internal/timer"
)

const (
	defaultWidth = 48
	maxWidth     = 72
	deltaWidth   = 10
	timeWidth    = 12
	markerWidth  = 2
)

// View implements tea.Model.
func (m *Model) View() string {
	st := m.themes.current()
	width := m.contentWidth()

	sections := []string{
		m.renderHeader(st, width),
		st.rule.Render(strings.Repeat("─", width)),
		m.renderSplits(st, width),
	}
	if m.snap.PageCount > 1 {
		page := fmt.Sprintf("page %d/%d", m.snap.Page+1, m.snap.PageCount)
		sections = append(sections, st.muted.Render(lipgloss.PlaceHorizontal(width, lipgloss.Right, page)))
	}
	sections = append(sections,
		m.renderTimer(st, width),
		m.renderFooter(st, width),
	)
	m.help.ShowAll = m.snap.ShowHelp
	sections = append(sections, "", m.help.View(m.keys))
	if m.status != "" {
		sections = append(sections, st.muted.Render(m.status))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return max(min(m.width-2, maxWidth), markerWidth+deltaWidth+timeWidth+4)
}

func (m *Model) renderHeader(st styles, width int) string {
	title := st.title.Render(truncate(m.snap.Title, width))
	attempts := fmt.Sprintf("#%d", m.snap.Attempts)
	catWidth := max(width-runewidth.StringWidth(attempts)-1, 1)
	category := runewidth.FillRight(truncate(m.snap.Category, catWidth), catWidth)
	line := st.split.Render(category) + " " + st.muted.Render(attempts)
	return lipgloss.JoinVertical(lipgloss.Left, title, line)
}

func (m *Model) renderSplits(st styles, width int) string {
	if m.snap.SplitCount == 0 {
		return st.muted.Render("no splits")
	}
	nameWidth := max(width-markerWidth-deltaWidth-timeWidth, 4)
	lines := make([]string, 0, len(m.snap.Rows))
	for _, row := range m.snap.Rows {
		lines = append(lines, m.renderRow(st, row, nameWidth))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(st styles, row session.Row, nameWidth int) string {
	marker := "  "
	nameStyle := st.split
	if row.Current {
		marker = "> "
		nameStyle = st.selected
	}
	name := runewidth.FillRight(truncate(row.Name, nameWidth), nameWidth)

	delta := ""
	deltaStyle := st.muted
	if d, ok := row.Delta.Get(); ok {
		delta = durfmt.Format(d, durfmt.SignAlways)
		deltaStyle = m.deltaStyle(st, d)
	}

	value := ""
	valueStyle := st.split
	if row.Live {
		value = durfmt.Format(row.Segment.Or(0), durfmt.SignNegative)
		valueStyle = st.timer.UnsetPadding()
	} else if t, ok := row.Time.Get(); ok {
		value = durfmt.FormatLong(t)
	} else if pb, ok := row.PB.Get(); ok {
		value = durfmt.FormatLong(pb)
		valueStyle = st.muted
	}

	return nameStyle.Render(marker+name) +
		deltaStyle.Render(padLeft(delta, deltaWidth)) +
		valueStyle.Render(padLeft(value, timeWidth))
}

// deltaStyle colors a segment delta. Gold mode compares against best
// segments, so beating the comparison is a new gold.
func (m *Model) deltaStyle(st styles, d time.Duration) lipgloss.Style {
	switch {
	case d < 0 && m.snap.GoldMode:
		return st.gold
	case d < 0:
		return st.ahead
	default:
		return st.behind
	}
}

func (m *Model) renderTimer(st styles, width int) string {
	style := st.timer
	switch m.snap.State {
	case timer.NotStarted:
		style = style.Foreground(st.split.GetForeground())
	case timer.Paused:
		style = style.Foreground(st.muted.GetForeground())
	case timer.Running:
		if m.liveBehind() {
			style = style.Foreground(st.behind.GetForeground())
		}
	}
	text := durfmt.FormatClock(m.snap.Time)
	return style.Render(lipgloss.PlaceHorizontal(width, lipgloss.Right, text))
}

func (m *Model) liveBehind() bool {
	for _, row := range m.snap.Rows {
		if !row.Live {
			continue
		}
		if d, ok := row.Delta.Get(); ok && d > 0 {
			return true
		}
	}
	return false
}

func (m *Model) renderFooter(st styles, width int) string {
	pb := durfmt.Placeholder
	if v, ok := m.snap.PersonalBest.Get(); ok {
		pb = durfmt.FormatLong(v)
	}
	rows := [][2]string{
		{"Sum of Best", durfmt.FormatLong(m.snap.SumOfBest)},
		{"Best Possible", durfmt.FormatLong(m.snap.BestPossible)},
		{"Personal Best", pb},
	}
	if m.snap.GoldsImproved > 0 {
		rows = append(rows, [2]string{"New golds", fmt.Sprintf("%d", m.snap.GoldsImproved)})
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		labelWidth := max(width-timeWidth, 1)
		label := runewidth.FillRight(truncate(r[0], labelWidth), labelWidth)
		lines = append(lines, st.muted.Render(label)+st.split.Render(padLeft(r[1], timeWidth)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func padLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}
