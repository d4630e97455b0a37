package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"scripttimer/internal/scheduler"
)

type listItem struct {
	title  string
	meta   string
	filter string
	index  int
}

type policyOption struct {
	Kind  scheduler.PolicyKind
	Label string
	Meta  string
}

var policyOptions = []policyOption{
	{Kind: scheduler.PolicyCloseAfter, Label: "Run now, close after a duration", Meta: "close after"},
	{Kind: scheduler.PolicyRepeatEvery, Label: "Run now and repeat on an interval", Meta: "repeat every"},
	{Kind: scheduler.PolicyStartAt, Label: "Run at a time of day (once or daily)", Meta: "start at"},
}

func (m *model) setPolicyItems() {
	m.searchInput.SetValue("")
	items := make([]listItem, 0, len(policyOptions))
	for i, option := range policyOptions {
		items = append(items, listItem{
			title:  option.Label,
			meta:   option.Meta,
			filter: strings.ToLower(option.Label + " " + option.Meta),
			index:  i,
		})
	}
	m.all = items
	m.applyFilter()
}

func (m *model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, m.selectCurrent()
		case "up":
			m.moveCursor(-1)
			return m, nil
		case "down":
			m.moveCursor(1)
			return m, nil
		case "home":
			m.cursor = 0
			m.ensureCursorVisible()
			return m, nil
		case "end":
			m.cursor = max(0, len(m.items)-1)
			m.ensureCursorVisible()
			return m, nil
		}
	}
	prev := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() != prev {
		m.applyFilter()
	}
	return m, cmd
}

func (m *model) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.searchInput.Value()))
	if query == "" {
		m.items = append([]listItem(nil), m.all...)
	} else {
		filtered := make([]listItem, 0, len(m.all))
		for _, item := range m.all {
			if strings.Contains(item.filter, query) {
				filtered = append(filtered, item)
			}
		}
		m.items = filtered
	}

	m.cursor = clamp(m.cursor, 0, max(0, len(m.items)-1))
	m.ensureCursorVisible()
}

func (m *model) selectCurrent() tea.Cmd {
	if len(m.items) == 0 {
		return nil
	}
	item := m.items[m.cursor]
	if item.index < 0 || item.index >= len(policyOptions) {
		return nil
	}
	m.kind = policyOptions[item.index].Kind
	switch m.kind {
	case scheduler.PolicyStartAt:
		m.startTimeStage()
	default:
		m.startDurationStage()
	}
	return nil
}

func (m *model) moveCursor(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.items)-1)
	m.ensureCursorVisible()
}

func (m *model) ensureCursorVisible() {
	visible := m.visibleCount()
	if m.cursor < m.offset {
		m.offset = m.cursor
		return
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m model) visibleCount() int {
	// banner, tagline, target header, prompt, search, rule, blank, help
	available := m.height - (len(bannerLines) + 7)
	if available < 3 {
		return 3
	}
	return available
}

func (m model) visibleRange() (int, int) {
	if len(m.items) == 0 {
		return 0, 0
	}
	start := clamp(m.offset, 0, len(m.items)-1)
	end := min(len(m.items), start+m.visibleCount())
	return start, end
}

func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
