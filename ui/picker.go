package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"
	"github.com/ughealth/healthguide/internal/catalog"
)

type pickerItem struct {
	id     string
	label  string
	detail string
}

type searchFunc func(query string) []pickerItem

func searchLanguages(query string) []pickerItem {
	langs := catalog.SearchLanguages(query)
	items := make([]pickerItem, 0, len(langs))
	for _, l := range langs {
		items = append(items, pickerItem{id: l.Code, label: l.Name, detail: l.NativeName})
	}
	return items
}

func searchTopics(query string) []pickerItem {
	topics := catalog.SearchTopics(query)
	items := make([]pickerItem, 0, len(topics))
	for _, t := range topics {
		items = append(items, pickerItem{id: t.Key, label: t.Title})
	}
	return items
}

// pickerModel is a short, filterable list of choices.
type pickerModel struct {
	title    string
	search   searchFunc
	rows     int
	items    []pickerItem
	cursor   int
	selected string

	filter    textinput.Model
	filtering bool
	width     int
}

func newPickerModel(title string, search searchFunc) pickerModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.PromptStyle = pickerCursorStyle
	ti.CharLimit = 32

	items := search("")
	return pickerModel{
		title:  title,
		search: search,
		rows:   len(items),
		items:  items,
		filter: ti,
	}
}

func (m *pickerModel) setWidth(w int) {
	m.width = w
	m.filter.Width = max(0, w-4)
}

func (m pickerModel) current() (pickerItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return pickerItem{}, false
	}
	return m.items[m.cursor], true
}

func (m *pickerModel) moveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *pickerModel) moveDown() {
	if m.cursor < len(m.items)-1 {
		m.cursor++
	}
}

func (m *pickerModel) startFiltering() tea.Cmd {
	m.filtering = true
	return m.filter.Focus()
}

func (m *pickerModel) stopFiltering() {
	m.filtering = false
	m.filter.Blur()
}

func (m *pickerModel) resetFilter() {
	m.stopFiltering()
	m.filter.Reset()
	m.applyFilter()
}

func (m *pickerModel) applyFilter() {
	m.items = m.search(m.filter.Value())
	m.cursor = min(m.cursor, max(0, len(m.items)-1))
}

// updateFiltering handles keys while the filter input has focus.
func (m pickerModel) updateFiltering(msg tea.KeyMsg, keys keyMap) (pickerModel, tea.Cmd) {
	switch {
	case msg.String() == keyEsc:
		m.resetFilter()
		return m, nil
	case key.Matches(msg, keys.Select):
		m.stopFiltering()
		return m, nil
	case msg.String() == "up":
		m.moveUp()
		return m, nil
	case msg.String() == "down":
		m.moveDown()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
		m.applyFilter()
	}
	return m, cmd
}

func (m pickerModel) view(focused bool) string {
	var b strings.Builder

	title := pickerTitleStyle.Render(m.title)
	if focused {
		title = pickerFocusedTitleStyle.Render(m.title)
	}
	b.WriteString(title + "\n")

	for i := range m.rows {
		if i < len(m.items) {
			b.WriteString(m.rowView(m.items[i], focused && i == m.cursor))
		} else if i == 0 {
			b.WriteString(subtleStyle.Render("  No matches"))
		}
		b.WriteString("\n")
	}

	switch {
	case m.filtering:
		b.WriteString(m.filter.View())
	case m.filter.Value() != "":
		b.WriteString(subtleStyle.Render("filter: " + m.filter.Value()))
	}
	return b.String()
}

func (m pickerModel) rowView(item pickerItem, underCursor bool) string {
	gutter := "  "
	if underCursor {
		gutter = pickerCursorStyle.Render("› ")
	}

	marker := "  "
	label := item.label
	if item.id == m.selected {
		marker = pickerSelectedStyle.Render("● ")
		label = pickerSelectedStyle.Render(label)
	}

	row := gutter + marker + label
	if item.detail != "" {
		row += " " + pickerDetailStyle.Render("("+item.detail+")")
	}
	if m.width > 0 {
		row = truncate.StringWithTail(row, uint(m.width), ellipsis) //nolint:gosec
	}
	return row
}
