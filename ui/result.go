package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ughealth/healthguide/internal/catalog"
	"github.com/ughealth/healthguide/utils"
)

// resultModel shows a translated topic.
type resultModel struct {
	common   *commonModel
	viewport viewport.Model

	language catalog.Language
	topic    catalog.Topic
	text     string
}

func newResultModel(common *commonModel) resultModel {
	vp := viewport.New(0, 0)
	// Space toggles speech.
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown", "f"))

	return resultModel{
		common:   common,
		viewport: vp,
	}
}

func (m *resultModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
}

func (m resultModel) hasDocument() bool {
	return m.text != ""
}

func (m *resultModel) setDocument(lang catalog.Language, topic catalog.Topic, text string) {
	m.language = lang
	m.topic = topic
	m.text = text
	m.viewport.SetContent(m.markdown())
	m.viewport.GotoTop()
}

func (m *resultModel) clear() {
	m.language = catalog.Language{}
	m.topic = catalog.Topic{}
	m.text = ""
	m.viewport.SetContent("")
	m.viewport.GotoTop()
}

func (m *resultModel) setContent(s string) {
	m.viewport.SetContent(s)
}

func (m resultModel) header() string {
	return fmt.Sprintf("Health Information in %s:", m.language.Name)
}

func (m resultModel) markdown() string {
	return resultMarkdown(m.topic.Title, m.text)
}

func resultMarkdown(title, text string) string {
	return "# " + title + "\n\n" + text + "\n"
}

// COMMANDS

func renderWithGlamour(m resultModel) tea.Cmd {
	if !m.hasDocument() {
		return nil
	}
	md := m.markdown()
	return func() tea.Msg {
		s, err := glamourRender(m, md)
		if err != nil {
			log.Error("error rendering with Glamour", "error", err)
			return errMsg{err}
		}
		return contentRenderedMsg(s)
	}
}

func glamourRender(m resultModel, markdown string) (string, error) {
	if !m.common.cfg.GlamourEnabled {
		return markdown, nil
	}

	width := m.viewport.Width
	if m.common.cfg.GlamourMaxWidth > 0 {
		width = min(int(m.common.cfg.GlamourMaxWidth), width) //nolint:gosec
	}

	r, err := glamour.NewTermRenderer(
		utils.GlamourStyle(m.common.cfg.GlamourStyle),
		glamour.WithWordWrap(max(0, width)),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}

	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}

	trunc := lipgloss.NewStyle().MaxWidth(m.viewport.Width).Render
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, l := range lines {
		lines[i] = trunc(l)
	}
	return strings.Join(lines, "\n"), nil
}
