// Package ui provides the interactive terminal health guide.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"
	"github.com/muesli/reflow/wordwrap"
	"github.com/ughealth/healthguide/internal/catalog"
	"github.com/ughealth/healthguide/internal/guide"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied"
	ellipsis             = "…"
	keyEsc               = "esc"
	statusBarHeight      = 1
	minResultHeight      = 3

	appTitle    = "Uganda Health Guide"
	appSubtitle = "Access important health information in your local language with high-quality voice narration"
	footerText  = "Powered by Sunbird Translate API & ElevenLabs Text-to-Speech"
	setupText   = "To enable real translation and text-to-speech, configure your Sunbird Translate API token and ElevenLabs API key in your environment variables."
)

// Deps are the services the TUI drives.
type Deps struct {
	Guide *guide.Guide

	// Events carries playback events published through the guide's Notify
	// option. It may be nil.
	Events <-chan guide.SpeechEvent

	// SetupRequired reports whether a provider credential is missing. It is
	// asked on every render so reloaded credentials show up immediately.
	SetupRequired func() bool
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug(
		"Starting healthguide",
		"glamour",
		cfg.GlamourEnabled,
		"engine",
		cfg.Engine,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, deps), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	translationDoneMsg      guide.Outcome
	speechDoneMsg           guide.SpeechResult
	speechEventMsg          guide.SpeechEvent
	contentRenderedMsg      string
	statusMessageTimeoutMsg struct{}
)

// focus is the pane receiving navigation keys.
type focus int

const (
	focusLanguages focus = iota
	focusTopics
	focusResult
	focusCount
)

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common        *commonModel
	guide         *guide.Guide
	events        <-chan guide.SpeechEvent
	setupRequired func() bool

	focus     focus
	languages pickerModel
	topics    pickerModel
	result    resultModel
	pending   guide.Request

	spinner  spinner.Model
	keys     keyMap
	help     help.Model
	showHelp bool

	statusMessage      string
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, deps Deps) model {
	if cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}
	if deps.SetupRequired == nil {
		deps.SetupRequired = func() bool { return false }
	}

	common := commonModel{cfg: cfg}

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	h := help.New()
	h.Styles = help.Styles{
		Ellipsis:       lipgloss.NewStyle(),
		ShortKey:       lipgloss.NewStyle(),
		ShortDesc:      lipgloss.NewStyle(),
		ShortSeparator: lipgloss.NewStyle(),
		FullKey:        lipgloss.NewStyle(),
		FullDesc:       lipgloss.NewStyle(),
		FullSeparator:  lipgloss.NewStyle(),
	}

	m := model{
		common:        &common,
		guide:         deps.Guide,
		events:        deps.Events,
		setupRequired: deps.SetupRequired,
		languages:     newPickerModel("Select Language", searchLanguages),
		topics:        newPickerModel("Select Health Topic", searchTopics),
		result:        newResultModel(&common),
		spinner:       sp,
		keys:          newKeyMap(),
		help:          h,
	}

	st := m.guide.State()
	m.languages.selected = st.Language
	m.topics.selected = st.Topic
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(appTitle),
		waitForSpeechEvent(m.events),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			m.layout()
			return m, cmd
		}
		if m.focus != focusResult {
			return m, nil
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.layout()
		cmds = append(cmds, renderWithGlamour(m.result))

	case translationDoneMsg:
		o := guide.Outcome(msg)
		m.guide.CompleteTranslation(o)
		if st := m.guide.State(); !st.Translating && o.ID == m.pending.ID && st.Translation == o.Text {
			m.result.setDocument(m.pending.Language, m.pending.Topic, o.Text)
			m.layout()
			cmds = append(cmds, renderWithGlamour(m.result))
		}

	case speechDoneMsg:
		m.guide.CompleteSpeech(guide.SpeechResult(msg))

	case speechEventMsg:
		m.guide.HandleSpeechEvent(guide.SpeechEvent(msg))
		cmds = append(cmds, waitForSpeechEvent(m.events))

	case contentRenderedMsg:
		m.result.setContent(string(msg))

	case errMsg:
		// Show the document unrendered.
		m.result.setContent(m.result.markdown())
		cmds = append(cmds, m.showStatusMessage("Unable to render translation"))

	case statusMessageTimeoutMsg:
		m.statusMessage = ""

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.result.viewport, cmd = m.result.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.layout()
	return m, tea.Batch(cmds...)
}

// handleKey reports whether the key was consumed. Unconsumed keys scroll the
// result when it has focus.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// Ctrl+C always quits no matter where in the application you are.
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}

	p := m.focusedPicker()

	// pass through all keys if we're editing a filter
	if p != nil && p.filtering {
		var cmd tea.Cmd
		*p, cmd = p.updateFiltering(msg, m.keys)
		return cmd, true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp

	case msg.String() == keyEsc:
		switch {
		case m.showHelp:
			m.showHelp = false
		case p != nil && p.filter.Value() != "":
			p.resetFilter()
		}

	case key.Matches(msg, m.keys.NextFocus):
		m.focus = (m.focus + 1) % focusCount

	case key.Matches(msg, m.keys.PrevFocus):
		m.focus = (m.focus + focusCount - 1) % focusCount

	case key.Matches(msg, m.keys.Up) && p != nil:
		p.moveUp()

	case key.Matches(msg, m.keys.Down) && p != nil:
		p.moveDown()

	case key.Matches(msg, m.keys.Filter) && p != nil:
		return p.startFiltering(), true

	case key.Matches(msg, m.keys.Select) && p != nil:
		m.selectCurrent()

	case key.Matches(msg, m.keys.Translate):
		return m.startTranslation(), true

	case key.Matches(msg, m.keys.Speak):
		return m.toggleSpeech(), true

	case key.Matches(msg, m.keys.Stop):
		m.guide.StopSpeech()

	case key.Matches(msg, m.keys.Dismiss):
		m.guide.DismissError()

	case key.Matches(msg, m.keys.Copy):
		return m.copyTranslation(), true

	case msg.String() == "ctrl+z":
		return tea.Suspend, true

	default:
		return nil, false
	}
	return nil, true
}

func (m *model) focusedPicker() *pickerModel {
	switch m.focus { //nolint:exhaustive
	case focusLanguages:
		return &m.languages
	case focusTopics:
		return &m.topics
	}
	return nil
}

func (m *model) selectCurrent() {
	switch m.focus { //nolint:exhaustive
	case focusLanguages:
		item, ok := m.languages.current()
		if !ok {
			return
		}
		if err := m.guide.SelectLanguage(item.id); err != nil {
			log.Error("unable to select language", "lang", item.id, "error", err)
			return
		}
		m.languages.selected = item.id
		if m.topics.selected == "" {
			m.focus = focusTopics
		}

	case focusTopics:
		item, ok := m.topics.current()
		if !ok {
			return
		}
		if err := m.guide.SelectTopic(item.id); err != nil {
			log.Error("unable to select topic", "topic", item.id, "error", err)
			return
		}
		m.topics.selected = item.id
	}
}

func (m *model) startTranslation() tea.Cmd {
	if !translateEnabled(m.guide.State()) {
		return nil
	}
	req, err := m.guide.BeginTranslation()
	if err != nil {
		log.Debug("translation not started", "error", err)
		return nil
	}
	log.Debug("translation started", "lang", req.Language.Code, "topic", req.Topic.Key, "demo", req.Demo)

	m.pending = req
	m.result.clear()
	return tea.Batch(m.spinner.Tick, translateCmd(m.guide, req))
}

func (m *model) toggleSpeech() tea.Cmd {
	if m.guide.State().GeneratingAudio {
		return nil
	}
	req, started, err := m.guide.ToggleSpeech()
	if err != nil {
		log.Debug("speech not started", "error", err)
		return nil
	}
	if !started {
		return nil
	}
	return tea.Batch(m.spinner.Tick, speakCmd(m.guide, req))
}

func (m *model) copyTranslation() tea.Cmd {
	text := m.guide.State().Translation
	if text == "" {
		return m.showStatusMessage("Nothing to copy")
	}
	// Copy using OSC 52
	te.Copy(text)
	// Copy using native system clipboard
	if err := clipboard.WriteAll(text); err != nil {
		log.Debug("unable to write to system clipboard", "error", err)
	}
	return m.showStatusMessage("Copied translation")
}

func (m *model) quit() tea.Cmd {
	m.guide.StopSpeech()
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	return tea.Quit
}

func (m model) busy() bool {
	st := m.guide.State()
	return st.Translating || st.GeneratingAudio
}

// layout sizes the panes for the current window and state.
func (m *model) layout() {
	w := m.common.width
	col := max(0, (w-6)/2)
	m.languages.setWidth(col)
	m.topics.setWidth(col)
	m.help.Width = w

	h := m.common.height -
		lipgloss.Height(m.topView()) -
		lipgloss.Height(m.footerView()) -
		statusBarHeight
	if m.result.hasDocument() {
		h--
	}
	if m.showHelp {
		h -= lipgloss.Height(m.helpView())
	}
	m.result.setSize(max(0, w-4), max(minResultHeight, h))
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.topView() + "\n")
	if m.result.hasDocument() {
		b.WriteString(indentLines(m.resultHeaderView(), 2) + "\n")
		b.WriteString(indentLines(m.result.viewport.View(), 2) + "\n")
	}
	b.WriteString(m.footerView() + "\n")

	m.statusBarView(&b)

	if m.showHelp {
		b.WriteString("\n" + m.helpView())
	}
	return b.String()
}

func (m model) topView() string {
	st := m.guide.State()
	width := max(0, m.common.width-4)

	sections := []string{
		"",
		titleStyle.Render(appTitle),
		subtitleStyle.Render(wrap(appSubtitle, width)),
		"",
		m.pickersView(),
	}
	if preview := previewView(st, width); preview != "" {
		sections = append(sections, "", preview)
	}
	sections = append(sections, "", m.translateButtonView(st))
	if st.Err != "" {
		sections = append(sections, "", errorView(st.Err, width))
	}
	if m.setupRequired() {
		sections = append(sections, "", setupView(width))
	}
	sections = append(sections, "")

	return indentLines(strings.Join(sections, "\n"), 2)
}

func (m model) pickersView() string {
	left := lipgloss.NewStyle().Width(m.languages.width).
		Render(m.languages.view(m.focus == focusLanguages))
	right := m.topics.view(m.focus == focusTopics)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func previewView(st guide.State, width int) string {
	t, ok := catalog.TopicByKey(st.Topic)
	if !ok {
		return ""
	}
	return previewTitleStyle.Render(t.Title+" (English preview)") + "\n" +
		subtleStyle.Render(wrap(t.Preview(), width))
}

func (m model) translateButtonView(st guide.State) string {
	label := translateLabel(st)
	if !translateEnabled(st) {
		s := buttonDisabledStyle.Render(label)
		if st.Translating {
			s = m.spinner.View() + " " + s
		}
		return s
	}
	return buttonStyle.Render(label) + " " + subtleStyle.Render("press t")
}

func (m model) resultHeaderView() string {
	st := m.guide.State()
	s := resultHeaderStyle.Render(m.result.header())

	control := speechControlStyle.Render(speechLabel(st))
	if st.GeneratingAudio {
		control = m.spinner.View() + " " + control
	} else {
		control += subtleStyle.Render(" (space)")
	}
	s += "  " + control

	if st.Demo {
		s += "  " + subtleStyle.Render("demo text")
	}
	return s
}

func (m model) footerView() string {
	return indentLines(footerStyle.Render(footerText), 2)
}

func errorView(msg string, width int) string {
	s := fmt.Sprintf("%s %s\n%s",
		errorTitleStyle.Render("ERROR"),
		msg,
		subtleStyle.Render("press x to dismiss"),
	)
	return errorBoxStyle.Width(max(0, width-4)).Render(s)
}

func setupView(width int) string {
	s := lipgloss.NewStyle().Bold(true).Render("API Setup Required:") + " " + setupText
	return setupBoxStyle.Width(max(0, width-4)).Render(s)
}

// translateLabel is the text of the translate control.
func translateLabel(st guide.State) string {
	if st.Translating {
		return "Translating..."
	}
	if l, ok := catalog.LanguageByCode(st.Language); ok {
		return "Translate to " + l.Name
	}
	return "Translate to Selected Language"
}

// translateEnabled reports whether the translate control accepts input.
func translateEnabled(st guide.State) bool {
	return !st.Translating && st.Language != "" && st.Topic != ""
}

// speechLabel is the text of the play/stop control.
func speechLabel(st guide.State) string {
	switch {
	case st.GeneratingAudio:
		return "Generating..."
	case st.Playing:
		return "■ Stop"
	default:
		return "▶ Listen"
	}
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

// COMMANDS

func translateCmd(g *guide.Guide, req guide.Request) tea.Cmd {
	return func() tea.Msg {
		return translationDoneMsg(g.Translate(context.Background(), req))
	}
}

func speakCmd(g *guide.Guide, req guide.SpeechRequest) tea.Cmd {
	return func() tea.Msg {
		return speechDoneMsg(g.Speak(req))
	}
}

func waitForSpeechEvent(ch <-chan guide.SpeechEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return speechEventMsg(ev)
	}
}
