package menu

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputModel asks for one line of text.
type inputModel struct {
	title     string
	hint      string
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newInputModel(title, hint, placeholder, value string) inputModel {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = "> "
	input.SetValue(value)
	input.Focus()
	return inputModel{title: title, hint: hint, input: input}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return titleStyle.Render(m.title) + "\n\n" + m.input.View() + "\n\n" + hintStyle.Render(m.hint) + "\n"
}

// value returns the trimmed input, and false when the user cancelled.
func (m inputModel) value() (string, bool) {
	if !m.submitted {
		return "", false
	}
	return strings.TrimSpace(m.input.Value()), true
}

// confirmModel asks a yes/no question. Enter means yes; esc means no.
type confirmModel struct {
	title    string
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Yes), key.Matches(keyMsg, keys.Confirm):
		m.answer, m.done = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.No):
		m.answer, m.done = false, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return titleStyle.Render(m.title) + "\n\n" + m.question + " " + hintStyle.Render("[Y/n]") + "\n"
}
