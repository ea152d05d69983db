package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	luabridge "github.com/wippyai/lua-bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxScrollback bounds how many evaluated entries the view keeps.
const maxScrollback = 100

type replModel struct {
	env     *luabridge.Environment
	input   textinput.Model
	entries []replEntry
	history []string
	histIdx int
	err     error
}

type replEntry struct {
	source string
	output string
	isErr  bool
}

type evalResultMsg struct {
	source string
	output string
	isErr  bool
}

func newReplModel(env *luabridge.Environment) *replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("lua> ")
	ti.Width = 78
	ti.Focus()

	return &replModel{
		env:   env,
		input: ti,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.env.Close()
			return m, tea.Quit

		case "enter":
			source := strings.TrimSpace(m.input.Value())
			if source == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.history = append(m.history, source)
			m.histIdx = len(m.history)
			return m, m.eval(source)

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			return m, nil
		}

	case evalResultMsg:
		m.entries = append(m.entries, replEntry{
			source: msg.source,
			output: msg.output,
			isErr:  msg.isErr,
		})
		if len(m.entries) > maxScrollback {
			m.entries = m.entries[len(m.entries)-maxScrollback:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// eval runs a line of input. An expression is tried as `return <line>`
// first so plain expressions print their value; statements fall through to
// execution as written.
func (m *replModel) eval(source string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.env.Run("return " + source)
		if err != nil {
			results, err = m.env.Run(source)
		}
		if err != nil {
			return evalResultMsg{source: source, output: err.Error(), isErr: true}
		}

		if len(results) == 0 {
			return evalResultMsg{source: source}
		}
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = formatValue(r)
		}
		return evalResultMsg{source: source, output: strings.Join(parts, "\t")}
	}
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lua Bridge"))
	b.WriteString("\n\n")

	for _, entry := range m.entries {
		b.WriteString(promptStyle.Render("lua> "))
		b.WriteString(entry.source)
		b.WriteString("\n")
		if entry.output != "" {
			if entry.isErr {
				b.WriteString(errorStyle.Render(entry.output))
			} else {
				b.WriteString(resultStyle.Render(entry.output))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ history • enter run • ctrl+c quit"))
	b.WriteString("\n")

	return b.String()
}

func runInteractive(opts []luabridge.Option) error {
	env, err := luabridge.New(opts...)
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}

	p := tea.NewProgram(newReplModel(env))
	_, err = p.Run()
	return err
}
