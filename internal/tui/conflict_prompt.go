package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/DanSnow/skill-manager/internal/conflict"
	"github.com/DanSnow/skill-manager/internal/i18n"
)

// ConflictOption is one of the three answers to a conflict
type ConflictOption struct {
	Decision    conflict.Decision
	Label       string
	Description string
}

type conflictKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Adopt  key.Binding
	Skip   key.Binding
	Abort  key.Binding
}

func (k conflictKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Abort}
}

func (k conflictKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Select}, {k.Adopt, k.Skip, k.Abort}}
}

func newConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", i18n.T("conflict.help.move", nil)),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", i18n.T("conflict.help.move", nil)),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", i18n.T("conflict.help.select", nil)),
		),
		Adopt: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", i18n.T("conflict.adopt.label", nil)),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", i18n.T("conflict.skip.label", nil)),
		),
		Abort: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", i18n.T("conflict.abort.label", nil)),
		),
	}
}

// ConflictModel is the bubbletea model asking how to settle one conflict
type ConflictModel struct {
	conflict  conflict.Conflict
	options   []ConflictOption
	cursor    int
	decision  conflict.Decision
	keys      conflictKeyMap
	help      help.Model
	confirmed bool
	width     int
}

// Prompt styles
var (
	conflictTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205")).
				MarginBottom(1)

	conflictOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	conflictSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57")).
				Bold(true).
				Padding(0, 1)

	conflictDescStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginLeft(4)

	conflictBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	basePinStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	otherPinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// NewConflictModel creates the prompt for c
func NewConflictModel(c conflict.Conflict) ConflictModel {
	data := map[string]any{
		"Key":        c.Key,
		"Base":       c.Base.Pin.String(),
		"Other":      c.Other.Pin.String(),
		"BaseLayer":  c.BaseLayer,
		"OtherLayer": c.OtherLayer,
	}
	options := []ConflictOption{
		{
			Decision:    conflict.Adopted,
			Label:       i18n.T("conflict.adopt.label", nil),
			Description: i18n.T("conflict.adopt.desc", data),
		},
		{
			Decision:    conflict.Skipped,
			Label:       i18n.T("conflict.skip.label", nil),
			Description: i18n.T("conflict.skip.desc", data),
		},
		{
			Decision:    conflict.Aborted,
			Label:       i18n.T("conflict.abort.label", nil),
			Description: i18n.T("conflict.abort.desc", nil),
		},
	}

	return ConflictModel{
		conflict: c,
		options:  options,
		decision: conflict.Aborted,
		keys:     newConflictKeyMap(),
		help:     help.New(),
	}
}

func (m ConflictModel) Init() tea.Cmd {
	return nil
}

func (m ConflictModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Abort):
			return m.choose(conflict.Aborted)
		case key.Matches(msg, m.keys.Adopt):
			return m.choose(conflict.Adopted)
		case key.Matches(msg, m.keys.Skip):
			return m.choose(conflict.Skipped)
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Select):
			return m.choose(m.options[m.cursor].Decision)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	}

	return m, nil
}

func (m ConflictModel) choose(d conflict.Decision) (tea.Model, tea.Cmd) {
	m.decision = d
	m.confirmed = true
	return m, tea.Quit
}

func (m ConflictModel) View() string {
	if m.confirmed {
		return ""
	}

	var b strings.Builder
	b.WriteString(conflictTitleStyle.Render(i18n.T("conflict.title", map[string]any{"Key": m.conflict.Key})))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %-8s %s\n", m.conflict.BaseLayer, basePinStyle.Render(m.conflict.Base.Pin.String()))
	fmt.Fprintf(&b, "  %-8s %s\n\n", m.conflict.OtherLayer, otherPinStyle.Render(m.conflict.Other.Pin.String()))

	for i, opt := range m.options {
		cursor := "  "
		style := conflictOptionStyle
		if i == m.cursor {
			cursor = "▸ "
			style = conflictSelectedStyle
		}
		b.WriteString(style.Render(cursor + opt.Label))
		b.WriteString("\n")
		b.WriteString(conflictDescStyle.Render(opt.Description))
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.View(m.keys))
	return conflictBoxStyle.Render(b.String())
}

// Decision returns the chosen decision. An unanswered prompt aborts.
func (m ConflictModel) Decision() conflict.Decision {
	if !m.confirmed {
		return conflict.Aborted
	}
	return m.decision
}

// Prompt decides conflicts by asking on the terminal
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// NewPrompt returns a prompt on stdin and stderr
func NewPrompt() *Prompt {
	return &Prompt{In: os.Stdin, Out: os.Stderr}
}

// Available reports whether stdin and stderr are terminals
func Available() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// Decide implements conflict.Decider
func (p *Prompt) Decide(ctx context.Context, c conflict.Conflict) (conflict.Decision, error) {
	program := tea.NewProgram(NewConflictModel(c),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	return final.(ConflictModel).Decision(), nil
}

// Decider returns the terminal prompt when policy is interactive and a
// terminal is attached. Otherwise the policy answers on its own, which for
// an interactive policy means every conflict is an error.
func Decider(policy conflict.Policy) conflict.Decider {
	if policy == conflict.Interactive && Available() {
		return NewPrompt()
	}
	return conflict.PolicyDecider{Policy: policy}
}
