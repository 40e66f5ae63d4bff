// Package form renders a widget's parameter fields as an interactive
// terminal form.
//
// Input fields use a single-line text input, textarea fields a multi-line
// editor and select fields cycle through their options with left/right.
// Tab and shift+tab move between fields, ctrl+s or enter on the last
// single-line field submits, esc cancels.
package form

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vango-dev/widgets/internal/params"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	descStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#AAAAAA"))
	labelStyle     = lipgloss.NewStyle().Bold(true)
	focusStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	helpStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
	containerStyle = lipgloss.NewStyle().Padding(1, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62"))
)

// control is the editor of one field.
type control struct {
	field    params.Field
	input    textinput.Model
	area     textarea.Model
	selected int
}

func newControl(f params.Field) *control {
	c := &control{field: f}
	switch f.Kind {
	case params.KindTextarea:
		c.area = textarea.New()
		c.area.ShowLineNumbers = false
		c.area.SetHeight(4)
		c.area.SetValue(f.Default)
	case params.KindSelect:
		for i, o := range f.Options {
			if o.Value == f.Default {
				c.selected = i
				break
			}
		}
	default:
		c.input = textinput.New()
		c.input.Placeholder = f.Key
		c.input.SetValue(f.Default)
	}
	return c
}

func (c *control) value() string {
	switch c.field.Kind {
	case params.KindTextarea:
		return c.area.Value()
	case params.KindSelect:
		if len(c.field.Options) == 0 {
			return ""
		}
		return c.field.Options[c.selected].Value
	default:
		return c.input.Value()
	}
}

func (c *control) focus() tea.Cmd {
	switch c.field.Kind {
	case params.KindTextarea:
		return c.area.Focus()
	case params.KindSelect:
		return nil
	default:
		return c.input.Focus()
	}
}

func (c *control) blur() {
	switch c.field.Kind {
	case params.KindTextarea:
		c.area.Blur()
	case params.KindInput:
		c.input.Blur()
	}
}

func (c *control) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch c.field.Kind {
	case params.KindTextarea:
		c.area, cmd = c.area.Update(msg)
	case params.KindSelect:
		if key, ok := msg.(tea.KeyMsg); ok && len(c.field.Options) > 0 {
			n := len(c.field.Options)
			switch key.String() {
			case "left", "h":
				c.selected = (c.selected + n - 1) % n
			case "right", "l", " ":
				c.selected = (c.selected + 1) % n
			}
		}
	default:
		c.input, cmd = c.input.Update(msg)
	}
	return cmd
}

func (c *control) view(focused bool) string {
	label := labelStyle.Render(c.field.Key)
	if focused {
		label = focusStyle.Render("› " + c.field.Key)
	}
	switch c.field.Kind {
	case params.KindTextarea:
		return label + "\n" + c.area.View()
	case params.KindSelect:
		var opts []string
		for i, o := range c.field.Options {
			text := o.Label
			if i == c.selected {
				opts = append(opts, focusStyle.Render("["+text+"]"))
				continue
			}
			opts = append(opts, optionStyle.Render(text))
		}
		return label + "\n" + strings.Join(opts, "  ")
	default:
		return label + "\n" + c.input.View()
	}
}

// Model is the bubbletea model of a parameter form.
type Model struct {
	title       string
	description string
	controls    []*control
	focus       int
	submitted   bool
	cancelled   bool
}

// New creates a form for the fields of res.
func New(title string, res params.Resolution) *Model {
	m := &Model{title: title}
	if res.Description != nil {
		m.description = *res.Description
	}
	for _, f := range res.Fields {
		m.controls = append(m.controls, newControl(f))
	}
	if len(m.controls) > 0 {
		m.controls[0].focus()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if len(m.controls) == 0 {
			return m, nil
		}
		return m, m.controls[m.focus].update(msg)
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "ctrl+s":
		m.submitted = true
		return m, tea.Quit
	case "tab":
		return m, m.move(1)
	case "shift+tab":
		return m, m.move(-1)
	}

	if len(m.controls) == 0 {
		if key.String() == "enter" {
			m.submitted = true
			return m, tea.Quit
		}
		return m, nil
	}

	multiline := m.controls[m.focus].field.Kind == params.KindTextarea
	switch key.String() {
	case "down":
		if !multiline {
			return m, m.move(1)
		}
	case "up":
		if !multiline {
			return m, m.move(-1)
		}
	case "enter":
		if !multiline {
			if m.focus == len(m.controls)-1 {
				m.submitted = true
				return m, tea.Quit
			}
			return m, m.move(1)
		}
	}
	return m, m.controls[m.focus].update(msg)
}

func (m *Model) move(delta int) tea.Cmd {
	n := len(m.controls)
	if n == 0 {
		return nil
	}
	m.controls[m.focus].blur()
	m.focus = (m.focus + delta + n) % n
	return m.controls[m.focus].focus()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.description != "" {
		b.WriteString(descStyle.Render(m.description))
		b.WriteString("\n")
	}
	for i, c := range m.controls {
		b.WriteString("\n")
		b.WriteString(c.view(i == m.focus))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/shift+tab move • ←/→ choose • enter next • ctrl+s insert • esc cancel"))
	return containerStyle.Render(b.String())
}

// Values returns the current value of every field, keyed by field key.
func (m *Model) Values() map[string]string {
	out := make(map[string]string, len(m.controls))
	for _, c := range m.controls {
		out[c.field.Key] = c.value()
	}
	return out
}

// Submitted reports whether the form was submitted.
func (m *Model) Submitted() bool { return m.submitted }

// Cancelled reports whether the form was cancelled.
func (m *Model) Cancelled() bool { return m.cancelled }

// Run shows the form on the terminal and blocks until it is submitted or
// cancelled. ok is false when the user cancelled.
func Run(title string, res params.Resolution, opts ...tea.ProgramOption) (values map[string]string, ok bool, err error) {
	final, err := tea.NewProgram(New(title, res), opts...).Run()
	if err != nil {
		return nil, false, fmt.Errorf("parameter form: %w", err)
	}
	m := final.(*Model)
	if !m.submitted {
		return nil, false, nil
	}
	return m.Values(), true, nil
}
