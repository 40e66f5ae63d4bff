package form

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vango-dev/widgets/internal/params"
)

func heroResolution() params.Resolution {
	desc := "A large page header"
	return params.Resolution{
		ShouldPrompt: true,
		Description:  &desc,
		Fields: []params.Field{
			{Key: "title", Kind: params.KindInput, Default: "Welcome"},
			{Key: "body", Kind: params.KindTextarea},
			{Key: "size", Kind: params.KindSelect, ExplicitValues: true, Default: "lg", Options: []params.Option{
				{Value: "sm", Label: "Small"},
				{Value: "lg", Label: "Large"},
			}},
		},
	}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func TestDefaults(t *testing.T) {
	m := New("Hero", heroResolution())
	got := m.Values()
	want := map[string]string{"title": "Welcome", "body": "", "size": "lg"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestFillAndSubmit(t *testing.T) {
	m := New("Hero", heroResolution())

	send(m,
		key(tea.KeyTab),
		runes("Hello"),
		key(tea.KeyEnter),
		runes("world"),
		key(tea.KeyTab),
		key(tea.KeyRight),
	)
	if m.Submitted() {
		t.Fatal("submitted before the last field")
	}

	cmd := send(m, key(tea.KeyEnter))
	if !m.Submitted() || m.Cancelled() {
		t.Fatalf("submitted = %v, cancelled = %v", m.Submitted(), m.Cancelled())
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("submit did not quit")
	}

	got := m.Values()
	if got["title"] != "Welcome" {
		t.Errorf("title = %q", got["title"])
	}
	if got["body"] != "Hello\nworld" {
		t.Errorf("body = %q", got["body"])
	}
	if got["size"] != "sm" {
		t.Errorf("size = %q", got["size"])
	}
}

func TestEnterMovesToNextField(t *testing.T) {
	m := New("Hero", heroResolution())
	send(m, key(tea.KeyEnter))
	if m.Submitted() {
		t.Fatal("enter on the first field submitted the form")
	}
	if m.focus != 1 {
		t.Errorf("focus = %d, want 1", m.focus)
	}

	send(m, key(tea.KeyShiftTab), key(tea.KeyShiftTab))
	if m.focus != 2 {
		t.Errorf("focus after wrapping back = %d, want 2", m.focus)
	}
}

func TestCtrlSSubmitsFromAnyField(t *testing.T) {
	m := New("Hero", heroResolution())
	send(m, key(tea.KeyCtrlS))
	if !m.Submitted() {
		t.Error("ctrl+s did not submit")
	}
}

func TestCancel(t *testing.T) {
	m := New("Hero", heroResolution())
	send(m, runes("x"), key(tea.KeyEsc))
	if !m.Cancelled() || m.Submitted() {
		t.Errorf("submitted = %v, cancelled = %v", m.Submitted(), m.Cancelled())
	}
}

func TestDescriptionOnlyForm(t *testing.T) {
	desc := "Inserts a divider"
	m := New("Divider", params.Resolution{ShouldPrompt: true, Description: &desc})

	send(m, runes("ignored"))
	if m.Submitted() {
		t.Fatal("typing submitted the form")
	}
	send(m, key(tea.KeyEnter))
	if !m.Submitted() {
		t.Error("enter did not submit an empty form")
	}
	if len(m.Values()) != 0 {
		t.Errorf("values = %v", m.Values())
	}
}

func TestView(t *testing.T) {
	m := New("Hero", heroResolution())
	view := m.View()
	for _, want := range []string{"Hero", "A large page header", "title", "body", "size", "Large"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
