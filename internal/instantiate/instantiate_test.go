package instantiate

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/notify"
	"github.com/vango-dev/widgets/internal/widget"
)

type recordingExecutor struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (e *recordingExecutor) CreateInstance(ctx context.Context, req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return e.err
}

func newFlow(exec Executor) (*Flow, *notify.Recorder) {
	rec := &notify.Recorder{}
	d := NewDispatcher(Options{
		Executor:      exec,
		OriginLocator: "https://widgets.example.com/rest/widgets",
		Notifier:      rec,
	})
	return NewFlow(d), rec
}

func TestDispatcher_Instantiate(t *testing.T) {
	exec := &recordingExecutor{}
	d := NewDispatcher(Options{Executor: exec, OriginLocator: "origin", Notifier: notify.Discard})
	w := widget.Widget{ID: "w1", Name: "Greeting", Source: "Hello [name]"}

	if err := d.Instantiate(context.Background(), w, map[string]string{"name": "Ada"}, "div-1", "page-1"); err != nil {
		t.Fatal(err)
	}
	want := []Request{{
		Source:        "Hello [name]",
		TargetID:      "div-1",
		ContainerID:   "page-1",
		OriginLocator: "origin",
		Values:        map[string]string{"name": "Ada"},
	}}
	if !reflect.DeepEqual(exec.requests, want) {
		t.Errorf("requests = %+v, want %+v", exec.requests, want)
	}
}

func TestDispatcher_NilValuesBecomeEmpty(t *testing.T) {
	exec := &recordingExecutor{}
	d := NewDispatcher(Options{Executor: exec, Notifier: notify.Discard})
	if err := d.Instantiate(context.Background(), widget.Widget{ID: "w", Source: "x"}, nil, "t", "p"); err != nil {
		t.Fatal(err)
	}
	if exec.requests[0].Values == nil {
		t.Error("Values = nil, want empty map")
	}
}

func TestDispatcher_Errors(t *testing.T) {
	rec := &notify.Recorder{}
	d := NewDispatcher(Options{Executor: &recordingExecutor{err: fmt.Errorf("closed")}, Notifier: rec})
	if err := d.Instantiate(context.Background(), widget.Widget{ID: "w", Name: "W", Source: "x"}, nil, "t", "p"); err == nil {
		t.Fatal("expected executor error")
	}
	if rec.Count(notify.LevelError) != 1 {
		t.Errorf("notifications = %+v", rec.Messages())
	}

	d = NewDispatcher(Options{Notifier: notify.Discard})
	if err := d.Instantiate(context.Background(), widget.Widget{ID: "w", Source: "x"}, nil, "t", "p"); !errors.HasCode(err, "E240") {
		t.Errorf("no executor: error = %v, want E240", err)
	}
}

func TestFlow_NoPromptNeeded(t *testing.T) {
	tests := []struct {
		name string
		w    widget.Widget
	}{
		{"no tokens no config", widget.Widget{ID: "a", Source: "<hr>"}},
		{"tokens without config", widget.Widget{ID: "b", Source: "<p>[text]</p>"}},
		{"config without matching tokens", widget.Widget{ID: "c", Source: "<p>[text]</p>", Configuration: widget.Ptr(`{"other": {}}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &recordingExecutor{}
			f, _ := newFlow(exec)

			res, err := f.Begin(context.Background(), tt.w, "target", "page")
			if err != nil {
				t.Fatal(err)
			}
			if res.ShouldPrompt {
				t.Error("ShouldPrompt = true")
			}
			if f.State() != StateDispatched {
				t.Errorf("State() = %s, want dispatched", f.State())
			}
			if len(exec.requests) != 1 || len(exec.requests[0].Values) != 0 {
				t.Errorf("requests = %+v", exec.requests)
			}
			if exec.requests[0].Source != tt.w.Source {
				t.Errorf("Source = %q, want raw template", exec.requests[0].Source)
			}
		})
	}
}

func TestFlow_PromptSubmit(t *testing.T) {
	exec := &recordingExecutor{}
	f, _ := newFlow(exec)
	w := widget.Widget{
		ID:            "w1",
		Source:        "Hello [name] from [city], welcome to [city]!",
		Configuration: widget.Ptr(`{"name": {"type": "input", "default": "Guest"}, "city": {"type": "select", "options": ["Berlin", "Paris"]}}`),
	}

	res, err := f.Begin(context.Background(), w, "main", "page-9")
	if err != nil {
		t.Fatal(err)
	}
	if !res.ShouldPrompt || len(res.Fields) != 2 {
		t.Fatalf("resolution = %+v", res)
	}
	if f.State() != StatePromptOpen {
		t.Fatalf("State() = %s, want prompt-open", f.State())
	}
	if len(exec.requests) != 0 {
		t.Fatal("dispatched before submit")
	}

	if err := f.Submit(context.Background(), map[string]string{"city": "Paris", "injected": "x"}); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateDispatched {
		t.Errorf("State() = %s, want dispatched", f.State())
	}
	want := map[string]string{"name": "Guest", "city": "Paris"}
	if len(exec.requests) != 1 || !reflect.DeepEqual(exec.requests[0].Values, want) {
		t.Errorf("requests = %+v", exec.requests)
	}
	if exec.requests[0].Source != w.Source {
		t.Error("template source was modified")
	}

	// Dispatched is terminal.
	if err := f.Submit(context.Background(), nil); !errors.HasCode(err, "E221") {
		t.Errorf("second Submit error = %v, want E221", err)
	}
	if _, err := f.Begin(context.Background(), w, "main", "page-9"); !errors.HasCode(err, "E221") {
		t.Errorf("Begin after dispatch error = %v, want E221", err)
	}
	f.Reset()
	if f.State() != StateIdle {
		t.Errorf("State() after Reset = %s", f.State())
	}
}

func TestFlow_DescriptionForcesPrompt(t *testing.T) {
	exec := &recordingExecutor{}
	f, _ := newFlow(exec)
	w := widget.Widget{ID: "w", Source: "<hr>", Description: widget.Ptr("<p>Adds a divider.</p>")}

	res, err := f.Begin(context.Background(), w, "t", "p")
	if err != nil {
		t.Fatal(err)
	}
	if !res.ShouldPrompt || len(res.Fields) != 0 || f.State() != StatePromptOpen {
		t.Errorf("res = %+v state = %s", res, f.State())
	}
	if err := f.Submit(context.Background(), map[string]string{"x": "y"}); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests[0].Values) != 0 {
		t.Errorf("Values = %v, want empty", exec.requests[0].Values)
	}
}

func TestFlow_Cancel(t *testing.T) {
	exec := &recordingExecutor{}
	f, _ := newFlow(exec)
	w := widget.Widget{ID: "w", Source: "[a]", Configuration: widget.Ptr(`{"a": {}}`)}

	if _, err := f.Begin(context.Background(), w, "t", "p"); err != nil {
		t.Fatal(err)
	}
	if err := f.Cancel(); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %s, want idle", f.State())
	}
	if len(exec.requests) != 0 {
		t.Error("cancelled attempt dispatched")
	}
	if err := f.Cancel(); !errors.HasCode(err, "E221") {
		t.Errorf("Cancel while idle error = %v, want E221", err)
	}
	if err := f.Submit(context.Background(), nil); !errors.HasCode(err, "E221") {
		t.Errorf("Submit while idle error = %v, want E221", err)
	}

	if _, err := f.Begin(context.Background(), w, "t", "p"); err != nil {
		t.Errorf("Begin after cancel: %v", err)
	}
}

func TestFlow_MalformedConfiguration(t *testing.T) {
	exec := &recordingExecutor{}
	f, rec := newFlow(exec)
	w := widget.Widget{ID: "w", Source: "[name]", Configuration: widget.Ptr(`{"name": `)}

	_, err := f.Begin(context.Background(), w, "t", "p")
	if !errors.HasCode(err, "E201") {
		t.Fatalf("error = %v, want E201", err)
	}
	if len(exec.requests) != 0 {
		t.Error("dispatched despite parse error")
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %s, want idle", f.State())
	}
	msgs := rec.Messages()
	if len(msgs) != 1 || msgs[0].Level != notify.LevelError || msgs[0].Text != MsgInvalidConfig {
		t.Errorf("notifications = %+v", msgs)
	}
}

func TestFlow_EmptyTemplate(t *testing.T) {
	exec := &recordingExecutor{}
	f, rec := newFlow(exec)

	_, err := f.Begin(context.Background(), widget.Widget{ID: "w", Description: widget.Ptr("d")}, "t", "p")
	if !errors.HasCode(err, "E220") {
		t.Fatalf("error = %v, want E220", err)
	}
	if len(exec.requests) != 0 {
		t.Error("empty widget dispatched")
	}
	if rec.Count(notify.LevelWarning) != 1 || len(rec.Messages()) != 1 {
		t.Errorf("notifications = %+v, want exactly one warning", rec.Messages())
	}
	if rec.Messages()[0].Text != MsgEmptyWidget {
		t.Errorf("warning = %q", rec.Messages()[0].Text)
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %s", f.State())
	}
}

func TestFlow_DispatchFailureReturnsToIdle(t *testing.T) {
	exec := &recordingExecutor{err: fmt.Errorf("socket closed")}
	f, _ := newFlow(exec)

	if _, err := f.Begin(context.Background(), widget.Widget{ID: "w", Source: "x"}, "t", "p"); err == nil {
		t.Fatal("expected dispatch error")
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %s, want idle", f.State())
	}
}

func TestStateString(t *testing.T) {
	if StatePromptOpen.String() != "prompt-open" {
		t.Errorf("String() = %q", StatePromptOpen.String())
	}
	if State(42).String() != "State(42)" {
		t.Errorf("String() = %q", State(42).String())
	}
}
