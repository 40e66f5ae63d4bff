package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Success("saved")
	r.Warning("Ignoring empty Widget")
	r.Error("boom")
	r.Warning("again")

	if got := r.Count(LevelWarning); got != 2 {
		t.Errorf("Count(warning) = %d, want 2", got)
	}
	msgs := r.Messages()
	if len(msgs) != 4 || msgs[0] != (Message{LevelSuccess, "saved"}) {
		t.Errorf("Messages() = %+v", msgs)
	}
	if drained := r.Drain(); len(drained) != 4 {
		t.Errorf("Drain() returned %d", len(drained))
	}
	if len(r.Messages()) != 0 {
		t.Error("Drain did not clear")
	}
}

func TestConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	c := Console{Out: &out, Err: &errOut}
	c.Success("Widget source saved.")
	c.Info("loading")
	c.Error("Cannot parse Widget configuration")

	if !strings.Contains(out.String(), "Widget source saved.") || !strings.Contains(out.String(), "loading") {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Cannot parse Widget configuration") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if strings.Contains(out.String(), "Cannot parse") {
		t.Error("error written to stdout")
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	l.Warning("Ignoring empty Widget")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "notification=warning") {
		t.Errorf("log output = %q", out)
	}
}
