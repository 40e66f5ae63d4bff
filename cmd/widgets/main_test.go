package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/widgets/internal/config"
	"github.com/vango-dev/widgets/internal/pathtree"
	"github.com/vango-dev/widgets/internal/widget"
)

func TestParseSets(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[string]string
		wantErr bool
	}{
		{"none", nil, nil, false},
		{"pairs", []string{"title=Hi", "size=lg"}, map[string]string{"title": "Hi", "size": "lg"}, false},
		{"value with equals", []string{"expr=a=b"}, map[string]string{"expr": "a=b"}, false},
		{"empty value", []string{"title="}, map[string]string{"title": ""}, false},
		{"missing equals", []string{"title"}, nil, true},
		{"empty key", []string{"=x"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSets(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) || (tt.want == nil) != (got == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestRenderTree(t *testing.T) {
	tr := pathtree.New("_local")
	tr.Attach("Layout/Headers", "h1")
	tr.Attach("Layout", "l1")
	tr.Attach("", "u1")

	got := renderTree(tr, map[string]string{"h1": "Hero", "l1": "Grid"})
	for _, want := range []string{
		"├── Layout/",
		"│   ├── Headers/",
		"│   │   └── Hero (h1)",
		"│   └── Grid (l1)",
		"└── Uncategorized/",
		"    └── u1 (u1)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("tree missing %q:\n%s", want, got)
		}
	}
}

func TestSourceDiff(t *testing.T) {
	got := sourceDiff("<div>\n<h1>old</h1>\n</div>\n", "<div>\n<h1>new</h1>\n</div>\n")
	for _, want := range []string{"  <div>", "- <h1>old</h1>", "+ <h1>new</h1>", "  </div>"} {
		if !strings.Contains(got, want) {
			t.Errorf("diff missing %q:\n%s", want, got)
		}
	}
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		if got := confirm(strings.NewReader(in), "Save?"); got != want {
			t.Errorf("confirm(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "id", "w1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"id":"w1"`) {
		t.Errorf("output = %s", out)
	}
}

func TestPrintWidgets(t *testing.T) {
	var buf bytes.Buffer
	printWidgets(&buf, []widget.Widget{
		{ID: "a", Name: "Hero", Source: "<h1>[title]</h1>", TreePath: widget.Ptr("Layout"), Configuration: widget.Ptr(`{}`)},
		{ID: "b", Name: "Blank"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[1], "Layout") || !strings.Contains(lines[1], "yes") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "empty") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestPrintWidgetBrokenConfiguration(t *testing.T) {
	var buf bytes.Buffer
	err := printWidget(&buf, widget.Widget{ID: "x", Name: "X", Source: "[a]", Configuration: widget.Ptr("[1,")})
	if err == nil {
		t.Fatal("expected a configuration error")
	}
}

func TestInitAndOfflineEdit(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(dir, "", "", false); err != nil {
		t.Fatal(err)
	}
	if err := runInit(dir, "", "", false); err == nil {
		t.Error("second init without --force succeeded")
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Remote.Disabled = true

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{logNotices: true})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.loadAll(ctx); err != nil {
		t.Fatal(err)
	}

	w, err := a.registry.Lookup("example-hero")
	if err != nil {
		t.Fatal(err)
	}
	if w.Path() != "Layout/Headers" {
		t.Errorf("tree path = %q", w.Path())
	}
	var buf bytes.Buffer
	if err := printWidget(&buf, w); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "title") || !strings.Contains(buf.String(), "options sm lg") {
		t.Errorf("details = %s", buf.String())
	}

	if err := a.registry.EditSource(ctx, "example-hero", "<h1>[title]</h1>"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.DefaultLocalStore, "example-hero.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"source": "\u003ch1\u003e[title]\u003c/h1\u003e"`) {
		t.Errorf("stored file = %s", data)
	}

	added, err := a.registry.AddLocal(ctx, "Signup", "Forms")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultLocalStore, added.ID+".json")); err != nil {
		t.Errorf("new widget file: %v", err)
	}
	if node, ok := a.registry.LocalTree().Lookup("/forms_local"); !ok || len(node.Widgets) != 1 {
		t.Errorf("forms folder = %+v", node)
	}
}
