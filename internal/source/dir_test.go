package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

func writeWidget(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDir_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeWidget(t, dir, "hero.json", `{"name": "Hero", "treePath": "Layout", "source": "<h1>[title]</h1>"}`)
	writeWidget(t, dir, "nav.json", `{"id": "nav-1", "name": "Nav", "treePath": "Chrome"}`)
	writeWidget(t, dir, "broken.json", `{"name": `)
	writeWidget(t, dir, "notes.txt", `not a widget`)
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := fetchAll(t, NewDir(dir, Options{Origin: widget.OriginLocal}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d widgets, want 2", len(got))
	}
	if got[0].ID != "nav-1" || got[1].ID != "hero" {
		t.Errorf("order = %s,%s, want nav-1,hero", got[0].ID, got[1].ID)
	}
	if got[1].Origin != widget.OriginLocal || got[1].Source != "<h1>[title]</h1>" {
		t.Errorf("hero = %+v", got[1])
	}
}

func TestDir_FetchPage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"delta", "Alpha", "charlie", "bravo"} {
		writeWidget(t, dir, name+".json", `{"name": "`+name+`"}`)
	}

	got, err := NewDir(dir, Options{}).FetchPage(context.Background(), 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, w := range got {
		names = append(names, w.Name)
	}
	if strings.Join(names, ",") != "Alpha,bravo,charlie" {
		t.Errorf("page 1 = %v", names)
	}
}

func TestDir_Missing(t *testing.T) {
	_, err := fetchAll(t, NewDir(filepath.Join(t.TempDir(), "nope"), Options{}))
	if !errors.HasCode(err, "E210") {
		t.Errorf("error = %v, want E210", err)
	}
}

func TestDir_Watch(t *testing.T) {
	dir := t.TempDir()
	writeWidget(t, dir, "old.json", `{"id": "legacy-id", "name": "Old"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 16)
	done := make(chan error, 1)
	d := NewDir(dir, Options{Origin: widget.OriginLocal})
	go func() {
		done <- d.Watch(ctx, func(c Change) { changes <- c })
	}()

	wait := func(match func(Change) bool) Change {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case c := <-changes:
				if match(c) {
					return c
				}
			case <-timeout:
				t.Fatal("timed out waiting for change")
			}
		}
	}

	// Give the watcher time to register before touching files.
	time.Sleep(100 * time.Millisecond)

	writeWidget(t, dir, "new.json", `{"name": "New", "treePath": "Fresh"}`)
	c := wait(func(c Change) bool { return c.Widget.ID == "new" && !c.Removed })
	if c.Widget.Path() != "Fresh" {
		t.Errorf("Path() = %q", c.Widget.Path())
	}

	if err := os.Remove(filepath.Join(dir, "old.json")); err != nil {
		t.Fatal(err)
	}
	wait(func(c Change) bool { return c.Widget.ID == "legacy-id" && c.Removed })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
