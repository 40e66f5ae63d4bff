package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

// Dir is a local widget store: one <id>.json file per widget. A file without
// an "id" field takes its name without extension as the ID.
type Dir struct {
	path   string
	origin widget.Origin
	logger *slog.Logger
}

// NewDir creates a source reading the widget files in path.
func NewDir(path string, opts Options) *Dir {
	return &Dir{path: path, origin: opts.Origin, logger: opts.logger()}
}

// Locator returns the directory path.
func (d *Dir) Locator() string {
	return d.path
}

// Fetch emits every widget file ordered by tree path.
func (d *Dir) Fetch(ctx context.Context, emit func(widget.Widget) error) error {
	ws, err := d.load(ctx)
	sortByTreePath(ws)
	if emitErr := emitAll(ws, emit); emitErr != nil {
		return emitErr
	}
	return err
}

// FetchPage returns one page of widgets ordered by name.
func (d *Dir) FetchPage(ctx context.Context, n, size int) ([]widget.Widget, error) {
	ws, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	sortByName(ws)
	return page(ws, n, size), nil
}

func (d *Dir) load(ctx context.Context) ([]widget.Widget, error) {
	var ws []widget.Widget
	err := d.scan(ctx, func(_ string, w widget.Widget) {
		ws = append(ws, w)
	})
	return ws, err
}

// scan decodes every widget file in the directory, in file name order.
func (d *Dir) scan(ctx context.Context, fn func(path string, w widget.Widget)) error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return errors.New("E210").
			WithDetail("read widget store: " + err.Error()).
			Wrap(err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return errors.New("E210").Wrap(err)
		}
		if e.IsDir() || !isWidgetFile(e.Name()) {
			continue
		}
		path := filepath.Join(d.path, e.Name())
		w, err := d.readFile(path)
		if err != nil {
			d.logger.Warn("skipping widget file", "file", e.Name(), "error", err)
			continue
		}
		fn(path, w)
	}
	return nil
}

func (d *Dir) readFile(path string) (widget.Widget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return widget.Widget{}, err
	}
	return widget.DecodeWithID(data, d.origin, fileID(path))
}

// Change is a widget file event reported by Watch.
type Change struct {
	// Widget is the new state of the widget. Only ID is set when Removed.
	Widget  widget.Widget
	Removed bool
}

// Watch reports widget file changes to fn until ctx is done. Files that
// cannot be decoded (for instance while still being written) are skipped
// until their next write.
func (d *Dir) Watch(ctx context.Context, fn func(Change)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("E210").WithDetail("create watcher: " + err.Error()).Wrap(err)
	}
	defer fsw.Close()

	if err := fsw.Add(d.path); err != nil {
		return errors.New("E210").WithDetail("watch " + d.path + ": " + err.Error()).Wrap(err)
	}

	// Removal events only carry the path, so remember which widget each
	// file held.
	ids := map[string]string{}
	if err := d.scan(ctx, func(path string, w widget.Widget) { ids[path] = w.ID }); err != nil {
		return err
	}

	d.logger.Debug("watching widget store", "path", d.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !isWidgetFile(name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				id, ok := ids[name]
				if !ok {
					id = fileID(name)
				}
				delete(ids, name)
				fn(Change{Widget: widget.Widget{ID: id, Origin: d.origin}, Removed: true})

			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w, err := d.readFile(name)
				if err != nil {
					d.logger.Debug("widget file not readable yet", "file", name, "error", err)
					continue
				}
				ids[name] = w.ID
				fn(Change{Widget: w})
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("widget store watcher error", "error", err)
		}
	}
}

func isWidgetFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

func fileID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
