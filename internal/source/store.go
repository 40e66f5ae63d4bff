package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

// UpdateSource rewrites the source of the widget file holding ref.ID. Other
// fields of the file are kept.
func (d *Dir) UpdateSource(ctx context.Context, ref widget.SourceRef, source string) error {
	if ref.IsRemote() {
		return errors.New("E240").
			WithDetail("remote widget " + ref.ID + " cannot be saved to a local store").
			WithSuggestion("Set executor.url in widgets.json to save remote widgets")
	}
	path, err := d.find(ctx, ref.ID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E240").WithDetail("read " + path + ": " + err.Error()).Wrap(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.New("E240").WithDetail("decode " + path + ": " + err.Error()).Wrap(err)
	}
	fields["source"], _ = json.Marshal(source)

	return d.write(path, fields)
}

// CreateWidget writes w to a new widget file and returns it with its ID.
func (d *Dir) CreateWidget(ctx context.Context, w widget.Widget) (widget.Widget, error) {
	if err := ctx.Err(); err != nil {
		return widget.Widget{}, err
	}
	w.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	w.Origin = ""
	w.RemoteLocator = ""

	path := filepath.Join(d.path, w.ID+".json")
	if err := d.write(path, w); err != nil {
		return widget.Widget{}, err
	}
	w.Origin = widget.OriginLocal
	d.logger.Info("widget file created", "file", path)
	return w, nil
}

func (d *Dir) find(ctx context.Context, id string) (string, error) {
	var found string
	err := d.scan(ctx, func(path string, w widget.Widget) {
		if found == "" && w.ID == id {
			found = path
		}
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errors.New("E230").WithDetail("no widget file for id " + id + " in " + d.path)
	}
	return found, nil
}

func (d *Dir) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E240").WithDetail("write " + path + ": " + err.Error()).Wrap(err)
	}
	return nil
}
