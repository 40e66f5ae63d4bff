package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/widget"
)

// reservedKeys are APPEND_WIDGET data fields that parameter values may not
// override.
var reservedKeys = map[string]bool{
	"widgetHostBaseUrl": true,
	"parentId":          true,
	"source":            true,
}

// CreateInstance sends APPEND_WIDGET. Parameter values travel as additional
// data fields next to the source.
func (c *Client) CreateInstance(ctx context.Context, req instantiate.Request) error {
	data := map[string]any{
		"widgetHostBaseUrl": req.OriginLocator,
		"parentId":          req.TargetID,
		"source":            req.Source,
	}
	for k, v := range req.Values {
		if reservedKeys[k] {
			c.logger.Warn("parameter shadows a command field, dropped", "key", k)
			continue
		}
		data[k] = v
	}

	_, err := c.Send(ctx, Message{
		Command: CommandAppendWidget,
		PageID:  req.ContainerID,
		Data:    data,
	})
	return err
}

// UpdateSource writes a widget's new source. Local widgets are updated with
// an UPDATE command; remote widgets with an HTTP PUT to their locator.
func (c *Client) UpdateSource(ctx context.Context, ref widget.SourceRef, source string) error {
	if ref.IsRemote() {
		return c.putSource(ctx, ref.RemoteLocator, source)
	}
	_, err := c.Send(ctx, Message{
		Command: CommandUpdate,
		ID:      ref.ID,
		Data:    map[string]any{"source": source},
	})
	return err
}

// CreateWidget stores a new local widget with a fresh ID.
func (c *Client) CreateWidget(ctx context.Context, w widget.Widget) (widget.Widget, error) {
	if w.ID == "" {
		w.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	data := map[string]any{
		"type":   "Widget",
		"id":     w.ID,
		"name":   w.Name,
		"source": w.Source,
	}
	if w.TreePath != nil {
		data["treePath"] = *w.TreePath
	}

	reply, err := c.Send(ctx, Message{Command: CommandCreate, Data: data})
	if err != nil {
		return widget.Widget{}, err
	}
	if len(reply.Result) > 0 {
		if created, err := widget.Decode(reply.Result[0], widget.OriginLocal); err == nil {
			return created, nil
		}
	}
	w.Origin = widget.OriginLocal
	return w, nil
}

func (c *Client) putSource(ctx context.Context, locator, source string) error {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("E211").WithDetail("cannot write widget source to " + locator)
	}

	body, err := json.Marshal(map[string]string{"source": source})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, locator, bytes.NewReader(body))
	if err != nil {
		return errors.New("E240").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	c.metrics.RecordCommand(http.MethodPut, err)
	if err != nil {
		return errors.New("E240").WithDetail("PUT " + locator + ": " + err.Error()).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("E240").
			WithDetail(fmt.Sprintf("PUT %s returned status %d", locator, resp.StatusCode))
	}
	return nil
}
