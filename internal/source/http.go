package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

// defaultTimeout bounds catalog requests when Options.Timeout is unset.
const defaultTimeout = 30 * time.Second

// HTTP is a REST widget collection. GET <locator>?sort=treePath returns
// {"result": [...]}, and each widget is addressable at <locator>/<id>.
type HTTP struct {
	locator string
	origin  widget.Origin
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTP creates an HTTP source for the collection at locator.
func NewHTTP(locator string, opts Options) *HTTP {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTP{
		locator: strings.TrimRight(locator, "/"),
		origin:  opts.Origin,
		client:  client,
		logger:  opts.logger(),
	}
}

// Locator returns the collection URL.
func (h *HTTP) Locator() string {
	return h.locator
}

// Fetch streams the collection sorted by tree path. Remote records get their
// own resource URL as RemoteLocator.
func (h *HTTP) Fetch(ctx context.Context, emit func(widget.Widget) error) error {
	resp, err := h.get(ctx, url.Values{"sort": {"treePath"}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	err = decodeEnvelope(resp.Body, h.origin, h.logger, func(w widget.Widget) error {
		if h.origin == widget.OriginRemote {
			w.RemoteLocator = h.locator + "/" + url.PathEscape(w.ID)
		}
		return emit(w)
	})
	if err != nil {
		return h.decodeError(err)
	}
	return nil
}

// FetchPage returns one page of the collection sorted by name.
func (h *HTTP) FetchPage(ctx context.Context, page, size int) ([]widget.Widget, error) {
	resp, err := h.get(ctx, url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(size)},
		"sort":     {"name"},
		"order":    {"asc"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ws []widget.Widget
	err = decodeEnvelope(resp.Body, h.origin, h.logger, func(w widget.Widget) error {
		if h.origin == widget.OriginRemote {
			w.RemoteLocator = h.locator + "/" + url.PathEscape(w.ID)
		}
		ws = append(ws, w)
		return nil
	})
	if err != nil {
		return ws, h.decodeError(err)
	}
	return ws, nil
}

func (h *HTTP) get(ctx context.Context, query url.Values) (*http.Response, error) {
	u, err := url.Parse(h.locator)
	if err != nil {
		return nil, errors.New("E211").WithDetail(err.Error()).Wrap(err)
	}
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.New("E210").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	h.logger.Debug("fetching widgets", "url", u.String())
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.New("E210").
			WithDetail("Could not connect to " + h.locator + ": " + err.Error()).
			WithSuggestion("Check the catalog URL and your network connection").
			Wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.New("E210").
			WithDetail(fmt.Sprintf("%s returned status %d", h.locator, resp.StatusCode))
	}
	return resp, nil
}

func (h *HTTP) decodeError(err error) error {
	if errors.HasCode(err, "E210") {
		return err
	}
	return errors.New("E210").
		WithDetail("Invalid catalog response from " + h.locator + ": " + err.Error()).
		Wrap(err)
}
