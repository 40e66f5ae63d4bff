// Package source implements the widget catalogs the registry loads from: a
// REST collection served over HTTP, a JSON object in S3 and a directory of
// widget files on disk.
//
// Every source serves the whole catalog ordered by tree path and pages of it
// ordered by name.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

// Source is a widget catalog.
type Source interface {
	// Locator returns the catalog's location as configured.
	Locator() string

	// Fetch streams the whole catalog ordered by tree path. Records emitted
	// before a failure remain valid.
	Fetch(ctx context.Context, emit func(widget.Widget) error) error

	// FetchPage returns one page of the catalog ordered by name. page
	// starts at 1.
	FetchPage(ctx context.Context, page, size int) ([]widget.Widget, error)
}

// Options configures a source.
type Options struct {
	// Origin is stamped on every record the source decodes.
	Origin widget.Origin

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient overrides the client used by HTTP sources.
	HTTPClient *http.Client

	// S3 overrides the client used by S3 sources. When nil one is built
	// from the default AWS configuration.
	S3 S3API

	// Region is the AWS region for S3 sources.
	Region string

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Open returns the source for locator: http(s):// URLs, s3://bucket/key
// objects, file:// URLs and plain directory paths.
func Open(ctx context.Context, locator string, opts Options) (Source, error) {
	if locator == "" {
		return nil, errors.New("E211").WithDetail("empty catalog locator")
	}
	if !strings.Contains(locator, "://") {
		return NewDir(locator, opts), nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return nil, errors.New("E211").WithDetail(err.Error()).Wrap(err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTP(locator, opts), nil
	case "s3":
		return OpenS3(ctx, u, opts)
	case "file":
		return NewDir(filepath.FromSlash(u.Path), opts), nil
	default:
		return nil, errors.New("E211").WithDetail(fmt.Sprintf("unsupported scheme %q in %s", u.Scheme, locator))
	}
}

// decodeEnvelope reads a {"result": [...]} document and emits its records
// one at a time. Records that are not valid widgets are logged and skipped;
// malformed JSON stops decoding.
func decodeEnvelope(r io.Reader, origin widget.Origin, logger *slog.Logger, emit func(widget.Widget) error) error {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if key, _ := tok.(string); key != "result" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if tok == nil {
			continue
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return fmt.Errorf("result is not an array")
		}
		for dec.More() {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			w, err := widget.Decode(raw, origin)
			if err != nil {
				logger.Warn("skipping invalid widget record", "error", err)
				continue
			}
			if err := emit(w); err != nil {
				return err
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// sortByTreePath orders widgets by tree path, keeping the existing order of
// widgets on the same path.
func sortByTreePath(ws []widget.Widget) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Path() < ws[j].Path()
	})
}

// sortByName orders widgets by name, case-insensitively.
func sortByName(ws []widget.Widget) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := strings.ToLower(ws[i].Name), strings.ToLower(ws[j].Name)
		if a != b {
			return a < b
		}
		return ws[i].ID < ws[j].ID
	})
}

// page returns the page'th slice of size records. page starts at 1.
func page(ws []widget.Widget, page, size int) []widget.Widget {
	if page < 1 || size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(ws) {
		return nil
	}
	end := start + size
	if end > len(ws) {
		end = len(ws)
	}
	return ws[start:end]
}

// emitAll emits ws in order, stopping at the first emit error.
func emitAll(ws []widget.Widget, emit func(widget.Widget) error) error {
	for _, w := range ws {
		if err := emit(w); err != nil {
			return err
		}
	}
	return nil
}
