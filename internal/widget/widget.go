// Package widget defines the widget record shared by the registry, the
// resolver and the dispatcher.
package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Origin tells where a widget record came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Widget is a named template fragment with optional parameter schema.
//
// Only Source and Configuration change after ingestion.
type Widget struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Source        string  `json:"source,omitempty"`
	Description   *string `json:"description,omitempty"`
	Configuration *string `json:"configuration,omitempty"`
	TreePath      *string `json:"treePath,omitempty"`
	Origin        Origin  `json:"origin,omitempty"`

	// RemoteLocator is the URL of a remote widget's own resource, used to
	// write its source back.
	RemoteLocator string `json:"remoteLocator,omitempty"`
}

// wireWidget is the catalog's JSON shape. Configuration arrives either as a
// JSON string holding the schema text or, from some stores, as the schema
// object itself.
type wireWidget struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Source        *string         `json:"source"`
	Description   *string         `json:"description"`
	Configuration json.RawMessage `json:"configuration"`
	TreePath      *string         `json:"treePath"`
}

// Decode parses one catalog record.
func Decode(data []byte, origin Origin) (Widget, error) {
	return DecodeWithID(data, origin, "")
}

// DecodeWithID parses one record, using id when the record carries none.
func DecodeWithID(data []byte, origin Origin, id string) (Widget, error) {
	var w wireWidget
	if err := json.Unmarshal(data, &w); err != nil {
		return Widget{}, err
	}
	if w.ID == "" {
		w.ID = id
	}
	return w.toWidget(origin)
}

func (w wireWidget) toWidget(origin Origin) (Widget, error) {
	if w.ID == "" {
		return Widget{}, fmt.Errorf("widget record without id")
	}
	out := Widget{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		TreePath:    w.TreePath,
		Origin:      origin,
	}
	if w.Source != nil {
		out.Source = *w.Source
	}

	raw := bytes.TrimSpace(w.Configuration)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Widget{}, fmt.Errorf("widget %s: configuration: %w", w.ID, err)
		}
		out.Configuration = &s
	default:
		s := string(raw)
		out.Configuration = &s
	}
	return out, nil
}

// Path returns the tree path, or "" when the widget has none.
func (w Widget) Path() string {
	if w.TreePath == nil {
		return ""
	}
	return *w.TreePath
}

// IsEmpty reports whether the widget has no template source.
func (w Widget) IsEmpty() bool {
	return w.Source == ""
}

// Matches reports whether the widget name contains query, ignoring case.
// query must already be lower-cased.
func (w Widget) Matches(query string) bool {
	return strings.Contains(strings.ToLower(w.Name), query)
}

// Ref returns the reference used to write the widget's source back.
func (w Widget) Ref() SourceRef {
	return SourceRef{ID: w.ID, RemoteLocator: w.RemoteLocator}
}

// SourceRef identifies a widget to the command executor: remote widgets by
// locator, local widgets by ID.
type SourceRef struct {
	ID            string
	RemoteLocator string
}

// IsRemote reports whether the reference points at a remote widget.
func (r SourceRef) IsRemote() bool {
	return r.RemoteLocator != ""
}

// String returns a printable form of the reference.
func (r SourceRef) String() string {
	if r.IsRemote() {
		return r.RemoteLocator
	}
	return r.ID
}

// Ptr returns a pointer to s. Handy for optional widget fields.
func Ptr(s string) *string {
	return &s
}
