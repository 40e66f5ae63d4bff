// Package params matches the placeholder tokens of a widget template against
// the widget's configuration schema and produces the fields of the parameter
// form.
//
// A configuration is a JSON object keyed by token name:
//
//	{
//	  "title": {"type": "input", "default": "Welcome"},
//	  "body":  {"type": "textarea"},
//	  "size":  {"type": "select", "options": {"sm": "Small", "lg": "Large"}}
//	}
//
// Tokens without a schema entry get no field, and neither do entries that
// are null, false, zero or an empty string. Field order follows the
// iteration order of the token set and is therefore not guaranteed.
package params

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/placeholder"
)

// Kind is the input control a field is rendered with.
type Kind string

const (
	KindInput    Kind = "input"
	KindTextarea Kind = "textarea"
	KindSelect   Kind = "select"
)

// placeholderOption is the single option of a select declared without any.
const placeholderOption = "-"

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one parameter to collect.
type Field struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Options []Option `json:"options,omitempty"`

	// ExplicitValues is true when options were declared as a value->label
	// mapping. Otherwise each option's value equals its label.
	ExplicitValues bool `json:"explicitValues,omitempty"`

	Default string `json:"default"`
}

// Resolution is the outcome of matching a template against its schema.
type Resolution struct {
	// ShouldPrompt is false when the widget can be instantiated without
	// asking for input.
	ShouldPrompt bool    `json:"shouldPrompt"`
	Fields       []Field `json:"fields"`
	Description  *string `json:"description,omitempty"`
}

// Field returns the field for key.
func (r Resolution) Field(key string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Collect returns the submitted values for the resolution's fields. Keys
// without a field are dropped; fields missing from values get their default.
func (r Resolution) Collect(values map[string]string) map[string]string {
	out := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		if v, ok := values[f.Key]; ok {
			out[f.Key] = v
		} else {
			out[f.Key] = f.Default
		}
	}
	return out
}

// Resolve builds the parameter form for tokens. A nil or blank configuration
// is treated as absent. A configuration that is not a JSON object fails with
// E201 and no fields.
func Resolve(tokens placeholder.Set, configuration *string, description *string) (Resolution, error) {
	res := Resolution{Description: description}

	schema, err := Parse(configuration)
	if err != nil {
		return Resolution{}, err
	}

	if schema != nil {
		for tok := range tokens {
			key := placeholder.Key(tok)
			raw, ok := schema.entries[key]
			if !ok || empty(raw) {
				continue
			}
			res.Fields = append(res.Fields, newField(key, raw))
		}
	}

	res.ShouldPrompt = description != nil || len(res.Fields) > 0
	return res, nil
}

// Schema is a parsed configuration with its keys in declaration order.
type Schema struct {
	keys    []string
	entries map[string]json.RawMessage
}

// Keys returns the schema keys in declaration order.
func (s *Schema) Keys() []string {
	return s.keys
}

// Field returns the field declared for key regardless of whether the
// template uses it.
func (s *Schema) Field(key string) (Field, bool) {
	raw, ok := s.entries[key]
	if !ok || empty(raw) {
		return Field{}, false
	}
	return newField(key, raw), true
}

// Parse parses a configuration. It returns nil for an absent configuration.
func Parse(configuration *string) (*Schema, error) {
	if configuration == nil || strings.TrimSpace(*configuration) == "" {
		return nil, nil
	}
	text := *configuration

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		e := errors.New("E201").WithDetail(err.Error()).Wrap(err)
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			e.WithSource("configuration", text, syntaxErr.Offset)
		}
		return nil, e.WithSuggestion("The configuration must be a JSON object keyed by placeholder name.")
	}

	switch decoded.(type) {
	case nil:
		return nil, nil
	case map[string]any:
	default:
		offset := int64(len(text) - len(strings.TrimLeft(text, " \t\r\n")))
		return nil, errors.New("E201").
			WithDetail("configuration is not a JSON object").
			WithSource("configuration", text, offset).
			WithSuggestion("The configuration must be a JSON object keyed by placeholder name.")
	}

	keys, entries, err := decodeObject([]byte(text))
	if err != nil {
		return nil, errors.New("E201").WithDetail(err.Error()).Wrap(err)
	}
	return &Schema{keys: keys, entries: entries}, nil
}

type entry struct {
	Type    json.RawMessage `json:"type"`
	Default json.RawMessage `json:"default"`
	Options json.RawMessage `json:"options"`
}

func newField(key string, raw json.RawMessage) Field {
	f := Field{Key: key, Kind: KindInput}

	var e entry
	if !isObject(raw) || json.Unmarshal(raw, &e) != nil {
		return f
	}

	var kind string
	if json.Unmarshal(e.Type, &kind) == nil {
		switch Kind(kind) {
		case KindTextarea, KindSelect:
			f.Kind = Kind(kind)
		}
	}

	f.Default = text(e.Default)

	if f.Kind == KindSelect {
		f.Options, f.ExplicitValues = options(e.Options)
	}
	return f
}

func options(raw json.RawMessage) ([]Option, bool) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) > 0 && raw[0] == '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			break
		}
		opts := make([]Option, 0, len(items))
		for _, item := range items {
			label := text(item)
			opts = append(opts, Option{Value: label, Label: label})
		}
		return opts, false

	case isObject(raw):
		keys, entries, err := decodeObject(raw)
		if err != nil {
			break
		}
		opts := make([]Option, 0, len(keys))
		for _, k := range keys {
			opts = append(opts, Option{Value: k, Label: text(entries[k])})
		}
		return opts, true
	}
	return []Option{{Value: placeholderOption, Label: placeholderOption}}, false
}

// text renders a JSON value as form text: strings verbatim, null and
// missing values empty, everything else as compact JSON.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) != nil {
		return string(raw)
	}
	return buf.String()
}

// empty reports whether a schema entry declares nothing.
func empty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`:
		return true
	}
	var n float64
	return json.Unmarshal(raw, &n) == nil && n == 0
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
