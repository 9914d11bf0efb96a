package brandsite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// -----------------------------
// Content model
// -----------------------------

// Field is a scalar content value with its fallbacks.
type Field struct {
	ID           string `json:"id,omitempty"`
	Value        any    `json:"value,omitempty"`
	ExampleValue any    `json:"example_value,omitempty"`
	Description  string `json:"description,omitempty"`
	// Format "markdown" renders the chosen text to HTML before substitution.
	Format string `json:"format,omitempty"`
}

// Text picks, in order: value, example_value, description, fallback. Blank
// (empty or whitespace-only) candidates are skipped.
func (f Field) Text(fallback string) string {
	for _, v := range []any{f.Value, f.ExampleValue, f.Description} {
		if !isBlank(v) {
			return toString(v)
		}
	}
	return fallback
}

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain Field
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*f = Field(p)
		return nil
	}
	// a bare scalar is shorthand for {"value": scalar}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Field{Value: v}
	return nil
}

// ListItem is one record of a list field.
type ListItem struct {
	ID     string
	Fields map[string]Field
}

// Mapping resolves every sub-field with the Field precedence rules.
func (it ListItem) Mapping() ListItemMapping {
	m := make(ListItemMapping, len(it.Fields))
	for name, f := range it.Fields {
		m[name] = f.Text("")
	}
	return m
}

type itemElement struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// itemID reads a list item id; a number is kept in its decimal form.
func itemID(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("list item id: %w", err)
	}
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case float64:
		return toString(id), nil
	default:
		return "", fmt.Errorf("list item id %s is neither a string nor a number", raw)
	}
}

func (it *ListItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("list item: %w", err)
	}
	it.Fields = map[string]Field{}
	if id, ok := raw["id"]; ok {
		var err error
		if it.ID, err = itemID(id); err != nil {
			return err
		}
	}
	// {"id": ..., "elements": [{"name": ..., "value": ...}]}
	if els, ok := raw["elements"]; ok {
		var elements []json.RawMessage
		if err := json.Unmarshal(els, &elements); err != nil {
			return fmt.Errorf("list item elements: %w", err)
		}
		for _, e := range elements {
			var named struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(e, &named); err != nil || named.Name == "" {
				continue
			}
			var f Field
			if err := json.Unmarshal(e, &f); err != nil {
				return fmt.Errorf("list item element %s: %w", named.Name, err)
			}
			f.ID = ""
			it.Fields[named.Name] = f
		}
		return nil
	}
	// {"title": {"value": ...}, "icon": "..."}
	for name, v := range raw {
		if name == "id" {
			continue
		}
		var f Field
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("list item field %s: %w", name, err)
		}
		it.Fields[name] = f
	}
	return nil
}

func (it ListItem) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(it.Fields))
	for n := range it.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	els := make([]itemElement, 0, len(names))
	for _, n := range names {
		els = append(els, itemElement{Name: n, Value: it.Fields[n].Text("")})
	}
	return json.Marshal(struct {
		ID       string        `json:"id,omitempty"`
		Elements []itemElement `json:"elements"`
	}{it.ID, els})
}

// ListField is a repeated-record field expanded through a list block.
type ListField struct {
	ID    string
	Items []ListItem
}

// ComponentInstance holds the data of one occurrence of a component.
type ComponentInstance struct {
	Fields map[string]Field
	Lists  map[string]ListField
}

// NewComponentInstance returns an empty instance ready for population.
func NewComponentInstance() ComponentInstance {
	return ComponentInstance{Fields: map[string]Field{}, Lists: map[string]ListField{}}
}

// ListNames returns the list field names in sorted order.
func (ci ComponentInstance) ListNames() []string {
	names := make([]string, 0, len(ci.Lists))
	for n := range ci.Lists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type instanceEntry struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON accepts the object form {field: {...}} and the entry-array
// form [{id, name, value}, {name, type: "list", value: [...]}].
func (ci *ComponentInstance) UnmarshalJSON(data []byte) error {
	*ci = NewComponentInstance()
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		for _, raw := range entries {
			var e instanceEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("instance entry: %w", err)
			}
			if e.Name == "" {
				continue
			}
			if err := ci.addField(e.Name, raw, e); err != nil {
				return err
			}
		}
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for name, raw := range fields {
		var e instanceEntry
		trimmed := bytes.TrimSpace(raw)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '[':
			e = instanceEntry{Type: "list", Value: trimmed}
		case len(trimmed) > 0 && trimmed[0] == '{':
			_ = json.Unmarshal(trimmed, &e)
		}
		if err := ci.addField(name, raw, e); err != nil {
			return err
		}
	}
	return nil
}

func (ci *ComponentInstance) addField(name string, raw json.RawMessage, e instanceEntry) error {
	if e.Type == "list" {
		var items []ListItem
		if len(e.Value) > 0 && !bytes.Equal(bytes.TrimSpace(e.Value), []byte("null")) {
			if err := json.Unmarshal(e.Value, &items); err != nil {
				return fmt.Errorf("list field %s: %w", name, err)
			}
		}
		ci.Lists[name] = ListField{ID: e.ID, Items: items}
		return nil
	}
	var f Field
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	ci.Fields[name] = f
	return nil
}

func (ci ComponentInstance) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ci.Fields)+len(ci.Lists))
	for n, f := range ci.Fields {
		out[n] = f
	}
	for n, l := range ci.Lists {
		items := l.Items
		if items == nil {
			items = []ListItem{}
		}
		out[n] = struct {
			ID    string     `json:"id,omitempty"`
			Type  string     `json:"type"`
			Value []ListItem `json:"value"`
		}{l.ID, "list", items}
	}
	return json.Marshal(out)
}

// Instances is the ordered list of instances of one component. A single
// instance object is accepted in place of a list.
type Instances []ComponentInstance

func (in *Instances) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one ComponentInstance
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*in = Instances{one}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Instances, 0, len(raws))
	for _, r := range raws {
		var ci ComponentInstance
		if err := json.Unmarshal(r, &ci); err != nil {
			return err
		}
		out = append(out, ci)
	}
	*in = out
	return nil
}

// ContentDocument is the root content document of one project (and style).
type ContentDocument struct {
	Metadata       map[string]any       `json:"metadata,omitempty"`
	GlobalSettings map[string]any       `json:"global_settings,omitempty"`
	PageContent    map[string]Instances `json:"page_content"`
}

// Instance returns the i-th instance of component.
func (d *ContentDocument) Instance(component string, i int) (ComponentInstance, bool) {
	if d == nil {
		return ComponentInstance{}, false
	}
	insts := d.PageContent[component]
	if i < 0 || i >= len(insts) {
		return ComponentInstance{}, false
	}
	return insts[i], true
}

// -----------------------------
// Loading and validation
// -----------------------------

const contentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "metadata": {"type": "object"},
    "global_settings": {"type": "object"},
    "page_content": {
      "type": "object",
      "additionalProperties": {
        "oneOf": [
          {"type": "array", "items": {"type": ["object", "array"]}},
          {"type": "object"}
        ]
      }
    }
  },
  "required": ["page_content"]
}`

var compiledContentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("content.schema.json", strings.NewReader(contentSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("content.schema.json")
})

// LoadContent reads and parses a content document file.
func LoadContent(path string) (*ContentDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: content %s", ErrMissingResource, path)
		}
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	doc, err := ParseContent(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseContent validates and decodes a content document. Every failure wraps
// ErrMalformedContent.
func ParseContent(data []byte) (*ContentDocument, error) {
	data = normalizeContent(data)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	schema, err := compiledContentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile content schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedContent, schemaIssues(err))
	}
	var doc ContentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if doc.PageContent == nil {
		doc.PageContent = map[string]Instances{}
	}
	return &doc, nil
}

func schemaIssues(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			loc := node.InstanceLocation
			if loc == "" {
				loc = "#"
			}
			parts = append(parts, loc+": "+strings.TrimSpace(node.Message))
			return
		}
		for _, c := range node.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}

// WriteContent stores doc as indented JSON.
func WriteContent(path string, doc *ContentDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
