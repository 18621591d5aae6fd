// Package model reads and edits item model documents.
//
// A model document is a JSON object with a "textures" mapping and an optional
// "overrides" array. Only those two fields are interpreted; every other field
// is carried through untouched as raw JSON. Key order of the top-level object
// and of the texture mapping is preserved across a parse/encode round trip, so
// "first texture slot" is well defined and rewritten files diff cleanly.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/danieljhkim/packsmith/internal/packerr"
)

const (
	keyTextures  = "textures"
	keyOverrides = "overrides"
)

// Predicate selects an override at runtime.
type Predicate struct {
	CustomModelData int `json:"custom_model_data"`
}

// Override is a single selection rule in a base model's overrides array.
type Override struct {
	Predicate Predicate `json:"predicate"`
	Model     string    `json:"model"`
}

// Document is a parsed model document.
type Document struct {
	fields    *orderedmap.OrderedMap[string, json.RawMessage]
	textures  *orderedmap.OrderedMap[string, json.RawMessage]
	overrides []json.RawMessage
}

// Parse decodes a model document. The top level and "textures" must be JSON
// objects and "overrides", when present, must be an array.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: document is not a JSON object", packerr.ErrMalformedDocument)
	}

	fields := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", packerr.ErrMalformedDocument, err)
	}

	rawTextures, ok := fields.Get(keyTextures)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", packerr.ErrMalformedDocument, keyTextures)
	}
	textures, err := parseObject(rawTextures)
	if err != nil {
		return nil, fmt.Errorf("%w: %q must be an object", packerr.ErrMalformedDocument, keyTextures)
	}

	doc := &Document{fields: fields, textures: textures}

	if rawOverrides, ok := fields.Get(keyOverrides); ok {
		if err := json.Unmarshal(rawOverrides, &doc.overrides); err != nil || doc.overrides == nil && !isNull(rawOverrides) {
			return nil, fmt.Errorf("%w: %q must be an array", packerr.ErrMalformedDocument, keyOverrides)
		}
	}

	return doc, nil
}

func parseObject(raw json.RawMessage) (*orderedmap.OrderedMap[string, json.RawMessage], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("not an object")
	}
	obj := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// TextureSlots returns the texture keys in document order.
func (d *Document) TextureSlots() []string {
	slots := make([]string, 0, d.textures.Len())
	for pair := d.textures.Oldest(); pair != nil; pair = pair.Next() {
		slots = append(slots, pair.Key)
	}
	return slots
}

// Texture returns the value of a texture slot when it is a string.
func (d *Document) Texture(slot string) (string, bool) {
	raw, ok := d.textures.Get(slot)
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// RedirectTexture points a texture slot at target and returns the slot that
// was rewritten. An empty slot selects the first slot in document order.
// Other slots are left as they are.
func (d *Document) RedirectTexture(slot, target string) (string, error) {
	if slot == "" {
		first := d.textures.Oldest()
		if first == nil {
			return "", fmt.Errorf("%w: %q is empty", packerr.ErrMalformedDocument, keyTextures)
		}
		slot = first.Key
	} else if _, ok := d.textures.Get(slot); !ok {
		return "", fmt.Errorf("%w: texture slot %q not defined", packerr.ErrMalformedDocument, slot)
	}

	encoded, err := marshal(target)
	if err != nil {
		return "", err
	}
	d.textures.Set(slot, encoded)
	return slot, nil
}

// Overrides decodes the existing override rules. Entries that do not match the
// Override shape decode to their zero fields rather than failing, since this
// tool never edits existing entries.
func (d *Document) Overrides() []Override {
	out := make([]Override, 0, len(d.overrides))
	for _, raw := range d.overrides {
		var o Override
		_ = json.Unmarshal(raw, &o)
		out = append(out, o)
	}
	return out
}

// AppendOverride adds a rule selecting model and returns its custom_model_data,
// which is always one more than the number of existing rules. Existing rules
// are kept byte for byte and in order.
func (d *Document) AppendOverride(model string) (int, error) {
	index := len(d.overrides) + 1
	encoded, err := marshal(Override{
		Predicate: Predicate{CustomModelData: index},
		Model:     model,
	})
	if err != nil {
		return 0, err
	}
	d.overrides = append(d.overrides, encoded)
	return index, nil
}

// Encode serialises the document with two-space indentation and a trailing
// newline. Carried-through fields are written back byte for byte apart from
// whitespace; nothing is HTML-escaped.
func (d *Document) Encode() ([]byte, error) {
	textures, err := encodeObject(d.textures)
	if err != nil {
		return nil, fmt.Errorf("failed to encode textures: %w", err)
	}
	d.fields.Set(keyTextures, textures)

	if d.overrides != nil {
		overrides, err := marshal(d.overrides)
		if err != nil {
			return nil, fmt.Errorf("failed to encode overrides: %w", err)
		}
		d.fields.Set(keyOverrides, overrides)
	}

	compact, err := encodeObject(d.fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// encodeObject writes m in insertion order. Values are raw JSON taken from
// the parsed document and are copied as is.
func encodeObject(m *orderedmap.OrderedMap[string, json.RawMessage]) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(pair.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshal is json.Marshal without HTML escaping.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
