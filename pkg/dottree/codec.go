package dottree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	btoml "github.com/BurntSushi/toml"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// FromTOML parses a TOML document. Offset date-times become time.Time and
// local dates and times keep their go-toml types.
func FromTOML(data []byte) (*Tree, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot parse TOML")
	}
	return FromNested(raw)
}

// FromYAML parses a YAML document whose top level is a mapping.
func FromYAML(data []byte) (*Tree, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot parse YAML")
	}
	if raw == nil {
		return Empty(), nil
	}
	return FromNested(raw)
}

// FromJSON parses a JSON object. Whole numbers become int64.
func FromJSON(data []byte) (*Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot parse JSON")
	}
	return FromNested(raw)
}

// JSON encodes the tree with keys in sorted order. NaN and infinities are rejected.
func (t *Tree) JSON(indent bool) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(t.root, "", "  ")
	} else {
		out, err = json.Marshal(t.root)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidValue, "cannot encode tree as JSON")
	}
	return out, nil
}

// TOML encodes the tree as a TOML document.
func (t *Tree) TOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := btoml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(tomlValues(t.root)); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidValue, "cannot encode tree as TOML")
	}
	return buf.Bytes(), nil
}

// DottedString lists every leaf as `path = <json>`, one per line, sorted by path.
func (t *Tree) DottedString() (string, error) {
	leaves := t.Leaves()
	var b strings.Builder
	for _, path := range sortedKeys(leaves) {
		encoded, err := json.Marshal(leaves[path])
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrInvalidValue, "cannot encode %q", path)
		}
		fmt.Fprintf(&b, "%s = %s\n", path, encoded)
	}
	return b.String(), nil
}

// rawTOML is written to TOML output verbatim.
type rawTOML string

func (r rawTOML) MarshalTOML() ([]byte, error) {
	return []byte(r), nil
}

// tomlValues replaces go-toml local date/time values so they are written unquoted.
func tomlValues(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, sub := range x {
			out[k] = tomlValues(sub)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, sub := range x {
			out[i] = tomlValues(sub)
		}
		return out
	case toml.LocalDate:
		return rawTOML(x.String())
	case toml.LocalDateTime:
		return rawTOML(x.String())
	case toml.LocalTime:
		return rawTOML(x.String())
	}
	return v
}
