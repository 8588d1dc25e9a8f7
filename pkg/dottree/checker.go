package dottree

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// DefaultKeyPattern is the set of characters a key may contain.
// Spaces are allowed because pyproject.toml tables such as [project.urls]
// conventionally use keys like "Bug Tracker".
var DefaultKeyPattern = regexp.MustCompile(`^[\p{L}\p{N}_~&|,;<>+ -]+$`)

// Violation describes one invalid key or value found by the Checker.
type Violation struct {
	Path   string
	Reason string
	Type   string
}

// Checker validates and canonicalizes raw nested data before it becomes a Tree.
//
// Integers of every width become int64, float32 becomes float64, json.Number is
// resolved, and any map with string keys or any slice is copied into
// map[string]any / []any. A nil anywhere is rejected: absent values are
// represented by an absent key.
type Checker struct {
	KeyPattern *regexp.Regexp
}

// NewChecker returns a Checker using DefaultKeyPattern.
func NewChecker() *Checker {
	return &Checker{KeyPattern: DefaultKeyPattern}
}

// Check validates every key and value under node and returns a canonical deep copy.
// All violations are collected; the returned error lists each of them.
func (c *Checker) Check(node map[string]any) (map[string]any, error) {
	var keyViolations, valueViolations []Violation
	out := c.branch("", node, &keyViolations, &valueViolations)
	if len(keyViolations) == 0 && len(valueViolations) == 0 {
		return out, nil
	}
	return nil, violationsError(keyViolations, valueViolations)
}

// CheckKey reports why a single key is invalid, or "" if it is valid.
func (c *Checker) CheckKey(key string) string {
	switch {
	case key == "":
		return "key is empty"
	case strings.Contains(key, Delimiter):
		return "key contains '" + Delimiter + "'"
	case !c.pattern().MatchString(key):
		return "key does not match " + c.pattern().String()
	}
	return ""
}

func (c *Checker) pattern() *regexp.Regexp {
	if c.KeyPattern == nil {
		return DefaultKeyPattern
	}
	return c.KeyPattern
}

func (c *Checker) branch(path string, node map[string]any, keys, values *[]Violation) map[string]any {
	out := make(map[string]any, len(node))
	for _, k := range sortedKeys(node) {
		sub := joinPath(path, k)
		if reason := c.CheckKey(k); reason != "" {
			*keys = append(*keys, Violation{Path: sub, Reason: reason})
		}
		if v, ok := c.value(sub, node[k], keys, values); ok {
			out[k] = v
		}
	}
	return out
}

func (c *Checker) list(path string, items []any, keys, values *[]Violation) []any {
	out := make([]any, 0, len(items))
	for i, item := range items {
		if v, ok := c.value(path+"["+strconv.Itoa(i)+"]", item, keys, values); ok {
			out = append(out, v)
		}
	}
	return out
}

func (c *Checker) value(path string, v any, keys, values *[]Violation) (any, bool) {
	if v == nil {
		*values = append(*values, Violation{Path: path, Reason: "value is null", Type: "nil"})
		return nil, false
	}
	if p, ok := canonicalPrimitive(v); ok {
		return p, true
	}
	switch x := v.(type) {
	case map[string]any:
		return c.branch(path, x, keys, values), true
	case []any:
		return c.list(path, x, keys, values), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, ok := iter.Key().Interface().(string)
			if !ok {
				*keys = append(*keys, Violation{
					Path:   joinPath(path, fmt.Sprint(iter.Key().Interface())),
					Reason: "key is not a string",
					Type:   fmt.Sprintf("%T", iter.Key().Interface()),
				})
				continue
			}
			m[k] = iter.Value().Interface()
		}
		return c.branch(path, m, keys, values), true
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return c.list(path, items, keys, values), true
	}
	*values = append(*values, Violation{Path: path, Reason: "unsupported type", Type: fmt.Sprintf("%T", v)})
	return nil, false
}

// IsPrimitive reports whether v is a string, number, boolean, or date/time value.
func IsPrimitive(v any) bool {
	_, ok := canonicalPrimitive(v)
	return ok
}

func canonicalPrimitive(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64, time.Time, toml.LocalDate, toml.LocalDateTime, toml.LocalTime:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case float32:
		return float64(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}

func violationsError(keys, values []Violation) error {
	code := errors.ErrInvalidValue
	if len(keys) > 0 {
		code = errors.ErrInvalidKey
	}
	all := append(append([]Violation{}, keys...), values...)
	parts := make([]string, 0, len(all))
	paths := make([]string, 0, len(all))
	types := make([]string, 0, len(values))
	for _, v := range all {
		paths = append(paths, v.Path)
		if v.Type != "" {
			parts = append(parts, fmt.Sprintf("%q (%s: %s)", v.Path, v.Reason, v.Type))
			types = append(types, v.Type)
		} else {
			parts = append(parts, fmt.Sprintf("%q (%s)", v.Path, v.Reason))
		}
	}
	sort.Strings(types)
	return errors.Newf(code, "%d invalid entries: %s", len(all), strings.Join(parts, ", ")).
		WithDetail("paths", paths).
		WithDetail("types", compactStrings(types)).
		WithDetail("violations", all)
}

func compactStrings(s []string) []string {
	out := make([]string, 0, len(s))
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
