// Package dottree implements an immutable tree of configuration data addressed
// by dotted paths such as "tool.tyranno.data.version".
//
// A node is a branch (map[string]any), a list ([]any), or a primitive: string,
// int64, float64, bool, time.Time, or one of the TOML local date/time types.
// Every constructor validates and deep-copies its input, and every accessor
// returns a copy, so a Tree can be shared freely once built.
package dottree

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Delimiter separates keys in a dotted path.
const Delimiter = "."

// Tree is an immutable, validated hierarchy of configuration values.
type Tree struct {
	root map[string]any
}

// Empty returns a tree with no keys.
func Empty() *Tree {
	return &Tree{root: map[string]any{}}
}

// FromNested builds a tree from nested maps, validating every key and value.
func FromNested(data map[string]any) (*Tree, error) {
	checked, err := NewChecker().Check(data)
	if err != nil {
		return nil, err
	}
	return &Tree{root: checked}, nil
}

// FromDotted builds a tree from a flat mapping of dotted paths to leaves,
// such as {"owner.name.first": "John"}. Redefining a path with a structurally
// incompatible value fails with a DUPLICATE_KEY error.
func FromDotted(leaves map[string]any) (*Tree, error) {
	nested, err := nest(leaves)
	if err != nil {
		return nil, err
	}
	return FromNested(nested)
}

// FromMixed builds a tree from a mixture of nested maps and dotted keys,
// such as {"owner": {"name.first": "John"}}.
func FromMixed(data map[string]any) (*Tree, error) {
	flat, err := dotify(data)
	if err != nil {
		return nil, err
	}
	return FromDotted(flat)
}

// Len returns the number of top-level keys.
func (t *Tree) Len() int {
	return len(t.root)
}

// Keys returns the top-level keys in sorted order.
func (t *Tree) Keys() []string {
	return sortedKeys(t.root)
}

// Nested returns a deep copy of the underlying nested maps.
func (t *Tree) Nested() map[string]any {
	return deepCopy(t.root).(map[string]any)
}

// Equal reports whether both trees hold the same keys and values.
func (t *Tree) Equal(other *Tree) bool {
	if other == nil {
		return false
	}
	return ValuesEqual(t.root, other.root)
}

// Leaves flattens the tree into dotted paths. Lists are leaves; empty branches produce no entries.
func (t *Tree) Leaves() map[string]any {
	out := map[string]any{}
	collectLeaves("", t.root, out)
	return out
}

// Limbs groups leaves by their immediate parent path.
// Leaves directly under the root are grouped under "".
func (t *Tree) Limbs() map[string]map[string]any {
	out := map[string]map[string]any{}
	for path, leaf := range t.Leaves() {
		parent, name := "", path
		if i := strings.LastIndex(path, Delimiter); i >= 0 {
			parent, name = path[:i], path[i+1:]
		}
		if out[parent] == nil {
			out[parent] = map[string]any{}
		}
		out[parent][name] = leaf
	}
	return out
}

// Normalize returns a copy without empty branches.
func (t *Tree) Normalize() *Tree {
	root, _ := prune(t.root)
	return &Tree{root: root}
}

// TransformLeaves applies fn to every leaf and builds a new tree from the results.
// A leaf is dropped when fn returns false. Empty branches are not carried over.
func (t *Tree) TransformLeaves(fn func(path string, leaf any) (any, bool)) (*Tree, error) {
	leaves := t.Leaves()
	out := make(map[string]any, len(leaves))
	for _, path := range sortedKeys(leaves) {
		if v, keep := fn(path, leaves[path]); keep {
			out[path] = v
		}
	}
	return FromDotted(out)
}

// Walk visits every leaf depth-first in sorted key order. It stops early if fn returns false.
func (t *Tree) Walk(fn func(path string, leaf any) bool) {
	walk("", t.root, fn)
}

func walk(prefix string, branch map[string]any, fn func(string, any) bool) bool {
	for _, k := range sortedKeys(branch) {
		path := joinPath(prefix, k)
		if sub, ok := branch[k].(map[string]any); ok {
			if !walk(path, sub, fn) {
				return false
			}
			continue
		}
		if !fn(path, deepCopy(branch[k])) {
			return false
		}
	}
	return true
}

// Access returns a copy of the value at path.
// A missing key, or an intermediate value that is not a branch, fails with KEY_NOT_FOUND.
func (t *Tree) Access(path string) (any, error) {
	v, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	return deepCopy(v), nil
}

// Get returns the value at path, or def if the path does not resolve.
func (t *Tree) Get(path string, def any) any {
	v, err := t.lookup(path)
	if err != nil {
		return def
	}
	return deepCopy(v)
}

// Has reports whether path resolves to a value.
func (t *Tree) Has(path string) bool {
	_, err := t.lookup(path)
	return err == nil
}

func (t *Tree) lookup(path string) (any, error) {
	var node any = t.root
	segments := strings.Split(path, Delimiter)
	for i, seg := range segments {
		branch, isBranch := node.(map[string]any)
		var ok bool
		if isBranch {
			node, ok = branch[seg]
		}
		if !ok {
			prefix := strings.Join(segments[:i], Delimiter)
			rest := strings.Join(segments[i+1:], Delimiter)
			reason := "no such key"
			if !isBranch {
				reason = fmt.Sprintf("value at %q is a %s, not a branch", prefix, TypeName(node))
			}
			return nil, errors.Newf(errors.ErrKeyNotFound, "%s: '%s'", reason, markSegment(prefix, seg, rest)).
				WithDetail("path", path).
				WithDetail("segment", seg).
				WithDetail("prefix", prefix).
				WithDetail("rest", rest)
		}
	}
	return node, nil
}

func markSegment(prefix, seg, rest string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(Delimiter)
	}
	b.WriteString("<<" + seg + ">>")
	if rest != "" {
		b.WriteString(Delimiter)
		b.WriteString(rest)
	}
	return b.String()
}

// AccessSubtree returns the branch at path as a tree.
func (t *Tree) AccessSubtree(path string) (*Tree, error) {
	v, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	branch, ok := v.(map[string]any)
	if !ok {
		return nil, typeMismatch(path, "branch", v)
	}
	return &Tree{root: deepCopy(branch).(map[string]any)}, nil
}

// GetSubtree returns the branch at path, or def (an empty tree if nil) when path does not resolve.
func (t *Tree) GetSubtree(path string, def *Tree) (*Tree, error) {
	sub, err := t.AccessSubtree(path)
	if errors.IsErrorCode(err, errors.ErrKeyNotFound) {
		if def == nil {
			return Empty(), nil
		}
		return def, nil
	}
	return sub, err
}

// AccessPrimitive returns the value at path, which must not be a branch or list.
func (t *Tree) AccessPrimitive(path string) (any, error) {
	v, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if !IsPrimitive(v) {
		return nil, typeMismatch(path, "primitive", v)
	}
	return v, nil
}

// GetPrimitive returns the primitive at path, or def when path does not resolve.
func (t *Tree) GetPrimitive(path string, def any) (any, error) {
	v, err := t.AccessPrimitive(path)
	if errors.IsErrorCode(err, errors.ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// AccessList returns a copy of the list at path.
func (t *Tree) AccessList(path string) ([]any, error) {
	v, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, typeMismatch(path, "list", v)
	}
	return deepCopy(list).([]any), nil
}

// GetList returns the list at path, or def (an empty list if nil) when path does not resolve.
func (t *Tree) GetList(path string, def []any) ([]any, error) {
	v, err := t.AccessList(path)
	if errors.IsErrorCode(err, errors.ErrKeyNotFound) {
		if def == nil {
			return []any{}, nil
		}
		return def, nil
	}
	return v, err
}

// AccessAs returns the value at path as a T. Integers are stored as int64 and
// floats as float64; asking for another numeric type fails with TYPE_MISMATCH.
func AccessAs[T any](t *Tree, path string) (T, error) {
	var zero T
	v, err := t.Access(path)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, typeMismatch(path, fmt.Sprintf("%T", zero), v)
	}
	return typed, nil
}

// GetAs is AccessAs falling back to def when path does not resolve.
func GetAs[T any](t *Tree, path string, def T) (T, error) {
	v, err := AccessAs[T](t, path)
	if errors.IsErrorCode(err, errors.ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// AccessListAs returns the list at path after checking that every element is a T.
func AccessListAs[T any](t *Tree, path string) ([]T, error) {
	list, err := t.AccessList(path)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(list))
	var bad []string
	for i, item := range list {
		typed, ok := item.(T)
		if !ok {
			bad = append(bad, fmt.Sprintf("[%d] %s", i, TypeName(item)))
			continue
		}
		out = append(out, typed)
	}
	if len(bad) > 0 {
		var zero T
		return nil, errors.Newf(errors.ErrTypeMismatch, "elements of %q are not %T: %s", path, zero, strings.Join(bad, ", ")).
			WithDetail("path", path).
			WithDetail("expected", fmt.Sprintf("%T", zero)).
			WithDetail("actual", bad)
	}
	return out, nil
}

// GetListAs is AccessListAs falling back to def when path does not resolve.
func GetListAs[T any](t *Tree, path string, def []T) ([]T, error) {
	v, err := AccessListAs[T](t, path)
	if errors.IsErrorCode(err, errors.ErrKeyNotFound) {
		if def == nil {
			return []T{}, nil
		}
		return def, nil
	}
	return v, err
}

func typeMismatch(path, expected string, actual any) error {
	return errors.Newf(errors.ErrTypeMismatch, "value at %q is a %s, not a %s", path, TypeName(actual), expected).
		WithDetail("path", path).
		WithDetail("expected", expected).
		WithDetail("actual", TypeName(actual))
}

// TypeName names the kind of a tree value for diagnostics.
func TypeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "branch"
	case []any:
		return "list"
	case time.Time:
		return "datetime"
	case toml.LocalDate:
		return "date"
	case toml.LocalDateTime:
		return "local datetime"
	case toml.LocalTime:
		return "time"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// ValuesEqual compares two tree values; instants compare equal across time zones.
func ValuesEqual(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, found := y[k]
			if !found || !ValuesEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		return ok && slices.EqualFunc(x, y, ValuesEqual)
	}
	return a == b
}

func collectLeaves(prefix string, branch map[string]any, out map[string]any) {
	for k, v := range branch {
		path := joinPath(prefix, k)
		if sub, ok := v.(map[string]any); ok {
			collectLeaves(path, sub, out)
			continue
		}
		out[path] = deepCopy(v)
	}
}

// prune returns a copy of branch without empty sub-branches, and whether anything remains.
func prune(branch map[string]any) (map[string]any, bool) {
	out := make(map[string]any, len(branch))
	for k, v := range branch {
		if sub, ok := v.(map[string]any); ok {
			if pruned, keep := prune(sub); keep {
				out[k] = pruned
			}
			continue
		}
		out[k] = deepCopy(v)
	}
	return out, len(out) > 0
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, sub := range x {
			out[k] = deepCopy(sub)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, sub := range x {
			out[i] = deepCopy(sub)
		}
		return out
	}
	return v
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Delimiter + key
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
