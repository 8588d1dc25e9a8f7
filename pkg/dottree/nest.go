package dottree

import (
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// nest expands dotted keys into nested branches. Nested input is tolerated, so
// {"a.b": 1, "a": {"c": 2}} yields {"a": {"b": 1, "c": 2}}. Only two branches
// may share a key; any other redefinition is a DUPLICATE_KEY error.
func nest(items map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, k := range sortedKeys(items) {
		if err := nestInto(out, "", k, items[k]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func nestInto(dst map[string]any, prefix, key string, item any) error {
	if found, exists := dst[key]; exists {
		_, foundBranch := found.(map[string]any)
		_, itemBranch := item.(map[string]any)
		if !foundBranch || !itemBranch {
			return duplicateKey(joinPath(prefix, key))
		}
	}
	if head, tail, dotted := strings.Cut(key, Delimiter); dotted {
		sub, exists := dst[head]
		if !exists {
			sub = map[string]any{}
			dst[head] = sub
		}
		branch, ok := sub.(map[string]any)
		if !ok {
			return duplicateKey(joinPath(prefix, head))
		}
		return nestInto(branch, joinPath(prefix, head), tail, item)
	}
	if branch, ok := item.(map[string]any); ok {
		node, exists := dst[key].(map[string]any)
		if !exists {
			node = map[string]any{}
			dst[key] = node
		}
		for _, k := range sortedKeys(branch) {
			if err := nestInto(node, joinPath(prefix, key), k, branch[k]); err != nil {
				return err
			}
		}
		return nil
	}
	dst[key] = item
	return nil
}

func duplicateKey(path string) error {
	return errors.Newf(errors.ErrDuplicateKey, "key %q was defined more than once", path).
		WithDetail("path", path)
}

// dotify flattens nested branches into dotted keys. Lists are kept whole.
// Two spellings of the same path, such as "a.b" and {"a": {"b": ...}}, are a DUPLICATE_KEY error.
func dotify(items map[string]any) (map[string]any, error) {
	out := map[string]any{}
	var visit func(prefix string, branch map[string]any) error
	visit = func(prefix string, branch map[string]any) error {
		for _, k := range sortedKeys(branch) {
			path := joinPath(prefix, k)
			if sub, ok := branch[k].(map[string]any); ok && len(sub) > 0 {
				if err := visit(path, sub); err != nil {
					return err
				}
				continue
			}
			if _, exists := out[path]; exists {
				return duplicateKey(path)
			}
			out[path] = branch[k]
		}
		return nil
	}
	if err := visit("", items); err != nil {
		return nil, err
	}
	return out, nil
}
