package dottree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// MergePolicy decides what happens when two trees define the same leaf path.
type MergePolicy string

const (
	// MergeAlways keeps the value from the rightmost tree.
	MergeAlways MergePolicy = "always"
	// MergeIfValuesMatch fails if a shared leaf holds two or more distinct values.
	MergeIfValuesMatch MergePolicy = "if_values_match"
	// MergeNever fails if any leaf is shared, even with equal values.
	MergeNever MergePolicy = "never"
)

// MergePolicies lists the accepted policies.
var MergePolicies = []MergePolicy{MergeAlways, MergeIfValuesMatch, MergeNever}

// ParseMergePolicy parses a policy name.
func ParseMergePolicy(s string) (MergePolicy, error) {
	for _, p := range MergePolicies {
		if string(p) == strings.ToLower(strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown merge policy %q (expected one of %v)", s, MergePolicies).
		WithDetail("policy", s)
}

// Merge builds a tree holding the union of the leaves of trees.
// Lists are leaves and are never merged element-wise; empty branches are dropped.
func Merge(policy MergePolicy, trees ...*Tree) (*Tree, error) {
	limbs := make([]map[string]any, len(trees))
	for i, t := range trees {
		limbs[i] = t.Leaves()
	}
	switch policy {
	case MergeNever:
		if shared := LeafIntersection(limbs...); len(shared) > 0 {
			return nil, intersectionError(errors.ErrLeafIntersection, "present in multiple trees", shared)
		}
	case MergeIfValuesMatch:
		conflicts := map[string][]any{}
		for path, values := range LeafIntersection(limbs...) {
			if distinct := distinctValues(values); len(distinct) > 1 {
				conflicts[path] = distinct
			}
		}
		if len(conflicts) > 0 {
			return nil, intersectionError(errors.ErrLeafConflict, "present with conflicting values in multiple trees", conflicts)
		}
	case MergeAlways:
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown merge policy %q", policy)
	}
	merged := map[string]any{}
	for _, limb := range limbs {
		for k, v := range limb {
			merged[k] = v
		}
	}
	return FromDotted(merged)
}

// LeafIntersection maps each leaf path defined in two or more limbs to its values, in limb order.
func LeafIntersection(limbs ...map[string]any) map[string][]any {
	all := map[string][]any{}
	for _, limb := range limbs {
		for k, v := range limb {
			all[k] = append(all[k], v)
		}
	}
	for k, v := range all {
		if len(v) < 2 {
			delete(all, k)
		}
	}
	return all
}

// LeafIntersectionSize maps each leaf path defined in two or more limbs to the number of limbs defining it.
func LeafIntersectionSize(limbs ...map[string]any) map[string]int {
	counts := map[string]int{}
	for _, limb := range limbs {
		for k := range limb {
			counts[k]++
		}
	}
	for k, n := range counts {
		if n < 2 {
			delete(counts, k)
		}
	}
	return counts
}

func distinctValues(values []any) []any {
	var out []any
	for _, v := range values {
		seen := false
		for _, w := range out {
			if ValuesEqual(v, w) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func intersectionError(code errors.ErrorCode, what string, shared map[string][]any) error {
	paths := make([]string, 0, len(shared))
	for k := range shared {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	parts := make([]string, len(paths))
	for i, p := range paths {
		vals := make([]string, len(shared[p]))
		for j, v := range shared[p] {
			vals[j] = fmt.Sprint(v)
		}
		parts[i] = p + ": " + strings.Join(vals, " / ")
	}
	noun := "leaf is"
	if len(paths) > 1 {
		noun = "leaves are"
	}
	return errors.Newf(code, "%d %s %s: %s", len(paths), noun, what, strings.Join(parts, ", ")).
		WithDetail("conflicts", paths).
		WithDetail("values", shared)
}
