package targets

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Rule is one parsed gitignore-style pattern.
type Rule struct {
	// Pattern is the pattern as written.
	Pattern string
	Negate  bool
	// DirOnly is set by a trailing slash.
	DirOnly bool
	glob    string
}

// ParseRules parses patterns, skipping blank lines and # comments.
// Invalid globs are collected into a single INVALID_INPUT error.
func ParseRules(patterns []string) ([]Rule, error) {
	var rules []Rule
	var invalid []string
	for _, raw := range patterns {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := Rule{Pattern: line}
		if rest, ok := strings.CutPrefix(line, "!"); ok {
			r.Negate = true
			line = rest
		} else if strings.HasPrefix(line, `\!`) || strings.HasPrefix(line, `\#`) {
			line = line[1:]
		}
		if rest, ok := strings.CutSuffix(line, "/"); ok {
			r.DirOnly = true
			line = rest
		}
		anchored := strings.Contains(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			invalid = append(invalid, raw)
			continue
		}
		if anchored {
			r.glob = line
		} else {
			r.glob = "**/" + line
		}
		if !doublestar.ValidatePattern(r.glob) {
			invalid = append(invalid, raw)
			continue
		}
		rules = append(rules, r)
	}
	if len(invalid) > 0 {
		return nil, errors.Newf(errors.ErrInvalidInput, "invalid target patterns: %s", strings.Join(invalid, ", ")).
			WithDetail("patterns", invalid)
	}
	return rules, nil
}

// matches reports whether the rule matches rel (slash-separated) or one of its
// parent directories.
func (r Rule) matches(rel string, isDir bool) bool {
	if (!r.DirOnly || isDir) && doublestar.MatchUnvalidated(r.glob, rel) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if doublestar.MatchUnvalidated(r.glob, dir) {
			return true
		}
	}
	return false
}

// RuleSet applies rules in order; the last matching rule wins.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet parses patterns into a RuleSet.
func NewRuleSet(patterns []string) (*RuleSet, error) {
	rules, err := ParseRules(patterns)
	if err != nil {
		return nil, err
	}
	return &RuleSet{rules: rules}, nil
}

// Len is the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Match reports whether rel is selected. It also returns the deciding rule's pattern,
// or "" when no rule matched.
func (s *RuleSet) Match(rel string, isDir bool) (bool, string) {
	for i := len(s.rules) - 1; i >= 0; i-- {
		r := s.rules[i]
		if r.matches(rel, isDir) {
			return !r.Negate, r.Pattern
		}
	}
	return false, ""
}
