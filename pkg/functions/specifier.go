package functions

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var specifierClause = regexp.MustCompile(`^\s*(~=|===|==|!=|<=|>=|<|>)\s*(\S+)\s*$`)

type specifier struct {
	op       string
	text     string
	version  *Pep440
	wildcard bool
}

// SpecifierSet is a comma-joined list of PEP 440 version clauses such as ">=1.2,!=1.3.*".
type SpecifierSet struct {
	clauses []specifier
}

// ParseSpecifierSet parses a specifier set. An empty string matches every final release.
func ParseSpecifierSet(s string) (*SpecifierSet, error) {
	set := &SpecifierSet{}
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, raw := range strings.Split(s, ",") {
		m := specifierClause.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("invalid specifier %q", strings.TrimSpace(raw))
		}
		clause := specifier{op: m[1], text: m[2]}
		if clause.op != "===" {
			text := m[2]
			if strings.HasSuffix(text, ".*") {
				if clause.op != "==" && clause.op != "!=" {
					return nil, fmt.Errorf("wildcard not allowed with %s in %q", clause.op, strings.TrimSpace(raw))
				}
				clause.wildcard = true
				text = strings.TrimSuffix(text, ".*")
			}
			v, err := ParsePep440(text)
			if err != nil {
				return nil, fmt.Errorf("invalid specifier %q: %w", strings.TrimSpace(raw), err)
			}
			if clause.op == "~=" && len(v.Release) < 2 {
				return nil, fmt.Errorf("~= needs at least two release components in %q", strings.TrimSpace(raw))
			}
			clause.version = v
		}
		set.clauses = append(set.clauses, clause)
	}
	return set, nil
}

// allowsPrereleases reports whether any inclusive clause names a pre-release.
func (s *SpecifierSet) allowsPrereleases() bool {
	for _, c := range s.clauses {
		if c.op != "!=" && c.version != nil && c.version.IsPrerelease() {
			return true
		}
	}
	return false
}

// Contains reports whether v satisfies every clause.
// Pre-releases match only if some clause names a pre-release.
func (s *SpecifierSet) Contains(v *Pep440) bool {
	if v.IsPrerelease() && !s.allowsPrereleases() {
		return false
	}
	for _, c := range s.clauses {
		if !c.matches(v) {
			return false
		}
	}
	return true
}

func (c specifier) matches(v *Pep440) bool {
	switch c.op {
	case "===":
		return strings.EqualFold(v.raw, c.text)
	case "==":
		return c.equal(v)
	case "!=":
		return !c.equal(v)
	case "<=":
		return ComparePep440(withoutLocal(v), c.version) <= 0
	case ">=":
		return ComparePep440(withoutLocal(v), c.version) >= 0
	case "<":
		if ComparePep440(v, c.version) >= 0 {
			return false
		}
		if !c.version.IsPrerelease() && v.IsPrerelease() && sameBase(v, c.version) {
			return false
		}
		return true
	case ">":
		if ComparePep440(v, c.version) <= 0 {
			return false
		}
		if !c.version.IsPostrelease() && v.IsPostrelease() && sameBase(v, c.version) {
			return false
		}
		if len(v.Local) > 0 && sameBase(v, c.version) {
			return false
		}
		return true
	case "~=":
		prefix := &Pep440{Epoch: c.version.Epoch, Release: c.version.Release[:len(c.version.Release)-1]}
		return ComparePep440(withoutLocal(v), c.version) >= 0 && prefixMatch(v, prefix)
	}
	return false
}

func (c specifier) equal(v *Pep440) bool {
	if c.wildcard {
		return prefixMatch(v, c.version)
	}
	if len(c.version.Local) == 0 {
		v = withoutLocal(v)
	}
	return ComparePep440(v, c.version) == 0
}

// prefixMatch implements ==X.Y.*: the epoch matches and the release starts with the prefix's release.
func prefixMatch(v, prefix *Pep440) bool {
	if v.Epoch != prefix.Epoch {
		return false
	}
	n := len(prefix.Release)
	release := padRelease(v.Release, n)[:n]
	for i := range n {
		if release[i] != prefix.Release[i] {
			return false
		}
	}
	if prefix.Pre != nil && (v.Pre == nil || *v.Pre != *prefix.Pre) {
		return false
	}
	if prefix.Post != nil && (v.Post == nil || *v.Post != *prefix.Post) {
		return false
	}
	if prefix.Dev != nil && (v.Dev == nil || *v.Dev != *prefix.Dev) {
		return false
	}
	return true
}

func withoutLocal(v *Pep440) *Pep440 {
	if len(v.Local) == 0 {
		return v
	}
	c := *v
	c.Local = nil
	return &c
}

func sameBase(a, b *Pep440) bool {
	return a.Epoch == b.Epoch && slices.Equal(trimZeros(a.Release), trimZeros(b.Release))
}
