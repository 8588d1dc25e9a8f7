package functions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseSemver parses a strict three-component semantic version. A leading v is accepted.
func ParseSemver(s string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	v, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid semantic version %q: %w", s, err)
	}
	return v, nil
}

func parseSemverAll(versions []string) ([]*semver.Version, error) {
	out := make([]*semver.Version, len(versions))
	for i, s := range versions {
		v, err := ParseSemver(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SortSemver sorts versions ascending, or descending if reverse is set.
func SortSemver(versions []*semver.Version, reverse bool) {
	if reverse {
		sort.Stable(sort.Reverse(semver.Collection(versions)))
		return
	}
	sort.Stable(semver.Collection(versions))
}

// FilterSemver keeps versions satisfying a constraint such as ">=1.2, <2".
func FilterSemver(versions []*semver.Version, constraint string) ([]*semver.Version, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}
	var out []*semver.Version
	for _, v := range versions {
		if c.Check(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// BestSemver keeps the highest version per major, or per minor for 0.x. The result is sorted ascending.
func BestSemver(versions []*semver.Version) []*semver.Version {
	best := map[string]*semver.Version{}
	for _, v := range versions {
		key := fmt.Sprintf("%d", v.Major())
		if v.Major() == 0 {
			key = fmt.Sprintf("0.%d", v.Minor())
		}
		if cur, ok := best[key]; !ok || v.GreaterThan(cur) {
			best[key] = v
		}
	}
	out := make([]*semver.Version, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	SortSemver(out, false)
	return out
}

func semverStrings(versions []*semver.Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}
