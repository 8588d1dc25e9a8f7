package functions

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// pep440Pattern is the version grammar from PEP 440, appendix B.
var pep440Pattern = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|a|beta|b|preview|pre|c|rc)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

var preLabels = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

var preRank = map[string]int{"a": 0, "b": 1, "rc": 2}

// PreRelease is a normalized pre-release segment such as rc2.
type PreRelease struct {
	Label  string
	Number int
}

// Pep440 is a parsed PEP 440 version.
type Pep440 struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   []string
	raw     string
}

// ParsePep440 parses a PEP 440 version, accepting the alternative spellings the PEP allows.
func ParsePep440(s string) (*Pep440, error) {
	m := pep440Pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid PEP 440 version %q", s)
	}
	group := func(name string) string {
		return m[pep440Pattern.SubexpIndex(name)]
	}
	v := &Pep440{raw: strings.TrimSpace(s)}
	if e := group("epoch"); e != "" {
		v.Epoch = atoi(e)
	}
	for _, part := range strings.Split(group("release"), ".") {
		v.Release = append(v.Release, atoi(part))
	}
	if l := group("pre_l"); l != "" {
		v.Pre = &PreRelease{Label: preLabels[strings.ToLower(l)], Number: atoiOrZero(group("pre_n"))}
	}
	if group("post") != "" {
		n := atoiOrZero(group("post_n1") + group("post_n2"))
		v.Post = &n
	}
	if group("dev") != "" {
		n := atoiOrZero(group("dev_n"))
		v.Dev = &n
	}
	if l := group("local"); l != "" {
		v.Local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
	}
	return v, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	return atoi(s)
}

// Major returns the first release component.
func (v *Pep440) Major() int { return v.component(0) }

// Minor returns the second release component, or 0.
func (v *Pep440) Minor() int { return v.component(1) }

// Micro returns the third release component, or 0.
func (v *Pep440) Micro() int { return v.component(2) }

func (v *Pep440) component(i int) int {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

// IsPrerelease reports whether the version has a pre-release or dev segment.
func (v *Pep440) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// IsPostrelease reports whether the version has a post-release segment.
func (v *Pep440) IsPostrelease() bool {
	return v.Post != nil
}

// String returns the canonical PEP 440 spelling, such as 1!2.0rc1.post2.dev3+ubuntu.1.
func (v *Pep440) String() string {
	s := v.Public()
	if len(v.Local) > 0 {
		s += "+" + strings.Join(v.Local, ".")
	}
	return s
}

// Public returns the canonical spelling without the local segment.
func (v *Pep440) Public() string {
	return v.format(v.Release)
}

// BaseVersion returns the epoch and release, such as 1!2.0.
func (v *Pep440) BaseVersion() string {
	var b strings.Builder
	if v.Epoch != 0 {
		b.WriteString(strconv.Itoa(v.Epoch) + "!")
	}
	b.WriteString(joinInts(v.Release))
	return b.String()
}

// Normalize returns the canonical spelling with at least three release components.
func (v *Pep440) Normalize() string {
	s := v.format(padRelease(v.Release, 3))
	if len(v.Local) > 0 {
		s += "+" + strings.Join(v.Local, ".")
	}
	return s
}

// Sanitize returns a semver-like spelling, such as 1.2.0-rc1, for versions with at most one of pre, post, and dev.
func (v *Pep440) Sanitize() (string, error) {
	n := 0
	for _, set := range []bool{v.Pre != nil, v.Post != nil, v.Dev != nil} {
		if set {
			n++
		}
	}
	if n > 1 {
		return "", fmt.Errorf("version %s mixes pre, post, and dev segments", v)
	}
	var b strings.Builder
	if v.Epoch != 0 {
		b.WriteString(strconv.Itoa(v.Epoch) + "!")
	}
	b.WriteString(joinInts(padRelease(v.Release, 3)))
	if v.Pre != nil {
		fmt.Fprintf(&b, "-%s%d", v.Pre.Label, v.Pre.Number)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, "-dev%d", *v.Dev)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, "-post%d", *v.Post)
	}
	if len(v.Local) > 0 {
		b.WriteString("+" + strings.Join(v.Local, "."))
	}
	return b.String(), nil
}

func (v *Pep440) format(release []int) string {
	var b strings.Builder
	if v.Epoch != 0 {
		b.WriteString(strconv.Itoa(v.Epoch) + "!")
	}
	b.WriteString(joinInts(release))
	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Label, v.Pre.Number)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	return b.String()
}

func padRelease(release []int, n int) []int {
	out := slices.Clone(release)
	for len(out) < n {
		out = append(out, 0)
	}
	return out
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ".")
}

// ComparePep440 orders versions by epoch, release (ignoring trailing zeros),
// pre-release, post-release, dev-release, and local segment.
// A dev-only release sorts before every pre-release of the same version.
func ComparePep440(a, b *Pep440) int {
	if c := cmp.Compare(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := slices.Compare(trimZeros(a.Release), trimZeros(b.Release)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.preKey(), b.preKey()); c != 0 {
		return c
	}
	if c := cmp.Compare(optKey(a.Post, -1), optKey(b.Post, -1)); c != 0 {
		return c
	}
	if c := cmp.Compare(optKey(a.Dev, 1<<62), optKey(b.Dev, 1<<62)); c != 0 {
		return c
	}
	return compareLocal(a.Local, b.Local)
}

// preKey ranks the pre-release; dev-only versions sort lowest and final releases highest.
func (v *Pep440) preKey() int {
	switch {
	case v.Pre == nil && v.Post == nil && v.Dev != nil:
		return -1 << 62
	case v.Pre == nil:
		return 1 << 62
	}
	return preRank[v.Pre.Label]<<40 | v.Pre.Number
}

func optKey(p *int, missing int) int {
	if p == nil {
		return missing
	}
	return *p
}

func trimZeros(release []int) []int {
	end := len(release)
	for end > 0 && release[end-1] == 0 {
		end--
	}
	return release[:end]
}

// compareLocal sorts numeric parts above alphanumeric ones; a missing local segment sorts lowest.
func compareLocal(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aErr := strconv.Atoi(a[i])
		bn, bErr := strconv.Atoi(b[i])
		var c int
		switch {
		case aErr == nil && bErr == nil:
			c = cmp.Compare(an, bn)
		case aErr == nil:
			c = 1
		case bErr == nil:
			c = -1
		default:
			c = strings.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// parsePep440All parses every version, failing on the first invalid one.
func parsePep440All(versions []string) ([]*Pep440, error) {
	out := make([]*Pep440, len(versions))
	for i, s := range versions {
		v, err := ParsePep440(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SortPep440 sorts versions ascending, or descending if reverse is set.
func SortPep440(versions []*Pep440, reverse bool) {
	slices.SortStableFunc(versions, func(a, b *Pep440) int {
		if reverse {
			return ComparePep440(b, a)
		}
		return ComparePep440(a, b)
	})
}

// BestPep440 keeps the highest version of each compatibility line: one per
// (epoch, major) for major >= 1, and one per (epoch, 0, minor) for 0.x, where
// a minor bump may break compatibility. The result is sorted ascending.
func BestPep440(versions []*Pep440) []*Pep440 {
	return maxPerGroup(versions, func(v *Pep440) string {
		if v.Major() == 0 {
			return fmt.Sprintf("%d!0.%d", v.Epoch, v.Minor())
		}
		return fmt.Sprintf("%d!%d", v.Epoch, v.Major())
	})
}

// MaxPerPep440 keeps the highest version per epoch and release prefix of the given depth
// (major, minor, or micro). The result is sorted ascending.
func MaxPerPep440(versions []*Pep440, per string) ([]*Pep440, error) {
	depth, ok := map[string]int{"major": 1, "minor": 2, "micro": 3}[per]
	if !ok {
		return nil, fmt.Errorf("%q is not one of major, minor, micro", per)
	}
	return maxPerGroup(versions, func(v *Pep440) string {
		return fmt.Sprintf("%d!%s", v.Epoch, joinInts(padRelease(v.Release, depth)[:depth]))
	}), nil
}

func maxPerGroup(versions []*Pep440, key func(*Pep440) string) []*Pep440 {
	best := map[string]*Pep440{}
	for _, v := range versions {
		k := key(v)
		if cur, ok := best[k]; !ok || ComparePep440(v, cur) > 0 {
			best[k] = v
		}
	}
	out := make([]*Pep440, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	SortPep440(out, false)
	return out
}
