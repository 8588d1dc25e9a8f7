// Package functions is the library of named transforms callable from expressions:
// PEP 440 and semantic versions, SPDX license metadata, PyPI releases, and
// timestamp decomposition.
//
// The table is declared statically in Library.definitions. Each entry carries
// its parameter types, so go-cty validates and converts arguments before the
// implementation runs.
package functions

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ctyconv"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Options configures the network endpoints and the frozen clock of a Library.
type Options struct {
	SPDXBaseURL string
	PyPIBaseURL string
	Timeout     time.Duration
	UserAgent   string
	// Now is the instant reported by now_utc and now_local. Zero means the time New is called.
	Now time.Time
	// Client overrides the HTTP client built from Timeout and UserAgent.
	Client *Client
}

// DefaultOptions returns the public SPDX and PyPI endpoints with a 30 second timeout.
func DefaultOptions() Options {
	return Options{
		SPDXBaseURL: DefaultSPDXBaseURL,
		PyPIBaseURL: DefaultPyPIBaseURL,
		Timeout:     30 * time.Second,
		UserAgent:   "tyranno",
	}
}

// Doc describes one function for reference output.
type Doc struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Description string `json:"description"`
}

type definition struct {
	name   string
	desc   string
	params []function.Parameter
	impl   func(args []cty.Value) (cty.Value, error)
}

// Library holds the function table and the state its functions share.
type Library struct {
	opts     Options
	ctx      context.Context
	client   *Client
	nowUTC   time.Time
	nowLocal time.Time
	defs     []definition
	table    map[string]function.Function
}

// New builds the function table.
func New(ctx context.Context, opts Options) *Library {
	defaults := DefaultOptions()
	if opts.SPDXBaseURL == "" {
		opts.SPDXBaseURL = defaults.SPDXBaseURL
	}
	if opts.PyPIBaseURL == "" {
		opts.PyPIBaseURL = defaults.PyPIBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	client := opts.Client
	if client == nil {
		client = NewClient(opts.Timeout, opts.UserAgent)
	}
	l := &Library{
		opts:     opts,
		ctx:      ctx,
		client:   client,
		nowUTC:   opts.Now.UTC(),
		nowLocal: opts.Now.Local(),
	}
	l.defs = l.definitions()
	l.table = make(map[string]function.Function, len(l.defs))
	for _, d := range l.defs {
		l.table[d.name] = function.New(&function.Spec{
			Description: d.desc,
			Params:      d.params,
			Type:        function.StaticReturnType(cty.DynamicPseudoType),
			Impl:        l.wrap(d),
		})
	}
	return l
}

// Functions returns the table keyed by function name.
func (l *Library) Functions() map[string]function.Function {
	return l.table
}

// Names returns the function names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.defs))
	for _, d := range l.defs {
		names = append(names, d.name)
	}
	slices.Sort(names)
	return names
}

// Docs describes every function, sorted by name.
func (l *Library) Docs() []Doc {
	docs := make([]Doc, 0, len(l.defs))
	for _, d := range l.defs {
		params := make([]string, len(d.params))
		for i, p := range d.params {
			params[i] = p.Name + " " + p.Type.FriendlyName()
		}
		docs = append(docs, Doc{
			Name:        d.name,
			Signature:   fmt.Sprintf("%s(%s)", d.name, strings.Join(params, ", ")),
			Description: d.desc,
		})
	}
	slices.SortFunc(docs, func(a, b Doc) int { return strings.Compare(a.Name, b.Name) })
	return docs
}

func (l *Library) wrap(d definition) function.ImplFunc {
	return func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		out, err := d.impl(args)
		if err != nil {
			return cty.NilVal, callError(d.name, args, err)
		}
		return out, nil
	}
}

// callError attaches the function name and arguments to a failure.
// Network failures keep their HTTP code.
func callError(name string, args []cty.Value, err error) error {
	native := make([]any, len(args))
	for i, a := range args {
		native[i], _ = ctyconv.FromCty(a)
	}
	code := errors.ErrFunction
	if errors.IsErrorCode(err, errors.ErrHTTP) {
		code = errors.ErrHTTP
	}
	return errors.Wrapf(err, code, "error in %s with args %v", name, native).
		WithDetail("function", name).
		WithDetail("args", native)
}

var versionsParam = function.Parameter{Name: "versions", Type: cty.List(cty.String)}

func stringParam(name string) function.Parameter {
	return function.Parameter{Name: name, Type: cty.String}
}

func (l *Library) definitions() []definition {
	return []definition{
		{
			name:   "pep440",
			desc:   "Parses a PEP 440 version into its segments.",
			params: []function.Parameter{stringParam("version")},
			impl: func(args []cty.Value) (cty.Value, error) {
				v, err := ParsePep440(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.ObjectOf(pep440Record(v))
			},
		},
		{
			name:   "pep440_normalize",
			desc:   "Canonical PEP 440 spelling with at least three release components, e.g. 1.0.0rc1.",
			params: []function.Parameter{stringParam("version")},
			impl: func(args []cty.Value) (cty.Value, error) {
				v, err := ParsePep440(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return cty.StringVal(v.Normalize()), nil
			},
		},
		{
			name:   "pep440_sanitize",
			desc:   "Semver-like spelling, e.g. 1.0.0-rc1; fails if more than one of pre, post, dev is present.",
			params: []function.Parameter{stringParam("version")},
			impl: func(args []cty.Value) (cty.Value, error) {
				v, err := ParsePep440(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				s, err := v.Sanitize()
				if err != nil {
					return cty.NilVal, err
				}
				return cty.StringVal(s), nil
			},
		},
		{
			name:   "pep440_filter",
			desc:   "Versions matching a PEP 440 specifier set such as \">=1.2,!=1.3.*\", normalized.",
			params: []function.Parameter{versionsParam, stringParam("specifier")},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := pep440Args(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				set, err := ParseSpecifierSet(args[1].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return normalizedList(filterPep440(versions, set)), nil
			},
		},
		{
			name:   "pep440_ascending",
			desc:   "Sorts PEP 440 versions from lowest to highest, normalized.",
			params: []function.Parameter{versionsParam},
			impl:   pep440Sorter(false),
		},
		{
			name:   "pep440_descending",
			desc:   "Sorts PEP 440 versions from highest to lowest, normalized.",
			params: []function.Parameter{versionsParam},
			impl:   pep440Sorter(true),
		},
		{
			name:   "pep440_min",
			desc:   "Lowest PEP 440 version, normalized.",
			params: []function.Parameter{versionsParam},
			impl:   pep440Extreme(false),
		},
		{
			name:   "pep440_max",
			desc:   "Highest PEP 440 version, normalized.",
			params: []function.Parameter{versionsParam},
			impl:   pep440Extreme(true),
		},
		{
			name:   "pep440_best",
			desc:   "Highest version per major (per minor for 0.x), ascending and normalized.",
			params: []function.Parameter{versionsParam},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := pep440Args(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				return normalizedList(BestPep440(versions)), nil
			},
		},
		{
			name:   "pep440_max_per",
			desc:   "Highest version per major, minor, or micro release, ascending and normalized.",
			params: []function.Parameter{versionsParam, stringParam("per")},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := pep440Args(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				best, err := MaxPerPep440(versions, args[1].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return normalizedList(best), nil
			},
		},
		{
			name:   "pep440_find_for_spec",
			desc:   "Released PyPI versions matching a requirement such as \"numpy>=2\", normalized.",
			params: []function.Parameter{stringParam("requirement")},
			impl: func(args []cty.Value) (cty.Value, error) {
				name, spec, err := SplitRequirement(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				set, err := ParseSpecifierSet(spec)
				if err != nil {
					return cty.NilVal, err
				}
				raw, err := l.pypiVersions(name)
				if err != nil {
					return cty.NilVal, err
				}
				versions, err := parsePep440All(raw)
				if err != nil {
					return cty.NilVal, err
				}
				return normalizedList(filterPep440(versions, set)), nil
			},
		},
		{
			name:   "semver",
			desc:   "Parses a semantic version into its parts.",
			params: []function.Parameter{stringParam("version")},
			impl: func(args []cty.Value) (cty.Value, error) {
				v, err := ParseSemver(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.ObjectOf(semverRecord(v))
			},
		},
		{
			name:   "semver_filter",
			desc:   "Semantic versions satisfying a constraint such as \"^1.2\".",
			params: []function.Parameter{versionsParam, stringParam("constraint")},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := semverArgs(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				kept, err := FilterSemver(versions, args[1].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.StringList(semverStrings(kept)), nil
			},
		},
		{
			name:   "semver_ascending",
			desc:   "Sorts semantic versions from lowest to highest.",
			params: []function.Parameter{versionsParam},
			impl:   semverSorter(false),
		},
		{
			name:   "semver_descending",
			desc:   "Sorts semantic versions from highest to lowest.",
			params: []function.Parameter{versionsParam},
			impl:   semverSorter(true),
		},
		{
			name:   "semver_min",
			desc:   "Lowest semantic version.",
			params: []function.Parameter{versionsParam},
			impl:   semverExtreme(false),
		},
		{
			name:   "semver_max",
			desc:   "Highest semantic version.",
			params: []function.Parameter{versionsParam},
			impl:   semverExtreme(true),
		},
		{
			name:   "semver_best",
			desc:   "Highest semantic version per major (per minor for 0.x), ascending.",
			params: []function.Parameter{versionsParam},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := semverArgs(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.StringList(semverStrings(BestSemver(versions))), nil
			},
		},
		{
			name:   "spdx_license",
			desc:   "SPDX license metadata: id, spdx_id, name, uri, links, header, text.",
			params: []function.Parameter{stringParam("id")},
			impl: func(args []cty.Value) (cty.Value, error) {
				lic, err := FetchLicense(l.ctx, l.client, l.opts.SPDXBaseURL, args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.ObjectOf(lic.Record())
			},
		},
		{
			name:   "pypi_data",
			desc:   "Raw PyPI JSON metadata for a package.",
			params: []function.Parameter{stringParam("package")},
			impl: func(args []cty.Value) (cty.Value, error) {
				body, err := FetchPyPI(l.ctx, l.client, l.opts.PyPIBaseURL, args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				ty, err := ctyjson.ImpliedType(body)
				if err != nil {
					return cty.NilVal, err
				}
				return ctyjson.Unmarshal(body, ty)
			},
		},
		{
			name:   "pypi_versions",
			desc:   "PyPI versions of a package that have at least one non-yanked file.",
			params: []function.Parameter{stringParam("package")},
			impl: func(args []cty.Value) (cty.Value, error) {
				versions, err := l.pypiVersions(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.StringList(versions), nil
			},
		},
		{
			name:   "timestamp",
			desc:   "Decomposes an RFC 3339 timestamp, optionally suffixed with [Zone/Name].",
			params: []function.Parameter{stringParam("timestamp")},
			impl: func(args []cty.Value) (cty.Value, error) {
				t, err := ParseTimestamp(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.ObjectOf(TimestampRecord(t))
			},
		},
		{
			name:   "timestamp_in",
			desc:   "Decomposes a timestamp after converting it to an IANA time zone.",
			params: []function.Parameter{stringParam("timestamp"), stringParam("zone")},
			impl: func(args []cty.Value) (cty.Value, error) {
				t, err := ParseTimestamp(args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				loc, err := time.LoadLocation(args[1].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.ObjectOf(TimestampRecord(t.In(loc)))
			},
		},
		{
			name: "now_utc",
			desc: "The run's start time in UTC.",
			impl: func([]cty.Value) (cty.Value, error) {
				return ctyconv.ObjectOf(TimestampRecord(l.nowUTC))
			},
		},
		{
			name: "now_local",
			desc: "The run's start time in the local time zone.",
			impl: func([]cty.Value) (cty.Value, error) {
				return ctyconv.ObjectOf(TimestampRecord(l.nowLocal))
			},
		},
	}
}

func (l *Library) pypiVersions(name string) ([]string, error) {
	body, err := FetchPyPI(l.ctx, l.client, l.opts.PyPIBaseURL, name)
	if err != nil {
		return nil, err
	}
	return PyPIVersions(body)
}

var requirementPattern = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*?)\s*((?:~=|===|==|!=|<=|>=|<|>).*)?$`)

// SplitRequirement splits "numpy>=2,<3" into the package name and its specifier set.
func SplitRequirement(s string) (string, string, error) {
	m := requirementPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", fmt.Errorf("invalid requirement %q", s)
	}
	return m[1], strings.TrimSpace(m[2]), nil
}

func pep440Args(v cty.Value) ([]*Pep440, error) {
	raw, err := ctyconv.Strings(v)
	if err != nil {
		return nil, err
	}
	return parsePep440All(raw)
}

func semverArgs(v cty.Value) ([]*semver.Version, error) {
	raw, err := ctyconv.Strings(v)
	if err != nil {
		return nil, err
	}
	return parseSemverAll(raw)
}

func filterPep440(versions []*Pep440, set *SpecifierSet) []*Pep440 {
	var out []*Pep440
	for _, v := range versions {
		if set.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func normalizedList(versions []*Pep440) cty.Value {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.Normalize()
	}
	return ctyconv.StringList(out)
}

func pep440Sorter(reverse bool) func([]cty.Value) (cty.Value, error) {
	return func(args []cty.Value) (cty.Value, error) {
		versions, err := pep440Args(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		SortPep440(versions, reverse)
		return normalizedList(versions), nil
	}
}

func pep440Extreme(highest bool) func([]cty.Value) (cty.Value, error) {
	return func(args []cty.Value) (cty.Value, error) {
		versions, err := pep440Args(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		if len(versions) == 0 {
			return cty.NilVal, fmt.Errorf("no versions given")
		}
		SortPep440(versions, highest)
		return cty.StringVal(versions[0].Normalize()), nil
	}
}

func semverSorter(reverse bool) func([]cty.Value) (cty.Value, error) {
	return func(args []cty.Value) (cty.Value, error) {
		versions, err := semverArgs(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		SortSemver(versions, reverse)
		return ctyconv.StringList(semverStrings(versions)), nil
	}
}

func semverExtreme(highest bool) func([]cty.Value) (cty.Value, error) {
	return func(args []cty.Value) (cty.Value, error) {
		versions, err := semverArgs(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		if len(versions) == 0 {
			return cty.NilVal, fmt.Errorf("no versions given")
		}
		SortSemver(versions, highest)
		return cty.StringVal(versions[0].String()), nil
	}
}

func pep440Record(v *Pep440) map[string]any {
	major := strconv.Itoa(v.Major())
	if v.Epoch != 0 {
		major = strconv.Itoa(v.Epoch) + "!" + major
	}
	full, err := v.Sanitize()
	if err != nil {
		full = v.Normalize()
	}
	optional := func(p *int) any {
		if p == nil {
			return ""
		}
		return int64(*p)
	}
	rec := map[string]any{
		"full_version":       full,
		"normalized_version": v.Normalize(),
		"public_version":     v.Public(),
		"major_version":      major,
		"minor_version":      fmt.Sprintf("%s.%d", major, v.Minor()),
		"micro_version":      fmt.Sprintf("%s.%d.%d", major, v.Minor(), v.Micro()),
		"epoch":              int64(v.Epoch),
		"major":              int64(v.Major()),
		"minor":              int64(v.Minor()),
		"micro":              int64(v.Micro()),
		"patch":              int64(v.Micro()),
		"pre":                "",
		"pre_type":           "",
		"pre_number":         "",
		"post":               "",
		"post_number":        optional(v.Post),
		"dev":                "",
		"dev_number":         optional(v.Dev),
		"local":              strings.Join(v.Local, "."),
	}
	if v.Pre != nil {
		rec["pre"] = fmt.Sprintf("%s%d", v.Pre.Label, v.Pre.Number)
		rec["pre_type"] = v.Pre.Label
		rec["pre_number"] = int64(v.Pre.Number)
	}
	if v.Post != nil {
		rec["post"] = fmt.Sprintf("post%d", *v.Post)
	}
	if v.Dev != nil {
		rec["dev"] = fmt.Sprintf("dev%d", *v.Dev)
	}
	return rec
}

func semverRecord(v *semver.Version) map[string]any {
	public := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if v.Prerelease() != "" {
		public += "-" + v.Prerelease()
	}
	var ids []any
	if v.Prerelease() != "" {
		for _, id := range strings.Split(v.Prerelease(), ".") {
			ids = append(ids, id)
		}
	}
	if ids == nil {
		ids = []any{}
	}
	return map[string]any{
		"full_version":   v.String(),
		"public_version": public,
		"minor_version":  fmt.Sprintf("%d.%d", v.Major(), v.Minor()),
		"patch_version":  fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()),
		"major":          int64(v.Major()),
		"minor":          int64(v.Minor()),
		"patch":          int64(v.Patch()),
		"pre":            v.Prerelease(),
		"pre_ids":        ids,
		"build":          v.Metadata(),
	}
}
