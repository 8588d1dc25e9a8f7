package functions

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// DefaultPyPIBaseURL is the PyPI JSON API root; metadata lives at <base>/<name>/json.
const DefaultPyPIBaseURL = "https://pypi.org/pypi"

type pypiFile struct {
	Yanked bool `json:"yanked"`
}

type pypiReleases struct {
	Releases map[string][]pypiFile `json:"releases"`
}

// FetchPyPI downloads the raw JSON metadata for a package.
func FetchPyPI(ctx context.Context, client *Client, baseURL, name string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "empty package name")
	}
	return client.GetJSON(ctx, strings.TrimSuffix(baseURL, "/")+"/"+url.PathEscape(name)+"/json")
}

// PyPIVersions lists releases that have at least one file that is not yanked.
// Valid PEP 440 versions come first in ascending order; any others follow, sorted as text.
func PyPIVersions(metadata []byte) ([]string, error) {
	var doc pypiReleases
	if err := json.Unmarshal(metadata, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrHTTP, "malformed PyPI metadata")
	}
	var parsed []*Pep440
	var other []string
	for version, files := range doc.Releases {
		if !slices.ContainsFunc(files, func(f pypiFile) bool { return !f.Yanked }) {
			continue
		}
		if v, err := ParsePep440(version); err == nil {
			parsed = append(parsed, v)
		} else {
			other = append(other, version)
		}
	}
	slices.SortFunc(parsed, func(a, b *Pep440) int { return strings.Compare(a.raw, b.raw) })
	SortPep440(parsed, false)
	slices.Sort(other)
	out := make([]string, 0, len(parsed)+len(other))
	for _, v := range parsed {
		out = append(out, v.raw)
	}
	return append(out, other...), nil
}
