package functions

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// DefaultSPDXBaseURL serves one JSON document per license, named <id>.json.
const DefaultSPDXBaseURL = "https://raw.githubusercontent.com/spdx/license-list-data/main/json/details"

// License is the metadata tyranno exposes for an SPDX license.
type License struct {
	ID     string
	Name   string
	URI    string
	Links  []string
	Header string
	Text   string
}

type spdxDetails struct {
	Name        string         `json:"name"`
	LicenseText string         `json:"licenseText"`
	CrossRef    []spdxCrossRef `json:"crossRef"`
}

type spdxCrossRef struct {
	URL     string `json:"url"`
	IsValid bool   `json:"isValid"`
	IsLive  bool   `json:"isLive"`
	Order   int    `json:"order"`
}

// FetchLicense downloads license details for an SPDX identifier such as Apache-2.0.
// Cross-reference links are limited to valid, live URLs in display order, rewritten to https.
func FetchLicense(ctx context.Context, client *Client, baseURL, id string) (*License, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "empty SPDX identifier")
	}
	body, err := client.GetJSON(ctx, strings.TrimSuffix(baseURL, "/")+"/"+url.PathEscape(id)+".json")
	if err != nil {
		return nil, err
	}
	var details spdxDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, errors.Wrapf(err, errors.ErrHTTP, "malformed SPDX document for %s", id).WithDetail("id", id)
	}
	return &License{
		ID:     id,
		Name:   details.Name,
		URI:    "https://spdx.org/licenses/" + id + ".html",
		Links:  licenseLinks(details.CrossRef),
		Header: "SPDX-License-Identifier: " + id,
		Text:   details.LicenseText,
	}, nil
}

func licenseLinks(refs []spdxCrossRef) []string {
	var kept []spdxCrossRef
	for _, r := range refs {
		if r.IsValid && r.IsLive {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b spdxCrossRef) int { return a.Order - b.Order })
	links := make([]string, len(kept))
	for i, r := range kept {
		if rest, ok := strings.CutPrefix(r.URL, "http://"); ok {
			links[i] = "https://" + rest
		} else {
			links[i] = r.URL
		}
	}
	return links
}

// Record returns the license as a map for use in expressions.
func (l *License) Record() map[string]any {
	links := make([]any, len(l.Links))
	for i, s := range l.Links {
		links[i] = s
	}
	return map[string]any{
		"id":      l.ID,
		"spdx_id": l.ID,
		"name":    l.Name,
		"uri":     l.URI,
		"links":   links,
		"header":  l.Header,
		"text":    l.Text,
	}
}
