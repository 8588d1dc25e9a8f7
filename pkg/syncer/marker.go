package syncer

import (
	"regexp"
	"strings"
	"sync"
)

// Marker introduces a template line inside a comment.
const Marker = "::tyranno::"

var patternCache sync.Map // CommentProfile -> *regexp.Regexp

// MarkerPattern compiles the marker-line regex for a comment profile.
// Group 1 is the template text. For comments with an end token, the template stops
// at the first end token and anything after it on the line is ignored, so
// `<!-- ::tyranno:: x --><!-- note -->` captures " x ".
func MarkerPattern(p CommentProfile) *regexp.Regexp {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp)
	}
	start := `^\s*` + regexp.QuoteMeta(p.Start) + `\s*` + regexp.QuoteMeta(Marker)
	var expr string
	switch {
	case p.End == "":
		expr = start + `(.*)$`
	case len(p.End) == 1:
		expr = start + `([^` + regexp.QuoteMeta(p.End) + `]*)` + regexp.QuoteMeta(p.End) + `.*$`
	default:
		expr = start + `(.*?)` + regexp.QuoteMeta(p.End) + `.*$`
	}
	re := regexp.MustCompile(expr)
	patternCache.Store(p, re)
	return re
}

// templateText trims the captured text: trailing whitespace goes, and so does the
// single space conventionally written after the marker. Further indentation is kept.
func templateText(captured string) string {
	s := strings.TrimRight(captured, " \t")
	return strings.TrimPrefix(s, " ")
}

// tableHeader matches TOML [table] and [[array]] headers.
var tableHeader = regexp.MustCompile(`^\s*\[\[?\s*([A-Za-z0-9_\-."' ]+?)\s*\]\]?\s*(?:#.*)?$`)

// tomlTableKey returns the dotted key of a TOML table header line.
func tomlTableKey(line string) (string, bool) {
	m := tableHeader.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	parts := strings.Split(m[1], ".")
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"'`)
	}
	return strings.Join(parts, "."), true
}
