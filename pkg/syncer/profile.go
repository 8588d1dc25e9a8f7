package syncer

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// CommentProfile is the comment syntax of a file type.
// End is empty for line comments.
type CommentProfile struct {
	Start string
	End   string
}

// IsMultiline reports whether comments need an end token.
func (p CommentProfile) IsMultiline() bool {
	return p.End != ""
}

var (
	pound     = CommentProfile{Start: "#"}
	slash     = CommentProfile{Start: "//"}
	semicolon = CommentProfile{Start: ";"}
	dashes    = CommentProfile{Start: "--"}
	htmlLike  = CommentProfile{Start: "<!--", End: "-->"}
	cssLike   = CommentProfile{Start: "/*", End: "*/"}
)

// profiles maps an extension (with its dot) or an exact file name to its comment syntax.
var profiles = func() map[string]CommentProfile {
	table := map[CommentProfile][]string{
		pound: {
			".toml", ".yaml", ".yml", ".sh", ".bash", ".zsh", ".py", ".r", ".rb", ".pl", ".tf", ".hcl",
			".cfg", ".conf", ".properties", ".env", ".ps1",
			"CITATION.cff", "Dockerfile", "Containerfile", "justfile", "Makefile",
			".gitignore", ".dockerignore", ".helmignore", ".prettierignore", ".editorconfig", ".gitattributes",
		},
		slash: {
			".java", ".scala", ".kt", ".kts", ".c", ".h", ".cpp", ".hpp", ".cs", ".go", ".rs", ".swift",
			".js", ".mjs", ".cjs", ".ts", ".jsx", ".tsx",
		},
		semicolon: {".ini", ".antlr", ".g4"},
		dashes:    {".sql", ".lua", ".hs"},
		htmlLike:  {".md", ".html", ".htm", ".xml", ".svg"},
		cssLike:   {".css", ".less", ".sass", ".scss"},
	}
	out := map[string]CommentProfile{}
	for profile, keys := range table {
		for _, k := range keys {
			out[k] = profile
		}
	}
	return out
}()

// ProfileFor returns the comment syntax for path, matching the exact file name
// first and then the lowercased extension. An unmapped file is an UNKNOWN_PROFILE error.
func ProfileFor(path string) (CommentProfile, error) {
	name := filepath.Base(path)
	if p, ok := profiles[name]; ok {
		return p, nil
	}
	if p, ok := profiles[strings.ToLower(filepath.Ext(name))]; ok {
		return p, nil
	}
	return CommentProfile{}, errors.Newf(errors.ErrUnknownProfile, "no comment syntax known for %s", name).
		WithDetail("file", path)
}

// Profiles returns a copy of the profile table.
func Profiles() map[string]CommentProfile {
	return maps.Clone(profiles)
}
