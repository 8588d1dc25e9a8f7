// pkg/targets/rules_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test gitignore-style pattern parsing and matching

package targets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/targets"
)

func TestRuleSet_Match(t *testing.T) {
	set, err := targets.NewRuleSet([]string{
		"# comment",
		"",
		"*.md",
		"/pyproject.toml",
		".github/**/*.yaml",
		"!docs/generated/",
		"!CHANGELOG.md",
		"build/",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, set.Len())

	tests := []struct {
		name    string
		path    string
		isDir   bool
		want    bool
		pattern string
	}{
		{name: "root_markdown", path: "README.md", want: true, pattern: "*.md"},
		{name: "nested_markdown", path: "docs/guide/intro.md", want: true, pattern: "*.md"},
		{name: "anchored_file", path: "pyproject.toml", want: true, pattern: "/pyproject.toml"},
		{name: "anchored_not_nested", path: "sub/pyproject.toml", want: false},
		{name: "double_star", path: ".github/workflows/ci.yaml", want: true, pattern: ".github/**/*.yaml"},
		{name: "negated_directory", path: "docs/generated/api.md", want: false, pattern: "!docs/generated/"},
		{name: "negated_file", path: "CHANGELOG.md", want: false, pattern: "!CHANGELOG.md"},
		{name: "negated_name_at_any_depth", path: "old/CHANGELOG.md", want: false, pattern: "!CHANGELOG.md"},
		{name: "directory_rule_on_file", path: "src/build", want: false},
		{name: "directory_rule_on_dir", path: "src/build", isDir: true, want: true, pattern: "build/"},
		{name: "directory_rule_contents", path: "build/out.txt", want: true, pattern: "build/"},
		{name: "unmatched", path: "main.py", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pattern := set.Match(tt.path, tt.isDir)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pattern, pattern)
		})
	}
}

func TestParseRules(t *testing.T) {
	rules, err := targets.ParseRules([]string{"!a/", `\!bang`, "  x.txt  "})
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.True(t, rules[0].Negate)
	assert.True(t, rules[0].DirOnly)
	assert.False(t, rules[1].Negate)
	assert.Equal(t, "x.txt", rules[2].Pattern)

	_, err = targets.ParseRules([]string{"ok.md", "[unclosed", "/"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Equal(t, []string{"[unclosed", "/"}, errors.GetErrorDetails(err)["patterns"])
}
