// Package targets selects the files a sync run rewrites.
//
// Targets are chosen by gitignore-style patterns, normally listed under
// tool.tyranno.targets in pyproject.toml:
//
//	[tool.tyranno]
//	targets = ["*.md", "pyproject.toml", ".github/**/*.yaml", "!docs/generated/"]
//
// Patterns are evaluated in order and the last one that matches a path decides.
// A pattern starting with "!" excludes. A pattern containing a slash (other than a
// trailing one) is anchored at the project root; otherwise it matches at any depth.
// A trailing slash matches directories and everything beneath them.
//
// Paths ignored by the root .gitignore are never targets, and the .git directory and
// the project directory (.tyranno) are never entered.
package targets
