// Package expr resolves expressions against a project tree.
//
// An expression is one of:
//   - a quoted literal ('text', "text" or `text`), returned without its quotes
//   - a simple dotted path such as project.version, looked up directly
//   - anything else, evaluated as an HCL expression whose variables are the
//     top-level keys of the tree and whose functions come from the function library
//
// Two prefixes are expanded first: "~." stands for the configured data key,
// and a leading "." is relative to the key the template appears under.
package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ctyconv"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
)

// DefaultDataKey is where tyranno's own data lives in pyproject.toml.
const DefaultDataKey = "tool.tyranno.data"

var simpleKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)*$`)

// Options configures an Evaluator.
type Options struct {
	// DataKey replaces the "~" in "~.x". Empty means DefaultDataKey.
	DataKey string
}

// Evaluator evaluates expressions against one tree. It is not safe for concurrent use.
type Evaluator struct {
	tree    *dottree.Tree
	dataKey string
	hclCtx  *hcl.EvalContext
}

// New creates an evaluator. The library may be nil, in which case no functions are callable.
func New(tree *dottree.Tree, lib *functions.Library, opts Options) (*Evaluator, error) {
	if opts.DataKey == "" {
		opts.DataKey = DefaultDataKey
	}
	vars := make(map[string]cty.Value, tree.Len())
	nested := tree.Nested()
	for _, key := range tree.Keys() {
		v, err := ctyconv.ToCty(nested[key])
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "cannot expose %q to expressions", key).
				WithDetail("path", key)
		}
		vars[key] = v
	}
	hclCtx := &hcl.EvalContext{Variables: vars}
	if lib != nil {
		hclCtx.Functions = lib.Functions()
	}
	return &Evaluator{tree: tree, dataKey: opts.DataKey, hclCtx: hclCtx}, nil
}

// Tree returns the tree expressions are evaluated against.
func (e *Evaluator) Tree() *dottree.Tree {
	return e.tree
}

// Expand applies the "~." and relative "." prefixes.
func (e *Evaluator) Expand(expression, inKey string) string {
	s := strings.TrimSpace(expression)
	if rest, ok := strings.CutPrefix(s, "~."); ok {
		return e.dataKey + "." + rest
	}
	if inKey != "" && strings.HasPrefix(s, ".") {
		return inKey + s
	}
	return s
}

// Eval evaluates expression, with inKey as the key for relative references.
// The result is a tree value: a string, bool, int64, float64, date/time, []any or map[string]any.
func (e *Evaluator) Eval(expression, inKey string) (any, error) {
	logger := logging.GetLogger("expr")
	s := e.Expand(expression, inKey)
	if s == "" {
		return nil, errors.New(errors.ErrExpression, "empty expression").WithDetail("expression", expression)
	}

	if lit, ok := literal(s); ok {
		return lit, nil
	}
	if simpleKey.MatchString(s) {
		logger.Trace().Str("path", s).Msg("Direct lookup")
		v, err := e.tree.Access(s)
		if err != nil {
			return nil, withExpression(err, expression)
		}
		return v, nil
	}

	logger.Trace().Str("expression", s).Msg("Evaluating query")
	return e.query(s, expression)
}

func (e *Evaluator) query(s, original string) (any, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(s), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, errors.ErrExpression, "invalid expression").
			WithDetail("expression", original)
	}
	val, diags := parsed.Value(e.hclCtx)
	if diags.HasErrors() {
		return nil, diagnosticError(diags, original)
	}
	if val.IsNull() {
		return nil, errors.Newf(errors.ErrUnresolved, "expression %q resolved to nothing", original).
			WithDetail("expression", original)
	}
	if !val.IsWhollyKnown() {
		return nil, errors.Newf(errors.ErrUnresolved, "expression %q has no known value", original).
			WithDetail("expression", original)
	}
	out, err := ctyconv.FromCty(val)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrExpression, "unsupported result").WithDetail("expression", original)
	}
	return out, nil
}

// unresolvedSummaries are HCL diagnostics that mean a path or element is absent.
var unresolvedSummaries = map[string]bool{
	"Unknown variable":      true,
	"Unsupported attribute": true,
	"Invalid index":         true,
	"Missing map element":   true,
}

// diagnosticError turns evaluation diagnostics into a coded error.
// A failed function call surfaces the function's own error.
func diagnosticError(diags hcl.Diagnostics, expression string) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		if extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](diag); ok {
			if err := extra.FunctionCallError(); err != nil {
				return withExpression(err, expression)
			}
		}
		if unresolvedSummaries[diag.Summary] {
			return errors.Wrapf(diags, errors.ErrUnresolved, "cannot resolve %q", expression).
				WithDetail("expression", expression)
		}
	}
	return errors.Wrapf(diags, errors.ErrExpression, "cannot evaluate %q", expression).
		WithDetail("expression", expression)
}

// withExpression records the expression on a coded error, or wraps any other error.
func withExpression(err error, expression string) error {
	if coded, ok := err.(*errors.Error); ok {
		return coded.WithDetail("expression", expression)
	}
	return errors.Wrap(err, errors.ErrExpression, fmt.Sprintf("cannot evaluate %q", expression)).
		WithDetail("expression", expression)
}

func literal(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q == '\'' || q == '"' || q == '`') && s[len(s)-1] == q {
		inner := s[1 : len(s)-1]
		if !strings.ContainsRune(inner, rune(q)) {
			return inner, true
		}
	}
	return "", false
}
