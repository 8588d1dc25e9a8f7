package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// substitution matches ${{ expr }}. The expression may contain a lone "}" but not "}}".
var substitution = regexp.MustCompile(`\$\{\{\s*((?:[^}]|\}[^}])*?)\s*\}\}`)

// HasSubstitutions reports whether text contains a ${{ }} expression.
func HasSubstitutions(text string) bool {
	return substitution.MatchString(text)
}

// Substitute replaces every ${{ expr }} in text with the string form of its value.
// Text outside the delimiters is kept as is.
func (e *Evaluator) Substitute(text, inKey string) (string, error) {
	var firstErr error
	out := substitution.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}
		inner := substitution.FindStringSubmatch(match)[1]
		s, err := e.EvalString(inner, inKey)
		if err != nil {
			firstErr = err
			return match
		}
		return s
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Render produces the generated line for a marker template. A template containing
// ${{ }} is substituted; any other template is a single expression. The result must fit on one line.
func (e *Evaluator) Render(template, inKey string) (string, error) {
	var (
		out string
		err error
	)
	switch {
	case strings.TrimSpace(template) == "":
		return "", nil
	case HasSubstitutions(template):
		out, err = e.Substitute(template, inKey)
	default:
		out, err = e.EvalString(template, inKey)
	}
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(out, "\r\n") {
		return "", errors.Newf(errors.ErrExpression, "template %q renders to more than one line", template).
			WithDetail("expression", template)
	}
	return out, nil
}

// EvalString evaluates expression and converts the result with Stringify.
func (e *Evaluator) EvalString(expression, inKey string) (string, error) {
	v, err := e.Eval(expression, inKey)
	if err != nil {
		return "", err
	}
	return Stringify(v)
}

// Stringify formats a value for insertion into a file. Strings are written bare,
// dates in RFC 3339 form, and lists and tables as compact JSON.
func Stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", errors.New(errors.ErrUnresolved, "no value")
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case toml.LocalDate, toml.LocalDateTime, toml.LocalTime:
		return fmt.Sprint(x), nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrExpression, "cannot format value")
		}
		return string(data), nil
	}
}
