// Package ctyconv converts between tree values and go-cty values, the value
// model used by the expression evaluator and the function library.
package ctyconv

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCty converts a tree value to a cty.Value.
// Branches become objects and lists become tuples, so heterogeneous lists survive.
// Dates and times become strings in their TOML/RFC 3339 spelling.
func ToCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case float64:
		if math.IsNaN(x) {
			return cty.NilVal, fmt.Errorf("NaN has no cty representation")
		}
		return cty.NumberFloatVal(x), nil
	case time.Time:
		return cty.StringVal(x.Format(time.RFC3339Nano)), nil
	case toml.LocalDate:
		return cty.StringVal(x.String()), nil
	case toml.LocalDateTime:
		return cty.StringVal(x.String()), nil
	case toml.LocalTime:
		return cty.StringVal(x.String()), nil
	case []string:
		if len(x) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		vals := make([]cty.Value, len(x))
		for i, s := range x {
			vals[i] = cty.StringVal(s)
		}
		return cty.ListVal(vals), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(x))
		for i, item := range x {
			cv, err := ToCty(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		return ObjectOf(x)
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

// ObjectOf converts a map to a cty object, one attribute per key.
func ObjectOf(m map[string]any) (cty.Value, error) {
	if len(m) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, item := range m {
		cv, err := ToCty(item)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in attribute '%s': %w", k, err)
		}
		attrs[k] = cv
	}
	return cty.ObjectVal(attrs), nil
}

// FromCty converts a cty.Value to plain Go values: string, int64, float64, bool,
// []any, and map[string]any. Null becomes nil. Whole numbers that fit become int64.
func FromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		return number(v.AsBigFloat()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := FromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := FromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

func number(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	out, _ := f.Float64()
	return out
}

// Strings converts a list or tuple of strings to a Go slice.
func Strings(v cty.Value) ([]string, error) {
	var out []string
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StringList converts a Go slice to a cty list of strings.
func StringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
