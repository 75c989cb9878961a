//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package transform

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

func init() {
	// Arithmetic.
	Register("add", binaryNumeric(func(a, b float64) float64 { return a + b }))
	Register("sub", binaryNumeric(func(a, b float64) float64 { return a - b }))
	Register("mult", multTransform)
	Register("div", divTransform)
	Register("addFactor", factorTransform(func(amt, factor float64) float64 { return amt + factor }))
	Register("subFactor", factorTransform(func(amt, factor float64) float64 { return amt - factor }))
	Register("round", unaryNumeric(math.Round))
	Register("ceil", unaryNumeric(math.Ceil))
	Register("floor", unaryNumeric(math.Floor))
	Register("min", foldNumeric(math.Min))
	Register("max", foldNumeric(math.Max))
	Register("clamp", clampTransform)
	Register("roundCurrency", roundCurrencyTransform)

	// Comparison.
	Register("gt", binaryCompare(func(a, b float64) bool { return a > b }))
	Register("lt", binaryCompare(func(a, b float64) bool { return a < b }))
	Register("gte", binaryCompare(func(a, b float64) bool { return a >= b }))
	Register("lte", binaryCompare(func(a, b float64) bool { return a <= b }))
	Register("eq", eqTransform)

	// Boolean.
	Register("not", notTransform)
	Register("andN", andNTransform)
	Register("orN", orNTransform)

	// Reduction.
	Register("addN", addNTransform)
	Register("concat", concatTransform)
	Register("concatArrays", concatArraysTransform)

	// Collection.
	Register("filter", filterTransform(true))
	Register("filterNot", filterTransform(false))
	Register("find", findTransform)
	Register("map", mapTransform)
	Register("vectorOp", vectorOpTransform)
	Register("pick", pickTransform(true))
	Register("omit", pickTransform(false))
	Register("merge", mergeTransform)
	Register("box", boxTransform)
	Register("addProp", addPropTransform)

	// Sentinels and predicates.
	Register("isNonEmptyString", isNonEmptyStringTransform)
	Register("isNull", isNullTransform)
	Register("ternary", ternaryTransform)
	Register("includes", includesTransform)
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// truthy follows JSON-value truthiness: false, 0, "", nil and empty
// collections are false; everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		if n, err := toNumber(v); err == nil {
			return n != 0 && !math.IsNaN(n)
		}
		return true
	}
}

// looseEq compares numbers numerically across numeric types; everything
// else falls back to deep equality.
func looseEq(a, b any) bool {
	na, errA := toNumber(a)
	nb, errB := toNumber(b)
	if errA == nil && errB == nil {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

func asSequence(v any) ([]any, bool) {
	seq, ok := v.([]any)
	return seq, ok
}

func asMapping(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func argAt(args *Args, i int) (any, error) {
	vals := args.Values()
	if i >= len(vals) {
		return nil, fmt.Errorf("expected at least %d arguments, got %d", i+1, len(vals))
	}
	return vals[i], nil
}

func named(args *Args, key string) (any, error) {
	v, ok := args.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing argument %q", key)
	}
	return v, nil
}

func namedNumber(args *Args, key string) (float64, error) {
	v, err := named(args, key)
	if err != nil {
		return 0, err
	}
	return toNumber(v)
}

func unaryNumeric(op func(float64) float64) Func {
	return func(args *Args) (any, error) {
		v, err := argAt(args, 0)
		if err != nil {
			return nil, err
		}
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		return op(n), nil
	}
}

func binaryNumeric(op func(a, b float64) float64) Func {
	return func(args *Args) (any, error) {
		a, err := argAt(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt(args, 1)
		if err != nil {
			return nil, err
		}
		na, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		nb, err := toNumber(b)
		if err != nil {
			return nil, err
		}
		return op(na, nb), nil
	}
}

func binaryCompare(op func(a, b float64) bool) Func {
	return func(args *Args) (any, error) {
		a, err := argAt(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt(args, 1)
		if err != nil {
			return nil, err
		}
		na, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		nb, err := toNumber(b)
		if err != nil {
			return nil, err
		}
		return op(na, nb), nil
	}
}

func foldNumeric(op func(a, b float64) float64) Func {
	return func(args *Args) (any, error) {
		vals := args.Values()
		if len(vals) == 0 {
			return nil, fmt.Errorf("expected at least one argument")
		}
		acc, err := toNumber(vals[0])
		if err != nil {
			return nil, err
		}
		for _, v := range vals[1:] {
			n, err := toNumber(v)
			if err != nil {
				return nil, err
			}
			acc = op(acc, n)
		}
		return acc, nil
	}
}

// multTransform multiplies every argument in declaration order.
func multTransform(args *Args) (any, error) {
	vals := args.Values()
	if len(vals) == 0 {
		return nil, fmt.Errorf("expected at least one argument")
	}
	acc := 1.0
	for _, v := range vals {
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		acc *= n
	}
	return acc, nil
}

// divTransform divides the first argument by each subsequent one.
func divTransform(args *Args) (any, error) {
	vals := args.Values()
	if len(vals) < 2 {
		return nil, fmt.Errorf("expected at least two arguments, got %d", len(vals))
	}
	acc, err := toNumber(vals[0])
	if err != nil {
		return nil, err
	}
	for _, v := range vals[1:] {
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		acc /= n
	}
	return acc, nil
}

func factorTransform(op func(amt, factor float64) float64) Func {
	return func(args *Args) (any, error) {
		amt, err := namedNumber(args, "amt")
		if err != nil {
			return nil, err
		}
		factor, err := namedNumber(args, "factor")
		if err != nil {
			return nil, err
		}
		return op(amt, factor), nil
	}
}

func clampTransform(args *Args) (any, error) {
	amt, err := namedNumber(args, "amt")
	if err != nil {
		return nil, err
	}
	lo, err := namedNumber(args, "min")
	if err != nil {
		return nil, err
	}
	hi, err := namedNumber(args, "max")
	if err != nil {
		return nil, err
	}
	return math.Min(math.Max(amt, lo), hi), nil
}

// roundCurrencyTransform rounds to two decimal places using half-even
// decimal arithmetic so binary float artifacts do not leak into amounts.
func roundCurrencyTransform(args *Args) (any, error) {
	v, err := argAt(args, 0)
	if err != nil {
		return nil, err
	}
	n, err := toNumber(v)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	if _, err := d.SetFloat64(n); err != nil {
		return nil, fmt.Errorf("roundCurrency: %w", err)
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfEven
	var out apd.Decimal
	if _, err := ctx.Quantize(&out, &d, -2); err != nil {
		return nil, fmt.Errorf("roundCurrency: %w", err)
	}
	f, err := out.Float64()
	if err != nil {
		return nil, fmt.Errorf("roundCurrency: %w", err)
	}
	return f, nil
}

func eqTransform(args *Args) (any, error) {
	a, err := argAt(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := argAt(args, 1)
	if err != nil {
		return nil, err
	}
	return looseEq(a, b), nil
}

func notTransform(args *Args) (any, error) {
	v, err := argAt(args, 0)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

func andNTransform(args *Args) (any, error) {
	for _, v := range args.Values() {
		if !truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func orNTransform(args *Args) (any, error) {
	for _, v := range args.Values() {
		if truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func addNTransform(args *Args) (any, error) {
	var sum float64
	for _, v := range args.Values() {
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		sum += n
	}
	return sum, nil
}

func concatTransform(args *Args) (any, error) {
	var sb strings.Builder
	for _, v := range args.Values() {
		sb.WriteString(stringify(v))
	}
	return sb.String(), nil
}

func concatArraysTransform(args *Args) (any, error) {
	out := make([]any, 0)
	for _, v := range args.Values() {
		seq, ok := asSequence(v)
		if !ok {
			return nil, fmt.Errorf("concatArrays: expected a sequence, got %T", v)
		}
		out = append(out, seq...)
	}
	return out, nil
}

// applyNamed invokes the registered transform fn with the element bound
// to key "item".
func applyNamed(fn string, item any) (any, error) {
	f, err := MustLookup(fn)
	if err != nil {
		return nil, err
	}
	inner := NewArgs()
	inner.Set("item", item)
	return f(inner)
}

func collectionAndFn(args *Args) ([]any, string, error) {
	cv, err := named(args, "collection")
	if err != nil {
		return nil, "", err
	}
	seq, ok := asSequence(cv)
	if !ok {
		return nil, "", fmt.Errorf("expected collection to be a sequence, got %T", cv)
	}
	fv, err := named(args, "fn")
	if err != nil {
		return nil, "", err
	}
	fn, ok := fv.(string)
	if !ok {
		return nil, "", fmt.Errorf("expected fn to be a transform name, got %T", fv)
	}
	return seq, fn, nil
}

func filterTransform(keep bool) Func {
	return func(args *Args) (any, error) {
		seq, fn, err := collectionAndFn(args)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(seq))
		for _, el := range seq {
			res, err := applyNamed(fn, el)
			if err != nil {
				return nil, err
			}
			if truthy(res) == keep {
				out = append(out, el)
			}
		}
		return out, nil
	}
}

func findTransform(args *Args) (any, error) {
	seq, fn, err := collectionAndFn(args)
	if err != nil {
		return nil, err
	}
	for _, el := range seq {
		res, err := applyNamed(fn, el)
		if err != nil {
			return nil, err
		}
		if truthy(res) {
			return el, nil
		}
	}
	return nil, nil
}

func mapTransform(args *Args) (any, error) {
	seq, fn, err := collectionAndFn(args)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(seq))
	for _, el := range seq {
		res, err := applyNamed(fn, el)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// vectorOpTransform applies a named binary op elementwise over two
// equal-length sequences.
func vectorOpTransform(args *Args) (any, error) {
	av, err := named(args, "a")
	if err != nil {
		return nil, err
	}
	bv, err := named(args, "b")
	if err != nil {
		return nil, err
	}
	ov, err := named(args, "op")
	if err != nil {
		return nil, err
	}
	op, ok := ov.(string)
	if !ok {
		return nil, fmt.Errorf("vectorOp: expected op to be a transform name, got %T", ov)
	}
	seqA, okA := asSequence(av)
	seqB, okB := asSequence(bv)
	if !okA || !okB {
		return nil, fmt.Errorf("vectorOp: both operands must be sequences")
	}
	if len(seqA) != len(seqB) {
		return nil, fmt.Errorf("vectorOp: sequence lengths differ: %d vs %d", len(seqA), len(seqB))
	}
	f, err := MustLookup(op)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(seqA))
	for i := range seqA {
		inner := NewArgs()
		inner.Set("a", seqA[i])
		inner.Set("b", seqB[i])
		res, err := f(inner)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func pickTransform(keep bool) Func {
	return func(args *Args) (any, error) {
		fv, err := named(args, "from")
		if err != nil {
			return nil, err
		}
		m, ok := asMapping(fv)
		if !ok {
			return nil, fmt.Errorf("expected from to be a mapping, got %T", fv)
		}
		pv, err := named(args, "props")
		if err != nil {
			return nil, err
		}
		props := make(map[string]bool)
		switch p := pv.(type) {
		case string:
			props[p] = true
		case []any:
			for _, el := range p {
				s, ok := el.(string)
				if !ok {
					return nil, fmt.Errorf("expected props to be strings, got %T", el)
				}
				props[s] = true
			}
		default:
			return nil, fmt.Errorf("expected props to be a string or sequence, got %T", pv)
		}
		out := make(map[string]any)
		for k, v := range m {
			if props[k] == keep {
				out[k] = v
			}
		}
		return out, nil
	}
}

func mergeTransform(args *Args) (any, error) {
	out := make(map[string]any)
	for _, v := range args.Values() {
		m, ok := asMapping(v)
		if !ok {
			return nil, fmt.Errorf("merge: expected a mapping, got %T", v)
		}
		for k, mv := range m {
			out[k] = mv
		}
	}
	return out, nil
}

// boxTransform wraps a value into a single-key mapping.
func boxTransform(args *Args) (any, error) {
	v, err := named(args, "value")
	if err != nil {
		return nil, err
	}
	kv, err := named(args, "key")
	if err != nil {
		return nil, err
	}
	key, ok := kv.(string)
	if !ok {
		return nil, fmt.Errorf("box: expected key to be a string, got %T", kv)
	}
	return map[string]any{key: v}, nil
}

func addPropTransform(args *Args) (any, error) {
	tv, err := named(args, "target")
	if err != nil {
		return nil, err
	}
	m, ok := asMapping(tv)
	if !ok {
		return nil, fmt.Errorf("addProp: expected target to be a mapping, got %T", tv)
	}
	kv, err := named(args, "key")
	if err != nil {
		return nil, err
	}
	key, ok := kv.(string)
	if !ok {
		return nil, fmt.Errorf("addProp: expected key to be a string, got %T", kv)
	}
	v, err := named(args, "value")
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(m)+1)
	for k, mv := range m {
		out[k] = mv
	}
	out[key] = v
	return out, nil
}

func isNonEmptyStringTransform(args *Args) (any, error) {
	v, err := argAt(args, 0)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	return ok && s != "", nil
}

func isNullTransform(args *Args) (any, error) {
	v, err := argAt(args, 0)
	if err != nil {
		return nil, err
	}
	return v == nil, nil
}

func ternaryTransform(args *Args) (any, error) {
	test, err := named(args, "test")
	if err != nil {
		return nil, err
	}
	thenV, err := named(args, "then")
	if err != nil {
		return nil, err
	}
	elseV, err := named(args, "else")
	if err != nil {
		return nil, err
	}
	if truthy(test) {
		return thenV, nil
	}
	return elseV, nil
}

// includesTransform reports membership: substring for strings, loose
// element equality for sequences.
func includesTransform(args *Args) (any, error) {
	cv, err := named(args, "collection")
	if err != nil {
		return nil, err
	}
	v, err := named(args, "value")
	if err != nil {
		return nil, err
	}
	switch c := cv.(type) {
	case string:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("includes: expected a string value for a string collection, got %T", v)
		}
		return strings.Contains(c, s), nil
	case []any:
		for _, el := range c {
			if looseEq(el, v) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, fmt.Errorf("includes: expected a string or sequence collection, got %T", cv)
	}
}
