// Package builtin implements Avon's built-in function library: pure
// numeric, string, list, dict, formatting, and
// type-introspection functions, plus the handful of file-reading
// functions that perform read-only local I/O. Every function is bound
// into a fresh root environment by Register.
//
// Higher-order combinators (map, filter, fold, flatmap) need to call
// back into user closures. Rather than import lang/eval (which would
// create an import cycle, since eval already imports value), Register
// takes an Apply callback supplied by the caller — lang/eval exports
// exactly this signature via (*eval.Evaluator).Apply.
package builtin

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ardnew/avon/lang/environment"
	"github.com/ardnew/avon/lang/value"
)

// Apply invokes a function value (closure or builtin) with args,
// applying the same currying/over-application rules as source-level
// application.
type Apply func(fn *value.Value, args []*value.Value) (*value.Value, error)

// Register binds every built-in function into env under its canonical
// name. apply is used by map/filter/fold/flatmap to invoke the
// caller-supplied function argument.
func Register(env *environment.Env, apply Apply) {
	for name, b := range table(apply) {
		env.Bind(name, value.BuiltinVal(b))
	}
}

func fn(name string, arity int, f value.BuiltinFn) *value.Builtin {
	return &value.Builtin{Name: name, Arity: arity, Fn: f}
}

func argErr(name, want string, got *value.Value) error {
	return fmt.Errorf("%s: expected %s, got %s", name, want, got.Kind)
}

func table(apply Apply) map[string]*value.Builtin {
	t := map[string]*value.Builtin{}

	add := func(b *value.Builtin) { t[b.Name] = b }

	// --- numeric helpers ---------------------------------------------
	add(fn("abs", 1, biAbs))
	add(fn("min", 2, biMin))
	add(fn("max", 2, biMax))
	add(fn("floor", 1, biFloor))
	add(fn("ceil", 1, biCeil))
	add(fn("round", 1, biRound))

	// --- string predicates and transforms -----------------------------
	add(fn("upper", 1, biUpper))
	add(fn("lower", 1, biLower))
	add(fn("trim", 1, biTrim))
	add(fn("split", 2, biSplit))
	add(fn("join", 2, biJoin))
	add(fn("contains", 2, biContains))
	add(fn("starts_with", 2, biStartsWith))
	add(fn("ends_with", 2, biEndsWith))
	add(fn("replace", 3, biReplace))
	add(fn("reverse", 1, biReverse))
	add(fn("repeat", 2, biRepeat))
	add(fn("length", 1, biLength))
	add(fn("to_string", 1, biToString))

	// --- list combinators ----------------------------------------------
	add(fn("map", 2, biMap(apply)))
	add(fn("filter", 2, biFilter(apply)))
	add(fn("fold", 3, biFold(apply)))
	add(fn("flatmap", 2, biFlatmap(apply)))
	add(fn("head", 1, biHead))
	add(fn("tail", 1, biTail))
	add(fn("concat", 2, biConcat))
	add(fn("sort", 1, biSort))

	// --- dict helpers ------------------------------------------------
	add(fn("get", 2, biGet))
	add(fn("has", 2, biHas))
	add(fn("keys", 1, biKeys))
	add(fn("values", 1, biValues))

	// --- type introspection --------------------------------------------
	add(fn("typeof", 1, biTypeof))
	add(fn("is_int", 1, biIsKind(value.IntKind)))
	add(fn("is_float", 1, biIsKind(value.FloatKind)))
	add(fn("is_bool", 1, biIsKind(value.BoolKind)))
	add(fn("is_string", 1, biIsKind(value.StrKind)))
	add(fn("is_list", 1, biIsKind(value.ListKind)))
	add(fn("is_dict", 1, biIsKind(value.DictKind)))
	add(fn("is_path", 1, biIsKind(value.PathKind)))
	add(fn("assert", 2, biAssert))

	// --- formatting ------------------------------------------------
	add(fn("format_json", 1, biFormatJSON))
	add(fn("format_hex", 1, biFormatHex))
	add(fn("format_binary", 1, biFormatBinary))
	add(fn("format_currency", 1, biFormatCurrency))
	add(fn("pad_left", 3, biPadLeft))
	add(fn("pad_right", 3, biPadRight))

	// --- file reading (read-only local I/O) -----------------------------
	add(fn("readfile", 1, biReadfile))
	add(fn("readlines", 1, biReadlines))
	add(fn("exists", 1, biExists))
	add(fn("basename", 1, biBasename))
	add(fn("json_parse", 1, biJSONParse))

	// --- HTML/Markdown helpers -------------------------------------------
	add(fn("html_escape", 1, biHTMLEscape))
	add(fn("md_escape", 1, biMDEscape))

	return t
}

func wantStr(name string, v *value.Value) (string, error) {
	if v.Kind != value.StrKind && v.Kind != value.PathKind {
		return "", argErr(name, "string", v)
	}

	return v.Str, nil
}

func wantList(name string, v *value.Value) ([]*value.Value, error) {
	if v.Kind != value.ListKind {
		return nil, argErr(name, "list", v)
	}

	return v.List, nil
}

func wantDict(name string, v *value.Value) (*value.Dict, error) {
	if v.Kind != value.DictKind {
		return nil, argErr(name, "dict", v)
	}

	return v.Dict, nil
}

func wantInt(name string, v *value.Value) (int64, error) {
	if v.Kind != value.IntKind {
		return 0, argErr(name, "int", v)
	}

	return v.Int, nil
}

// numeric -----------------------------------------------------------------

func biAbs(args []*value.Value) (*value.Value, error) {
	v := args[0]

	switch v.Kind {
	case value.IntKind:
		if v.Int < 0 {
			return value.Int(-v.Int), nil
		}

		return v, nil
	case value.FloatKind:
		if v.Float < 0 {
			return value.Float(-v.Float), nil
		}

		return v, nil
	default:
		return nil, argErr("abs", "number", v)
	}
}

func biMin(args []*value.Value) (*value.Value, error) { return numericPick(args[0], args[1], "min", true) }
func biMax(args []*value.Value) (*value.Value, error) { return numericPick(args[0], args[1], "max", false) }

func numericPick(a, b *value.Value, name string, wantLess bool) (*value.Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return nil, fmt.Errorf("%s: requires two numbers, got %s and %s", name, a.Kind, b.Kind)
	}

	less := a.AsFloat() < b.AsFloat()
	if less == wantLess {
		return a, nil
	}

	return b, nil
}

func biFloor(args []*value.Value) (*value.Value, error) { return roundLike(args[0], "floor", fFloor) }
func biCeil(args []*value.Value) (*value.Value, error)  { return roundLike(args[0], "ceil", fCeil) }
func biRound(args []*value.Value) (*value.Value, error) { return roundLike(args[0], "round", fRound) }

func fFloor(f float64) float64 { return float64(int64(f) - boolToInt(f < 0 && f != float64(int64(f)))) }
func fCeil(f float64) float64  { return float64(int64(f) + boolToInt(f > 0 && f != float64(int64(f)))) }
func fRound(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}

	return float64(int64(f - 0.5))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func roundLike(v *value.Value, name string, f func(float64) float64) (*value.Value, error) {
	switch v.Kind {
	case value.IntKind:
		return v, nil
	case value.FloatKind:
		return value.Int(int64(f(v.Float))), nil
	default:
		return nil, argErr(name, "number", v)
	}
}

// strings -------------------------------------------------------------------

func biUpper(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("upper", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(strings.ToUpper(s)), nil
}

func biLower(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("lower", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(strings.ToLower(s)), nil
}

func biTrim(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("trim", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(strings.TrimSpace(s)), nil
}

func biSplit(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("split", args[0])
	if err != nil {
		return nil, err
	}

	sep, err := wantStr("split", args[1])
	if err != nil {
		return nil, err
	}

	parts := strings.Split(s, sep)
	out := make([]*value.Value, len(parts))

	for i, p := range parts {
		out[i] = value.Str(p)
	}

	return value.List(out), nil
}

func biJoin(args []*value.Value) (*value.Value, error) {
	list, err := wantList("join", args[0])
	if err != nil {
		return nil, err
	}

	sep, err := wantStr("join", args[1])
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = v.ToString()
	}

	return value.Str(strings.Join(parts, sep)), nil
}

func biContains(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("contains", args[0])
	if err != nil {
		return nil, err
	}

	sub, err := wantStr("contains", args[1])
	if err != nil {
		return nil, err
	}

	return value.Bool(strings.Contains(s, sub)), nil
}

func biStartsWith(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("starts_with", args[0])
	if err != nil {
		return nil, err
	}

	p, err := wantStr("starts_with", args[1])
	if err != nil {
		return nil, err
	}

	return value.Bool(strings.HasPrefix(s, p)), nil
}

func biEndsWith(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("ends_with", args[0])
	if err != nil {
		return nil, err
	}

	p, err := wantStr("ends_with", args[1])
	if err != nil {
		return nil, err
	}

	return value.Bool(strings.HasSuffix(s, p)), nil
}

func biReplace(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("replace", args[0])
	if err != nil {
		return nil, err
	}

	old, err := wantStr("replace", args[1])
	if err != nil {
		return nil, err
	}

	new, err := wantStr("replace", args[2])
	if err != nil {
		return nil, err
	}

	return value.Str(strings.ReplaceAll(s, old, new)), nil
}

func biReverse(args []*value.Value) (*value.Value, error) {
	v := args[0]

	switch v.Kind {
	case value.StrKind, value.PathKind:
		r := []rune(v.Str)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}

		return value.Str(string(r)), nil
	case value.ListKind:
		out := make([]*value.Value, len(v.List))
		for i, e := range v.List {
			out[len(v.List)-1-i] = e
		}

		return value.List(out), nil
	default:
		return nil, argErr("reverse", "string or list", v)
	}
}

func biRepeat(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("repeat", args[0])
	if err != nil {
		return nil, err
	}

	n, err := wantInt("repeat", args[1])
	if err != nil {
		return nil, err
	}

	if n < 0 {
		return nil, fmt.Errorf("repeat: count must be non-negative, got %d", n)
	}

	return value.Str(strings.Repeat(s, int(n))), nil
}

func biLength(args []*value.Value) (*value.Value, error) {
	v := args[0]

	switch v.Kind {
	case value.StrKind, value.PathKind:
		return value.Int(int64(len([]rune(v.Str)))), nil
	case value.ListKind:
		return value.Int(int64(len(v.List))), nil
	case value.DictKind:
		return value.Int(int64(v.Dict.Len())), nil
	default:
		return nil, argErr("length", "string, list, or dict", v)
	}
}

func biToString(args []*value.Value) (*value.Value, error) {
	return value.Str(args[0].ToString()), nil
}

// list combinators ------------------------------------------------------------

func biMap(apply Apply) value.BuiltinFn {
	return func(args []*value.Value) (*value.Value, error) {
		list, err := wantList("map", args[1])
		if err != nil {
			return nil, err
		}

		out := make([]*value.Value, len(list))

		for i, v := range list {
			r, err := apply(args[0], []*value.Value{v})
			if err != nil {
				return nil, err
			}

			out[i] = r
		}

		return value.List(out), nil
	}
}

func biFilter(apply Apply) value.BuiltinFn {
	return func(args []*value.Value) (*value.Value, error) {
		list, err := wantList("filter", args[1])
		if err != nil {
			return nil, err
		}

		var out []*value.Value

		for _, v := range list {
			r, err := apply(args[0], []*value.Value{v})
			if err != nil {
				return nil, err
			}

			if r.Kind != value.BoolKind {
				return nil, fmt.Errorf("filter: predicate must return bool, got %s", r.Kind)
			}

			if r.Bool {
				out = append(out, v)
			}
		}

		return value.List(out), nil
	}
}

func biFold(apply Apply) value.BuiltinFn {
	return func(args []*value.Value) (*value.Value, error) {
		list, err := wantList("fold", args[2])
		if err != nil {
			return nil, err
		}

		acc := args[1]

		for _, v := range list {
			acc, err = apply(args[0], []*value.Value{acc, v})
			if err != nil {
				return nil, err
			}
		}

		return acc, nil
	}
}

func biFlatmap(apply Apply) value.BuiltinFn {
	return func(args []*value.Value) (*value.Value, error) {
		list, err := wantList("flatmap", args[1])
		if err != nil {
			return nil, err
		}

		var out []*value.Value

		for _, v := range list {
			r, err := apply(args[0], []*value.Value{v})
			if err != nil {
				return nil, err
			}

			if r.Kind != value.ListKind {
				return nil, fmt.Errorf("flatmap: function must return a list, got %s", r.Kind)
			}

			out = append(out, r.List...)
		}

		return value.List(out), nil
	}
}

func biHead(args []*value.Value) (*value.Value, error) {
	list, err := wantList("head", args[0])
	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("head: empty list")
	}

	return list[0], nil
}

func biTail(args []*value.Value) (*value.Value, error) {
	list, err := wantList("tail", args[0])
	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		return value.List(nil), nil
	}

	return value.List(list[1:]), nil
}

func biConcat(args []*value.Value) (*value.Value, error) {
	a, err := wantList("concat", args[0])
	if err != nil {
		return nil, err
	}

	b, err := wantList("concat", args[1])
	if err != nil {
		return nil, err
	}

	out := make([]*value.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)

	return value.List(out), nil
}

func biSort(args []*value.Value) (*value.Value, error) {
	list, err := wantList("sort", args[0])
	if err != nil {
		return nil, err
	}

	out := append([]*value.Value{}, list...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if a.IsNumeric() && b.IsNumeric() {
			return a.AsFloat() < b.AsFloat()
		}

		return a.ToString() < b.ToString()
	})

	return value.List(out), nil
}

// dict helpers ------------------------------------------------------------

func biGet(args []*value.Value) (*value.Value, error) {
	d, err := wantDict("get", args[0])
	if err != nil {
		return nil, err
	}

	key, err := wantStr("get", args[1])
	if err != nil {
		return nil, err
	}

	v, ok := d.Get(key)
	if !ok {
		return nil, fmt.Errorf("get: dict has no key %q", key)
	}

	return v, nil
}

func biHas(args []*value.Value) (*value.Value, error) {
	d, err := wantDict("has", args[0])
	if err != nil {
		return nil, err
	}

	key, err := wantStr("has", args[1])
	if err != nil {
		return nil, err
	}

	_, ok := d.Get(key)

	return value.Bool(ok), nil
}

func biKeys(args []*value.Value) (*value.Value, error) {
	d, err := wantDict("keys", args[0])
	if err != nil {
		return nil, err
	}

	out := make([]*value.Value, d.Len())
	for i, e := range d.Entries() {
		out[i] = value.Str(e.Key)
	}

	return value.List(out), nil
}

func biValues(args []*value.Value) (*value.Value, error) {
	d, err := wantDict("values", args[0])
	if err != nil {
		return nil, err
	}

	out := make([]*value.Value, d.Len())
	for i, e := range d.Entries() {
		out[i] = e.Value
	}

	return value.List(out), nil
}

// type introspection ----------------------------------------------------------

func biTypeof(args []*value.Value) (*value.Value, error) {
	return value.Str(args[0].Kind.String()), nil
}

func biIsKind(k value.Kind) value.BuiltinFn {
	return func(args []*value.Value) (*value.Value, error) {
		return value.Bool(args[0].Kind == k), nil
	}
}

func biAssert(args []*value.Value) (*value.Value, error) {
	cond := args[0]
	if cond.Kind != value.BoolKind {
		return nil, fmt.Errorf("assert: condition must be a bool, got %s", cond.Kind)
	}

	if !cond.Bool {
		msg, err := wantStr("assert", args[1])
		if err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("assertion failed: %s", msg)
	}

	return value.Bool(true), nil
}

// formatting ----------------------------------------------------------------

func biFormatJSON(args []*value.Value) (*value.Value, error) {
	b, err := json.Marshal(args[0].Native())
	if err != nil {
		return nil, fmt.Errorf("format_json: %w", err)
	}

	return value.Str(string(b)), nil
}

func biFormatHex(args []*value.Value) (*value.Value, error) {
	n, err := wantInt("format_hex", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(strconv.FormatInt(n, 16)), nil
}

func biFormatBinary(args []*value.Value) (*value.Value, error) {
	n, err := wantInt("format_binary", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(strconv.FormatInt(n, 2)), nil
}

func biFormatCurrency(args []*value.Value) (*value.Value, error) {
	v := args[0]
	if !v.IsNumeric() {
		return nil, argErr("format_currency", "number", v)
	}

	f := v.AsFloat()
	neg := f < 0

	if neg {
		f = -f
	}

	cents := int64(f*100 + 0.5)
	whole, frac := cents/100, cents%100
	s := fmt.Sprintf("%d.%02d", whole, frac)

	s = groupThousands(s)
	if neg {
		s = "-" + s
	}

	return value.Str("$" + s), nil
}

func groupThousands(s string) string {
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s, ""

	if dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}

	n := len(intPart)
	if n <= 3 {
		return s
	}

	var b strings.Builder

	lead := n % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}

	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}

		b.WriteString(intPart[i : i+3])
	}

	return b.String() + fracPart
}

func biPadLeft(args []*value.Value) (*value.Value, error) {
	return pad(args, true)
}

func biPadRight(args []*value.Value) (*value.Value, error) {
	return pad(args, false)
}

func pad(args []*value.Value, left bool) (*value.Value, error) {
	s, err := wantStr("pad", args[0])
	if err != nil {
		return nil, err
	}

	width, err := wantInt("pad", args[1])
	if err != nil {
		return nil, err
	}

	fill, err := wantStr("pad", args[2])
	if err != nil {
		return nil, err
	}

	if fill == "" {
		fill = " "
	}

	need := int(width) - len([]rune(s))
	if need <= 0 {
		return value.Str(s), nil
	}

	padding := strings.Repeat(fill, (need/len([]rune(fill)))+1)
	padding = string([]rune(padding)[:need])

	if left {
		return value.Str(padding + s), nil
	}

	return value.Str(s + padding), nil
}

// file reading ----------------------------------------------------------------

func biReadfile(args []*value.Value) (*value.Value, error) {
	p, err := wantStr("readfile", args[0])
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("readfile: %w", err)
	}

	return value.Str(string(b)), nil
}

func biReadlines(args []*value.Value) (*value.Value, error) {
	p, err := wantStr("readlines", args[0])
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("readlines: %w", err)
	}

	text := strings.TrimSuffix(string(b), "\n")
	if text == "" {
		return value.List(nil), nil
	}

	lines := strings.Split(text, "\n")
	out := make([]*value.Value, len(lines))

	for i, l := range lines {
		out[i] = value.Str(l)
	}

	return value.List(out), nil
}

func biExists(args []*value.Value) (*value.Value, error) {
	p, err := wantStr("exists", args[0])
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(p)

	return value.Bool(statErr == nil), nil
}

func biBasename(args []*value.Value) (*value.Value, error) {
	p, err := wantStr("basename", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(filepath.Base(p)), nil
}

func biJSONParse(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("json_parse", args[0])
	if err != nil {
		return nil, err
	}

	var v any

	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("json_parse: %w", err)
	}

	return fromJSON(v), nil
}

func fromJSON(v any) *value.Value {
	switch x := v.(type) {
	case nil:
		return value.Str("")
	case bool:
		return value.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return value.Int(int64(x))
		}

		return value.Float(x)
	case string:
		return value.Str(x)
	case []any:
		out := make([]*value.Value, len(x))
		for i, e := range x {
			out[i] = fromJSON(e)
		}

		return value.List(out)
	case map[string]any:
		d := value.NewDict()

		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			d.Set(k, fromJSON(x[k]))
		}

		return value.DictVal(d)
	default:
		return value.Str(fmt.Sprint(x))
	}
}

// HTML/Markdown helpers ----------------------------------------------------

func biHTMLEscape(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("html_escape", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(html.EscapeString(s)), nil
}

var mdEscaped = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "{", `\{`, "}", `\}`,
	"[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`, "#", `\#`, "+", `\+`,
	"-", `\-`, ".", `\.`, "!", `\!`,
)

func biMDEscape(args []*value.Value) (*value.Value, error) {
	s, err := wantStr("md_escape", args[0])
	if err != nil {
		return nil, err
	}

	return value.Str(mdEscaped.Replace(s)), nil
}
