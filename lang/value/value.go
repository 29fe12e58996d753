// Package value defines Avon's runtime value model: the tagged-union
// Value type shared by every evaluated expression, including the
// first-class Deploy intent values harvested by lang/deploy.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/avon/lang/ast"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	IntKind Kind = iota
	FloatKind
	BoolKind
	StrKind
	PathKind
	ListKind
	DictKind
	ClosureKind
	BuiltinKind
	DeployKind
)

var kindNames = [...]string{
	"int", "float", "bool", "string", "path", "list", "dict", "closure", "builtin", "deploy",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// DictEntry is one insertion-ordered (key, value) pair of a Dict.
type DictEntry struct {
	Key   string
	Value *Value
}

// Dict is an insertion-ordered string-keyed mapping.
type Dict struct {
	entries []DictEntry
	index   map[string]int
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

// Set inserts or replaces the value bound to key, preserving the
// position of the first insertion.
func (d *Dict) Set(key string, v *Value) {
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = v

		return
	}

	d.index[key] = len(d.entries)
	d.entries = append(d.entries, DictEntry{Key: key, Value: v})
}

// Get returns the value bound to key and whether it was present.
func (d *Dict) Get(key string) (*Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}

	return d.entries[i].Value, true
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Entries returns the entries in insertion order. The caller must not
// mutate the returned slice.
func (d *Dict) Entries() []DictEntry { return d.entries }

// Env is the minimal environment interface a Closure needs to capture;
// it avoids an import cycle between value and environment (environment
// holds *Value, so environment cannot be imported back from value).
type Env interface {
	Lookup(name string) (*Value, bool)
	Names() []string
}

// Closure is a user-defined function value capturing its defining
// environment.
type Closure struct {
	Params []ast.Param
	Body   ast.Expr
	Env    Env
	// Bound holds arguments already supplied by a prior partial
	// application (currying); Params beyond len(Bound) remain open.
	Bound []*Value
}

// Arity returns the number of parameters not yet satisfied by Bound.
func (c *Closure) Arity() int { return len(c.Params) - len(c.Bound) }

// BuiltinFn is the Go function signature backing a Builtin value.
type BuiltinFn func(args []*Value) (*Value, error)

// Builtin is a native function value.
type Builtin struct {
	Name     string
	Arity    int // -1 means variadic
	Fn       BuiltinFn
	Bound    []*Value
}

// Deploy is a first-class deploy intent: a resolved path and its
// content, both already stringified.
type Deploy struct {
	Path    string
	Content string
}

// Value is the tagged union of every Avon runtime value.
type Value struct {
	Kind    Kind
	Int     int64
	Float   float64
	Bool    bool
	Str     string // also backs Path
	List    []*Value
	Dict    *Dict
	Closure *Closure
	Builtin *Builtin
	Deploy  *Deploy
}

func Int(i int64) *Value      { return &Value{Kind: IntKind, Int: i} }
func Float(f float64) *Value  { return &Value{Kind: FloatKind, Float: f} }
func Bool(b bool) *Value      { return &Value{Kind: BoolKind, Bool: b} }
func Str(s string) *Value     { return &Value{Kind: StrKind, Str: s} }
func Path(s string) *Value    { return &Value{Kind: PathKind, Str: s} }
func List(vs []*Value) *Value { return &Value{Kind: ListKind, List: vs} }
func DictVal(d *Dict) *Value  { return &Value{Kind: DictKind, Dict: d} }

func ClosureVal(c *Closure) *Value { return &Value{Kind: ClosureKind, Closure: c} }
func BuiltinVal(b *Builtin) *Value { return &Value{Kind: BuiltinKind, Builtin: b} }
func DeployVal(d *Deploy) *Value   { return &Value{Kind: DeployKind, Deploy: d} }

// IsNumeric reports whether v is an Int or Float.
func (v *Value) IsNumeric() bool { return v.Kind == IntKind || v.Kind == FloatKind }

// AsFloat returns v's numeric value widened to float64. It panics if v
// is not numeric; callers must check IsNumeric first.
func (v *Value) AsFloat() float64 {
	if v.Kind == IntKind {
		return float64(v.Int)
	}

	return v.Float
}

// Equal implements Avon's `==`/`!=` semantics: always defined, and
// false across differing Kinds.
func (v *Value) Equal(other *Value) bool {
	if v.Kind != other.Kind {
		if v.IsNumeric() && other.IsNumeric() {
			return v.AsFloat() == other.AsFloat()
		}

		return false
	}

	switch v.Kind {
	case IntKind:
		return v.Int == other.Int
	case FloatKind:
		return v.Float == other.Float
	case BoolKind:
		return v.Bool == other.Bool
	case StrKind, PathKind:
		return v.Str == other.Str
	case ListKind:
		if len(v.List) != len(other.List) {
			return false
		}

		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}

		return true
	case DictKind:
		if v.Dict.Len() != other.Dict.Len() {
			return false
		}

		for _, e := range v.Dict.Entries() {
			ov, ok := other.Dict.Get(e.Key)
			if !ok || !e.Value.Equal(ov) {
				return false
			}
		}

		return true
	default:
		return v == other
	}
}

// ToString implements the coercion rules shared by the `to_string`
// builtin and template interpolation: integers as
// decimal, floats with minimal round-trip form, booleans as
// true/false, strings/paths as their bare content, lists/dicts via
// recursive stringification with `,`/`:` separators.
func (v *Value) ToString() string {
	switch v.Kind {
	case IntKind:
		return strconv.FormatInt(v.Int, 10)
	case FloatKind:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case BoolKind:
		if v.Bool {
			return "true"
		}

		return "false"
	case StrKind, PathKind:
		return v.Str
	case ListKind:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.ToString()
		}

		return "[" + strings.Join(parts, ",") + "]"
	case DictKind:
		parts := make([]string, 0, v.Dict.Len())
		for _, e := range v.Dict.Entries() {
			parts = append(parts, e.Key+":"+e.Value.ToString())
		}

		return "{" + strings.Join(parts, ",") + "}"
	case ClosureKind:
		return "<closure>"
	case BuiltinKind:
		return fmt.Sprintf("<builtin %s>", v.Builtin.Name)
	case DeployKind:
		return fmt.Sprintf("<deploy %s>", v.Deploy.Path)
	default:
		return ""
	}
}

// Native converts v into a tree of plain Go values (int64, float64,
// bool, string, []any, map[string]any) suitable for encoding/json or
// goccy/go-yaml. Closures, builtins, and deploys — which have no
// native JSON/YAML representation — fall back to their ToString form.
func (v *Value) Native() any {
	switch v.Kind {
	case IntKind:
		return v.Int
	case FloatKind:
		return v.Float
	case BoolKind:
		return v.Bool
	case StrKind, PathKind:
		return v.Str
	case ListKind:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.Native()
		}

		return out
	case DictKind:
		out := make(map[string]any, v.Dict.Len())
		for _, e := range v.Dict.Entries() {
			out[e.Key] = e.Value.Native()
		}

		return out
	default:
		return v.ToString()
	}
}

// Inspect renders v the way the CLI's `eval` mode prints a final
// result: quoted strings, bracketed lists/dicts, recursively.
func (v *Value) Inspect() string {
	switch v.Kind {
	case StrKind:
		return strconv.Quote(v.Str)
	case PathKind:
		return "@" + v.Str
	case ListKind:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.Inspect()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case DictKind:
		parts := make([]string, 0, v.Dict.Len())
		for _, e := range v.Dict.Entries() {
			parts = append(parts, fmt.Sprintf("%s: %s", strconv.Quote(e.Key), e.Value.Inspect()))
		}

		return "{" + strings.Join(parts, ", ") + "}"
	case DeployKind:
		return fmt.Sprintf("@%s {%s}", v.Deploy.Path, strconv.Quote(v.Deploy.Content))
	default:
		return v.ToString()
	}
}
