// Package environment implements Avon's immutable lexical scope
// chain: a persistent linked list of frames, each mapping identifiers
// to values, with child-to-parent lookup and structural-sharing
// closures.
package environment

import "github.com/ardnew/avon/lang/value"

// Env is one frame of the lexical scope chain. Frames are immutable
// once shared: the only place a frame is ever mutated after
// construction is the narrow self-referential-`let` path in
// lang/eval, which mutates a brand-new, not-yet-shared frame before
// any closure captures it.
type Env struct {
	parent *Env
	names  []string
	values map[string]*value.Value
}

// New returns a fresh root frame with no parent, typically populated
// with the builtin library and any `-<name> value` CLI injections.
func New() *Env {
	return &Env{values: make(map[string]*value.Value)}
}

// Child returns a new, empty frame whose parent is e.
func (e *Env) Child() *Env {
	return &Env{parent: e, values: make(map[string]*value.Value)}
}

// Extend returns a new child frame of e with name bound to v. This is
// the ordinary (non-recursive) `let` path: the parent is untouched.
func (e *Env) Extend(name string, v *value.Value) *Env {
	child := e.Child()
	child.bind(name, v)

	return child
}

// bind adds name to this frame. Only called on frames not yet
// reachable from more than one reference (construction, or the
// letrec exception in lang/eval).
func (e *Env) bind(name string, v *value.Value) {
	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}

	e.values[name] = v
}

// Bind is the letrec exception described in the Env type doc: it
// mutates e in place. Callers must only use it on a frame they just
// created via Child and have not yet exposed to any other closure.
func (e *Env) Bind(name string, v *value.Value) {
	e.bind(name, v)
}

// Lookup searches e and its ancestors, child-to-parent, for name.
func (e *Env) Lookup(name string) (*value.Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.values[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Names returns every identifier visible from e, nearest frame first,
// for use by fuzzy-match "did you mean" hints and REPL completion.
// Shadowed names are included only once, at their innermost binding.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	var names []string

	for f := e; f != nil; f = f.parent {
		for _, n := range f.names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	return names
}
