// Package deploy implements the deploy collector: a depth-first walk
// that harvests Deploy intents out of an evaluated value, and a writer
// that resolves each intent's path against a deployment root and
// applies an overwrite policy.
package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/lang/value"
)

// Intent is one harvested (path, content) pair awaiting resolution and
// writing.
type Intent struct {
	Path    string // as evaluated, before root resolution
	Content string
}

// Collect walks v depth-first, preserving insertion order, and returns
// every Deploy value reachable through List/Dict containers. A
// non-container, non-deploy top-level value yields no intents (the
// program "has no deploy intents").
func Collect(v *value.Value) []Intent {
	var out []Intent

	collect(v, &out)

	return out
}

func collect(v *value.Value, out *[]Intent) {
	switch v.Kind {
	case value.DeployKind:
		*out = append(*out, Intent{Path: v.Deploy.Path, Content: v.Deploy.Content})
	case value.ListKind:
		for _, e := range v.List {
			collect(e, out)
		}
	case value.DictKind:
		for _, e := range v.Dict.Entries() {
			collect(e.Value, out)
		}
	}
}

// Policy is the overwrite policy applied when a deploy target already
// exists on disk.
type Policy int

const (
	// PolicyDefault refuses to overwrite an existing file.
	PolicyDefault Policy = iota
	// PolicyForce overwrites unconditionally.
	PolicyForce
	// PolicyIfNotExists skips existing files silently.
	PolicyIfNotExists
)

// Result reports what Write actually did, in intent order.
type Result struct {
	Written []string
	Skipped []string
}

// Resolve joins path against root: a leading "/" is relative to root,
// not the filesystem root, and the result must not escape root after
// normalization.
func Resolve(root, path string) (string, *diag.Error) {
	rel := strings.TrimPrefix(path, "/")
	joined := filepath.Join(root, rel)

	cleanRoot := filepath.Clean(root)
	cleanJoined := filepath.Clean(joined)

	if cleanJoined != cleanRoot && !strings.HasPrefix(cleanJoined, cleanRoot+string(filepath.Separator)) {
		return "", diag.Newf(diag.DeployEscapes, "deploy path %q escapes root %q", path, root)
	}

	return cleanJoined, nil
}

// Write resolves and writes each intent under root in order, applying
// policy. It stops at the first error: already-written files remain,
// there is no transactional rollback.
func Write(root string, intents []Intent, policy Policy) (*Result, *diag.Error) {
	res := &Result{}

	for _, in := range intents {
		target, err := Resolve(root, in.Path)
		if err != nil {
			return res, err
		}

		if _, statErr := os.Stat(target); statErr == nil {
			switch policy {
			case PolicyIfNotExists:
				res.Skipped = append(res.Skipped, target)

				continue
			case PolicyForce:
				// fall through to write
			default:
				return res, diag.Newf(diag.DeployExists, "file exists: %s", target)
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return res, diag.New(diag.DeployIO, fmt.Sprintf("create directory for %s", target)).Wrap(err)
		}

		if err := os.WriteFile(target, []byte(in.Content), 0o644); err != nil {
			return res, diag.New(diag.DeployIO, fmt.Sprintf("write %s", target)).Wrap(err)
		}

		res.Written = append(res.Written, target)
	}

	return res, nil
}
