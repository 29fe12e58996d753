package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ardnew/avon/lang"
	"github.com/ardnew/avon/lang/deploy"
	"github.com/ardnew/avon/lang/diag"
)

// Eval parses a program, evaluates it, and optionally runs the deploy
// collector over the result.
type Eval struct {
	Source []string `arg:"" help:"Source file(s), or '-' for stdin; multiple files are concatenated in order." name:"source" optional:"" type:"existingfile"`

	EvalInput string `help:"Treat this string as the program source instead of reading a file." name:"eval-input"`

	Deploy      bool   `help:"Run the deploy collector over the evaluated value."`
	Root        string `default:"."                                              help:"Deployment root directory."     type:"path"`
	Force       bool   `help:"Overwrite existing deploy targets."`
	IfNotExists bool   `help:"Skip deploy targets that already exist."            name:"if-not-exists"`

	Debug bool `help:"Emit the token stream and AST to stderr before evaluating."`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) error {
	filename, src, derr := e.readSource()
	if derr != nil {
		return derr
	}

	a, perr := lang.Parse(src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Format(filename, src))

		return perr
	}

	if e.Debug {
		_ = a.Print(os.Stderr)
	}

	rt := lang.NewRuntime()
	for name, val := range InjectionsFrom(ctx) {
		rt.Bind(name, val)
	}

	v, eerr := rt.Eval(a)
	if eerr != nil {
		fmt.Fprintln(os.Stderr, eerr.Format(filename, src))

		return eerr
	}

	if !e.Deploy {
		fmt.Println(v.Inspect())

		return nil
	}

	policy := deploy.PolicyDefault

	switch {
	case e.Force:
		policy = deploy.PolicyForce
	case e.IfNotExists:
		policy = deploy.PolicyIfNotExists
	}

	res, werr := deploy.Write(e.Root, deploy.Collect(v), policy)
	if werr != nil {
		fmt.Fprintln(os.Stderr, werr.Format(filename, src))

		return werr
	}

	for _, p := range res.Written {
		fmt.Println("wrote", p)
	}

	for _, p := range res.Skipped {
		fmt.Println("skip ", p)
	}

	return nil
}

// readSource resolves e.EvalInput / e.Source into a source string and a
// filename for diagnostics, applying the same BOM-stripping and multi-file
// concatenation as the rest of the CLI.
func (e *Eval) readSource() (filename, src string, derr *diag.Error) {
	if e.EvalInput != "" {
		return "<eval-input>", e.EvalInput, nil
	}

	r := buildSourceFiles(e.Source)
	if r == nil {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", diag.New(diag.Unknown, "read stdin").Wrap(err)
		}

		return "<stdin>", strings.TrimPrefix(string(data), "\uFEFF"), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", diag.New(diag.Unknown, "read source").Wrap(err)
	}

	filename = "<source>"
	if len(e.Source) == 1 {
		filename = e.Source[0]
	}

	return filename, strings.TrimPrefix(string(data), "\uFEFF"), nil
}
