package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ardnew/avon/lang"
	"github.com/ardnew/avon/lang/diag"
)

// Fmt formats a parsed program in one of several output encodings.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Re-emit as native Avon syntax (default)."`
	JSON   JSON   `cmd:""                    help:"Evaluate and emit the result as JSON."`
	YAML   YAML   `cmd:""                    help:"Evaluate and emit the result as YAML."`
	AST    AST    `cmd:""                    help:"Dump the token stream and AST."`
}

// Native re-emits a program in native Avon syntax without evaluating it.
type Native struct {
	Indent int    `default:"2" help:"Indent width (unused; native form has none)." short:"i"`
	Source string `arg:"" default:"-" help:"Source file, or '-' for stdin."        name:"source"`
}

// Run executes the native subcommand.
func (n *Native) Run(ctx context.Context) error {
	filename, src, derr := readFileOrStdin(n.Source)
	if derr != nil {
		return derr
	}

	a, perr := lang.Parse(src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Format(filename, src))

		return perr
	}

	return a.Format(os.Stdout, n.Indent)
}

// JSON evaluates a program and emits its result as JSON.
type JSON struct {
	Indent int    `default:"2" help:"Indent width for JSON output."         short:"i"`
	Source string `arg:"" default:"-" help:"Source file, or '-' for stdin." name:"source"`
}

// Run executes the json subcommand.
func (j *JSON) Run(ctx context.Context) error {
	filename, src, derr := readFileOrStdin(j.Source)
	if derr != nil {
		return derr
	}

	a, perr := lang.Parse(src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Format(filename, src))

		return perr
	}

	rt := lang.NewRuntime()
	for name, val := range InjectionsFrom(ctx) {
		rt.Bind(name, val)
	}

	if err := lang.FormatJSON(rt, a, os.Stdout, j.Indent); err != nil {
		de, ok := err.(*diag.Error)
		if !ok {
			return ErrJSONMarshal.Wrap(err)
		}

		fmt.Fprintln(os.Stderr, de.Format(filename, src))

		return err
	}

	return nil
}

// YAML evaluates a program and emits its result as YAML.
type YAML struct {
	Indent int    `default:"2" help:"Indent width for YAML output (0 uses flow style)." short:"i"`
	Source string `arg:"" default:"-" help:"Source file, or '-' for stdin."              name:"source"`
}

// Run executes the yaml subcommand.
func (y *YAML) Run(ctx context.Context) error {
	filename, src, derr := readFileOrStdin(y.Source)
	if derr != nil {
		return derr
	}

	a, perr := lang.Parse(src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Format(filename, src))

		return perr
	}

	rt := lang.NewRuntime()
	for name, val := range InjectionsFrom(ctx) {
		rt.Bind(name, val)
	}

	if err := lang.FormatYAML(ctx, rt, a, os.Stdout, y.Indent); err != nil {
		de, ok := err.(*diag.Error)
		if !ok {
			return ErrYAMLMarshal.Wrap(err)
		}

		fmt.Fprintln(os.Stderr, de.Format(filename, src))

		return err
	}

	return nil
}

// AST dumps the token stream and AST of a program without evaluating it.
type AST struct {
	Source string `arg:"" default:"-" help:"Source file, or '-' for stdin." name:"source"`
}

// Run executes the ast subcommand.
func (a *AST) Run(ctx context.Context) error {
	filename, src, derr := readFileOrStdin(a.Source)
	if derr != nil {
		return derr
	}

	ast, perr := lang.Parse(src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Format(filename, src))

		return perr
	}

	return ast.Print(os.Stdout)
}
