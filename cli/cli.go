package cli

import (
	"context"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/avon/cli/cmd"
	"github.com/ardnew/avon/log"
	"github.com/ardnew/avon/pkg"
)

// CLI is the top-level command-line interface for avon.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Fmt  cmd.Fmt  `cmd:"" help:"Re-emit, evaluate, or dump a parsed program in another encoding."`
	Repl cmd.Repl `cmd:"" help:"Launch the interactive evaluator."`

	Eval cmd.Eval `cmd:"" default:"withargs" help:"Evaluate a program, optionally running the deploy collector."`
}

// Run executes the avon CLI with the given context and arguments. The exit
// function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	// The `-<name> <value>` environment injections are dynamic flag names
	// Kong was never told about, so they are pulled out of args before Kong
	// ever sees them.
	injections, args := scanInjections(args)

	vars := kong.Vars{}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	// Parse command line
	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.BindSingletonProvider(func() log.Logger {
			return log.With()
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithInjections(ctx, injections)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	// Execute the selected command
	return ktx.Run(ctx, &cli)
}

// reservedShortNames are single-dash flag names Kong itself recognizes
// (-h for help, -p for the pprof mode, -i for the fmt indent width);
// scanInjections leaves these untouched so Kong's own parsing handles
// them.
var reservedShortNames = map[string]struct{}{
	"h": {},
	"i": {},
	"p": {},
}

// scanInjections extracts every `-<name>` or `-<name> <value>` /
// `-<name>=<value>` pair from args that is not one of Kong's own
// single-dash flags, to be injected into the initial environment before
// evaluation. It returns the extracted bindings and the remaining args
// with those tokens removed, so Kong never has to recognize a flag name
// it was never told about.
func scanInjections(args []string) (map[string]string, []string) {
	inj := map[string]string{}
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			out = append(out, args[i:]...)

			break
		}

		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			out = append(out, arg)

			continue
		}

		body := arg[1:]

		name, value, hasValue := body, "", false
		if eq := strings.IndexByte(body, '='); eq >= 0 {
			name, value = body[:eq], body[eq+1:]
			hasValue = true
		}

		if !isInjectionName(name) {
			out = append(out, arg)

			continue
		}

		if _, reserved := reservedShortNames[name]; reserved {
			out = append(out, arg)

			continue
		}

		if !hasValue && i+1 < len(args) {
			value = args[i+1]
			i++
		}

		inj[name] = value
	}

	return inj, out
}

// isInjectionName reports whether name matches Avon's identifier
// grammar ([A-Za-z_][A-Za-z0-9_]*), the only names an injection may bind.
func isInjectionName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
