// Package cmd implements avon's subcommands: eval, fmt, and repl.
package cmd
