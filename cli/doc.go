// Package cli contains the command line interface for avon.
//
// # Usage
//
// The CLI provides logging and profiling configuration alongside the
// language subcommands:
//
//	avon --log-level=debug --pprof-mode=cpu eval program.avon
//
// # Commands
//
//   - eval (default): parse and evaluate a program, optionally running the
//     deploy collector over the result.
//   - fmt: re-emit a parsed program as native syntax, JSON, YAML, or a
//     token/AST debug dump.
//   - repl: launch the interactive evaluator.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Enable colorized pretty printing
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o avon .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/avon/pprof)
//
// # Examples
//
//	# Debug logging with CPU profiling
//	avon --log-level=debug --pprof-mode=cpu eval program.avon
//
//	# Inject a value into the initial environment
//	avon eval -port 8080 program.avon
//
//	# Deploy with a custom root and overwrite policy
//	avon eval --deploy --root /tmp/out --force program.avon
package cli
