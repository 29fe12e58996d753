package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/avon/cli"
	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/log"
)

func main() {
	exitCode := 0

	exit := func(code int) {
		exitCode = code
		os.Exit(code)
	}

	err := cli.Run(context.Background(), exit, os.Args[1:]...)
	if err != nil {
		log.Error("run failed", slog.Any("error", err)) // slog automatically uses LogValue()

		var derr *diag.Error
		if e, ok := err.(*diag.Error); ok {
			derr = e
		}

		if derr != nil {
			os.Exit(derr.Kind().ExitCode())
		}

		if exitCode != 0 {
			os.Exit(exitCode)
		}

		os.Exit(3)
	}
}
