package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ardnew/avon/cli/cmd/repl"
	"github.com/ardnew/avon/log"
)

// Repl launches the interactive evaluator.
type Repl struct {
	Preload string `help:"Source file to parse and evaluate into the session before the first prompt." name:"preload" optional:"" type:"existingfile"`

	CacheDir string `help:"Directory for REPL history." hidden:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context, logger log.Logger) error {
	var preload *os.File

	if r.Preload != "" {
		f, err := os.Open(r.Preload)
		if err != nil {
			return err
		}
		defer f.Close()

		preload = f
	}

	dir := r.CacheDir
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			cache = ".avon-cache"
		}

		dir = filepath.Join(cache, "avon")
	}

	if preload == nil {
		return repl.Run(ctx, nil, dir, logger)
	}

	return repl.Run(ctx, preload, dir, logger)
}
