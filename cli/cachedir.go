package cli

import (
	"os"
	"path/filepath"
)

// cacheDir returns the directory used for pprof profile output when built
// with the pprof tag. Falls back to a relative ".avon-cache" if the OS has
// no cache directory convention (e.g. $HOME unset). cmd.Repl computes its
// own copy of this same fallback for REPL history, since cli/cmd cannot
// import this package without a cycle.
func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".avon-cache"
	}

	return filepath.Join(dir, "avon")
}
