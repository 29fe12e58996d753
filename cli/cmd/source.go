package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/ardnew/avon/lang/diag"
)

// readFileOrStdin reads path (or stdin when path is "" or "-") and returns
// its contents with any leading UTF-8 BOM discarded, along
// with a filename suitable for diagnostic formatting.
func readFileOrStdin(path string) (filename, src string, derr *diag.Error) {
	var r io.Reader

	switch path {
	case "", stdinSource:
		r = os.Stdin
		filename = "<stdin>"
	default:
		f, err := os.Open(path)
		if err != nil {
			return "", "", diag.New(diag.Unknown, "open source").Wrap(err)
		}
		defer f.Close()

		r = f
		filename = path
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", diag.New(diag.Unknown, "read source").Wrap(err)
	}

	return filename, strings.TrimPrefix(string(data), "\uFEFF"), nil
}
