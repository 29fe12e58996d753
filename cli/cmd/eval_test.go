package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureStdout redirects os.Stdout for the duration of fn and returns what
// was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	orig := os.Stdout
	os.Stdout = w

	defer func() { os.Stdout = orig }()

	fn()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	buf := make([]byte, 4096)

	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}

		if rerr != nil {
			break
		}
	}

	return b.String()
}

func TestEvalRunEvalInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantOut string
		wantErr bool
	}{
		{name: "arithmetic", source: "1 + 2 * 3", wantOut: "7"},
		{name: "template", source: `let port = 8080 in "port={port}"`, wantOut: `"port=8080"`},
		{name: "pipe", source: `"hello" -> upper`, wantOut: `"HELLO"`},
		{name: "map", source: "map (\\x x * 2) [1,2,3]", wantOut: "[2, 4, 6]"},
		{name: "syntax_error", source: "let x = in", wantErr: true},
		{name: "unknown_symbol", source: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &Eval{EvalInput: tt.source}

			var runErr error

			out := captureStdout(t, func() {
				runErr = e.Run(context.Background())
			})

			if (runErr != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", runErr, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if got := strings.TrimSpace(out); got != tt.wantOut {
				t.Errorf("Run() stdout = %q, want %q", got, tt.wantOut)
			}
		})
	}
}

func TestEvalRunInjection(t *testing.T) {
	t.Parallel()

	e := &Eval{EvalInput: "\"hello {name}\""}
	ctx := WithInjections(context.Background(), map[string]string{"name": "avon"})

	out := captureStdout(t, func() {
		if err := e.Run(ctx); err != nil {
			t.Fatal(err)
		}
	})

	if want := `"hello avon"`; strings.TrimSpace(out) != want {
		t.Errorf("Run() stdout = %q, want %q", out, want)
	}
}

func TestEvalRunSourceFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "prog.avon")

	if err := os.WriteFile(file, []byte("1 + 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &Eval{Source: []string{file}}

	out := captureStdout(t, func() {
		if err := e.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	if got := strings.TrimSpace(out); got != "2" {
		t.Errorf("Run() stdout = %q, want %q", got, "2")
	}
}

func TestEvalRunDeploy(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	e := &Eval{
		EvalInput: `@/etc/app.conf {"name=app\n"}`,
		Deploy:    true,
		Root:      root,
	}

	out := captureStdout(t, func() {
		if err := e.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	if !strings.Contains(out, "wrote") {
		t.Errorf("Run() stdout = %q, want it to mention a written file", out)
	}

	content, err := os.ReadFile(filepath.Join(root, "etc", "app.conf"))
	if err != nil {
		t.Fatal(err)
	}

	if string(content) != "name=app\n" {
		t.Errorf("deployed content = %q, want %q", content, "name=app\n")
	}

	// Rerunning without --force must fail with DeployError{Exists}.
	e2 := &Eval{EvalInput: e.EvalInput, Deploy: true, Root: root}
	if err := e2.Run(context.Background()); err == nil {
		t.Error("second Run() without --force should fail with an Exists error")
	}
}

func TestEvalRunDeployForce(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "out.txt")

	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &Eval{EvalInput: `@/out.txt {"new"}`, Deploy: true, Root: root, Force: true}

	captureStdout(t, func() {
		if err := e.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	if string(content) != "new" {
		t.Errorf("content = %q, want %q", content, "new")
	}
}

func TestEvalRunDeployIfNotExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "out.txt")

	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &Eval{EvalInput: `@/out.txt {"new"}`, Deploy: true, Root: root, IfNotExists: true}

	captureStdout(t, func() {
		if err := e.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	if string(content) != "old" {
		t.Errorf("content = %q, want unchanged %q", content, "old")
	}
}
