package sysrun

import (
	"context"
	"testing"
)

func TestRun_capturesStdout(t *testing.T) {
	t.Parallel()

	r := New()
	res, err := r.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Ok() {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "hello" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "hello")
	}
}

func TestRun_nonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()

	r := New()
	res, err := r.Run(context.Background(), "false")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Ok() {
		t.Error("expected non-zero exit code from false(1)")
	}
}

func TestRun_missingBinaryIsAnError(t *testing.T) {
	t.Parallel()

	r := New()
	if _, err := r.Run(context.Background(), "definitely-not-a-real-binary-xyz"); err == nil {
		t.Error("expected spawn error for missing binary")
	}
}

func TestRunInput_feedsStdin(t *testing.T) {
	t.Parallel()

	r := New()
	res, err := r.RunInput(context.Background(), "abc\n", "cat")
	if err != nil {
		t.Fatalf("RunInput() error: %v", err)
	}
	if res.Stdout != "abc" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "abc")
	}
}

func TestRun_argumentsAreNotShellInterpreted(t *testing.T) {
	t.Parallel()

	// A hostile peer name must arrive as a literal argv element.
	hostile := "x; rm -rf /tmp/nope $(whoami)"
	r := New()
	res, err := r.Run(context.Background(), "echo", hostile)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Stdout != hostile {
		t.Errorf("stdout = %q, want the literal argument back", res.Stdout)
	}
}
