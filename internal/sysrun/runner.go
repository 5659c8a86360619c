// Package sysrun executes external system commands and captures their
// results. All invocations use argument vectors — a command is never
// assembled into a shell string, so operator-supplied values (peer names
// in particular) cannot escape into the shell.
package sysrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds the outcome of one external command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited with status zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner runs external commands. The real implementation spawns
// processes; tests substitute a recording fake so the lifecycle logic
// never touches the system.
type Runner interface {
	// Run executes name with args and waits for completion. A non-zero
	// exit status is reported through Result, not through the error; the
	// error is reserved for failures to spawn (binary missing, context
	// canceled before start, and so on).
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunInput is Run with data supplied on the child's stdin.
	RunInput(ctx context.Context, input string, name string, args ...string) (Result, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// New returns a Runner that spawns real processes.
func New() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return e.RunInput(ctx, "", name, args...)
}

func (e *ExecRunner) RunInput(ctx context.Context, input string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{ExitCode: -1}, fmt.Errorf("running %s: %w", name, err)
		}
		// The process ran and failed; that's a Result, not an error.
	}

	return Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
	}, nil
}
