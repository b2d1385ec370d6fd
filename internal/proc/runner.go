// Package proc runs external processes for steps and helpers.
package proc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process has been killed.
const DefaultWaitDelay = 2 * time.Second

type RunOptions struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer

	// OnStart is called once the process is running.
	OnStart func(pid int)
}

// RunResult carries captured output. Streams are only captured when the
// corresponding RunOptions writer is nil.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// CmdRunner starts real processes. Cancelling ctx terminates the whole
// process tree, not only the direct child.
type CmdRunner struct {
	WaitDelay time.Duration
}

func (r CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	configureTree(cmd)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	cmd.Stderr = &stderrBuf
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	if err := cmd.Start(); err != nil {
		return RunResult{ExitCode: -1}, err
	}
	if opts.OnStart != nil {
		opts.OnStart(cmd.Process.Pid)
	}

	err := cmd.Wait()
	result := RunResult{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes(), ExitCode: ExitCode(err)}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		// a non-zero exit is reported through ExitCode
		return result, nil
	}
	return result, err
}

// ExitCode extracts the process exit code from a Wait error. Errors that
// are not exit statuses map to -1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

var _ Runner = CmdRunner{}
