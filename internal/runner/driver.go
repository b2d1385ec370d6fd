// Package runner drives a session the way a CI agent does: one process per
// step, output forwarded line by line, callbacks in order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"unityrunner/internal/proc"
	"unityrunner/internal/report"
	"unityrunner/internal/session"
	"unityrunner/internal/step"
)

// Driver executes steps through a proc.Runner.
type Driver struct {
	Runner proc.Runner
	Logger *slog.Logger
	// Reporter receives the reason a step could not be run.
	Reporter report.Reporter
	// Dir is the working directory for steps that do not set one.
	Dir string
	// OnStep, when set, observes every step before and after it runs.
	OnStep func(ev StepEvent)
}

// StepEvent reports progress of a single step.
type StepEvent struct {
	Name     string
	Command  string
	Done     bool
	Status   step.Status
	ExitCode int
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Run starts the session and executes every step it yields. The returned
// status is the session result; the error is non-nil when the session
// stopped early or ctx was cancelled.
func (d *Driver) Run(ctx context.Context, s *session.Session) (step.Status, error) {
	s.Start(ctx)
	for {
		st, ok, err := s.Next(ctx)
		if err != nil {
			return s.Result(), err
		}
		if !ok {
			break
		}
		if _, err := d.Exec(ctx, st); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return step.StatusCanceled, err
			}
			d.logger().Warn("step failed to run", "step", st.Name(), "err", err)
		}
	}
	return s.Result(), nil
}

// Exec runs a single step to completion. ProcessFinished is always called,
// with exit code -1 when the process could not be started.
func (d *Driver) Exec(ctx context.Context, st step.Step) (step.Status, error) {
	logger := d.logger().With("step", st.Name())

	cl, err := st.CommandLine()
	if err != nil {
		err = fmt.Errorf("%s: build command line: %w", st.Name(), err)
		d.problem(err)
		status := st.ProcessFinished(-1)
		d.notify(StepEvent{Name: st.Name(), Done: true, Status: status, ExitCode: -1})
		return status, err
	}
	if err := ctx.Err(); err != nil {
		st.CancelRequested()
		return st.ProcessFinished(-1), err
	}

	dir := cl.Dir
	if dir == "" {
		dir = d.Dir
	}
	logger.Info("starting step", "command", cl.String())
	d.notify(StepEvent{Name: st.Name(), Command: cl.String()})

	stdout := proc.NewLineWriter(st.Stdout)
	stderr := proc.NewLineWriter(st.Stderr)

	stop := context.AfterFunc(ctx, st.CancelRequested)
	res, runErr := d.runner().Run(ctx, cl.Executable, cl.Args, proc.RunOptions{
		Dir:    dir,
		Env:    envList(cl.Env),
		Stdout: stdout,
		Stderr: stderr,
		OnStart: func(pid int) {
			logger.Debug("process started", "pid", pid)
			st.ProcessStarted()
		},
	})
	stop()
	stdout.Flush()
	stderr.Flush()

	exitCode := res.ExitCode
	if runErr != nil && ctx.Err() == nil {
		runErr = fmt.Errorf("%s: %w", st.Name(), runErr)
		d.problem(runErr)
		if exitCode == 0 {
			exitCode = -1
		}
	}
	status := st.ProcessFinished(exitCode)
	logger.Info("step finished", "exit_code", exitCode, "status", status.String())
	d.notify(StepEvent{Name: st.Name(), Done: true, Status: status, ExitCode: exitCode})

	if runErr != nil {
		if ctx.Err() != nil {
			return status, ctx.Err()
		}
		return status, runErr
	}
	return status, nil
}

func (d *Driver) runner() proc.Runner {
	if d.Runner == nil {
		return proc.CmdRunner{}
	}
	return d.Runner
}

func (d *Driver) problem(err error) {
	if d.Reporter != nil {
		d.Reporter.Problem(err.Error())
	}
}

func (d *Driver) notify(ev StepEvent) {
	if d.OnStep != nil {
		d.OnStep(ev)
	}
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
