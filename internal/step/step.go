// Package step defines the unit of work the session yields: a description
// of one external process invocation plus the callbacks the host calls while
// that process runs.
package step

import (
	"strings"
)

// Status is the outcome of a finished step.
type Status int

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// CommandLine describes the process to start.
type CommandLine struct {
	Executable string
	Args       []string
	Env        map[string]string
	Dir        string

	// Secrets are argument values masked by String.
	Secrets []string
}

// String renders the command line with secrets masked.
func (c CommandLine) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Executable))
	for _, arg := range c.Args {
		parts = append(parts, quote(c.mask(arg)))
	}
	return strings.Join(parts, " ")
}

func (c CommandLine) mask(arg string) string {
	for _, secret := range c.Secrets {
		if secret != "" && strings.Contains(arg, secret) {
			arg = strings.ReplaceAll(arg, secret, "*******")
		}
	}
	return arg
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Step is one process invocation. The host calls CommandLine, starts the
// process, calls ProcessStarted, forwards output line by line, and always
// finishes with ProcessFinished, even when the process failed to start
// (exit code -1).
type Step interface {
	Name() string
	CommandLine() (CommandLine, error)
	ProcessStarted()
	Stdout(line string)
	Stderr(line string)
	ProcessFinished(exitCode int) Status
	CancelRequested()
}

// Base provides no-op callbacks for embedding.
type Base struct{}

func (Base) ProcessStarted()  {}
func (Base) Stdout(string)    {}
func (Base) Stderr(string)    {}
func (Base) CancelRequested() {}

// StatusFromExit maps a process exit code to a Status.
func StatusFromExit(code int) Status {
	if code == 0 {
		return StatusSuccess
	}
	return StatusFailed
}
