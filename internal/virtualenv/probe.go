// Package virtualenv detects editors inside a virtual (containerised)
// execution context by running an embedded script there and parsing its
// line protocol.
package virtualenv

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/version"
)

//go:embed scripts/detect.sh scripts/detect.ps1
var scripts embed.FS

// EnvRootHint carries the configured root hint into the probe script.
const EnvRootHint = "UNITY_ROOT_HINT"

// ErrNoEnvironments means the probe finished without a usable result.
var ErrNoEnvironments = errors.New("no unity editor found in virtual environment")

// Options configure a Probe.
type Options struct {
	// Requested filters results; zero accepts every version.
	Requested version.Version
	RootHint  string
	// GOOS of the virtual context; defaults to the host OS.
	GOOS string
	// Shell overrides the interpreter (sh or powershell).
	Shell    string
	Logger   *slog.Logger
	Reporter report.Reporter
}

// Probe is the detection step. It is safe to read results from another
// goroutine once ProcessFinished has returned.
type Probe struct {
	step.Base
	opts Options

	mu       sync.Mutex
	results  []Result
	seen     map[Result]bool
	exitCode int
	finished bool
}

func NewProbe(opts Options) *Probe {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	return &Probe{opts: opts, seen: map[Result]bool{}}
}

func (p *Probe) Name() string { return "Detect virtual environment" }

// Script returns the embedded script for the target OS.
func Script(goos string) (string, error) {
	name := "scripts/detect.sh"
	if goos == "windows" {
		name = "scripts/detect.ps1"
	}
	data, err := scripts.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read embedded %s: %w", name, err)
	}
	return string(data), nil
}

func (p *Probe) CommandLine() (step.CommandLine, error) {
	script, err := Script(p.opts.GOOS)
	if err != nil {
		return step.CommandLine{}, err
	}
	cl := step.CommandLine{Env: map[string]string{}}
	if p.opts.RootHint != "" {
		cl.Env[EnvRootHint] = p.opts.RootHint
	}
	shell := p.opts.Shell
	if p.opts.GOOS == "windows" {
		if shell == "" {
			shell = "powershell"
		}
		cl.Executable = shell
		cl.Args = []string{"-NoProfile", "-NonInteractive", "-Command", script}
		return cl, nil
	}
	if shell == "" {
		shell = "sh"
	}
	cl.Executable = shell
	cl.Args = []string{"-c", script}
	return cl, nil
}

func (p *Probe) ProcessStarted() {
	p.opts.Reporter.OpenBlock(p.Name())
}

func (p *Probe) Stdout(line string) {
	rec := ParseStdout(line)
	switch rec.Kind {
	case RecordLog:
		p.opts.Logger.Debug("virtual probe", "message", rec.Message)
	case RecordResult:
		p.add(rec.Result)
	default:
		p.opts.Logger.Debug("virtual probe output ignored", "line", rec.Message)
	}
}

func (p *Probe) Stderr(line string) {
	rec := ParseStderr(line)
	if rec.Kind == RecordError {
		p.opts.Logger.Info("virtual probe error", "message", rec.Message)
		p.opts.Reporter.Warning(rec.Message)
		return
	}
	p.opts.Logger.Debug("virtual probe stderr ignored", "line", rec.Message)
}

func (p *Probe) add(r Result) {
	if !Matches(p.opts.Requested, r.Version) {
		p.opts.Logger.Debug("virtual probe result skipped",
			"path", r.Path, "version", r.Version.String(), "requested", p.opts.Requested.String())
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[r] {
		return
	}
	p.seen[r] = true
	p.results = append(p.results, r)
}

func (p *Probe) ProcessFinished(exitCode int) step.Status {
	p.mu.Lock()
	p.exitCode = exitCode
	p.finished = true
	count := len(p.results)
	p.mu.Unlock()

	defer p.opts.Reporter.CloseBlock(p.Name())
	switch {
	case exitCode != 0:
		p.opts.Reporter.Warning(fmt.Sprintf("virtual environment probe exited with code %d", exitCode))
		return step.StatusFailed
	case count == 0:
		p.opts.Reporter.Problem(ErrNoEnvironments.Error())
		return step.StatusFailed
	}
	p.opts.Reporter.Message(fmt.Sprintf("found %d editor(s) in virtual environment", count))
	return step.StatusSuccess
}

// Failed reports a non-zero exit or an empty result set.
func (p *Probe) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode != 0 || len(p.results) == 0
}

// Environments returns the results in discovery order.
func (p *Probe) Environments() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, len(p.results))
	copy(out, p.results)
	return out
}

var _ step.Step = (*Probe)(nil)
