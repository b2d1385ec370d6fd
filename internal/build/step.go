package build

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"unityrunner/internal/logparse"
	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/tools"
)

// tailSize is how many emitted lines are attached to a failure warning.
const tailSize = 30

// Options carry the collaborators of a build Step.
type Options struct {
	GOOS     string
	TempDir  string
	Reporter report.Reporter
	Logger   *slog.Logger
	// Rules classify output lines; nil uses the built-in rules.
	Rules *logparse.Rules
	// PollInterval and StopGrace tune the log tailer.
	PollInterval time.Duration
	StopGrace    time.Duration
}

// Step runs the editor once for one test platform variant.
type Step struct {
	env      tools.ResolvedEnvironment
	params   Params
	platform string
	opts     Options

	mu         sync.Mutex
	classifier *logparse.Classifier
	tail       []string
	inv        Invocation
	tailer     *Tailer
	canceled   bool
	status     step.Status
}

func NewStep(env tools.ResolvedEnvironment, params Params, testPlatform string, opts Options) *Step {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Rules == nil {
		opts.Rules = logparse.BuiltinRules()
	}
	s := &Step{env: env, params: params, platform: testPlatform, opts: opts}
	s.classifier = logparse.NewClassifier(opts.Reporter, nil, opts.Rules)
	s.classifier.OnEmit = s.remember
	return s
}

func (s *Step) Name() string {
	if s.platform != "" {
		return fmt.Sprintf("Run Unity tests (%s)", s.platform)
	}
	return "Run Unity"
}

func (s *Step) CommandLine() (step.CommandLine, error) {
	inv, err := Arguments(s.env.Version, s.params, s.platform, s.opts.GOOS, s.opts.TempDir)
	if err != nil {
		return step.CommandLine{}, err
	}
	if inv.LogFile != "" && !inv.TempLog {
		// Lines left by an earlier run must not reach the classifier.
		if err := os.Remove(inv.LogFile); err != nil && !os.IsNotExist(err) {
			return step.CommandLine{}, fmt.Errorf("remove previous log %s: %w", inv.LogFile, err)
		}
	}
	s.mu.Lock()
	s.inv = inv
	s.mu.Unlock()
	return step.CommandLine{Executable: s.env.ExecutablePath, Args: inv.Args}, nil
}

func (s *Step) ProcessStarted() {
	s.mu.Lock()
	logFile := s.inv.LogFile
	s.mu.Unlock()
	if logFile == "" {
		return
	}
	t := NewTailer(logFile, s.line)
	if s.opts.PollInterval > 0 {
		t.PollInterval = s.opts.PollInterval
	}
	if s.opts.StopGrace > 0 {
		t.StopGrace = s.opts.StopGrace
	}
	t.Logger = s.opts.Logger
	t.Start()
	s.mu.Lock()
	s.tailer = t
	s.mu.Unlock()
}

func (s *Step) Stdout(line string) { s.line(line) }

func (s *Step) Stderr(line string) { s.line(line) }

func (s *Step) line(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier.Line(text)
}

// remember runs under s.mu via the classifier.
func (s *Step) remember(_ report.Severity, text string) {
	s.tail = append(s.tail, text)
	if len(s.tail) > tailSize {
		s.tail = s.tail[len(s.tail)-tailSize:]
	}
}

func (s *Step) CancelRequested() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

func (s *Step) ProcessFinished(exitCode int) step.Status {
	s.mu.Lock()
	t := s.tailer
	s.tailer = nil
	s.mu.Unlock()
	if t != nil {
		t.Stop()
	}

	s.mu.Lock()
	s.classifier.Close()
	tail := strings.Join(s.tail, "\n")
	inv := s.inv
	status := step.StatusFromExit(exitCode)
	if s.canceled {
		status = step.StatusCanceled
	}
	s.status = status
	s.mu.Unlock()

	if status != step.StatusSuccess {
		msg := fmt.Sprintf("Unity exited with code %d", exitCode)
		if inv.LogFile != "" && !inv.TempLog {
			msg += " (log: " + inv.LogFile + ")"
		}
		if tail != "" {
			msg += "\n" + tail
		}
		s.opts.Reporter.Warning(msg)
	}
	if inv.TempLog {
		if err := os.Remove(inv.LogFile); err != nil && !os.IsNotExist(err) {
			s.opts.Logger.Warn("remove temporary log", "path", inv.LogFile, "err", err)
		}
	}
	return status
}

// Status is the outcome recorded by ProcessFinished.
func (s *Step) Status() step.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

var _ step.Step = (*Step)(nil)
