package license

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/tools"
)

var fixedFlags = []string{"-quit", "-batchmode", "-nographics"}

// StepOptions carry the collaborators shared by license steps.
type StepOptions struct {
	// TempDir holds the license and log files; defaults to os.TempDir().
	TempDir  string
	Reporter report.Reporter
	Logger   *slog.Logger
}

func (o StepOptions) withDefaults() StepOptions {
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.Reporter == nil {
		o.Reporter = report.Discard{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// commandStep holds what activation and return have in common: a temp
// log file read back on failure, temp files removed when the process
// finishes and a progress block around the process.
type commandStep struct {
	step.Base
	name     string
	env      tools.ResolvedEnvironment
	settings Settings
	opts     StepOptions

	mu      sync.Mutex
	temps   []string
	logPath string
	opened  bool
}

func (c *commandStep) Name() string { return c.name }

func (c *commandStep) tempFile(ext string, content []byte) (string, error) {
	if err := os.MkdirAll(c.opts.TempDir, 0o700); err != nil {
		return "", fmt.Errorf("prepare temp dir: %w", err)
	}
	path := filepath.Join(c.opts.TempDir, "unity-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	c.mu.Lock()
	c.temps = append(c.temps, path)
	c.mu.Unlock()
	return path, nil
}

func (c *commandStep) baseCommandLine() (step.CommandLine, error) {
	logPath, err := c.tempFile(".log", nil)
	if err != nil {
		return step.CommandLine{}, err
	}
	c.mu.Lock()
	c.logPath = logPath
	c.mu.Unlock()
	args := append([]string(nil), fixedFlags...)
	return step.CommandLine{Executable: c.env.ExecutablePath, Args: args}, nil
}

func (c *commandStep) ProcessStarted() {
	c.mu.Lock()
	c.opened = true
	c.mu.Unlock()
	c.opts.Reporter.OpenBlock(c.name)
}

func (c *commandStep) ProcessFinished(exitCode int) step.Status {
	c.mu.Lock()
	opened, logPath, temps := c.opened, c.logPath, c.temps
	c.temps = nil
	c.mu.Unlock()

	status := step.StatusFromExit(exitCode)
	if status != step.StatusSuccess {
		msg := fmt.Sprintf("%s failed with exit code %d", c.name, exitCode)
		if logPath != "" {
			if data, err := os.ReadFile(logPath); err == nil && len(strings.TrimSpace(string(data))) > 0 {
				msg += "\n" + strings.TrimRight(string(data), "\r\n")
			}
		}
		c.opts.Reporter.Warning(msg)
	}

	var errs []error
	for _, path := range temps {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.opts.Logger.Warn("remove license temp files", "err", err)
	}

	if opened {
		c.opts.Reporter.CloseBlock(c.name)
	}
	return status
}

// ActivateStep activates a license before the build steps run.
type ActivateStep struct {
	commandStep
}

func NewActivateStep(env tools.ResolvedEnvironment, s Settings, opts StepOptions) *ActivateStep {
	return &ActivateStep{commandStep{name: "Activate Unity license", env: env, settings: s, opts: opts.withDefaults()}}
}

func (a *ActivateStep) CommandLine() (step.CommandLine, error) {
	if err := a.settings.Validate(); err != nil {
		return step.CommandLine{}, err
	}
	cl, err := a.baseCommandLine()
	if err != nil {
		return step.CommandLine{}, err
	}
	switch a.settings.Type {
	case TypeProfessional:
		cl.Args = append(cl.Args,
			"-serial", a.settings.Serial,
			"-username", a.settings.Username,
			"-password", a.settings.Password)
		cl.Secrets = []string{a.settings.Serial, a.settings.Password}
	case TypePersonal:
		file, err := a.tempFile(".ulf", []byte(a.settings.Content))
		if err != nil {
			return step.CommandLine{}, err
		}
		cl.Args = append(cl.Args, "-manualLicenseFile", file)
	}
	cl.Args = append(cl.Args, "-logFile", a.logPath)
	return cl, nil
}

// ReturnStep releases a professional license after the build steps.
type ReturnStep struct {
	commandStep
}

func NewReturnStep(env tools.ResolvedEnvironment, s Settings, opts StepOptions) *ReturnStep {
	return &ReturnStep{commandStep{name: "Return Unity license", env: env, settings: s, opts: opts.withDefaults()}}
}

func (r *ReturnStep) CommandLine() (step.CommandLine, error) {
	cl, err := r.baseCommandLine()
	if err != nil {
		return step.CommandLine{}, err
	}
	cl.Args = append(cl.Args,
		"-returnlicense",
		"-username", r.settings.Username,
		"-password", r.settings.Password,
		"-logFile", r.logPath)
	cl.Secrets = []string{r.settings.Password}
	return cl, nil
}

var (
	_ step.Step = (*ActivateStep)(nil)
	_ step.Step = (*ReturnStep)(nil)
)
