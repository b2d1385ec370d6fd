// Package session orders the steps of one editor run: virtual environment
// detection, environment resolution, license activation, one build step
// per test platform and license return.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"unityrunner/internal/build"
	"unityrunner/internal/license"
	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/tools"
	"unityrunner/internal/virtualenv"
)

// Config is validated once by the caller and passed in typed form.
type Config struct {
	// Virtual enables detection inside the virtual context instead of
	// local resolution.
	Virtual      bool
	VirtualProbe virtualenv.Options
	Request      tools.Request
	Resolve      func(ctx context.Context, req tools.Request) (tools.ResolvedEnvironment, error)
	License      license.Settings
	LicenseOpts  license.StepOptions
	Build        build.Params
	BuildOpts    build.Options
	Reporter     report.Reporter
	Logger       *slog.Logger
}

type phase int

const (
	phaseIdle phase = iota
	phaseVirtual
	phaseResolve
	phaseActivate
	phaseBuild
	phaseReturn
	phaseDone
)

func (p phase) String() string {
	return [...]string{"idle", "virtual", "resolve", "activate", "build", "return", "done"}[p]
}

// Session is a forward-only pull iterator over steps. The caller must finish
// each step (ProcessFinished) before asking for the next one.
type Session struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	phase   phase
	steps   []step.Step
	index   int
	probe   *virtualenv.Probe
	env     *tools.ResolvedEnvironment
	builds  []*build.Step
	failure error
}

func New(cfg Config) *Session {
	if cfg.Reporter == nil {
		cfg.Reporter = report.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.VirtualProbe.Reporter == nil {
		cfg.VirtualProbe.Reporter = cfg.Reporter
	}
	if cfg.VirtualProbe.Logger == nil {
		cfg.VirtualProbe.Logger = cfg.Logger
	}
	if cfg.LicenseOpts.Reporter == nil {
		cfg.LicenseOpts.Reporter = cfg.Reporter
	}
	if cfg.LicenseOpts.Logger == nil {
		cfg.LicenseOpts.Logger = cfg.Logger
	}
	if cfg.BuildOpts.Reporter == nil {
		cfg.BuildOpts.Reporter = cfg.Reporter
	}
	if cfg.BuildOpts.Logger == nil {
		cfg.BuildOpts.Logger = cfg.Logger
	}
	return &Session{cfg: cfg, logger: cfg.Logger}
}

// Start arms the session. Calling it again has no effect.
func (s *Session) Start(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == phaseIdle {
		s.phase = phaseVirtual
	}
}

// Next returns the next step. ok is false once the sequence is exhausted,
// or when Start was never called. A non-nil error ends the session.
func (s *Session) Next(ctx context.Context) (step.Step, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		switch s.phase {
		case phaseIdle, phaseDone:
			return nil, false, nil

		case phaseVirtual:
			if !s.cfg.Virtual {
				s.phase = phaseResolve
				continue
			}
			if s.probe == nil {
				opts := s.cfg.VirtualProbe
				opts.Requested = s.cfg.Request.Version
				s.probe = virtualenv.NewProbe(opts)
				return s.probe, true, nil
			}
			s.phase = phaseResolve

		case phaseResolve:
			env, err := s.resolve(ctx)
			if err != nil {
				s.failure = err
				s.phase = phaseDone
				return nil, false, err
			}
			lifecycle := license.Lifecycle{Settings: s.cfg.License, Options: s.cfg.LicenseOpts}
			s.enter(phaseActivate, lifecycle.ActivationSteps(env))

		case phaseActivate, phaseBuild, phaseReturn:
			if s.index < len(s.steps) {
				st := s.steps[s.index]
				s.index++
				return st, true, nil
			}
			s.advance()
		}
	}
}

func (s *Session) enter(p phase, steps []step.Step) {
	s.logger.Debug("session phase", "phase", p.String(), "steps", len(steps))
	s.phase = p
	s.steps = steps
	s.index = 0
}

func (s *Session) advance() {
	env := *s.env
	switch s.phase {
	case phaseActivate:
		var steps []step.Step
		for _, platform := range build.TestPlatforms(s.cfg.Build) {
			b := build.NewStep(env, s.cfg.Build, platform, s.cfg.BuildOpts)
			s.builds = append(s.builds, b)
			steps = append(steps, b)
		}
		s.enter(phaseBuild, steps)
	case phaseBuild:
		lifecycle := license.Lifecycle{Settings: s.cfg.License, Options: s.cfg.LicenseOpts}
		s.enter(phaseReturn, lifecycle.ReturnSteps(env))
	default:
		s.enter(phaseDone, nil)
	}
}

// resolve computes the environment once.
func (s *Session) resolve(ctx context.Context) (tools.ResolvedEnvironment, error) {
	if s.env != nil {
		return *s.env, nil
	}
	var (
		env tools.ResolvedEnvironment
		err error
	)
	if s.cfg.Virtual {
		env, err = s.resolveVirtual()
	} else if s.cfg.Resolve == nil {
		err = fmt.Errorf("%w: no resolver configured", tools.ErrToolNotFound)
	} else {
		env, err = s.cfg.Resolve(ctx, s.cfg.Request)
	}
	if err != nil {
		s.cfg.Reporter.Problem(err.Error())
		return tools.ResolvedEnvironment{}, err
	}
	s.logger.Info("editor environment resolved",
		"executable", env.ExecutablePath, "version", env.Version.String(), "virtual", env.Virtual)
	s.env = &env
	return env, nil
}

func (s *Session) resolveVirtual() (tools.ResolvedEnvironment, error) {
	found := s.probe.Environments()
	if len(found) == 0 {
		return tools.ResolvedEnvironment{}, virtualenv.ErrNoEnvironments
	}
	if s.probe.Failed() {
		s.logger.Warn("virtual environment detection exited with an error, using the editors it reported",
			"found", len(found))
	}
	reg := tools.NewRegistry()
	for _, r := range found {
		reg.Add(tools.Installation{Version: r.Version, Path: r.Path})
	}
	in, err := tools.BestMatch(reg, s.cfg.Request.Version)
	if err != nil {
		return tools.ResolvedEnvironment{}, err
	}
	return tools.ResolvedEnvironment{ExecutablePath: in.Path, Version: in.Version, Virtual: true}, nil
}

// Environment returns the resolved environment once resolution happened.
func (s *Session) Environment() (tools.ResolvedEnvironment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil {
		return tools.ResolvedEnvironment{}, false
	}
	return *s.env, true
}

// Result is the status of the last build step. License steps never affect
// it. A session that failed before building reports failure.
func (s *Session) Result() step.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return step.StatusFailed
	}
	if len(s.builds) == 0 {
		return step.StatusUnknown
	}
	return s.builds[len(s.builds)-1].Status()
}

// Err returns the error that ended the session early, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}
