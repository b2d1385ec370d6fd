package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"unityrunner/internal/config"
	"unityrunner/internal/logparse"
	"unityrunner/internal/logx"
	"unityrunner/internal/paths"
	"unityrunner/internal/tools"
)

// agent bundles what every command needs: locations, effective
// configuration and a logger.
type agent struct {
	Paths  paths.AgentPaths
	Config config.Config
	Logger *slog.Logger
	closer io.Closer
}

func (a *agent) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// loadAgent resolves paths, loads the configuration and applies environment
// and flag overrides. With fileLog set the logger writes to the logs
// directory; otherwise it writes to stderr.
func loadAgent(stderr io.Writer, fileLog bool) (*agent, error) {
	pp, err := paths.Resolve(workDir)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		pp.ConfigFile = abs
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	pp = paths.ApplyConfig(pp, cfg)

	level, err := logx.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	a := &agent{Paths: pp, Config: cfg}
	if fileLog {
		if err := pp.EnsureDirs(); err != nil {
			return nil, err
		}
		logger, closer, err := logx.New(pp.LogsDir, level)
		if err != nil {
			return nil, err
		}
		a.Logger, a.closer = logger, closer
	} else {
		a.Logger = logx.NewWriter(stderr, level)
	}
	return a, nil
}

// detector builds a detector for the host, with configured home and hint
// paths layered in front of the process environment.
func (a *agent) detector() (*tools.Detector, error) {
	det := a.Config.Detection
	helper := &tools.VersionHelper{
		Path:    det.HelperPath,
		Timeout: det.HelperTimeout,
		Logger:  a.Logger,
	}
	platform, err := tools.PlatformFor(runtime.GOOS, helper)
	if err != nil {
		return nil, err
	}
	d := tools.NewDetector(platform, a.Logger)
	d.Concurrency = det.Concurrency
	d.Getenv = overlayEnv(os.Getenv, map[string][]string{
		tools.EnvHome:     det.Home,
		tools.EnvHintPath: det.HintPaths,
	})
	return d, nil
}

// overlayEnv prepends configured values to list-valued environment
// variables.
func overlayEnv(getenv func(string) string, extra map[string][]string) func(string) string {
	return func(key string) string {
		values := extra[key]
		if len(values) == 0 {
			return getenv(key)
		}
		joined := strings.Join(values, string(os.PathListSeparator))
		if env := getenv(key); env != "" {
			joined += string(os.PathListSeparator) + env
		}
		return joined
	}
}

// registry loads the installation snapshot, detecting and saving a fresh
// one when it is empty or refresh is set.
func (a *agent) registry(ctx context.Context, d *tools.Detector, refresh bool) (*tools.Registry, error) {
	reg, err := tools.LoadRegistry(a.Paths.ManifestFile)
	if err != nil {
		a.Logger.Warn("ignoring unreadable editor manifest", "path", a.Paths.ManifestFile, "err", err)
		reg = tools.NewRegistry()
	}
	if !refresh && reg.Len() > 0 {
		return reg, nil
	}
	if refresh {
		reg = tools.NewRegistry()
	}
	found, err := tools.Refresh(ctx, reg, d)
	if err != nil {
		return nil, fmt.Errorf("detect editors: %w", err)
	}
	a.Logger.Info("editor detection finished", "found", len(found))
	if err := tools.SaveRegistry(a.Paths.ManifestFile, reg); err != nil {
		a.Logger.Warn("could not save editor manifest", "path", a.Paths.ManifestFile, "err", err)
	}
	return reg, nil
}

// resolver returns a resolver over the snapshot. A snapshot miss detects
// again, so editors installed since the last refresh are found.
func (a *agent) resolver(ctx context.Context, d *tools.Detector, withRegistry bool) (*tools.Resolver, error) {
	r := &tools.Resolver{Detector: d, Logger: a.Logger}
	if !withRegistry {
		return r, nil
	}
	reg, err := a.registry(ctx, d, false)
	if err != nil {
		return nil, err
	}
	r.Registry = reg
	r.Refresh = func(ctx context.Context) (*tools.Registry, error) {
		return a.registry(ctx, d, true)
	}
	return r, nil
}

// rules returns the classification rules, including the configured rule
// file when present.
func (a *agent) rules() (*logparse.Rules, error) {
	path := strings.TrimSpace(a.Config.Logging.RulesFile)
	if path == "" {
		return logparse.BuiltinRules(), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.Paths.Root, path)
	}
	custom, err := logparse.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return logparse.WithCustom(custom), nil
}

// validate reports warnings to the logger and returns the errors joined.
func (a *agent) validate() error {
	results := a.Config.ValidateStrict(a.Paths.Root)
	var errs []error
	for _, r := range results {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
			continue
		}
		a.Logger.Warn("configuration warning", "msg", r.Message)
	}
	return errors.Join(errs...)
}
