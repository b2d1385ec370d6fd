package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"unityrunner/internal/build"
	"unityrunner/internal/config"
	"unityrunner/internal/license"
	"unityrunner/internal/proc"
	"unityrunner/internal/report"
	"unityrunner/internal/runner"
	"unityrunner/internal/session"
	"unityrunner/internal/step"
	"unityrunner/internal/tools"
	"unityrunner/internal/tui"
	"unityrunner/internal/virtualenv"
)

// runFlags override configuration values when set on the command line.
type runFlags struct {
	editorVersion  string
	editorRoot     string
	virtual        bool
	projectPath    string
	buildTarget    string
	executeMethod  string
	extraArgs      string
	runTests       bool
	testPlatform   string
	testResults    string
	testCategories []string
	testNames      []string
	logFile        string
}

var runOpts runFlags

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the editor session: detect, activate, build or test, return",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}

	f := cmd.Flags()
	f.StringVar(&runOpts.editorVersion, "editor-version", "", "Editor version to use (default newest installed)")
	f.StringVar(&runOpts.editorRoot, "editor-root", "", "Editor installation root, bypassing detection")
	f.BoolVar(&runOpts.virtual, "virtual", false, "Detect the editor inside the virtual context")
	f.StringVar(&runOpts.projectPath, "project-path", "", "Unity project directory")
	f.StringVar(&runOpts.buildTarget, "build-target", "", "Active build target")
	f.StringVar(&runOpts.executeMethod, "execute-method", "", "Static method to execute")
	f.StringVar(&runOpts.extraArgs, "args", "", "Additional editor arguments")
	f.BoolVar(&runOpts.runTests, "run-tests", false, "Run editor tests")
	f.StringVar(&runOpts.testPlatform, "test-platform", "", "Test platform: editmode, playmode or all")
	f.StringVar(&runOpts.testResults, "test-results", "", "Test results file")
	f.Var(newListValue(&runOpts.testCategories), "category", "Test category (repeatable)")
	f.Var(newListValue(&runOpts.testNames), "test-name", "Test name filter (repeatable)")
	f.StringVar(&runOpts.logFile, "log-file", "", "Editor log file to tail")
	return cmd
}

// applyRunFlags copies changed flags onto cfg.
func applyRunFlags(cfg *config.Config, fs *pflag.FlagSet, o runFlags) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("editor-version", func() { cfg.Editor.Version = o.editorVersion })
	set("editor-root", func() { cfg.Editor.Root = o.editorRoot })
	set("virtual", func() { cfg.Virtual.Enabled = o.virtual })
	set("project-path", func() { cfg.Build.ProjectPath = o.projectPath })
	set("build-target", func() { cfg.Build.BuildTarget = o.buildTarget })
	set("execute-method", func() { cfg.Build.ExecuteMethod = o.executeMethod })
	set("args", func() { cfg.Build.ExtraArgs = o.extraArgs })
	set("run-tests", func() { cfg.Build.RunTests = o.runTests })
	set("test-platform", func() { cfg.Build.TestPlatform = o.testPlatform })
	set("test-results", func() { cfg.Build.TestResults = o.testResults })
	set("category", func() { cfg.Build.TestCategories = o.testCategories })
	set("test-name", func() { cfg.Build.TestNames = o.testNames })
	set("log-file", func() { cfg.Build.LogFile = o.logFile })
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := loadAgent(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	applyRunFlags(&a.Config, cmd.Flags(), runOpts)
	if err := a.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := newRunPlan(ctx, a)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON, nil)

	var status step.Status
	if mode == tui.ModeTUI {
		status, err = plan.runInteractive(ctx, out, cmd.ErrOrStderr())
	} else {
		var reporter report.Reporter
		if mode == tui.ModeJSON {
			reporter = tui.NewJSONReporter(out)
		} else {
			reporter = tui.NewConsoleReporter(out, !tui.IsTerminal(out, nil))
		}
		status, err = plan.run(ctx, reporter, nil)
	}
	if err != nil {
		return err
	}
	if status != step.StatusSuccess {
		return fmt.Errorf("session finished with status %s", status)
	}
	return nil
}

// runPlan is the typed form of the configuration for one run.
type runPlan struct {
	agent    *agent
	request  tools.Request
	license  license.Settings
	params   build.Params
	resolver *tools.Resolver
}

func newRunPlan(ctx context.Context, a *agent) (*runPlan, error) {
	req, err := a.Config.Request(a.Paths.Root)
	if err != nil {
		return nil, err
	}
	settings, err := a.Config.LicenseSettings(a.Paths.Root)
	if err != nil {
		return nil, err
	}

	p := &runPlan{
		agent:   a,
		request: req,
		license: settings,
		params:  a.Config.BuildParams(a.Paths.Root),
	}

	// the registry is only needed for local resolution without a root, or
	// when build-configuration hooks must resolve the editor themselves
	needsRegistry := req.Root == "" && (!a.Config.Virtual.Enabled || settings.PerConfiguration())
	d, err := a.detector()
	if err != nil {
		return nil, err
	}
	p.resolver, err = a.resolver(ctx, d, needsRegistry)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// run executes the license hooks and the session with the given reporter.
func (p *runPlan) run(ctx context.Context, reporter report.Reporter, onStep func(runner.StepEvent)) (step.Status, error) {
	a := p.agent
	rules, err := a.rules()
	if err != nil {
		return step.StatusFailed, err
	}

	driver := &runner.Driver{
		Runner:   proc.CmdRunner{},
		Logger:   a.Logger,
		Reporter: reporter,
		Dir:      a.Paths.Root,
		OnStep:   onStep,
	}

	licenseOpts := license.StepOptions{TempDir: a.Paths.TempDir, Reporter: reporter, Logger: a.Logger}
	hooks := license.BuildHooks{
		Settings: p.license,
		Options:  licenseOpts,
		Resolve: func(ctx context.Context) (tools.ResolvedEnvironment, error) {
			return p.resolver.Resolve(ctx, p.request)
		},
		Exec: driver.Exec,
	}
	if err := hooks.BeforePreparation(ctx); err != nil {
		return step.StatusFailed, err
	}
	defer func() {
		// the license must be returned even when the run was interrupted
		if err := hooks.BeforeFinish(context.WithoutCancel(ctx)); err != nil {
			a.Logger.Warn("license return failed", "err", err)
			reporter.Warning(err.Error())
		}
	}()

	virtual := a.Config.Virtual
	sess := session.New(session.Config{
		Virtual: virtual.Enabled,
		VirtualProbe: virtualenv.Options{
			Requested: p.request.Version,
			RootHint:  virtual.RootHint,
			GOOS:      virtual.OS,
			Shell:     virtual.Shell,
		},
		Request:     p.request,
		Resolve:     p.resolver.Resolve,
		License:     p.license,
		LicenseOpts: licenseOpts,
		Build:       p.params,
		BuildOpts: build.Options{
			GOOS:    hostOS(virtual),
			TempDir: a.Paths.TempDir,
			Rules:   rules,
		},
		Reporter: reporter,
		Logger:   a.Logger,
	})

	status, err := driver.Run(ctx, sess)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return step.StatusCanceled, fmt.Errorf("run interrupted: %w", err)
		}
		return status, err
	}
	return status, nil
}

// runInteractive runs the plan under the bubbletea progress table.
func (p *runPlan) runInteractive(ctx context.Context, out, errOut io.Writer) (step.Status, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		status   step.Status
		runErr   error
		reporter *tui.ProgressReporter
	)
	done := make(chan struct{})
	model := tui.NewProgressModel("unityrunner")
	err := tui.RunWithWork(out, model, func(send func(tea.Msg)) error {
		defer close(done)
		reporter = tui.NewProgressReporter(send)
		onStep := func(ev runner.StepEvent) {
			if ev.Done {
				reporter.StepFinished(ev.Status.String())
				return
			}
			reporter.StepStarted(ev.Name)
		}
		status, runErr = p.run(ctx, reporter, onStep)
		return nil
	})
	// quitting the table (ctrl+c) cancels the session; wait for it to unwind
	cancel()
	<-done
	if reporter != nil {
		for _, line := range reporter.Problems() {
			fmt.Fprintln(errOut, line)
		}
	}
	if err != nil {
		return step.StatusFailed, err
	}
	return status, runErr
}

// hostOS is the operating system the editor runs on.
func hostOS(v config.VirtualConfig) string {
	if v.Enabled && v.OS != "" {
		return v.OS
	}
	return runtime.GOOS
}
