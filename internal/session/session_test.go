package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unityrunner/internal/build"
	"unityrunner/internal/license"
	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/tools"
	"unityrunner/internal/version"
	"unityrunner/internal/virtualenv"
)

var localEnv = tools.ResolvedEnvironment{ExecutablePath: "/opt/unity/Editor/Unity", Version: version.MustParse("2022.3.1")}

func professional() license.Settings {
	return license.Settings{Type: license.TypeProfessional, Serial: "S", Username: "u", Password: "p"}
}

type countingResolver struct{ calls int }

func (c *countingResolver) resolve(context.Context, tools.Request) (tools.ResolvedEnvironment, error) {
	c.calls++
	return localEnv, nil
}

// drain pulls every step, finishing each with the exit code chosen by exit.
func drain(t *testing.T, s *Session, exit func(step.Step) int) ([]string, error) {
	t.Helper()
	ctx := context.Background()
	var names []string
	for {
		st, ok, err := s.Next(ctx)
		if err != nil {
			return names, err
		}
		if !ok {
			return names, nil
		}
		names = append(names, st.Name())
		if probe, isProbe := st.(*virtualenv.Probe); isProbe {
			probe.Stdout("path=/virt/Editor/Unity;version=2021.3.5f1")
		}
		if _, err := st.CommandLine(); err != nil {
			t.Fatalf("%s: CommandLine: %v", st.Name(), err)
		}
		st.ProcessStarted()
		st.ProcessFinished(exit(st))
	}
}

func success(step.Step) int { return 0 }

func newConfig(r *countingResolver) Config {
	return Config{
		Resolve:     r.resolve,
		LicenseOpts: license.StepOptions{},
		BuildOpts:   build.Options{GOOS: "linux"},
	}
}

func TestNextWithoutStartYieldsNothing(t *testing.T) {
	r := &countingResolver{}
	s := New(newConfig(r))
	st, ok, err := s.Next(context.Background())
	assert.Nil(t, st)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 0, r.calls)
}

func TestMinimalSessionIsOneBuildStep(t *testing.T) {
	r := &countingResolver{}
	s := New(newConfig(r))
	s.Start(context.Background())

	names, err := drain(t, s, success)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Unity"}, names)
	assert.Equal(t, step.StatusSuccess, s.Result())
	assert.Equal(t, 1, r.calls)

	env, ok := s.Environment()
	require.True(t, ok)
	assert.Equal(t, localEnv, env)
}

func TestFullSequenceOrdering(t *testing.T) {
	r := &countingResolver{}
	cfg := newConfig(r)
	cfg.Virtual = true
	cfg.VirtualProbe = virtualenv.Options{GOOS: "linux"}
	cfg.License = professional()
	cfg.LicenseOpts.TempDir = t.TempDir()
	cfg.Build = build.Params{RunEditorTests: true, TestPlatform: "all"}

	s := New(cfg)
	s.Start(context.Background())
	names, err := drain(t, s, success)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Detect virtual environment",
		"Activate Unity license",
		"Run Unity tests (editmode)",
		"Run Unity tests (playmode)",
		"Return Unity license",
	}, names)
	assert.Equal(t, 0, r.calls, "virtual sessions do not use the local resolver")

	env, ok := s.Environment()
	require.True(t, ok)
	assert.True(t, env.Virtual)
	assert.Equal(t, "/virt/Editor/Unity", env.ExecutablePath)
	assert.Equal(t, "2021.3.5", env.Version.String())
}

func TestAllProducesTwoBuildStepsRegardlessOfLicense(t *testing.T) {
	for _, settings := range []license.Settings{{}, {Type: license.TypePersonal, Content: "x"}, professional()} {
		r := &countingResolver{}
		cfg := newConfig(r)
		cfg.License = settings
		cfg.LicenseOpts.TempDir = t.TempDir()
		cfg.Build = build.Params{RunEditorTests: true, TestPlatform: "all"}

		s := New(cfg)
		s.Start(context.Background())
		names, err := drain(t, s, success)
		require.NoError(t, err)

		builds := 0
		for _, n := range names {
			if n == "Run Unity tests (editmode)" || n == "Run Unity tests (playmode)" {
				builds++
			}
		}
		assert.Equal(t, 2, builds, "license %q", settings.Type)
		if settings.Type == license.TypeProfessional {
			assert.Equal(t, "Return Unity license", names[len(names)-1])
		}
		assert.Equal(t, 1, r.calls)
	}
}

func TestResultIsLastBuildStep(t *testing.T) {
	r := &countingResolver{}
	cfg := newConfig(r)
	cfg.License = professional()
	cfg.LicenseOpts.TempDir = t.TempDir()
	cfg.Build = build.Params{RunEditorTests: true, TestPlatform: "all"}

	s := New(cfg)
	s.Start(context.Background())
	_, err := drain(t, s, func(st step.Step) int {
		switch st.Name() {
		case "Run Unity tests (editmode)":
			return 1
		case "Return Unity license":
			return 1
		}
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, step.StatusSuccess, s.Result())
}

func TestLastBuildFailureFailsSession(t *testing.T) {
	r := &countingResolver{}
	cfg := newConfig(r)
	s := New(cfg)
	s.Start(context.Background())
	_, err := drain(t, s, func(step.Step) int { return 4 })
	require.NoError(t, err)
	assert.Equal(t, step.StatusFailed, s.Result())
}

func TestVirtualWithoutResultsStops(t *testing.T) {
	rec := &report.Recorder{}
	cfg := newConfig(&countingResolver{})
	cfg.Virtual = true
	cfg.Reporter = rec

	s := New(cfg)
	s.Start(context.Background())
	ctx := context.Background()

	st, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	st.ProcessFinished(0)

	st, ok, err = s.Next(ctx)
	assert.Nil(t, st)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, virtualenv.ErrNoEnvironments))
	assert.Equal(t, step.StatusFailed, s.Result())

	_, ok, err = s.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestVirtualRequestedVersionFiltersResults(t *testing.T) {
	cfg := newConfig(&countingResolver{})
	cfg.Virtual = true
	cfg.Request = tools.Request{Version: version.MustParse("2022")}

	s := New(cfg)
	s.Start(context.Background())
	ctx := context.Background()

	st, _, err := s.Next(ctx)
	require.NoError(t, err)
	st.Stdout("path=/a/Editor/Unity;version=2021.3.5")
	st.Stdout("path=/b/Editor/Unity;version=2022.1.0")
	st.Stdout("path=/c/Editor/Unity;version=2022.3.2")
	st.ProcessFinished(0)

	st, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Run Unity", st.Name())

	env, _ := s.Environment()
	assert.Equal(t, "/c/Editor/Unity", env.ExecutablePath)
}

func TestResolveFailureEndsSession(t *testing.T) {
	cfg := newConfig(&countingResolver{})
	cfg.Resolve = func(context.Context, tools.Request) (tools.ResolvedEnvironment, error) {
		return tools.ResolvedEnvironment{}, &tools.NotFoundError{Requested: version.MustParse("2030")}
	}
	s := New(cfg)
	s.Start(context.Background())

	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, tools.ErrToolNotFound))
	assert.Equal(t, step.StatusFailed, s.Result())
	assert.Error(t, s.Err())
}

func TestVirtualNonZeroExitStillUsesReportedEditors(t *testing.T) {
	var logs bytes.Buffer
	cfg := newConfig(&countingResolver{})
	cfg.Virtual = true
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	s := New(cfg)
	s.Start(context.Background())
	ctx := context.Background()

	st, _, err := s.Next(ctx)
	require.NoError(t, err)
	st.Stdout("path=/a/Editor/Unity;version=2021.3.5")
	st.ProcessFinished(3)

	st, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Run Unity", st.Name())
	assert.Contains(t, logs.String(), "virtual environment detection exited with an error")
	assert.Contains(t, logs.String(), "found=1")
}
