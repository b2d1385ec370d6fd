package virtualenv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unityrunner/internal/report"
	"unityrunner/internal/step"
	"unityrunner/internal/version"
)

func TestParseStdout(t *testing.T) {
	rec := ParseStdout("path=/opt/unity/2022.3.1f1/Editor/Unity;version=2022.3.1f1\r")
	require.Equal(t, RecordResult, rec.Kind)
	assert.Equal(t, "/opt/unity/2022.3.1f1/Editor/Unity", rec.Result.Path)
	assert.Equal(t, version.NewPatch(2022, 3, 1), rec.Result.Version)

	rec = ParseStdout("log:scanning /opt")
	assert.Equal(t, RecordLog, rec.Kind)
	assert.Equal(t, "scanning /opt", rec.Message)

	for _, bad := range []string{"", "hello", "path=/x", "path=;version=2022.1", "path=/x;version=abc"} {
		assert.Equal(t, RecordInvalid, ParseStdout(bad).Kind, bad)
	}
}

func TestParseStderr(t *testing.T) {
	rec := ParseStderr("error=permission denied")
	assert.Equal(t, RecordError, rec.Kind)
	assert.Equal(t, "permission denied", rec.Message)
	assert.Equal(t, RecordInvalid, ParseStderr("warning: x").Kind)
}

func TestMatches(t *testing.T) {
	found := version.MustParse("2022.3.10")
	assert.True(t, Matches(version.Version{}, found))
	assert.True(t, Matches(version.MustParse("2022"), found))
	assert.True(t, Matches(version.MustParse("2022.3"), found))
	assert.True(t, Matches(version.MustParse("2022.3.10f1"), found))
	assert.False(t, Matches(version.MustParse("2022.3.11"), found))
	assert.False(t, Matches(version.MustParse("2022.2"), found))
	assert.False(t, Matches(version.MustParse("2021"), found))
	assert.False(t, Matches(version.MustParse("2022.3"), version.MustParse("2022")))
}

func TestProbeCollectsDeduplicatedResults(t *testing.T) {
	rec := &report.Recorder{}
	p := NewProbe(Options{Requested: version.MustParse("2022"), Reporter: rec, GOOS: "linux"})

	p.ProcessStarted()
	p.Stdout("log:scanning")
	p.Stdout("path=/a/Editor/Unity;version=2022.3.1f1")
	p.Stdout("path=/a/Editor/Unity;version=2022.3.1")
	p.Stdout("path=/b/Editor/Unity;version=2021.3.1")
	p.Stdout("garbage")
	p.Stdout("path=/c/Editor/Unity;version=2022.1.0")
	p.Stderr("error=cannot read /root")

	status := p.ProcessFinished(0)
	assert.Equal(t, step.StatusSuccess, status)
	assert.False(t, p.Failed())
	assert.Equal(t, []Result{
		{Path: "/a/Editor/Unity", Version: version.MustParse("2022.3.1")},
		{Path: "/c/Editor/Unity", Version: version.MustParse("2022.1.0")},
	}, p.Environments())

	events := rec.Strings()
	assert.Equal(t, "open:Detect virtual environment", events[0])
	assert.Contains(t, events, "warning:cannot read /root")
	assert.Equal(t, "close:Detect virtual environment", events[len(events)-1])
}

func TestProbeFailsWithoutResults(t *testing.T) {
	p := NewProbe(Options{})
	p.Stdout("log:nothing here")
	assert.Equal(t, step.StatusFailed, p.ProcessFinished(0))
	assert.True(t, p.Failed())
	assert.Empty(t, p.Environments())
}

func TestProbeFailsOnNonZeroExit(t *testing.T) {
	p := NewProbe(Options{})
	p.Stdout("path=/a/Editor/Unity;version=2022.3.1")
	assert.Equal(t, step.StatusFailed, p.ProcessFinished(2))
	assert.True(t, p.Failed())
}

func TestProbeCommandLine(t *testing.T) {
	p := NewProbe(Options{GOOS: "linux", RootHint: "/opt/unity"})
	cl, err := p.CommandLine()
	require.NoError(t, err)
	assert.Equal(t, "sh", cl.Executable)
	require.Len(t, cl.Args, 2)
	assert.Equal(t, "-c", cl.Args[0])
	assert.True(t, strings.Contains(cl.Args[1], "path="))
	assert.Equal(t, "/opt/unity", cl.Env[EnvRootHint])

	p = NewProbe(Options{GOOS: "windows"})
	cl, err = p.CommandLine()
	require.NoError(t, err)
	assert.Equal(t, "powershell", cl.Executable)
	assert.Contains(t, cl.Args, "-Command")
	assert.NotContains(t, cl.Env, EnvRootHint)
}
