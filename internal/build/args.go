package build

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"unityrunner/internal/version"
)

var (
	// -projectPath takes a separate value from this version on.
	projectPathSpaceSince = version.New(2017)
	// -runTests/-testPlatform replaced -runEditorTests.
	runTestsSince = version.NewMinor(2018, 1)
	// "-logFile -" writes the log to stdout.
	logToStdoutSince = version.NewMinor(2019, 1)
)

// Invocation is a constructed editor command line.
type Invocation struct {
	Args []string
	// LogFile is the file to follow for output; empty when the log is
	// written to stdout.
	LogFile string
	// TempLog marks LogFile as generated, to be removed afterwards.
	TempLog bool
}

// Arguments builds the command line for one build step. testPlatform is
// the variant produced by TestPlatforms. Only non-blank values are added.
func Arguments(v version.Version, p Params, testPlatform, goos, tempDir string) (Invocation, error) {
	var inv Invocation
	add := func(args ...string) { inv.Args = append(inv.Args, args...) }
	present := func(s string) bool { return strings.TrimSpace(s) != "" }

	add("-batchmode")
	if present(p.ProjectPath) {
		if v.Less(projectPathSpaceSince) {
			add("-projectPath=" + p.ProjectPath)
		} else {
			add("-projectPath", p.ProjectPath)
		}
	}
	if present(p.BuildTarget) {
		add("-buildTarget", p.BuildTarget)
	}
	if present(p.PlayerFlag) && present(p.PlayerPath) {
		add("-"+strings.TrimPrefix(p.PlayerFlag, "-"), p.PlayerPath)
	}
	if p.NoGraphics {
		add("-nographics")
	}
	if p.SilentCrashes {
		add("-silent-crashes")
	}
	if present(p.ExecuteMethod) {
		add("-executeMethod", p.ExecuteMethod)
	}
	if present(p.ExtraArgs) {
		extra, err := SplitArgs(p.ExtraArgs)
		if err != nil {
			return Invocation{}, err
		}
		add(extra...)
	}

	modern := !v.Less(runTestsSince)
	if p.RunEditorTests {
		if modern {
			add("-runTests")
			if present(testPlatform) {
				add("-testPlatform", testPlatform)
			}
		} else {
			add("-runEditorTests")
		}
		if present(p.TestResultsPath) {
			if modern {
				add("-testResults", resultsPath(p.TestResultsPath, testPlatform, p))
			} else {
				add("-editorTestsResultFile", p.TestResultsPath)
			}
		}
		if cats := joinNonBlank(p.TestCategories); cats != "" {
			add("-editorTestsCategories", cats)
		}
		if names := joinNonBlank(p.TestNames); names != "" {
			add("-editorTestsFilter", names)
		}
	} else {
		add("-quit")
	}

	switch {
	case present(p.LogFilePath):
		add("-logFile", p.LogFilePath)
		inv.LogFile = p.LogFilePath
	case goos == "windows":
		if tempDir == "" {
			tempDir = os.TempDir()
		}
		inv.LogFile = filepath.Join(tempDir, "unity-"+uuid.NewString()+".log")
		inv.TempLog = true
		add("-logFile", inv.LogFile)
	case p.CleanedLogFile:
		add("-cleanedLogFile")
	case !v.Less(logToStdoutSince):
		add("-logFile", "-")
	}

	if present(p.CacheServer) {
		add("-CacheServerIPAddress", p.CacheServer)
	}
	return inv, nil
}

// resultsPath keeps one results file per platform when several platforms
// run from the same parameters.
func resultsPath(path, platform string, p Params) string {
	if platform == "" || !strings.EqualFold(strings.TrimSpace(p.TestPlatform), TestPlatformAll) {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + platform + ext
}

func joinNonBlank(values []string) string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ";")
}
