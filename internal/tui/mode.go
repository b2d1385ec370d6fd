package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeTUI uses bubbletea for interactive progress rendering.
	ModeTUI OutputMode = iota
	// ModePlain streams classified output line by line.
	ModePlain
	// ModeJSON writes structured JSON output.
	ModeJSON
)

// ciMarkers are environment variables set by CI agents; their consoles are
// never interactive even when a pseudo terminal is attached.
var ciMarkers = []string{"CI", "TEAMCITY_VERSION", "BUILD_NUMBER", "JENKINS_URL", "GITHUB_ACTIONS"}

// DetectMode determines the appropriate output mode for the given writer.
func DetectMode(out io.Writer, noProgress, jsonOutput bool, getenv func(string) string) OutputMode {
	if getenv == nil {
		getenv = os.Getenv
	}
	if jsonOutput {
		return ModeJSON
	}
	if noProgress {
		return ModePlain
	}
	for _, key := range ciMarkers {
		if getenv(key) != "" {
			return ModePlain
		}
	}
	if !IsTerminal(out, getenv) {
		return ModePlain
	}
	return ModeTUI
}

// IsTerminal reports whether out is a terminal able to render styles.
func IsTerminal(out io.Writer, getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	if runtime.GOOS != "windows" {
		term := getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return false
		}
	}
	return true
}
