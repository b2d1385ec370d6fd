// Package build turns build parameters into editor invocations and runs
// the editor's output through the log classifier.
package build

import (
	"fmt"
	"strings"
)

// TestPlatformAll expands to every test platform, one step each.
const TestPlatformAll = "all"

// Params are the editor build parameters for one session.
type Params struct {
	ProjectPath string
	BuildTarget string
	// PlayerFlag is the player build flag without its dash, e.g.
	// buildLinux64Player, paired with PlayerPath.
	PlayerFlag    string
	PlayerPath    string
	NoGraphics    bool
	SilentCrashes bool
	ExecuteMethod string
	// ExtraArgs is free-form text split like a shell would.
	ExtraArgs string

	RunEditorTests  bool
	TestPlatform    string
	TestResultsPath string
	TestCategories  []string
	TestNames       []string

	LogFilePath    string
	CleanedLogFile bool
	CacheServer    string
}

// TestPlatforms returns one entry per build step. Without tests there is a
// single step with an empty platform.
func TestPlatforms(p Params) []string {
	platform := strings.TrimSpace(p.TestPlatform)
	if !p.RunEditorTests {
		return []string{""}
	}
	if strings.EqualFold(platform, TestPlatformAll) {
		return []string{"editmode", "playmode"}
	}
	return []string{platform}
}

// SplitArgs splits s on unquoted whitespace. Single quotes are literal;
// double quotes allow backslash escapes of `"` and `\`.
func SplitArgs(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			if r != '"' && r != '\\' {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
