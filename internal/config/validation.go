package config

import (
	"fmt"
	"os"
	"strings"

	"unityrunner/internal/build"
	"unityrunner/internal/license"
	"unityrunner/internal/logparse"
	"unityrunner/internal/logx"
	"unityrunner/internal/version"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

var knownTestPlatforms = []string{"editmode", "playmode", "all"}

// ValidateStrict runs all strict validations against the config and returns
// structured results. Relative paths are resolved against root.
func (c Config) ValidateStrict(root string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateEditor(root)...)
	results = append(results, c.validateLicense(root)...)
	results = append(results, c.validateBuild()...)
	results = append(results, c.validateLogging(root)...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateEditor(root string) []ValidationResult {
	var results []ValidationResult
	if v := strings.TrimSpace(c.Editor.Version); v != "" {
		if _, err := version.Parse(v); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("editor.version %q is not a valid version", v),
			})
		}
	}
	if r := strings.TrimSpace(c.Editor.Root); r != "" {
		if info, err := os.Stat(resolvePath(root, r)); err != nil || !info.IsDir() {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("editor.root %q is not a directory", r),
			})
		}
	}
	if c.Virtual.Enabled && strings.TrimSpace(c.Editor.Root) != "" {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "editor.root is ignored when virtual detection is enabled",
		})
	}
	return results
}

func (c Config) validateLicense(root string) []ValidationResult {
	var results []ValidationResult
	typ, err := license.ParseType(c.License.Type)
	if err != nil {
		return append(results, ValidationResult{Level: "error", Message: "license.type: " + err.Error()})
	}
	scope, err := license.ParseScope(c.License.Scope)
	if err != nil {
		results = append(results, ValidationResult{Level: "error", Message: "license.scope: " + err.Error()})
	}

	s := license.Settings{
		Type:     typ,
		Serial:   c.License.Serial,
		Username: c.License.Username,
		Password: c.License.Password,
		Content:  c.License.Content,
	}
	if typ == license.TypePersonal && s.Content == "" && strings.TrimSpace(c.License.ContentFile) != "" {
		data, err := os.ReadFile(resolvePath(root, c.License.ContentFile))
		if err != nil {
			return append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("license.content_file %q not readable", c.License.ContentFile),
			})
		}
		s.Content = string(data)
	}
	if err := s.Validate(); err != nil {
		results = append(results, ValidationResult{Level: "error", Message: "license: " + err.Error()})
	}
	if scope == license.ScopeBuildConfiguration && typ == license.TypePersonal {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "license.scope build_configuration only applies to professional licenses; activation runs per step",
		})
	}
	return results
}

func (c Config) validateBuild() []ValidationResult {
	var results []ValidationResult
	b := c.Build
	if p := strings.TrimSpace(b.TestPlatform); p != "" {
		if !containsFold(knownTestPlatforms, p) {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("build.test_platform %q is not one of %s; passing it through", p, strings.Join(knownTestPlatforms, ", ")),
			})
		}
		if !b.RunTests {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: "build.test_platform is set but build.run_tests is false",
			})
		}
	}
	if (strings.TrimSpace(b.PlayerFlag) == "") != (strings.TrimSpace(b.PlayerPath) == "") {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "build.player_flag and build.player_path must be set together",
		})
	}
	if strings.TrimSpace(b.ExtraArgs) != "" {
		if _, err := build.SplitArgs(b.ExtraArgs); err != nil {
			results = append(results, ValidationResult{Level: "error", Message: "build.extra_args: " + err.Error()})
		}
	}
	return results
}

func (c Config) validateLogging(root string) []ValidationResult {
	var results []ValidationResult
	if _, err := logx.ParseLevel(c.Logging.Level); err != nil {
		results = append(results, ValidationResult{Level: "error", Message: "logging.level: " + err.Error()})
	}
	if rules := strings.TrimSpace(c.Logging.RulesFile); rules != "" {
		if _, err := logparse.LoadRules(resolvePath(root, rules)); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("logging.rules_file %q: %v", rules, err),
			})
		}
	}
	return results
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
