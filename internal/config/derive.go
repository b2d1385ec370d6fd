package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"unityrunner/internal/build"
	"unityrunner/internal/license"
	"unityrunner/internal/tools"
	"unityrunner/internal/version"
)

// Request returns the editor selection.
func (c Config) Request(root string) (tools.Request, error) {
	req := tools.Request{Root: resolvePath(root, c.Editor.Root)}
	if v := strings.TrimSpace(c.Editor.Version); v != "" {
		parsed, err := version.Parse(v)
		if err != nil {
			return tools.Request{}, fmt.Errorf("editor.version: %w", err)
		}
		req.Version = parsed
	}
	return req, nil
}

// LicenseSettings returns the typed license settings, reading content_file
// relative to root when set.
func (c Config) LicenseSettings(root string) (license.Settings, error) {
	typ, err := license.ParseType(c.License.Type)
	if err != nil {
		return license.Settings{}, err
	}
	scope, err := license.ParseScope(c.License.Scope)
	if err != nil {
		return license.Settings{}, err
	}
	s := license.Settings{
		Type:     typ,
		Scope:    scope,
		Serial:   c.License.Serial,
		Username: c.License.Username,
		Password: c.License.Password,
		Content:  c.License.Content,
	}
	if s.Content == "" && strings.TrimSpace(c.License.ContentFile) != "" {
		data, err := os.ReadFile(resolvePath(root, c.License.ContentFile))
		if err != nil {
			return license.Settings{}, fmt.Errorf("read license content file: %w", err)
		}
		s.Content = string(data)
	}
	return s, nil
}

// BuildParams returns the editor command line parameters.
func (c Config) BuildParams(root string) build.Params {
	b := c.Build
	return build.Params{
		ProjectPath:     resolvePath(root, b.ProjectPath),
		BuildTarget:     b.BuildTarget,
		PlayerFlag:      b.PlayerFlag,
		PlayerPath:      resolvePath(root, b.PlayerPath),
		NoGraphics:      b.NoGraphicsValue(),
		SilentCrashes:   b.SilentCrashes,
		ExecuteMethod:   b.ExecuteMethod,
		ExtraArgs:       b.ExtraArgs,
		RunEditorTests:  b.RunTests,
		TestPlatform:    b.TestPlatform,
		TestResultsPath: resolvePath(root, b.TestResults),
		TestCategories:  b.TestCategories,
		TestNames:       b.TestNames,
		LogFilePath:     resolvePath(root, b.LogFile),
		CleanedLogFile:  b.CleanedLogFile,
		CacheServer:     b.CacheServer,
	}
}

func resolvePath(root, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || root == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(root, value)
}
