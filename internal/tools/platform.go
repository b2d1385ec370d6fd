package tools

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"unityrunner/internal/version"
)

// ErrUnsupportedPlatform is returned by PlatformFor for an unknown GOOS.
var ErrUnsupportedPlatform = fmt.Errorf("%w: unsupported platform", ErrToolNotFound)

// Platform captures everything that differs between operating systems:
// installation layout, hint locations and version extraction.
type Platform interface {
	Name() string
	// ExecutablePath returns the editor binary inside an installation root.
	ExecutablePath(root string) string
	// InstallRoot maps an executable, app bundle or root path to the root.
	InstallRoot(location string) string
	// PathSuffix is the PATH entry suffix that marks an installation.
	PathSuffix() string
	// DefaultHints lists conventional install locations.
	DefaultHints(getenv func(string) string, home string) []GlobHint
	// HubDir is the vendor hub's configuration directory.
	HubDir(getenv func(string) string, home string) string
	VersionFromInstall(ctx context.Context, root string) (version.Version, bool)
}

// PlatformFor selects the strategy for goos. The helper is only used on
// windows and may be nil.
func PlatformFor(goos string, helper *VersionHelper) (Platform, error) {
	switch goos {
	case "linux":
		return linuxPlatform{}, nil
	case "darwin":
		return darwinPlatform{}, nil
	case "windows":
		return windowsPlatform{helper: helper}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

type linuxPlatform struct{}

func (linuxPlatform) Name() string { return "linux" }

func (linuxPlatform) ExecutablePath(root string) string {
	return filepath.Join(root, "Editor", "Unity")
}

func (linuxPlatform) InstallRoot(location string) string {
	return trimEditorSuffix(location, "Unity")
}

func (linuxPlatform) PathSuffix() string { return "Editor" }

func (linuxPlatform) DefaultHints(_ func(string) string, home string) []GlobHint {
	hints := []GlobHint{
		{Base: "/opt", Pattern: "[Uu]nity*"},
		{Base: "/opt", Pattern: "[Uu]nity*/*"},
	}
	if home != "" {
		hints = append(hints, GlobHint{Base: filepath.Join(home, "Unity", "Hub", "Editor"), Pattern: "*"})
	}
	return hints
}

func (linuxPlatform) HubDir(getenv func(string) string, home string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "UnityHub")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "UnityHub")
}

func (linuxPlatform) VersionFromInstall(_ context.Context, root string) (version.Version, bool) {
	if v, ok := packageManagerVersion(root); ok {
		return v, true
	}
	return dirNameVersion(root)
}

type darwinPlatform struct{}

func (darwinPlatform) Name() string { return "darwin" }

func (darwinPlatform) ExecutablePath(root string) string {
	return filepath.Join(root, "Unity.app", "Contents", "MacOS", "Unity")
}

func (darwinPlatform) InstallRoot(location string) string {
	clean := filepath.Clean(location)
	if idx := strings.Index(clean, "Unity.app"); idx > 0 {
		return filepath.Clean(clean[:idx])
	}
	return clean
}

func (darwinPlatform) PathSuffix() string {
	return filepath.Join("Unity.app", "Contents", "MacOS")
}

func (darwinPlatform) DefaultHints(_ func(string) string, home string) []GlobHint {
	hints := []GlobHint{
		{Base: "/Applications/Unity/Hub/Editor", Pattern: "*"},
		{Base: "/Applications", Pattern: "Unity*"},
	}
	if home != "" {
		hints = append(hints, GlobHint{Base: filepath.Join(home, "Applications", "Unity", "Hub", "Editor"), Pattern: "*"})
	}
	return hints
}

func (darwinPlatform) HubDir(_ func(string) string, home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, "Library", "Application Support", "UnityHub")
}

func (darwinPlatform) VersionFromInstall(_ context.Context, root string) (version.Version, bool) {
	if v, ok := plistVersion(filepath.Join(root, "Unity.app", "Contents", "Info.plist")); ok {
		return v, true
	}
	return dirNameVersion(root)
}

type windowsPlatform struct {
	helper *VersionHelper
}

func (windowsPlatform) Name() string { return "windows" }

func (windowsPlatform) ExecutablePath(root string) string {
	return filepath.Join(root, "Editor", "Unity.exe")
}

func (windowsPlatform) InstallRoot(location string) string {
	return trimEditorSuffix(location, "Unity.exe")
}

func (windowsPlatform) PathSuffix() string { return "Editor" }

func (windowsPlatform) DefaultHints(getenv func(string) string, _ string) []GlobHint {
	var hints []GlobHint
	for _, key := range []string{"ProgramFiles", "ProgramW6432", "ProgramFiles(x86)"} {
		base := getenv(key)
		if base == "" {
			continue
		}
		hints = append(hints,
			GlobHint{Base: filepath.Join(base, "Unity", "Hub", "Editor"), Pattern: "*"},
			GlobHint{Base: base, Pattern: "Unity*"},
		)
	}
	return hints
}

func (windowsPlatform) HubDir(getenv func(string) string, home string) string {
	if appData := getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "UnityHub")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, "AppData", "Roaming", "UnityHub")
}

func (p windowsPlatform) VersionFromInstall(ctx context.Context, root string) (version.Version, bool) {
	if v, ok := packageManagerVersion(root); ok {
		return v, true
	}
	if p.helper != nil {
		if v, ok := p.helper.Read(ctx, p.ExecutablePath(root)); ok {
			return v, true
		}
	}
	return dirNameVersion(root)
}

// trimEditorSuffix maps <root>/Editor/<exe> and <root>/Editor to <root>.
func trimEditorSuffix(location, exe string) string {
	clean := filepath.Clean(location)
	if strings.EqualFold(filepath.Base(clean), exe) {
		clean = filepath.Dir(clean)
	}
	if strings.EqualFold(filepath.Base(clean), "Editor") {
		clean = filepath.Dir(clean)
	}
	return clean
}

// packageManagerVersion reads the version from the name of the bundled
// package manager directory.
func packageManagerVersion(root string) (version.Version, bool) {
	dir := filepath.Join(root, "Editor", "Data", "PackageManager", "Unity", "PackageManager")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return version.Version{}, false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if v, ok := version.TryParse(entry.Name()); ok && v.HasMinor() {
			return v, true
		}
	}
	return version.Version{}, false
}

// dirNameVersion handles hub layouts where the root is named after the
// version, e.g. .../Hub/Editor/2022.3.10f1.
func dirNameVersion(root string) (version.Version, bool) {
	v, ok := version.TryParse(filepath.Base(filepath.Clean(root)))
	if !ok || !v.HasMinor() {
		return version.Version{}, false
	}
	return v, true
}

func plistVersion(path string) (version.Version, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return version.Version{}, false
	}
	values, err := plistStrings(data)
	if err != nil {
		return version.Version{}, false
	}
	for _, key := range []string{"CFBundleVersion", "CFBundleShortVersionString"} {
		fields := strings.Fields(values[key])
		for i := len(fields) - 1; i >= 0; i-- {
			if v, ok := version.TryParse(fields[i]); ok && v.HasMinor() {
				return v, true
			}
		}
	}
	return version.Version{}, false
}

// plistStrings collects top level <key>/<string> pairs from an XML
// property list.
func plistStrings(data []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	out := map[string]string{}
	pending := ""
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "plist", "dict":
		case "key":
			var s string
			if err := dec.DecodeElement(&s, &start); err != nil {
				return nil, err
			}
			pending = strings.TrimSpace(s)
		case "string":
			var s string
			if err := dec.DecodeElement(&s, &start); err != nil {
				return nil, err
			}
			if pending != "" {
				out[pending] = strings.TrimSpace(s)
			}
			pending = ""
		default:
			pending = ""
		}
	}
}
