package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unityrunner/internal/proc"
	"unityrunner/internal/version"
)

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// linuxInstall creates <root>/Editor/Unity and, when pm is set, the package
// manager directory that carries the version.
func linuxInstall(t *testing.T, root, pm string) {
	t.Helper()
	mustWrite(t, filepath.Join(root, "Editor", "Unity"), "#!/bin/sh\n")
	if pm != "" {
		mustMkdir(t, filepath.Join(root, "Editor", "Data", "PackageManager", "Unity", "PackageManager", pm))
	}
}

func versionsUnder(installs []Installation, base string) []string {
	var out []string
	for _, in := range installs {
		if strings.HasPrefix(in.Path, base) {
			out = append(out, in.Version.String())
		}
	}
	return out
}

func TestFindInstallationsLinux(t *testing.T) {
	base := t.TempDir()
	hintDir := filepath.Join(base, "hint")
	linuxInstall(t, filepath.Join(hintDir, "2021.3.1f1"), "")
	linuxInstall(t, filepath.Join(hintDir, "not-an-editor"), "")
	mustMkdir(t, filepath.Join(hintDir, "empty"))

	custom := filepath.Join(base, "custom")
	linuxInstall(t, custom, "2022.3.5f1")

	d := &Detector{
		Platform: linuxPlatform{},
		Home:     filepath.Join(base, "home"),
		Getenv: envOf(map[string]string{
			EnvHome:     custom,
			EnvHintPath: hintDir,
			"PATH":      strings.Join([]string{"/usr/bin", filepath.Join(hintDir, "2021.3.1f1", "Editor")}, string(os.PathListSeparator)),
		}),
	}

	installs, err := d.FindInstallations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2021.3.1", "2022.3.5"}, versionsUnder(installs, base))
}

func TestFindInstallationsDeduplicatesRoots(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "2020.3.48f1")
	linuxInstall(t, root, "")

	d := &Detector{
		Platform: linuxPlatform{},
		Getenv: envOf(map[string]string{
			EnvHome:     strings.Join([]string{root, root + string(os.PathSeparator)}, string(os.PathListSeparator)),
			EnvHintPath: base,
		}),
	}
	var roots []string
	for _, c := range d.candidates() {
		if strings.HasPrefix(c.root, base) {
			roots = append(roots, c.root)
		}
	}
	assert.Len(t, roots, 3)

	installs, err := d.FindInstallations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2020.3.48"}, versionsUnder(installs, base))
}

func TestFindInstallationsHubManifests(t *testing.T) {
	base := t.TempDir()
	config := filepath.Join(base, "config")

	manual := filepath.Join(base, "manual")
	linuxInstall(t, manual, "2019.4.40f1")

	secondary := filepath.Join(base, "secondary")
	linuxInstall(t, filepath.Join(secondary, "2020.1.0f1"), "")

	mustWrite(t, filepath.Join(config, "UnityHub", "editors.json"), `{
  // added by hand
  "2019.4.40f1": {"version": "2019.4.40f1", "location": ["`+filepath.Join(manual, "Editor", "Unity")+`"], "manual": true},
  "bogus": {"version": "x", "location": "`+filepath.Join(base, "missing", "Editor", "Unity")+`"}
}`)
	mustWrite(t, filepath.Join(config, "UnityHub", "secondaryInstallPath.json"), `"`+secondary+`"`)

	d := &Detector{
		Platform: linuxPlatform{},
		Getenv:   envOf(map[string]string{"XDG_CONFIG_HOME": config}),
	}
	installs, err := d.FindInstallations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2019.4.40", "2020.1.0"}, versionsUnder(installs, base))
}

func TestPathSuffixMatching(t *testing.T) {
	assert.True(t, hasPathSuffix(filepath.Join("/opt", "unity", "Editor"), "Editor"))
	assert.False(t, hasPathSuffix(filepath.Join("/opt", "MyEditor"), "Editor"))
	assert.False(t, hasPathSuffix("Editor", "Editor"))
	assert.True(t, hasPathSuffix(filepath.Join("/Applications", "Unity", "Unity.app", "Contents", "MacOS"), darwinPlatform{}.PathSuffix()))
}

func TestInstallRoot(t *testing.T) {
	assert.Equal(t, filepath.Clean("/opt/unity"), linuxPlatform{}.InstallRoot("/opt/unity/Editor/Unity"))
	assert.Equal(t, filepath.Clean("/opt/unity"), linuxPlatform{}.InstallRoot("/opt/unity/Editor"))
	assert.Equal(t, filepath.Clean("/Applications/Unity/Hub/Editor/2022.3.1f1"),
		darwinPlatform{}.InstallRoot("/Applications/Unity/Hub/Editor/2022.3.1f1/Unity.app"))
	assert.Equal(t, filepath.Clean("/c/Unity/2019"), windowsPlatform{}.InstallRoot("/c/Unity/2019/Editor/Unity.exe"))
}

func TestDarwinVersionFromPlist(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Unity")
	mustWrite(t, darwinPlatform{}.ExecutablePath(root), "")
	mustWrite(t, filepath.Join(root, "Unity.app", "Contents", "Info.plist"), `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>com.unity3d.UnityEditor5.x</string>
	<key>LSRequiresNativeExecution</key>
	<true/>
	<key>CFBundleVersion</key>
	<string>2021.3.16f1</string>
</dict>
</plist>`)

	d := &Detector{Platform: darwinPlatform{}, Getenv: envOf(nil)}
	v, ok := d.VersionFromInstall(context.Background(), root)
	require.True(t, ok)
	assert.Equal(t, "2021.3.16", v.String())
}

type helperRunner struct {
	stdout string
	exit   int
	calls  []string
}

func (h *helperRunner) Run(_ context.Context, command string, args []string, _ proc.RunOptions) (proc.RunResult, error) {
	h.calls = append(h.calls, command+" "+strings.Join(args, " "))
	return proc.RunResult{Stdout: []byte(h.stdout), ExitCode: h.exit}, nil
}

func TestWindowsVersionFromHelper(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Unity")
	mustWrite(t, windowsPlatform{}.ExecutablePath(root), "MZ")

	runner := &helperRunner{stdout: `{"MajorPart":2019,"MinorPart":4,"BuildPart":31,"PrivatePart":1}`}
	p := windowsPlatform{helper: &VersionHelper{Path: "version-helper", Runner: runner}}
	d := &Detector{Platform: p, Getenv: envOf(nil)}

	v, ok := d.VersionFromInstall(context.Background(), root)
	require.True(t, ok)
	assert.Equal(t, version.NewPatch(2019, 4, 31), v)
	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0], "Unity.exe")
}

func TestWindowsHelperFailureIsUnknown(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Unity")
	mustWrite(t, windowsPlatform{}.ExecutablePath(root), "MZ")

	for _, runner := range []*helperRunner{{exit: 1}, {stdout: "not json"}, {stdout: `{"MinorPart":1}`}} {
		p := windowsPlatform{helper: &VersionHelper{Path: "version-helper", Runner: runner}}
		_, ok := p.VersionFromInstall(context.Background(), root)
		assert.False(t, ok)
	}
}

func TestPlatformFor(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		p, err := PlatformFor(goos, nil)
		require.NoError(t, err)
		assert.Equal(t, goos, p.Name())
	}
	_, err := PlatformFor("plan9", nil)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestResolverExplicitRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "editor")
	linuxInstall(t, root, "2022.3.12f1")

	r := &Resolver{Registry: registryOf("2023.1.0"), Detector: &Detector{Platform: linuxPlatform{}}}
	env, err := r.Resolve(context.Background(), Request{Root: root})
	require.NoError(t, err)
	assert.Equal(t, "2022.3.12", env.Version.String())
	assert.Equal(t, filepath.Join(root, "Editor", "Unity"), env.ExecutablePath)
	assert.False(t, env.Virtual)

	_, err = r.Resolve(context.Background(), Request{Root: filepath.Join(t.TempDir(), "nothing")})
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestResolverRegistry(t *testing.T) {
	r := &Resolver{Registry: registryOf("2023.1.0", "2023.1.5"), Detector: &Detector{Platform: linuxPlatform{}}}
	env, err := r.Resolve(context.Background(), Request{Version: version.MustParse("2023.1.1")})
	require.NoError(t, err)
	assert.Equal(t, "2023.1.5", env.Version.String())
	assert.Equal(t, filepath.Join("/editors/2023.1.5", "Editor", "Unity"), env.ExecutablePath)
}

func TestResolverRefreshesOnMiss(t *testing.T) {
	calls := 0
	r := &Resolver{
		Registry: registryOf("2022.3.1"),
		Detector: &Detector{Platform: linuxPlatform{}},
		Refresh: func(context.Context) (*Registry, error) {
			calls++
			return registryOf("2022.3.1", "2023.2.5"), nil
		},
	}

	env, err := r.Resolve(context.Background(), Request{Version: version.MustParse("2022.3")})
	require.NoError(t, err)
	assert.Equal(t, "2022.3.1", env.Version.String())
	assert.Equal(t, 0, calls, "a hit must not detect again")

	env, err = r.Resolve(context.Background(), Request{Version: version.MustParse("2023.2")})
	require.NoError(t, err)
	assert.Equal(t, "2023.2.5", env.Version.String())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, r.Registry.Len())

	_, err = r.Resolve(context.Background(), Request{Version: version.MustParse("2024.1")})
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, 2, calls)
}

func TestResolverRefreshFailureKeepsNotFound(t *testing.T) {
	r := &Resolver{
		Registry: registryOf("2022.3.1"),
		Detector: &Detector{Platform: linuxPlatform{}},
		Refresh: func(context.Context) (*Registry, error) {
			return nil, errors.New("scan failed")
		},
	}
	_, err := r.Resolve(context.Background(), Request{Version: version.MustParse("2023.2")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Contains(t, err.Error(), "scan failed")
}
