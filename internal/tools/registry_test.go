package tools

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unityrunner/internal/version"
)

func registryOf(versions ...string) *Registry {
	reg := NewRegistry()
	for _, v := range versions {
		reg.Add(Installation{Version: version.MustParse(v), Path: "/editors/" + v})
	}
	return reg
}

func TestRegistryKeepsInsertionOrderAndOverwrites(t *testing.T) {
	reg := registryOf("2023.3.9", "2021.3.1", "2022.3.5")
	reg.Add(Installation{Version: version.MustParse("2021.3.1"), Path: "/other"})

	got := reg.Installations()
	require.Len(t, got, 3)
	assert.Equal(t, "2023.3.9", got[0].Version.String())
	assert.Equal(t, "/other", got[1].Path)

	latest, ok := reg.Latest()
	require.True(t, ok)
	assert.Equal(t, "2023.3.9", latest.Version.String())

	sorted := reg.Sorted()
	assert.Equal(t, "2021.3.1", sorted[0].Version.String())
}

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name     string
		registry []string
		request  string
		want     string
	}{
		{"major only picks newest in major", []string{"2023.1.2", "2023.3.7", "2023.3.9"}, "2023", "2023.3.9"},
		{"next patch in same minor", []string{"2023.3.9", "2023.2.7", "2023.2.12"}, "2023.2.8", "2023.2.12"},
		{"exact", []string{"2023.3.9", "2023.2.7", "2023.2.12"}, "2023.2.7", "2023.2.7"},
		{"minor line", []string{"2022.3.1", "2022.3.40", "2023.1.0"}, "2022.3", "2022.3.40"},
		{"unset picks greatest", []string{"2022.3.1", "6000.0.3", "2023.1.0"}, "", "6000.0.3"},
		{"major only ignores other majors", []string{"2022.3.1", "2023.1.0", "2024.1.0"}, "2023", "2023.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req version.Version
			if tt.request != "" {
				req = version.MustParse(tt.request)
			}
			got, err := BestMatch(registryOf(tt.registry...), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Version.String())
		})
	}
}

func TestBestMatchNotFound(t *testing.T) {
	_, err := BestMatch(registryOf("2023.3.9", "2023.2.7"), version.MustParse("2023.2.8"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Contains(t, err.Error(), "2023.2.8")
	assert.Contains(t, err.Error(), EnvHome)

	_, err = BestMatch(NewRegistry(), version.Version{})
	assert.True(t, errors.Is(err, ErrToolNotFound))

	_, err = BestMatch(registryOf("2022.3.1"), version.MustParse("2023"))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "2023", nf.Requested.String())
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "2022.3.5f1")
	mustMkdir(t, existing)

	reg := NewRegistry(
		Installation{Version: version.MustParse("2022.3.5"), Path: existing, Source: SourceHint},
		Installation{Version: version.MustParse("2021.1.0"), Path: filepath.Join(dir, "vanished")},
	)
	path := filepath.Join(dir, "cache", manifestFileName)
	require.NoError(t, SaveRegistry(path, reg))

	restored, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 1, restored.Len())
	in, ok := restored.Get(version.MustParse("2022.3.5"))
	require.True(t, ok)
	assert.Equal(t, existing, in.Path)
	assert.Equal(t, SourceManifest, in.Source)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestCacheRootOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvCacheDir, dir)
	root, err := CacheRoot()
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	path, err := ManifestPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, manifestFileName), path)
}
