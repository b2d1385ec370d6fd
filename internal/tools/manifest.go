package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const manifestFileName = "editors.json"

// EnvCacheDir overrides the directory holding the detection snapshot.
const EnvCacheDir = "UNITYRUNNER_CACHE_DIR"

// ManifestEntry records a detected installation in the snapshot.
type ManifestEntry struct {
	Installation
	DetectedAt string `json:"detected_at,omitempty"`
}

// Manifest is the detection snapshot restored across agent restarts.
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// CacheRoot determines the per-user cache directory for the snapshot.
func CacheRoot() (string, error) {
	if override, ok := os.LookupEnv(EnvCacheDir); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", EnvCacheDir, err)
		}
		return abs, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "unityrunner"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "unityrunner"), nil
		}
		return filepath.Join(home, "AppData", "Local", "unityrunner"), nil
	default:
		return filepath.Join(home, ".cache", "unityrunner"), nil
	}
}

// ManifestPath returns the default snapshot location.
func ManifestPath() (string, error) {
	root, err := CacheRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, manifestFileName), nil
}

func loadManifest(path string) (Manifest, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return manifest, nil
}

func saveManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "editors-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// LoadRegistry restores a registry from the snapshot at path. Entries whose
// installation no longer exists are dropped. A missing file yields an empty
// registry.
func LoadRegistry(path string) (*Registry, error) {
	manifest, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, entry := range manifest.Entries {
		if entry.Version.IsZero() || entry.Path == "" {
			continue
		}
		if _, err := os.Stat(entry.Path); err != nil {
			continue
		}
		in := entry.Installation
		in.Source = SourceManifest
		reg.Add(in)
	}
	return reg, nil
}

// SaveRegistry persists the registry as the new snapshot.
func SaveRegistry(path string, reg *Registry) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var m Manifest
	for _, in := range reg.Installations() {
		m.Entries = append(m.Entries, ManifestEntry{Installation: in, DetectedAt: now})
	}
	return saveManifest(path, m)
}
