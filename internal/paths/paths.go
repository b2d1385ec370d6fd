package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"unityrunner/internal/config"
	"unityrunner/internal/tools"
)

// AgentPaths captures canonical locations for one agent working directory.
type AgentPaths struct {
	Root         string
	ConfigFile   string
	MetaDir      string
	TempDir      string
	LogsDir      string
	ManifestFile string
}

// Resolve determines the working root using the optional --workdir flag or
// the current working directory when the flag is empty.
func Resolve(workFlag string) (AgentPaths, error) {
	var (
		root string
		err  error
	)

	if workFlag != "" {
		root, err = filepath.Abs(workFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return AgentPaths{}, fmt.Errorf("resolve working root: %w", err)
	}

	manifest, err := tools.ManifestPath()
	if err != nil {
		return AgentPaths{}, err
	}
	pp := newAgentPaths(root)
	pp.ManifestFile = manifest
	return pp, nil
}

func newAgentPaths(root string) AgentPaths {
	metaDir := filepath.Join(root, ".unityrunner")
	return AgentPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "unityrunner.yaml"),
		MetaDir:    metaDir,
		TempDir:    filepath.Join(metaDir, "tmp"),
		LogsDir:    filepath.Join(metaDir, "logs"),
	}
}

// ApplyConfig overrides locations configured in cfg.
func ApplyConfig(pp AgentPaths, cfg config.Config) AgentPaths {
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		pp.LogsDir = resolveAgentPath(pp.Root, dir)
	}
	if manifest := strings.TrimSpace(cfg.Detection.ManifestFile); manifest != "" {
		pp.ManifestFile = resolveAgentPath(pp.Root, manifest)
	}
	return pp
}

func resolveAgentPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureDirs creates the metadata, temp and logs directories.
func (p AgentPaths) EnsureDirs() error {
	for _, dir := range []string{p.MetaDir, p.TempDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
