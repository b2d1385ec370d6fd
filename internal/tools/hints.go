package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"
)

const (
	// EnvHome lists installation roots, separated like PATH.
	EnvHome = "UNITY_HOME"
	// EnvHintPath lists directories whose children are installation roots.
	EnvHintPath = "UNITY_HINT_PATH"
)

// GlobHint matches installation roots below Base.
type GlobHint struct {
	Base    string
	Pattern string
	Source  Source
}

type candidate struct {
	root   string
	source Source
}

// candidates gathers installation roots from every hint source, in order:
// home override, hint paths, PATH, hub manifests, platform defaults.
func (d *Detector) candidates() []candidate {
	var out []candidate
	add := func(root string, src Source) {
		if strings.TrimSpace(root) == "" {
			return
		}
		out = append(out, candidate{root: root, source: src})
	}

	for _, root := range splitList(d.getenv(EnvHome)) {
		add(root, SourceHome)
	}

	var globs []GlobHint
	for _, parent := range splitList(d.getenv(EnvHintPath)) {
		globs = append(globs, GlobHint{Base: parent, Pattern: "*", Source: SourceHint})
	}

	suffix := d.Platform.PathSuffix()
	for _, entry := range splitList(d.getenv("PATH")) {
		clean := filepath.Clean(entry)
		if hasPathSuffix(clean, suffix) {
			add(d.Platform.InstallRoot(clean), SourcePath)
		}
	}

	hubRoots, hubGlobs := d.hubCandidates()
	for _, root := range hubRoots {
		add(root, SourceHub)
	}
	globs = append(globs, hubGlobs...)

	for _, g := range d.Platform.DefaultHints(d.getenv, d.Home) {
		if g.Source == SourceUnknown {
			g.Source = SourceDefault
		}
		globs = append(globs, g)
	}

	for _, g := range globs {
		for _, root := range expandGlob(g) {
			add(root, g.Source)
		}
	}
	return out
}

func expandGlob(g GlobHint) []string {
	if g.Base == "" {
		return nil
	}
	if info, err := os.Stat(g.Base); err != nil || !info.IsDir() {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(g.Base), g.Pattern)
	if err != nil {
		return nil
	}
	roots := make([]string, 0, len(matches))
	for _, m := range matches {
		roots = append(roots, filepath.Join(g.Base, filepath.FromSlash(m)))
	}
	return roots
}

type hubEditor struct {
	Version  string          `json:"version"`
	Location json.RawMessage `json:"location"`
	Manual   bool            `json:"manual"`
}

// hubCandidates reads the hub's editors.json (explicit locations) and
// secondaryInstallPath.json (an extra parent directory).
func (d *Detector) hubCandidates() ([]string, []GlobHint) {
	dir := d.Platform.HubDir(d.getenv, d.Home)
	if dir == "" {
		return nil, nil
	}
	logger := discardLogger(d.Logger)

	var (
		roots []string
		globs []GlobHint
	)

	if data, err := os.ReadFile(filepath.Join(dir, "secondaryInstallPath.json")); err == nil {
		var secondary string
		if err := json.Unmarshal(jsonc.ToJSON(data), &secondary); err != nil {
			logger.Debug("hub secondary install path unreadable", "dir", dir, "err", err)
		} else if strings.TrimSpace(secondary) != "" {
			globs = append(globs, GlobHint{Base: secondary, Pattern: "*", Source: SourceHub})
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, "editors.json")); err == nil {
		var editors map[string]hubEditor
		if err := json.Unmarshal(jsonc.ToJSON(data), &editors); err != nil {
			logger.Debug("hub editors manifest unreadable", "dir", dir, "err", err)
		}
		for _, ed := range editors {
			for _, loc := range hubLocations(ed.Location) {
				roots = append(roots, d.Platform.InstallRoot(loc))
			}
		}
	}
	return roots, globs
}

// hubLocations accepts both the array and the single string form.
func hubLocations(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range filepath.SplitList(value) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hasPathSuffix(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	suffix = filepath.Clean(suffix)
	if runtime.GOOS == "windows" {
		path, suffix = strings.ToLower(path), strings.ToLower(suffix)
	}
	if !strings.HasSuffix(path, suffix) {
		return false
	}
	rest := strings.TrimSuffix(path, suffix)
	return rest != "" && os.IsPathSeparator(rest[len(rest)-1])
}

// dedupeKey normalises a root for duplicate detection.
func dedupeKey(root string) string {
	key := filepath.Clean(root)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	if runtime.GOOS == "windows" {
		key = strings.ToLower(key)
	}
	return key
}
