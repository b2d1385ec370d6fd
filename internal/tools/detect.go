package tools

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"unityrunner/internal/version"
)

const defaultProbeConcurrency = 4

// Detector finds editor installations on the local filesystem.
type Detector struct {
	Platform    Platform
	Getenv      func(string) string
	Home        string
	Logger      *slog.Logger
	Concurrency int
}

// NewDetector returns a detector reading the process environment.
func NewDetector(p Platform, logger *slog.Logger) *Detector {
	home, _ := os.UserHomeDir()
	return &Detector{
		Platform: p,
		Getenv:   os.Getenv,
		Home:     home,
		Logger:   logger,
	}
}

func (d *Detector) getenv(key string) string {
	if d.Getenv == nil {
		return os.Getenv(key)
	}
	return d.Getenv(key)
}

// EditorExecutablePath returns the editor binary inside root.
func (d *Detector) EditorExecutablePath(root string) string {
	return d.Platform.ExecutablePath(root)
}

// VersionFromInstall extracts the version of the installation at root.
func (d *Detector) VersionFromInstall(ctx context.Context, root string) (version.Version, bool) {
	if !isFile(d.Platform.ExecutablePath(root)) {
		return version.Version{}, false
	}
	return d.Platform.VersionFromInstall(ctx, root)
}

// FindInstallations probes every de-duplicated candidate root and returns
// the installations found, sorted by version. When two roots report the same
// version the one discovered later wins.
func (d *Detector) FindInstallations(ctx context.Context) ([]Installation, error) {
	logger := discardLogger(d.Logger)

	seen := map[string]bool{}
	var roots []candidate
	for _, c := range d.candidates() {
		key := dedupeKey(c.root)
		if seen[key] {
			continue
		}
		seen[key] = true
		roots = append(roots, c)
	}

	limit := d.Concurrency
	if limit <= 0 {
		limit = defaultProbeConcurrency
	}

	found := make([]*Installation, len(roots))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, ok := d.VersionFromInstall(gctx, c.root)
			if !ok {
				logger.Debug("no editor at candidate root", "root", c.root, "source", c.source)
				return nil
			}
			mu.Lock()
			found[i] = &Installation{Version: v, Path: c.root, Source: c.source}
			mu.Unlock()
			logger.Debug("editor detected", "root", c.root, "version", v.String(), "source", c.source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, in := range found {
		if in != nil {
			reg.Add(*in)
		}
	}
	return reg.Sorted(), nil
}

// Refresh adds freshly detected installations to reg.
func Refresh(ctx context.Context, reg *Registry, d *Detector) ([]Installation, error) {
	installs, err := d.FindInstallations(ctx)
	if err != nil {
		return nil, err
	}
	for _, in := range installs {
		reg.Add(in)
	}
	return installs, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
