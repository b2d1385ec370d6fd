package tools

import (
	"context"
	"errors"
	"log/slog"

	"unityrunner/internal/version"
)

// Request selects an editor. A zero Version means "newest installed"; a
// non-empty Root bypasses the registry.
type Request struct {
	Version version.Version
	Root    string
}

// BestMatch picks an installation for requested:
//   - unset: the greatest version present
//   - exact key match
//   - otherwise the greatest v with requested <= v < upper, where upper is
//     the next minor when requested has a minor, else the next major.
func BestMatch(reg *Registry, requested version.Version) (Installation, error) {
	if requested.IsZero() {
		if latest, ok := reg.Latest(); ok {
			return latest, nil
		}
		return Installation{}, &NotFoundError{}
	}

	if in, ok := reg.Get(requested); ok {
		return in, nil
	}

	upper := requested.NextMajor()
	if requested.HasMinor() {
		upper = requested.NextMinor()
	}

	var (
		best  Installation
		found bool
	)
	for _, in := range reg.Sorted() {
		if in.Version.Less(requested) || !in.Version.Less(upper) {
			continue
		}
		best, found = in, true
	}
	if !found {
		return Installation{}, &NotFoundError{Requested: requested}
	}
	return best, nil
}

// Resolver turns a Request into a ResolvedEnvironment.
type Resolver struct {
	Registry *Registry
	Detector *Detector
	Logger   *slog.Logger
	// Refresh, when set, is called once after a registry miss. The registry
	// it returns replaces Registry and the match is retried.
	Refresh func(ctx context.Context) (*Registry, error)
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (ResolvedEnvironment, error) {
	logger := discardLogger(r.Logger)

	if req.Root != "" {
		v, ok := r.Detector.VersionFromInstall(ctx, req.Root)
		if !ok {
			return ResolvedEnvironment{}, &NotFoundError{Requested: req.Version, Root: req.Root, Reason: "cannot determine version"}
		}
		logger.Info("using explicit editor root", "root", req.Root, "version", v.String())
		return ResolvedEnvironment{
			ExecutablePath: r.Detector.EditorExecutablePath(req.Root),
			Version:        v,
		}, nil
	}

	reg := r.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	in, err := BestMatch(reg, req.Version)
	if errors.Is(err, ErrToolNotFound) && r.Refresh != nil {
		logger.Info("editor not in snapshot, detecting again", "requested", req.Version.String())
		fresh, rerr := r.Refresh(ctx)
		if rerr != nil {
			return ResolvedEnvironment{}, errors.Join(err, rerr)
		}
		r.Registry = fresh
		in, err = BestMatch(fresh, req.Version)
	}
	if err != nil {
		return ResolvedEnvironment{}, err
	}
	logger.Info("resolved editor", "requested", req.Version.String(), "version", in.Version.String(), "root", in.Path)
	return ResolvedEnvironment{
		ExecutablePath: r.Detector.EditorExecutablePath(in.Path),
		Version:        in.Version,
	}, nil
}
