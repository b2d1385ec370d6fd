package tools

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"unityrunner/internal/version"
)

// Source records where an installation root was discovered.
type Source string

const (
	SourceUnknown  Source = ""
	SourceHome     Source = "home"
	SourceHint     Source = "hint"
	SourcePath     Source = "path"
	SourceHub      Source = "hub"
	SourceDefault  Source = "default"
	SourceManifest Source = "manifest"
)

// Installation is one editor found on disk, keyed by its version.
type Installation struct {
	Version version.Version `json:"version"`
	Path    string          `json:"path"`
	Source  Source          `json:"source,omitempty"`
}

// ResolvedEnvironment is the editor a session will invoke.
type ResolvedEnvironment struct {
	ExecutablePath string          `json:"executable_path"`
	Version        version.Version `json:"version"`
	Virtual        bool            `json:"virtual"`
}

// ErrToolNotFound classifies every failure to locate a usable editor.
var ErrToolNotFound = errors.New("unity editor not found")

// NotFoundError names what was requested when resolution failed.
type NotFoundError struct {
	Requested version.Version
	Root      string
	Reason    string
}

func (e *NotFoundError) Error() string {
	var what string
	switch {
	case e.Root != "":
		what = fmt.Sprintf("unity editor at %s not usable", e.Root)
	case e.Requested.IsZero():
		what = "no unity editor installations detected"
	default:
		what = fmt.Sprintf("unity editor %s not found", e.Requested)
	}
	if e.Reason != "" {
		what += ": " + e.Reason
	}
	return what + "; set " + EnvHome + " to the installation root to override detection"
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

func discardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
