package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"unityrunner/internal/proc"
	"unityrunner/internal/version"
)

// DefaultHelperTimeout bounds a single version helper invocation.
const DefaultHelperTimeout = 3 * time.Second

// VersionHelper runs the native helper that reads the version resource of an
// executable: `<helper> <executablePath>` prints a JSON file version record.
type VersionHelper struct {
	Path    string
	Timeout time.Duration
	Runner  proc.Runner
	Logger  *slog.Logger
}

type fileVersion struct {
	MajorPart   *int `json:"MajorPart"`
	MinorPart   *int `json:"MinorPart"`
	BuildPart   *int `json:"BuildPart"`
	PrivatePart *int `json:"PrivatePart"`
}

// Read returns the executable's version. Timeouts, non-zero exits and
// malformed output all report ok == false.
func (h *VersionHelper) Read(ctx context.Context, executable string) (version.Version, bool) {
	if h == nil || h.Path == "" {
		return version.Version{}, false
	}
	logger := discardLogger(h.Logger)
	runner := h.Runner
	if runner == nil {
		runner = proc.CmdRunner{WaitDelay: 500 * time.Millisecond}
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultHelperTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := runner.Run(ctx, h.Path, []string{executable}, proc.RunOptions{})
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Info("version helper timed out", "helper", h.Path, "executable", executable, "timeout", timeout)
		return version.Version{}, false
	}
	if err != nil {
		logger.Info("version helper failed", "helper", h.Path, "executable", executable, "err", err)
		return version.Version{}, false
	}
	if res.ExitCode != 0 {
		logger.Info("version helper exited with error",
			"helper", h.Path, "executable", executable,
			"exit_code", res.ExitCode, "stderr", strings.TrimSpace(string(res.Stderr)))
		return version.Version{}, false
	}

	v, ok := decodeFileVersion(res.Stdout)
	if !ok {
		logger.Debug("version helper output not understood", "executable", executable, "stdout", string(res.Stdout))
	}
	return v, ok
}

func decodeFileVersion(data []byte) (version.Version, bool) {
	var fv fileVersion
	if err := json.Unmarshal(data, &fv); err != nil {
		return version.Version{}, false
	}
	switch {
	case fv.MajorPart == nil:
		return version.Version{}, false
	case fv.MinorPart == nil:
		return version.New(*fv.MajorPart), true
	case fv.BuildPart == nil:
		return version.NewMinor(*fv.MajorPart, *fv.MinorPart), true
	default:
		return version.NewPatch(*fv.MajorPart, *fv.MinorPart, *fv.BuildPart), true
	}
}
