package virtualenv

import (
	"strings"

	"unityrunner/internal/version"
)

// RecordKind identifies a line of the probe protocol.
type RecordKind int

const (
	RecordInvalid RecordKind = iota
	RecordLog
	RecordResult
	RecordError
)

// Record is one parsed protocol line.
type Record struct {
	Kind    RecordKind
	Message string
	Result  Result
}

// Result is an editor discovered inside the virtual context.
type Result struct {
	Path    string
	Version version.Version
}

// ParseStdout reads a stdout line: `log:<message>` or
// `path=<path>;version=<version>`.
func ParseStdout(line string) Record {
	line = strings.TrimRight(line, "\r\n")
	if msg, ok := strings.CutPrefix(line, "log:"); ok {
		return Record{Kind: RecordLog, Message: strings.TrimSpace(msg)}
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "path=")
	if !ok {
		return Record{Kind: RecordInvalid, Message: line}
	}
	idx := strings.LastIndex(rest, ";version=")
	if idx < 0 {
		return Record{Kind: RecordInvalid, Message: line}
	}
	path := strings.TrimSpace(rest[:idx])
	v, ok := version.TryParse(rest[idx+len(";version="):])
	if path == "" || !ok {
		return Record{Kind: RecordInvalid, Message: line}
	}
	return Record{Kind: RecordResult, Result: Result{Path: path, Version: v}}
}

// ParseStderr reads a stderr line: `error=<message>`.
func ParseStderr(line string) Record {
	line = strings.TrimRight(line, "\r\n")
	if msg, ok := strings.CutPrefix(strings.TrimSpace(line), "error="); ok {
		return Record{Kind: RecordError, Message: strings.TrimSpace(msg)}
	}
	return Record{Kind: RecordInvalid, Message: line}
}

// Matches reports whether found satisfies requested: an exact match when
// requested is fully qualified, otherwise a match at the components given.
// A zero requested version matches everything.
func Matches(requested, found version.Version) bool {
	if requested.IsZero() {
		return true
	}
	if requested.HasPatch() {
		return requested.Equal(found)
	}
	if requested.Major() != found.Major() {
		return false
	}
	if minor, ok := requested.Minor(); ok {
		foundMinor, present := found.Minor()
		return present && foundMinor == minor
	}
	return true
}
