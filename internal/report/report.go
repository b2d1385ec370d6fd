// Package report defines the progress reporter that steps and the log
// classifier write to. The CI UI side implements it.
package report

import (
	"fmt"
	"strings"
	"sync"
)

// Severity classifies an emitted line.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "normal"
	}
}

// ParseSeverity maps a rule level onto a Severity. Unknown levels are normal.
func ParseSeverity(level string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "normal", "info", "message", "":
		return SeverityNormal, true
	case "warning", "warn":
		return SeverityWarning, true
	case "error", "failure", "problem":
		return SeverityError, true
	}
	return SeverityNormal, false
}

// Reporter receives structured progress for a running session.
type Reporter interface {
	Message(text string)
	Warning(text string)
	Problem(text string)
	OpenBlock(name string)
	CloseBlock(name string)
}

// Emit wraps text according to severity.
func Emit(r Reporter, severity Severity, text string) {
	switch severity {
	case SeverityWarning:
		r.Warning(text)
	case SeverityError:
		r.Problem(text)
	default:
		r.Message(text)
	}
}

// Kind identifies a recorded event.
type Kind string

const (
	KindMessage    Kind = "message"
	KindWarning    Kind = "warning"
	KindProblem    Kind = "problem"
	KindOpenBlock  Kind = "open"
	KindCloseBlock Kind = "close"
)

// Event is a single reporter call captured by Recorder.
type Event struct {
	Kind Kind
	Text string
}

func (e Event) String() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Text)
}

// Recorder keeps every reporter call in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(kind Kind, text string) {
	r.mu.Lock()
	r.events = append(r.events, Event{Kind: kind, Text: text})
	r.mu.Unlock()
}

func (r *Recorder) Message(text string)    { r.add(KindMessage, text) }
func (r *Recorder) Warning(text string)    { r.add(KindWarning, text) }
func (r *Recorder) Problem(text string)    { r.add(KindProblem, text) }
func (r *Recorder) OpenBlock(name string)  { r.add(KindOpenBlock, name) }
func (r *Recorder) CloseBlock(name string) { r.add(KindCloseBlock, name) }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Strings renders events as "kind:text" for compact assertions.
func (r *Recorder) Strings() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// Discard drops everything.
type Discard struct{}

func (Discard) Message(string)    {}
func (Discard) Warning(string)    {}
func (Discard) Problem(string)    {}
func (Discard) OpenBlock(string)  {}
func (Discard) CloseBlock(string) {}

var (
	_ Reporter = (*Recorder)(nil)
	_ Reporter = Discard{}
)
