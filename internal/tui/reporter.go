package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"unityrunner/internal/report"
)

// ConsoleReporter writes reporter calls to a console, indenting lines inside
// open blocks. With Plain set no styling is applied.
type ConsoleReporter struct {
	w     io.Writer
	plain bool

	mu    sync.Mutex
	depth int
}

// NewConsoleReporter returns a reporter writing to w.
func NewConsoleReporter(w io.Writer, plain bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, plain: plain}
}

func (c *ConsoleReporter) line(severity report.Severity, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	indent := strings.Repeat("  ", c.depth)
	switch severity {
	case report.SeverityWarning:
		text = "WARNING: " + text
	case report.SeverityError:
		text = "ERROR: " + text
	}
	if !c.plain {
		text = SeverityStyle(severity).Render(text)
	}
	fmt.Fprintf(c.w, "%s%s\n", indent, text)
}

func (c *ConsoleReporter) Message(text string) { c.line(report.SeverityNormal, text) }
func (c *ConsoleReporter) Warning(text string) { c.line(report.SeverityWarning, text) }
func (c *ConsoleReporter) Problem(text string) { c.line(report.SeverityError, text) }

func (c *ConsoleReporter) OpenBlock(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	marker := "> " + name
	if !c.plain {
		marker = BlockStyle.Render(marker)
	}
	fmt.Fprintf(c.w, "%s%s\n", strings.Repeat("  ", c.depth), marker)
	c.depth++
}

func (c *ConsoleReporter) CloseBlock(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depth > 0 {
		c.depth--
	}
}

// JSONReporter writes one JSON object per reporter call.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

type jsonEvent struct {
	Time string      `json:"time"`
	Kind report.Kind `json:"kind"`
	Text string      `json:"text"`
}

// NewJSONReporter returns a reporter emitting JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w), now: time.Now}
}

func (j *JSONReporter) emit(kind report.Kind, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(jsonEvent{Time: j.now().UTC().Format(time.RFC3339), Kind: kind, Text: text})
}

func (j *JSONReporter) Message(text string)    { j.emit(report.KindMessage, text) }
func (j *JSONReporter) Warning(text string)    { j.emit(report.KindWarning, text) }
func (j *JSONReporter) Problem(text string)    { j.emit(report.KindProblem, text) }
func (j *JSONReporter) OpenBlock(name string)  { j.emit(report.KindOpenBlock, name) }
func (j *JSONReporter) CloseBlock(name string) { j.emit(report.KindCloseBlock, name) }

// ProgressReporter feeds a ProgressModel. Each step becomes a row; reporter
// output updates the detail of the current row. Warnings and problems are
// kept so they can be printed once the program exits.
type ProgressReporter struct {
	send func(tea.Msg)

	mu       sync.Mutex
	seq      int
	key      string
	problems []string
}

// NewProgressReporter returns a reporter that sends updates through send.
func NewProgressReporter(send func(tea.Msg)) *ProgressReporter {
	return &ProgressReporter{send: send}
}

// StepStarted adds a running row for the named step.
func (p *ProgressReporter) StepStarted(name string) {
	p.mu.Lock()
	p.seq++
	p.key = fmt.Sprintf("step:%d", p.seq)
	key := p.key
	p.mu.Unlock()
	p.send(AddRowMsg{Key: key, Name: name})
}

// StepFinished sets the final status of the current row.
func (p *ProgressReporter) StepFinished(status string) {
	p.update(RowUpdateMsg{Status: status})
}

// Problems returns the warnings and problems seen so far.
func (p *ProgressReporter) Problems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.problems...)
}

func (p *ProgressReporter) update(msg RowUpdateMsg) {
	p.mu.Lock()
	msg.Key = p.key
	p.mu.Unlock()
	if msg.Key == "" {
		return
	}
	p.send(msg)
}

func (p *ProgressReporter) keep(prefix, text string) {
	p.mu.Lock()
	p.problems = append(p.problems, prefix+text)
	p.mu.Unlock()
}

func (p *ProgressReporter) Message(text string) { p.update(RowUpdateMsg{Detail: text}) }

func (p *ProgressReporter) Warning(text string) {
	p.keep("WARNING: ", text)
	p.update(RowUpdateMsg{Detail: text})
}

func (p *ProgressReporter) Problem(text string) {
	p.keep("ERROR: ", text)
	p.update(RowUpdateMsg{Detail: text})
}

func (p *ProgressReporter) OpenBlock(name string) { p.update(RowUpdateMsg{Detail: name}) }
func (p *ProgressReporter) CloseBlock(string)     {}

var (
	_ report.Reporter = (*ConsoleReporter)(nil)
	_ report.Reporter = (*JSONReporter)(nil)
	_ report.Reporter = (*ProgressReporter)(nil)
)
