package logparse

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"unityrunner/internal/report"
)

func feed(c *Classifier, lines ...string) {
	for _, l := range lines {
		c.Line(l)
	}
}

func TestPerformanceBlock(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec, nil, nil)

	feed(c, "[Performance] foo", "[Performance] baz", "bar")

	assert.Equal(t, []string{
		"open:Performance",
		"message:foo",
		"message:baz",
		"close:Performance",
		"message:bar",
	}, rec.Strings())
	assert.Equal(t, 0, c.depth())
}

func TestPlainLineIsVerbatim(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec, nil, nil)

	feed(c, "  Loading  [Performance] not a prefix")

	assert.Equal(t, []string{"message:  Loading  [Performance] not a prefix"}, rec.Strings())
}

func TestLastLinePlacements(t *testing.T) {
	mk := func(last Placement) *Block {
		return &Block{
			Name:  "B",
			Start: regexp.MustCompile(`^begin`).MatchString,
			End:   regexp.MustCompile(`^end`).MatchString,
			First: Inside,
			Last:  last,
			Transform: func(s string) string {
				return "> " + s
			},
		}
	}
	tests := []struct {
		last Placement
		want []string
	}{
		{Inside, []string{"open:B", "message:> begin", "message:> x", "message:> end", "close:B", "message:after"}},
		{Outside, []string{"open:B", "message:> begin", "message:> x", "close:B", "message:end", "message:after"}},
		{Excluded, []string{"open:B", "message:> begin", "message:> x", "close:B", "message:after"}},
	}
	for _, tt := range tests {
		t.Run(tt.last.String(), func(t *testing.T) {
			rec := &report.Recorder{}
			c := NewClassifier(rec, []*Block{mk(tt.last)}, nil)
			feed(c, "begin", "x", "end", "after")
			assert.Equal(t, tt.want, rec.Strings())
		})
	}
}

func TestFirstLinePlacements(t *testing.T) {
	mk := func(first Placement) *Block {
		return &Block{
			Name:      "B",
			Start:     regexp.MustCompile(`^begin`).MatchString,
			End:       regexp.MustCompile(`^end`).MatchString,
			First:     first,
			Last:      Excluded,
			Transform: func(s string) string { return "> " + s },
		}
	}
	tests := []struct {
		first Placement
		want  []string
	}{
		{Inside, []string{"open:B", "message:> begin", "close:B"}},
		{Outside, []string{"message:begin", "open:B", "close:B"}},
		{Excluded, []string{"open:B", "close:B"}},
	}
	for _, tt := range tests {
		t.Run(tt.first.String(), func(t *testing.T) {
			rec := &report.Recorder{}
			c := NewClassifier(rec, []*Block{mk(tt.first)}, nil)
			feed(c, "begin", "end")
			assert.Equal(t, tt.want, rec.Strings())
		})
	}
}

func TestNewBlockForceClosesCurrent(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec, nil, nil)

	feed(c,
		"- Starting script compilation",
		"[Package Manager] Resolving packages",
		"[Package Manager] Done",
	)
	c.Close()

	assert.Equal(t, []string{
		"open:Script Compilation",
		"message:- Starting script compilation",
		"close:Script Compilation",
		"open:Package Manager",
		"message:Resolving packages",
		"message:Done",
		"close:Package Manager",
	}, rec.Strings())
}

func TestCompilerOutputBlockExcludesMarkers(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec, nil, nil)

	feed(c,
		"-----CompilerOutput:-stdout--exitcode: 1--compilationhadfailure: True--outfile: Temp/Assembly-CSharp.dll",
		"Assets/Player.cs(12,5): error CS1002: ; expected",
		"Assets/Enemy.cs(3,1): warning CS0414: unused field",
		"-----EndCompilerOutput---------------",
		"done",
	)

	assert.Equal(t, []string{
		"open:Compiler Output",
		"problem:Assets/Player.cs(12,5): error CS1002: ; expected",
		"warning:Assets/Enemy.cs(3,1): warning CS0414: unused field",
		"close:Compiler Output",
		"message:done",
	}, rec.Strings())
}

func TestCloseEndsOpenBlocks(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec, nil, nil)
	feed(c, "Build Report", "Uncompressed usage by category:")
	assert.Equal(t, 1, c.depth())
	c.Close()
	assert.Equal(t, 0, c.depth())
	assert.Equal(t, "close:Build Report", rec.Strings()[len(rec.Strings())-1])
}

func TestOnEmitObservesSeverity(t *testing.T) {
	var got []report.Severity
	c := NewClassifier(nil, nil, nil)
	c.OnEmit = func(s report.Severity, _ string) { got = append(got, s) }
	feed(c, "hello", "NullReferenceException: Object reference not set", "WARNING: Shader unsupported")
	assert.Equal(t, []report.Severity{report.SeverityNormal, report.SeverityError, report.SeverityWarning}, got)
}
