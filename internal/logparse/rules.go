package logparse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"unityrunner/internal/report"
)

// Rule maps a pattern to a severity.
type Rule struct {
	Severity report.Severity
	Pattern  *regexp.Regexp
}

// Rules holds the externally supplied rules and the built-in fallbacks.
// Custom rules are consulted first.
type Rules struct {
	custom  []Rule
	builtin []Rule
}

var builtinRules = []Rule{
	{report.SeverityError, regexp.MustCompile(`\.cs\(\d+,\d+\): error CS\d+:`)},
	{report.SeverityWarning, regexp.MustCompile(`\.cs\(\d+,\d+\): warning CS\d+:`)},
	{report.SeverityError, regexp.MustCompile(`^Scripts have compiler errors`)},
	{report.SeverityError, regexp.MustCompile(`(?i)^\s*fatal error\b`)},
	{report.SeverityError, regexp.MustCompile(`^Aborting batchmode due to failure`)},
	{report.SeverityError, regexp.MustCompile(`(?i)^\s*(?:no valid unity editor license found|license activation failed)`)},
	{report.SeverityError, regexp.MustCompile(`(?i)\blicen[cs]e\b.*\b(?:error|failed|failure|invalid)\b`)},
	{report.SeverityError, regexp.MustCompile(`^\w*Exception: `)},
	{report.SeverityError, regexp.MustCompile(`^(?:Error|ERROR):\s`)},
	{report.SeverityWarning, regexp.MustCompile(`^(?:WARNING|Warning):\s`)},
}

// BuiltinRules returns the default rule set without custom rules.
func BuiltinRules() *Rules {
	return &Rules{builtin: builtinRules}
}

// WithCustom returns a rule set that prefers custom over the built-ins.
func WithCustom(custom []Rule) *Rules {
	return &Rules{custom: custom, builtin: builtinRules}
}

// Classify returns the severity of the first matching rule, custom first.
func (r *Rules) Classify(line string) report.Severity {
	if r == nil {
		return report.SeverityNormal
	}
	for _, rule := range r.custom {
		if rule.Pattern.MatchString(line) {
			return rule.Severity
		}
	}
	for _, rule := range r.builtin {
		if rule.Pattern.MatchString(line) {
			return rule.Severity
		}
	}
	return report.SeverityNormal
}

// LoadRules reads a rule file made of <line level="..." message="regex"/>
// records, with or without an enclosing element.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules, nil
}

type lineRecord struct {
	Level   string `xml:"level,attr"`
	Message string `xml:"message,attr"`
}

// ParseRules decodes rule records from raw XML.
func ParseRules(data []byte) ([]Rule, error) {
	// wrap so a bare list of <line/> elements is still a single document
	doc := append([]byte("<rules>"), stripProlog(data)...)
	doc = append(doc, []byte("</rules>")...)

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		rules []Rule
		errs  []error
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "line" {
			continue
		}
		var rec lineRecord
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return nil, err
		}
		severity, ok := report.ParseSeverity(rec.Level)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown level %q", rec.Level))
			continue
		}
		if rec.Message == "" {
			errs = append(errs, errors.New("line rule without message"))
			continue
		}
		re, err := regexp.Compile(rec.Message)
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %q: %w", rec.Message, err))
			continue
		}
		rules = append(rules, Rule{Severity: severity, Pattern: re})
	}
	return rules, errors.Join(errs...)
}

func stripProlog(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			return trimmed[end+2:]
		}
	}
	return trimmed
}
