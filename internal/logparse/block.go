// Package logparse turns the editor's console output into named blocks and
// classified lines for the progress reporter.
package logparse

import (
	"regexp"
	"strings"
)

// Placement decides where a block's boundary line is emitted.
type Placement int

const (
	// Excluded drops the boundary line.
	Excluded Placement = iota
	// Inside emits the boundary line as part of the block.
	Inside
	// Outside emits the boundary line in the enclosing block.
	Outside
)

func (p Placement) String() string {
	switch p {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return "excluded"
	}
}

// Block describes a delimited region of the log.
type Block struct {
	Name      string
	Start     func(line string) bool
	End       func(line string) bool
	First     Placement
	Last      Placement
	Transform func(line string) string
}

func (b *Block) text(line string) string {
	if b.Transform == nil {
		return line
	}
	return b.Transform(line)
}

// defaultBlock is used while the stack is empty. It never ends and passes
// lines through unchanged.
var defaultBlock = &Block{
	Name:  "",
	Start: func(string) bool { return false },
	End:   func(string) bool { return false },
}

func matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

func notMatches(re *regexp.Regexp) func(string) bool {
	return func(line string) bool { return !re.MatchString(line) }
}

// prefixBlock groups consecutive lines tagged with the same bracketed
// prefix, stripping the prefix while the block is open.
func prefixBlock(name string, prefix *regexp.Regexp) *Block {
	return &Block{
		Name:  name,
		Start: matches(prefix),
		End:   notMatches(prefix),
		First: Inside,
		Last:  Outside,
		Transform: func(line string) string {
			return strings.TrimSpace(prefix.ReplaceAllString(line, ""))
		},
	}
}

func delimitedBlock(name string, start, end *regexp.Regexp, first, last Placement) *Block {
	return &Block{
		Name:  name,
		Start: matches(start),
		End:   matches(end),
		First: first,
		Last:  last,
	}
}

// DefaultBlocks returns the built-in block definitions in priority order.
func DefaultBlocks() []*Block {
	return []*Block{
		prefixBlock("Licensing", regexp.MustCompile(`^\[Licensing::\w+\]\s*`)),
		prefixBlock("Package Manager", regexp.MustCompile(`^\[Package Manager\]\s*`)),
		prefixBlock("Performance", regexp.MustCompile(`^\[Performance\]\s*`)),
		delimitedBlock("Script Compilation",
			regexp.MustCompile(`^- Starting script compilation`),
			regexp.MustCompile(`^- Finished script compilation`),
			Inside, Inside),
		delimitedBlock("Compiler Output",
			regexp.MustCompile(`^-----CompilerOutput:`),
			regexp.MustCompile(`^-----EndCompilerOutput`),
			Excluded, Excluded),
		delimitedBlock("Refresh",
			regexp.MustCompile(`^Refresh: detecting if any assets need to be imported or removed`),
			regexp.MustCompile(`^Refresh completed in`),
			Inside, Inside),
		delimitedBlock("Build Report",
			regexp.MustCompile(`^Build Report\s*$`),
			regexp.MustCompile(`^-{20,}\s*$`),
			Inside, Excluded),
	}
}
