package logparse

import (
	"unityrunner/internal/report"
)

// Classifier is a streaming block parser. It is not safe for concurrent use;
// feed it lines from a single reader.
type Classifier struct {
	blocks []*Block
	rules  *Rules
	out    report.Reporter
	stack  []*Block

	// OnEmit, when set, observes every emitted line after classification.
	OnEmit func(severity report.Severity, text string)
}

// NewClassifier builds a classifier over the given block definitions.
// Nil blocks means DefaultBlocks, nil rules means BuiltinRules.
func NewClassifier(out report.Reporter, blocks []*Block, rules *Rules) *Classifier {
	if blocks == nil {
		blocks = DefaultBlocks()
	}
	if rules == nil {
		rules = BuiltinRules()
	}
	if out == nil {
		out = report.Discard{}
	}
	return &Classifier{blocks: blocks, rules: rules, out: out}
}

func (c *Classifier) current() *Block {
	if len(c.stack) == 0 {
		return defaultBlock
	}
	return c.stack[len(c.stack)-1]
}

// depth is the number of open named blocks.
func (c *Classifier) depth() int { return len(c.stack) }

// Line processes one line of output.
func (c *Classifier) Line(line string) {
	cur := c.current()

	if cur != defaultBlock && cur.End(line) {
		switch cur.Last {
		case Outside:
			c.pop()
			c.emit(c.current(), line)
		case Inside:
			c.emit(cur, line)
			c.pop()
		default:
			c.pop()
		}
		return
	}

	for _, b := range c.blocks {
		if b == cur || !b.Start(line) {
			continue
		}
		if cur != defaultBlock {
			c.pop()
		}
		switch b.First {
		case Outside:
			c.emit(c.current(), line)
			c.push(b)
		case Inside:
			c.push(b)
			c.emit(b, line)
		default:
			c.push(b)
		}
		return
	}

	c.emit(cur, line)
}

// Close ends every open block. Call it once the stream is exhausted.
func (c *Classifier) Close() {
	for len(c.stack) > 0 {
		c.pop()
	}
}

func (c *Classifier) push(b *Block) {
	c.stack = append(c.stack, b)
	c.out.OpenBlock(b.Name)
}

func (c *Classifier) pop() {
	if len(c.stack) == 0 {
		return
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.out.CloseBlock(top.Name)
}

func (c *Classifier) emit(b *Block, line string) {
	text := b.text(line)
	severity := c.rules.Classify(text)
	report.Emit(c.out, severity, text)
	if c.OnEmit != nil {
		c.OnEmit(severity, text)
	}
}
