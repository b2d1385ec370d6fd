package proc

import (
	"bytes"
	"sync"
)

// LineWriter splits written bytes into lines terminated by LF, CR or CRLF
// and hands each line, without its terminator, to fn.
type LineWriter struct {
	mu     sync.Mutex
	fn     func(string)
	buf    bytes.Buffer
	lastCR bool
}

func NewLineWriter(fn func(line string)) *LineWriter {
	return &LineWriter{fn: fn}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		switch b {
		case '\n':
			if w.lastCR {
				w.lastCR = false
				continue
			}
			w.emit()
		case '\r':
			w.emit()
			w.lastCR = true
			continue
		default:
			w.buf.WriteByte(b)
		}
		w.lastCR = false
	}
	return len(p), nil
}

// Flush emits a trailing partial line, if any.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit()
	}
}

func (w *LineWriter) emit() {
	line := w.buf.String()
	w.buf.Reset()
	w.fn(line)
}
