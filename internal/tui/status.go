package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter animates a single status line on a terminal while a short
// phase runs, such as editor detection. Finish replaces the animation with
// a summary line.
type StatusWriter struct {
	w      io.Writer
	frames spinner.Spinner

	mu      sync.Mutex
	message string
	since   time.Time
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewStatusWriter starts animating on w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:      w,
		frames: spinner.Dot,
		since:  time.Now(),
		stop:   make(chan struct{}),
	}
	sw.wg.Add(1)
	go sw.animate()
	return sw
}

// Update sets the message and restarts its timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message, sw.since = msg, time.Now()
	sw.mu.Unlock()
}

// Stop clears the line.
func (sw *StatusWriter) Stop() { sw.Finish("") }

// Finish stops the animation and prints summary, if any, in its place.
// Calls after the first have no effect.
func (sw *StatusWriter) Finish(summary string) {
	sw.mu.Lock()
	if sw.closed {
		sw.mu.Unlock()
		return
	}
	sw.closed = true
	elapsed := time.Since(sw.since)
	sw.mu.Unlock()

	close(sw.stop)
	sw.wg.Wait()
	fmt.Fprint(sw.w, "\r\033[K")
	if summary != "" {
		fmt.Fprintf(sw.w, "%s (%s)\n", summary, FormatElapsed(elapsed))
	}
}

func (sw *StatusWriter) animate() {
	defer sw.wg.Done()
	ticker := time.NewTicker(sw.frames.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
		}
		sw.mu.Lock()
		msg, since := sw.message, sw.since
		sw.mu.Unlock()
		glyph := sw.frames.Frames[frame%len(sw.frames.Frames)]
		fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", glyph, msg, FormatElapsed(time.Since(since)))
	}
}
