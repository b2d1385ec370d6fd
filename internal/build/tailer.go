package build

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"unityrunner/internal/proc"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStopGrace    = 500 * time.Millisecond
)

// Tailer follows a growing file and forwards complete lines. It reads on
// every fsnotify write event and at a fixed poll interval, so it keeps
// working where file events are unavailable.
type Tailer struct {
	Path         string
	PollInterval time.Duration
	// StopGrace is slept before the final drain in Stop.
	StopGrace time.Duration
	Logger    *slog.Logger

	lines    *proc.LineWriter
	offset   int64
	current  os.FileInfo
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewTailer(path string, onLine func(string)) *Tailer {
	return &Tailer{
		Path:         path,
		PollInterval: DefaultPollInterval,
		StopGrace:    DefaultStopGrace,
		lines:        proc.NewLineWriter(onLine),
	}
}

// Start begins following the file in a background goroutine. The file does
// not need to exist yet.
func (t *Tailer) Start() {
	if t.Logger == nil {
		t.Logger = slog.New(slog.DiscardHandler)
	}
	if t.PollInterval <= 0 {
		t.PollInterval = DefaultPollInterval
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run()
}

// Stop waits for the grace period, reads whatever is left including a
// trailing partial line, and returns once the goroutine has exited.
func (t *Tailer) Stop() {
	if t.stop == nil {
		return
	}
	t.stopOnce.Do(func() {
		if t.StopGrace > 0 {
			time.Sleep(t.StopGrace)
		}
		close(t.stop)
	})
	<-t.done
}

func (t *Tailer) run() {
	defer close(t.done)

	var events <-chan fsnotify.Event
	var errs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Logger.Debug("log tailer falling back to polling", "path", t.Path, "err", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(t.Path)); err != nil {
			t.Logger.Debug("log tailer cannot watch directory", "path", t.Path, "err", err)
		} else {
			events, errs = watcher.Events, watcher.Errors
		}
	}

	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			t.read()
			t.lines.Flush()
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(t.Path) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				t.read()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.Logger.Debug("log tailer watch error", "path", t.Path, "err", err)
		case <-ticker.C:
			t.read()
		}
	}
}

func (t *Tailer) read() {
	f, err := os.Open(t.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.Logger.Debug("log tailer open failed", "path", t.Path, "err", err)
		}
		return
	}
	defer f.Close()

	// A replaced or truncated file is read again from the start.
	if info, err := f.Stat(); err == nil {
		if info.Size() < t.offset || (t.current != nil && !os.SameFile(t.current, info)) {
			t.offset = 0
		}
		t.current = info
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	n, err := io.Copy(t.lines, f)
	t.offset += n
	if err != nil {
		t.Logger.Debug("log tailer read failed", "path", t.Path, "err", err)
	}
}
