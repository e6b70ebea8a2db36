package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// PauseController suspends scheduling between rounds when a pause signal
// file exists. It never cancels in-flight work: a round that already
// fanned out runs to completion, and the pause takes effect before the
// next round starts.
type PauseController struct {
	signalDir string
	watcher   *fsnotify.Watcher
}

// pauseFileName is the signal file an operator creates to pause a run.
const pauseFileName = "pause"

// NewPauseController creates a controller watching signalDir.
// The directory is created if missing. Returns a nil controller (no-op)
// when signalDir is empty.
func NewPauseController(signalDir string) (*PauseController, error) {
	if signalDir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(signalDir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(signalDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &PauseController{
		signalDir: signalDir,
		watcher:   watcher,
	}, nil
}

// paused reports whether the pause signal file currently exists.
func (p *PauseController) paused() bool {
	_, err := os.Stat(filepath.Join(p.signalDir, pauseFileName))
	return err == nil
}

// WaitIfPaused blocks while the pause signal file exists, returning when
// it is removed or the context is canceled. Safe to call on a nil controller.
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	if p == nil {
		return nil
	}

	for p.paused() {
		debugLog("[pause] run paused, waiting for signal removal")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-p.watcher.Events:
			if !ok {
				return nil
			}
			// Re-check on any directory change.
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return nil
			}
			debugLog("[pause] watcher error: %v", err)
		}
	}
	return nil
}

// Close releases the underlying watcher. Safe to call on nil.
func (p *PauseController) Close() error {
	if p == nil || p.watcher == nil {
		return nil
	}
	return p.watcher.Close()
}
