package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file while a long batch runs and reports validated
// changes. A change that fails validation is logged and the previous config
// stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config, diff ConfigDiff)

	mu       sync.Mutex
	current  *Config
	done     chan struct{}
	stopOnce sync.Once

	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Config, diff ConfigDiff), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config: watcher cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("config: watcher rejected new config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()

	if hash == w.lastHash {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}

	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	diff := Diff(old, cfg)
	slog.Info("config: reloaded", "path", w.path, "restart_required", diff.RestartRequired)

	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(old, cfg, diff)
	}
}

// loadAndHash reads, validates and hashes the config file.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	f, err := os.Open(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
