// Package trigger lets a separate process ask the running host to upload.
//
// The requesting process creates a marker file; the host notices it, removes
// it and fires once. Polling on a fixed interval is authoritative; a file
// system watcher only shortens the delay when it is available.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/HuangJiaLian/Up2Git/internal/client/metrics"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

// DefaultInterval is how often the marker is checked.
const DefaultInterval = time.Second

// Write creates the marker at path, holding the current Unix time.
func Write(path string) error {
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("write trigger %s: %w", path, err)
	}
	return nil
}

// Channel watches one marker path.
type Channel struct {
	path     string
	interval time.Duration
	onFire   func(ctx context.Context)
	logger   logging.Logger
	metrics  *metrics.Metrics

	mu sync.Mutex
}

// NewChannel returns a channel that calls onFire once per consumed marker.
// A non-positive interval selects DefaultInterval.
func NewChannel(path string, interval time.Duration, onFire func(ctx context.Context), logger logging.Logger, m *metrics.Metrics) *Channel {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Channel{
		path:     filepath.Clean(path),
		interval: interval,
		onFire:   onFire,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

func (c *Channel) Path() string { return c.path }

// Run checks the marker until ctx is cancelled. A marker left over from
// before startup is consumed on the first check.
func (c *Channel) Run(ctx context.Context) error {
	events, closeWatcher := c.watch(ctx)
	defer closeWatcher()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info(ctx, "trigger channel started", "path", c.path, "interval", c.interval)
	c.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug(ctx, "trigger channel stopped")
			return nil
		case <-ticker.C:
			c.Check(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || filepath.Clean(ev.Name) != c.path {
				continue
			}
			c.Check(ctx)
		}
	}
}

// Check consumes the marker if present. The marker is removed before onFire
// runs so that a slow upload is never triggered twice by the same marker.
// It reports whether onFire was called.
func (c *Channel) Check(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug(ctx, "trigger stat", "path", c.path, "error", err)
		}
		return false
	}

	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn(ctx, "trigger marker not removed", "path", c.path, "error", err)
	}

	c.metrics.TriggerConsumed()
	c.logger.Info(ctx, "upload triggered", "path", c.path)
	if c.onFire != nil {
		c.onFire(ctx)
	}
	return true
}

// watch starts an fsnotify watcher on the marker's directory. On failure it
// logs and returns a nil channel, leaving polling in charge.
func (c *Channel) watch(ctx context.Context) (<-chan fsnotify.Event, func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn(ctx, "trigger watcher unavailable, polling only", "error", err)
		return nil, func() {}
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		_ = w.Close()
		c.logger.Warn(ctx, "trigger watcher unavailable, polling only", "error", err)
		return nil, func() {}
	}

	var once sync.Once
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Debug(ctx, "trigger watcher error", "error", err)
			}
		}
	}()

	return w.Events, func() {
		once.Do(func() {
			close(stop)
			_ = w.Close()
		})
	}
}
