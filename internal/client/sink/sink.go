// Package sink reports upload progress and outcomes to the user.
package sink

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

const appTitle = "Up2Git"

// Sink receives pipeline notifications. Implementations must be safe for
// concurrent use; completions arrive on upload goroutines.
type Sink interface {
	Uploading(ctx context.Context, filename string)
	Succeeded(ctx context.Context, filename, url string)
	Failed(ctx context.Context, err error)
	Info(ctx context.Context, msg string)
}

// Message renders err for a user: the error kind followed by its detail.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", common.Kind(err), err)
}

// Console writes one line per notification.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Console) Uploading(_ context.Context, filename string) {
	c.printf("Uploading %s...", filename)
}

func (c *Console) Succeeded(_ context.Context, _ string, url string) {
	c.printf("Uploaded: %s", url)
}

func (c *Console) Failed(_ context.Context, err error) {
	c.printf("Upload failed: %s", Message(err))
}

func (c *Console) Info(_ context.Context, msg string) {
	c.printf("%s", msg)
}

// notifier shows a desktop notification.
type notifier func(ctx context.Context, title, body string) error

func notifySend(ctx context.Context, title, body string) error {
	return exec.CommandContext(ctx, "notify-send", "-a", appTitle, title, body).Run()
}

// Desktop copies successful URLs to the clipboard and shows notifications.
// Both are best effort: failures are logged only.
type Desktop struct {
	logger    logging.Logger
	writeClip func(string) error
	notify    notifier
}

func NewDesktop(logger logging.Logger) *Desktop {
	return &Desktop{
		logger:    logging.OrNop(logger),
		writeClip: clipboard.WriteAll,
		notify:    notifySend,
	}
}

func (d *Desktop) show(ctx context.Context, title, body string) {
	if err := d.notify(ctx, title, body); err != nil {
		d.logger.Debug(ctx, "notification not shown", "title", title, "error", err)
	}
}

func (d *Desktop) Uploading(ctx context.Context, filename string) {
	d.show(ctx, appTitle, "Uploading "+filename+"...")
}

func (d *Desktop) Succeeded(ctx context.Context, filename, url string) {
	body := "URL copied to clipboard: " + url
	if err := d.writeClip(url); err != nil {
		d.logger.Warn(ctx, "url not copied to clipboard", "error", err)
		body = url
	}
	d.show(ctx, "Upload successful", body)
	d.logger.Info(ctx, "upload successful", "filename", filename, "url", url)
}

func (d *Desktop) Failed(ctx context.Context, err error) {
	d.show(ctx, "Upload failed", Message(err))
}

func (d *Desktop) Info(ctx context.Context, msg string) {
	d.show(ctx, appTitle, msg)
}

// Multi fans notifications out to several sinks in order.
type Multi []Sink

func (m Multi) Uploading(ctx context.Context, filename string) {
	for _, s := range m {
		s.Uploading(ctx, filename)
	}
}

func (m Multi) Succeeded(ctx context.Context, filename, url string) {
	for _, s := range m {
		s.Succeeded(ctx, filename, url)
	}
}

func (m Multi) Failed(ctx context.Context, err error) {
	for _, s := range m {
		s.Failed(ctx, err)
	}
}

func (m Multi) Info(ctx context.Context, msg string) {
	for _, s := range m {
		s.Info(ctx, msg)
	}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Uploading(context.Context, string)         {}
func (Nop) Succeeded(context.Context, string, string) {}
func (Nop) Failed(context.Context, error)             {}
func (Nop) Info(context.Context, string)              {}
