package capture

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// helperTimeout bounds each clipboard helper call. Some selection owners
// never answer, and a read must not stall the trigger loop.
const helperTimeout = 2 * time.Second

// commandRunner runs an external helper and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SystemClipboard reads the desktop clipboard. Bitmaps and file references
// come from wl-paste (Wayland) or xclip (X11); plain text goes through
// github.com/atotto/clipboard, which picks the right helper per platform.
type SystemClipboard struct {
	run      commandRunner
	readText func() (string, error)
	timeout  time.Duration
}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{run: runCommand, readText: clipboard.ReadAll, timeout: helperTimeout}
}

// Read returns all slots the clipboard currently offers. Missing helpers or
// empty targets simply leave the slot nil.
func (c *SystemClipboard) Read(ctx context.Context) (Snapshot, error) {
	var s Snapshot

	if data := c.target(ctx, "image/png"); len(data) > 0 {
		s.Image = &Image{Data: data}
	}

	if data := c.target(ctx, "text/uri-list"); len(data) > 0 {
		if paths := parseURIList(data); len(paths) > 0 {
			s.Files = &Files{Paths: paths}
		}
	}

	if text := c.text(ctx); text != "" {
		s.Text = &Text{Text: text}
	}

	return s, nil
}

// target asks the available helpers for one MIME target.
func (c *SystemClipboard) target(ctx context.Context, mime string) []byte {
	helpers := [][]string{
		{"wl-paste", "--no-newline", "--type", mime},
		{"xclip", "-selection", "clipboard", "-t", mime, "-o"},
	}
	for _, h := range helpers {
		out, err := c.runBounded(ctx, h[0], h[1:]...)
		if err == nil && len(out) > 0 {
			return out
		}
	}
	return nil
}

func (c *SystemClipboard) limit() time.Duration {
	if c.timeout <= 0 {
		return helperTimeout
	}
	return c.timeout
}

func (c *SystemClipboard) runBounded(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.limit())
	defer cancel()
	return c.run(ctx, name, args...)
}

// text reads the plain-text slot. The clipboard library takes no context,
// so the read runs on its own goroutine and is abandoned after the timeout.
func (c *SystemClipboard) text(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, c.limit())
	defer cancel()

	ch := make(chan string, 1)
	go func() {
		t, err := c.readText()
		if err != nil {
			t = ""
		}
		ch <- t
	}()

	select {
	case t := <-ch:
		return t
	case <-ctx.Done():
		return ""
	}
}

func parseURIList(data []byte) []string {
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}
