package capture

import (
	"context"
	"strings"

	"github.com/HuangJiaLian/Up2Git/internal/common"
)

// Capture is one unit of content taken from the user's context. It is a
// closed set: Image, Files or Text.
type Capture interface {
	isCapture()
}

// Image is a bitmap taken from the clipboard, in any decodable format.
type Image struct {
	Data []byte
}

// Files is a list of file references (paths or file:// URLs).
type Files struct {
	Paths []string
}

// Text is plain text.
type Text struct {
	Text string
}

func (Image) isCapture() {}
func (Files) isCapture() {}
func (Text) isCapture()  {}

// Snapshot is everything a clipboard exposes at one moment. Several slots may
// be filled at once (an image paste usually also exposes an empty text slot).
type Snapshot struct {
	Image *Image
	Files *Files
	Text  *Text
}

// Select picks the capture to upload: image > file references > text.
// Empty slots are skipped; ErrNothingToUpload is returned when none is usable.
func (s Snapshot) Select() (Capture, error) {
	if s.Image != nil && len(s.Image.Data) > 0 {
		return *s.Image, nil
	}
	if s.Files != nil && firstPath(s.Files.Paths) != "" {
		return *s.Files, nil
	}
	if s.Text != nil && strings.TrimSpace(s.Text.Text) != "" {
		return *s.Text, nil
	}
	return nil, common.ErrNothingToUpload
}

// Source yields the current clipboard contents.
type Source interface {
	Read(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

func (f SourceFunc) Read(ctx context.Context) (Snapshot, error) { return f(ctx) }

func firstPath(paths []string) string {
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
			return p
		}
	}
	return ""
}
