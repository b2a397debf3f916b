package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/HuangJiaLian/Up2Git/internal/common"
)

// TimestampLayout renders the timestamp embedded in generated filenames.
const TimestampLayout = "20060102_150405"

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".webp": {},
}

// Item is a classified capture, ready to be uploaded.
type Item struct {
	Filename string
	Content  []byte
	IsImage  bool
	MIME     string
}

// IsImageName reports whether name has one of the recognised image extensions.
func IsImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Classify turns a capture into a filename and content. now supplies the
// timestamp used in generated names. Only file references touch the disk.
func Classify(c Capture, now time.Time) (Item, error) {
	ts := now.Format(TimestampLayout)

	switch v := c.(type) {
	case Image:
		return classifyImage(v, ts)
	case Files:
		p := firstPath(v.Paths)
		if p == "" {
			return Item{}, common.ErrNothingToUpload
		}
		return classifyFile(p, ts)
	case Text:
		if p, ok := resolveFile(v.Text); ok {
			return classifyFile(p, ts)
		}
		return classifyText(v, ts)
	case nil:
		return Item{}, common.ErrNothingToUpload
	default:
		return Item{}, fmt.Errorf("unsupported capture %T", c)
	}
}

func classifyImage(v Image, ts string) (Item, error) {
	img, _, err := image.Decode(bytes.NewReader(v.Data))
	if err != nil {
		return Item{}, fmt.Errorf("decode clipboard image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Item{}, fmt.Errorf("encode png: %w", err)
	}

	return Item{
		Filename: "screenshot_" + ts + ".png",
		Content:  buf.Bytes(),
		IsImage:  true,
		MIME:     "image/png",
	}, nil
}

func classifyFile(path, ts string) (Item, error) {
	path = toPath(path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Item{}, fmt.Errorf("%s: %w", path, common.ErrNotFound)
		}
		return Item{}, fmt.Errorf("stat %s: %w: %v", path, common.ErrNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return Item{}, fmt.Errorf("%s is not a regular file: %w", path, common.ErrNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("read %s: %w: %v", path, common.ErrNotFound, err)
	}

	base := filepath.Base(path)
	mime := mimetype.Detect(data)
	return Item{
		Filename: ts + "_" + base,
		Content:  data,
		IsImage:  IsImageName(base) && strings.HasPrefix(mime.String(), "image/"),
		MIME:     mime.String(),
	}, nil
}

func classifyText(v Text, ts string) (Item, error) {
	if strings.TrimSpace(v.Text) == "" {
		return Item{}, common.ErrNothingToUpload
	}
	data := []byte(v.Text)
	return Item{
		Filename: "text_" + ts + ".txt",
		Content:  data,
		MIME:     mimetype.Detect(data).String(),
	}, nil
}

// resolveFile reports whether text names an existing regular file.
func resolveFile(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, "\n\r") {
		return "", false
	}
	p := toPath(text)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

// toPath converts a file:// URL into a local path; anything else is returned
// trimmed.
func toPath(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "file://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(s, "file://")
	}
	return u.Path
}
