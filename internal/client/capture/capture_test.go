package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/HuangJiaLian/Up2Git/internal/common"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 1, color.RGBA{B: 255, A: 128})
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func TestSnapshotSelect_Priority(t *testing.T) {
	img := &Image{Data: []byte{1}}
	files := &Files{Paths: []string{"/tmp/a.txt"}}
	text := &Text{Text: "hello"}

	tests := []struct {
		name string
		snap Snapshot
		want Capture
	}{
		{"all present picks image", Snapshot{Image: img, Files: files, Text: text}, *img},
		{"files over text", Snapshot{Files: files, Text: text}, *files},
		{"text only", Snapshot{Text: text}, *text},
		{"empty image slot skipped", Snapshot{Image: &Image{}, Text: text}, *text},
		{"comment-only uri list skipped", Snapshot{Files: &Files{Paths: []string{"# x"}}, Text: text}, *text},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.snap.Select()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshotSelect_Nothing(t *testing.T) {
	_, err := Snapshot{Text: &Text{Text: "  \n"}}.Select()
	require.ErrorIs(t, err, common.ErrNothingToUpload)
}

func TestClassify_ImageReencodedAsPNG(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, bmp.Encode(&raw, testImage()))

	item, err := Classify(Image{Data: raw.Bytes()}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "screenshot_20240309_140507.png", item.Filename)
	assert.True(t, item.IsImage)
	assert.Equal(t, "image/png", item.MIME)

	decoded, format, err := image.Decode(bytes.NewReader(item.Content))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 4, 2), decoded.Bounds())
}

func TestClassify_ImageUndecodable(t *testing.T) {
	_, err := Classify(Image{Data: []byte("not an image")}, fixedNow)
	require.Error(t, err)
}

func TestClassify_FileReference(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cat.JPG")
	data := pngBytes(t)
	require.NoError(t, os.WriteFile(p, data, 0o600))

	for _, ref := range []string{p, "file://" + p} {
		item, err := Classify(Files{Paths: []string{ref}}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, "20240309_140507_cat.JPG", item.Filename)
		assert.Equal(t, data, item.Content)
		assert.True(t, item.IsImage)
		assert.Equal(t, "image/png", item.MIME)
	}
}

func TestClassify_MislabeledImageIsNotAnImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(p, []byte("just some text"), 0o600))

	item, err := Classify(Files{Paths: []string{p}}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "20240309_140507_notes.png", item.Filename)
	assert.False(t, item.IsImage)
	assert.True(t, strings.HasPrefix(item.MIME, "text/plain"), item.MIME)
}

func TestClassify_FileReferenceMissing(t *testing.T) {
	_, err := Classify(Files{Paths: []string{filepath.Join(t.TempDir(), "gone.txt")}}, fixedNow)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = Classify(Files{Paths: []string{t.TempDir()}}, fixedNow)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestClassify_TextNamingAFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(p, []byte("# hi"), 0o600))

	item, err := Classify(Text{Text: "  " + p + "\n"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "20240309_140507_notes.md", item.Filename)
	assert.False(t, item.IsImage)
}

func TestClassify_PlainText(t *testing.T) {
	item, err := Classify(Text{Text: "hello"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "text_20240309_140507.txt", item.Filename)
	assert.Equal(t, []byte("hello"), item.Content)
	assert.False(t, item.IsImage)
	assert.Contains(t, item.MIME, "text/plain")
}

func TestClassify_Deterministic(t *testing.T) {
	c := Image{Data: pngBytes(t)}
	a, err := Classify(c, fixedNow)
	require.NoError(t, err)
	b, err := Classify(c, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClassify_NilCapture(t *testing.T) {
	_, err := Classify(nil, fixedNow)
	require.ErrorIs(t, err, common.ErrNothingToUpload)
}

func TestIsImageName(t *testing.T) {
	for _, n := range []string{"a.png", "b.JPEG", "c.webp", "d.bmp", "e.gif", "f.jpg"} {
		assert.True(t, IsImageName(n), n)
	}
	for _, n := range []string{"a.txt", "png", "b.svg", ""} {
		assert.False(t, IsImageName(n), n)
	}
}

func TestSystemClipboard_Read(t *testing.T) {
	img := pngBytes(t)
	var calls []string

	c := &SystemClipboard{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, name)
			mime := args[len(args)-1]
			if name == "xclip" {
				mime = args[len(args)-2]
			}
			switch {
			case name == "wl-paste":
				return nil, errors.New("not wayland")
			case mime == "image/png":
				return img, nil
			case mime == "text/uri-list":
				return []byte("# comment\nfile:///tmp/a.png\r\n\n"), nil
			}
			return nil, errors.New("unexpected")
		},
		readText: func() (string, error) { return "", nil },
	}

	snap, err := c.Read(context.Background())
	require.NoError(t, err)

	require.NotNil(t, snap.Image)
	assert.Equal(t, img, snap.Image.Data)
	require.NotNil(t, snap.Files)
	assert.Equal(t, []string{"file:///tmp/a.png"}, snap.Files.Paths)
	assert.Nil(t, snap.Text)
	assert.Equal(t, []string{"wl-paste", "xclip", "wl-paste", "xclip"}, calls)
}

func TestSystemClipboard_TextOnly(t *testing.T) {
	c := &SystemClipboard{
		run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("no helper")
		},
		readText: func() (string, error) { return "hello", nil },
	}

	snap, err := c.Read(context.Background())
	require.NoError(t, err)

	got, err := snap.Select()
	require.NoError(t, err)
	assert.Equal(t, Text{Text: "hello"}, got)
}

func TestSystemClipboard_HungHelpersAreBounded(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	c := &SystemClipboard{
		run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		readText: func() (string, error) {
			<-release
			return "late", nil
		},
		timeout: 20 * time.Millisecond,
	}

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := c.Read(context.Background())
		done <- snap
	}()

	select {
	case snap := <-done:
		assert.Nil(t, snap.Image)
		assert.Nil(t, snap.Files)
		assert.Nil(t, snap.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("Read did not return while the helpers hung")
	}
}
