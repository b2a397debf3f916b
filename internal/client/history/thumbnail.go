package history

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ThumbnailSize is the longest edge of a thumbnail, in pixels.
const ThumbnailSize = 64

// MakeThumbnail scales data to fit within size×size, keeping the aspect
// ratio and never enlarging, flattens transparency onto white and returns the
// PNG as base64. Errors wrap common.ErrThumbnail.
func MakeThumbnail(data []byte, size int) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", common.ErrThumbnail)
	}
	if size <= 0 {
		return "", fmt.Errorf("%w: invalid size %d", common.ErrThumbnail, size)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %w", common.ErrThumbnail, err)
	}

	fitted := imaging.Fit(src, size, size, imaging.Lanczos)
	b := fitted.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, fitted, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
		return "", fmt.Errorf("%w: encode: %w", common.ErrThumbnail, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
