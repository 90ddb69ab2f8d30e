// Package patch turns image sub-areas into encodable byte payloads and back.
// It knows nothing about encryption; the orchestrator feeds its output to the
// crypto engine.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"pii-vault/internal/region"
)

// ErrCodec marks malformed buffers or unsupported pixel content.
var ErrCodec = errors.New("patch codec")

// Encode serializes a pixel buffer to a self-describing lossless payload
// (PNG), so a decrypted patch is directly renderable.
func Encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty pixel buffer", ErrCodec)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode back into a pixel buffer.
func Decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return img, nil
}

// Extract crops img to the axis-aligned bounding box of poly and encodes the
// crop. The box is clipped to the image bounds; a box entirely outside the
// image is a codec error.
func Extract(img image.Image, poly region.Polygon) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrCodec)
	}
	box := poly.Bounds().Intersect(img.Bounds())
	if box.Empty() {
		return nil, fmt.Errorf("%w: polygon bounding box outside image", ErrCodec)
	}
	return Encode(Crop(img, box))
}

// Crop copies the given rectangle into a fresh buffer anchored at (0,0).
// Copying rather than sub-slicing keeps the patch independent of the source
// image's backing array and offsets.
func Crop(img image.Image, box image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), img, box.Min, draw.Src)
	return out
}
