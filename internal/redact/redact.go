// Package redact renders the safe-to-share version of an image: an opaque
// fill over each protected bounding box. Pure transform, no storage, no
// crypto.
package redact

import (
	"image"
	"image/color"
	"image/draw"
)

var fill = color.NRGBA{A: 255} // opaque black

// Boxes paints each rectangle (clipped to the image) solid and returns a new
// buffer of identical dimensions. Pixels outside the boxes are untouched.
func Boxes(img image.Image, boxes []image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	for _, box := range boxes {
		clipped := box.Intersect(out.Bounds())
		if clipped.Empty() {
			continue
		}
		draw.Draw(out, clipped, image.NewUniform(fill), image.Point{}, draw.Src)
	}
	return out
}
