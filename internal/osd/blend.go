package osd

import (
	"image"
	"image/color"
)

// blendRect alpha-blends a solid color over the given area of dst with the
// specified opacity, clipping to the image bounds.
func blendRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	alpha := uint32(float64(c.A) * opacity)
	inv := 255 - alpha

	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Pix[i] = uint8((uint32(c.R)*alpha + uint32(dst.Pix[i])*inv) / 255)
			dst.Pix[i+1] = uint8((uint32(c.G)*alpha + uint32(dst.Pix[i+1])*inv) / 255)
			dst.Pix[i+2] = uint8((uint32(c.B)*alpha + uint32(dst.Pix[i+2])*inv) / 255)
			i += 4
		}
	}
}
