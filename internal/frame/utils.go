package frame

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Blank returns a solid black picture of the given size.
func Blank(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

// ScaleAndLetterbox fits src into a width x height canvas preserving aspect
// ratio, centered on a black background. Both export and streaming paths
// normalize every input image through this before compositing.
func ScaleAndLetterbox(src image.Image, width, height int) *image.RGBA {
	dst := Blank(width, height)

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	scaleX := float64(width) / float64(sb.Dx())
	scaleY := float64(height) / float64(sb.Dy())
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	x := (width - w) / 2
	y := (height - h) / 2

	target := image.Rect(x, y, x+w, y+h)
	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Over, nil)
	return dst
}

// CloneRGBA returns an independent copy of img.
func CloneRGBA(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}
