package transition

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

var blackColor = color.RGBA{A: 255}

// compose renders kind at the given progress into dst. dst arrives holding a
// copy of in. Every kind is a pure function of (in, out, progress): the only
// state a transition may carry across frames is the step counter in Manager.
func compose(kind Kind, in, out *image.RGBA, p float64, dst *image.RGBA) {
	switch kind {
	case Fade:
		fade(in, out, p, dst)
	case ChessBoard:
		chessBoard(out, p, dst)
	case MeltDown:
		meltDown(out, p, dst)
	case SweepLeft:
		sweep(out, p, dst, true)
	case SweepRight:
		sweep(out, p, dst, false)
	case Mosaic:
		mosaic(out, p, dst)
	case Blobs:
		blobs(out, p, dst)
	case HorizontalLines:
		lines(out, p, dst, true)
	case VerticalLines:
		lines(out, p, dst, false)
	case CircleOut:
		circleOut(out, p, dst, false)
	case MultiCircleOut:
		circleOut(out, p, dst, true)
	case SpiralIn:
		spiralIn(out, p, dst)
	case Growing:
		growing(out, p, dst)
	case SlideL2R:
		slide(out, p, dst, 1, 0)
	case SlideR2L:
		slide(out, p, dst, -1, 0)
	case SlideT2B:
		slide(out, p, dst, 0, 1)
	case SlideB2T:
		slide(out, p, dst, 0, -1)
	case PushL2R:
		push(in, out, p, dst, 1, 0)
	case PushR2L:
		push(in, out, p, dst, -1, 0)
	case PushT2B:
		push(in, out, p, dst, 0, 1)
	case PushB2T:
		push(in, out, p, dst, 0, -1)
	case SwapL2R:
		swap(in, out, p, dst, 1)
	case SwapR2L:
		swap(in, out, p, dst, -1)
	default:
		draw.Draw(dst, dst.Bounds(), out, out.Bounds().Min, draw.Src)
	}
}

// hash01 maps grid coordinates to a stable value in [0,1). Transitions that
// look random (mosaic, blobs, meltdown) derive their pattern from this so the
// output stays a pure function of the inputs.
func hash01(x, y int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h%10000) / 10000.0
}

func fade(in, out *image.RGBA, p float64, dst *image.RGBA) {
	a := uint32(p * 256)
	b := 256 - a
	for i := range dst.Pix {
		dst.Pix[i] = uint8((uint32(in.Pix[i])*b + uint32(out.Pix[i])*a) >> 8)
	}
}

// revealRect copies the given area of out into dst.
func revealRect(out *image.RGBA, dst *image.RGBA, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	if !r.Empty() {
		draw.Draw(dst, r, out, r.Min, draw.Src)
	}
}

func chessBoard(out *image.RGBA, p float64, dst *image.RGBA) {
	const cells = 8
	b := dst.Bounds()
	cw := (b.Dx() + cells - 1) / cells
	ch := (b.Dy() + cells - 1) / cells
	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			// even cells sweep in during the first half, odd during the second
			threshold := float64(cx)/float64(cells)*0.5 + 0.5*float64((cx+cy)%2)
			if p > threshold {
				revealRect(out, dst, image.Rect(cx*cw, cy*ch, (cx+1)*cw, (cy+1)*ch))
			}
		}
	}
}

func meltDown(out *image.RGBA, p float64, dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	for x := 0; x < w; x++ {
		// every speed is >= 1 so the slowest column still hits the
		// bottom at full progress
		speed := 1.0 + 0.8*hash01(x, 0)
		depth := int(p * speed * float64(h))
		if depth > h {
			depth = h
		}
		revealRect(out, dst, image.Rect(x, 0, x+1, depth))
	}
}

func sweep(out *image.RGBA, p float64, dst *image.RGBA, fromRight bool) {
	b := dst.Bounds()
	w := b.Dx()
	edge := int(p * float64(w))
	if fromRight {
		revealRect(out, dst, image.Rect(w-edge, 0, w, b.Dy()))
	} else {
		revealRect(out, dst, image.Rect(0, 0, edge, b.Dy()))
	}
}

func mosaic(out *image.RGBA, p float64, dst *image.RGBA) {
	const block = 16
	b := dst.Bounds()
	for y := 0; y < b.Dy(); y += block {
		for x := 0; x < b.Dx(); x += block {
			if p >= hash01(x/block, y/block) {
				revealRect(out, dst, image.Rect(x, y, x+block, y+block))
			}
		}
	}
}

func blobs(out *image.RGBA, p float64, dst *image.RGBA) {
	const count = 24
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	maxR := p * math.Hypot(float64(w), float64(h)) / 4
	for i := 0; i < count; i++ {
		cx := int(hash01(i, 1) * float64(w))
		cy := int(hash01(i, 2) * float64(h))
		r := int(maxR * (0.5 + hash01(i, 3)))
		fillCircle(out, dst, cx, cy, r)
	}
}

func fillCircle(out *image.RGBA, dst *image.RGBA, cx, cy, r int) {
	b := dst.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		dy := y - cy
		half := int(math.Sqrt(float64(r*r - dy*dy)))
		revealRect(out, dst, image.Rect(cx-half, y, cx+half+1, y+1))
	}
}

func lines(out *image.RGBA, p float64, dst *image.RGBA, horizontal bool) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if horizontal {
		edge := int(p * float64(w))
		for y := 0; y < h; y++ {
			if y%2 == 0 {
				revealRect(out, dst, image.Rect(0, y, edge, y+1))
			} else {
				revealRect(out, dst, image.Rect(w-edge, y, w, y+1))
			}
		}
		return
	}
	edge := int(p * float64(h))
	for x := 0; x < w; x++ {
		if x%2 == 0 {
			revealRect(out, dst, image.Rect(x, 0, x+1, edge))
		} else {
			revealRect(out, dst, image.Rect(x, h-edge, x+1, h))
		}
	}
}

func circleOut(out *image.RGBA, p float64, dst *image.RGBA, multi bool) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			dist := math.Hypot(dx, dy)
			limit := p * maxDist
			if multi {
				// the sine lobes dip to 0.75x, dividing back out keeps
				// the slowest angle at maxDist when p reaches 1
				limit *= (1 + 0.25*math.Sin(8*math.Atan2(dy, dx))) / 0.75
			}
			if dist <= limit {
				i := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
				copy(dst.Pix[i:i+4], out.Pix[i:i+4])
			}
		}
	}
}

func spiralIn(out *image.RGBA, p float64, dst *image.RGBA) {
	const block = 32
	b := dst.Bounds()
	cols := (b.Dx() + block - 1) / block
	rows := (b.Dy() + block - 1) / block
	order := spiralOrder(cols, rows)
	reveal := int(p * float64(len(order)))
	for i := 0; i < reveal && i < len(order); i++ {
		c := order[i]
		revealRect(out, dst, image.Rect(c.X*block, c.Y*block, (c.X+1)*block, (c.Y+1)*block))
	}
}

// spiralOrder walks the cols x rows grid clockwise from the outer edge
// toward the center.
func spiralOrder(cols, rows int) []image.Point {
	order := make([]image.Point, 0, cols*rows)
	left, right, top, bottom := 0, cols-1, 0, rows-1
	for left <= right && top <= bottom {
		for x := left; x <= right; x++ {
			order = append(order, image.Point{X: x, Y: top})
		}
		for y := top + 1; y <= bottom; y++ {
			order = append(order, image.Point{X: right, Y: y})
		}
		if top < bottom {
			for x := right - 1; x >= left; x-- {
				order = append(order, image.Point{X: x, Y: bottom})
			}
		}
		if left < right {
			for y := bottom - 1; y > top; y-- {
				order = append(order, image.Point{X: left, Y: y})
			}
		}
		left++
		right--
		top++
		bottom--
	}
	return order
}

func growing(out *image.RGBA, p float64, dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	// inset from the edges so odd sizes still reach the full frame
	ix := int((1 - p) * float64(w) / 2)
	iy := int((1 - p) * float64(h) / 2)
	revealRect(out, dst, image.Rect(ix, iy, w-ix, h-iy))
}

// slide draws out entering over a static in along the given axis direction.
func slide(out *image.RGBA, p float64, dst *image.RGBA, dx, dy int) {
	b := dst.Bounds()
	offX := int((p - 1) * float64(b.Dx()) * float64(dx))
	offY := int((p - 1) * float64(b.Dy()) * float64(dy))
	draw.Draw(dst, b, out, image.Point{X: b.Min.X - offX, Y: b.Min.Y - offY}, draw.Src)
}

// push moves in off-screen while out enters from the opposite edge.
func push(in, out *image.RGBA, p float64, dst *image.RGBA, dx, dy int) {
	b := dst.Bounds()
	inOffX := int(p * float64(b.Dx()) * float64(dx))
	inOffY := int(p * float64(b.Dy()) * float64(dy))
	draw.Draw(dst, b, image.NewUniform(blackColor), image.Point{}, draw.Src)
	draw.Draw(dst, b, in, image.Point{X: b.Min.X - inOffX, Y: b.Min.Y - inOffY}, draw.Src)
	outOffX := inOffX - dx*b.Dx()
	outOffY := inOffY - dy*b.Dy()
	draw.Draw(dst, b, out, image.Point{X: b.Min.X - outOffX, Y: b.Min.Y - outOffY}, draw.Over)
}

// swap recedes in at half speed while out overlaps it from the leading edge.
func swap(in, out *image.RGBA, p float64, dst *image.RGBA, dir int) {
	b := dst.Bounds()
	inOff := int(p * float64(b.Dx()) / 2 * float64(dir))
	draw.Draw(dst, b, image.NewUniform(blackColor), image.Point{}, draw.Src)
	draw.Draw(dst, b, in, image.Point{X: b.Min.X - inOff, Y: b.Min.Y}, draw.Src)
	outOff := int((p - 1) * float64(b.Dx()) * float64(dir))
	draw.Draw(dst, b, out, image.Point{X: b.Min.X - outOff, Y: b.Min.Y}, draw.Over)
}
