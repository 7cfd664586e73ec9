package output

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/osd"
)

// Filter transforms frames in a sink's chain. Apply returns a new frame and
// must leave its input untouched.
type Filter interface {
	Name() string
	Apply(f *frame.Frame) (*frame.Frame, error)
}

// OSDFilter overlays item metadata onto frames via the OSD compositor. The
// current item path follows the compositing loop via SetItem.
type OSDFilter struct {
	comp *osd.Compositor

	mu   sync.RWMutex
	item string
}

// NewOSDFilter wraps a compositor.
func NewOSDFilter(comp *osd.Compositor) *OSDFilter {
	return &OSDFilter{comp: comp}
}

// Name identifies the filter in logs.
func (f *OSDFilter) Name() string { return "osd" }

// SetItem points the overlay at the item currently on screen.
func (f *OSDFilter) SetItem(path string) {
	f.mu.Lock()
	f.item = path
	f.mu.Unlock()
}

// Apply draws the overlay onto a copy of the frame.
func (f *OSDFilter) Apply(in *frame.Frame) (*frame.Frame, error) {
	f.mu.RLock()
	item := f.item
	f.mu.RUnlock()

	if item == "" || in.Image() == nil {
		return in, nil
	}
	img := frame.CloneRGBA(in.Image())
	if err := f.comp.Apply(img, item); err != nil {
		return nil, fmt.Errorf("osd filter: %w", err)
	}
	return frame.NewVideoFrame(img, in.PTS()), nil
}

// TimestampFilter stamps the frame's presentation time into the corner,
// rendered with the same bitmap face the OSD uses.
type TimestampFilter struct{}

// Name identifies the filter in logs.
func (TimestampFilter) Name() string { return "timestamp" }

// Apply draws the timestamp onto a copy of the frame.
func (TimestampFilter) Apply(in *frame.Frame) (*frame.Frame, error) {
	src := in.Image()
	if src == nil {
		return in, nil
	}
	pts := in.PTS()
	text := fmt.Sprintf("%02d:%02d:%05.2f",
		int(pts)/3600, (int(pts)%3600)/60, pts-float64(int(pts)/60*60))

	img := frame.CloneRGBA(src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(img.Bounds().Min.X+8, img.Bounds().Max.Y-8),
	}
	d.DrawString(text)
	return frame.NewVideoFrame(img, pts), nil
}

// GrayscaleFilter desaturates frames.
type GrayscaleFilter struct{}

// Name identifies the filter in logs.
func (GrayscaleFilter) Name() string { return "grayscale" }

// Apply returns a desaturated copy of the frame.
func (GrayscaleFilter) Apply(in *frame.Frame) (*frame.Frame, error) {
	src := in.Image()
	if src == nil {
		return in, nil
	}
	dst := image.NewRGBA(src.Bounds())
	for i := 0; i+3 < len(src.Pix); i += 4 {
		y := uint8((299*int(src.Pix[i]) + 587*int(src.Pix[i+1]) + 114*int(src.Pix[i+2])) / 1000)
		dst.Pix[i] = y
		dst.Pix[i+1] = y
		dst.Pix[i+2] = y
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return frame.NewVideoFrame(dst, in.PTS()), nil
}
