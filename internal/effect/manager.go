package effect

import (
	"image"
	"math/rand"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/slidestream/slidestream/internal/frame"
)

// view is a camera window in normalized source coordinates: x,y is the
// window center, scale the window size relative to the full image.
type view struct {
	x, y, scale float64
}

// Manager produces the frame sequence for one Ken Burns effect at a time.
// Not safe for concurrent use.
//
// Usage: SetOutputSize, SetImage, SetEffect, SetFrames(N), then call
// CurrentFrame exactly N times; the timeout out-parameter is set to -1 on
// the N-th call, after which the manager rewinds.
type Manager struct {
	source   image.Image
	base     *image.RGBA // letterboxed source at working resolution
	width    int
	height   int
	kind     Kind
	resolved Kind
	frames   int
	step     int
	prepared bool
	rng      *rand.Rand
}

// NewManager returns a Manager with a time-seeded random source for Random
// kind resolution.
func NewManager() *Manager {
	return &Manager{
		frames: 1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed replaces the random source used to resolve the Random kind.
func (m *Manager) SetSeed(seed int64) {
	m.rng = rand.New(rand.NewSource(seed))
}

// SetOutputSize fixes the rendered frame size.
func (m *Manager) SetOutputSize(width, height int) {
	m.width = width
	m.height = height
	m.prepared = false
}

// SetImage sets the still image the camera moves over.
func (m *Manager) SetImage(img image.Image) {
	m.source = img
	m.prepared = false
}

// SetEffect selects the effect kind and restarts the sequence. Random
// resolves to one concrete kind here, once per sequence.
func (m *Manager) SetEffect(kind Kind) {
	m.kind = kind
	m.restart()
}

// SetFrames sets the sequence length N. Values below 1 are treated as 1.
func (m *Manager) SetFrames(n int) {
	if n < 1 {
		n = 1
	}
	m.frames = n
}

func (m *Manager) restart() {
	m.step = 0
	m.resolved = m.kind
	if m.kind == Random {
		m.resolved = KenBurnsZoomIn + Kind(m.rng.Intn(int(KenBurnsPanBT-KenBurnsZoomIn)+1))
	}
}

// path returns the start and end camera windows for the resolved kind.
func (m *Manager) path() (view, view) {
	const zoomed = 0.8 // window size while panning or at the tight zoom end
	center := view{x: 0.5, y: 0.5, scale: 1}
	switch m.resolved {
	case KenBurnsZoomIn:
		return center, view{x: 0.5, y: 0.5, scale: zoomed}
	case KenBurnsZoomOut:
		return view{x: 0.5, y: 0.5, scale: zoomed}, center
	case KenBurnsPanLR:
		return view{x: zoomed / 2, y: 0.5, scale: zoomed}, view{x: 1 - zoomed/2, y: 0.5, scale: zoomed}
	case KenBurnsPanRL:
		return view{x: 1 - zoomed/2, y: 0.5, scale: zoomed}, view{x: zoomed / 2, y: 0.5, scale: zoomed}
	case KenBurnsPanTB:
		return view{x: 0.5, y: zoomed / 2, scale: zoomed}, view{x: 0.5, y: 1 - zoomed/2, scale: zoomed}
	case KenBurnsPanBT:
		return view{x: 0.5, y: 1 - zoomed/2, scale: zoomed}, view{x: 0.5, y: zoomed / 2, scale: zoomed}
	default:
		return center, center
	}
}

func (m *Manager) prepare() {
	w, h := m.width, m.height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
		m.width, m.height = w, h
	}
	// Render the base at double resolution so zoomed-in crops keep detail.
	if m.source != nil {
		m.base = frame.ScaleAndLetterbox(m.source, w*2, h*2)
	} else {
		m.base = frame.Blank(w*2, h*2)
	}
	m.prepared = true
}

// CurrentFrame returns the next frame of the sequence. timeout is set to -1
// on the final frame. For N=1 the single frame is the start state.
func (m *Manager) CurrentFrame(timeout *int) *image.RGBA {
	if !m.prepared {
		m.prepare()
	}

	var t float64
	if m.frames > 1 {
		t = float64(m.step) / float64(m.frames-1)
	}

	start, end := m.path()
	cur := view{
		x:     start.x + (end.x-start.x)*t,
		y:     start.y + (end.y-start.y)*t,
		scale: start.scale + (end.scale-start.scale)*t,
	}

	out := m.render(cur)

	m.step++
	if m.step >= m.frames {
		*timeout = -1
		m.restart()
	}
	return out
}

func (m *Manager) render(v view) *image.RGBA {
	bw := float64(m.base.Bounds().Dx())
	bh := float64(m.base.Bounds().Dy())
	cw := v.scale * bw
	ch := v.scale * bh

	x0 := v.x*bw - cw/2
	y0 := v.y*bh - ch/2
	crop := image.Rect(int(x0), int(y0), int(x0+cw), int(y0+ch)).
		Intersect(m.base.Bounds())

	dst := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), m.base, crop, xdraw.Src, nil)
	return dst
}
