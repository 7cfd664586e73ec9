package transition

import (
	"image"
	"math/rand"
	"time"

	"github.com/slidestream/slidestream/internal/frame"
)

// DefaultFrames is the step budget used when the caller does not set one.
const DefaultFrames = 20

// Manager produces the frame sequence for one transition at a time. It is
// not safe for concurrent use; each compositing loop owns its own Manager.
//
// Usage: SetOutputSize, SetInImage, SetOutImage, SetTransition, then call
// CurrentFrame repeatedly. The timeout out-parameter is set to -1 exactly
// once, on the call that returns the final frame; after that the manager is
// reset and ready for the next call sequence.
type Manager struct {
	inImage  image.Image
	outImage image.Image
	in       *image.RGBA // letterboxed to output size
	out      *image.RGBA
	width    int
	height   int

	kind     Kind
	resolved Kind // concrete kind after Random resolution
	frames   int
	step     int
	prepared bool

	rng *rand.Rand
}

// NewManager returns a Manager with the default step budget and a
// time-seeded random source for Random kind resolution.
func NewManager() *Manager {
	return &Manager{
		frames: DefaultFrames,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed replaces the random source used to resolve the Random kind.
// Tests use this to make Random sequences reproducible.
func (m *Manager) SetSeed(seed int64) {
	m.rng = rand.New(rand.NewSource(seed))
}

// SetOutputSize fixes the composited frame size. Must be set before images.
func (m *Manager) SetOutputSize(width, height int) {
	m.width = width
	m.height = height
	m.prepared = false
}

// SetInImage sets the image the transition starts from.
func (m *Manager) SetInImage(img image.Image) {
	m.inImage = img
	m.prepared = false
}

// SetOutImage sets the image the transition ends on.
func (m *Manager) SetOutImage(img image.Image) {
	m.outImage = img
	m.prepared = false
}

// SetTransition selects the transition kind and restarts the sequence.
// Random resolves to one concrete kind here, not per frame.
func (m *Manager) SetTransition(kind Kind) {
	m.kind = kind
	m.restart()
}

// SetFrames sets the number of steps the transition is spread over.
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
		// Concrete kinds span Fade..SwapR2L; None and Random excluded.
		m.resolved = Fade + Kind(m.rng.Intn(int(SwapR2L-Fade)+1))
	}
}

func (m *Manager) prepare() {
	w, h := m.width, m.height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
		m.width, m.height = w, h
	}
	if m.inImage != nil {
		m.in = frame.ScaleAndLetterbox(m.inImage, w, h)
	} else {
		m.in = frame.Blank(w, h)
	}
	if m.outImage != nil {
		m.out = frame.ScaleAndLetterbox(m.outImage, w, h)
	} else {
		m.out = frame.Blank(w, h)
	}
	m.prepared = true
}

// CurrentFrame returns the next composited frame. timeout is set to -1 on
// the call producing the final frame of the transition and left untouched
// otherwise. After the final frame the manager rewinds so the same
// configuration can be replayed.
func (m *Manager) CurrentFrame(timeout *int) *image.RGBA {
	if !m.prepared {
		m.prepare()
	}

	if m.resolved == None {
		// A disabled transition contributes a single frame: the target image.
		*timeout = -1
		m.restart()
		return frame.CloneRGBA(m.out)
	}

	m.step++
	progress := float64(m.step) / float64(m.frames)
	if progress >= 1 {
		progress = 1
	}

	dst := frame.CloneRGBA(m.in)
	compose(m.resolved, m.in, m.out, progress, dst)

	if m.step >= m.frames {
		*timeout = -1
		m.restart()
	}
	return dst
}
