package transition

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func runSequence(t *testing.T, m *Manager) int {
	t.Helper()
	frames := 0
	for {
		timeout := 0
		f := m.CurrentFrame(&timeout)
		require.NotNil(t, f)
		frames++
		if timeout == -1 {
			return frames
		}
		require.Less(t, frames, 10000, "sequence never terminated")
	}
}

func TestCurrentFrameFinalTimeout(t *testing.T) {
	m := NewManager()
	m.SetOutputSize(64, 48)
	m.SetInImage(solidImage(64, 48, color.RGBA{R: 255, A: 255}))
	m.SetOutImage(solidImage(64, 48, color.RGBA{B: 255, A: 255}))
	m.SetFrames(12)
	m.SetTransition(Fade)

	// timeout must stay untouched on every call but the last.
	for i := 0; i < 11; i++ {
		timeout := 0
		m.CurrentFrame(&timeout)
		assert.Equal(t, 0, timeout, "timeout touched on frame %d", i)
	}
	timeout := 0
	m.CurrentFrame(&timeout)
	assert.Equal(t, -1, timeout, "final frame must signal -1")
}

func TestNoneEmitsSingleFrame(t *testing.T) {
	m := NewManager()
	m.SetOutputSize(32, 32)
	out := solidImage(32, 32, color.RGBA{G: 200, A: 255})
	m.SetInImage(solidImage(32, 32, color.RGBA{R: 200, A: 255}))
	m.SetOutImage(out)
	m.SetTransition(None)

	timeout := 0
	f := m.CurrentFrame(&timeout)
	assert.Equal(t, -1, timeout)
	// The single frame is the target image, not the source.
	assert.Equal(t, uint8(200), f.RGBAAt(16, 16).G)
	assert.Equal(t, uint8(0), f.RGBAAt(16, 16).R)
}

func TestFinalFrameIsTargetImage(t *testing.T) {
	target := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	for _, k := range Kinds() {
		if k == Random {
			continue
		}
		m := NewManager()
		m.SetOutputSize(40, 40)
		m.SetInImage(solidImage(40, 40, color.RGBA{R: 250, G: 250, B: 250, A: 255}))
		m.SetOutImage(solidImage(40, 40, target))
		m.SetFrames(8)
		m.SetTransition(k)

		var last *image.RGBA
		for {
			timeout := 0
			last = m.CurrentFrame(&timeout)
			if timeout == -1 {
				break
			}
		}
		// Every pixel, not just the center: a transition that leaves
		// residue of the previous image at full progress is broken.
		for y := 0; y < 40; y++ {
			for x := 0; x < 40; x++ {
				if !assert.Equal(t, target, last.RGBAAt(x, y), "kind %s final frame at (%d,%d)", k, x, y) {
					return
				}
			}
		}
	}
}

func TestSequenceLengthMatchesFrames(t *testing.T) {
	m := NewManager()
	m.SetOutputSize(32, 32)
	m.SetInImage(solidImage(32, 32, color.RGBA{A: 255}))
	m.SetOutImage(solidImage(32, 32, color.RGBA{R: 255, A: 255}))
	m.SetFrames(7)
	m.SetTransition(SlideL2R)

	assert.Equal(t, 7, runSequence(t, m))
	// Rewound after the final frame: the same configuration replays.
	assert.Equal(t, 7, runSequence(t, m))
}

func TestRandomResolvedOncePerSequence(t *testing.T) {
	m := NewManager()
	m.SetSeed(7)
	m.SetOutputSize(32, 32)
	m.SetInImage(solidImage(32, 32, color.RGBA{A: 255}))
	m.SetOutImage(solidImage(32, 32, color.RGBA{R: 255, A: 255}))
	m.SetFrames(5)
	m.SetTransition(Random)

	first := m.resolved
	require.NotEqual(t, Random, first)
	require.NotEqual(t, None, first)

	// The resolved kind must hold for the whole sequence.
	for i := 0; i < 4; i++ {
		timeout := 0
		m.CurrentFrame(&timeout)
		assert.Equal(t, first, m.resolved)
	}
	// The final call rewinds and re-resolves for the next sequence.
	timeout := 0
	m.CurrentFrame(&timeout)
	require.Equal(t, -1, timeout)
}

func TestRandomSeedReproducible(t *testing.T) {
	pick := func(seed int64) []Kind {
		m := NewManager()
		m.SetSeed(seed)
		var kinds []Kind
		for i := 0; i < 10; i++ {
			m.SetTransition(Random)
			kinds = append(kinds, m.resolved)
		}
		return kinds
	}

	assert.Equal(t, pick(42), pick(42))
	assert.NotEqual(t, pick(42), pick(43), "different seeds should diverge")
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("no-such-transition")
	assert.Error(t, err)
}
