package player

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/output"
)

func jpegDir(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 32, 24))
		c := color.RGBA{R: uint8(40 * (i + 1)), G: 30, B: 30, A: 255}
		for p := 0; p+3 < len(img.Pix); p += 4 {
			img.Pix[p] = c.R
			img.Pix[p+1] = c.G
			img.Pix[p+2] = c.B
			img.Pix[p+3] = c.A
		}
		f, err := os.Create(filepath.Join(dir, "frame"+string(rune('a'+i))+".jpg"))
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
		require.NoError(t, f.Close())
	}
	return dir
}

func newTestSession(t *testing.T, dir string) (*Session, *output.ScreenSink, *output.OutputSet, *output.FilterManager) {
	t.Helper()
	screen := output.NewScreenSink("screen")
	outputs := output.NewOutputSet()
	outputs.AddOutput(screen)
	filters := output.NewFilterManager()

	src := NewJPEGDirSource(dir, 25)
	sess, err := NewSession("test", "mjpeg", codec.NewRegistry(), src, outputs, filters)
	require.NoError(t, err)
	return sess, screen, outputs, filters
}

func TestSessionDeliversAllFrames(t *testing.T) {
	sess, screen, _, _ := newTestSession(t, jpegDir(t, 3))

	require.NoError(t, sess.Run())
	assert.Equal(t, uint64(3), screen.FrameCount())
	assert.Equal(t, uint64(3), sess.Stats().Snapshot().Frames)

	last := screen.CurrentFrame()
	require.NotNil(t, last)
	assert.Equal(t, 32, last.Image().Bounds().Dx())
}

func TestSessionVideoFilterApplied(t *testing.T) {
	sess, screen, _, filters := newTestSession(t, jpegDir(t, 1))
	require.True(t, filters.RegisterVideoFilter(output.GrayscaleFilter{}, sess, 0))

	require.NoError(t, sess.Run())
	require.Equal(t, uint64(1), screen.FrameCount())

	pix := screen.CurrentFrame().Image().Pix
	assert.Equal(t, pix[0], pix[1], "session chain desaturates before fan-out")
	assert.Equal(t, pix[1], pix[2])
}

func TestSessionChainsDetachedAfterRun(t *testing.T) {
	sess, _, _, filters := newTestSession(t, jpegDir(t, 1))
	f := output.GrayscaleFilter{}
	require.True(t, filters.RegisterVideoFilter(f, sess, 0))

	require.NoError(t, sess.Run())
	assert.False(t, filters.IsAttached(f), "owner chains released with the session")
}

func TestSessionCancelStopsEarly(t *testing.T) {
	sess, screen, _, _ := newTestSession(t, jpegDir(t, 3))
	sess.Cancel()

	require.NoError(t, sess.Run())
	assert.Zero(t, screen.FrameCount())
}

func TestSessionBlocksWhileAllSinksPaused(t *testing.T) {
	sess, screen, outputs, _ := newTestSession(t, jpegDir(t, 2))
	screen.Pause(true)

	done := make(chan error, 1)
	go func() { done <- sess.Run() }()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, screen.FrameCount(), "no frames while the barrier is open")

	outputs.ResumeThread()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not resume")
	}
	assert.Equal(t, uint64(2), screen.FrameCount())
}

func TestSessionMissingSourceFails(t *testing.T) {
	src := NewJPEGDirSource(filepath.Join(t.TempDir(), "nope"), 25)
	sess, err := NewSession("test", "mjpeg", codec.NewRegistry(), src, output.NewOutputSet(), output.NewFilterManager())
	require.NoError(t, err)
	assert.Error(t, sess.Run())
}

func TestSessionUnknownCodecFails(t *testing.T) {
	_, err := NewSession("test", "h264", codec.NewRegistry(), nil, output.NewOutputSet(), output.NewFilterManager())
	assert.Error(t, err)
}
