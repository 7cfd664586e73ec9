package output

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidestream/slidestream/internal/frame"
)

// recordSink captures every frame it receives, with a configurable
// preferred pixel format.
type recordSink struct {
	BaseSink
	format frame.PixelFormat

	mu       sync.Mutex
	received []*frame.Frame
}

func newRecordSink(name string, format frame.PixelFormat) *recordSink {
	s := &recordSink{BaseSink: NewBaseSink(name), format: format}
	s.bindSelf(s)
	return s
}

func (s *recordSink) PreferredFormat() frame.PixelFormat { return s.format }

func (s *recordSink) Receive(f *frame.Frame) error {
	if s.IsPaused() {
		return nil
	}
	s.mu.Lock()
	s.received = append(s.received, f)
	s.mu.Unlock()
	return nil
}

func (s *recordSink) frames() []*frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*frame.Frame, len(s.received))
	copy(out, s.received)
	return out
}

func videoFrame(w, h int) *frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 9, A: 255})
		}
	}
	return frame.NewVideoFrame(img, 0.5)
}

func TestSendVideoFrameFansOut(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	b := newRecordSink("b", frame.FormatRGBA)
	set.AddOutput(a)
	set.AddOutput(b)

	require.NoError(t, set.SendVideoFrame(videoFrame(8, 8)))
	assert.Len(t, a.frames(), 1)
	assert.Len(t, b.frames(), 1)
}

func TestSendVideoFrameConvertsPerSink(t *testing.T) {
	set := NewOutputSet()
	rgba := newRecordSink("rgba", frame.FormatRGBA)
	gray := newRecordSink("gray", frame.FormatGray)
	bgra := newRecordSink("bgra", frame.FormatBGRA)
	set.AddOutput(rgba)
	set.AddOutput(gray)
	set.AddOutput(bgra)

	src := videoFrame(8, 8)
	original := make([]byte, len(src.Image().Pix))
	copy(original, src.Image().Pix)

	require.NoError(t, set.SendVideoFrame(src))

	// The matching sink gets the original object, the others get
	// converted copies.
	assert.Same(t, src, rgba.frames()[0])
	assert.Equal(t, frame.FormatGray, gray.frames()[0].Format())
	assert.Equal(t, frame.FormatBGRA, bgra.frames()[0].Format())

	// The source frame is never mutated by conversions.
	assert.Equal(t, original, src.Image().Pix)
}

func TestSendVideoFrameSkipsUnavailable(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	b := newRecordSink("b", frame.FormatRGBA)
	set.AddOutput(a)
	set.AddOutput(b)
	b.SetAvailable(false)

	require.NoError(t, set.SendVideoFrame(videoFrame(4, 4)))
	assert.Len(t, a.frames(), 1)
	assert.Empty(t, b.frames())
}

func TestPausedSinkRefusesFrames(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	set.AddOutput(a)

	a.Pause(true)
	require.NoError(t, set.SendVideoFrame(videoFrame(4, 4)))
	assert.Empty(t, a.frames(), "paused sink must refuse frames")

	a.Pause(false)
	require.NoError(t, set.SendVideoFrame(videoFrame(4, 4)))
	assert.Len(t, a.frames(), 1)
}

func TestPauseBarrierRequiresAllSinks(t *testing.T) {
	set := NewOutputSet()
	sinks := []*recordSink{
		newRecordSink("a", frame.FormatRGBA),
		newRecordSink("b", frame.FormatRGBA),
		newRecordSink("c", frame.FormatRGBA),
	}
	for _, s := range sinks {
		set.AddOutput(s)
	}

	assert.False(t, set.CanPauseThread())

	sinks[0].Pause(true)
	sinks[1].Pause(true)
	assert.False(t, set.CanPauseThread(), "one sink still running")

	sinks[2].Pause(true)
	assert.True(t, set.CanPauseThread(), "all sinks paused")

	sinks[1].Pause(false)
	assert.False(t, set.CanPauseThread(), "any unpause closes the barrier")
}

func TestPauseBarrierEmptySet(t *testing.T) {
	set := NewOutputSet()
	assert.False(t, set.CanPauseThread(), "empty set never opens the barrier")
}

func TestPauseThreadTimesOut(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	set.AddOutput(a)
	a.Pause(true)
	require.True(t, set.CanPauseThread())

	start := time.Now()
	woke := set.PauseThread(30 * time.Millisecond)
	assert.False(t, woke, "nothing resumed, must time out")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPauseThreadWokenByResume(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	set.AddOutput(a)
	a.Pause(true)

	done := make(chan bool, 1)
	go func() {
		done <- set.PauseThread(WaitForever)
	}()

	time.Sleep(20 * time.Millisecond)
	a.Pause(false)

	select {
	case woke := <-done:
		assert.True(t, woke)
	case <-time.After(time.Second):
		t.Fatal("PauseThread not woken by resume")
	}
}

func TestPauseThreadNoBarrierReturnsImmediately(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	set.AddOutput(a)

	assert.True(t, set.PauseThread(WaitForever), "open barrier must not block")
}

func TestResumeThreadUnpausesAll(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	b := newRecordSink("b", frame.FormatRGBA)
	set.AddOutput(a)
	set.AddOutput(b)
	a.Pause(true)
	b.Pause(true)
	require.True(t, set.CanPauseThread())

	set.ResumeThread()
	assert.False(t, a.IsPaused())
	assert.False(t, b.IsPaused())
	assert.False(t, set.CanPauseThread())
}

func TestAddOutputCountsAlreadyPaused(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	a.Pause(true)
	set.AddOutput(a)

	assert.True(t, set.CanPauseThread(), "pre-paused sink must count")
}

func TestRemoveOutputRecomputesBarrier(t *testing.T) {
	set := NewOutputSet()
	a := newRecordSink("a", frame.FormatRGBA)
	b := newRecordSink("b", frame.FormatRGBA)
	set.AddOutput(a)
	set.AddOutput(b)
	a.Pause(true)

	require.False(t, set.CanPauseThread())
	set.RemoveOutput(b)
	assert.True(t, set.CanPauseThread(), "only a paused sink remains")
}

func TestScreenSinkKeepsLatest(t *testing.T) {
	s := NewScreenSink("screen")
	set := NewOutputSet()
	set.AddOutput(s)

	first := videoFrame(4, 4)
	second := videoFrame(4, 4)
	require.NoError(t, set.SendVideoFrame(first))
	require.NoError(t, set.SendVideoFrame(second))

	assert.Same(t, second, s.CurrentFrame())
	assert.Equal(t, uint64(2), s.FrameCount())
}
