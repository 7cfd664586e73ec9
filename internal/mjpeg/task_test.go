package mjpeg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/osd"
	"github.com/slidestream/slidestream/internal/transition"
)

// collectSink counts broadcast frames and can cancel the task after a
// fixed number of them.
type collectSink struct {
	mu          sync.Mutex
	frames      [][]byte
	cancelAfter int
	task        *FrameTask
}

func (s *collectSink) Broadcast(jpegData []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(jpegData))
	copy(buf, jpegData)
	s.frames = append(s.frames, buf)
	if s.cancelAfter > 0 && len(s.frames) == s.cancelAfter && s.task != nil {
		s.task.Cancel()
	}
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func writeJPEG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 255
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 85}))
}

func streamImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	colors := []color.RGBA{{R: 200}, {G: 200}, {B: 200}}
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		paths[i] = filepath.Join(dir, "img"+string(rune('a'+i))+".jpg")
		writeJPEG(t, paths[i], colors[i%len(colors)])
	}
	return paths
}

func streamSettings(images []string) StreamSettings {
	s := DefaultStreamSettings()
	s.Images = images
	s.Type = export.QVGA
	s.Delay = 1
	s.Rate = 5
	s.Loop = false
	return s
}

func TestFrameTaskSinglePass(t *testing.T) {
	// With the None transition each image costs one transition frame plus
	// delay*rate effect frames. Two images, 1s at 5fps: 2*(1+5) frames.
	images := streamImages(t, 2)
	sink := &collectSink{}
	notifier := export.NewNotifier(len(images))

	task, err := NewFrameTask(streamSettings(images), codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()

	assert.Equal(t, 12, sink.count())

	d := <-notifier.Done()
	assert.True(t, d.Success)
}

func TestFrameTaskFramesAreJPEG(t *testing.T) {
	images := streamImages(t, 1)
	sink := &collectSink{}
	notifier := export.NewNotifier(1)

	task, err := NewFrameTask(streamSettings(images), codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()

	require.NotEmpty(t, sink.frames)
	for _, data := range sink.frames {
		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 320, img.Bounds().Dx())
		assert.Equal(t, 180, img.Bounds().Dy())
	}
}

func TestFrameTaskLoopCanceled(t *testing.T) {
	images := streamImages(t, 2)
	settings := streamSettings(images)
	settings.Loop = true

	sink := &collectSink{cancelAfter: 30}
	notifier := export.NewNotifier(len(images))

	task, err := NewFrameTask(settings, codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	sink.task = task
	task.noPacing = true
	task.Run()

	// One pass is 12 frames; 30 proves the loop wrapped around before
	// cancellation stopped it.
	assert.GreaterOrEqual(t, sink.count(), 30)

	d := <-notifier.Done()
	assert.False(t, d.Success)
	assert.Equal(t, "canceled", d.Message)
}

func TestFrameTaskInvalidSettings(t *testing.T) {
	sink := &collectSink{}
	notifier := export.NewNotifier(1)

	settings := DefaultStreamSettings() // no images
	task, err := NewFrameTask(settings, codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()

	d := <-notifier.Done()
	assert.False(t, d.Success)
	assert.Zero(t, sink.count())
}

func TestFrameTaskMissingImageFails(t *testing.T) {
	settings := streamSettings([]string{filepath.Join(t.TempDir(), "gone.jpg")})
	sink := &collectSink{}
	notifier := export.NewNotifier(1)

	task, err := NewFrameTask(settings, codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()

	d := <-notifier.Done()
	assert.False(t, d.Success)
	assert.NotEqual(t, "canceled", d.Message)
}

func TestFrameTaskOSDOverlay(t *testing.T) {
	images := streamImages(t, 1)
	settings := streamSettings(images)
	settings.Transition = transition.None
	settings.OSDEnabled = true

	plain := &collectSink{}
	notifier := export.NewNotifier(1)
	task, err := NewFrameTask(settings, codec.NewRegistry(), plain, nil, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()
	<-notifier.Done()

	overlaid := &collectSink{}
	notifier = export.NewNotifier(1)
	task, err = NewFrameTask(settings, codec.NewRegistry(), overlaid, osd.FileInfoProvider{}, notifier)
	require.NoError(t, err)
	task.noPacing = true
	task.Run()
	<-notifier.Done()

	require.Equal(t, plain.count(), overlaid.count())
	assert.NotEqual(t, plain.frames[0], overlaid.frames[0], "overlay must change the encoded frame")
}

func TestStreamSettingsValidate(t *testing.T) {
	s := DefaultStreamSettings()
	assert.Error(t, s.Validate(), "no images")

	s.Images = []string{"a.jpg"}
	assert.NoError(t, s.Validate())

	s.Quality = 0
	assert.Error(t, s.Validate())
	s.Quality = 75

	s.Rate = 31
	assert.Error(t, s.Validate())
	s.Rate = 10

	s.MaxClients = 0
	assert.Error(t, s.Validate())
}

func TestStreamSettingsFramesPerImage(t *testing.T) {
	s := DefaultStreamSettings()
	s.Delay = 2
	s.Rate = 10
	assert.Equal(t, 20, s.FramesPerImage())

	s.Delay = 0
	assert.Equal(t, 1, s.FramesPerImage(), "floor of one frame")
}

func TestFrameTaskPipelineCounters(t *testing.T) {
	images := streamImages(t, 2)
	sink := &collectSink{}
	notifier := export.NewNotifier(len(images))

	task, err := NewFrameTask(streamSettings(images), codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	m := metrics.New()
	task.SetMetrics(m)
	task.noPacing = true
	task.Run()

	assert.Equal(t, uint64(12), m.FramesComposited.Load())
	assert.Zero(t, m.DecodeErrors.Load())
	assert.Zero(t, m.EncodeErrors.Load())
	assert.Zero(t, m.OverlayErrors.Load())
}

func TestFrameTaskCountsDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not a jpeg"), 0644))

	sink := &collectSink{}
	notifier := export.NewNotifier(1)

	task, err := NewFrameTask(streamSettings([]string{bad}), codec.NewRegistry(), sink, nil, notifier)
	require.NoError(t, err)
	m := metrics.New()
	task.SetMetrics(m)
	task.noPacing = true
	task.Run()

	assert.Equal(t, uint64(1), m.DecodeErrors.Load())
	d := <-notifier.Done()
	assert.False(t, d.Success)
}
