package export

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/transition"
)

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

func testImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	colors := []color.RGBA{
		{R: 220, G: 40, B: 40}, {R: 40, G: 220, B: 40}, {R: 40, G: 40, B: 220},
		{R: 220, G: 220, B: 40}, {R: 220, G: 40, B: 220},
	}
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		paths[i] = filepath.Join(dir, "img"+string(rune('a'+i))+".jpg")
		writeJPEG(t, paths[i], colors[i%len(colors)])
	}
	return paths
}

func composeSettings(images []string) Settings {
	s := DefaultSettings()
	s.Images = images
	s.Type = QVGA
	s.Delay = 1
	return s
}

func TestComposeFrameCount(t *testing.T) {
	// None transition emits one frame per pass, None effect holds each
	// image for delay*rate frames. Three images at 1s PAL delay: one
	// leading blank pass plus three image passes of 1+25 frames.
	images := testImages(t, 3)
	task := NewTask(composeSettings(images), NewNotifier(len(images)))

	emitted, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3*25+4, emitted)
}

func TestComposeLeadingBlankThenImages(t *testing.T) {
	images := testImages(t, 2)
	task := NewTask(composeSettings(images), NewNotifier(len(images)))

	var indices []int
	_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		indices = append(indices, imageIndex)
		return nil
	})
	require.NoError(t, err)

	require.NotEmpty(t, indices)
	assert.Equal(t, -1, indices[0], "first pass interpolates between blanks")
	assert.Equal(t, 1, indices[len(indices)-1], "last frames belong to the final image")

	// Indices are non-decreasing: the loop never revisits an image.
	for i := 1; i < len(indices); i++ {
		assert.GreaterOrEqual(t, indices[i], indices[i-1])
	}
}

func TestComposeFramesHaveOutputSize(t *testing.T) {
	images := testImages(t, 1)
	settings := composeSettings(images)
	task := NewTask(settings, NewNotifier(1))

	w, h := settings.Type.Size()
	_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		assert.Equal(t, w, img.Bounds().Dx())
		assert.Equal(t, h, img.Bounds().Dy())
		return nil
	})
	require.NoError(t, err)
}

func TestComposeWithTransitionAndEffect(t *testing.T) {
	images := testImages(t, 2)
	settings := composeSettings(images)
	settings.Transition = transition.Fade
	settings.TransitionFrames = 5
	settings.Effect = effect.KenBurnsZoomIn

	task := NewTask(settings, NewNotifier(2))
	emitted, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return nil
	})
	require.NoError(t, err)
	// Three transition passes of 5 frames plus two effect holds of 25.
	assert.Equal(t, 3*5+2*25, emitted)
}

func TestComposeCancelStopsEarly(t *testing.T) {
	images := testImages(t, 3)
	task := NewTask(composeSettings(images), NewNotifier(3))

	count := 0
	emitted, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		count++
		if count == 10 {
			task.Cancel()
		}
		return nil
	})
	require.NoError(t, err, "cancellation is not an error")
	assert.Equal(t, 10, emitted)
	assert.True(t, task.IsCanceled())
}

func TestComposeEmitErrorPropagates(t *testing.T) {
	images := testImages(t, 1)
	task := NewTask(composeSettings(images), NewNotifier(1))

	boom := errors.New("disk full")
	emitted, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, emitted)
}

func TestComposeMissingImageFails(t *testing.T) {
	settings := composeSettings([]string{filepath.Join(t.TempDir(), "nope.jpg")})
	task := NewTask(settings, NewNotifier(1))

	_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return nil
	})
	assert.Error(t, err)
}

func TestComposeProgressPerImage(t *testing.T) {
	images := testImages(t, 2)
	notifier := NewNotifier(2)
	task := NewTask(composeSettings(images), notifier)

	_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return nil
	})
	require.NoError(t, err)

	var updates []Progress
	for {
		select {
		case p := <-notifier.Progress():
			updates = append(updates, p)
			continue
		default:
		}
		break
	}
	assert.Len(t, updates, 2, "one update per composited image")
	assert.Equal(t, 50, updates[0].Percent)
	assert.Equal(t, 100, updates[1].Percent, "final image must report completion")
}

func TestComposeSeedReproducible(t *testing.T) {
	images := testImages(t, 2)
	settings := composeSettings(images)
	settings.Transition = transition.Random
	settings.Effect = effect.Random
	settings.TransitionFrames = 4
	settings.Seed = 99

	run := func() []byte {
		task := NewTask(settings, NewNotifier(2))
		var all []byte
		_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
			all = append(all, img.Pix...)
			return nil
		})
		require.NoError(t, err)
		return all
	}

	assert.Equal(t, run(), run(), "same seed composes identical frames")
}

func TestNotifierDropsWhenFull(t *testing.T) {
	n := NewNotifier(1)
	n.SendProgress(Progress{Percent: 10})
	n.SendProgress(Progress{Percent: 20}) // buffer full, dropped

	got := <-n.Progress()
	assert.Equal(t, 10, got.Percent)
	select {
	case <-n.Progress():
		t.Fatal("second update should have been dropped")
	default:
	}
}

func TestNotifierDoneClosesChannels(t *testing.T) {
	n := NewNotifier(1)
	n.SendDone(Done{Success: true, Path: "/tmp/out.mp4"})

	d, ok := <-n.Done()
	assert.True(t, ok)
	assert.True(t, d.Success)

	_, ok = <-n.Done()
	assert.False(t, ok, "done channel closed after delivery")
	_, ok = <-n.Progress()
	assert.False(t, ok, "progress channel closed with done")
}

func TestNotifierFailure(t *testing.T) {
	n := NewNotifier(4)
	n.SendFailure("encoder exited")

	p := <-n.Progress()
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "encoder exited", p.Message)

	d := <-n.Done()
	assert.False(t, d.Success)
	assert.Equal(t, "encoder exited", d.Message)
}

func TestComposePipelineCounters(t *testing.T) {
	images := testImages(t, 2)
	task := NewTask(composeSettings(images), NewNotifier(len(images)))
	m := metrics.New()
	task.SetMetrics(m)

	sawActive := false
	emitted, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		if m.ExportActive.Load() == 1 {
			sawActive = true
		}
		return nil
	})
	require.NoError(t, err)

	assert.True(t, sawActive, "export marked active while the loop runs")
	assert.Zero(t, m.ExportActive.Load(), "export marked idle when the loop ends")
	assert.Equal(t, uint64(emitted), m.FramesExported.Load())
	assert.Zero(t, m.DecodeErrors.Load())
}

func TestComposeCountsDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not a jpeg"), 0644))

	task := NewTask(composeSettings([]string{bad}), NewNotifier(1))
	m := metrics.New()
	task.SetMetrics(m)

	_, err := task.compose(func(img *image.RGBA, imageIndex int) error {
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, uint64(1), m.DecodeErrors.Load())
}
