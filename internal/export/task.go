package export

import (
	"fmt"
	"image"
	"os"
	"sync/atomic"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/transition"

	"github.com/slidestream/slidestream/internal/effect"
)

// Task is the compositing loop shared by both export realizations. It
// drives the transition and effect engines over the configured image list
// and emits every composited frame to a sink callback.
//
// The loop runs len(Images)+1 transition passes: the first interpolates
// from a blank frame to a blank frame (the leading blank), then each image
// is introduced by a transition from the previous composited frame and held
// for Delay seconds of effect frames.
type Task struct {
	settings Settings
	notifier *Notifier
	canceled atomic.Bool

	tmngr *transition.Manager
	emngr *effect.Manager

	metrics *metrics.Metrics
}

// NewTask prepares a compositing loop for the given settings.
func NewTask(settings Settings, notifier *Notifier) *Task {
	t := &Task{
		settings: settings,
		notifier: notifier,
		tmngr:    transition.NewManager(),
		emngr:    effect.NewManager(),
	}
	if settings.Seed != 0 {
		t.tmngr.SetSeed(settings.Seed)
		t.emngr.SetSeed(settings.Seed + 1)
	}
	return t
}

// SetMetrics attaches pipeline counters. Must be called before the loop
// starts.
func (t *Task) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// Cancel requests a cooperative stop. The loop polls the flag at every
// iteration boundary, including inside the transition and effect sub-loops,
// and exits at the earliest checkpoint; it never pre-empts mid-composite.
func (t *Task) Cancel() {
	t.canceled.Store(true)
}

// IsCanceled reports whether Cancel was called.
func (t *Task) IsCanceled() bool {
	return t.canceled.Load()
}

// loadImage reads and letterboxes one input image to the output size.
func (t *Task) loadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		if t.metrics != nil {
			t.metrics.DecodeErrors.Add(1)
		}
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	w, h := t.settings.Type.Size()
	return frame.ScaleAndLetterbox(img, w, h), nil
}

// compose runs the full driving loop, calling emit for every composited
// frame in order. emit receives the frame and the index of the input image
// it belongs to (-1 for the leading blank). Returns the number of frames
// emitted. A cancellation is not an error.
func (t *Task) compose(emit func(img *image.RGBA, imageIndex int) error) (int, error) {
	w, h := t.settings.Type.Size()
	t.tmngr.SetOutputSize(w, h)
	t.emngr.SetOutputSize(w, h)
	t.tmngr.SetFrames(t.settings.TransitionFrames)

	log := logger.WithComponent("export")
	images := t.settings.Images
	n := len(images)
	effectFrames := t.settings.FramesPerImage()
	emitted := 0

	if t.metrics != nil {
		t.metrics.ExportActive.Store(1)
		defer t.metrics.ExportActive.Store(0)
		inner := emit
		emit = func(img *image.RGBA, imageIndex int) error {
			if err := inner(img, imageIndex); err != nil {
				return err
			}
			t.metrics.FramesExported.Add(1)
			return nil
		}
	}

	prev := frame.Blank(w, h)

	for i := 0; i <= n; i++ {
		if t.IsCanceled() {
			return emitted, nil
		}

		var cur *image.RGBA
		idx := i - 1
		if i == 0 {
			cur = frame.Blank(w, h)
		} else {
			loaded, err := t.loadImage(images[idx])
			if err != nil {
				return emitted, err
			}
			cur = loaded
		}

		// Transition from the previous composited frame to the new source.
		t.tmngr.SetInImage(prev)
		t.tmngr.SetOutImage(cur)
		t.tmngr.SetTransition(t.settings.Transition)
		for {
			if t.IsCanceled() {
				return emitted, nil
			}
			timeout := 0
			f := t.tmngr.CurrentFrame(&timeout)
			if err := emit(f, idx); err != nil {
				return emitted, err
			}
			emitted++
			if timeout == -1 {
				break
			}
		}

		// Hold each real image with its effect frames.
		if i > 0 {
			t.emngr.SetImage(cur)
			t.emngr.SetEffect(t.settings.Effect)
			t.emngr.SetFrames(effectFrames)
			for {
				if t.IsCanceled() {
					return emitted, nil
				}
				timeout := 0
				f := t.emngr.CurrentFrame(&timeout)
				if err := emit(f, idx); err != nil {
					return emitted, err
				}
				emitted++
				if timeout == -1 {
					break
				}
			}
			prev = cur

			percent := (i * 100) / n
			t.notifier.SendProgress(Progress{
				Percent: percent,
				Message: fmt.Sprintf("Processed %d of %d images", i, n),
			})
			log.Debug().Int("image", i).Int("frames", emitted).Msg("Image composited")
		}
	}

	return emitted, nil
}
