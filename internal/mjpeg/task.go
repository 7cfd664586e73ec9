package mjpeg

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/osd"
	"github.com/slidestream/slidestream/internal/transition"
)

// FrameSink receives each JPEG-encoded frame the task produces. Satisfied
// by Broadcaster.
type FrameSink interface {
	Broadcast(jpegData []byte)
}

// FrameTask is the streaming worker: it repeats the slideshow compositing
// loop (once, or forever when loop is enabled), overlays the OSD, encodes
// each frame to JPEG through the codec adapter, and pushes the bytes to the
// sink at the configured rate.
type FrameTask struct {
	settings StreamSettings
	sink     FrameSink
	comp     *osd.Compositor
	notifier *export.Notifier
	enc      codec.Encoder
	canceled atomic.Bool

	tmngr *transition.Manager
	emngr *effect.Manager

	metrics *metrics.Metrics

	// noPacing disables the frame-rate ticker; tests drain sequences
	// without real-time delays.
	noPacing bool
}

// NewFrameTask builds a streaming worker. provider may be nil when the OSD
// is disabled.
func NewFrameTask(settings StreamSettings, registry *codec.Registry, sink FrameSink, provider osd.MetaProvider, notifier *export.Notifier) (*FrameTask, error) {
	enc, err := registry.FindEncoder("mjpeg", "", "", codec.MediaVideo)
	if err != nil {
		return nil, err
	}
	enc.SetOption("quality", strconv.Itoa(settings.Quality))
	if err := enc.Open(); err != nil {
		return nil, err
	}

	t := &FrameTask{
		settings: settings,
		sink:     sink,
		notifier: notifier,
		enc:      enc,
		tmngr:    transition.NewManager(),
		emngr:    effect.NewManager(),
	}
	if settings.OSDEnabled && provider != nil {
		t.comp = osd.NewCompositor(settings.OSD, provider)
	}
	if settings.Seed != 0 {
		t.tmngr.SetSeed(settings.Seed)
		t.emngr.SetSeed(settings.Seed + 1)
	}
	return t, nil
}

// SetMetrics attaches pipeline counters. Must be called before Run.
func (t *FrameTask) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// Cancel requests a cooperative stop, honored at the same checkpoints as
// the export loop: every image boundary and every sub-loop iteration.
func (t *FrameTask) Cancel() {
	t.canceled.Store(true)
}

// IsCanceled reports whether Cancel was called.
func (t *FrameTask) IsCanceled() bool {
	return t.canceled.Load()
}

func (t *FrameTask) loadImage(path string) (*image.RGBA, error) {
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

// push overlays, encodes, and broadcasts one composited frame.
func (t *FrameTask) push(img *image.RGBA, item string, pts float64) error {
	start := time.Now()
	if t.comp != nil && item != "" {
		img = frame.CloneRGBA(img)
		if err := t.comp.Apply(img, item); err != nil {
			if t.metrics != nil {
				t.metrics.OverlayErrors.Add(1)
			}
			logger.WithComponent("mjpeg").Warn().Err(err).Str("item", item).Msg("OSD overlay failed")
		}
	}

	progress, err := t.enc.Encode(frame.NewVideoFrame(img, pts))
	if err != nil {
		if t.metrics != nil {
			t.metrics.EncodeErrors.Add(1)
		}
		return err
	}
	if progress {
		t.sink.Broadcast(t.enc.Encoded().Data)
	}
	if t.metrics != nil {
		t.metrics.FramesComposited.Add(1)
		t.metrics.UpdateComposeLatency(time.Since(start))
	}
	return nil
}

// Run executes the streaming loop until cancellation, a fatal error, or,
// with looping disabled, the end of a single pass over the image list.
// Exactly one Done signal is delivered.
func (t *FrameTask) Run() {
	defer t.enc.Close()
	log := logger.WithComponent("mjpeg")

	if err := t.settings.Validate(); err != nil {
		t.notifier.SendFailure("invalid stream settings: " + err.Error())
		return
	}

	w, h := t.settings.Type.Size()
	t.tmngr.SetOutputSize(w, h)
	t.emngr.SetOutputSize(w, h)
	t.tmngr.SetFrames(t.settings.TransitionFrames)

	interval := time.Second / time.Duration(t.settings.Rate)
	var ticker *time.Ticker
	if !t.noPacing {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}
	pace := func() {
		if ticker != nil {
			<-ticker.C
		}
	}

	effectFrames := t.settings.FramesPerImage()
	images := t.settings.Images
	frameNo := 0
	pts := func() float64 { return float64(frameNo) / float64(t.settings.Rate) }

	prev := frame.Blank(w, h)

	for pass := 0; ; pass++ {
		for i, path := range images {
			if t.IsCanceled() {
				t.notifier.SendDone(export.Done{Success: false, Message: "canceled"})
				return
			}

			cur, err := t.loadImage(path)
			if err != nil {
				t.notifier.SendFailure(err.Error())
				return
			}

			t.tmngr.SetInImage(prev)
			t.tmngr.SetOutImage(cur)
			t.tmngr.SetTransition(t.settings.Transition)
			for {
				if t.IsCanceled() {
					t.notifier.SendDone(export.Done{Success: false, Message: "canceled"})
					return
				}
				timeout := 0
				f := t.tmngr.CurrentFrame(&timeout)
				pace()
				if err := t.push(f, path, pts()); err != nil {
					t.notifier.SendFailure(err.Error())
					return
				}
				frameNo++
				if timeout == -1 {
					break
				}
			}

			t.emngr.SetImage(cur)
			t.emngr.SetEffect(t.settings.Effect)
			t.emngr.SetFrames(effectFrames)
			for {
				if t.IsCanceled() {
					t.notifier.SendDone(export.Done{Success: false, Message: "canceled"})
					return
				}
				timeout := 0
				f := t.emngr.CurrentFrame(&timeout)
				pace()
				if err := t.push(f, path, pts()); err != nil {
					t.notifier.SendFailure(err.Error())
					return
				}
				frameNo++
				if timeout == -1 {
					break
				}
			}

			prev = cur
			t.notifier.SendProgress(export.Progress{
				Percent: ((i + 1) * 100) / len(images),
				Message: fmt.Sprintf("Streaming image %d of %d (pass %d)", i+1, len(images), pass+1),
			})
		}

		if !t.settings.Loop {
			break
		}
	}

	log.Info().Int("frames", frameNo).Msg("Stream finished")
	t.notifier.SendDone(export.Done{
		Success: true,
		Message: fmt.Sprintf("streamed %d frames", frameNo),
	})
}
