package export

import (
	"fmt"
	"image"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/logger"
)

// EncoderTask is the in-process export realization: composited frames run
// through the rawvideo encoder adapter and the resulting planes are piped
// into the muxer process, which encodes and writes the container.
type EncoderTask struct {
	*Task
	registry *codec.Registry
}

// NewEncoderTask builds the in-process export job.
func NewEncoderTask(settings Settings, registry *codec.Registry, notifier *Notifier) *EncoderTask {
	return &EncoderTask{
		Task:     NewTask(settings, notifier),
		registry: registry,
	}
}

// Run executes the job to completion, cancellation, or failure. It always
// delivers exactly one Done signal; failure leaves any partially written
// output file in place for the user to inspect.
func (t *EncoderTask) Run() {
	log := logger.WithComponent("export")

	if err := t.settings.Validate(); err != nil {
		t.fail("invalid export settings: " + err.Error())
		return
	}

	outPath, err := t.settings.OutputFile()
	if err != nil {
		t.fail("resolving output path: " + err.Error())
		return
	}

	enc, err := t.registry.FindEncoder("rawvideo", "", "", codec.MediaVideo)
	if err != nil {
		t.fail("encoder setup: " + err.Error())
		return
	}
	enc.SetOption("pixel_format", "rgba")
	if err := enc.Open(); err != nil {
		t.fail("opening encoder: " + err.Error())
		return
	}
	defer enc.Close()

	w, h := t.settings.Type.Size()
	mux, err := StartMuxer(
		t.settings.EncoderBin,
		w, h,
		t.settings.Std.FrameRate(),
		t.settings.BitRate.BitsPerSecond(),
		t.settings.Codec,
		frame.FormatRGBA.String(),
		outPath,
	)
	if err != nil {
		t.fail("opening muxer: " + err.Error())
		return
	}

	fps := t.settings.Std.FrameRate()
	frameNo := 0
	emitted, composeErr := t.compose(func(img *image.RGBA, _ int) error {
		f := frame.NewVideoFrame(img, float64(frameNo)/fps)
		frameNo++
		progress, err := enc.Encode(f)
		if err != nil {
			if t.metrics != nil {
				t.metrics.EncodeErrors.Add(1)
			}
			return err
		}
		if !progress {
			return nil
		}
		if _, err := mux.Write(enc.Encoded().Data); err != nil {
			return err
		}
		return nil
	})

	// Drain frames still buffered in the encoder, then close the muxer so
	// the container trailer is written even for a truncated job.
	for {
		progress, err := enc.Encode(nil)
		if err != nil || !progress {
			break
		}
		if _, werr := mux.Write(enc.Encoded().Data); werr != nil {
			break
		}
	}
	closeErr := mux.Close()

	switch {
	case composeErr != nil:
		log.Error().Err(composeErr).Msg("Export failed")
		t.notifier.SendProgress(Progress{Message: composeErr.Error()})
		t.notifier.SendDone(Done{Success: false, Message: composeErr.Error(), Path: outPath})
	case closeErr != nil:
		log.Error().Err(closeErr).Msg("Muxer close failed")
		t.notifier.SendProgress(Progress{Message: closeErr.Error()})
		t.notifier.SendDone(Done{Success: false, Message: closeErr.Error(), Path: outPath})
	case t.IsCanceled():
		log.Info().Int("frames", emitted).Msg("Export canceled")
		t.notifier.SendDone(Done{Success: false, Message: "canceled", Path: outPath})
	default:
		log.Info().Int("frames", emitted).Str("output", outPath).Msg("Export finished")
		t.notifier.SendDone(Done{
			Success: true,
			Message: fmt.Sprintf("encoded %d frames", emitted),
			Path:    outPath,
		})
	}
}

func (t *Task) fail(msg string) {
	logger.WithComponent("export").Error().Msg(msg)
	t.notifier.SendProgress(Progress{Message: msg})
	t.notifier.SendDone(Done{Success: false, Message: msg})
}
