package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/slidestream/slidestream/internal/logger"
)

// ConcatTask is the external-process export realization: each composited
// frame is written to a temporary JPEG, a concat playlist referencing them
// is generated, and the encoder binary is invoked once over the playlist.
type ConcatTask struct {
	*Task
}

// NewConcatTask builds the external-process export job.
func NewConcatTask(settings Settings, notifier *Notifier) *ConcatTask {
	return &ConcatTask{Task: NewTask(settings, notifier)}
}

// Run executes the job. The temporary frame directory is removed on
// success and kept on failure alongside any partial output so the user can
// inspect what was produced.
func (t *ConcatTask) Run() {
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

	tmpDir, err := os.MkdirTemp("", "slidestream-frames-")
	if err != nil {
		t.fail("creating frame directory: " + err.Error())
		return
	}

	frameNo := 0
	emitted, composeErr := t.compose(func(img *image.RGBA, _ int) error {
		path := filepath.Join(tmpDir, fmt.Sprintf("frame_%08d.jpg", frameNo))
		frameNo++
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
			f.Close()
			if t.metrics != nil {
				t.metrics.EncodeErrors.Add(1)
			}
			return err
		}
		return f.Close()
	})

	if composeErr != nil {
		t.notifier.SendProgress(Progress{Message: composeErr.Error()})
		t.notifier.SendDone(Done{Success: false, Message: composeErr.Error(), Path: outPath})
		return
	}
	if t.IsCanceled() {
		os.RemoveAll(tmpDir)
		t.notifier.SendDone(Done{Success: false, Message: "canceled", Path: outPath})
		return
	}

	playlist, err := t.writePlaylist(tmpDir, frameNo)
	if err != nil {
		t.fail("writing concat playlist: " + err.Error())
		return
	}

	if err := t.runEncoder(playlist, outPath); err != nil {
		log.Error().Err(err).Msg("Encoder process failed")
		t.notifier.SendProgress(Progress{Message: err.Error()})
		t.notifier.SendDone(Done{Success: false, Message: err.Error(), Path: outPath})
		return
	}

	// The encoder process is not pre-emptible; cancellation is honored at
	// process exit.
	if t.IsCanceled() {
		os.RemoveAll(tmpDir)
		t.notifier.SendDone(Done{Success: false, Message: "canceled", Path: outPath})
		return
	}

	os.RemoveAll(tmpDir)
	log.Info().Int("frames", emitted).Str("output", outPath).Msg("Export finished")
	t.notifier.SendDone(Done{
		Success: true,
		Message: fmt.Sprintf("encoded %d frames", emitted),
		Path:    outPath,
	})
}

// writePlaylist generates the concat file list: one "file '<path>'" line
// per temporary JPEG frame, in frame order.
func (t *ConcatTask) writePlaylist(dir string, frames int) (string, error) {
	var b strings.Builder
	for i := 0; i < frames; i++ {
		fmt.Fprintf(&b, "file '%s'\n", filepath.Join(dir, fmt.Sprintf("frame_%08d.jpg", i)))
	}
	path := filepath.Join(dir, "playlist.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (t *ConcatTask) runEncoder(playlist, outPath string) error {
	binPath, err := exec.LookPath(t.settings.EncoderBin)
	if err != nil {
		return fmt.Errorf("encoder binary %q not found: %w", t.settings.EncoderBin, err)
	}

	fps := t.settings.Std.FrameRate()
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-r", fmt.Sprintf("%g", fps),
		"-i", playlist,
		"-c:v", t.settings.Codec,
		"-b:v", fmt.Sprintf("%d", t.settings.BitRate.BitsPerSecond()),
		"-pix_fmt", "yuv420p",
		outPath,
	}

	cmd := exec.Command(binPath, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching encoder process: %w", err)
	}
	return cmd.Wait()
}
