package export

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/slidestream/slidestream/internal/logger"
)

// MuxerProcess wraps the external encoder binary as the container boundary:
// raw pixel planes go in on stdin, an encoded and muxed file comes out. The
// container format follows from the output file extension.
type MuxerProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	path  string
}

// StartMuxer launches the encoder process for one output file. A missing
// binary or a failed launch is a job-fatal open error.
func StartMuxer(bin string, width, height int, fps float64, bitRate int, codecName, pixelFormat, outPath string) (*MuxerProcess, error) {
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("encoder binary %q not found: %w", bin, err)
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", pixelFormat,
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%g", fps),
		"-i", "-",
		"-c:v", codecName,
		"-b:v", fmt.Sprintf("%d", bitRate),
		"-pix_fmt", "yuv420p",
		outPath,
	}

	cmd := exec.Command(binPath, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("muxer stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching muxer process: %w", err)
	}

	logger.WithComponent("muxer").Info().
		Str("bin", binPath).
		Str("output", outPath).
		Msg("Muxer process started")

	return &MuxerProcess{cmd: cmd, stdin: stdin, path: outPath}, nil
}

// Write feeds one raw frame's pixel data to the muxer.
func (m *MuxerProcess) Write(p []byte) (int, error) {
	return m.stdin.Write(p)
}

// Close signals end of input and waits for the process to finish writing
// the container trailer, so even a cancelled job leaves a playable file.
func (m *MuxerProcess) Close() error {
	if err := m.stdin.Close(); err != nil {
		return fmt.Errorf("closing muxer input: %w", err)
	}
	if err := m.cmd.Wait(); err != nil {
		return fmt.Errorf("muxer process: %w", err)
	}
	return nil
}

// Path returns the output file path.
func (m *MuxerProcess) Path() string {
	return m.path
}
