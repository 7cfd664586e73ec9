package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/frame"
)

// ScreenSink holds the most recent frame for a presentation widget to pick
// up. The actual pixel presentation lives outside this package; the sink is
// the narrow interface it reads through.
type ScreenSink struct {
	BaseSink
	frameMu sync.RWMutex
	current *frame.Frame
	count   uint64
}

// NewScreenSink returns an empty screen sink.
func NewScreenSink(name string) *ScreenSink {
	s := &ScreenSink{BaseSink: NewBaseSink(name)}
	s.bindSelf(s)
	return s
}

// PreferredFormat is RGBA: presentation widgets draw RGBA directly.
func (s *ScreenSink) PreferredFormat() frame.PixelFormat {
	return frame.FormatRGBA
}

// Receive stores the frame as the current picture.
func (s *ScreenSink) Receive(f *frame.Frame) error {
	if s.IsPaused() {
		return nil
	}
	out, err := s.applyFilters(f)
	if err != nil {
		return fmt.Errorf("screen sink filter chain: %w", err)
	}
	s.frameMu.Lock()
	s.current = out
	s.count++
	s.frameMu.Unlock()
	return nil
}

// CurrentFrame returns the most recently received frame, or nil.
func (s *ScreenSink) CurrentFrame() *frame.Frame {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.current
}

// FrameCount returns how many frames the sink has accepted.
func (s *ScreenSink) FrameCount() uint64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.count
}

// FileSink encodes received frames and writes the packets to w. The caller
// owns w and the encoder lifecycle outside the sink's Receive path.
type FileSink struct {
	BaseSink
	writeMu sync.Mutex
	enc     codec.Encoder
	w       io.Writer
	format  frame.PixelFormat
}

// NewFileSink wires an opened encoder to a writer. format is the pixel
// format the sink prefers to be fed, which the encoder consumes natively.
func NewFileSink(name string, enc codec.Encoder, w io.Writer, format frame.PixelFormat) *FileSink {
	s := &FileSink{BaseSink: NewBaseSink(name), enc: enc, w: w, format: format}
	s.bindSelf(s)
	return s
}

// PreferredFormat returns the encoder's native input format.
func (s *FileSink) PreferredFormat() frame.PixelFormat {
	return s.format
}

// Receive encodes one frame and writes the resulting packet.
func (s *FileSink) Receive(f *frame.Frame) error {
	if s.IsPaused() {
		return nil
	}
	out, err := s.applyFilters(f)
	if err != nil {
		return fmt.Errorf("file sink filter chain: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	progress, err := s.enc.Encode(out)
	if err != nil {
		return fmt.Errorf("file sink encode: %w", err)
	}
	if !progress {
		return nil
	}
	pkt := s.enc.Encoded()
	if _, err := s.w.Write(pkt.Data); err != nil {
		return fmt.Errorf("file sink write: %w", err)
	}
	return nil
}

// Broadcaster is the network fan-out contract: given a JPEG byte buffer,
// write it to every currently connected subscriber. Frame pacing is the
// caller's job, not the broadcaster's.
type Broadcaster interface {
	Broadcast(jpegData []byte)
}

// NetworkSink JPEG-encodes received frames and pushes them to a Broadcaster.
type NetworkSink struct {
	BaseSink
	encMu sync.Mutex
	enc   codec.Encoder
	bc    Broadcaster
}

// NewNetworkSink wires an opened MJPEG encoder to a broadcaster.
func NewNetworkSink(name string, enc codec.Encoder, bc Broadcaster) *NetworkSink {
	s := &NetworkSink{BaseSink: NewBaseSink(name), enc: enc, bc: bc}
	s.bindSelf(s)
	return s
}

// PreferredFormat is RGBA: the JPEG encoder consumes RGBA.
func (s *NetworkSink) PreferredFormat() frame.PixelFormat {
	return frame.FormatRGBA
}

// Receive encodes one frame and broadcasts the JPEG bytes.
func (s *NetworkSink) Receive(f *frame.Frame) error {
	if s.IsPaused() {
		return nil
	}
	out, err := s.applyFilters(f)
	if err != nil {
		return fmt.Errorf("network sink filter chain: %w", err)
	}

	s.encMu.Lock()
	defer s.encMu.Unlock()
	progress, err := s.enc.Encode(out)
	if err != nil {
		return fmt.Errorf("network sink encode: %w", err)
	}
	if progress {
		s.bc.Broadcast(s.enc.Encoded().Data)
	}
	return nil
}
