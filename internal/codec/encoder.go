package codec

import (
	"bytes"
	"image/jpeg"

	"github.com/slidestream/slidestream/internal/frame"
)

// Encoder is the uniform encode-side adapter, symmetric with Decoder.
// Encode(nil) is the drain sentinel: callers keep submitting it until
// Encode reports no further progress, then Close.
type Encoder interface {
	Open() error
	IsOpen() bool
	Encode(f *frame.Frame) (bool, error)
	Encoded() frame.Packet
	Close() error
	SetOption(key, value string)
}

// MJPEGEncoder produces one JPEG packet per input frame.
// Options: "quality" 1..100 (default 75).
type MJPEGEncoder struct {
	opts    options
	open    bool
	quality int
	pending *frame.Packet
}

// NewMJPEGEncoder returns a closed MJPEG encoder.
func NewMJPEGEncoder() *MJPEGEncoder {
	return &MJPEGEncoder{opts: make(options)}
}

// SetOption queues a key/value applied at Open.
func (e *MJPEGEncoder) SetOption(key, value string) {
	e.opts[key] = value
}

// Open applies queued options and transitions to the Open state.
func (e *MJPEGEncoder) Open() error {
	e.quality = e.opts.intOr("quality", 75)
	if e.quality < 1 || e.quality > 100 {
		return newError(OpenCodecError, "mjpeg quality must be within 1..100", nil)
	}
	e.open = true
	return nil
}

// IsOpen reports whether the encoder is open.
func (e *MJPEGEncoder) IsOpen() bool {
	return e.open
}

// Encode compresses one frame, or drains when f is nil.
func (e *MJPEGEncoder) Encode(f *frame.Frame) (bool, error) {
	if !e.open {
		return false, newError(EncodeError, "encode on closed encoder", nil)
	}
	if f == nil {
		// Nothing is held back between frames; drain completes at once.
		return false, nil
	}
	if f.Image() == nil {
		return false, newError(FormatError, "mjpeg encoder requires rgba input", nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image(), &jpeg.Options{Quality: e.quality}); err != nil {
		return false, newError(EncodeError, "jpeg encode failed", err)
	}
	e.pending = &frame.Packet{Data: buf.Bytes(), PTS: f.PTS()}
	return true, nil
}

// Encoded returns the most recent packet and clears the slot.
func (e *MJPEGEncoder) Encoded() frame.Packet {
	if e.pending == nil {
		return frame.Packet{}
	}
	p := *e.pending
	e.pending = nil
	return p
}

// Close releases the encoder. Double-close and close-before-open are no-ops.
func (e *MJPEGEncoder) Close() error {
	if !e.open {
		return nil
	}
	e.pending = nil
	e.open = false
	return nil
}

// RawVideoEncoder serializes frames to raw pixel planes for piping into an
// external muxer process. Options: "pixel_format" (rgba, bgra, gray,
// yuv420p; default rgba).
type RawVideoEncoder struct {
	opts    options
	open    bool
	format  frame.PixelFormat
	pending *frame.Packet
}

// NewRawVideoEncoder returns a closed rawvideo encoder.
func NewRawVideoEncoder() *RawVideoEncoder {
	return &RawVideoEncoder{opts: make(options)}
}

// SetOption queues a key/value applied at Open.
func (e *RawVideoEncoder) SetOption(key, value string) {
	e.opts[key] = value
}

// Open resolves the configured output pixel format.
func (e *RawVideoEncoder) Open() error {
	switch e.opts["pixel_format"] {
	case "", "rgba":
		e.format = frame.FormatRGBA
	case "bgra":
		e.format = frame.FormatBGRA
	case "gray":
		e.format = frame.FormatGray
	case "yuv420p":
		e.format = frame.FormatYUV420P
	default:
		return newError(FormatError, "unsupported pixel format "+e.opts["pixel_format"], nil)
	}
	e.open = true
	return nil
}

// IsOpen reports whether the encoder is open.
func (e *RawVideoEncoder) IsOpen() bool {
	return e.open
}

// Encode serializes one frame, or drains when f is nil.
func (e *RawVideoEncoder) Encode(f *frame.Frame) (bool, error) {
	if !e.open {
		return false, newError(EncodeError, "encode on closed encoder", nil)
	}
	if f == nil {
		return false, nil
	}

	out := f
	if f.Format() != e.format {
		conv, err := f.ConvertTo(e.format)
		if err != nil {
			return false, newError(FormatError, "pixel format conversion failed", err)
		}
		out = conv
	}
	e.pending = &frame.Packet{Data: out.Bytes(), PTS: f.PTS()}
	return true, nil
}

// Encoded returns the most recent packet and clears the slot.
func (e *RawVideoEncoder) Encoded() frame.Packet {
	if e.pending == nil {
		return frame.Packet{}
	}
	p := *e.pending
	e.pending = nil
	return p
}

// Close releases the encoder. Double-close and close-before-open are no-ops.
func (e *RawVideoEncoder) Close() error {
	if !e.open {
		return nil
	}
	e.pending = nil
	e.open = false
	return nil
}
