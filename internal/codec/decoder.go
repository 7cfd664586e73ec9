package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"strconv"

	"github.com/slidestream/slidestream/internal/frame"
)

// Decoder is the uniform decode-side adapter. Lifecycle:
// Closed -> Open -> Decoding* -> Flushing -> Closed.
//
// Decode feeds one packet and reports whether the codec made progress; the
// decoded frame, if any, is fetched with Frame immediately afterwards. An
// EOS packet switches the codec into drain mode: callers keep submitting it
// until Decode reports no further progress.
type Decoder interface {
	Open() error
	IsOpen() bool
	Decode(pkt frame.Packet) (bool, error)
	Frame() *frame.Frame
	Flush()
	Close() error
	SetOption(key, value string)
}

// options is the queued key/value set applied at Open. Keys the adapter
// understands are consumed; the rest would belong to a codec private
// parameter block and are ignored by the built-in codecs.
type options map[string]string

func (o options) intOr(key string, def int) int {
	if v, ok := o[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// MJPEGDecoder decodes JPEG packets into RGBA frames. Stateless between
// packets: every packet is a complete picture, so drain never yields more
// frames.
type MJPEGDecoder struct {
	opts    options
	open    bool
	pending *frame.Frame
	broken  bool
}

// NewMJPEGDecoder returns a closed MJPEG decoder.
func NewMJPEGDecoder() *MJPEGDecoder {
	return &MJPEGDecoder{opts: make(options)}
}

// SetOption queues a key/value applied at Open.
func (d *MJPEGDecoder) SetOption(key, value string) {
	d.opts[key] = value
}

// Open transitions to the Open state.
func (d *MJPEGDecoder) Open() error {
	d.open = true
	d.broken = false
	return nil
}

// IsOpen reports whether Open succeeded and Close has not been called.
func (d *MJPEGDecoder) IsOpen() bool {
	return d.open
}

// Decode feeds one packet. A closed or broken decoder fails fast without
// touching the image library.
func (d *MJPEGDecoder) Decode(pkt frame.Packet) (bool, error) {
	if !d.open {
		return false, newError(DecodeError, "decode on closed decoder", nil)
	}
	if d.broken {
		return false, newError(DecodeError, "decoder unusable until re-opened", nil)
	}
	if pkt.IsEOF() {
		// Nothing buffered internally; drain is immediately complete.
		return false, nil
	}
	if len(pkt.Data) == 0 {
		return false, ErrNeedMoreInput
	}

	img, err := jpeg.Decode(bytes.NewReader(pkt.Data))
	if err != nil {
		d.broken = true
		return false, newError(DecodeError, "jpeg decode failed", err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	d.pending = frame.NewVideoFrame(rgba, pkt.PTS)
	return true, nil
}

// Frame returns the most recently decoded frame and clears the slot.
func (d *MJPEGDecoder) Frame() *frame.Frame {
	f := d.pending
	d.pending = nil
	return f
}

// Flush discards any buffered output.
func (d *MJPEGDecoder) Flush() {
	d.pending = nil
}

// Close flushes and releases. Double-close and close-before-open are no-ops.
func (d *MJPEGDecoder) Close() error {
	if !d.open {
		return nil
	}
	d.Flush()
	d.open = false
	return nil
}

// RawVideoDecoder wraps packets that already contain raw RGBA pixel data of
// a fixed size. Options: "width", "height" (required at Open).
type RawVideoDecoder struct {
	opts    options
	open    bool
	width   int
	height  int
	pending *frame.Frame
}

// NewRawVideoDecoder returns a closed rawvideo decoder.
func NewRawVideoDecoder() *RawVideoDecoder {
	return &RawVideoDecoder{opts: make(options)}
}

// SetOption queues a key/value applied at Open.
func (d *RawVideoDecoder) SetOption(key, value string) {
	d.opts[key] = value
}

// Open validates the configured frame geometry.
func (d *RawVideoDecoder) Open() error {
	d.width = d.opts.intOr("width", 0)
	d.height = d.opts.intOr("height", 0)
	if d.width <= 0 || d.height <= 0 {
		return newError(OpenCodecError, "rawvideo decoder requires width and height options", nil)
	}
	d.open = true
	return nil
}

// IsOpen reports whether the decoder is open.
func (d *RawVideoDecoder) IsOpen() bool {
	return d.open
}

// Decode wraps one raw frame.
func (d *RawVideoDecoder) Decode(pkt frame.Packet) (bool, error) {
	if !d.open {
		return false, newError(DecodeError, "decode on closed decoder", nil)
	}
	if pkt.IsEOF() {
		return false, nil
	}
	want := d.width * d.height * 4
	if len(pkt.Data) < want {
		if len(pkt.Data) == 0 {
			return false, ErrNeedMoreInput
		}
		return false, newError(FormatError,
			fmt.Sprintf("rawvideo packet is %d bytes, want %d", len(pkt.Data), want), nil)
	}

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	copy(img.Pix, pkt.Data[:want])
	d.pending = frame.NewVideoFrame(img, pkt.PTS)
	return true, nil
}

// Frame returns the most recently decoded frame and clears the slot.
func (d *RawVideoDecoder) Frame() *frame.Frame {
	f := d.pending
	d.pending = nil
	return f
}

// Flush discards any buffered output.
func (d *RawVideoDecoder) Flush() {
	d.pending = nil
}

// Close flushes and releases. Double-close and close-before-open are no-ops.
func (d *RawVideoDecoder) Close() error {
	if !d.open {
		return nil
	}
	d.Flush()
	d.open = false
	return nil
}
