// Package frame defines the value types that flow through the pipeline:
// decoded video/audio frames, compressed packets, and per-session statistics.
package frame

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// PixelFormat identifies the memory layout of a video frame's pixel data.
type PixelFormat int

const (
	FormatRGBA PixelFormat = iota
	FormatBGRA
	FormatGray
	FormatYUV420P
)

// String returns the ffmpeg-style name of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatBGRA:
		return "bgra"
	case FormatGray:
		return "gray"
	case FormatYUV420P:
		return "yuv420p"
	default:
		return "unknown"
	}
}

// MediaKind distinguishes video from audio frames.
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindAudio
)

// Frame is a single decoded picture or audio buffer with a presentation
// timestamp. A Frame is immutable once constructed: format conversion and
// scaling always produce a new Frame, never an in-place mutation. The stage
// that constructs a frame owns it exclusively until it hands it to the next
// stage.
type Frame struct {
	kind   MediaKind
	format PixelFormat
	pts    float64

	// video
	img    *image.RGBA // non-nil only for FormatRGBA
	data   []byte      // raw planes for non-RGBA formats
	width  int
	height int

	// audio
	samples    []byte
	channels   int
	sampleRate int
}

// NewVideoFrame wraps an RGBA picture. The frame takes ownership of img;
// callers must not mutate it afterwards.
func NewVideoFrame(img *image.RGBA, pts float64) *Frame {
	b := img.Bounds()
	return &Frame{
		kind:   KindVideo,
		format: FormatRGBA,
		pts:    pts,
		img:    img,
		width:  b.Dx(),
		height: b.Dy(),
	}
}

// NewAudioFrame wraps a buffer of interleaved PCM samples.
func NewAudioFrame(samples []byte, channels, sampleRate int, pts float64) *Frame {
	return &Frame{
		kind:       KindAudio,
		pts:        pts,
		samples:    samples,
		channels:   channels,
		sampleRate: sampleRate,
	}
}

func (f *Frame) Kind() MediaKind { return f.kind }
func (f *Frame) Format() PixelFormat { return f.format }
func (f *Frame) PTS() float64 { return f.pts }
func (f *Frame) Width() int { return f.width }
func (f *Frame) Height() int { return f.height }
func (f *Frame) Channels() int { return f.channels }
func (f *Frame) SampleRate() int { return f.sampleRate }
func (f *Frame) Samples() []byte { return f.samples }

// Image returns the RGBA picture, or nil if the frame is not FormatRGBA.
// The returned image must be treated as read-only.
func (f *Frame) Image() *image.RGBA {
	return f.img
}

// Bytes returns the raw pixel data regardless of format.
func (f *Frame) Bytes() []byte {
	if f.img != nil {
		return f.img.Pix
	}
	return f.data
}

// ConvertTo returns a new frame holding the same picture reformatted to the
// requested pixel format. The receiver is never modified; converting to the
// frame's own format yields an independent deep copy.
func (f *Frame) ConvertTo(format PixelFormat) (*Frame, error) {
	if f.kind != KindVideo {
		return nil, fmt.Errorf("cannot convert audio frame to pixel format %s", format)
	}
	if f.format != FormatRGBA {
		return nil, fmt.Errorf("conversion source must be rgba, have %s", f.format)
	}

	switch format {
	case FormatRGBA:
		dst := image.NewRGBA(f.img.Bounds())
		copy(dst.Pix, f.img.Pix)
		return NewVideoFrame(dst, f.pts), nil

	case FormatBGRA:
		src := f.img.Pix
		data := make([]byte, len(src))
		for i := 0; i+3 < len(src); i += 4 {
			data[i] = src[i+2]
			data[i+1] = src[i+1]
			data[i+2] = src[i]
			data[i+3] = src[i+3]
		}
		return f.rawCopy(FormatBGRA, data), nil

	case FormatGray:
		data := make([]byte, f.width*f.height)
		src := f.img.Pix
		for i, j := 0, 0; i+3 < len(src); i, j = i+4, j+1 {
			// BT.601 luma, integer approximation
			data[j] = uint8((299*int(src[i]) + 587*int(src[i+1]) + 114*int(src[i+2])) / 1000)
		}
		return f.rawCopy(FormatGray, data), nil

	case FormatYUV420P:
		return f.rawCopy(FormatYUV420P, rgbaToYUV420(f.img, f.width, f.height)), nil

	default:
		return nil, fmt.Errorf("unsupported pixel format %d", format)
	}
}

// Scaled returns a new RGBA frame resampled to the given size. The
// receiver is never modified.
func (f *Frame) Scaled(width, height int) (*Frame, error) {
	if f.kind != KindVideo || f.format != FormatRGBA {
		return nil, fmt.Errorf("scaling requires an rgba video frame, have %s", f.format)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), f.img, f.img.Bounds(), draw.Src, nil)
	return NewVideoFrame(dst, f.pts), nil
}

func (f *Frame) rawCopy(format PixelFormat, data []byte) *Frame {
	return &Frame{
		kind:   KindVideo,
		format: format,
		pts:    f.pts,
		data:   data,
		width:  f.width,
		height: f.height,
	}
}

// rgbaToYUV420 packs planar Y, U, V with 2x2 chroma subsampling. Odd
// dimensions are truncated to even for the chroma planes.
func rgbaToYUV420(img *image.RGBA, w, h int) []byte {
	cw, ch := (w+1)/2, (h+1)/2
	out := make([]byte, w*h+2*cw*ch)
	y := out[:w*h]
	u := out[w*h : w*h+cw*ch]
	v := out[w*h+cw*ch:]

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := img.PixOffset(img.Rect.Min.X+col, img.Rect.Min.Y+row)
			r, g, b := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
			y[row*w+col] = clamp8((299*r + 587*g + 114*b) / 1000)
			if row%2 == 0 && col%2 == 0 {
				ci := (row/2)*cw + col/2
				u[ci] = clamp8(128 + (-169*r-331*g+500*b)/1000)
				v[ci] = clamp8(128 + (500*r-419*g-81*b)/1000)
			}
		}
	}
	return out
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
