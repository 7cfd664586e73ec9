package codec

import (
	"fmt"
	"sync"
)

// MediaType distinguishes the stream kind a codec handles, used to pick the
// right not-found category when resolution fails.
type MediaType int

const (
	MediaVideo MediaType = iota
	MediaAudio
	MediaSubtitle
)

func notFoundCode(mt MediaType) ErrorCode {
	switch mt {
	case MediaAudio:
		return AudioCodecNotFound
	case MediaSubtitle:
		return SubtitleCodecNotFound
	default:
		return VideoCodecNotFound
	}
}

// DecoderFactory and EncoderFactory construct fresh adapter instances.
type (
	DecoderFactory func() Decoder
	EncoderFactory func() Encoder
)

// Registry maps codec names to factories. It is explicitly constructed and
// owned by the session or pipeline that needs it; there is no process-wide
// instance, so tests never leak registrations into each other.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecoderFactory
	encoders map[string]EncoderFactory
}

// NewRegistry returns a registry pre-populated with the built-in codecs:
// mjpeg and rawvideo, decode and encode.
func NewRegistry() *Registry {
	r := &Registry{
		decoders: make(map[string]DecoderFactory),
		encoders: make(map[string]EncoderFactory),
	}
	r.RegisterDecoder("mjpeg", func() Decoder { return NewMJPEGDecoder() })
	r.RegisterDecoder("rawvideo", func() Decoder { return NewRawVideoDecoder() })
	r.RegisterEncoder("mjpeg", func() Encoder { return NewMJPEGEncoder() })
	r.RegisterEncoder("rawvideo", func() Encoder { return NewRawVideoEncoder() })
	return r
}

// RegisterDecoder installs a decoder factory under name.
func (r *Registry) RegisterDecoder(name string, f DecoderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[name] = f
}

// RegisterEncoder installs an encoder factory under name.
func (r *Registry) RegisterEncoder(name string, f EncoderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[name] = f
}

// resolve implements the lookup order shared by decoders and encoders:
// an explicit name wins; otherwise a hardware-qualified "<id>_<hwaccel>"
// name is tried before falling back to the bare stream codec id.
func resolveName(name, hwaccel, streamID string) string {
	if name != "" {
		return name
	}
	if hwaccel != "" {
		return fmt.Sprintf("%s_%s", streamID, hwaccel)
	}
	return streamID
}

// FindDecoder resolves a decoder. name may be empty, in which case the
// stream codec id (optionally hardware-qualified) is used. A failed
// hardware-qualified lookup falls back to the plain id before giving up
// with a media-kind-specific not-found error.
func (r *Registry) FindDecoder(name, hwaccel, streamID string, mt MediaType) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full := resolveName(name, hwaccel, streamID)
	if f, ok := r.decoders[full]; ok {
		return f(), nil
	}
	if name == "" && hwaccel != "" {
		if f, ok := r.decoders[streamID]; ok {
			return f(), nil
		}
	}
	return nil, newError(notFoundCode(mt), fmt.Sprintf("no decoder could be found for %q", full), nil)
}

// FindEncoder resolves an encoder by the same rules as FindDecoder.
func (r *Registry) FindEncoder(name, hwaccel, streamID string, mt MediaType) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full := resolveName(name, hwaccel, streamID)
	if f, ok := r.encoders[full]; ok {
		return f(), nil
	}
	if name == "" && hwaccel != "" {
		if f, ok := r.encoders[streamID]; ok {
			return f(), nil
		}
	}
	return nil, newError(notFoundCode(mt), fmt.Sprintf("no encoder could be found for %q", full), nil)
}

// DecoderNames returns the registered decoder names, unordered.
func (r *Registry) DecoderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decoders))
	for n := range r.decoders {
		names = append(names, n)
	}
	return names
}

// EncoderNames returns the registered encoder names, unordered.
func (r *Registry) EncoderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.encoders))
	for n := range r.encoders {
		names = append(names, n)
	}
	return names
}
