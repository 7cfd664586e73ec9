// Package mjpeg implements the streaming counterpart of the export
// pipeline: the same transition/effect compositing loop, but each frame is
// JPEG-encoded and pushed to a bounded set of HTTP subscribers as a
// multipart stream.
package mjpeg

import (
	"fmt"

	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/osd"
	"github.com/slidestream/slidestream/internal/transition"
)

// StreamSettings is the immutable configuration of one streaming session.
// Changing any field requires restarting the server.
type StreamSettings struct {
	Port       int      // TCP port, default 8080
	BindAddr   string   // bind address, default all interfaces
	Quality    int      // JPEG quality 1..100
	Delay      int      // seconds each image is shown
	Rate       int      // frames per second, 1..30
	Loop       bool     // repeat the image list forever
	MaxClients int      // simultaneous subscriber bound
	Blacklist  []string // rejected client IPs

	Images           []string
	Type             export.VidType
	Transition       transition.Kind
	TransitionFrames int
	Effect           effect.Kind
	Seed             int64

	OSDEnabled bool
	OSD        osd.Properties
}

// DefaultStreamSettings mirrors the defaults persisted between sessions.
func DefaultStreamSettings() StreamSettings {
	return StreamSettings{
		Port:             8080,
		Quality:          75,
		Delay:            5,
		Rate:             10,
		Loop:             true,
		MaxClients:       10,
		Type:             export.HDTV,
		Transition:       transition.None,
		TransitionFrames: transition.DefaultFrames,
		Effect:           effect.None,
		OSD:              osd.DefaultProperties(),
	}
}

// Validate rejects settings no session could run with.
func (s StreamSettings) Validate() error {
	if len(s.Images) == 0 {
		return fmt.Errorf("no input images configured")
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1..100", s.Quality)
	}
	if s.Rate < 1 || s.Rate > 30 {
		return fmt.Errorf("rate %d out of range 1..30", s.Rate)
	}
	if s.MaxClients < 1 {
		return fmt.Errorf("max clients must be at least 1")
	}
	return nil
}

// FramesPerImage is the effect frame budget: delay seconds at the stream rate.
func (s StreamSettings) FramesPerImage() int {
	n := s.Delay * s.Rate
	if n < 1 {
		n = 1
	}
	return n
}
