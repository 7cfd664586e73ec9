package player

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/output"
)

// Session is one playback run: a packet source decoded through the codec
// adapter, per-session video filters, and fan-out to the output set. A
// session is also the filter owner its chains are keyed by.
type Session struct {
	name    string
	source  PacketSource
	decoder codec.Decoder
	outputs *output.OutputSet
	filters *output.FilterManager
	stats   *frame.Statistics

	canceled atomic.Bool
}

// NewSession wires a playback session. The decoder is resolved from the
// registry by codec name; the output set and filter manager are shared
// with whoever else coordinates sinks.
func NewSession(name, codecName string, registry *codec.Registry, source PacketSource, outputs *output.OutputSet, filters *output.FilterManager) (*Session, error) {
	dec, err := registry.FindDecoder(codecName, "", "", codec.MediaVideo)
	if err != nil {
		return nil, err
	}
	return &Session{
		name:    name,
		source:  source,
		decoder: dec,
		outputs: outputs,
		filters: filters,
		stats:   &frame.Statistics{},
	}, nil
}

// Name identifies the session as a filter owner.
func (s *Session) Name() string {
	return s.name
}

// Stats returns the session statistics.
func (s *Session) Stats() *frame.Statistics {
	return s.stats
}

// Cancel requests a cooperative stop, honored once per packet.
func (s *Session) Cancel() {
	s.canceled.Store(true)
}

// deliver runs the session video filter chain and fans the frame out.
func (s *Session) deliver(f *frame.Frame) error {
	for _, flt := range s.filters.VideoFiltersFor(s) {
		out, err := flt.Apply(f)
		if err != nil {
			return fmt.Errorf("filter %s: %w", flt.Name(), err)
		}
		f = out
	}

	if err := s.outputs.SendVideoFrame(f); err != nil {
		s.stats.FrameDropped()
		return err
	}
	s.stats.FrameDelivered(f.PTS())
	return nil
}

// Run decodes and delivers until the source signals EOS, the session is
// canceled, or decoding fails. When every sink pauses, the loop blocks in
// the pause barrier instead of burning packets. Sink delivery errors are
// counted and logged but do not stop playback.
func (s *Session) Run() error {
	log := logger.WithComponent("player").With().Str("session", s.name).Logger()

	if err := s.source.Open(); err != nil {
		return err
	}
	defer s.source.Close()

	if err := s.decoder.Open(); err != nil {
		return err
	}
	defer func() {
		// Detach this session's chains before the decoder goes away so a
		// later session with the same name starts clean.
		s.filters.UninstallAllForOwner(s)
		s.decoder.Close()
	}()

	s.stats.Reset()

	for {
		if s.canceled.Load() {
			log.Info().Msg("Session canceled")
			return nil
		}

		if s.outputs.CanPauseThread() {
			s.outputs.PauseThread(time.Second)
			continue
		}

		pkt, err := s.source.Read()
		if err != nil {
			return fmt.Errorf("reading packet: %w", err)
		}

		progress, err := s.decoder.Decode(pkt)
		if err != nil {
			if errors.Is(err, codec.ErrNeedMoreInput) {
				continue
			}
			return err
		}
		if !progress {
			if pkt.IsEOF() {
				log.Info().
					Uint64("frames", s.stats.Snapshot().Frames).
					Msg("End of stream")
				return nil
			}
			continue
		}

		if err := s.deliver(s.decoder.Frame()); err != nil {
			log.Warn().Err(err).Msg("Frame delivery failed")
		}
	}
}
