// Package player drives decoded frames through the filter chains and the
// output set: a demuxed packet source feeds a codec adapter, per-session
// video filters run on each decoded frame, and the result fans out to every
// registered sink. The producing loop honors the collective pause barrier.
package player

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slidestream/slidestream/internal/frame"
)

// PacketSource is the demuxer boundary: an ordered stream of compressed
// packets ending with an EOS packet.
type PacketSource interface {
	Open() error
	// Read returns the next packet. After the EOS packet it keeps
	// returning EOS.
	Read() (frame.Packet, error)
	Close() error
}

// JPEGDirSource demuxes a directory of JPEG files into one packet per
// file, ordered by name, with timestamps spaced at the given frame rate.
type JPEGDirSource struct {
	dir   string
	rate  float64
	paths []string
	next  int
}

// NewJPEGDirSource builds a source over dir at rate frames per second.
func NewJPEGDirSource(dir string, rate float64) *JPEGDirSource {
	if rate <= 0 {
		rate = 25
	}
	return &JPEGDirSource{dir: dir, rate: rate}
}

func (s *JPEGDirSource) Open() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.dir, err)
	}

	s.paths = s.paths[:0]
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			s.paths = append(s.paths, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(s.paths)
	if len(s.paths) == 0 {
		return fmt.Errorf("no JPEG files in %s", s.dir)
	}
	s.next = 0
	return nil
}

func (s *JPEGDirSource) Read() (frame.Packet, error) {
	if s.next >= len(s.paths) {
		return frame.EOFPacket(), nil
	}

	data, err := os.ReadFile(s.paths[s.next])
	if err != nil {
		return frame.Packet{}, err
	}
	pts := float64(s.next) / s.rate
	s.next++
	return frame.Packet{Data: data, PTS: pts}, nil
}

func (s *JPEGDirSource) Close() error {
	s.paths = nil
	return nil
}
