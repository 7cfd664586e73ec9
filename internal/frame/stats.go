package frame

import "sync"

// Statistics aggregates per-stream metadata for one playback or export
// session. It is mutated by the decoder/demuxer stage and read by the OSD
// and status surfaces; all accessors lock.
type Statistics struct {
	mu sync.RWMutex

	codecName   string
	bitRate     int
	frameRate   float64
	currentTime float64
	totalTime   float64
	frames      uint64
	dropped     uint64
}

// Reset clears all fields. Called between media loads.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codecName = ""
	s.bitRate = 0
	s.frameRate = 0
	s.currentTime = 0
	s.totalTime = 0
	s.frames = 0
	s.dropped = 0
}

// SetStream records the stream-level fields discovered at open time.
func (s *Statistics) SetStream(codecName string, bitRate int, frameRate, totalTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codecName = codecName
	s.bitRate = bitRate
	s.frameRate = frameRate
	s.totalTime = totalTime
}

// FrameDelivered advances the play head and frame counter.
func (s *Statistics) FrameDelivered(pts float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime = pts
	s.frames++
}

// FrameDropped counts a frame discarded before delivery.
func (s *Statistics) FrameDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped++
}

// Snapshot is a point-in-time copy of the statistics, safe to serialize.
type Snapshot struct {
	CodecName   string  `json:"codec_name"`
	BitRate     int     `json:"bit_rate"`
	FrameRate   float64 `json:"frame_rate"`
	CurrentTime float64 `json:"current_time"`
	TotalTime   float64 `json:"total_time"`
	Frames      uint64  `json:"frames"`
	Dropped     uint64  `json:"dropped"`
}

// Snapshot returns a copy of the current values.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CodecName:   s.codecName,
		BitRate:     s.bitRate,
		FrameRate:   s.frameRate,
		CurrentTime: s.currentTime,
		TotalTime:   s.totalTime,
		Frames:      s.frames,
		Dropped:     s.dropped,
	}
}
