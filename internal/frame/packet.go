package frame

// Packet is one compressed-data unit, produced by demuxing and consumed by
// decode or mux. A packet with EOS set carries no data and tells the decoder
// to drain its internal buffers.
type Packet struct {
	Data []byte
	PTS  float64
	EOS  bool
}

// EOFPacket returns the end-of-stream sentinel.
func EOFPacket() Packet {
	return Packet{EOS: true}
}

// IsEOF reports whether the packet is the end-of-stream sentinel.
func (p Packet) IsEOF() bool {
	return p.EOS
}
