package media

// Packet is one compressed frame emitted by an encoder adapter and consumed
// by a muxer adapter.
type Packet struct {
	Caps     CompressedCaps
	Data     []byte
	PTS      int64
	DTS      int64
	Duration int64
	TimeBase Fraction
	Keyframe bool
	// Extra carries opaque adapter-specific metadata alongside the payload,
	// such as the hardware buffer info of a platform codec.
	Extra []byte
}

// TimeMillis converts the packet pts to integer milliseconds using its time
// base. Container writers that timestamp in milliseconds use this.
func (p Packet) TimeMillis() int64 {
	if p.TimeBase.Den == 0 {
		return 0
	}
	return p.PTS * 1000 * int64(p.TimeBase.Num) / int64(p.TimeBase.Den)
}
