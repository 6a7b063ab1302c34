package media

// AudioFrame is a chunk of uncompressed interleaved audio samples.
// PTS counts samples since the start of the stream.
type AudioFrame struct {
	Caps    AudioCaps
	Data    []byte
	Samples int
	PTS     int64
}

// VideoFrame is one uncompressed picture. PTS counts frames since the start
// of the stream; the implicit time base is 1/Caps.FPS.
type VideoFrame struct {
	Caps    VideoCaps
	Planes  [][]byte
	Strides []int
	PTS     int64
}

// NewVideoFrame allocates plane storage for the given caps.
func NewVideoFrame(caps VideoCaps) *VideoFrame {
	f := &VideoFrame{Caps: caps}
	switch caps.Format {
	case PixelFormatYUV420P:
		cw := (caps.Width + 1) / 2
		ch := (caps.Height + 1) / 2
		f.Planes = [][]byte{
			make([]byte, caps.Width*caps.Height),
			make([]byte, cw*ch),
			make([]byte, cw*ch),
		}
		f.Strides = []int{caps.Width, cw, cw}
	case PixelFormatNRGBA:
		f.Planes = [][]byte{make([]byte, 4*caps.Width*caps.Height)}
		f.Strides = []int{4 * caps.Width}
	}
	return f
}

// Clone returns a deep copy of the frame. Used when a frame must outlive the
// capture buffer it arrived in.
func (f *VideoFrame) Clone() *VideoFrame {
	if f == nil {
		return nil
	}
	c := &VideoFrame{Caps: f.Caps, PTS: f.PTS}
	c.Planes = make([][]byte, len(f.Planes))
	for i, p := range f.Planes {
		c.Planes[i] = append([]byte(nil), p...)
	}
	c.Strides = append([]int(nil), f.Strides...)
	return c
}

// Frame is the unit routed from the capture side into the recording session.
// Exactly one of Audio or Video is set, matching Type.
type Frame struct {
	Type  Type
	Audio *AudioFrame
	Video *VideoFrame
}

// AudioInput wraps an audio frame for routing.
func AudioInput(f *AudioFrame) Frame {
	return Frame{Type: TypeAudio, Audio: f}
}

// VideoInput wraps a video frame for routing.
func VideoInput(f *VideoFrame) Frame {
	return Frame{Type: TypeVideo, Video: f}
}
