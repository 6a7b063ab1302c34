// Package media defines the uncompressed and compressed stream descriptions,
// frames and packets exchanged between the capture side, the encoder and
// muxer adapters, and the derived-media pipeline.
package media

// Type identifies the media kind of a stream, frame or packet.
type Type int

const (
	TypeUnknown Type = iota
	TypeAudio
	TypeVideo
)

func (t Type) String() string {
	switch t {
	case TypeAudio:
		return "audio"
	case TypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// SampleFormat is the in-memory layout of one audio sample.
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	// SampleFormatS16 is interleaved signed 16-bit little-endian PCM.
	SampleFormatS16
)

func (f SampleFormat) String() string {
	if f == SampleFormatS16 {
		return "s16"
	}
	return "none"
}

// BytesPerSample returns the storage size of a single sample.
func (f SampleFormat) BytesPerSample() int {
	if f == SampleFormatS16 {
		return 2
	}
	return 0
}

// ChannelLayout describes the speaker arrangement of an audio stream.
type ChannelLayout int

const (
	LayoutNone ChannelLayout = iota
	LayoutMono
	LayoutStereo
)

func (l ChannelLayout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	default:
		return "none"
	}
}

// Channels returns the channel count for the layout.
func (l ChannelLayout) Channels() int {
	switch l {
	case LayoutMono:
		return 1
	case LayoutStereo:
		return 2
	default:
		return 0
	}
}

// PixelFormat is the in-memory layout of one video frame.
type PixelFormat int

const (
	PixelFormatNone PixelFormat = iota
	// PixelFormatYUV420P is planar YCbCr with 2x2 chroma subsampling.
	PixelFormatYUV420P
	// PixelFormatNRGBA is a single interleaved plane of 32-bit RGBA pixels.
	PixelFormatNRGBA
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatNRGBA:
		return "nrgba"
	default:
		return "none"
	}
}

// AudioCaps describes an uncompressed audio stream. Compared by value.
type AudioCaps struct {
	Format SampleFormat
	Layout ChannelLayout
	Rate   int
}

// IsValid reports whether the caps describe a usable stream.
func (c AudioCaps) IsValid() bool {
	return c.Format != SampleFormatNone && c.Layout != LayoutNone && c.Rate > 0
}

// BytesPerFrame is the storage size of one sample across all channels.
func (c AudioCaps) BytesPerFrame() int {
	return c.Format.BytesPerSample() * c.Layout.Channels()
}

// VideoCaps describes an uncompressed video stream. Compared by value.
type VideoCaps struct {
	Format PixelFormat
	Width  int
	Height int
	FPS    Fraction
}

// IsValid reports whether the caps describe a usable stream.
func (c VideoCaps) IsValid() bool {
	return c.Format != PixelFormatNone && c.Width > 0 && c.Height > 0 && c.FPS.IsValid()
}

// CompressedCaps describes the output of an encoder adapter: the codec
// identity, the wrapped raw caps and the target bitrate. Produced by an
// encoder, consumed by a muxer.
type CompressedCaps struct {
	Codec   string
	Type    Type
	Audio   AudioCaps
	Video   VideoCaps
	Bitrate int
}

// IsValid reports whether a codec and matching raw caps are present.
func (c CompressedCaps) IsValid() bool {
	if c.Codec == "" {
		return false
	}
	switch c.Type {
	case TypeAudio:
		return c.Audio.IsValid()
	case TypeVideo:
		return c.Video.IsValid()
	default:
		return false
	}
}

// Rate returns the stream rate in pts units per second: the sample rate for
// audio, the frame rate for video. Used to convert encoded pts to wall time.
func (c CompressedCaps) Rate() float64 {
	switch c.Type {
	case TypeAudio:
		return float64(c.Audio.Rate)
	case TypeVideo:
		return c.Video.FPS.Value()
	default:
		return 0
	}
}
