// Package codec defines the adapter contracts the recording session drives:
// encoder adapters that turn raw frames into compressed packets, and muxer
// adapters that interleave those packets into a container file. Concrete
// implementations live under internal/encoder and internal/muxer and register
// themselves with the plugin registry.
package codec

import "github.com/smazurov/camcorder/internal/media"

// State is the lifecycle state of an encoder or muxer adapter. Adapters are
// driven Stopped -> Paused -> Running -> Stopped once per recording and must
// reject re-entering Running without passing through Stopped.
type State int

const (
	StateStopped State = iota
	StatePaused
	StateRunning
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// PacketFunc receives compressed packets from an encoder adapter. Delivery
// happens on the adapter's own goroutine or the caller of Write, never
// concurrently for a single adapter.
type PacketFunc func(media.Packet)

// Encoder is the contract shared by audio and video encoder adapters.
type Encoder interface {
	// Codecs lists the codec identifiers this adapter can produce.
	Codecs() []string
	// CodecDescription returns a display name for one of Codecs().
	CodecDescription(name string) string
	// SetCodec selects the active codec. False if the name is unknown.
	SetCodec(name string) bool
	Codec() string

	Bitrate() int
	SetBitrate(bitrate int)
	// SetFillGaps makes the encoder duplicate frames over pts gaps, for
	// containers that do not allow timestamp discontinuities.
	SetFillGaps(fill bool)

	// OutputCaps describes the compressed stream this adapter will emit
	// with its current configuration.
	OutputCaps() media.CompressedCaps
	// Headers is the codec configuration blob a muxer must store before
	// any data packets. Valid once the adapter reaches Paused.
	Headers() []byte
	// EncodedTimePts is the total encoded presentation time in stream
	// units (samples for audio, frames for video).
	EncodedTimePts() int64

	// SetSink installs the packet consumer. Must be set before Running.
	SetSink(sink PacketFunc)

	Options() Options
	OptionValue(name string) any
	SetOptionValue(name string, value any)

	State() State
	// SetState drives the adapter lifecycle. Returns false for rejected
	// transitions, including same-state transitions.
	SetState(state State) bool
}

// AudioEncoder encodes uncompressed audio frames.
type AudioEncoder interface {
	Encoder
	InputCaps() media.AudioCaps
	SetInputCaps(caps media.AudioCaps)
	// Write feeds one frame. Only consumed in the Running state; frames
	// arriving in any other state are dropped.
	Write(frame *media.AudioFrame)
}

// VideoEncoder encodes uncompressed video frames.
type VideoEncoder interface {
	Encoder
	InputCaps() media.VideoCaps
	SetInputCaps(caps media.VideoCaps)
	// GOP is the keyframe interval in milliseconds.
	GOP() int
	SetGOP(ms int)
	Write(frame *media.VideoFrame)
}

// Muxer writes compressed packets for up to one audio and one video stream
// into a container file.
type Muxer interface {
	// Formats lists the container format names this adapter can write.
	Formats() []string
	FormatDescription(format string) string
	// Extension returns the file extension for a format, without the dot.
	Extension(format string) string
	// SupportedCodecs lists the codec identifiers the format accepts for
	// the given media type.
	SupportedCodecs(format string, t media.Type) []string
	// DefaultCodec is the preferred codec identifier for the media type.
	DefaultCodec(format string, t media.Type) string
	// GapsAllowed reports whether the format tolerates pts gaps for the
	// given media type.
	GapsAllowed(t media.Type) bool

	// SetFormat selects the active container format. False if unknown.
	SetFormat(format string) bool
	Format() string

	SetLocation(path string)
	Location() string

	// SetStreamCaps declares a stream before the muxer starts. The media
	// type is taken from the caps.
	SetStreamCaps(caps media.CompressedCaps)
	SetStreamBitrate(t media.Type, bitrate int)
	SetStreamHeaders(t media.Type, headers []byte)
	// SetStreamDuration records the final stream length in pts units,
	// set during teardown before the muxer is stopped.
	SetStreamDuration(t media.Type, pts int64)

	// Write appends one compressed packet to its stream. Only valid in
	// the Running state.
	Write(pkt media.Packet)

	Options() Options
	OptionValue(name string) any
	SetOptionValue(name string, value any)

	State() State
	SetState(state State) bool
}
