// Package pcm provides the uncompressed audio encoder. PCM needs no codec
// library; the adapter validates caps, stamps packets, and tracks encoded
// time so container duration math works like it does for real codecs.
package pcm

import (
	"sync"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

// PluginID identifies this adapter in the registry.
const PluginID = "encoder.pcm"

// Register adds the PCM encoder to the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterAudioEncoder(plugin.Info{
		ID:          PluginID,
		Description: "PCM audio encoder",
		Priority:    0,
	}, func() codec.AudioEncoder { return New() })
}

// Encoder passes s16le samples through unchanged.
type Encoder struct {
	codec.EncoderBase
	codec.Lifecycle

	mu   sync.Mutex
	caps media.AudioCaps
}

func New() *Encoder {
	e := &Encoder{}
	e.DeclareCodecs([]codec.Option{
		{Name: "pcm_s16le", Description: "PCM signed 16-bit little-endian"},
	})
	e.Lifecycle.Start = e.start
	return e
}

func (e *Encoder) start() bool {
	e.mu.Lock()
	ok := e.caps.IsValid() && e.caps.Format == media.SampleFormatS16
	e.mu.Unlock()
	if ok {
		e.ResetEncoded()
	}
	return ok
}

func (e *Encoder) InputCaps() media.AudioCaps {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps
}

func (e *Encoder) SetInputCaps(caps media.AudioCaps) {
	e.mu.Lock()
	e.caps = caps
	e.mu.Unlock()
}

func (e *Encoder) OutputCaps() media.CompressedCaps {
	e.mu.Lock()
	caps := e.caps
	e.mu.Unlock()
	return media.CompressedCaps{
		Codec:   e.Codec(),
		Type:    media.TypeAudio,
		Audio:   caps,
		Bitrate: caps.Rate * caps.Layout.Channels() * 8 * caps.Format.BytesPerSample(),
	}
}

// Headers returns nil: raw PCM has no codec configuration blob.
func (e *Encoder) Headers() []byte {
	return nil
}

// Write forwards one frame as one packet. Frames outside the running state
// are dropped.
func (e *Encoder) Write(frame *media.AudioFrame) {
	if frame == nil || !e.Running() {
		return
	}
	e.mu.Lock()
	caps := e.caps
	e.mu.Unlock()
	if frame.Caps != caps || frame.Samples <= 0 {
		return
	}

	e.Emit(media.Packet{
		Caps:     e.OutputCaps(),
		Data:     frame.Data,
		PTS:      frame.PTS,
		DTS:      frame.PTS,
		Duration: int64(frame.Samples),
		TimeBase: media.Frac(1, caps.Rate),
		Keyframe: true,
	})
	e.RecordEncoded(frame.PTS + int64(frame.Samples))
}
