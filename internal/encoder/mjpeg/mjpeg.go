// Package mjpeg provides the software video encoder. Every frame is
// compressed to a standalone JPEG image, so every packet is a keyframe and
// seeking never needs codec state.
package mjpeg

import (
	"bytes"
	"image/jpeg"
	"sync"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

// PluginID identifies this adapter in the registry.
const PluginID = "encoder.mjpeg"

// Register adds the MJPEG encoder to the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterVideoEncoder(plugin.Info{
		ID:          PluginID,
		Description: "Motion JPEG video encoder",
		Priority:    0,
	}, func() codec.VideoEncoder { return New() })
}

// Encoder compresses raw frames with image/jpeg.
type Encoder struct {
	codec.EncoderBase
	codec.Lifecycle

	mu      sync.Mutex
	caps    media.VideoCaps
	gop     int
	lastPTS int64
	lastPkt []byte
}

func New() *Encoder {
	e := &Encoder{gop: 1000}
	e.DeclareCodecs([]codec.Option{
		{Name: "mjpeg", Description: "Motion JPEG"},
	})
	e.DeclareOptions(codec.Options{
		{Name: "quality", Description: "JPEG quality, 1-100; -1 derives it from the bitrate", Default: -1},
	})
	e.Lifecycle.Start = e.start
	return e
}

func (e *Encoder) start() bool {
	e.mu.Lock()
	ok := e.caps.IsValid()
	e.lastPTS = -1
	e.lastPkt = nil
	e.mu.Unlock()
	if ok {
		e.ResetEncoded()
	}
	return ok
}

func (e *Encoder) InputCaps() media.VideoCaps {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps
}

func (e *Encoder) SetInputCaps(caps media.VideoCaps) {
	e.mu.Lock()
	e.caps = caps
	e.mu.Unlock()
}

func (e *Encoder) GOP() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gop
}

func (e *Encoder) SetGOP(ms int) {
	e.mu.Lock()
	e.gop = ms
	e.mu.Unlock()
}

func (e *Encoder) OutputCaps() media.CompressedCaps {
	e.mu.Lock()
	caps := e.caps
	e.mu.Unlock()
	return media.CompressedCaps{
		Codec:   e.Codec(),
		Type:    media.TypeVideo,
		Video:   caps,
		Bitrate: e.Bitrate(),
	}
}

// Headers returns nil: each JPEG carries its own tables.
func (e *Encoder) Headers() []byte {
	return nil
}

// Write compresses one frame. With gap filling on, missing pts slots are
// padded with the previous compressed frame so container timestamps stay
// contiguous.
func (e *Encoder) Write(frame *media.VideoFrame) {
	if frame == nil || !e.Running() {
		return
	}
	e.mu.Lock()
	caps := e.caps
	last := e.lastPTS
	prev := e.lastPkt
	e.mu.Unlock()
	if frame.Caps != caps {
		return
	}
	if frame.PTS <= last {
		return
	}

	if e.FillGaps() && last >= 0 && prev != nil {
		for pts := last + 1; pts < frame.PTS; pts++ {
			e.emit(prev, pts, caps)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, media.ToYCbCr(frame), &jpeg.Options{Quality: e.quality()}); err != nil {
		return
	}
	data := buf.Bytes()
	e.emit(data, frame.PTS, caps)

	e.mu.Lock()
	e.lastPTS = frame.PTS
	e.lastPkt = data
	e.mu.Unlock()
}

func (e *Encoder) emit(data []byte, pts int64, caps media.VideoCaps) {
	e.Emit(media.Packet{
		Caps:     e.OutputCaps(),
		Data:     data,
		PTS:      pts,
		DTS:      pts,
		Duration: 1,
		TimeBase: caps.FPS.Invert(),
		Keyframe: true,
	})
	e.RecordEncoded(pts + 1)
}

// quality resolves the effective JPEG quality. Unset, it maps the target
// bits per pixel onto the 2..97 range; the mapping is rough, MJPEG rate
// control is out of scope for a software fallback encoder.
func (e *Encoder) quality() int {
	if q, ok := e.OptionValue("quality").(int); ok && q >= 1 && q <= 100 {
		return q
	}
	e.mu.Lock()
	caps := e.caps
	e.mu.Unlock()
	bitrate := e.Bitrate()
	pixelRate := float64(caps.Width*caps.Height) * caps.FPS.Value()
	if bitrate <= 0 || pixelRate <= 0 {
		return jpeg.DefaultQuality
	}
	bpp := float64(bitrate) / pixelRate
	q := int(bpp * 60)
	if q < 2 {
		q = 2
	}
	if q > 97 {
		q = 97
	}
	return q
}
