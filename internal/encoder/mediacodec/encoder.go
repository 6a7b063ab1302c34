package mediacodec

import (
	"math"
	"sync"
	"time"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

// PluginID identifies this adapter in the registry.
const PluginID = "encoder.mediacodec"

// processingTimeout bounds every buffer exchange with the device.
const processingTimeout = 3 * time.Second

type codecInfo struct {
	name        string
	mime        string
	description string
}

var codecTable = []codecInfo{
	{"h264", "video/avc", "H.264 (MediaCodec)"},
	{"hevc", "video/hevc", "H.265/HEVC (MediaCodec)"},
	{"vp8", "video/x-vnd.on2.vp8", "VP8 (MediaCodec)"},
	{"vp9", "video/x-vnd.on2.vp9", "VP9 (MediaCodec)"},
	{"av1", "video/av01", "AV1 (MediaCodec)"},
}

// Register adds the hardware encoder to the registry when an opener is
// available.
func Register(reg *plugin.Registry, opener Opener) {
	if opener == nil {
		return
	}
	reg.RegisterVideoEncoder(plugin.Info{
		ID:          PluginID,
		Description: "MediaCodec hardware video encoder",
		Priority:    10,
	}, func() codec.VideoEncoder { return New(opener) })
}

// Encoder drives one hardware codec instance per recording.
type Encoder struct {
	codec.EncoderBase
	codec.Lifecycle

	opener Opener

	mu      sync.Mutex
	caps    media.VideoCaps
	gop     int
	device  Device
	headers []byte
}

func New(opener Opener) *Encoder {
	e := &Encoder{opener: opener, gop: 1000}
	opts := make([]codec.Option, len(codecTable))
	for i, ci := range codecTable {
		opts[i] = codec.Option{Name: ci.name, Description: ci.description}
	}
	e.DeclareCodecs(opts)
	e.Lifecycle.Start = e.start
	e.Lifecycle.Stop = e.stop
	return e
}

func mimeFor(name string) string {
	for _, ci := range codecTable {
		if ci.name == name {
			return ci.mime
		}
	}
	return ""
}

// gopFrames converts the keyframe interval from milliseconds to frames at
// the configured rate. At least one frame per group.
func gopFrames(gopMs int, fps media.Fraction) int {
	frames := gopMs * fps.Num / (1000 * fps.Den)
	if frames < 1 {
		frames = 1
	}
	return frames
}

func (e *Encoder) start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.caps.IsValid() || e.caps.Format != media.PixelFormatYUV420P {
		return false
	}
	mime := mimeFor(e.Codec())
	if mime == "" {
		return false
	}

	dev, err := e.opener(mime, e.caps.Width, e.caps.Height,
		e.caps.FPS.Num, e.caps.FPS.Den,
		e.Bitrate(), gopFrames(e.gop, e.caps.FPS))
	if err != nil {
		return false
	}
	if err := dev.Start(); err != nil {
		return false
	}
	e.device = dev
	e.headers = nil
	e.ResetEncoded()
	return true
}

func (e *Encoder) stop() {
	e.mu.Lock()
	dev := e.device
	e.device = nil
	e.mu.Unlock()
	if dev == nil {
		return
	}
	e.drainEOS(dev)
	dev.Stop()
}

// drainEOS queues an end-of-stream input and consumes outputs until the
// device echoes the flag back or times out.
func (e *Encoder) drainEOS(dev Device) {
	if idx, _, err := dev.DequeueInput(processingTimeout); err == nil {
		dev.QueueInput(idx, 0, 0, FlagEndOfStream)
	}
	deadline := time.Now().Add(processingTimeout)
	for time.Now().Before(deadline) {
		info, ok := e.collectOutput(dev, processingTimeout)
		if !ok {
			return
		}
		if info.Flags&FlagEndOfStream != 0 {
			return
		}
	}
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

// Headers returns the codec configuration blob the device emitted, once it
// has.
func (e *Encoder) Headers() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.headers
}

// Write submits one frame and forwards whatever output buffers the device
// has ready. Frames are dropped when no input buffer frees up within the
// processing timeout.
func (e *Encoder) Write(frame *media.VideoFrame) {
	if frame == nil || !e.Running() {
		return
	}
	e.mu.Lock()
	dev := e.device
	caps := e.caps
	e.mu.Unlock()
	if dev == nil || frame.Caps != caps {
		return
	}

	idx, buf, err := dev.DequeueInput(processingTimeout)
	if err != nil {
		return
	}
	size := packFrame(buf, frame, dev.InputFormat())
	ptsMicros := int64(math.Round(float64(frame.PTS) * 1e6 / caps.FPS.Value()))
	if err := dev.QueueInput(idx, size, ptsMicros, 0); err != nil {
		return
	}

	// Drain without blocking: output lags input by a few frames and
	// whatever is not ready now is picked up on the next Write.
	for {
		if _, ok := e.collectOutput(dev, 0); !ok {
			return
		}
	}
}

// collectOutput claims one output buffer and routes it: codec config
// buffers become the stream headers, everything else is emitted as a
// packet. False when nothing was available.
func (e *Encoder) collectOutput(dev Device, timeout time.Duration) (BufferInfo, bool) {
	idx, buf, info, err := dev.DequeueOutput(timeout)
	if err != nil {
		return BufferInfo{}, false
	}
	defer dev.ReleaseOutput(idx)

	data := make([]byte, info.Size)
	copy(data, buf[info.Offset:info.Offset+info.Size])

	if info.Flags&FlagCodecConfig != 0 {
		e.mu.Lock()
		e.headers = data
		e.mu.Unlock()
		return info, true
	}
	if info.Size > 0 {
		e.mu.Lock()
		caps := e.caps
		e.mu.Unlock()
		pts := int64(math.Round(float64(info.PTSMicros) * caps.FPS.Value() / 1e6))
		e.Emit(media.Packet{
			Caps:     e.OutputCaps(),
			Data:     data,
			PTS:      pts,
			DTS:      pts,
			Duration: 1,
			TimeBase: caps.FPS.Invert(),
			Keyframe: info.Flags&FlagKeyframe != 0,
			Extra:    encodeBufferInfo(info),
		})
		e.RecordEncoded(pts + 1)
	}
	return info, true
}

// packFrame lays the frame's planes out in the device's geometry: rows
// padded to the stride, the luma plane padded to the slice height.
func packFrame(dst []byte, frame *media.VideoFrame, format Format) int {
	stride := format.Stride
	if stride <= 0 {
		stride = frame.Caps.Width
	}
	sliceHeight := format.SliceHeight
	if sliceHeight <= 0 {
		sliceHeight = frame.Caps.Height
	}

	offset := 0
	for plane := range frame.Planes {
		planeStride := stride
		planeHeight := frame.Caps.Height
		planeSlice := sliceHeight
		if plane > 0 {
			planeStride = stride / 2
			planeHeight = (frame.Caps.Height + 1) / 2
			planeSlice = (sliceHeight + 1) / 2
		}
		src := frame.Planes[plane]
		srcStride := frame.Strides[plane]
		rowLen := srcStride
		if planeStride < rowLen {
			rowLen = planeStride
		}
		for y := 0; y < planeHeight; y++ {
			row := dst[offset+y*planeStride:]
			copy(row[:rowLen], src[y*srcStride:])
		}
		offset += planeStride * planeSlice
	}
	return offset
}
