// Package testpattern generates synthetic frames for exercising the
// pipeline without a capture device: colour bars on the video side, a
// reference tone on the audio side.
package testpattern

import (
	"encoding/binary"
	"math"

	"github.com/smazurov/camcorder/internal/media"
)

// BT.601 100% colour bars, white to black.
var bars = [8][3]byte{
	{235, 128, 128},
	{210, 16, 146},
	{170, 166, 16},
	{145, 54, 34},
	{106, 202, 222},
	{81, 90, 240},
	{41, 240, 110},
	{16, 128, 128},
}

const toneHz = 440

// VideoSource produces yuv420p colour-bar frames. The bars scroll one
// pixel per frame so successive frames are never identical.
type VideoSource struct {
	caps media.VideoCaps
	pts  int64
}

func NewVideoSource(caps media.VideoCaps) *VideoSource {
	caps.Format = media.PixelFormatYUV420P
	return &VideoSource{caps: caps}
}

func (s *VideoSource) Caps() media.VideoCaps {
	return s.caps
}

// Next returns the frame at the current position and advances one frame.
func (s *VideoSource) Next() *media.VideoFrame {
	f := media.NewVideoFrame(s.caps)
	f.PTS = s.pts

	w, h := s.caps.Width, s.caps.Height
	shift := int(s.pts % int64(w))
	for y := 0; y < h; y++ {
		row := f.Planes[0][y*f.Strides[0]:]
		for x := 0; x < w; x++ {
			row[x] = bars[(x+shift)*len(bars)/w%len(bars)][0]
		}
	}
	cw, ch := (w+1)/2, (h+1)/2
	for y := 0; y < ch; y++ {
		cb := f.Planes[1][y*f.Strides[1]:]
		cr := f.Planes[2][y*f.Strides[2]:]
		for x := 0; x < cw; x++ {
			bar := (2*x + shift) * len(bars) / w % len(bars)
			cb[x] = bars[bar][1]
			cr[x] = bars[bar][2]
		}
	}

	s.pts++
	return f
}

// AudioSource produces s16le frames carrying a 440Hz sine across all
// channels.
type AudioSource struct {
	caps    media.AudioCaps
	samples int
	pts     int64
	phase   float64
}

// NewAudioSource builds a source emitting samplesPerFrame samples per
// call. The sample format is forced to s16.
func NewAudioSource(caps media.AudioCaps, samplesPerFrame int) *AudioSource {
	caps.Format = media.SampleFormatS16
	if samplesPerFrame <= 0 {
		samplesPerFrame = 1024
	}
	return &AudioSource{caps: caps, samples: samplesPerFrame}
}

func (s *AudioSource) Caps() media.AudioCaps {
	return s.caps
}

// Next returns the frame at the current position and advances by its
// sample count.
func (s *AudioSource) Next() *media.AudioFrame {
	channels := s.caps.Layout.Channels()
	data := make([]byte, s.samples*channels*2)
	step := 2 * math.Pi * toneHz / float64(s.caps.Rate)
	for i := 0; i < s.samples; i++ {
		v := uint16(int16(math.Sin(s.phase) * 8191))
		s.phase += step
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(data[(i*channels+c)*2:], v)
		}
	}

	f := &media.AudioFrame{
		Caps:    s.caps,
		Data:    data,
		Samples: s.samples,
		PTS:     s.pts,
	}
	s.pts += int64(s.samples)
	return f
}
