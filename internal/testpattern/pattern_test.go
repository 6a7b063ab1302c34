package testpattern

import (
	"bytes"
	"testing"

	"github.com/smazurov/camcorder/internal/media"
)

func TestVideoSourceFrames(t *testing.T) {
	caps := media.VideoCaps{Width: 320, Height: 240, FPS: media.Frac(30, 1)}
	src := NewVideoSource(caps)

	first := src.Next()
	if first.PTS != 0 {
		t.Errorf("first PTS = %d", first.PTS)
	}
	if first.Caps.Format != media.PixelFormatYUV420P {
		t.Errorf("format = %v", first.Caps.Format)
	}
	if len(first.Planes[0]) < 320*240 {
		t.Errorf("luma plane %d bytes", len(first.Planes[0]))
	}

	// Leftmost bar is white, rightmost is black.
	if first.Planes[0][0] != 235 {
		t.Errorf("left edge luma = %d", first.Planes[0][0])
	}
	if got := first.Planes[0][319]; got != 16 {
		t.Errorf("right edge luma = %d", got)
	}

	second := src.Next()
	if second.PTS != 1 {
		t.Errorf("second PTS = %d", second.PTS)
	}
	if bytes.Equal(first.Planes[0], second.Planes[0]) {
		t.Error("successive frames identical, bars did not scroll")
	}
}

func TestAudioSourceTone(t *testing.T) {
	caps := media.AudioCaps{Layout: media.LayoutStereo, Rate: 48000}
	src := NewAudioSource(caps, 480)

	f := src.Next()
	if f.Samples != 480 {
		t.Errorf("samples = %d", f.Samples)
	}
	if want := 480 * 2 * 2; len(f.Data) != want {
		t.Errorf("data = %d bytes, want %d", len(f.Data), want)
	}
	if f.Caps.Format != media.SampleFormatS16 {
		t.Errorf("format = %v", f.Caps.Format)
	}

	silent := true
	for _, b := range f.Data {
		if b != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("tone frame is silent")
	}

	next := src.Next()
	if next.PTS != 480 {
		t.Errorf("second frame PTS = %d, want 480", next.PTS)
	}
}
