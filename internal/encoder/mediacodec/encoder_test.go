package mediacodec

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

var testHeaders = []byte{0x01, 0x64, 0x00, 0x1f}

type fakeOutput struct {
	data []byte
	info BufferInfo
}

// fakeDevice emits a codec config buffer before the first frame, then one
// compressed buffer per queued input with a keyframe every gopFrames.
type fakeDevice struct {
	mu        sync.Mutex
	started   bool
	stopped   bool
	mime      string
	gopFrames int
	format    Format

	input   []byte
	outputs []fakeOutput
	frames  int
}

func (d *fakeDevice) Start() error { d.started = true; return nil }
func (d *fakeDevice) Stop() error  { d.stopped = true; return nil }

func (d *fakeDevice) InputFormat() Format { return d.format }

func (d *fakeDevice) DequeueInput(time.Duration) (int, []byte, error) {
	if d.input == nil {
		d.input = make([]byte, 1<<20)
	}
	return 0, d.input, nil
}

func (d *fakeDevice) QueueInput(index, size int, ptsMicros int64, flags Flags) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if flags&FlagEndOfStream != 0 {
		d.outputs = append(d.outputs, fakeOutput{
			info: BufferInfo{Flags: FlagEndOfStream},
		})
		return nil
	}
	if d.frames == 0 {
		d.outputs = append(d.outputs, fakeOutput{
			data: testHeaders,
			info: BufferInfo{Size: len(testHeaders), Flags: FlagCodecConfig},
		})
	}
	var flagsOut Flags
	if d.gopFrames > 0 && d.frames%d.gopFrames == 0 {
		flagsOut = FlagKeyframe
	}
	payload := []byte{0xde, 0xad, byte(d.frames)}
	d.outputs = append(d.outputs, fakeOutput{
		data: payload,
		info: BufferInfo{Size: len(payload), PTSMicros: ptsMicros, Flags: flagsOut},
	})
	d.frames++
	return nil
}

func (d *fakeDevice) DequeueOutput(time.Duration) (int, []byte, BufferInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.outputs) == 0 {
		return 0, nil, BufferInfo{}, ErrTryAgain
	}
	out := d.outputs[0]
	d.outputs = d.outputs[1:]
	return 0, out.data, out.info, nil
}

func (d *fakeDevice) ReleaseOutput(int) error { return nil }

func testCaps() media.VideoCaps {
	return media.VideoCaps{
		Format: media.PixelFormatYUV420P,
		Width:  320,
		Height: 240,
		FPS:    media.Frac(30, 1),
	}
}

func newTestEncoder(t *testing.T) (*Encoder, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	e := New(func(mime string, w, h, fpsNum, fpsDen, bitrate, gopFrames int) (Device, error) {
		dev.mime = mime
		dev.gopFrames = gopFrames
		return dev, nil
	})
	e.SetInputCaps(testCaps())
	return e, dev
}

func writeFrame(e *Encoder, pts int64) {
	f := media.NewVideoFrame(testCaps())
	f.PTS = pts
	e.Write(f)
}

func TestRegisterRequiresOpener(t *testing.T) {
	reg := plugin.New()
	Register(reg, nil)
	if len(reg.VideoEncoders()) != 0 {
		t.Error("plugin registered without an opener")
	}

	Register(reg, func(string, int, int, int, int, int, int) (Device, error) {
		return &fakeDevice{}, nil
	})
	if len(reg.VideoEncoders()) != 1 {
		t.Error("plugin not registered with an opener")
	}
}

func TestStartOpensDevice(t *testing.T) {
	e, dev := newTestEncoder(t)
	e.SetGOP(1000)

	if !e.SetState(codec.StateRunning) {
		t.Fatal("SetState failed")
	}
	if !dev.started {
		t.Error("device not started")
	}
	if dev.mime != "video/avc" {
		t.Errorf("mime = %q, want video/avc", dev.mime)
	}
	// 1000ms at 30fps.
	if dev.gopFrames != 30 {
		t.Errorf("gopFrames = %d, want 30", dev.gopFrames)
	}
}

func TestStartRejectsInvalidCaps(t *testing.T) {
	e, _ := newTestEncoder(t)
	e.SetInputCaps(media.VideoCaps{})
	if e.SetState(codec.StateRunning) {
		t.Error("started with invalid caps")
	}
}

func TestWriteCapturesHeadersAndPackets(t *testing.T) {
	e, _ := newTestEncoder(t)

	var pkts []media.Packet
	e.SetSink(func(p media.Packet) { pkts = append(pkts, p) })
	if !e.SetState(codec.StateRunning) {
		t.Fatal("SetState failed")
	}

	writeFrame(e, 0)
	writeFrame(e, 1)

	if !bytes.Equal(e.Headers(), testHeaders) {
		t.Errorf("Headers = %x, want %x", e.Headers(), testHeaders)
	}
	if len(pkts) != 2 {
		t.Fatalf("got %d packets, want 2", len(pkts))
	}
	if !pkts[0].Keyframe {
		t.Error("first packet must be a keyframe")
	}
	if pkts[1].Keyframe {
		t.Error("second packet must not be a keyframe")
	}
	if pkts[0].PTS != 0 || pkts[1].PTS != 1 {
		t.Errorf("pts = %d, %d; want 0, 1", pkts[0].PTS, pkts[1].PTS)
	}
	if got := e.EncodedTimePts(); got != 2 {
		t.Errorf("EncodedTimePts = %d, want 2", got)
	}
}

func TestPacketCarriesBufferInfo(t *testing.T) {
	e, _ := newTestEncoder(t)

	var pkts []media.Packet
	e.SetSink(func(p media.Packet) { pkts = append(pkts, p) })
	if !e.SetState(codec.StateRunning) {
		t.Fatal("SetState failed")
	}
	writeFrame(e, 30)

	if len(pkts) != 1 {
		t.Fatalf("got %d packets", len(pkts))
	}
	info, ok := DecodeBufferInfo(pkts[0].Extra)
	if !ok {
		t.Fatal("packet side data missing")
	}
	// Frame 30 at 30fps sits at exactly one second.
	if info.PTSMicros != 1_000_000 {
		t.Errorf("PTSMicros = %d, want 1000000", info.PTSMicros)
	}
	if info.Flags&FlagKeyframe == 0 {
		t.Error("keyframe flag lost in side data")
	}
}

func TestStopDrainsEndOfStream(t *testing.T) {
	e, dev := newTestEncoder(t)
	e.SetSink(func(media.Packet) {})
	if !e.SetState(codec.StateRunning) {
		t.Fatal("SetState failed")
	}
	writeFrame(e, 0)

	if !e.SetState(codec.StateStopped) {
		t.Fatal("stop rejected")
	}
	if !dev.stopped {
		t.Error("device not stopped")
	}
}

func TestPackFramePadsToStride(t *testing.T) {
	frame := media.NewVideoFrame(testCaps())
	format := Format{Width: 320, Height: 240, Stride: 384, SliceHeight: 256}
	dst := make([]byte, 1<<20)

	size := packFrame(dst, frame, format)
	want := 384*256 + 2*(192*128)
	if size != want {
		t.Errorf("packed size = %d, want %d", size, want)
	}
}

func TestGopFrames(t *testing.T) {
	tests := []struct {
		ms   int
		fps  media.Fraction
		want int
	}{
		{1000, media.Frac(30, 1), 30},
		{1000, media.Frac(30000, 1001), 29},
		{10, media.Frac(30, 1), 1},
		{0, media.Frac(30, 1), 1},
	}
	for _, tt := range tests {
		if got := gopFrames(tt.ms, tt.fps); got != tt.want {
			t.Errorf("gopFrames(%d, %v) = %d, want %d", tt.ms, tt.fps, got, tt.want)
		}
	}
}
