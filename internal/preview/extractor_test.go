package preview

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/camcorder/internal/events"
)

type fakeClip struct {
	duration time.Duration
	gotAt    *time.Duration
	fail     bool
}

func (c *fakeClip) Duration() time.Duration { return c.duration }

func (c *fakeClip) FrameAt(at time.Duration) (image.Image, error) {
	*c.gotAt = at
	if c.fail {
		return nil, fmt.Errorf("no frame")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 640, 360))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	return img, nil
}

func (c *fakeClip) Close() error { return nil }

type fakeSource struct {
	clip *fakeClip
}

func (s *fakeSource) Extensions() []string { return []string{"mkv"} }

func (s *fakeSource) Open(string) (Clip, error) { return s.clip, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractWritesThumbnail(t *testing.T) {
	dir := t.TempDir()
	bus := events.New()
	got := make(chan events.VideoPreviewEvent, 1)
	unsub := bus.Subscribe(func(e events.VideoPreviewEvent) { got <- e })
	defer unsub()

	var at time.Duration
	x := NewExtractor(bus, dir, testLogger())
	defer x.Close()
	x.RegisterSource(&fakeSource{clip: &fakeClip{duration: 20 * time.Second, gotAt: &at}})

	video := "/videos/Video 2026-01-02 03-04-05.mkv"
	if !x.Extract(video) {
		t.Fatal("Extract returned false")
	}
	x.Wait()

	thumb := filepath.Join(dir, "Video 2026-01-02 03-04-05.png")
	if _, err := os.Stat(thumb); err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	// A tenth of 20s.
	if at != 2*time.Second {
		t.Errorf("frame position = %v, want 2s", at)
	}

	select {
	case e := <-got:
		if e.Video != video || e.Thumbnail != thumb {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("preview event not published")
	}
}

func TestExtractUnknownExtension(t *testing.T) {
	x := NewExtractor(events.New(), t.TempDir(), testLogger())
	defer x.Close()

	if x.Extract("/videos/clip.avi") {
		t.Error("Extract accepted a file with no source")
	}
}

func TestExtractSyncReportsFailure(t *testing.T) {
	var at time.Duration
	x := NewExtractor(events.New(), t.TempDir(), testLogger())
	defer x.Close()
	x.RegisterSource(&fakeSource{clip: &fakeClip{duration: time.Second, gotAt: &at, fail: true}})

	if _, err := x.ExtractSync("/videos/clip.mkv"); err == nil {
		t.Error("expected error from failing clip")
	}
}

func TestThumbnailFitsBox(t *testing.T) {
	var at time.Duration
	dir := t.TempDir()
	x := NewExtractor(events.New(), dir, testLogger())
	defer x.Close()
	x.RegisterSource(&fakeSource{clip: &fakeClip{duration: time.Second, gotAt: &at}})

	path, err := x.ExtractSync("/videos/clip.mkv")
	if err != nil {
		t.Fatalf("ExtractSync: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width > 512 || cfg.Height > 288 {
		t.Errorf("thumbnail %dx%d exceeds 512x288", cfg.Width, cfg.Height)
	}
}
