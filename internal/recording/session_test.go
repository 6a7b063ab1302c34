package recording

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/camcorder/internal/catalog"
	"github.com/smazurov/camcorder/internal/config"
	"github.com/smazurov/camcorder/internal/encoder/mjpeg"
	"github.com/smazurov/camcorder/internal/encoder/pcm"
	"github.com/smazurov/camcorder/internal/events"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/muxer/mkv"
	"github.com/smazurov/camcorder/internal/plugin"
	"github.com/smazurov/camcorder/internal/preview"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry() *plugin.Registry {
	reg := plugin.New()
	pcm.Register(reg)
	mjpeg.Register(reg)
	mkv.Register(reg)
	return reg
}

type testEnv struct {
	session   *Session
	store     *config.Store
	bus       *events.Bus
	extractor *preview.Extractor
	clk       *clock.Mock
	videoDir  string
	thumbDir  string
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	reg := testRegistry()
	cat := catalog.New(reg)

	store, err := config.Open(filepath.Join(t.TempDir(), "settings.toml"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	bus := events.New()
	thumbDir := t.TempDir()
	extractor := preview.NewExtractor(bus, thumbDir, testLogger())
	t.Cleanup(extractor.Close)
	extractor.RegisterSource(mkv.Source{})

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	videoDir := filepath.Join(t.TempDir(), "videos")
	opts := Options{
		Registry:  reg,
		Catalog:   cat,
		Store:     store,
		Bus:       bus,
		Extractor: extractor,
		Clock:     clk,
		Logger:    testLogger(),
		VideoDir:  videoDir,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{
		session:   s,
		store:     store,
		bus:       bus,
		extractor: extractor,
		clk:       clk,
		videoDir:  videoDir,
		thumbDir:  thumbDir,
	}
}

func smallCaps() media.VideoCaps {
	return media.VideoCaps{
		Format: media.PixelFormatYUV420P,
		Width:  320,
		Height: 240,
		FPS:    media.Frac(30, 1),
	}
}

func TestDefaultSelection(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.session.Parameters()

	if p.Format != "muxer.mkv:mkv" {
		t.Errorf("Format = %q", p.Format)
	}
	if p.AudioCodec != "encoder.pcm:pcm_s16le" {
		t.Errorf("AudioCodec = %q", p.AudioCodec)
	}
	if p.VideoCodec != "encoder.mjpeg:mjpeg" {
		t.Errorf("VideoCodec = %q", p.VideoCodec)
	}
	if p.AudioBitrate != 128000 || p.VideoBitrate != 1500000 || p.GOP != 1000 {
		t.Errorf("defaults = %+v", p)
	}
	if !p.RecordAudio {
		t.Error("RecordAudio default = false")
	}
	if p.VideoCaps.Width != 1280 || p.VideoCaps.Height != 720 {
		t.Errorf("VideoCaps = %+v", p.VideoCaps)
	}
}

func TestActiveNeedsVideoEncoder(t *testing.T) {
	// Empty registry: no formats, no codecs, no adapters.
	env := newTestEnv(t, func(o *Options) {
		reg := plugin.New()
		o.Registry = reg
		o.Catalog = catalog.New(reg)
	})

	if env.session.SetState(StateActive) {
		t.Error("activated without a video encoder")
	}
	if env.session.State() != StateIdle {
		t.Errorf("state = %v after failed start", env.session.State())
	}
}

func TestSelfTransitionRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	if s.SetState(StateIdle) {
		t.Error("idle self-transition accepted")
	}
	if !s.SetState(StateActive) {
		t.Fatal("start failed")
	}
	if s.SetState(StateActive) {
		t.Error("active self-transition accepted")
	}
	if !s.SetState(StateIdle) {
		t.Fatal("stop failed")
	}
}

func TestPausedFromIdleInitializesOnActive(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	if !s.SetState(StatePaused) {
		t.Fatal("pause from idle failed")
	}
	// Nothing initialized yet: no file on disk.
	if entries, _ := os.ReadDir(env.videoDir); len(entries) != 0 {
		t.Error("paused-from-idle opened a file")
	}

	if !s.SetState(StateActive) {
		t.Fatal("active from never-initialized paused failed")
	}
	want := filepath.Join(env.videoDir, "Video 2026-01-02 03-04-05.mkv")
	if s.Location() != want {
		t.Errorf("Location = %q, want %q", s.Location(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	if !s.SetState(StatePaused) {
		t.Fatal("pause from active failed")
	}
	if !s.SetState(StateIdle) {
		t.Fatal("stop from paused failed")
	}
}

func TestSetterIdempotence(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	var changes []Change
	unsub := s.OnChange(func(c Change) { changes = append(changes, c) })
	defer unsub()

	if !s.SetAudioBitrate(96000) || !s.SetAudioBitrate(96000) {
		t.Fatal("SetAudioBitrate rejected")
	}
	if !s.SetGOP(2000) || !s.SetGOP(2000) {
		t.Fatal("SetGOP rejected")
	}
	if !s.SetRecordAudio(false) || !s.SetRecordAudio(false) {
		t.Fatal("SetRecordAudio rejected")
	}

	if len(changes) != 3 {
		t.Errorf("got %d notifications, want 3: %+v", len(changes), changes)
	}
	g := env.store.Group("record")
	if g.Int("audio_bitrate", 0) != 96000 || g.Int("gop", 0) != 2000 || g.Bool("record_audio", true) {
		t.Error("values not persisted")
	}
}

func TestObserverCanReadSessionState(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	var seen []int
	unsub := s.OnChange(func(c Change) {
		if c.Name == "gop" {
			seen = append(seen, s.Parameters().GOP)
		}
	})
	defer unsub()

	done := make(chan struct{})
	go func() {
		s.SetGOP(700)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("setter blocked while notifying")
	}
	if len(seen) != 1 || seen[0] != 700 {
		t.Errorf("observed gop = %v, want [700]", seen)
	}
}

func TestVideoBitrateGuard(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		// Registry with a muxer but no video encoder.
		reg := plugin.New()
		pcm.Register(reg)
		mkv.Register(reg)
		o.Registry = reg
		o.Catalog = catalog.New(reg)
	})
	s := env.session

	var notified int
	unsub := s.OnChange(func(Change) { notified++ })
	defer unsub()

	if s.SetVideoBitrate(900000) {
		t.Error("bitrate accepted without a video encoder")
	}
	if notified != 0 {
		t.Error("notification fired for rejected bitrate")
	}
	if env.store.Group("record").Contains("video_bitrate") {
		t.Error("rejected bitrate was persisted")
	}

	env2 := newTestEnv(t, nil)
	if !env2.session.SetVideoBitrate(900000) {
		t.Error("bitrate rejected with a video encoder selected")
	}
	if got := env2.store.Group("record").Int("video_bitrate", 0); got != 900000 {
		t.Errorf("persisted video_bitrate = %d", got)
	}
}

func TestMalformedKeysRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	before := s.Parameters()
	if s.SetFormat("noseparator") {
		t.Error("malformed format key accepted")
	}
	if s.SetVideoCodec(":bad") {
		t.Error("malformed codec key accepted")
	}
	if s.SetFormat("muxer.mkv:nope") {
		t.Error("unknown format accepted")
	}
	after := s.Parameters()
	if before.Format != after.Format || before.VideoCodec != after.VideoCodec {
		t.Error("rejected selection changed state")
	}
}

func TestParametersRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.SetAudioBitrate(64000)
	s.SetVideoBitrate(2000000)
	s.SetGOP(500)
	s.SetRecordAudio(false)
	s.SetVideoCaps(smallCaps())
	s.SetCodecOption(media.TypeVideo, "quality", 85)
	s.SetFormatOption("application", "roundtrip")

	// A fresh session on the same store must reproduce the selection.
	reg := testRegistry()
	s2, err := New(Options{
		Registry: reg,
		Catalog:  catalog.New(reg),
		Store:    env.store,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := s2.Parameters()
	if p.AudioBitrate != 64000 || p.VideoBitrate != 2000000 || p.GOP != 500 || p.RecordAudio {
		t.Errorf("restored parameters = %+v", p)
	}
	if p.VideoCaps != smallCaps() {
		t.Errorf("restored caps = %+v", p.VideoCaps)
	}
	if p.Format != "muxer.mkv:mkv" || p.VideoCodec != "encoder.mjpeg:mjpeg" {
		t.Errorf("restored selection = %+v", p)
	}
}

func TestEndToEndRecording(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	stopped := make(chan events.RecordingStoppedEvent, 1)
	unsub := env.bus.Subscribe(func(e events.RecordingStoppedEvent) { stopped <- e })
	defer unsub()
	previews := make(chan events.VideoPreviewEvent, 1)
	unsub2 := env.bus.Subscribe(func(e events.VideoPreviewEvent) { previews <- e })
	defer unsub2()

	var lastVideos []string
	unsub3 := s.OnChange(func(c Change) {
		if c.Name == "lastVideo" {
			lastVideos = append(lastVideos, c.Value.(string))
		}
	})
	defer unsub3()

	if !s.SetState(StateActive) {
		t.Fatal("start failed")
	}
	for pts := int64(0); pts < 60; pts++ {
		f := media.NewVideoFrame(smallCaps())
		f.PTS = pts
		s.VideoInput(f)
	}
	if !s.SetState(StateIdle) {
		t.Fatal("stop failed")
	}

	var e events.RecordingStoppedEvent
	select {
	case e = <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("no stop event")
	}
	// 60 frames at 30fps.
	frame := time.Second / 30
	if e.Duration < 2*time.Second-frame || e.Duration > 2*time.Second+frame {
		t.Errorf("duration = %v, want about 2s", e.Duration)
	}

	if len(lastVideos) != 1 {
		t.Fatalf("lastVideo notified %d times, want once", len(lastVideos))
	}
	if lastVideos[0] != e.Location {
		t.Errorf("lastVideo = %q, location = %q", lastVideos[0], e.Location)
	}
	if got := env.store.Group("record").String("last_video", ""); got != e.Location {
		t.Errorf("persisted last_video = %q", got)
	}

	// The produced file must be a parseable container of the right
	// length.
	r, err := mkv.OpenFile(e.Location)
	if err != nil {
		t.Fatalf("recording unreadable: %v", err)
	}
	defer r.Close()
	if d := r.Duration(); d <= 0 {
		t.Errorf("container duration = %v", d)
	}

	select {
	case pe := <-previews:
		wantBase := "Video 2026-01-02 03-04-05"
		base := filepath.Base(pe.Thumbnail)
		if base != wantBase+".png" {
			t.Errorf("thumbnail base = %q", base)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no preview event")
	}
}

func TestSelectionRejectedWhilePausedMidRecording(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	stopped := make(chan events.RecordingStoppedEvent, 1)
	unsub := env.bus.Subscribe(func(e events.RecordingStoppedEvent) { stopped <- e })
	defer unsub()

	if !s.SetState(StateActive) {
		t.Fatal("start failed")
	}
	for pts := int64(0); pts < 10; pts++ {
		f := media.NewVideoFrame(smallCaps())
		f.PTS = pts
		s.VideoInput(f)
	}
	if !s.SetState(StatePaused) {
		t.Fatal("pause failed")
	}

	// The pipeline is still open: swapping adapters now would orphan the
	// running encoder and lose every frame after resume.
	if s.SetVideoCodec("encoder.mjpeg:mjpeg") {
		t.Error("video codec change accepted while paused mid-recording")
	}
	if s.SetAudioCodec("encoder.pcm:pcm_s16le") {
		t.Error("audio codec change accepted while paused mid-recording")
	}
	if s.SetFormat("muxer.mkv:mkv") {
		t.Error("format change accepted while paused mid-recording")
	}
	if p := s.Parameters(); p.VideoCodec != "encoder.mjpeg:mjpeg" || p.Format != "muxer.mkv:mkv" {
		t.Errorf("selection drifted: %q %q", p.VideoCodec, p.Format)
	}

	if !s.SetState(StateActive) {
		t.Fatal("resume failed")
	}
	for pts := int64(10); pts < 60; pts++ {
		f := media.NewVideoFrame(smallCaps())
		f.PTS = pts
		s.VideoInput(f)
	}
	if !s.SetState(StateIdle) {
		t.Fatal("stop failed")
	}

	var e events.RecordingStoppedEvent
	select {
	case e = <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("no stop event")
	}
	// All 60 frames at 30fps must survive the pause.
	frame := time.Second / 30
	if e.Duration < 2*time.Second-frame || e.Duration > 2*time.Second+frame {
		t.Errorf("duration = %v, want about 2s", e.Duration)
	}

	// Back in idle the selection opens up again.
	if !s.SetVideoCodec("encoder.mjpeg:mjpeg") || !s.SetFormat("muxer.mkv:mkv") {
		t.Error("selection rejected while idle")
	}
}

func TestObserverReadsBackOnStop(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	var last string
	unsub := s.OnChange(func(c Change) {
		if c.Name == "lastVideo" {
			last = s.Parameters().LastVideo
		}
	})
	defer unsub()

	if !s.SetState(StateActive) {
		t.Fatal("start failed")
	}
	f := media.NewVideoFrame(smallCaps())
	s.VideoInput(f)

	done := make(chan struct{})
	go func() {
		s.SetState(StateIdle)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop blocked while notifying")
	}
	if last == "" || last != s.Location() {
		t.Errorf("observer saw lastVideo %q, want %q", last, s.Location())
	}
}

func TestSecondRecordingSameFileNotReextracted(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	var lastVideos int
	unsub := s.OnChange(func(c Change) {
		if c.Name == "lastVideo" {
			lastVideos++
		}
	})
	defer unsub()

	for i := 0; i < 2; i++ {
		if !s.SetState(StateActive) {
			t.Fatal("start failed")
		}
		f := media.NewVideoFrame(smallCaps())
		s.VideoInput(f)
		if !s.SetState(StateIdle) {
			t.Fatal("stop failed")
		}
	}

	// The mock clock never advances, so both recordings share a path
	// and the second finalize must not re-announce it.
	if lastVideos != 1 {
		t.Errorf("lastVideo notified %d times, want 1", lastVideos)
	}
}

func TestFramesDroppedOutsideActive(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.SetVideoCaps(smallCaps())
	s.SetRecordAudio(false)

	// Dropped silently, no panic, no file.
	f := media.NewVideoFrame(smallCaps())
	s.VideoInput(f)
	s.AudioInput(&media.AudioFrame{Caps: media.AudioCaps{Format: media.SampleFormatS16, Layout: media.LayoutStereo, Rate: 48000}, Samples: 10, Data: make([]byte, 40)})
	if entries, _ := os.ReadDir(env.videoDir); len(entries) != 0 {
		t.Error("frame routing outside active created files")
	}
}

func TestImageSettingsAndReset(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	if !s.SetImageFormat("jpg") || !s.SetImageQuality(90) {
		t.Fatal("image setters rejected")
	}
	if s.SetImageFormat("") {
		t.Error("empty image format accepted")
	}
	p := s.Parameters()
	if p.ImageFormat != "jpg" || p.ImageQuality != 90 {
		t.Errorf("image settings = %q/%d", p.ImageFormat, p.ImageQuality)
	}

	s.SetAudioBitrate(64000)
	s.SetGOP(250)
	s.ResetDefaults()
	p = s.Parameters()
	if p.AudioBitrate != 128000 || p.VideoBitrate != 1500000 || p.GOP != 1000 {
		t.Errorf("reset parameters = %+v", p)
	}
	if !p.RecordAudio || p.ImageFormat != "png" || p.ImageQuality != -1 {
		t.Errorf("reset parameters = %+v", p)
	}
	if p.VideoCaps.Width != 1280 || p.VideoCaps.Height != 720 {
		t.Errorf("reset caps = %+v", p.VideoCaps)
	}
}

func TestPhotoCapture(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	if s.TakePhoto() {
		t.Error("TakePhoto succeeded with no frame")
	}

	f := media.NewVideoFrame(smallCaps())
	s.VideoInput(f) // cached even while idle
	if !s.TakePhoto() {
		t.Fatal("TakePhoto failed")
	}

	path := filepath.Join(t.TempDir(), "shots", "photo.png")
	if !s.SavePhoto(path) {
		t.Fatal("SavePhoto failed")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("photo missing: %v", err)
	}
}

func TestPhotoCacheOwnsPixels(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	f := media.NewVideoFrame(smallCaps())
	for i := range f.Planes[0] {
		f.Planes[0][i] = 200
	}
	for _, plane := range f.Planes[1:] {
		for i := range plane {
			plane[i] = 128
		}
	}
	s.VideoInput(f)

	// The capture side reuses its buffer for the next frame.
	for i := range f.Planes[0] {
		f.Planes[0][i] = 16
	}

	if !s.TakePhoto() {
		t.Fatal("TakePhoto failed")
	}
	// Neutral chroma converts to R=G=B=Y, so the first byte of the
	// interleaved snapshot is the original luma.
	if got := s.Photo().Planes[0][0]; got != 200 {
		t.Errorf("snapshot pixel = %d, want 200", got)
	}
}

func TestPhotoStorageGuard(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.StorageWritable = func() bool { return false }
	})
	s := env.session

	f := media.NewVideoFrame(smallCaps())
	s.VideoInput(f)
	if !s.TakePhoto() {
		t.Fatal("TakePhoto failed")
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	if s.SavePhoto(path) {
		t.Error("SavePhoto succeeded with storage denied")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("file written despite storage guard")
	}
}
