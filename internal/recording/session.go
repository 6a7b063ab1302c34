// Package recording orchestrates the encoding pipeline: it owns the
// active encoder and muxer adapters, drives their lifecycle, routes
// captured frames, persists every user-tunable parameter, and hands
// finished files to the thumbnail extractor.
package recording

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/camcorder/internal/catalog"
	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/config"
	"github.com/smazurov/camcorder/internal/events"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
	"github.com/smazurov/camcorder/internal/preview"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePaused
	StateActive
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

// Parameter clamps, matching the lowest values the pipeline can operate
// with.
const (
	minWidth        = 160
	minHeight       = 90
	minSampleRate   = 8000
	minAudioBitrate = 1000
	minVideoBitrate = 100000
	minGOP          = 1
)

// Defaults applied when nothing is persisted.
var (
	defaultVideoCaps = media.VideoCaps{
		Format: media.PixelFormatYUV420P,
		Width:  1280,
		Height: 720,
		FPS:    media.Frac(30, 1),
	}
	defaultAudioCaps = media.AudioCaps{
		Format: media.SampleFormatS16,
		Layout: media.LayoutStereo,
		Rate:   48000,
	}
)

const (
	defaultAudioBitrate = 128000
	defaultVideoBitrate = 1500000
	defaultGOP          = 1000
	defaultImageFormat  = "png"
	defaultImageQuality = -1
)

// Options wires a session's collaborators.
type Options struct {
	Registry  *plugin.Registry
	Catalog   *catalog.Catalog
	Store     *config.Store
	Bus       *events.Bus
	Extractor *preview.Extractor
	Clock     clock.Clock
	Logger    *slog.Logger
	// VideoDir overrides the persisted output directory.
	VideoDir string
	// StorageWritable gates photo saves; nil means always allowed.
	StorageWritable func() bool
}

// Parameters is a read-only snapshot of the session configuration.
type Parameters struct {
	State        State
	Format       string
	AudioCodec   string
	VideoCodec   string
	AudioCaps    media.AudioCaps
	VideoCaps    media.VideoCaps
	AudioBitrate int
	VideoBitrate int
	GOP          int
	RecordAudio  bool
	VideoDir     string
	LastVideo    string
	ImageFormat  string
	ImageQuality int
}

// Session is the recording orchestrator. All methods are safe for
// concurrent use.
type Session struct {
	logger          *slog.Logger
	reg             *plugin.Registry
	cat             *catalog.Catalog
	store           *config.Store
	bus             *events.Bus
	extractor       *preview.Extractor
	clk             clock.Clock
	storageWritable func() bool

	mu           sync.Mutex
	state        State
	initialized  bool
	location     string
	format       string
	audioCodec   string
	videoCodec   string
	audioCaps    media.AudioCaps
	videoCaps    media.VideoCaps
	audioBitrate int
	videoBitrate int
	gop          int
	recordAudio  bool
	videoDir     string
	lastVideo    string
	imageFormat  string
	imageQuality int

	muxer    codec.Muxer
	audioEnc codec.AudioEncoder
	videoEnc codec.VideoEncoder

	frameMu      sync.Mutex
	currentFrame *media.VideoFrame
	photo        *media.VideoFrame

	observers observers
}

// New builds a session, restoring persisted parameters and instantiating
// the selected adapters. With nothing persisted the catalog's default
// format and its default codecs are selected.
func New(opts Options) (*Session, error) {
	if opts.Registry == nil || opts.Catalog == nil || opts.Store == nil {
		return nil, fmt.Errorf("recording: registry, catalog and store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	s := &Session{
		logger:          logger,
		reg:             opts.Registry,
		cat:             opts.Catalog,
		store:           opts.Store,
		bus:             opts.Bus,
		extractor:       opts.Extractor,
		clk:             clk,
		storageWritable: opts.StorageWritable,
		audioCaps:       defaultAudioCaps,
		videoCaps:       defaultVideoCaps,
		audioBitrate:    defaultAudioBitrate,
		videoBitrate:    defaultVideoBitrate,
		gop:             defaultGOP,
		recordAudio:     true,
		imageFormat:     defaultImageFormat,
		imageQuality:    defaultImageQuality,
	}
	s.loadConfig()
	if opts.VideoDir != "" {
		s.videoDir = opts.VideoDir
	}
	if s.videoDir == "" {
		s.videoDir = "."
	}
	if s.format == "" {
		var pending []Change
		s.setFormatLocked(s.cat.DefaultFormat(), false, &pending)
	}
	if s.lastVideo == "" {
		s.lastVideo = latestRecording(s.videoDir)
	}
	// Regenerate the preview for the last known recording so the
	// thumbnail exists even after a fresh install or cleared cache.
	if s.lastVideo != "" && s.extractor != nil {
		s.extractor.Extract(s.lastVideo)
	}
	return s, nil
}

// latestRecording finds the most recently modified container file in dir,
// so a fresh settings store still surfaces an existing last video.
func latestRecording(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".mkv", ".webm":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	return newest
}

// OnChange subscribes to property change notifications. Notifications are
// synchronous: they fire after the mutation, before the setter returns.
func (s *Session) OnChange(fn func(Change)) func() {
	return s.observers.subscribe(fn)
}

// Parameters returns a snapshot of the current configuration.
func (s *Session) Parameters() Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Parameters{
		State:        s.state,
		Format:       s.format,
		AudioCodec:   s.audioCodec,
		VideoCodec:   s.videoCodec,
		AudioCaps:    s.audioCaps,
		VideoCaps:    s.videoCaps,
		AudioBitrate: s.audioBitrate,
		VideoBitrate: s.videoBitrate,
		GOP:          s.gop,
		RecordAudio:  s.recordAudio,
		VideoDir:     s.videoDir,
		LastVideo:    s.lastVideo,
		ImageFormat:  s.imageFormat,
		ImageQuality: s.imageQuality,
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Location returns the output path of the active or last started
// recording.
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// SetState drives the session state machine. Self-transitions and failed
// setups return false with the state unchanged.
func (s *Session) SetState(target State) bool {
	s.mu.Lock()
	var pending []Change
	ok := s.applyState(target, &pending)
	s.mu.Unlock()
	s.flush(pending)
	return ok
}

// applyState runs one state transition. Called with s.mu held; queued
// notifications are delivered by the caller after the lock is released.
func (s *Session) applyState(target State, pending *[]Change) bool {
	if target == s.state {
		return false
	}

	switch {
	case s.state == StateIdle && target == StatePaused:
		// Paused from idle defers all initialization to the first
		// transition into active.
		s.state = StatePaused

	case target == StateActive:
		if !s.initialized {
			if !s.initPipeline() {
				return false
			}
			s.initialized = true
		}
		s.state = StateActive

	case target == StateIdle:
		if s.initialized {
			s.teardownPipeline(pending)
			s.initialized = false
		}
		s.state = StateIdle

	case s.state == StateActive && target == StatePaused:
		s.state = StatePaused
	}

	s.logger.Info("Session state changed", "state", s.state.String())
	return true
}

// initPipeline opens the output file and starts the adapters. Called with
// s.mu held, from an uninitialized state.
func (s *Session) initPipeline() bool {
	if s.videoEnc == nil {
		s.logger.Error("Cannot start recording: no video encoder selected")
		return false
	}
	if s.muxer == nil {
		s.logger.Error("Cannot start recording: no muxer selected")
		return false
	}
	if err := os.MkdirAll(s.videoDir, 0o755); err != nil {
		s.logger.Error("Cannot create output directory", "dir", s.videoDir, "error", err)
		return false
	}

	_, formatName, _ := catalog.SplitKey(s.format)
	path := filepath.Join(s.videoDir, fmt.Sprintf("Video %s.%s",
		s.clk.Now().Format("2006-01-02 15-04-05"),
		s.muxer.Extension(formatName)))

	useAudio := s.recordAudio && s.audioEnc != nil

	s.videoEnc.SetInputCaps(s.videoCaps)
	s.videoEnc.SetBitrate(s.videoBitrate)
	s.videoEnc.SetGOP(s.gop)
	s.videoEnc.SetFillGaps(!s.muxer.GapsAllowed(media.TypeVideo))
	if useAudio {
		s.audioEnc.SetInputCaps(s.audioCaps)
		s.audioEnc.SetBitrate(s.audioBitrate)
		s.audioEnc.SetFillGaps(!s.muxer.GapsAllowed(media.TypeAudio))
	}

	// Encoders reach paused first so codec headers exist before the
	// muxer lays down track metadata.
	if !s.videoEnc.SetState(codec.StatePaused) {
		s.logger.Error("Video encoder failed to initialize", "codec", s.videoCodec)
		return false
	}
	if useAudio && !s.audioEnc.SetState(codec.StatePaused) {
		s.logger.Error("Audio encoder failed to initialize", "codec", s.audioCodec)
		s.videoEnc.SetState(codec.StateStopped)
		return false
	}

	s.muxer.SetLocation(path)
	s.muxer.SetStreamCaps(s.videoEnc.OutputCaps())
	s.muxer.SetStreamBitrate(media.TypeVideo, s.videoBitrate)
	s.muxer.SetStreamHeaders(media.TypeVideo, s.videoEnc.Headers())
	if useAudio {
		s.muxer.SetStreamCaps(s.audioEnc.OutputCaps())
		s.muxer.SetStreamBitrate(media.TypeAudio, s.audioBitrate)
		s.muxer.SetStreamHeaders(media.TypeAudio, s.audioEnc.Headers())
	}

	if !s.muxer.SetState(codec.StateRunning) {
		s.logger.Error("Muxer failed to start", "location", path)
		s.videoEnc.SetState(codec.StateStopped)
		if useAudio {
			s.audioEnc.SetState(codec.StateStopped)
		}
		return false
	}

	mux := s.muxer
	s.videoEnc.SetSink(func(pkt media.Packet) { mux.Write(pkt) })
	s.videoEnc.SetState(codec.StateRunning)
	if useAudio {
		s.audioEnc.SetSink(func(pkt media.Packet) { mux.Write(pkt) })
		s.audioEnc.SetState(codec.StateRunning)
	}

	s.location = path
	recordingsStarted.Inc()
	s.logger.Info("Recording started",
		"location", path,
		"format", s.format,
		"videoCodec", s.videoCodec,
		"audioCodec", s.audioCodec,
		"video", fmt.Sprintf("%dx%d@%s", s.videoCaps.Width, s.videoCaps.Height, s.videoCaps.FPS),
		"videoBitrate", s.videoBitrate,
		"audioBitrate", s.audioBitrate,
		"gop", s.gop,
		"audio", useAudio)
	if s.bus != nil {
		s.bus.Publish(events.RecordingStartedEvent{
			Location:  path,
			Format:    s.format,
			Timestamp: s.clk.Now(),
		})
	}
	return true
}

// teardownPipeline stops the adapters, finalizes the file, and hands it to
// the thumbnail extractor. Called with s.mu held.
func (s *Session) teardownPipeline(pending *[]Change) {
	useAudio := s.recordAudio && s.audioEnc != nil

	s.videoEnc.SetState(codec.StateStopped)
	if useAudio {
		s.audioEnc.SetState(codec.StateStopped)
	}

	var audioSecs, videoSecs float64
	videoPts := s.videoEnc.EncodedTimePts()
	if rate := s.videoEnc.OutputCaps().Rate(); rate > 0 {
		videoSecs = float64(videoPts) / rate
	}
	if videoPts > 0 {
		s.muxer.SetStreamDuration(media.TypeVideo, videoPts)
	}
	if useAudio {
		audioPts := s.audioEnc.EncodedTimePts()
		if rate := s.audioEnc.OutputCaps().Rate(); rate > 0 {
			audioSecs = float64(audioPts) / rate
		}
		if audioPts > 0 {
			s.muxer.SetStreamDuration(media.TypeAudio, audioPts)
		}
	}
	duration := time.Duration(max(audioSecs, videoSecs) * float64(time.Second))

	s.muxer.SetState(codec.StateStopped)

	location := s.location
	recordingsFinished.Inc()
	s.logger.Info("Recording finished", "location", location, "duration", duration)
	if s.bus != nil {
		s.bus.Publish(events.RecordingStoppedEvent{
			Location:  location,
			Duration:  duration,
			Timestamp: s.clk.Now(),
		})
	}

	if location != "" && location != s.lastVideo {
		s.lastVideo = location
		s.store.Group("record").Set("last_video", location)
		*pending = append(*pending, Change{"lastVideo", location})
		if s.bus != nil {
			s.bus.Publish(events.LastVideoEvent{Location: location})
		}
		if s.extractor != nil {
			s.extractor.Extract(location)
		}
	}
}

// AudioInput routes one captured audio frame. Frames outside the active
// state are dropped.
func (s *Session) AudioInput(frame *media.AudioFrame) {
	s.mu.Lock()
	enc := s.audioEnc
	deliver := s.state == StateActive && s.recordAudio && enc != nil
	s.mu.Unlock()
	if !deliver {
		framesDropped.Inc()
		return
	}
	framesRouted.WithLabelValues("audio").Inc()
	enc.Write(frame)
}

// VideoInput caches the frame for photo capture and routes it to the
// video encoder. Frames outside the active state are dropped.
func (s *Session) VideoInput(frame *media.VideoFrame) {
	if frame == nil {
		return
	}
	// Capture sources may reuse the frame buffer, so the photo cache
	// keeps its own copy.
	s.frameMu.Lock()
	s.currentFrame = frame.Clone()
	s.frameMu.Unlock()

	s.mu.Lock()
	enc := s.videoEnc
	deliver := s.state == StateActive && enc != nil
	s.mu.Unlock()
	if !deliver {
		framesDropped.Inc()
		return
	}
	framesRouted.WithLabelValues("video").Inc()
	enc.Write(frame)
}

// Input routes a wrapped frame by media type.
func (s *Session) Input(frame media.Frame) {
	switch frame.Type {
	case media.TypeAudio:
		s.AudioInput(frame.Audio)
	case media.TypeVideo:
		s.VideoInput(frame.Video)
	}
}
