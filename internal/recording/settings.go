package recording

import (
	"github.com/smazurov/camcorder/internal/catalog"
	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/config"
	"github.com/smazurov/camcorder/internal/media"
)

// Settings group names. Per-format and per-codec groups append the
// normalized composite key so option sets never collide.
const (
	groupRecord       = "record"
	groupFormatCodecs = "record_format_codecs_"
	groupFormatOpts   = "record_format_options_"
	groupAudioOpts    = "record_audio_codec_options_"
	groupVideoOpts    = "record_video_codec_options_"
)

// loadConfig restores persisted parameters. Called once from New, before
// the session is shared, without notifications.
func (s *Session) loadConfig() {
	g := s.store.Group(groupRecord)

	s.recordAudio = g.Bool("record_audio", s.recordAudio)
	s.audioBitrate = clampInt(g.Int("audio_bitrate", s.audioBitrate), minAudioBitrate)
	s.videoBitrate = clampInt(g.Int("video_bitrate", s.videoBitrate), minVideoBitrate)
	s.gop = clampInt(g.Int("gop", s.gop), minGOP)
	s.videoDir = g.String("video_dir", s.videoDir)
	s.lastVideo = g.String("last_video", s.lastVideo)

	s.videoCaps.Width = clampInt(g.Int("video_width", s.videoCaps.Width), minWidth)
	s.videoCaps.Height = clampInt(g.Int("video_height", s.videoCaps.Height), minHeight)
	fps := media.Frac(g.Int("fps_num", s.videoCaps.FPS.Num), g.Int("fps_den", s.videoCaps.FPS.Den))
	if fps.Value() >= 1 {
		s.videoCaps.FPS = fps
	}
	s.audioCaps.Rate = clampInt(g.Int("sample_rate", s.audioCaps.Rate), minSampleRate)
	s.imageFormat = g.String("image_format", s.imageFormat)
	s.imageQuality = g.Int("image_quality", s.imageQuality)

	if format := g.String("format", ""); format != "" {
		var pending []Change
		s.setFormatLocked(format, false, &pending)
	}
}

// SetFormat selects the container format by composite key, replacing the
// muxer instance and reloading the format's persisted codec selections
// and options. Rejected while a recording is in progress, including a
// recording paused mid-way.
func (s *Session) SetFormat(key string) bool {
	s.mu.Lock()
	var pending []Change
	ok := s.setFormatLocked(key, true, &pending)
	s.mu.Unlock()
	s.flush(pending)
	return ok
}

func (s *Session) setFormatLocked(key string, persist bool, pending *[]Change) bool {
	// A Paused session reached from Active still has running encoders
	// and an open output file, so the pipeline guard is s.initialized,
	// not just the active state.
	if s.state == StateActive || s.initialized {
		s.logger.Warn("Format change rejected while recording")
		return false
	}
	if key == s.format {
		return true
	}
	if key == "" {
		s.muxer = nil
		s.format = ""
		return true
	}

	pluginID, formatName, ok := catalog.SplitKey(key)
	if !ok {
		s.logger.Warn("Malformed format key", "key", key)
		return false
	}
	fd, ok := s.cat.Format(key)
	if !ok {
		s.logger.Warn("Unknown format", "key", key)
		return false
	}
	mux := s.reg.NewMuxer(pluginID)
	if mux == nil || !mux.SetFormat(formatName) {
		s.logger.Warn("Muxer rejected format", "key", key)
		return false
	}

	s.muxer = mux
	s.format = key
	s.applyOptions(mux, s.store.Group(groupFormatOpts+config.NormalizeID(key)))

	// Codec selections are scoped to the format: restore what was last
	// used with it, falling back to the catalog defaults.
	codecs := s.store.Group(groupFormatCodecs + config.NormalizeID(key))
	audio := codecs.String("audio", fd.DefaultAudioCodec)
	video := codecs.String("video", fd.DefaultVideoCodec)
	if !s.setCodecLocked(media.TypeAudio, audio, false, pending) {
		s.setCodecLocked(media.TypeAudio, fd.DefaultAudioCodec, false, pending)
	}
	if !s.setCodecLocked(media.TypeVideo, video, false, pending) {
		s.setCodecLocked(media.TypeVideo, fd.DefaultVideoCodec, false, pending)
	}

	if persist {
		s.store.Group(groupRecord).Set("format", key)
	}
	*pending = append(*pending, Change{"format", key})
	return true
}

// SetAudioCodec selects the audio encoder by composite key.
func (s *Session) SetAudioCodec(key string) bool {
	s.mu.Lock()
	var pending []Change
	ok := s.setCodecLocked(media.TypeAudio, key, true, &pending)
	s.mu.Unlock()
	s.flush(pending)
	return ok
}

// SetVideoCodec selects the video encoder by composite key.
func (s *Session) SetVideoCodec(key string) bool {
	s.mu.Lock()
	var pending []Change
	ok := s.setCodecLocked(media.TypeVideo, key, true, &pending)
	s.mu.Unlock()
	s.flush(pending)
	return ok
}

func (s *Session) setCodecLocked(t media.Type, key string, persist bool, pending *[]Change) bool {
	if s.state == StateActive || s.initialized {
		s.logger.Warn("Codec change rejected while recording")
		return false
	}
	current := s.audioCodec
	if t == media.TypeVideo {
		current = s.videoCodec
	}
	if key == current {
		return true
	}

	pluginID, codecName, ok := catalog.SplitKey(key)
	if !ok {
		s.logger.Warn("Malformed codec key", "key", key)
		return false
	}
	if s.format != "" && !containsKey(s.cat.SupportedCodecs(s.format, t), key) {
		s.logger.Warn("Codec not supported by format", "codec", key, "format", s.format)
		return false
	}

	name := "audioCodec"
	switch t {
	case media.TypeAudio:
		enc := s.reg.NewAudioEncoder(pluginID)
		if enc == nil || !enc.SetCodec(codecName) {
			s.logger.Warn("Audio encoder rejected codec", "key", key)
			return false
		}
		s.applyOptions(enc, s.store.Group(groupAudioOpts+config.NormalizeID(key)))
		s.audioEnc = enc
		s.audioCodec = key
	case media.TypeVideo:
		enc := s.reg.NewVideoEncoder(pluginID)
		if enc == nil || !enc.SetCodec(codecName) {
			s.logger.Warn("Video encoder rejected codec", "key", key)
			return false
		}
		s.applyOptions(enc, s.store.Group(groupVideoOpts+config.NormalizeID(key)))
		s.videoEnc = enc
		s.videoCodec = key
		name = "videoCodec"
	default:
		return false
	}

	if persist && s.format != "" {
		group := s.store.Group(groupFormatCodecs + config.NormalizeID(s.format))
		if t == media.TypeAudio {
			group.Set("audio", key)
		} else {
			group.Set("video", key)
		}
	}
	*pending = append(*pending, Change{name, key})
	return true
}

// optioned is the option surface shared by encoders and muxers.
type optioned interface {
	Options() codec.Options
	SetOptionValue(name string, value any)
}

// applyOptions overlays persisted option values onto a fresh adapter.
func (s *Session) applyOptions(target optioned, group *config.Group) {
	for _, opt := range target.Options() {
		if v, ok := group.Value(opt.Name); ok {
			target.SetOptionValue(opt.Name, coerceLike(opt.Default, v))
		}
	}
}

// coerceLike converts a TOML scalar to the option default's type so
// adapters see the type they declared.
func coerceLike(def, v any) any {
	switch def.(type) {
	case int:
		switch n := v.(type) {
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	case bool:
		if b, ok := v.(bool); ok {
			return b
		}
	case string:
		if s, ok := v.(string); ok {
			return s
		}
	}
	return v
}

// SetFormatOption sets one muxer option, persisting it per format.
func (s *Session) SetFormatOption(name string, value any) bool {
	s.mu.Lock()
	if s.muxer == nil {
		s.mu.Unlock()
		return false
	}
	if s.muxer.OptionValue(name) == value {
		s.mu.Unlock()
		return true
	}
	s.muxer.SetOptionValue(name, value)
	s.store.Group(groupFormatOpts+config.NormalizeID(s.format)).Set(name, value)
	s.mu.Unlock()
	s.observers.notify("formatOption:"+name, value)
	return true
}

// SetCodecOption sets one encoder option, persisting it per codec.
func (s *Session) SetCodecOption(t media.Type, name string, value any) bool {
	s.mu.Lock()
	var enc codec.Encoder
	var group string
	switch t {
	case media.TypeAudio:
		if s.audioEnc == nil {
			s.mu.Unlock()
			return false
		}
		enc, group = s.audioEnc, groupAudioOpts+config.NormalizeID(s.audioCodec)
	case media.TypeVideo:
		if s.videoEnc == nil {
			s.mu.Unlock()
			return false
		}
		enc, group = s.videoEnc, groupVideoOpts+config.NormalizeID(s.videoCodec)
	default:
		s.mu.Unlock()
		return false
	}
	if enc.OptionValue(name) == value {
		s.mu.Unlock()
		return true
	}
	enc.SetOptionValue(name, value)
	s.store.Group(group).Set(name, value)
	s.mu.Unlock()
	s.observers.notify("codecOption:"+name, value)
	return true
}

// SetAudioBitrate sets the audio target bitrate in bits per second.
func (s *Session) SetAudioBitrate(bitrate int) bool {
	bitrate = clampInt(bitrate, minAudioBitrate)
	s.mu.Lock()
	if bitrate == s.audioBitrate {
		s.mu.Unlock()
		return true
	}
	s.audioBitrate = bitrate
	s.store.Group(groupRecord).Set("audio_bitrate", bitrate)
	s.mu.Unlock()
	s.observers.notify("audioBitrate", bitrate)
	return true
}

// SetVideoBitrate sets the video target bitrate. Without a selected video
// encoder the call is a no-op: there is nothing the bitrate would apply
// to.
func (s *Session) SetVideoBitrate(bitrate int) bool {
	bitrate = clampInt(bitrate, minVideoBitrate)
	s.mu.Lock()
	if s.videoEnc == nil {
		s.mu.Unlock()
		return false
	}
	if bitrate == s.videoBitrate {
		s.mu.Unlock()
		return true
	}
	s.videoBitrate = bitrate
	s.store.Group(groupRecord).Set("video_bitrate", bitrate)
	s.mu.Unlock()
	s.observers.notify("videoBitrate", bitrate)
	return true
}

// SetGOP sets the keyframe interval in milliseconds.
func (s *Session) SetGOP(ms int) bool {
	ms = clampInt(ms, minGOP)
	s.mu.Lock()
	if ms == s.gop {
		s.mu.Unlock()
		return true
	}
	s.gop = ms
	s.store.Group(groupRecord).Set("gop", ms)
	s.mu.Unlock()
	s.observers.notify("gop", ms)
	return true
}

// SetRecordAudio toggles the audio stream for future recordings.
func (s *Session) SetRecordAudio(enabled bool) bool {
	s.mu.Lock()
	if enabled == s.recordAudio {
		s.mu.Unlock()
		return true
	}
	s.recordAudio = enabled
	s.store.Group(groupRecord).Set("record_audio", enabled)
	s.mu.Unlock()
	s.observers.notify("recordAudio", enabled)
	return true
}

// SetAudioCaps sets the expected capture audio caps.
func (s *Session) SetAudioCaps(caps media.AudioCaps) bool {
	caps.Rate = clampInt(caps.Rate, minSampleRate)
	s.mu.Lock()
	if caps == s.audioCaps {
		s.mu.Unlock()
		return true
	}
	s.audioCaps = caps
	s.store.Group(groupRecord).Set("sample_rate", caps.Rate)
	s.mu.Unlock()
	s.observers.notify("audioCaps", caps)
	return true
}

// SetVideoCaps sets the expected capture video caps.
func (s *Session) SetVideoCaps(caps media.VideoCaps) bool {
	caps.Width = clampInt(caps.Width, minWidth)
	caps.Height = clampInt(caps.Height, minHeight)
	if caps.FPS.Value() < 1 {
		caps.FPS = media.Frac(1, 1)
	}
	s.mu.Lock()
	if caps == s.videoCaps {
		s.mu.Unlock()
		return true
	}
	s.videoCaps = caps
	g := s.store.Group(groupRecord)
	g.Set("video_width", caps.Width)
	g.Set("video_height", caps.Height)
	g.Set("fps_num", caps.FPS.Num)
	g.Set("fps_den", caps.FPS.Den)
	s.mu.Unlock()
	s.observers.notify("videoCaps", caps)
	return true
}

// SetImageFormat sets the photo file format by extension, e.g. "png".
func (s *Session) SetImageFormat(format string) bool {
	s.mu.Lock()
	if format == "" || format == s.imageFormat {
		s.mu.Unlock()
		return format != ""
	}
	s.imageFormat = format
	s.store.Group(groupRecord).Set("image_format", format)
	s.mu.Unlock()
	s.observers.notify("imageFormat", format)
	return true
}

// SetImageQuality sets the photo encoding quality, 0-100; negative values
// leave it to the image codec.
func (s *Session) SetImageQuality(quality int) bool {
	if quality > 100 {
		quality = 100
	}
	s.mu.Lock()
	if quality == s.imageQuality {
		s.mu.Unlock()
		return true
	}
	s.imageQuality = quality
	s.store.Group(groupRecord).Set("image_quality", quality)
	s.mu.Unlock()
	s.observers.notify("imageQuality", quality)
	return true
}

// ResetDefaults restores every tunable parameter to its default value,
// leaving the format and codec selections alone. Each changed parameter
// persists and notifies as if set individually.
func (s *Session) ResetDefaults() {
	s.SetAudioCaps(defaultAudioCaps)
	s.SetVideoCaps(defaultVideoCaps)
	s.SetAudioBitrate(defaultAudioBitrate)
	s.SetVideoBitrate(defaultVideoBitrate)
	s.SetGOP(defaultGOP)
	s.SetRecordAudio(true)
	s.SetImageFormat(defaultImageFormat)
	s.SetImageQuality(defaultImageQuality)
}

// SetVideoDir sets the output directory for future recordings.
func (s *Session) SetVideoDir(dir string) bool {
	s.mu.Lock()
	if dir == "" || dir == s.videoDir {
		s.mu.Unlock()
		return dir != ""
	}
	s.videoDir = dir
	s.store.Group(groupRecord).Set("video_dir", dir)
	s.mu.Unlock()
	s.observers.notify("videoDir", dir)
	return true
}

func clampInt(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func containsKey(list []string, key string) bool {
	for _, k := range list {
		if k == key {
			return true
		}
	}
	return false
}
