// Package mkv writes Matroska and WebM containers through at-wat/ebml-go
// and reads them back for thumbnail extraction.
package mkv

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

// PluginID identifies this adapter in the registry.
const PluginID = "muxer.mkv"

// Register adds the Matroska muxer to the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterMuxer(plugin.Info{
		ID:          PluginID,
		Description: "Matroska muxer",
		Priority:    0,
	}, func() codec.Muxer { return New() })
}

type formatInfo struct {
	description string
	extension   string
	docType     string
	audio       []string
	video       []string
}

var formatTable = map[string]formatInfo{
	"mkv": {
		description: "Matroska (mkv)",
		extension:   "mkv",
		docType:     "matroska",
		audio:       []string{"pcm_s16le"},
		video:       []string{"mjpeg", "h264", "hevc", "vp8", "vp9", "av1"},
	},
	"webm": {
		description: "WebM",
		extension:   "webm",
		docType:     "webm",
		audio:       []string{"opus", "vorbis"},
		video:       []string{"vp8", "vp9", "av1"},
	},
}

var formatOrder = []string{"mkv", "webm"}

// codecIDs maps codec identifiers to Matroska codec IDs.
var codecIDs = map[string]string{
	"mjpeg":     "V_MJPEG",
	"h264":      "V_MPEG4/ISO/AVC",
	"hevc":      "V_MPEGH/ISO/HEVC",
	"vp8":       "V_VP8",
	"vp9":       "V_VP9",
	"av1":       "V_AV1",
	"pcm_s16le": "A_PCM/INT/LIT",
	"opus":      "A_OPUS",
	"vorbis":    "A_VORBIS",
}

type stream struct {
	caps     media.CompressedCaps
	bitrate  int
	headers  []byte
	duration int64
	writer   mkvcore.BlockWriteCloser
}

// trackEntry mirrors webm.TrackEntry with an Audio element that carries
// BitDepth, which the webm package omits but PCM tracks need to be
// decodable. mkvcore marshals any struct with ebml tags.
type trackEntry struct {
	TrackNumber     uint64      `ebml:"TrackNumber"`
	TrackUID        uint64      `ebml:"TrackUID"`
	CodecID         string      `ebml:"CodecID"`
	CodecPrivate    []byte      `ebml:"CodecPrivate,omitempty"`
	TrackType       uint64      `ebml:"TrackType"`
	DefaultDuration uint64      `ebml:"DefaultDuration,omitempty"`
	Audio           *trackAudio `ebml:"Audio,omitempty"`
	Video           *trackVideo `ebml:"Video,omitempty"`
}

type trackAudio struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
	BitDepth          uint64  `ebml:"BitDepth,omitempty"`
}

type trackVideo struct {
	PixelWidth  uint64 `ebml:"PixelWidth"`
	PixelHeight uint64 `ebml:"PixelHeight"`
}

// Muxer interleaves one audio and one video stream into an EBML container.
type Muxer struct {
	codec.OptionSet
	codec.Lifecycle

	mu       sync.Mutex
	format   string
	location string
	streams  map[media.Type]*stream
}

func New() *Muxer {
	m := &Muxer{
		format:  formatOrder[0],
		streams: make(map[media.Type]*stream),
	}
	m.DeclareOptions(codec.Options{
		{Name: "application", Description: "Application name written to the container", Default: "camcorder"},
	})
	m.Lifecycle.Start = m.start
	m.Lifecycle.Stop = m.stop
	return m
}

func (m *Muxer) Formats() []string {
	return formatOrder
}

func (m *Muxer) FormatDescription(format string) string {
	return formatTable[format].description
}

func (m *Muxer) Extension(format string) string {
	return formatTable[format].extension
}

func (m *Muxer) SupportedCodecs(format string, t media.Type) []string {
	switch t {
	case media.TypeAudio:
		return formatTable[format].audio
	case media.TypeVideo:
		return formatTable[format].video
	default:
		return nil
	}
}

func (m *Muxer) DefaultCodec(format string, t media.Type) string {
	codecs := m.SupportedCodecs(format, t)
	if len(codecs) == 0 {
		return ""
	}
	return codecs[0]
}

// GapsAllowed is true for both stream kinds: Matroska blocks carry
// explicit timestamps.
func (m *Muxer) GapsAllowed(media.Type) bool {
	return true
}

func (m *Muxer) SetFormat(format string) bool {
	if _, ok := formatTable[format]; !ok {
		return false
	}
	m.mu.Lock()
	m.format = format
	m.mu.Unlock()
	return true
}

func (m *Muxer) Format() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}

func (m *Muxer) SetLocation(path string) {
	m.mu.Lock()
	m.location = path
	m.mu.Unlock()
}

func (m *Muxer) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location
}

func (m *Muxer) SetStreamCaps(caps media.CompressedCaps) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ensureStream(caps.Type)
	s.caps = caps
}

func (m *Muxer) SetStreamBitrate(t media.Type, bitrate int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStream(t).bitrate = bitrate
}

func (m *Muxer) SetStreamHeaders(t media.Type, headers []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStream(t).headers = headers
}

func (m *Muxer) SetStreamDuration(t media.Type, pts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStream(t).duration = pts
}

// StreamDuration returns the duration recorded for a stream, in that
// stream's pts units.
func (m *Muxer) StreamDuration(t media.Type) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[t]; ok {
		return s.duration
	}
	return 0
}

// ensureStream must be called with m.mu held.
func (m *Muxer) ensureStream(t media.Type) *stream {
	s, ok := m.streams[t]
	if !ok {
		s = &stream{}
		m.streams[t] = s
	}
	return s
}

func (m *Muxer) start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.location == "" || len(m.streams) == 0 {
		return false
	}
	info := formatTable[m.format]

	// Track order is fixed: video first, then audio, matching the
	// numbering readers expect.
	var tracks []mkvcore.TrackDescription
	var order []media.Type
	for _, t := range []media.Type{media.TypeVideo, media.TypeAudio} {
		s, ok := m.streams[t]
		if !ok {
			continue
		}
		entry, err := m.trackEntry(uint64(len(tracks)+1), t, s)
		if err != nil {
			return false
		}
		tracks = append(tracks, mkvcore.TrackDescription{
			TrackNumber: entry.TrackNumber,
			TrackEntry:  entry,
		})
		order = append(order, t)
	}
	if len(tracks) == 0 {
		return false
	}

	file, err := os.Create(m.location)
	if err != nil {
		return false
	}

	app, _ := m.OptionValue("application").(string)
	writers, err := mkvcore.NewSimpleBlockWriter(file, tracks,
		mkvcore.WithEBMLHeader(&webm.EBMLHeader{
			EBMLVersion:        1,
			EBMLReadVersion:    1,
			EBMLMaxIDLength:    4,
			EBMLMaxSizeLength:  8,
			DocType:            info.docType,
			DocTypeVersion:     4,
			DocTypeReadVersion: 2,
		}),
		mkvcore.WithSegmentInfo(&webm.Info{
			TimecodeScale: 1_000_000, // 1ms
			MuxingApp:     app,
			WritingApp:    app,
		}))
	if err != nil {
		file.Close()
		os.Remove(m.location)
		return false
	}
	for i, t := range order {
		m.streams[t].writer = writers[i]
	}
	return true
}

func (m *Muxer) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Closing the last block writer finalizes and closes the file.
	for _, s := range m.streams {
		if s.writer != nil {
			s.writer.Close()
			s.writer = nil
		}
	}
	// Stream declarations do not carry over: the next recording declares
	// its streams from scratch.
	m.streams = make(map[media.Type]*stream)
}

// trackEntry builds the Matroska track element for one stream. The codec
// must be accepted by the selected format.
func (m *Muxer) trackEntry(number uint64, t media.Type, s *stream) (trackEntry, error) {
	codecID, ok := codecIDs[s.caps.Codec]
	if !ok || !contains(m.SupportedCodecs(m.format, t), s.caps.Codec) {
		return trackEntry{}, fmt.Errorf("codec %q not supported by %s", s.caps.Codec, m.format)
	}

	entry := trackEntry{
		TrackNumber:  number,
		TrackUID:     number,
		CodecID:      codecID,
		CodecPrivate: s.headers,
	}
	switch t {
	case media.TypeVideo:
		entry.TrackType = 1
		entry.Video = &trackVideo{
			PixelWidth:  uint64(s.caps.Video.Width),
			PixelHeight: uint64(s.caps.Video.Height),
		}
		if fps := s.caps.Video.FPS.Value(); fps > 0 {
			entry.DefaultDuration = uint64(math.Round(1e9 / fps))
		}
	case media.TypeAudio:
		entry.TrackType = 2
		entry.Audio = &trackAudio{
			SamplingFrequency: float64(s.caps.Audio.Rate),
			Channels:          uint64(s.caps.Audio.Layout.Channels()),
			BitDepth:          uint64(8 * s.caps.Audio.Format.BytesPerSample()),
		}
	}
	return entry, nil
}

// Write appends one packet to its stream. Packets for undeclared streams
// or outside the running state are dropped.
func (m *Muxer) Write(pkt media.Packet) {
	if !m.Running() {
		return
	}
	m.mu.Lock()
	s, ok := m.streams[pkt.Caps.Type]
	var w mkvcore.BlockWriteCloser
	if ok {
		w = s.writer
	}
	m.mu.Unlock()
	if w == nil {
		return
	}
	w.Write(pkt.Keyframe, pkt.TimeMillis(), pkt.Data)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
