// Package catalog enumerates the registered encoder and muxer plugins and
// derives which codecs each container format can actually use, which codec
// is the default for each format, and which format is the process default.
// The catalog is built once at startup and is read-only afterwards.
package catalog

import (
	"sort"
	"strings"

	"github.com/smazurov/camcorder/internal/codec"
	"github.com/smazurov/camcorder/internal/media"
	"github.com/smazurov/camcorder/internal/plugin"
)

// CodecDescriptor describes one codec advertised by one encoder plugin.
type CodecDescriptor struct {
	PluginID    string
	Type        media.Type
	Codec       string
	Description string
	Priority    int
}

// Key returns the composite pluginID:codec identity.
func (d CodecDescriptor) Key() string {
	return d.PluginID + ":" + d.Codec
}

// FormatDescriptor describes one container format of one muxer plugin,
// together with the codec plugins usable with it. Formats that end up with
// no usable audio or no usable video codec are not retained.
type FormatDescriptor struct {
	PluginID          string
	Name              string
	Description       string
	Extension         string
	AudioCodecs       []string
	VideoCodecs       []string
	DefaultAudioCodec string
	DefaultVideoCodec string
	Priority          int
}

// Key returns the composite pluginID:format identity.
func (d FormatDescriptor) Key() string {
	return d.PluginID + ":" + d.Name
}

// Catalog is the capability matrix built from a plugin registry.
type Catalog struct {
	reg           *plugin.Registry
	codecs        []CodecDescriptor
	formats       []FormatDescriptor
	defaultFormat string
}

// New builds a catalog from the registry. Equivalent to calling Refresh on
// an empty catalog.
func New(reg *plugin.Registry) *Catalog {
	c := &Catalog{reg: reg}
	c.Refresh()
	return c
}

// Refresh rebuilds the codec list, the per-format compatibility matrix and
// the default selections. Given the same registry contents the result is
// identical across calls: plugins are enumerated in sorted ID order and all
// tie-breaking is by priority then identity.
func (c *Catalog) Refresh() {
	c.codecs = c.codecs[:0]
	c.formats = c.formats[:0]
	c.defaultFormat = ""

	for _, info := range c.reg.AudioEncoders() {
		enc := c.reg.NewAudioEncoder(info.ID)
		if enc == nil {
			continue
		}
		for _, name := range enc.Codecs() {
			c.codecs = append(c.codecs, CodecDescriptor{
				PluginID:    info.ID,
				Type:        media.TypeAudio,
				Codec:       name,
				Description: enc.CodecDescription(name),
				Priority:    info.Priority,
			})
		}
	}
	for _, info := range c.reg.VideoEncoders() {
		enc := c.reg.NewVideoEncoder(info.ID)
		if enc == nil {
			continue
		}
		for _, name := range enc.Codecs() {
			c.codecs = append(c.codecs, CodecDescriptor{
				PluginID:    info.ID,
				Type:        media.TypeVideo,
				Codec:       name,
				Description: enc.CodecDescription(name),
				Priority:    info.Priority,
			})
		}
	}
	sort.SliceStable(c.codecs, func(i, j int) bool {
		return c.codecs[i].Description < c.codecs[j].Description
	})

	bestPriority := 0
	for _, info := range c.reg.Muxers() {
		mux := c.reg.NewMuxer(info.ID)
		if mux == nil {
			continue
		}
		for _, format := range mux.Formats() {
			audio, defAudio := c.matchCodecs(mux, format, media.TypeAudio)
			if len(audio) == 0 {
				continue
			}
			video, defVideo := c.matchCodecs(mux, format, media.TypeVideo)
			if len(video) == 0 {
				continue
			}

			fd := FormatDescriptor{
				PluginID:          info.ID,
				Name:              format,
				Description:       mux.FormatDescription(format),
				Extension:         mux.Extension(format),
				AudioCodecs:       audio,
				VideoCodecs:       video,
				DefaultAudioCodec: defAudio,
				DefaultVideoCodec: defVideo,
				Priority:          info.Priority,
			}
			c.formats = append(c.formats, fd)

			if c.defaultFormat == "" || info.Priority > bestPriority {
				c.defaultFormat = fd.Key()
				bestPriority = info.Priority
			}
		}
	}
	sort.SliceStable(c.formats, func(i, j int) bool {
		return c.formats[i].Description < c.formats[j].Description
	})
}

// matchCodecs intersects the codecs a muxer accepts for a format and media
// type with the enumerated codec descriptors. The default is the
// highest-priority plugin advertising the muxer's own default codec.
func (c *Catalog) matchCodecs(mux codec.Muxer, format string, t media.Type) (keys []string, defaultKey string) {
	accepted := mux.SupportedCodecs(format, t)
	preferred := mux.DefaultCodec(format, t)

	defaultPriority := 0
	for _, cd := range c.codecs {
		if cd.Type != t || !contains(accepted, cd.Codec) {
			continue
		}
		keys = append(keys, cd.Key())
		if cd.Codec == preferred {
			if defaultKey == "" || cd.Priority > defaultPriority {
				defaultKey = cd.Key()
				defaultPriority = cd.Priority
			}
		}
	}
	if defaultKey == "" && len(keys) > 0 {
		defaultKey = keys[0]
	}
	return keys, defaultKey
}

// Codecs returns all enumerated codec descriptors sorted by description.
func (c *Catalog) Codecs() []CodecDescriptor {
	return c.codecs
}

// Formats returns the composite keys of all retained formats.
func (c *Catalog) Formats() []string {
	keys := make([]string, len(c.formats))
	for i, f := range c.formats {
		keys[i] = f.Key()
	}
	return keys
}

// FormatDescriptors returns the retained format descriptors.
func (c *Catalog) FormatDescriptors() []FormatDescriptor {
	return c.formats
}

// DefaultFormat is the retained format whose plugin has the globally highest
// priority, or "" when nothing is retained.
func (c *Catalog) DefaultFormat() string {
	return c.defaultFormat
}

// Format looks up a retained format by composite key.
func (c *Catalog) Format(key string) (FormatDescriptor, bool) {
	pluginID, name, ok := SplitKey(key)
	if !ok {
		return FormatDescriptor{}, false
	}
	for _, f := range c.formats {
		if f.PluginID == pluginID && f.Name == name {
			return f, true
		}
	}
	return FormatDescriptor{}, false
}

// FormatDescription returns the display description for a format key, or ""
// for malformed or unknown keys.
func (c *Catalog) FormatDescription(key string) string {
	f, ok := c.Format(key)
	if !ok {
		return ""
	}
	return f.Description
}

// DefaultCodec returns the default codec key of a format for a media type.
func (c *Catalog) DefaultCodec(key string, t media.Type) string {
	f, ok := c.Format(key)
	if !ok {
		return ""
	}
	switch t {
	case media.TypeAudio:
		return f.DefaultAudioCodec
	case media.TypeVideo:
		return f.DefaultVideoCodec
	default:
		return ""
	}
}

// SupportedCodecs returns the codec keys usable with a format for a media
// type. TypeUnknown returns the audio and video lists concatenated.
func (c *Catalog) SupportedCodecs(key string, t media.Type) []string {
	f, ok := c.Format(key)
	if !ok {
		return nil
	}
	var keys []string
	if t == media.TypeAudio || t == media.TypeUnknown {
		keys = append(keys, f.AudioCodecs...)
	}
	if t == media.TypeVideo || t == media.TypeUnknown {
		keys = append(keys, f.VideoCodecs...)
	}
	return keys
}

// CodecDescription returns the display description for a codec key, or ""
// for malformed or unknown keys.
func (c *Catalog) CodecDescription(key string) string {
	pluginID, name, ok := SplitKey(key)
	if !ok {
		return ""
	}
	for _, cd := range c.codecs {
		if cd.PluginID == pluginID && cd.Codec == name {
			return cd.Description
		}
	}
	return ""
}

// SplitKey parses a composite pluginID:name key. Malformed keys, missing the
// separator or either part, report ok=false.
func SplitKey(key string) (pluginID, name string, ok bool) {
	pluginID, name, found := strings.Cut(key, ":")
	if !found || pluginID == "" || name == "" {
		return "", "", false
	}
	return pluginID, name, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
