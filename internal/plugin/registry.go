// Package plugin holds the lookup table of codec and muxer implementations.
// Dispatch is a plain table lookup keyed by plugin identity; each
// implementation package registers its factory at startup.
package plugin

import (
	"sort"
	"sync"

	"github.com/smazurov/camcorder/internal/codec"
)

// Info identifies a registered plugin. Priority orders competing plugins
// when several advertise the same codec or container format; higher wins.
type Info struct {
	ID          string
	Description string
	Priority    int
}

// Registry is the plugin lookup table. The zero value is not usable; call
// New. A process normally uses one registry built during startup and treats
// it as read-only afterwards.
type Registry struct {
	mu            sync.RWMutex
	audioEncoders map[string]entry[func() codec.AudioEncoder]
	videoEncoders map[string]entry[func() codec.VideoEncoder]
	muxers        map[string]entry[func() codec.Muxer]
}

type entry[T any] struct {
	info    Info
	factory T
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		audioEncoders: make(map[string]entry[func() codec.AudioEncoder]),
		videoEncoders: make(map[string]entry[func() codec.VideoEncoder]),
		muxers:        make(map[string]entry[func() codec.Muxer]),
	}
}

// RegisterAudioEncoder adds an audio encoder plugin. A duplicate ID replaces
// the previous registration.
func (r *Registry) RegisterAudioEncoder(info Info, factory func() codec.AudioEncoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioEncoders[info.ID] = entry[func() codec.AudioEncoder]{info: info, factory: factory}
}

// RegisterVideoEncoder adds a video encoder plugin.
func (r *Registry) RegisterVideoEncoder(info Info, factory func() codec.VideoEncoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videoEncoders[info.ID] = entry[func() codec.VideoEncoder]{info: info, factory: factory}
}

// RegisterMuxer adds a container muxer plugin.
func (r *Registry) RegisterMuxer(info Info, factory func() codec.Muxer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muxers[info.ID] = entry[func() codec.Muxer]{info: info, factory: factory}
}

// AudioEncoders lists registered audio encoder plugins sorted by ID, so
// enumeration order is deterministic for a given plugin set.
func (r *Registry) AudioEncoders() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedInfos(r.audioEncoders)
}

// VideoEncoders lists registered video encoder plugins sorted by ID.
func (r *Registry) VideoEncoders() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedInfos(r.videoEncoders)
}

// Muxers lists registered muxer plugins sorted by ID.
func (r *Registry) Muxers() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedInfos(r.muxers)
}

// NewAudioEncoder instantiates the audio encoder plugin with the given ID.
// Returns nil if no such plugin is registered.
func (r *Registry) NewAudioEncoder(id string) codec.AudioEncoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.audioEncoders[id]; ok {
		return e.factory()
	}
	return nil
}

// NewVideoEncoder instantiates the video encoder plugin with the given ID.
func (r *Registry) NewVideoEncoder(id string) codec.VideoEncoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.videoEncoders[id]; ok {
		return e.factory()
	}
	return nil
}

// NewMuxer instantiates the muxer plugin with the given ID.
func (r *Registry) NewMuxer(id string) codec.Muxer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.muxers[id]; ok {
		return e.factory()
	}
	return nil
}

func sortedInfos[T any](m map[string]entry[T]) []Info {
	infos := make([]Info, 0, len(m))
	for _, e := range m {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
