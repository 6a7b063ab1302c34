// Package preview extracts thumbnail images from finished recordings.
// Containers register a Source for their file extensions; extraction runs
// on a bounded worker pool so a burst of finished recordings cannot pile
// up decoding goroutines.
package preview

import (
	"image"
	"time"
)

// Clip is one opened recording.
type Clip interface {
	// Duration is the total playback length.
	Duration() time.Duration
	// FrameAt decodes a representative frame near the given position.
	FrameAt(at time.Duration) (image.Image, error)
	Close() error
}

// Source opens recordings of the container formats it declares.
type Source interface {
	// Extensions lists handled file extensions, without dots.
	Extensions() []string
	Open(path string) (Clip, error)
}
