// Package events carries the application event bus. Subsystems publish
// notifications here instead of calling each other directly; the CLI and
// the thumbnail extractor subscribe to react to recording milestones.
package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeRecordingStarted uint32 = iota + 1
	TypeRecordingStopped
	TypeVideoPreview
	TypePhoto
	TypeLastVideo
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RecordingStartedEvent fires when a recording session reaches the active
// state and the output file is open.
type RecordingStartedEvent struct {
	Location  string    `json:"location"`
	Format    string    `json:"format"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent fires after the output file is finalized.
type RecordingStoppedEvent struct {
	Location  string        `json:"location"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// VideoPreviewEvent fires when a thumbnail for a recorded video is ready
// on disk.
type VideoPreviewEvent struct {
	Video     string `json:"video"`
	Thumbnail string `json:"thumbnail"`
}

func (e VideoPreviewEvent) Type() uint32 { return TypeVideoPreview }

// PhotoEvent fires when a captured photo has been written.
type PhotoEvent struct {
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

func (e PhotoEvent) Type() uint32 { return TypePhoto }

// LastVideoEvent tracks the most recently finished recording.
type LastVideoEvent struct {
	Location string `json:"location"`
}

func (e LastVideoEvent) Type() uint32 { return TypeLastVideo }
