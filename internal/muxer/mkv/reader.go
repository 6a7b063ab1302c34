package mkv

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
)

// Reader parses a finished Matroska or WebM file. The whole element tree
// is unmarshaled up front; recordings this module produces keep clusters
// small enough for that to stay reasonable for thumbnail work.
type Reader struct {
	segment webm.Segment
}

// OpenFile parses the container at path.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var container struct {
		Header  webm.EBMLHeader `ebml:"EBML"`
		Segment webm.Segment    `ebml:"Segment"`
	}
	if err := ebml.Unmarshal(f, &container); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Reader{segment: container.Segment}, nil
}

// Duration derives the recording length from the segment info, falling
// back to the last block timestamp when the info carries no duration.
func (r *Reader) Duration() time.Duration {
	scale := r.segment.Info.TimecodeScale
	if scale == 0 {
		scale = 1_000_000
	}
	if d := r.segment.Info.Duration; d > 0 {
		return time.Duration(d * float64(scale))
	}

	var last int64
	for _, cluster := range r.segment.Cluster {
		for _, block := range cluster.SimpleBlock {
			if ts := int64(cluster.Timecode) + int64(block.Timecode); ts > last {
				last = ts
			}
		}
	}
	return time.Duration(last) * time.Duration(scale)
}

// videoTrack finds the first video track entry.
func (r *Reader) videoTrack() (webm.TrackEntry, bool) {
	for _, entry := range r.segment.Tracks.TrackEntry {
		if entry.TrackType == 1 {
			return entry, true
		}
	}
	return webm.TrackEntry{}, false
}

// FrameAt decodes the video keyframe closest to the given position.
// Only self-contained codecs can be decoded without a full codec stack;
// currently that means Motion JPEG.
func (r *Reader) FrameAt(at time.Duration) (image.Image, error) {
	track, ok := r.videoTrack()
	if !ok {
		return nil, fmt.Errorf("no video track")
	}
	if track.CodecID != "V_MJPEG" {
		return nil, fmt.Errorf("cannot decode codec %s", track.CodecID)
	}

	data := r.keyframeNear(track.TrackNumber, at.Milliseconds())
	if data == nil {
		return nil, fmt.Errorf("no keyframe found")
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// keyframeNear returns the payload of the last keyframe at or before the
// target, or the first keyframe when the target precedes all of them.
func (r *Reader) keyframeNear(trackNumber uint64, targetMs int64) []byte {
	var chosen []byte
	var chosenTs int64 = -1
	for _, cluster := range r.segment.Cluster {
		for _, block := range cluster.SimpleBlock {
			if block.TrackNumber != trackNumber || !block.Keyframe || len(block.Data) == 0 {
				continue
			}
			ts := int64(cluster.Timecode) + int64(block.Timecode)
			if chosen == nil || (ts <= targetMs && ts > chosenTs) {
				chosen = block.Data[0]
				chosenTs = ts
			}
		}
	}
	return chosen
}
