package recording

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/smazurov/camcorder/internal/events"
	"github.com/smazurov/camcorder/internal/media"
)

// TakePhoto snapshots the most recent video frame into an interleaved
// 32-bit image held until saved or discarded. False when no frame has
// arrived yet.
func (s *Session) TakePhoto() bool {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.currentFrame == nil {
		return false
	}
	img := media.ToNRGBA(s.currentFrame)
	s.photo = media.FrameFromImage(img, s.currentFrame.Caps.FPS, s.currentFrame.PTS)
	photosTaken.Inc()
	return true
}

// Photo returns the held snapshot, or nil.
func (s *Session) Photo() *media.VideoFrame {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.photo
}

// DiscardPhoto drops the held snapshot.
func (s *Session) DiscardPhoto() {
	s.frameMu.Lock()
	s.photo = nil
	s.frameMu.Unlock()
}

// SavePhoto writes the held snapshot to path; the image format follows
// the file extension. The save silently aborts when storage access is
// denied or the directory cannot be created, leaving no partial file.
func (s *Session) SavePhoto(path string) bool {
	s.frameMu.Lock()
	photo := s.photo
	s.frameMu.Unlock()
	if photo == nil {
		return false
	}
	if s.storageWritable != nil && !s.storageWritable() {
		s.logger.Warn("Photo not saved: storage not writable", "path", path)
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Warn("Photo not saved: cannot create directory", "path", path, "error", err)
		return false
	}
	s.mu.Lock()
	quality := s.imageQuality
	s.mu.Unlock()
	var encOpts []imaging.EncodeOption
	if quality >= 0 {
		encOpts = append(encOpts, imaging.JPEGQuality(quality))
	}
	if err := imaging.Save(media.ToNRGBA(photo), path, encOpts...); err != nil {
		s.logger.Warn("Photo save failed", "path", path, "error", err)
		return false
	}

	s.logger.Info("Photo saved", "path", path)
	if s.bus != nil {
		s.bus.Publish(events.PhotoEvent{Location: path, Timestamp: s.clk.Now()})
	}
	return true
}
