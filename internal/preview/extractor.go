package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/camcorder/internal/events"
	"github.com/smazurov/camcorder/internal/tasks"
)

// Thumbnails are scaled to fit this box.
const (
	thumbWidth  = 512
	thumbHeight = 288
)

// seekFraction places the representative frame a tenth into the
// recording, past any initial black or settling frames.
const seekFraction = 0.1

var (
	thumbnailsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_thumbnails_extracted_total",
		Help: "Thumbnails successfully written to disk.",
	})
	thumbnailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_thumbnails_failed_total",
		Help: "Thumbnail extractions that failed.",
	})
)

// Extractor turns finished recordings into preview images asynchronously.
type Extractor struct {
	logger *slog.Logger
	bus    *events.Bus
	pool   *tasks.Pool
	dir    string

	mu      sync.RWMutex
	sources map[string]Source
}

// NewExtractor creates an extractor writing thumbnails under dir. An empty
// dir falls back to a camcorder directory inside os.TempDir.
func NewExtractor(bus *events.Bus, dir string, logger *slog.Logger) *Extractor {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "camcorder")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger:  logger,
		bus:     bus,
		pool:    tasks.NewPool(2, logger),
		dir:     dir,
		sources: make(map[string]Source),
	}
}

// RegisterSource installs a container source for all its extensions.
func (x *Extractor) RegisterSource(src Source) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, ext := range src.Extensions() {
		x.sources[strings.ToLower(ext)] = src
	}
}

func (x *Extractor) source(path string) (Source, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	x.mu.RLock()
	defer x.mu.RUnlock()
	src, ok := x.sources[ext]
	return src, ok
}

// Extract queues thumbnail generation for a finished recording. Returns
// false when no source handles the file or the queue is full.
func (x *Extractor) Extract(video string) bool {
	if _, ok := x.source(video); !ok {
		x.logger.Debug("No preview source for file", "video", video)
		return false
	}
	return x.pool.Submit("thumbnail "+filepath.Base(video), func(ctx context.Context) {
		if err := x.extract(video); err != nil {
			thumbnailsFailed.Inc()
			x.logger.Warn("Thumbnail extraction failed", "video", video, "error", err)
		}
	})
}

// ExtractSync generates the thumbnail on the calling goroutine and
// returns its path.
func (x *Extractor) ExtractSync(video string) (string, error) {
	if err := x.extract(video); err != nil {
		thumbnailsFailed.Inc()
		return "", err
	}
	return x.ThumbnailPath(video), nil
}

// ThumbnailPath is where the preview image for a recording lands.
func (x *Extractor) ThumbnailPath(video string) string {
	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(x.dir, base+".png")
}

func (x *Extractor) extract(video string) error {
	src, ok := x.source(video)
	if !ok {
		return fmt.Errorf("no source for %s", video)
	}
	clip, err := src.Open(video)
	if err != nil {
		return err
	}
	defer clip.Close()

	at := time.Duration(seekFraction * float64(clip.Duration()))
	frame, err := clip.FrameAt(at)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return err
	}
	thumb := imaging.Fit(frame, thumbWidth, thumbHeight, imaging.Lanczos)
	path := x.ThumbnailPath(video)
	if err := imaging.Save(thumb, path); err != nil {
		return err
	}

	thumbnailsExtracted.Inc()
	x.logger.Info("Thumbnail written", "video", video, "thumbnail", path)
	if x.bus != nil {
		x.bus.Publish(events.VideoPreviewEvent{Video: video, Thumbnail: path})
	}
	return nil
}

// Wait blocks until queued extractions finish.
func (x *Extractor) Wait() {
	x.pool.Wait()
}

// Close drains pending extractions and stops the workers.
func (x *Extractor) Close() {
	x.pool.Close()
}
