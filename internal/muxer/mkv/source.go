package mkv

import "github.com/smazurov/camcorder/internal/preview"

// Source lets the thumbnail extractor open files this muxer writes.
type Source struct{}

// Extensions lists the file extensions the source handles, without dots.
func (Source) Extensions() []string {
	return []string{"mkv", "webm"}
}

// Open parses the container for inspection.
func (Source) Open(path string) (preview.Clip, error) {
	return OpenFile(path)
}

// Close implements preview.Clip; the reader holds no resources once
// parsing is done.
func (r *Reader) Close() error {
	return nil
}
