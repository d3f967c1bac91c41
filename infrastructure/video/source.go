package video

import (
	"image"
	"time"
)

// Source is a time-addressable video. Duration may legitimately be NaN or
// non-positive when the container carries unreliable metadata; callers fall
// back to a fixed offset list in that case.
type Source interface {
	Duration() float64
	CurrentTime() float64
	// Seek positions the source at the given offset in seconds, waiting at
	// most timeout. A timeout is reported as an error but leaves the source
	// usable; exact timing is best effort.
	Seek(offset float64, timeout time.Duration) error
	// Capture returns the still picture at the current position.
	Capture() (image.Image, error)
	Close() error
}

// FrameSample is a single still image extracted from a video, downscaled
// and JPEG encoded, with its perceptual brightness (0-255) precomputed.
// Samples are consumed immediately by a classifier or the judge adapter and
// never persisted.
type FrameSample struct {
	Offset     float64
	Width      int
	Height     int
	JPEG       []byte
	Brightness float64
	Image      image.Image
}
