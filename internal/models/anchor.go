package models

import (
	"image"
	"time"
)

// Anchor is created by the tracker once per recognized reference image and
// lives until the next session reset.
type Anchor struct {
	ID     string
	Camera string
	// Image is the reference image that matched. Nil means the tracker lost the
	// association, which the binder reports as a mismatch.
	Image *RecognizableImage
	// Region is the bounding box of the matched features in the camera frame.
	Region     image.Rectangle
	Matches    int
	DetectedAt time.Time
	// Generation is the tracker run that produced the anchor. Anchors from an
	// earlier run are stale.
	Generation uint64
}

// PhysicalSize returns the physical size of the matched image, or zero when the
// anchor carries no image.
func (a Anchor) PhysicalSize() (float64, float64) {
	if a.Image == nil {
		return 0, 0
	}
	return a.Image.PhysicalSize()
}
