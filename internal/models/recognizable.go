package models

import "image"

// DefaultPhysicalWidth is the real-world width, in meters, assumed for every
// reference image.
const DefaultPhysicalWidth = 0.1

// RecognizableImage is a decoded reference image registered with the tracker.
// Tag is the catalog index it was fetched for and is never reassigned.
type RecognizableImage struct {
	Pixels        image.Image
	PhysicalWidth float64
	Tag           int
}

// PhysicalSize returns the width and height in meters. The height follows the
// aspect ratio of the decoded pixels.
func (r RecognizableImage) PhysicalSize() (float64, float64) {
	if r.Pixels == nil {
		return r.PhysicalWidth, r.PhysicalWidth
	}
	b := r.Pixels.Bounds()
	if b.Dx() == 0 {
		return r.PhysicalWidth, 0
	}
	return r.PhysicalWidth, r.PhysicalWidth * float64(b.Dy()) / float64(b.Dx())
}
