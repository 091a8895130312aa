// Package vision holds the OpenCV side of the server: decoding reference
// images and recognizing them in camera frames.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Decoder decodes fetched thumbnails with OpenCV.
type Decoder struct{}

// Decode turns encoded image bytes (JPEG, PNG, ...) into pixels.
func (Decoder) Decode(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	return img, nil
}
