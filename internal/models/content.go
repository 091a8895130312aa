package models

import "net/url"

// ContentDescriptor is one entry of the content catalog. Its position in the
// catalog is the tag used to correlate reference images with content.
type ContentDescriptor struct {
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	Description  string   `json:"description"`
	ThumbnailURL *url.URL `json:"-"`
	VideoURL     *url.URL `json:"-"`
}

// Thumbnail returns the thumbnail URI as a string.
func (c ContentDescriptor) Thumbnail() string {
	if c.ThumbnailURL == nil {
		return ""
	}
	return c.ThumbnailURL.String()
}

// Video returns the video URI as a string.
func (c ContentDescriptor) Video() string {
	if c.VideoURL == nil {
		return ""
	}
	return c.VideoURL.String()
}
