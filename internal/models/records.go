package models

import "time"

// FetchRecord is an audit row for one settled thumbnail fetch.
type FetchRecord struct {
	ID        int64     `json:"id"`
	Tag       int       `json:"tag"`
	URL       string    `json:"url"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BindingRecord is an audit row for one anchor bound to content.
type BindingRecord struct {
	ID        int64     `json:"id"`
	AnchorID  string    `json:"anchor_id"`
	Camera    string    `json:"camera"`
	Tag       int       `json:"tag"`
	Title     string    `json:"title"`
	VideoURL  string    `json:"video_url"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// TagCount is the number of bindings recorded for one tag.
type TagCount struct {
	Tag   int `json:"tag"`
	Count int `json:"count"`
}
