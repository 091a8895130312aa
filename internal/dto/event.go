package dto

import (
	"encoding/json"
	"time"
)

const (
	EventSessionStarted  = "session_started"
	EventOverlayBound    = "overlay_bound"
	EventOverlaysCleared = "overlays_cleared"
	EventFetchFailed     = "fetch_failed"
	EventBarrierComplete = "barrier_complete"
)

// Event is pushed to viewers and, when configured, to MQTT.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Data: data}
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SessionStarted is the payload of session_started.
type SessionStarted struct {
	Images int   `json:"images"`
	Tags   []int `json:"tags"`
	Starts int   `json:"starts"`
}

// OverlayBound is the payload of overlay_bound.
type OverlayBound struct {
	AnchorID string  `json:"anchor_id"`
	Camera   string  `json:"camera"`
	Node     string  `json:"node"`
	Tag      int     `json:"tag"`
	Title    string  `json:"title"`
	VideoURL string  `json:"video_url"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// OverlaysCleared is the payload of overlays_cleared.
type OverlaysCleared struct {
	Removed []string `json:"removed"`
}

// FetchFailed is the payload of fetch_failed.
type FetchFailed struct {
	Tag   int    `json:"tag"`
	URL   string `json:"url"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}

// BarrierComplete is the payload of barrier_complete.
type BarrierComplete struct {
	Policy    string `json:"policy"`
	Target    int    `json:"target"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// CameraFrame is the message forwarded to viewers for every camera frame.
type CameraFrame struct {
	Camera string `json:"camera"`
	Image  string `json:"image"` // base64 JPEG
}
