// Package surface binds video content to render nodes. Opening and playing
// the video is delegated to a Player; failures leave the surface untextured.
package surface

import (
	"errors"
	"fmt"
	"sync"

	"overlayserver/internal/logger"
	"overlayserver/internal/scene"
)

// ErrPlayback matches every playback failure.
var ErrPlayback = errors.New("video playback failed")

// PlaybackError is a non-fatal failure to open or start a video.
type PlaybackError struct {
	URL string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.URL, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

func (e *PlaybackError) Is(target error) bool { return target == ErrPlayback }

// Player is the media subsystem.
type Player interface {
	Open(url string, scene *VideoScene) (Playback, error)
}

// Playback is one opened video.
type Playback interface {
	Play(volume float64) error
	Stop() error
}

const (
	ScaleAspectFit = "aspect_fit"

	StatusOpening = "opening"
	StatusPlaying = "playing"
	StatusFailed  = "failed"
	StatusStopped = "stopped"
)

// VideoScene is the intermediate 2D scene a video is rendered into before it
// is applied as a node's diffuse texture.
type VideoScene struct {
	VideoURL  string  `json:"video_url"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	ScaleMode string  `json:"scale_mode"`
	FlipY     bool    `json:"flip_y"`
	CenterX   float64 `json:"center_x"`
	CenterY   float64 `json:"center_y"`
	Volume    float64 `json:"volume"`

	mu       sync.Mutex
	status   string
	err      error
	released bool
	playback Playback
}

// Status returns the playback status and the failure, if any.
func (v *VideoScene) Status() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status, v.err
}

// Options size the video scene and set the playback volume.
type Options struct {
	Width  int
	Height int
	Volume float64
}

// DefaultOptions is a 600×300 scene played at volume 2.
func DefaultOptions() Options {
	return Options{Width: 600, Height: 300, Volume: 2.0}
}

// Adapter binds videos to nodes.
type Adapter struct {
	player Player
	opts   Options
	logger *logger.Logger
	wg     sync.WaitGroup
}

// NewAdapter creates an adapter over player.
func NewAdapter(player Player, opts Options, logger *logger.Logger) *Adapter {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	return &Adapter{player: player, opts: opts, logger: logger}
}

// Bind sets a video scene as node's diffuse contents and starts opening the
// video on another goroutine, so the caller never blocks on the media
// subsystem.
func (a *Adapter) Bind(node *scene.Node, videoURL string) *VideoScene {
	vs := &VideoScene{
		VideoURL:  videoURL,
		Width:     a.opts.Width,
		Height:    a.opts.Height,
		ScaleMode: ScaleAspectFit,
		FlipY:     true,
		CenterX:   float64(a.opts.Width) / 2,
		CenterY:   float64(a.opts.Height) / 2,
		Volume:    a.opts.Volume,
		status:    StatusOpening,
	}
	node.Material.Diffuse = vs

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.start(vs)
	}()
	return vs
}

func (a *Adapter) start(vs *VideoScene) {
	playback, err := a.player.Open(vs.VideoURL, vs)
	if err == nil {
		err = playback.Play(vs.Volume)
		if err != nil {
			_ = playback.Stop()
		}
	}

	if err != nil {
		perr := &PlaybackError{URL: vs.VideoURL, Err: err}
		vs.mu.Lock()
		vs.status = StatusFailed
		vs.err = perr
		vs.mu.Unlock()
		a.logger.Warning("Video left untextured: %v", perr)
		return
	}

	vs.mu.Lock()
	if vs.released {
		vs.mu.Unlock()
		_ = playback.Stop()
		return
	}
	vs.status = StatusPlaying
	vs.playback = playback
	vs.mu.Unlock()

	a.logger.Info("Playing %s at volume %.1f", vs.VideoURL, vs.Volume)
}

// Release stops the video bound to node, if any. A video still being opened
// is stopped as soon as it opens.
func (a *Adapter) Release(node *scene.Node) {
	vs, ok := node.Material.Diffuse.(*VideoScene)
	if !ok {
		return
	}

	vs.mu.Lock()
	vs.released = true
	playback := vs.playback
	vs.playback = nil
	if vs.status != StatusFailed {
		vs.status = StatusStopped
	}
	vs.mu.Unlock()

	if playback != nil {
		if err := playback.Stop(); err != nil {
			a.logger.Warning("Failed to stop %s: %v", vs.VideoURL, err)
		}
	}
}

// Wait blocks until every pending open has finished.
func (a *Adapter) Wait() {
	a.wg.Wait()
}
