// Package media plays bound videos through GStreamer.
package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"overlayserver/internal/logger"
	"overlayserver/internal/surface"
)

const volumeElement = "vol"

// Options choose the GStreamer sinks the video and audio are rendered to.
type Options struct {
	VideoSink string
	AudioSink string
}

// GstPlayer opens videos as uridecodebin pipelines. It implements surface.Player.
type GstPlayer struct {
	opts   Options
	logger *logger.Logger
}

// NewGstPlayer initializes GStreamer and returns a player.
func NewGstPlayer(opts Options, logger *logger.Logger) *GstPlayer {
	gst.Init(nil)
	if opts.VideoSink == "" {
		opts.VideoSink = "autovideosink"
	}
	if opts.AudioSink == "" {
		opts.AudioSink = "autoaudiosink"
	}
	return &GstPlayer{opts: opts, logger: logger}
}

// Describe returns the pipeline description for a video rendered into vs.
func (p *GstPlayer) Describe(url string, vs *surface.VideoScene) string {
	flip := ""
	if vs.FlipY {
		flip = " ! videoflip method=vertical-flip"
	}
	return fmt.Sprintf(
		"uridecodebin uri=\"%s\" name=dec "+
			"dec. ! queue ! videoconvert ! videoscale add-borders=true ! video/x-raw,width=%d,height=%d%s ! %s "+
			"dec. ! queue ! audioconvert ! volume name=%s volume=%.2f ! %s",
		url, vs.Width, vs.Height, flip, p.opts.VideoSink,
		volumeElement, vs.Volume, p.opts.AudioSink,
	)
}

// Open builds the pipeline for url without starting it.
func (p *GstPlayer) Open(url string, vs *surface.VideoScene) (surface.Playback, error) {
	pipeline, err := gst.NewPipelineFromString(p.Describe(url, vs))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return &playback{url: url, pipeline: pipeline, logger: p.logger}, nil
}

type playback struct {
	url      string
	pipeline *gst.Pipeline
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Play sets the volume and moves the pipeline to PLAYING.
func (b *playback) Play(volume float64) error {
	if vol, err := b.pipeline.GetElementByName(volumeElement); err == nil {
		if err := vol.SetProperty("volume", volume); err != nil {
			b.logger.Warning("Failed to set volume for %s: %v", b.url, err)
		}
	}

	if err := b.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		b.monitor(ctx)
	}()
	return nil
}

// Stop tears the pipeline down and waits for the bus monitor to exit.
func (b *playback) Stop() error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := b.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to stop pipeline: %w", err)
	}
	return nil
}

func (b *playback) monitor(ctx context.Context) {
	bus := b.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			b.logger.Info("Video %s reached end of stream", b.url)
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			b.logger.Error("Video %s pipeline error: %s (%s)", b.url, gerr.Error(), gerr.DebugString())
			return
		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			b.logger.Warning("Video %s pipeline warning: %s", b.url, gerr.Error())
		}
	}
}
