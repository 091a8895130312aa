package vision

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"overlayserver/internal/logger"
	"overlayserver/internal/models"
	"overlayserver/internal/session"
)

// Options tune feature matching.
type Options struct {
	QueueSize  int
	MinMatches int
	Ratio      float64
}

// DefaultOptions returns the matching parameters used when nothing is configured.
func DefaultOptions() Options {
	return Options{QueueSize: 8, MinMatches: 25, Ratio: 0.75}
}

type reference struct {
	image       models.RecognizableImage
	descriptors gocv.Mat
}

type frame struct {
	camera string
	data   []byte
}

// Tracker recognizes reference images in camera frames and reports one anchor
// per image until the next reset. It implements session.Tracker.
type Tracker struct {
	opts   Options
	logger *logger.Logger
	frames chan frame

	mu       sync.Mutex
	orb      gocv.ORB
	matcher  gocv.BFMatcher
	refs     []reference
	anchored map[int]bool
	running  bool
	gen      uint64
	onAnchor func(models.Anchor)

	processed atomic.Uint64
	dropped   atomic.Uint64
	wg        sync.WaitGroup
}

// NewTracker creates a paused tracker. Call Start to begin consuming frames.
func NewTracker(opts Options, logger *logger.Logger) *Tracker {
	d := DefaultOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = d.QueueSize
	}
	if opts.MinMatches <= 0 {
		opts.MinMatches = d.MinMatches
	}
	if opts.Ratio <= 0 || opts.Ratio >= 1 {
		opts.Ratio = d.Ratio
	}
	return &Tracker{
		opts:     opts,
		logger:   logger,
		frames:   make(chan frame, opts.QueueSize),
		orb:      gocv.NewORB(),
		matcher:  gocv.NewBFMatcherWithParams(gocv.NormHamming, false),
		anchored: make(map[int]bool),
	}
}

// OnAnchor sets the callback for newly recognized images. Callbacks are
// delivered one at a time from the matching goroutine.
func (t *Tracker) OnAnchor(fn func(models.Anchor)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAnchor = fn
}

// Start runs the matching worker until ctx is done.
func (t *Tracker) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logger.Info("Tracker worker started (queue %d, min matches %d)", t.opts.QueueSize, t.opts.MinMatches)
		for {
			select {
			case <-ctx.Done():
				t.logger.Info("Tracker worker stopped")
				return
			case f := <-t.frames:
				t.deliver(t.detect(f))
				t.processed.Add(1)
			}
		}
	}()
}

func (t *Tracker) deliver(anchors []models.Anchor) {
	if len(anchors) == 0 {
		return
	}
	t.mu.Lock()
	cb := t.onAnchor
	t.mu.Unlock()
	if cb == nil {
		return
	}
	for _, a := range anchors {
		cb(a)
	}
}

// Run replaces the reference set. Every image must yield ORB descriptors;
// otherwise the previous configuration stays in place and an error is returned.
// Anchors matched after Run returns carry opts.Generation.
func (t *Tracker) Run(cfg session.Configuration, opts session.RunOptions) error {
	images := cfg.Images.Images()

	t.mu.Lock()
	defer t.mu.Unlock()

	refs := make([]reference, 0, len(images))
	for _, img := range images {
		desc, err := t.describe(img)
		if err != nil {
			closeRefs(refs)
			return fmt.Errorf("reference image %d: %w", img.Tag, err)
		}
		refs = append(refs, reference{image: img, descriptors: desc})
	}

	closeRefs(t.refs)
	t.refs = refs
	t.gen = opts.Generation

	if opts.RemoveExistingAnchors {
		t.anchored = make(map[int]bool)
	}
	if opts.ResetTracking {
		t.drain()
	}
	t.running = true

	t.logger.Info("Tracking %d reference image(s)", len(refs))
	return nil
}

// Pause stops matching and drops queued frames until the next Run.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.drain()
}

// ProcessFrame queues an encoded camera frame for matching. It never blocks:
// the frame is dropped when the tracker is paused or the queue is full.
func (t *Tracker) ProcessFrame(camera string, data []byte) bool {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if !running {
		return false
	}

	select {
	case t.frames <- frame{camera: camera, data: data}:
		return true
	default:
		t.dropped.Add(1)
		return false
	}
}

// Stats returns how many frames were fully handled, anchor callbacks
// included, and how many were dropped.
func (t *Tracker) Stats() (processed, dropped uint64) {
	return t.processed.Load(), t.dropped.Load()
}

// Close releases OpenCV resources. The worker must have stopped.
func (t *Tracker) Close() {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	closeRefs(t.refs)
	t.refs = nil
	t.orb.Close()
	t.matcher.Close()
}

func (t *Tracker) describe(img models.RecognizableImage) (gocv.Mat, error) {
	if img.Pixels == nil {
		return gocv.Mat{}, fmt.Errorf("no pixels")
	}
	rgb, err := gocv.ImageToMatRGB(img.Pixels)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image: %w", err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	mask := gocv.NewMat()
	defer mask.Close()

	_, desc := t.orb.DetectAndCompute(gray, mask)
	if desc.Empty() {
		desc.Close()
		return gocv.Mat{}, fmt.Errorf("no features found")
	}
	return desc, nil
}

func (t *Tracker) detect(f frame) []models.Anchor {
	mat, err := gocv.IMDecode(f.data, gocv.IMReadGrayScale)
	if err != nil {
		t.logger.Warning("Camera %s: failed to decode frame: %v", f.camera, err)
		return nil
	}
	defer mat.Close()
	if mat.Empty() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || len(t.refs) == 0 {
		return nil
	}

	mask := gocv.NewMat()
	defer mask.Close()
	keypoints, desc := t.orb.DetectAndCompute(mat, mask)
	defer desc.Close()
	if desc.Empty() {
		return nil
	}

	var anchors []models.Anchor
	for i := range t.refs {
		ref := &t.refs[i]
		if t.anchored[ref.image.Tag] {
			continue
		}

		good := goodMatches(t.matcher.KnnMatch(desc, ref.descriptors, 2), t.opts.Ratio)
		if len(good) < t.opts.MinMatches {
			continue
		}

		img := ref.image
		anchors = append(anchors, models.Anchor{
			ID:         uuid.NewString(),
			Camera:     f.camera,
			Image:      &img,
			Region:     region(keypoints, good),
			Matches:    len(good),
			DetectedAt: time.Now(),
			Generation: t.gen,
		})
		t.anchored[ref.image.Tag] = true
		t.logger.Debug("Camera %s: reference %d recognized with %d matches", f.camera, ref.image.Tag, len(good))
	}
	return anchors
}

func (t *Tracker) drain() {
	for {
		select {
		case <-t.frames:
		default:
			return
		}
	}
}

func closeRefs(refs []reference) {
	for _, r := range refs {
		r.descriptors.Close()
	}
}

// goodMatches applies the ratio test to k=2 nearest-neighbour matches.
func goodMatches(knn [][]gocv.DMatch, ratio float64) []gocv.DMatch {
	var good []gocv.DMatch
	for _, m := range knn {
		if len(m) < 2 {
			continue
		}
		if m[0].Distance < ratio*m[1].Distance {
			good = append(good, m[0])
		}
	}
	return good
}

// region is the bounding box of the matched frame keypoints.
func region(keypoints []gocv.KeyPoint, matches []gocv.DMatch) image.Rectangle {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(keypoints) {
			continue
		}
		kp := keypoints[m.QueryIdx]
		minX = math.Min(minX, kp.X)
		minY = math.Min(minY, kp.Y)
		maxX = math.Max(maxX, kp.X)
		maxY = math.Max(maxY, kp.Y)
	}
	if minX > maxX {
		return image.Rectangle{}
	}
	return image.Rect(int(minX), int(minY), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
