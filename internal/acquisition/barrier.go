package acquisition

import (
	"sort"
	"sync"

	"overlayserver/internal/models"
)

// Policy decides when the completion barrier fires.
type Policy string

const (
	// PolicySettled fires once every fetch has settled, successful or not.
	PolicySettled Policy = "settled"
	// PolicySucceeded fires only once every fetch has succeeded. A single
	// failure keeps the barrier closed for the lifetime of the process.
	PolicySucceeded Policy = "succeeded"
)

// Result is one settled fetch. Exactly one of Image and Err is set.
type Result struct {
	Tag   int
	URL   string
	Image *models.RecognizableImage
	Err   error
}

// OK reports whether the fetch produced an image.
func (r Result) OK() bool { return r.Err == nil && r.Image != nil }

// Progress is a point-in-time view of the barrier counters.
type Progress struct {
	Target    int  `json:"target"`
	Settled   int  `json:"settled"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Fired     bool `json:"fired"`
}

// Barrier owns the recognition set while images are acquired and decides,
// under one lock, when the set is complete.
type Barrier struct {
	mu      sync.Mutex
	target  int
	policy  Policy
	images  map[int]models.RecognizableImage
	settled map[int]bool
	failed  int
	fired   bool
}

// NewBarrier creates a barrier for a catalog of target entries.
func NewBarrier(target int, policy Policy) *Barrier {
	if policy != PolicySucceeded {
		policy = PolicySettled
	}
	return &Barrier{
		target:  target,
		policy:  policy,
		images:  make(map[int]models.RecognizableImage, target),
		settled: make(map[int]bool, target),
	}
}

// Record applies one result. It returns the snapshot to start tracking with
// and true the first time the completion condition holds; afterwards it
// always returns false. Results for tags outside the catalog, or for a tag
// that already settled, do not move the counters.
func (b *Barrier) Record(r Result) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Tag < 0 || r.Tag >= b.target || b.settled[r.Tag] {
		return Snapshot{}, false
	}
	b.settled[r.Tag] = true

	if r.OK() {
		img := *r.Image
		img.Tag = r.Tag
		b.images[r.Tag] = img
	} else {
		b.failed++
	}

	if b.fired || !b.completeLocked() {
		return Snapshot{}, false
	}
	b.fired = true
	return b.snapshotLocked(), true
}

func (b *Barrier) completeLocked() bool {
	switch b.policy {
	case PolicySucceeded:
		return len(b.images) == b.target
	default:
		return len(b.settled) == b.target
	}
}

// Snapshot returns the current recognition set.
func (b *Barrier) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Barrier) snapshotLocked() Snapshot {
	images := make([]models.RecognizableImage, 0, len(b.images))
	for _, img := range b.images {
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Tag < images[j].Tag })
	return Snapshot{images: images}
}

// Progress returns the barrier counters.
func (b *Barrier) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Progress{
		Target:    b.target,
		Settled:   len(b.settled),
		Succeeded: len(b.images),
		Failed:    b.failed,
		Fired:     b.fired,
	}
}

// Policy returns the policy the barrier was built with.
func (b *Barrier) Policy() Policy { return b.policy }

// Snapshot is an immutable copy of the recognition set, ordered by tag.
type Snapshot struct {
	images []models.RecognizableImage
}

// NewSnapshot builds a snapshot from images. Later duplicates of a tag win.
func NewSnapshot(images ...models.RecognizableImage) Snapshot {
	byTag := make(map[int]models.RecognizableImage, len(images))
	for _, img := range images {
		byTag[img.Tag] = img
	}
	out := make([]models.RecognizableImage, 0, len(byTag))
	for _, img := range byTag {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return Snapshot{images: out}
}

// Len returns the number of images.
func (s Snapshot) Len() int { return len(s.images) }

// Images returns a copy of the images.
func (s Snapshot) Images() []models.RecognizableImage {
	out := make([]models.RecognizableImage, len(s.images))
	copy(out, s.images)
	return out
}

// Tags returns the tags in ascending order.
func (s Snapshot) Tags() []int {
	tags := make([]int, len(s.images))
	for i, img := range s.images {
		tags[i] = img.Tag
	}
	return tags
}
