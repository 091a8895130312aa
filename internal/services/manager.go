package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"overlayserver/internal/acquisition"
	"overlayserver/internal/binder"
	"overlayserver/internal/dto"
	"overlayserver/internal/logger"
	"overlayserver/internal/models"
	"overlayserver/internal/repository"
	"overlayserver/internal/scene"
	"overlayserver/internal/services/storage"
	"overlayserver/internal/session"
	"overlayserver/internal/surface"
)

const (
	controlBuffer = 8
	anchorBuffer  = 64
	eventBuffer   = 64
)

// Publisher receives overlay events.
type Publisher interface {
	Publish(event dto.Event) error
}

// Viewers is the set of connected viewers.
type Viewers interface {
	Publisher
	Broadcast(message []byte) bool
	GetClientCount() int
}

// FrameSink consumes camera frames for recognition.
type FrameSink interface {
	ProcessFrame(camera string, data []byte) bool
}

// Surface binds and releases video surfaces.
type Surface interface {
	binder.Surface
	Release(node *scene.Node)
}

// Dependencies are the collaborators the manager coordinates. Frames,
// Viewers, Fetches and Bindings are optional.
type Dependencies struct {
	Catalog    []models.ContentDescriptor
	Acquirer   *acquisition.Acquirer
	Session    *session.Manager
	Surface    Surface
	Frames     FrameSink
	Viewers    Viewers
	Publishers []Publisher
	Fetches    repository.FetchRepository
	Bindings   *storage.BufferService
}

// Options tune the coordinator.
type Options struct {
	BarrierPolicy acquisition.Policy
	// StrictBinding panics on an anchor that does not resolve to the catalog.
	StrictBinding bool
}

type overlay struct {
	info  dto.OverlayInfo
	scene *surface.VideoScene
}

// Manager is the coordination context. Every change to the recognition set,
// the scene graph and the tracking session happens on the goroutine running
// Run; other goroutines talk to it through channels.
type Manager struct {
	catalog  []models.ContentDescriptor
	barrier  *acquisition.Barrier
	acquirer *acquisition.Acquirer
	session  *session.Manager
	graph    *scene.Graph
	binder   *binder.Binder
	surface  Surface

	frames     FrameSink
	viewers    Viewers
	publishers []Publisher
	fetches    repository.FetchRepository
	bindings   *storage.BufferService

	strict bool
	logger *logger.Logger

	results   chan acquisition.Result
	anchors   chan models.Anchor
	resets    chan struct{}
	clears    chan struct{}
	clearDone chan []string
	events    chan dto.Event
	done      chan struct{}

	// Owned by the Run goroutine.
	clearing   bool
	generation uint64

	mu       sync.RWMutex
	overlays map[string]overlay
	busy     bool
	releases sync.WaitGroup
}

func NewManager(deps Dependencies, opts Options, logger *logger.Logger) *Manager {
	m := &Manager{
		catalog:    deps.Catalog,
		barrier:    acquisition.NewBarrier(len(deps.Catalog), opts.BarrierPolicy),
		acquirer:   deps.Acquirer,
		session:    deps.Session,
		graph:      scene.NewGraph(),
		binder:     binder.New(deps.Catalog, deps.Surface),
		surface:    deps.Surface,
		frames:     deps.Frames,
		viewers:    deps.Viewers,
		publishers: deps.Publishers,
		fetches:    deps.Fetches,
		bindings:   deps.Bindings,
		strict:     opts.StrictBinding,
		logger:     logger,
		results:    make(chan acquisition.Result, len(deps.Catalog)),
		anchors:    make(chan models.Anchor, anchorBuffer),
		resets:     make(chan struct{}, controlBuffer),
		clears:     make(chan struct{}, controlBuffer),
		clearDone:  make(chan []string, 1),
		events:     make(chan dto.Event, eventBuffer),
		done:       make(chan struct{}),
		overlays:   make(map[string]overlay),
	}

	m.session.OnStart(m.onSessionStart)

	m.logger.Info("🎬 Manager ready - %d catalog entries, barrier policy %s", len(m.catalog), m.barrier.Policy())
	return m
}

// Run starts acquiring the reference images and processes messages until
// ctx is done.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	go m.dispatch(ctx)

	m.session.Await()
	m.acquirer.Acquire(ctx, m.catalog, func(r acquisition.Result) {
		m.results <- r
	})

	for {
		select {
		case <-ctx.Done():
			if removed := m.graph.RemoveAnchors(); len(removed) > 0 {
				m.syncOverlays()
				m.release(removed, nil)
			}
			m.logger.Info("🛑 Manager stopped")
			return

		case r := <-m.results:
			m.handleResult(r)

		case a := <-m.anchors:
			m.handleAnchor(a)

		case <-m.resets:
			m.logger.Info("Reset requested")
			m.start(m.barrier.Snapshot(), "reset")

		case <-m.clears:
			m.handleClear()

		case removed := <-m.clearDone:
			m.finishClear(removed)
		}
	}
}

// HandleCameraImage forwards a camera frame to viewers and to recognition.
func (m *Manager) HandleCameraImage(image []byte, camera string) {
	m.SendToViewers(image, camera)

	if m.frames != nil {
		m.frames.ProcessFrame(camera, image)
	}
}

func (m *Manager) SendToViewers(image []byte, camera string) {
	if m.viewers == nil {
		return
	}

	msg, err := json.Marshal(dto.CameraFrame{
		Camera: camera,
		Image:  base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		m.logger.Error("Error encoding frame from %s: %v", camera, err)
		return
	}

	m.viewers.Broadcast(msg)
}

// HandleAnchor hands a newly detected anchor to the coordinator. It is the
// tracker's anchor callback.
func (m *Manager) HandleAnchor(a models.Anchor) {
	select {
	case m.anchors <- a:
	case <-m.done:
	}
}

// Reset restarts tracking with the current recognition set, discarding every
// anchor and overlay.
func (m *Manager) Reset() {
	select {
	case m.resets <- struct{}{}:
	case <-m.done:
	}
}

// Clear removes every overlay and then restarts tracking once. Without
// overlays it does nothing.
func (m *Manager) Clear() {
	select {
	case m.clears <- struct{}{}:
	case <-m.done:
	}
}

func (m *Manager) handleResult(r acquisition.Result) {
	m.recordFetch(r)

	if !r.OK() {
		payload := dto.FetchFailed{Tag: r.Tag, URL: r.URL}
		if r.Err != nil {
			payload.Error = r.Err.Error()
		}
		var ferr *acquisition.FetchError
		if errors.As(r.Err, &ferr) {
			payload.Stage = ferr.Stage
		}
		m.logger.Warning("⚠️  Reference image %d left out: %v", r.Tag, r.Err)
		m.publish(dto.NewEvent(dto.EventFetchFailed, payload))
	}

	snapshot, fired := m.barrier.Record(r)
	if !fired {
		return
	}

	progress := m.barrier.Progress()
	m.logger.Info("Recognition set complete: %d/%d images", progress.Succeeded, progress.Target)
	m.publish(dto.NewEvent(dto.EventBarrierComplete, dto.BarrierComplete{
		Policy:    string(m.barrier.Policy()),
		Target:    progress.Target,
		Succeeded: progress.Succeeded,
		Failed:    progress.Failed,
	}))

	m.start(snapshot, "barrier")
}

func (m *Manager) recordFetch(r acquisition.Result) {
	if m.fetches == nil {
		return
	}
	rec := &models.FetchRecord{Tag: r.Tag, URL: r.URL, OK: r.OK(), CreatedAt: time.Now()}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if _, err := m.fetches.Insert(rec); err != nil {
		m.logger.Error("Failed to record fetch of %s: %v", r.URL, err)
	}
}

func (m *Manager) start(images acquisition.Snapshot, reason string) {
	if err := m.session.Start(images); err != nil {
		m.logger.Error("Tracking session failed to start (%s): %v", reason, err)
		return
	}
	m.generation = m.session.Generation()

	m.logger.Info("Tracking session started (%s) with %d image(s)", reason, images.Len())
	m.publish(dto.NewEvent(dto.EventSessionStarted, dto.SessionStarted{
		Images: images.Len(),
		Tags:   images.Tags(),
		Starts: m.session.Starts(),
	}))
}

// onSessionStart runs on the coordinator after every successful start.
// Starting always removes existing anchors, so their nodes go too.
func (m *Manager) onSessionStart(acquisition.Snapshot) {
	removed := m.graph.RemoveAnchors()
	if len(removed) == 0 {
		return
	}
	m.syncOverlays()
	m.release(removed, nil)
}

func (m *Manager) handleAnchor(a models.Anchor) {
	if m.clearing {
		m.logger.Debug("Anchor %s ignored while clearing", a.ID)
		return
	}
	if a.Generation != m.generation {
		m.logger.Debug("Anchor %s belongs to tracker run %d, current run is %d", a.ID, a.Generation, m.generation)
		return
	}

	if _, seen := m.graph.AnchorNode(a.ID); seen {
		m.logger.Debug("Anchor %s already bound", a.ID)
		return
	}

	if _, _, err := m.binder.Resolve(a); err != nil {
		if m.strict {
			panic(err)
		}
		m.logger.Error("Binding failed: %v", err)
		return
	}

	binding, err := m.binder.Bind(a, m.graph.AddAnchorNode(a))
	if err != nil {
		m.logger.Error("Binding failed after resolving anchor %s: %v", a.ID, err)
		return
	}

	m.syncOverlays()

	width, height := a.PhysicalSize()
	m.logger.Info("📹 Camera %s: %q bound to anchor %s", a.Camera, binding.Descriptor.Title, a.ID)
	m.publish(dto.NewEvent(dto.EventOverlayBound, dto.OverlayBound{
		AnchorID: a.ID,
		Camera:   a.Camera,
		Node:     binding.Node.Name,
		Tag:      binding.Tag,
		Title:    binding.Descriptor.Title,
		VideoURL: binding.Descriptor.Video(),
		Width:    width,
		Height:   height,
	}))

	if m.bindings != nil {
		m.bindings.AddBinding(models.BindingRecord{
			AnchorID:  a.ID,
			Camera:    a.Camera,
			Tag:       binding.Tag,
			Title:     binding.Descriptor.Title,
			VideoURL:  binding.Descriptor.Video(),
			Width:     width,
			Height:    height,
			CreatedAt: time.Now(),
		})
	}
}

func (m *Manager) handleClear() {
	if m.clearing {
		return
	}
	if len(m.graph.Named()) == 0 {
		m.logger.Info("Clear requested with no overlays")
		return
	}

	m.clearing = true
	m.setBusy(true)
	m.session.Pause()

	removed := m.graph.RemoveAnchors()
	m.syncOverlays()
	m.logger.Info("Clearing %d overlay node(s)", len(removed))

	names := make([]string, len(removed))
	for i, n := range removed {
		names[i] = n.Name
	}
	m.release(removed, func() { m.clearDone <- names })
}

func (m *Manager) finishClear(removed []string) {
	m.clearing = false
	m.setBusy(false)
	m.publish(dto.NewEvent(dto.EventOverlaysCleared, dto.OverlaysCleared{Removed: removed}))
	m.start(m.barrier.Snapshot(), "clear")
}

// release stops playback for nodes off the coordinator, then calls done.
func (m *Manager) release(nodes []*scene.Node, done func()) {
	m.releases.Add(1)
	go func() {
		defer m.releases.Done()
		for _, n := range nodes {
			m.surface.Release(n)
		}
		if done != nil {
			done()
		}
	}()
}

func (m *Manager) syncOverlays() {
	overlays := make(map[string]overlay)
	for _, n := range m.graph.Named() {
		info := dto.OverlayInfo{Name: n.Name, AnchorID: n.AnchorID, Tag: n.Tag}
		if n.Geometry != nil {
			info.Width, info.Height = n.Geometry.Width, n.Geometry.Height
		}
		vs, _ := n.Material.Diffuse.(*surface.VideoScene)
		if vs != nil {
			info.VideoURL = vs.VideoURL
		}
		overlays[n.Name] = overlay{info: info, scene: vs}
	}

	m.mu.Lock()
	m.overlays = overlays
	m.mu.Unlock()
}

func (m *Manager) setBusy(v bool) {
	m.mu.Lock()
	m.busy = v
	m.mu.Unlock()
}

func (m *Manager) publish(event dto.Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Warning("Event queue full, %s dropped", event.Type)
	}
}

// dispatch delivers events in order so a slow broker never stalls the
// coordinator.
func (m *Manager) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.events:
			if m.viewers != nil {
				if err := m.viewers.Publish(event); err != nil {
					m.logger.Debug("Viewer publish: %v", err)
				}
			}
			for _, p := range m.publishers {
				if err := p.Publish(event); err != nil {
					m.logger.Warning("Failed to publish %s: %v", event.Type, err)
				}
			}
		}
	}
}

// Status returns a snapshot of the coordinator.
func (m *Manager) Status() dto.Status {
	set := m.barrier.Snapshot()
	progress := m.barrier.Progress()

	m.mu.RLock()
	overlays := len(m.overlays)
	busy := m.busy
	m.mu.RUnlock()

	status := dto.Status{
		State:       m.session.State().String(),
		CatalogSize: len(m.catalog),
		SetSize:     set.Len(),
		Tags:        set.Tags(),
		Starts:      m.session.Starts(),
		Overlays:    overlays,
		Clearing:    busy,
		Acquisition: dto.Progress{
			Policy:    string(m.barrier.Policy()),
			Target:    progress.Target,
			Settled:   progress.Settled,
			Succeeded: progress.Succeeded,
			Failed:    progress.Failed,
			Fired:     progress.Fired,
		},
	}
	if err := m.session.LastError(); err != nil {
		status.LastError = err.Error()
	}
	if m.viewers != nil {
		status.Viewers = m.viewers.GetClientCount()
	}
	return status
}

// Overlays lists the render nodes currently in the scene, ordered by tag.
func (m *Manager) Overlays() []dto.OverlayInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]dto.OverlayInfo, 0, len(m.overlays))
	for _, o := range m.overlays {
		out = append(out, withPlayback(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Overlay returns the render node named name.
func (m *Manager) Overlay(name string) (dto.OverlayInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.overlays[name]
	if !ok {
		return dto.OverlayInfo{}, false
	}
	return withPlayback(o), true
}

func withPlayback(o overlay) dto.OverlayInfo {
	info := o.info
	if o.scene != nil {
		status, err := o.scene.Status()
		info.Status = status
		if err != nil {
			info.Error = err.Error()
		}
	}
	return info
}

// Catalog lists the catalog entries and whether each is in the recognition set.
func (m *Manager) Catalog() []dto.CatalogEntry {
	inSet := make(map[int]bool)
	for _, tag := range m.barrier.Snapshot().Tags() {
		inSet[tag] = true
	}

	entries := make([]dto.CatalogEntry, len(m.catalog))
	for tag, d := range m.catalog {
		entries[tag] = dto.CatalogEntry{
			Tag:          tag,
			Title:        d.Title,
			Subtitle:     d.Subtitle,
			Description:  d.Description,
			ThumbnailURL: d.Thumbnail(),
			VideoURL:     d.Video(),
			Recognizable: inSet[tag],
		}
	}
	return entries
}

// Wait blocks until Run has returned and every pending release finished.
func (m *Manager) Wait() {
	<-m.done
	m.releases.Wait()
}
