// Package binder resolves a detected anchor back to its catalog entry and
// builds the video-backed render node for it.
package binder

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"overlayserver/internal/catalog"
	"overlayserver/internal/models"
	"overlayserver/internal/scene"
	"overlayserver/internal/surface"
)

// ErrBindingMismatch matches every anchor that does not resolve to a catalog
// entry. It means the tracker and the acquisition side disagree, which is a
// programming error rather than a user-facing one.
var ErrBindingMismatch = errors.New("anchor does not resolve to catalog content")

// MismatchError describes an anchor that could not be resolved.
type MismatchError struct {
	AnchorID    string
	Tag         int
	MissingTag  bool
	CatalogSize int
}

func (e *MismatchError) Error() string {
	if e.MissingTag {
		return fmt.Sprintf("anchor %s carries no reference image", e.AnchorID)
	}
	return fmt.Sprintf("anchor %s: tag %d outside catalog of %d entries", e.AnchorID, e.Tag, e.CatalogSize)
}

func (e *MismatchError) Is(target error) bool { return target == ErrBindingMismatch }

// Surface binds a video to a node.
type Surface interface {
	Bind(node *scene.Node, videoURL string) *surface.VideoScene
}

// Binding is the result of binding one anchor.
type Binding struct {
	Node       *scene.Node
	Scene      *surface.VideoScene
	Tag        int
	Descriptor models.ContentDescriptor
}

// Binder turns anchors into render nodes.
type Binder struct {
	catalog []models.ContentDescriptor
	surface Surface
}

// New creates a binder over the loaded catalog.
func New(descriptors []models.ContentDescriptor, s Surface) *Binder {
	return &Binder{catalog: descriptors, surface: s}
}

// Resolve returns the tag and catalog entry for anchor. It depends only on the
// anchor's tag, never on earlier calls.
func (b *Binder) Resolve(anchor models.Anchor) (int, models.ContentDescriptor, error) {
	if anchor.Image == nil {
		return 0, models.ContentDescriptor{}, &MismatchError{AnchorID: anchor.ID, MissingTag: true, CatalogSize: len(b.catalog)}
	}

	tag := anchor.Image.Tag
	descriptor, ok := catalog.Lookup(b.catalog, tag)
	if !ok {
		return tag, models.ContentDescriptor{}, &MismatchError{AnchorID: anchor.ID, Tag: tag, CatalogSize: len(b.catalog)}
	}
	return tag, descriptor, nil
}

// Bind builds a render node for anchor, sized to the anchor's physical
// surface and laid flat against it, binds the entry's video to it, and
// attaches it to parent.
func (b *Binder) Bind(anchor models.Anchor, parent *scene.Node) (*Binding, error) {
	tag, descriptor, err := b.Resolve(anchor)
	if err != nil {
		return nil, err
	}

	width, height := anchor.PhysicalSize()

	node := scene.NewNode(strconv.Itoa(tag))
	node.Tag = tag
	node.AnchorID = anchor.ID
	node.Geometry = &scene.Plane{Width: width, Height: height}
	node.Transform = scene.Rotation(-math.Pi/2, 1, 0, 0)

	vs := b.surface.Bind(node, descriptor.Video())
	parent.AddChild(node)

	return &Binding{Node: node, Scene: vs, Tag: tag, Descriptor: descriptor}, nil
}
