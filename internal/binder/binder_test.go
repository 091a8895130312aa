package binder

import (
	"errors"
	"image"
	"math"
	"net/url"
	"testing"

	"overlayserver/internal/models"
	"overlayserver/internal/scene"
	"overlayserver/internal/surface"
)

type recordingSurface struct {
	bound map[*scene.Node]string
}

func (r *recordingSurface) Bind(node *scene.Node, videoURL string) *surface.VideoScene {
	if r.bound == nil {
		r.bound = make(map[*scene.Node]string)
	}
	r.bound[node] = videoURL
	vs := &surface.VideoScene{VideoURL: videoURL, Width: 600, Height: 300, FlipY: true}
	node.Material.Diffuse = vs
	return vs
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url %q: %v", raw, err)
	}
	return u
}

func twoEntryCatalog(t *testing.T) []models.ContentDescriptor {
	return []models.ContentDescriptor{
		{Title: "A", ThumbnailURL: mustURL(t, "u1"), VideoURL: mustURL(t, "v1")},
		{Title: "B", ThumbnailURL: mustURL(t, "u2"), VideoURL: mustURL(t, "v2")},
	}
}

func anchorWithTag(id string, tag int) models.Anchor {
	return models.Anchor{
		ID: id,
		Image: &models.RecognizableImage{
			Pixels:        image.NewGray(image.Rect(0, 0, 200, 100)),
			PhysicalWidth: 0.1,
			Tag:           tag,
		},
	}
}

func TestBinder_ConcreteScenario(t *testing.T) {
	s := &recordingSurface{}
	b := New(twoEntryCatalog(t), s)

	tests := []struct {
		tag   int
		video string
		title string
	}{
		{0, "v1", "A"},
		{1, "v2", "B"},
	}

	for _, tt := range tests {
		parent := scene.NewNode("")
		binding, err := b.Bind(anchorWithTag("anchor", tt.tag), parent)
		if err != nil {
			t.Fatalf("Bind(tag %d) failed: %v", tt.tag, err)
		}

		if binding.Descriptor.Video() != tt.video {
			t.Errorf("Tag %d bound video %s, expected %s", tt.tag, binding.Descriptor.Video(), tt.video)
		}
		if s.bound[binding.Node] != tt.video {
			t.Errorf("Tag %d: surface received %s, expected %s", tt.tag, s.bound[binding.Node], tt.video)
		}
		if binding.Descriptor.Title != tt.title {
			t.Errorf("Tag %d bound title %s, expected %s", tt.tag, binding.Descriptor.Title, tt.title)
		}
		if binding.Node.Parent() != parent {
			t.Errorf("Tag %d: render node not attached to the anchor node", tt.tag)
		}
	}
}

func TestBinder_RoundTripEveryTag(t *testing.T) {
	descriptors := make([]models.ContentDescriptor, 20)
	for i := range descriptors {
		descriptors[i] = models.ContentDescriptor{
			ThumbnailURL: mustURL(t, "http://thumbs/"+string(rune('a'+i))),
			VideoURL:     mustURL(t, "http://videos/"+string(rune('a'+i))),
		}
	}
	b := New(descriptors, &recordingSurface{})

	for tag := range descriptors {
		binding, err := b.Bind(anchorWithTag("a", tag), scene.NewNode(""))
		if err != nil {
			t.Fatalf("Bind(%d) failed: %v", tag, err)
		}
		if binding.Descriptor.Video() != descriptors[tag].Video() {
			t.Errorf("Tag %d bound %s, expected %s", tag, binding.Descriptor.Video(), descriptors[tag].Video())
		}
		if binding.Tag != tag {
			t.Errorf("Expected binding tag %d, got %d", tag, binding.Tag)
		}
	}
}

func TestBinder_RedetectionIsPure(t *testing.T) {
	b := New(twoEntryCatalog(t), &recordingSurface{})

	first, err := b.Bind(anchorWithTag("first", 1), scene.NewNode(""))
	if err != nil {
		t.Fatalf("first Bind failed: %v", err)
	}
	if _, err := b.Bind(anchorWithTag("other", 0), scene.NewNode("")); err != nil {
		t.Fatalf("intermediate Bind failed: %v", err)
	}
	second, err := b.Bind(anchorWithTag("second", 1), scene.NewNode(""))
	if err != nil {
		t.Fatalf("second Bind failed: %v", err)
	}

	if first.Descriptor.Video() != second.Descriptor.Video() || first.Descriptor.Title != second.Descriptor.Title {
		t.Errorf("Re-detection resolved differently: %+v vs %+v", first.Descriptor, second.Descriptor)
	}
	if first.Node == second.Node {
		t.Error("Each anchor should get its own render node")
	}
}

func TestBinder_NodeGeometry(t *testing.T) {
	b := New(twoEntryCatalog(t), &recordingSurface{})

	binding, err := b.Bind(anchorWithTag("a", 0), scene.NewNode(""))
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	node := binding.Node

	if node.Name != "0" {
		t.Errorf("Expected node name '0', got %q", node.Name)
	}
	if node.Geometry == nil || node.Geometry.Width != 0.1 || node.Geometry.Height != 0.05 {
		t.Errorf("Expected 0.1x0.05 plane, got %+v", node.Geometry)
	}
	if node.Transform != scene.Rotation(-math.Pi/2, 1, 0, 0) {
		t.Error("Expected the plane to be rotated -90 degrees about X")
	}
	if _, ok := node.Material.Diffuse.(*surface.VideoScene); !ok {
		t.Error("Expected a video scene as diffuse contents")
	}
}

func TestBinder_Mismatch(t *testing.T) {
	b := New(twoEntryCatalog(t), &recordingSurface{})

	tests := []struct {
		name    string
		anchor  models.Anchor
		missing bool
	}{
		{"no image", models.Anchor{ID: "a"}, true},
		{"tag too large", anchorWithTag("b", 2), false},
		{"negative tag", anchorWithTag("c", -1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := scene.NewNode("")
			_, err := b.Bind(tt.anchor, parent)
			if !errors.Is(err, ErrBindingMismatch) {
				t.Fatalf("Expected ErrBindingMismatch, got %v", err)
			}
			var mismatch *MismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("Expected *MismatchError, got %T", err)
			}
			if mismatch.MissingTag != tt.missing {
				t.Errorf("Expected MissingTag=%v, got %v", tt.missing, mismatch.MissingTag)
			}
			if mismatch.CatalogSize != 2 {
				t.Errorf("Expected catalog size 2, got %d", mismatch.CatalogSize)
			}
			if len(parent.Children()) != 0 {
				t.Error("Nothing should be attached on a mismatch")
			}
		})
	}
}
