package scene

import (
	"math"
	"testing"

	"overlayserver/internal/models"
)

func anchorFor(id string, tag int) models.Anchor {
	return models.Anchor{ID: id, Image: &models.RecognizableImage{Tag: tag, PhysicalWidth: 0.1}}
}

func TestGraph_AnchorAndRenderNodes(t *testing.T) {
	g := NewGraph()

	parent := g.AddAnchorNode(anchorFor("a1", 0))
	if again := g.AddAnchorNode(anchorFor("a1", 0)); again != parent {
		t.Error("Expected the same node for a repeated anchor")
	}
	if parent.Tag != 0 || parent.AnchorID != "a1" {
		t.Errorf("Unexpected anchor node %+v", parent)
	}

	child := NewNode("0")
	parent.AddChild(child)

	if child.Parent() != parent {
		t.Error("Expected child to be attached to the anchor node")
	}
	if named := g.Named(); len(named) != 1 {
		t.Errorf("Expected 1 named node, got %d", len(named))
	}
}

func TestGraph_RemoveAnchors(t *testing.T) {
	g := NewGraph()
	for i, id := range []string{"a1", "a2"} {
		g.AddAnchorNode(anchorFor(id, i)).AddChild(NewNode(string(rune('0' + i))))
	}

	removed := g.RemoveAnchors()

	if len(removed) != 2 {
		t.Errorf("Expected 2 removed named nodes, got %d", len(removed))
	}
	if len(g.Named()) != 0 {
		t.Error("Expected no named nodes after RemoveAnchors")
	}
	if len(g.Root().Children()) != 0 {
		t.Error("Expected root to have no children")
	}
	if _, ok := g.AnchorNode("a1"); ok {
		t.Error("Expected anchor a1 to be forgotten")
	}
}

func TestNode_RemoveFromParent(t *testing.T) {
	root := NewNode("")
	a := NewNode("a")
	b := NewNode("b")
	root.AddChild(a)
	root.AddChild(b)

	a.RemoveFromParent()
	a.RemoveFromParent()

	children := root.Children()
	if len(children) != 1 || children[0] != b {
		t.Errorf("Expected only b to remain, got %d children", len(children))
	}
	if a.Parent() != nil {
		t.Error("Expected a to be detached")
	}
}

func TestNode_AddChildReparents(t *testing.T) {
	first := NewNode("first")
	second := NewNode("second")
	child := NewNode("child")

	first.AddChild(child)
	second.AddChild(child)

	if len(first.Children()) != 0 {
		t.Error("Expected child to leave its previous parent")
	}
	if child.Parent() != second {
		t.Error("Expected child to be attached to second")
	}
}

func TestRotation_LaysPlaneFlat(t *testing.T) {
	m := Rotation(-math.Pi/2, 1, 0, 0)

	x, y, z := m.Apply(0, 1, 0)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 || math.Abs(z+1) > 1e-9 {
		t.Errorf("Expected (0,1,0) to map to (0,0,-1), got (%v,%v,%v)", x, y, z)
	}

	x, y, z = m.Apply(1, 0, 0)
	if math.Abs(x-1) > 1e-9 || math.Abs(y) > 1e-9 || math.Abs(z) > 1e-9 {
		t.Errorf("Expected X axis to be unchanged, got (%v,%v,%v)", x, y, z)
	}
}

func TestRotation_ZeroAxis(t *testing.T) {
	if Rotation(1, 0, 0, 0) != Identity() {
		t.Error("Expected identity for a zero axis")
	}
}
