package scene

import "overlayserver/internal/models"

// Graph is the overlay scene: root → anchor nodes → render nodes.
type Graph struct {
	root    *Node
	anchors map[string]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		root:    NewNode(""),
		anchors: make(map[string]*Node),
	}
}

// Root returns the root node.
func (g *Graph) Root() *Node { return g.root }

// AddAnchorNode creates the node that tracks anchor. Calling it again for the
// same anchor returns the existing node.
func (g *Graph) AddAnchorNode(anchor models.Anchor) *Node {
	if n, ok := g.anchors[anchor.ID]; ok {
		return n
	}
	n := NewNode("")
	n.AnchorID = anchor.ID
	if anchor.Image != nil {
		n.Tag = anchor.Image.Tag
	}
	g.root.AddChild(n)
	g.anchors[anchor.ID] = n
	return n
}

// AnchorNode returns the node for anchorID.
func (g *Graph) AnchorNode(anchorID string) (*Node, bool) {
	n, ok := g.anchors[anchorID]
	return n, ok
}

// RemoveAnchors detaches every anchor node and, with them, their render
// nodes. It returns the named nodes that were removed.
func (g *Graph) RemoveAnchors() []*Node {
	removed := g.Named()
	for id, n := range g.anchors {
		n.RemoveFromParent()
		delete(g.anchors, id)
	}
	return removed
}

// Named returns every node with a non-empty name.
func (g *Graph) Named() []*Node {
	var named []*Node
	g.root.Walk(func(n *Node) bool {
		if n.Name != "" {
			named = append(named, n)
		}
		return true
	})
	return named
}
