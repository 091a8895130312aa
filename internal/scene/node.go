// Package scene is a minimal scene graph for overlays. It is not safe for
// concurrent use; the coordinator goroutine owns it.
package scene

import "math"

// Mat4 is a column-major 4×4 transform.
type Mat4 [16]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Rotation returns a rotation of angle radians about the axis (x, y, z).
func Rotation(angle, x, y, z float64) Mat4 {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return Identity()
	}
	x, y, z = x/n, y/n, z/n
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// Apply transforms the point (x, y, z).
func (m Mat4) Apply(x, y, z float64) (float64, float64, float64) {
	return m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14]
}

// Plane is a flat rectangle in the node's XY plane, sized in meters.
type Plane struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Material holds the node's diffuse contents. Diffuse is nil for an
// untextured surface.
type Material struct {
	Diffuse interface{}
}

// Node is one element of the graph.
type Node struct {
	Name      string
	AnchorID  string
	Tag       int
	Geometry  *Plane
	Transform Mat4
	Material  Material

	parent   *Node
	children []*Node
}

// NewNode creates a detached node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Tag: -1, Transform: Identity()}
}

// Parent returns the node's parent, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the node's children.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// AddChild attaches child to n, detaching it from any previous parent.
func (n *Node) AddChild(child *Node) {
	child.RemoveFromParent()
	child.parent = n
	n.children = append(n.children, child)
}

// RemoveFromParent detaches n. It is a no-op for a detached node.
func (n *Node) RemoveFromParent() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Walk visits n's descendants depth-first. Returning false stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	for _, c := range n.Children() {
		if !fn(c) || !c.Walk(fn) {
			return false
		}
	}
	return true
}
