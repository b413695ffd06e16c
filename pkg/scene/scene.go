// Package scene defines the scene graph produced by evaluating a scene
// script: an immutable DAG of primitive solids, transforms, boolean
// combinations and named models. Each model root is tessellated into one
// mesh and voxelized on its own.
package scene

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NodeID is a content-addressed identifier for scene nodes.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// NewNodeID derives a node ID from a path such as "box/base" or
// "model/teapot". Equal paths give equal IDs.
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:8]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns an abbreviated form for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// NodeKind enumerates the types of nodes in the scene graph.
type NodeKind int

const (
	NodePrimitive NodeKind = iota // box, sphere, cylinder
	NodeTransform                 // translation and rotation of one child
	NodeBoolean                   // union, difference, intersection
	NodeModel                     // named root, voxelized as one mesh
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeTransform:
		return "transform"
	case NodeBoolean:
		return "boolean"
	case NodeModel:
		return "model"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the scene graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// BoxData is an axis-aligned box with its minimum corner at the origin.
type BoxData struct {
	Size v3.Vec `json:"size"`
}

func (BoxData) nodeData() {}

// SphereData is a sphere centred on the origin.
type SphereData struct {
	Radius float64 `json:"radius"`
}

func (SphereData) nodeData() {}

// CylinderData is a cylinder along Z centred on the origin.
type CylinderData struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (CylinderData) nodeData() {}

// TransformData moves its single child. Rotation is applied before
// translation.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// BooleanOp enumerates boolean combinations.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("BooleanOp(%d)", int(op))
	}
}

// BooleanData combines its children left to right. For a difference every
// child after the first is subtracted from the first.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ModelData marks a named root. Its children are unioned.
type ModelData struct {
	Description string `json:"description,omitempty"`
}

func (ModelData) nodeData() {}

// Scene is the top-level structure produced by evaluation. It is never
// mutated after evaluation completes; each evaluation produces a new scene.
type Scene struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the scene. It does not check for duplicates.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the scene.
func (s *Scene) AddRoot(id NodeID) {
	s.Roots = append(s.Roots, id)
}

// Lookup returns the node with the given name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Models returns the root nodes in registration order.
func (s *Scene) Models() []*Node {
	models := make([]*Node, 0, len(s.Roots))
	for _, id := range s.Roots {
		if n := s.Nodes[id]; n != nil {
			models = append(models, n)
		}
	}
	return models
}

// Children returns the child nodes of the given node.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
