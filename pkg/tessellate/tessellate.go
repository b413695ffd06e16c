// Package tessellate walks a scene graph and produces triangle meshes
// using a geometry kernel. One mesh is produced per model.
package tessellate

import (
	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/kernel"
	"github.com/chazu/voxelize/pkg/scene"
	"github.com/chazu/voxelize/pkg/vlog"
)

// Tessellate builds one solid per model root and converts it to a mesh
// with the provided geometry kernel. Mesh order follows the order of the
// roots, and each mesh's PartName is its model's name. The tessellator is
// read-only and never mutates the scene.
func Tessellate(s *scene.Scene, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}
	if k == nil {
		return nil, errors.New("tessellate: nil kernel")
	}

	var meshes []*kernel.Mesh
	for _, model := range s.Models() {
		w := &walker{s: s, k: k, built: make(map[scene.NodeID]kernel.Solid)}
		solid, err := w.solid(model)
		if err != nil {
			return nil, errors.Wrapf(err, "tessellate: model %q", model.Name)
		}

		tl := vlog.NewTimeLog()
		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, errors.Wrapf(err, "tessellate: model %q", model.Name)
		}
		mesh.PartName = model.Name
		if mesh.PartName == "" {
			mesh.PartName = model.ID.Short()
		}
		tl.Debugf("tessellate: model %q -> %d triangles", mesh.PartName, mesh.TriangleCount())
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// walker builds solids for one model. Nodes shared inside the model are
// built once.
type walker struct {
	s     *scene.Scene
	k     kernel.Kernel
	built map[scene.NodeID]kernel.Solid
	depth int
}

// maxDepth guards against cycles in scenes that skipped validation.
const maxDepth = 1024

func (w *walker) solid(n *scene.Node) (kernel.Solid, error) {
	if s, ok := w.built[n.ID]; ok {
		return s, nil
	}
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > maxDepth {
		return nil, errors.Errorf("node %s nested deeper than %d", n.ID.Short(), maxDepth)
	}

	var s kernel.Solid
	var err error
	switch n.Kind {
	case scene.NodePrimitive:
		s, err = w.primitive(n)
	case scene.NodeTransform:
		s, err = w.transform(n)
	case scene.NodeBoolean:
		s, err = w.boolean(n)
	case scene.NodeModel:
		s, err = w.fold(n, w.k.Union)
	default:
		err = errors.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	w.built[n.ID] = s
	return s, nil
}

func (w *walker) primitive(n *scene.Node) (kernel.Solid, error) {
	switch d := n.Data.(type) {
	case scene.BoxData:
		return w.k.Box(d.Size.X, d.Size.Y, d.Size.Z), nil
	case scene.SphereData:
		return w.k.Sphere(d.Radius), nil
	case scene.CylinderData:
		return w.k.Cylinder(d.Height, d.Radius), nil
	}
	return nil, errors.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
}

// transform rotates its child about the origin, then translates it.
func (w *walker) transform(n *scene.Node) (kernel.Solid, error) {
	td, ok := n.Data.(scene.TransformData)
	if !ok {
		return nil, errors.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	children := w.s.Children(n)
	if len(children) != 1 {
		return nil, errors.Errorf("transform node %s has %d children", n.ID.Short(), len(children))
	}
	s, err := w.solid(children[0])
	if err != nil {
		return nil, err
	}
	if r := td.Rotation; r != nil && (r.X != 0 || r.Y != 0 || r.Z != 0) {
		s = w.k.Rotate(s, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && (t.X != 0 || t.Y != 0 || t.Z != 0) {
		s = w.k.Translate(s, t.X, t.Y, t.Z)
	}
	return s, nil
}

func (w *walker) boolean(n *scene.Node) (kernel.Solid, error) {
	bd, ok := n.Data.(scene.BooleanData)
	if !ok {
		return nil, errors.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	switch bd.Op {
	case scene.OpUnion:
		return w.fold(n, w.k.Union)
	case scene.OpDifference:
		return w.fold(n, w.k.Difference)
	case scene.OpIntersection:
		return w.fold(n, w.k.Intersection)
	}
	return nil, errors.Errorf("boolean node %s has unknown op %v", n.ID.Short(), bd.Op)
}

// fold combines the children of n left to right with op.
func (w *walker) fold(n *scene.Node, op func(a, b kernel.Solid) kernel.Solid) (kernel.Solid, error) {
	children := w.s.Children(n)
	if len(children) == 0 {
		return nil, errors.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	acc, err := w.solid(children[0])
	if err != nil {
		return nil, err
	}
	for _, c := range children[1:] {
		s, err := w.solid(c)
		if err != nil {
			return nil, err
		}
		acc = op(acc, s)
	}
	return acc, nil
}
