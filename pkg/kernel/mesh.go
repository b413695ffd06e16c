package kernel

import (
	"github.com/pkg/errors"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrBadIndex is returned by Validate when a triangle refers to a vertex
// that does not exist or the index list is not a whole number of triangles.
var ErrBadIndex = errors.New("kernel: bad triangle index")

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...], may be empty
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which scene model this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c v3.Vec) {
	t := m.Indices[3*i : 3*i+3]
	return m.Vertex(int(t[0])), m.Vertex(int(t[1])), m.Vertex(int(t[2]))
}

// Points returns every vertex position.
func (m *Mesh) Points() []v3.Vec {
	pts := make([]v3.Vec, m.VertexCount())
	for i := range pts {
		pts[i] = m.Vertex(i)
	}
	return pts
}

// Bounds returns the smallest box containing every vertex. It returns zero
// vectors for a mesh without vertices.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	n := m.VertexCount()
	if n == 0 {
		return v3.Vec{}, v3.Vec{}
	}
	min, max = m.Vertex(0), m.Vertex(0)
	for i := 1; i < n; i++ {
		p := m.Vertex(i)
		min = v3.Vec{X: fmin(min.X, p.X), Y: fmin(min.Y, p.Y), Z: fmin(min.Z, p.Z)}
		max = v3.Vec{X: fmax(max.X, p.X), Y: fmax(max.Y, p.Y), Z: fmax(max.Z, p.Z)}
	}
	return min, max
}

// Validate checks that the index list describes whole triangles over
// existing vertices.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return errors.Errorf("kernel: %d vertex floats is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return errors.Wrapf(ErrBadIndex, "%d indices is not a multiple of 3", len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return errors.Wrapf(ErrBadIndex, "triangle %d refers to vertex %d of %d", i/3, idx, n)
		}
	}
	return nil
}

// Merge concatenates meshes into one, offsetting indices. The result takes
// the part name of the first mesh. Nil meshes are skipped.
func Merge(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		if out.PartName == "" {
			out.PartName = m.PartName
		}
		base := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		out.Normals = append(out.Normals, m.Normals...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out
}

// BoxMesh returns the 8-vertex, 12-triangle mesh of the axis-aligned box
// [min, max], wound counter-clockwise seen from outside.
func BoxMesh(min, max v3.Vec) *Mesh {
	x0, y0, z0 := float32(min.X), float32(min.Y), float32(min.Z)
	x1, y1, z1 := float32(max.X), float32(max.Y), float32(max.Z)
	return &Mesh{
		Vertices: []float32{
			x0, y0, z0, // 0
			x1, y0, z0, // 1
			x1, y1, z0, // 2
			x0, y1, z0, // 3
			x0, y0, z1, // 4
			x1, y0, z1, // 5
			x1, y1, z1, // 6
			x0, y1, z1, // 7
		},
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // bottom
			4, 5, 6, 4, 6, 7, // top
			0, 1, 5, 0, 5, 4, // front
			3, 7, 6, 3, 6, 2, // back
			0, 4, 7, 0, 7, 3, // left
			1, 2, 6, 1, 6, 5, // right
		},
		PartName: "box",
	}
}

func fmin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
