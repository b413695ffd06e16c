package sdfx

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func near(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func TestBox(t *testing.T) {
	k := NewWithCells(40)
	mesh, err := k.ToMesh(k.Box(100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// The mesh stays within the box, give or take a marching cubes cell.
	min, max := mesh.Bounds()
	cell := 100.0 / 40
	if !near(min, v3.Vec{}, cell) || !near(max, v3.Vec{X: 100, Y: 50, Z: 25}, cell) {
		t.Errorf("mesh bounds %v..%v, want about (0,0,0)..(100,50,25)", min, max)
	}
}

func TestBoxBoundingBox(t *testing.T) {
	k := New()
	min, max := k.Box(100, 50, 25).BoundingBox()
	const tol = 0.01
	if !near(min, v3.Vec{}, tol) {
		t.Errorf("min = %v, want the origin", min)
	}
	if !near(max, v3.Vec{X: 100, Y: 50, Z: 25}, tol) {
		t.Errorf("max = %v, want (100,50,25)", max)
	}
}

func TestSphere(t *testing.T) {
	k := NewWithCells(30)
	s := k.Sphere(10)
	min, max := s.BoundingBox()
	if !near(min, v3.Vec{X: -10, Y: -10, Z: -10}, 0.01) || !near(max, v3.Vec{X: 10, Y: 10, Z: 10}, 0.01) {
		t.Errorf("bounding box %v..%v", min, max)
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	// Every vertex lies close to the sphere surface.
	cell := 20.0 / 30
	for i := 0; i < mesh.VertexCount(); i++ {
		p := mesh.Vertex(i)
		r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		if math.Abs(r-10) > cell {
			t.Fatalf("vertex %d at radius %f", i, r)
		}
	}
}

func TestCylinder(t *testing.T) {
	k := NewWithCells(40)
	mesh, err := k.ToMesh(k.Cylinder(50, 10))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	min, max := mesh.Bounds()
	if min.Z > -24 || max.Z < 24 {
		t.Errorf("cylinder z extent %f..%f, want about -25..25", min.Z, max.Z)
	}
}

func TestDifference(t *testing.T) {
	k := NewWithCells(40)
	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	hole := k.Translate(k.Cylinder(120, 20), 50, 50, 50)
	diffMesh, err := k.ToMesh(k.Difference(box, hole))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := New()
	a := k.Box(50, 50, 50)
	b := k.Translate(k.Box(50, 50, 50), 30, 0, 0)

	_, umax := k.Union(a, b).BoundingBox()
	if math.Abs(umax.X-80) > 0.01 {
		t.Errorf("union max x = %f, want 80", umax.X)
	}
	imin, imax := k.Intersection(a, b).BoundingBox()
	if imin.X > 30.01 || imax.X < 49.99 {
		t.Errorf("intersection x extent %f..%f should cover 30..50", imin.X, imax.X)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	min, max := k.Translate(k.Box(10, 10, 10), 100, 200, 300).BoundingBox()
	const tol = 0.5
	if !near(min, v3.Vec{X: 100, Y: 200, Z: 300}, tol) || !near(max, v3.Vec{X: 110, Y: 210, Z: 310}, tol) {
		t.Errorf("bounds %v..%v, want (100,200,300)..(110,210,310)", min, max)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	min, max := k.Rotate(k.Box(100, 10, 10), 0, 0, 90).BoundingBox()
	if dy, dx := max.Y-min.Y, max.X-min.X; dy < 99 || dx > 11 {
		t.Errorf("rotated extent x=%f y=%f, want x~10 y~100", dx, dy)
	}
}

func TestNewWithCells(t *testing.T) {
	if got := NewWithCells(0).Cells(); got != DefaultMeshCells {
		t.Errorf("NewWithCells(0).Cells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := NewWithCells(64).Cells(); got != 64 {
		t.Errorf("NewWithCells(64).Cells() = %d", got)
	}
}
