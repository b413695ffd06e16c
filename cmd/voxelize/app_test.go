package main

import (
	"os"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/voxelize/pkg/voxelize"
)

// testApp keeps meshes and grids small so the whole pipeline runs quickly.
func testApp() *App {
	return NewApp(40, voxelize.Options{CellSize: 0.25, Workers: 4})
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	source, err := os.ReadFile("../../examples/" + name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(source)
}

func requireNoErrors(t *testing.T, result RunResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
}

// occupied reports whether the voxel containing p is in either set.
func occupied(r *voxelize.Result, p v3.Vec) (surface, volume bool) {
	c := r.Grid.PositionToIndex3(p)
	if !r.Grid.InBounds(c) {
		return false, false
	}
	i := r.Grid.Index3ToIndex1(c)
	return r.Surface.Has(i), r.Volume.Has(i)
}

// TestE2ERingExample exercises the full pipeline: scene script -> engine ->
// scene -> tessellate -> voxelize.
func TestE2ERingExample(t *testing.T) {
	result := testApp().Run(readExample(t, "ring.scene"))
	requireNoErrors(t, result)

	if len(result.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(result.Models))
	}
	m := result.Models[0]
	if m.Name != "ring" {
		t.Errorf("expected model name 'ring', got %q", m.Name)
	}
	if m.Mesh.TriangleCount() == 0 {
		t.Fatal("ring: empty mesh")
	}
	r := m.Voxels
	if r.Surface.Len() == 0 || r.Volume.Len() == 0 {
		t.Fatalf("ring: surface %d, volume %d", r.Surface.Len(), r.Volume.Len())
	}
	t.Logf("%s", r.Diagnostics)

	// The hole stays empty.
	if s, v := occupied(r, v3.Vec{}); s || v {
		t.Errorf("hole voxel occupied (surface %v, volume %v)", s, v)
	}
	// The wall is solid.
	for _, p := range []v3.Vec{{X: 1.5}, {X: -1.5}, {Y: 1.5}, {Y: -1.5}} {
		if s, v := occupied(r, p); !s && !v {
			t.Errorf("wall voxel at %v is empty", p)
		}
	}
	for _, v := range r.Volume.Members() {
		if r.Surface.Has(v) {
			t.Fatalf("voxel %v in both sets", r.Grid.Index1ToIndex3(v))
		}
	}
}

// TestE2EPairExample checks that every model gets its own grid.
func TestE2EPairExample(t *testing.T) {
	result := testApp().Run(readExample(t, "pair.scene"))
	requireNoErrors(t, result)

	if len(result.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(result.Models))
	}
	byName := map[string]*voxelize.Result{}
	for _, m := range result.Models {
		byName[m.Name] = m.Voxels
	}
	cube, ok := byName["cube"]
	if !ok {
		t.Fatal("missing model 'cube'")
	}
	capsule, ok := byName["capsule"]
	if !ok {
		t.Fatal("missing model 'capsule'")
	}

	if _, v := occupied(cube, v3.Vec{X: 1, Y: 1, Z: 1}); !v {
		t.Error("cube centre not in volume")
	}
	if _, v := occupied(capsule, v3.Vec{}); !v {
		t.Error("capsule centre not in volume")
	}
	// The capsule reaches z=1.75 but the cube stops at 2 on every axis.
	if cz := capsule.Grid.Bounds().Max.Z; cz < 1.5 {
		t.Errorf("capsule grid ends at z=%g", cz)
	}
	if cx := cube.Grid.Bounds().Min.X; cx < -0.5 {
		t.Errorf("cube grid starts at x=%g", cx)
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	result := testApp().Run("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Models) != 0 {
		t.Errorf("expected 0 models for empty source, got %d", len(result.Models))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	result := testApp().Run("(model \"test\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Models) != 0 {
		t.Errorf("expected 0 models on error, got %d", len(result.Models))
	}
}

// TestE2ESingleSphere ensures a minimal single-model source produces one result.
func TestE2ESingleSphere(t *testing.T) {
	result := testApp().Run(`(model "ball" (sphere :radius 1))`)
	requireNoErrors(t, result)

	if len(result.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(result.Models))
	}
	if result.Models[0].Name != "ball" {
		t.Errorf("expected model name 'ball', got %q", result.Models[0].Name)
	}
	if !result.Models[0].Voxels.Diagnostics.Closed() {
		t.Logf("sphere shell reported open: %s", result.Models[0].Voxels.Diagnostics)
	}
}
