// Package voxelize runs the full mesh to voxel pipeline: rasterize the
// triangles into a surface voxel set, extract the faces around it, reduce
// them to one shell and classify the enclosed voxels by ray casting.
//
// Each stage finishes before the next starts. A call owns every set it
// builds, so independent voxelizations may run concurrently.
package voxelize

import (
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/kernel"
	"github.com/chazu/voxelize/pkg/raster"
	"github.com/chazu/voxelize/pkg/shell"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/volume"
	"github.com/chazu/voxelize/pkg/voxset"
)

var (
	// ErrEmptyMesh is returned for a mesh without vertices or triangles.
	ErrEmptyMesh = errors.New("voxelize: empty mesh")

	// ErrBadIndex is returned when a triangle refers to a missing vertex.
	ErrBadIndex = kernel.ErrBadIndex
)

// Options controls resolution and scheduling.
type Options struct {
	CellSize  float64 // edge length of a voxel, must be positive
	Workers   int     // <= 0 means one per CPU
	BatchSize int     // work items per task, <= 0 means each stage's default
	MaxDepth  int     // triangle subdivision limit, <= 0 means raster.DefaultMaxDepth
	MaxVoxels int     // grid size limit, <= 0 means unlimited
}

// Result holds the two voxel sets and the grid that addresses them.
type Result struct {
	Grid        *grid.Grid
	Surface     *voxset.Set // voxels the mesh passes through
	Volume      *voxset.Set // voxels enclosed by the mesh, disjoint from Surface
	Diagnostics Diagnostics
}

// Positions returns the world-space centres of the voxels in s in
// ascending index order.
func (r *Result) Positions(s *voxset.Set) []v3.Vec {
	idx := s.Sorted()
	out := make([]v3.Vec, len(idx))
	for i, v := range idx {
		out[i] = r.Grid.Index1ToPosition(v)
	}
	return out
}

// Voxelize converts m into surface and volume voxel sets at the given cell
// size. The grid spans the bounding box of all mesh vertices.
func Voxelize(m *kernel.Mesh, opts Options) (*Result, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "voxelize")
	}

	total := vlog.NewTimeLog()
	g, err := grid.FromPoints(m.Points(), opts.CellSize, opts.MaxVoxels)
	if err != nil {
		return nil, errors.Wrap(err, "voxelize")
	}
	d := Diagnostics{
		Name:  m.PartName,
		Cell:  g.CellSize(),
		Bound: g.Bounds(),
		Dims:  g.Dims(),
	}

	// Rasterize.
	tl := vlog.NewTimeLog()
	surface := voxset.New(m.TriangleCount())
	rs, err := raster.Rasterize(g, m, surface, raster.Options{
		Workers:   opts.Workers,
		BatchSize: opts.BatchSize,
		MaxDepth:  opts.MaxDepth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "voxelize: rasterize")
	}
	d.Raster = rs
	d.Stages.Rasterize = tl.Elapsed()
	tl.Debugf("voxelize: rasterized %d triangles into %d surface voxels", rs.Triangles, surface.Len())

	// Extract faces around the surface.
	tl = vlog.NewTimeLog()
	faces, es, err := shell.Extract(g, surface, shell.ExtractOptions{
		Workers:   opts.Workers,
		BatchSize: opts.BatchSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "voxelize: extract")
	}
	d.Extract = es
	d.Stages.Extract = tl.Elapsed()
	tl.Debugf("voxelize: extracted %d faces", es.Faces)

	// Keep a single shell.
	tl = vlog.NewTimeLog()
	d.Dedup = shell.Deduplicate(g, faces)
	d.Stages.Dedup = tl.Elapsed()
	tl.Debugf("voxelize: kept %d of %d faces", d.Dedup.Kept, d.Dedup.Raw)

	// Classify the interior.
	tl = vlog.NewTimeLog()
	vol, vs, err := volume.Classify(g, faces, volume.Options{
		Workers:   opts.Workers,
		BatchSize: opts.BatchSize,
		Exclude:   surface,
	})
	if err != nil {
		return nil, errors.Wrap(err, "voxelize: classify")
	}
	d.Volume = vs
	d.Stages.Classify = tl.Elapsed()
	tl.Debugf("voxelize: classified %d interior voxels", vs.Voxels)

	d.Surface = surface.Len()
	d.Interior = vol.Len()
	d.Stages.Total = total.Elapsed()
	vlog.Infof("%s", d)

	return &Result{Grid: g, Surface: surface, Volume: vol, Diagnostics: d}, nil
}

// StageTimes records how long each stage took.
type StageTimes struct {
	Rasterize, Extract, Dedup, Classify, Total time.Duration
}
