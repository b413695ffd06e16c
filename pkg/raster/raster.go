// Package raster deposits the voxels touched by the edges of a triangle mesh
// into a surface voxel set.
//
// A triangle is bisected at the midpoint of its first edge longer than one
// cell until all three edges fit in a cell; each edge of the resulting small
// triangles is then covered by its two endpoint voxels plus whatever
// six-connected "connector" voxels are needed to keep the covered voxels
// face-connected along the edge.
package raster

import (
	"math"
	"sync/atomic"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/voxset"
)

const (
	// DefaultMaxDepth bounds the subdivision depth of a single triangle.
	DefaultMaxDepth = 96

	// DefaultBatchSize is the number of triangles handed to a worker at once.
	DefaultBatchSize = 64

	// maxEdgeSplits bounds the bisection of an edge whose endpoints land more
	// than one cell apart on some axis, which only floating point rounding
	// at cell boundaries can produce.
	maxEdgeSplits = 8
)

// Triangles is a source of triangles in world space. *kernel.Mesh satisfies it.
type Triangles interface {
	TriangleCount() int
	Triangle(i int) (a, b, c v3.Vec)
}

// Options controls how triangles are scheduled.
type Options struct {
	Workers   int // <= 0 means one per CPU
	BatchSize int // <= 0 means DefaultBatchSize
	MaxDepth  int // <= 0 means DefaultMaxDepth
}

// Stats reports what happened during rasterization.
type Stats struct {
	Triangles  int64 // triangles read from the source
	Degenerate int64 // triangles skipped for non-finite coordinates
	Clamped    int64 // sub-triangles dropped at the depth limit
	Edges      int64 // edges covered
}

func (s *Stats) add(o Stats) {
	atomic.AddInt64(&s.Triangles, o.Triangles)
	atomic.AddInt64(&s.Degenerate, o.Degenerate)
	atomic.AddInt64(&s.Clamped, o.Clamped)
	atomic.AddInt64(&s.Edges, o.Edges)
}

// Rasterize covers every triangle of tris, writing voxels into out. Batches
// of triangles run in parallel; out must be safe for concurrent insertion.
// Rasterize returns once every write is visible.
func Rasterize(g *grid.Grid, tris Triangles, out *voxset.Set, opts Options) (Stats, error) {
	if g == nil || tris == nil || out == nil {
		return Stats{}, errors.New("raster: nil grid, triangle source or output set")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	n := tris.TriangleCount()

	var total Stats
	var eg errgroup.Group
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for start := 0; start < n; start += batch {
		start, end := start, start+batch
		if end > n {
			end = n
		}
		eg.Go(func() error {
			r := New(g, out, opts.MaxDepth)
			for i := start; i < end; i++ {
				a, b, c := tris.Triangle(i)
				r.Triangle(a, b, c)
			}
			total.add(r.Stats())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

type work struct {
	a, b, c v3.Vec
	depth   int
}

// Rasterizer covers triangles one at a time. A Rasterizer is not safe for
// concurrent use, but any number of them may share the output set.
type Rasterizer struct {
	g        *grid.Grid
	out      *voxset.Set
	maxDepth int
	limit    float64 // squared cell size
	half     float64

	stack []work
	stats Stats
}

// New returns a Rasterizer writing into out. maxDepth <= 0 selects
// DefaultMaxDepth.
func New(g *grid.Grid, out *voxset.Set, maxDepth int) *Rasterizer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	cs := g.CellSize()
	return &Rasterizer{
		g:        g,
		out:      out,
		maxDepth: maxDepth,
		limit:    cs * cs,
		half:     0.5 * cs,
	}
}

// Stats returns the counters accumulated so far.
func (r *Rasterizer) Stats() Stats { return r.stats }

// Triangle covers the edges of triangle abc, subdividing it until every edge
// is no longer than one cell.
func (r *Rasterizer) Triangle(a, b, c v3.Vec) {
	r.stats.Triangles++
	if !finite(a) || !finite(b) || !finite(c) {
		r.stats.Degenerate++
		return
	}

	r.stack = append(r.stack[:0], work{a: a, b: b, c: c})
	for len(r.stack) > 0 {
		w := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		a, b, c := w.a, w.b, w.c

		var m v3.Vec
		split := true
		switch {
		case distSq(a, b) > r.limit:
			m = mid(a, b)
			r.push(a, m, c, w.depth)
			r.push(b, m, c, w.depth)
		case distSq(a, c) > r.limit:
			m = mid(a, c)
			r.push(a, m, b, w.depth)
			r.push(c, m, b, w.depth)
		case distSq(b, c) > r.limit:
			m = mid(b, c)
			r.push(b, m, a, w.depth)
			r.push(c, m, a, w.depth)
		default:
			split = false
		}
		if split {
			continue
		}
		r.CoverEdge(a, b)
		r.CoverEdge(b, c)
		r.CoverEdge(c, a)
	}
}

func (r *Rasterizer) push(a, b, c v3.Vec, depth int) {
	if depth+1 > r.maxDepth {
		r.stats.Clamped++
		return
	}
	r.stack = append(r.stack, work{a: a, b: b, c: c, depth: depth + 1})
}

// CoverEdge deposits the voxels containing a and b and, when those voxels
// are only edge- or corner-adjacent, the connector voxels the segment passes
// through so that the deposited voxels stay face-connected. The segment
// should be no longer than one cell.
func (r *Rasterizer) CoverEdge(a, b v3.Vec) {
	r.coverEdge(a, b, 0)
}

func (r *Rasterizer) coverEdge(a, b v3.Vec, splits int) {
	ia := r.g.PositionToIndex3(a)
	ib := r.g.PositionToIndex3(b)
	d := ib.Sub(ia)
	if (abs(d.X) > 1 || abs(d.Y) > 1 || abs(d.Z) > 1) && splits < maxEdgeSplits {
		m := mid(a, b)
		r.coverEdge(a, m, splits+1)
		r.coverEdge(m, b, splits+1)
		return
	}

	r.stats.Edges++
	r.add(ia)
	r.add(ib)

	differ := 0
	if d.X != 0 {
		differ++
	}
	if d.Y != 0 {
		differ++
	}
	if d.Z != 0 {
		differ++
	}
	if differ < 2 {
		return
	}

	ca := r.g.Index3ToPosition(ia)
	cb := r.g.Index3ToPosition(ib)

	if differ == 2 {
		r.faceDiagonal(a, b, ia, ib, ca, cb)
		return
	}
	r.cornerDiagonal(a, b, ia, ib, ca, cb)
}

// faceDiagonal handles voxels differing along two axes. The segment is cut
// by the plane halfway between the two voxel centres on one of the changing
// axes; whichever endpoint the crossing lies nearer to on the other changing
// axis decides which of the two candidate connectors is added.
func (r *Rasterizer) faceDiagonal(a, b v3.Vec, ia, ib grid.Index3, ca, cb v3.Vec) {
	var cut, other grid.Axis
	var nearA, nearB grid.Index3
	switch {
	case ia.X == ib.X:
		cut, other = grid.AxisZ, grid.AxisY
		nearA = grid.Index3{X: ia.X, Y: ia.Y, Z: ib.Z}
		nearB = grid.Index3{X: ia.X, Y: ib.Y, Z: ia.Z}
	case ia.Y == ib.Y:
		cut, other = grid.AxisX, grid.AxisZ
		nearA = grid.Index3{X: ib.X, Y: ia.Y, Z: ia.Z}
		nearB = grid.Index3{X: ia.X, Y: ia.Y, Z: ib.Z}
	default:
		cut, other = grid.AxisY, grid.AxisX
		nearA = grid.Index3{X: ia.X, Y: ib.Y, Z: ia.Z}
		nearB = grid.Index3{X: ib.X, Y: ia.Y, Z: ia.Z}
	}

	p, ok := crossing(a, b, cut, 0.5*(get(ca, cut)+get(cb, cut)))
	if !ok {
		r.add(nearA)
		r.add(nearB)
		return
	}
	if math.Abs(get(p, other)-get(a, other)) < math.Abs(get(p, other)-get(b, other)) {
		r.add(nearA)
	} else {
		r.add(nearB)
	}
}

// cornerDiagonal handles voxels differing along all three axes. Each of the
// three mid planes contributes at most one connector: the voxel on the A side
// when the crossing falls within A's footprint on that plane, otherwise the
// voxel on the B side when it falls within B's footprint.
func (r *Rasterizer) cornerDiagonal(a, b v3.Vec, ia, ib grid.Index3, ca, cb v3.Vec) {
	type candidate struct {
		cut          grid.Axis
		aSide, bSide grid.Index3
	}
	candidates := [3]candidate{
		{grid.AxisX, grid.Index3{X: ib.X, Y: ia.Y, Z: ia.Z}, grid.Index3{X: ia.X, Y: ib.Y, Z: ib.Z}},
		{grid.AxisY, grid.Index3{X: ia.X, Y: ib.Y, Z: ia.Z}, grid.Index3{X: ib.X, Y: ia.Y, Z: ib.Z}},
		{grid.AxisZ, grid.Index3{X: ia.X, Y: ia.Y, Z: ib.Z}, grid.Index3{X: ib.X, Y: ib.Y, Z: ia.Z}},
	}
	for _, cand := range candidates {
		p, ok := crossing(a, b, cand.cut, 0.5*(get(ca, cand.cut)+get(cb, cand.cut)))
		if !ok {
			r.add(cand.aSide)
			r.add(cand.bSide)
			continue
		}
		u, v := cand.cut.Perpendicular()
		switch {
		case r.footprint(ca, p, u, v):
			r.add(cand.aSide)
		case r.footprint(cb, p, u, v):
			r.add(cand.bSide)
		}
	}
}

// footprint reports whether p lies within the cell square centred on centre,
// projected onto axes u and v. The square includes its boundary.
func (r *Rasterizer) footprint(centre, p v3.Vec, u, v grid.Axis) bool {
	pu, pv := get(p, u), get(p, v)
	cu, cv := get(centre, u), get(centre, v)
	return cu-r.half <= pu && pu <= cu+r.half &&
		cv-r.half <= pv && pv <= cv+r.half
}

func (r *Rasterizer) add(c grid.Index3) {
	if r.g.InBounds(c) {
		r.out.Add(r.g.Index3ToIndex1(c))
	}
}

// crossing returns the point where segment ab meets the plane where the
// given axis equals at. It fails when the segment is parallel to the plane.
func crossing(a, b v3.Vec, axis grid.Axis, at float64) (v3.Vec, bool) {
	da := get(b, axis) - get(a, axis)
	if math.Abs(da) < 1e-12 {
		return v3.Vec{}, false
	}
	t := (at - get(a, axis)) / da
	return v3.Vec{
		X: a.X + t*(b.X-a.X),
		Y: a.Y + t*(b.Y-a.Y),
		Z: a.Z + t*(b.Z-a.Z),
	}, true
}

func get(p v3.Vec, a grid.Axis) float64 {
	switch a {
	case grid.AxisX:
		return p.X
	case grid.AxisY:
		return p.Y
	default:
		return p.Z
	}
}

func mid(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: 0.5 * (a.X + b.X), Y: 0.5 * (a.Y + b.Y), Z: 0.5 * (a.Z + b.Z)}
}

func distSq(a, b v3.Vec) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return dx*dx + dy*dy + dz*dz
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func finite(v v3.Vec) bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
