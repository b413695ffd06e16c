// Package grid maps between world-space positions, 3D voxel coordinates,
// linear voxel indices and the faces shared by adjacent voxels.
//
// A Grid is immutable once built. Every pipeline stage receives the same
// *Grid and only reads from it, so independent voxelizations never share
// mutable state.
package grid

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCellSize is returned for a cell size that is not a positive finite number.
	ErrInvalidCellSize = errors.New("grid: cell size must be positive and finite")

	// ErrEmptyBounds is returned when no points are available to build the bounding box.
	ErrEmptyBounds = errors.New("grid: no points to bound")

	// ErrGridTooLarge is returned when the grid would exceed the configured voxel limit.
	ErrGridTooLarge = errors.New("grid: too many voxels")
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max v3.Vec
}

// Size returns the extent of the box along each axis.
func (b Box) Size() v3.Vec {
	return v3.Vec{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

func (b Box) String() string {
	return fmt.Sprintf("x[%g, %g] y[%g, %g] z[%g, %g]",
		b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
}

// BoundPoints returns the smallest box containing every point.
func BoundPoints(points []v3.Vec) (Box, error) {
	if len(points) == 0 {
		return Box{}, ErrEmptyBounds
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	if !finite(b.Min) || !finite(b.Max) {
		return Box{}, errors.Errorf("grid: non-finite bounds %s", b)
	}
	return b, nil
}

// Grid is a regular voxel lattice anchored at the minimum corner of a
// bounding box.
type Grid struct {
	bounds   Box
	cellSize float64
	dims     Index3
	count    int
}

// New builds a grid over bounds with the given cell size. The dimensions are
// floor((max-min)/cellSize)+1 per axis, so every point inside bounds maps to
// an in-range voxel. maxVoxels <= 0 disables the size limit.
func New(bounds Box, cellSize float64, maxVoxels int) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, errors.Wrapf(ErrInvalidCellSize, "got %v", cellSize)
	}
	if !finite(bounds.Min) || !finite(bounds.Max) {
		return nil, errors.Errorf("grid: non-finite bounds %s", bounds)
	}
	if bounds.Max.X < bounds.Min.X || bounds.Max.Y < bounds.Min.Y || bounds.Max.Z < bounds.Min.Z {
		return nil, errors.Errorf("grid: inverted bounds %s", bounds)
	}

	g := &Grid{bounds: bounds, cellSize: cellSize}

	// Each axis is converted independently, exactly as a vertex on the max
	// corner would be, so the max corner always lands inside the grid.
	span := [3]float64{
		math.Floor((bounds.Max.X-bounds.Min.X)/cellSize) + 1,
		math.Floor((bounds.Max.Y-bounds.Min.Y)/cellSize) + 1,
		math.Floor((bounds.Max.Z-bounds.Min.Z)/cellSize) + 1,
	}
	total := span[0] * span[1] * span[2]
	// Face identifiers need room for three axes worth of voxels.
	limit := float64(math.MaxInt64 / 4)
	if maxVoxels > 0 {
		limit = float64(maxVoxels)
	}
	if total > limit {
		return nil, errors.Wrapf(ErrGridTooLarge, "%.0f x %.0f x %.0f voxels at cell size %g",
			span[0], span[1], span[2], cellSize)
	}

	g.dims = Index3{X: int(span[0]), Y: int(span[1]), Z: int(span[2])}
	g.count = g.dims.X * g.dims.Y * g.dims.Z
	return g, nil
}

// FromPoints bounds the points and builds a grid over them.
func FromPoints(points []v3.Vec, cellSize float64, maxVoxels int) (*Grid, error) {
	b, err := BoundPoints(points)
	if err != nil {
		return nil, err
	}
	return New(b, cellSize, maxVoxels)
}

// Bounds returns the bounding box the grid was built from.
func (g *Grid) Bounds() Box { return g.bounds }

// CellSize returns the edge length of one voxel.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Dims returns the number of voxels along each axis.
func (g *Grid) Dims() Index3 { return g.dims }

// Count returns the total number of voxels.
func (g *Grid) Count() int { return g.count }

// PositionToIndex3 returns the voxel containing p. A point exactly on a cell
// boundary belongs to the higher-index cell. The result may be out of range
// for points outside the bounding box.
func (g *Grid) PositionToIndex3(p v3.Vec) Index3 {
	return Index3{
		X: int(math.Floor((p.X - g.bounds.Min.X) / g.cellSize)),
		Y: int(math.Floor((p.Y - g.bounds.Min.Y) / g.cellSize)),
		Z: int(math.Floor((p.Z - g.bounds.Min.Z) / g.cellSize)),
	}
}

// Index3ToIndex1 returns the linear index of c. The result is only unique
// for in-range coordinates; check InBounds first when c may lie outside.
func (g *Grid) Index3ToIndex1(c Index3) int {
	return c.X*g.dims.Y*g.dims.Z + c.Y*g.dims.Z + c.Z
}

// Index1ToIndex3 inverts Index3ToIndex1 for in-range linear indices.
func (g *Grid) Index1ToIndex3(i int) Index3 {
	plane := g.dims.Y * g.dims.Z
	x := i / plane
	i -= x * plane
	y := i / g.dims.Z
	return Index3{X: x, Y: y, Z: i - y*g.dims.Z}
}

// Index3ToPosition returns the world-space centre of voxel c.
func (g *Grid) Index3ToPosition(c Index3) v3.Vec {
	return v3.Vec{
		X: g.bounds.Min.X + (float64(c.X)+0.5)*g.cellSize,
		Y: g.bounds.Min.Y + (float64(c.Y)+0.5)*g.cellSize,
		Z: g.bounds.Min.Z + (float64(c.Z)+0.5)*g.cellSize,
	}
}

// Index1ToPosition returns the world-space centre of the voxel with linear index i.
func (g *Grid) Index1ToPosition(i int) v3.Vec {
	return g.Index3ToPosition(g.Index1ToIndex3(i))
}

// InBounds reports whether c addresses a voxel inside the grid.
func (g *Grid) InBounds(c Index3) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		c.X < g.dims.X && c.Y < g.dims.Y && c.Z < g.dims.Z
}

func finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
