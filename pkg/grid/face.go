package grid

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidAdjacency is returned when a face is requested for two voxels
	// that do not differ by exactly one step along exactly one axis.
	ErrInvalidAdjacency = errors.New("grid: voxels are not face-adjacent")

	// ErrOutOfRange is returned for a face that touches no voxel of the grid.
	ErrOutOfRange = errors.New("grid: face lies outside the grid")
)

// FaceID identifies the square shared by two face-adjacent voxels.
//
// When the lower voxel on the face axis is inside the grid the encoding is
// axis*Count + linear(lower). A face whose lower voxel sits just below the
// grid (the grid boundary seen from an in-range voxel) is encoded as
// -(1 + axis*Count + linear(upper)). Both forms are unique.
type FaceID int

// FaceIndex returns the face shared by a and b, in either order.
func (g *Grid) FaceIndex(a, b Index3) (FaceID, error) {
	d := b.Sub(a)
	var axis Axis
	lo := a
	switch {
	case d.Y == 0 && d.Z == 0 && (d.X == 1 || d.X == -1):
		axis = AxisX
	case d.X == 0 && d.Z == 0 && (d.Y == 1 || d.Y == -1):
		axis = AxisY
	case d.X == 0 && d.Y == 0 && (d.Z == 1 || d.Z == -1):
		axis = AxisZ
	default:
		return 0, errors.Wrapf(ErrInvalidAdjacency, "%s and %s", a, b)
	}
	if d.Get(axis) < 0 {
		lo = b
	}
	return g.FaceOf(lo, axis)
}

// FaceOf returns the face between lo and lo+Unit(axis).
func (g *Grid) FaceOf(lo Index3, axis Axis) (FaceID, error) {
	if g.InBounds(lo) {
		return FaceID(int(axis)*g.count + g.Index3ToIndex1(lo)), nil
	}
	hi := lo.Add(Unit(axis))
	if lo.Get(axis) == -1 && g.InBounds(hi) {
		return FaceID(-(1 + int(axis)*g.count + g.Index3ToIndex1(hi))), nil
	}
	return 0, errors.Wrapf(ErrOutOfRange, "face %s/%s", lo, axis)
}

// FaceAxis returns the axis normal to f.
func (g *Grid) FaceAxis(f FaceID) Axis {
	axis, _ := g.decode(f)
	return axis
}

// FaceVoxels returns the two voxels sharing f, ordered along the face axis.
func (g *Grid) FaceVoxels(f FaceID) (lo, hi Index3) {
	axis, lo := g.decode(f)
	return lo, lo.Add(Unit(axis))
}

func (g *Grid) decode(f FaceID) (Axis, Index3) {
	if f >= 0 {
		v := int(f)
		return Axis(v / g.count), g.Index1ToIndex3(v % g.count)
	}
	v := -int(f) - 1
	axis := Axis(v / g.count)
	hi := g.Index1ToIndex3(v % g.count)
	return axis, hi.Sub(Unit(axis))
}
