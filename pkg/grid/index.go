package grid

import "fmt"

// Axis names one of the three grid axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Axes lists the three axes in encoding order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// Perpendicular returns the two axes orthogonal to a, in ascending order.
func (a Axis) Perpendicular() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Index3 is a 3D voxel coordinate. Coordinates outside the grid are valid
// values (used to probe past the boundary) but have no unique linear index.
type Index3 struct {
	X, Y, Z int
}

func (c Index3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Add returns c+d componentwise.
func (c Index3) Add(d Index3) Index3 {
	return Index3{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

// Sub returns c-d componentwise.
func (c Index3) Sub(d Index3) Index3 {
	return Index3{X: c.X - d.X, Y: c.Y - d.Y, Z: c.Z - d.Z}
}

// Get returns the component of c along a.
func (c Index3) Get(a Axis) int {
	switch a {
	case AxisX:
		return c.X
	case AxisY:
		return c.Y
	default:
		return c.Z
	}
}

// Unit returns the unit step along a.
func Unit(a Axis) Index3 {
	switch a {
	case AxisX:
		return Index3{X: 1}
	case AxisY:
		return Index3{Y: 1}
	default:
		return Index3{Z: 1}
	}
}

// Neighbors6 are the six face-adjacent offsets, -X +X -Y +Y -Z +Z.
var Neighbors6 = [6]Index3{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}
