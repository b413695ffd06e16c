package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/voxset"
)

const binvoxSignature = "#binvox 1\n"

// WriteBinvox writes a binvox v1 grid in which a voxel is occupied when any
// of sets contains it.
//
// Binvox orders voxels with y varying fastest, then z, then x, and names
// the dimensions depth (x), height (z) and width (y). The data section is a
// sequence of (value, count) byte pairs with counts of at most 255.
// Translate is the grid's minimum corner and scale its longest side.
func WriteBinvox(w io.Writer, g *grid.Grid, sets ...voxset.Membership) error {
	if g == nil {
		return errors.New("export: nil grid")
	}
	d := g.Dims()
	bw := bufio.NewWriter(w)

	min := g.Bounds().Min
	side := d.X
	if d.Y > side {
		side = d.Y
	}
	if d.Z > side {
		side = d.Z
	}
	bw.WriteString(binvoxSignature)
	fmt.Fprintf(bw, "dim %d %d %d\n", d.X, d.Z, d.Y)
	fmt.Fprintf(bw, "translate %.6f %.6f %.6f\n", min.X, min.Y, min.Z)
	fmt.Fprintf(bw, "scale %.6f\n", g.CellSize()*float64(side))
	bw.WriteString("data\n")

	occupied := func(i int) bool {
		for _, s := range sets {
			if s != nil && s.Has(i) {
				return true
			}
		}
		return false
	}

	value, n := false, 0
	flush := func() {
		if n == 0 {
			return
		}
		b := byte(0)
		if value {
			b = 1
		}
		bw.WriteByte(b)
		bw.WriteByte(byte(n))
	}
	for x := 0; x < d.X; x++ {
		for z := 0; z < d.Z; z++ {
			for y := 0; y < d.Y; y++ {
				v := occupied(g.Index3ToIndex1(grid.Index3{X: x, Y: y, Z: z}))
				if v != value || n == 255 {
					flush()
					value, n = v, 0
				}
				n++
			}
		}
	}
	flush()
	return errors.Wrap(bw.Flush(), "export: binvox")
}
