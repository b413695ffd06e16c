package export

import (
	"io"

	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/voxset"
)

// WriteNPY writes the labelled grid as a uint8 numpy array shaped
// (dims.X, dims.Y, dims.Z) in C order, which matches the grid's linear
// index. The writer is closed when the array has been written.
func WriteNPY(w io.WriteCloser, g *grid.Grid, surface, volume voxset.Membership) error {
	if g == nil {
		w.Close()
		return errors.New("export: nil grid")
	}
	npy, err := gonpy.NewWriter(w)
	if err != nil {
		w.Close()
		return errors.Wrap(err, "export: npy")
	}
	d := g.Dims()
	npy.Shape = []int{d.X, d.Y, d.Z}
	if err := npy.WriteUint8(Labels(g, surface, volume)); err != nil {
		return errors.Wrap(err, "export: npy")
	}
	return nil
}
