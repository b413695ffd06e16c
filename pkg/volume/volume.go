// Package volume classifies interior voxels by even-odd ray casting along Z
// against a shell of faces.
package volume

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/voxset"
)

// DefaultBatchSize is the number of (x,y) columns handed to a worker at once.
const DefaultBatchSize = 64

// Options controls how columns are scheduled.
type Options struct {
	Workers   int // <= 0 means one per CPU
	BatchSize int // <= 0 means DefaultBatchSize

	// Exclude, when set, holds voxels that are never reported as interior.
	// The pipeline passes the surface set so the two outputs are disjoint.
	Exclude voxset.Membership
}

// Stats reports the outcome of a classification.
type Stats struct {
	Columns    int64 // (x,y) columns walked
	Crossings  int64 // faces crossed over all columns
	OddColumns int64 // columns crossing an odd number of faces
	Voxels     int64 // interior voxels found
}

// Classify walks every (x,y) column of the grid upward and toggles an inside
// flag at each Z face present in faces, starting below the grid and ending
// above it. Every in-range voxel entered while inside is interior.
//
// A closed shell is crossed an even number of times by every column. Columns
// with an odd count mean the shell is open or non-manifold; they are counted
// and logged, and their classification should not be trusted.
func Classify(g *grid.Grid, faces voxset.Membership, opts Options) (*voxset.Set, Stats, error) {
	if g == nil || faces == nil {
		return nil, Stats{}, errors.New("volume: nil grid or face set")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	dims := g.Dims()
	columns := dims.X * dims.Y
	out := voxset.New(0)
	stats := Stats{Columns: int64(columns)}
	var firstOdd int64 = -1

	var eg errgroup.Group
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for start := 0; start < columns; start += batch {
		end := start + batch
		if end > columns {
			end = columns
		}
		eg.Go(func() error {
			var crossings, odd int64
			for col := start; col < end; col++ {
				x, y := col/dims.Y, col%dims.Y
				n, err := walk(g, x, y, faces, opts.Exclude, out)
				if err != nil {
					return err
				}
				crossings += int64(n)
				if n%2 != 0 {
					odd++
					atomic.CompareAndSwapInt64(&firstOdd, -1, int64(col))
				}
			}
			atomic.AddInt64(&stats.Crossings, crossings)
			atomic.AddInt64(&stats.OddColumns, odd)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, stats, err
	}

	stats.Voxels = int64(out.Len())
	if stats.OddColumns > 0 {
		col := int(firstOdd)
		vlog.Warningf("volume: %d of %d columns cross the shell an odd number of times (e.g. x=%d y=%d); shell is not closed",
			stats.OddColumns, stats.Columns, col/dims.Y, col%dims.Y)
	}
	return out, stats, nil
}

// walk classifies one column and returns the number of faces it crossed.
func walk(g *grid.Grid, x, y int, faces, exclude voxset.Membership, out *voxset.Set) (int, error) {
	nz := g.Dims().Z
	inside := false
	crossings := 0
	for z := -1; z < nz; z++ {
		f, err := g.FaceOf(grid.Index3{X: x, Y: y, Z: z}, grid.AxisZ)
		if err != nil {
			return crossings, errors.Wrapf(err, "volume: column x=%d y=%d", x, y)
		}
		if faces.Has(int(f)) {
			inside = !inside
			crossings++
		}
		if !inside || z+1 >= nz {
			continue
		}
		v := g.Index3ToIndex1(grid.Index3{X: x, Y: y, Z: z + 1})
		if exclude != nil && exclude.Has(v) {
			continue
		}
		out.Add(v)
	}
	return crossings, nil
}
