// Package shell turns a surface voxel set into the set of faces separating
// it from empty space, and reduces that face set to a single shell.
package shell

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/voxset"
)

// DefaultBatchSize is the number of surface voxels handed to a worker at once.
const DefaultBatchSize = 64

// ExtractOptions controls how surface voxels are scheduled.
type ExtractOptions struct {
	Workers   int // <= 0 means one per CPU
	BatchSize int // <= 0 means DefaultBatchSize
}

// ExtractStats reports the faces found and the anomalies met on the way.
type ExtractStats struct {
	Voxels   int64 // surface voxels examined
	Faces    int64 // distinct faces in the result
	Isolated int64 // surface voxels with no surface neighbour
	Buried   int64 // surface voxels with no empty neighbour
}

// Extract returns the faces between surface voxels and voxels that are not
// in the surface set, including faces on the outside of the grid. Surface
// must not be modified while Extract runs.
func Extract(g *grid.Grid, surface *voxset.Set, opts ExtractOptions) (*voxset.Set, ExtractStats, error) {
	if g == nil || surface == nil {
		return nil, ExtractStats{}, errors.New("shell: nil grid or surface set")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	members := surface.Members()
	faces := voxset.New(2 * len(members))
	var stats ExtractStats
	stats.Voxels = int64(len(members))

	var eg errgroup.Group
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for start := 0; start < len(members); start += batch {
		end := start + batch
		if end > len(members) {
			end = len(members)
		}
		chunk := members[start:end]
		eg.Go(func() error {
			var isolated, buried int64
			for _, i := range chunk {
				c := g.Index1ToIndex3(i)
				exposed := 0
				for _, d := range grid.Neighbors6 {
					n := c.Add(d)
					if g.InBounds(n) && surface.Has(g.Index3ToIndex1(n)) {
						continue
					}
					f, err := g.FaceIndex(c, n)
					if err != nil {
						return errors.Wrapf(err, "shell: surface voxel %s", c)
					}
					faces.Add(int(f))
					exposed++
				}
				switch exposed {
				case 0:
					buried++
				case len(grid.Neighbors6):
					isolated++
				}
			}
			atomic.AddInt64(&stats.Isolated, isolated)
			atomic.AddInt64(&stats.Buried, buried)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, stats, err
	}

	stats.Faces = int64(faces.Len())
	if stats.Isolated > 0 {
		vlog.Warningf("shell: %d isolated surface voxels (no surface neighbour)", stats.Isolated)
	}
	if stats.Buried > 0 {
		vlog.Warningf("shell: %d surface voxels with no empty neighbour", stats.Buried)
	}
	return faces, stats, nil
}
