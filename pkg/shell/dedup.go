package shell

import (
	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/voxset"
)

// DedupStats describes one deduplication pass.
type DedupStats struct {
	Raw       int  // faces before the pass
	Reached   int  // faces in the component reached from the seed
	Kept      int  // faces left in the set
	Discarded int  // faces dropped
	KeptSeed  bool // whether the seed's component was the one kept
}

// Deduplicate floods the face set from one seed face, removing every face
// reachable through shared edges, then keeps whichever of the reached and
// the unreached faces is larger. The set is modified in place. The seed is
// the smallest face identifier, so repeated runs on equal sets agree.
//
// A closed surface one voxel thick yields two shells, one on each side of
// the voxels; for a single closed surface the larger one is the outer shell.
// Meshes made of several disjoint solids produce more than two components,
// and only the seed's component is considered.
func Deduplicate(g *grid.Grid, faces *voxset.Set) DedupStats {
	stats := DedupStats{Raw: faces.Len()}
	if stats.Raw == 0 {
		return stats
	}

	seed, first := 0, true
	faces.Range(func(f int) bool {
		if first || f < seed {
			seed, first = f, false
		}
		return true
	})

	queued := map[grid.FaceID]struct{}{grid.FaceID(seed): {}}
	queue := []grid.FaceID{grid.FaceID(seed)}
	var reached []int
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		faces.Remove(int(f))
		reached = append(reached, int(f))

		for _, n := range neighbors(g, f) {
			if _, ok := queued[n]; ok || !faces.Has(int(n)) {
				continue
			}
			queued[n] = struct{}{}
			queue = append(queue, n)
		}
	}

	stats.Reached = len(reached)
	rest := faces.Len()
	if stats.Reached > rest {
		stats.KeptSeed = true
		faces.Clear()
		for _, f := range reached {
			faces.Add(f)
		}
	}
	stats.Kept = faces.Len()
	stats.Discarded = stats.Raw - stats.Kept

	vlog.Debugf("shell: seed component %d faces, remainder %d, kept %d", stats.Reached, rest, stats.Kept)
	if stats.Reached == stats.Raw {
		vlog.Debugf("shell: face set is a single component")
	}
	return stats
}

// neighbors returns the faces sharing an edge with f: for each of the four
// directions perpendicular to its normal, the coplanar face one step over and
// the two perpendicular faces meeting it along that edge. Faces that touch no
// voxel of the grid are omitted.
func neighbors(g *grid.Grid, f grid.FaceID) []grid.FaceID {
	axis := g.FaceAxis(f)
	lo, hi := g.FaceVoxels(f)
	u, v := axis.Perpendicular()

	out := make([]grid.FaceID, 0, 12)
	for _, p := range [2]grid.Axis{u, v} {
		step := grid.Unit(p)
		for _, d := range [2]grid.Index3{step, grid.Index3{}.Sub(step)} {
			if n, err := g.FaceOf(lo.Add(d), axis); err == nil {
				out = append(out, n)
			}
			if n, err := g.FaceIndex(lo, lo.Add(d)); err == nil {
				out = append(out, n)
			}
			if n, err := g.FaceIndex(hi, hi.Add(d)); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}
