package voxelize

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/raster"
	"github.com/chazu/voxelize/pkg/shell"
	"github.com/chazu/voxelize/pkg/volume"
)

// Diagnostics summarizes one voxelization for logging.
type Diagnostics struct {
	Name     string
	Cell     float64
	Bound    grid.Box
	Dims     grid.Index3
	Surface  int
	Interior int

	Raster  raster.Stats
	Extract shell.ExtractStats
	Dedup   shell.DedupStats
	Volume  volume.Stats
	Stages  StageTimes
}

// Closed reports whether every ray crossed the kept shell an even number
// of times. When false the volume set should not be trusted.
func (d Diagnostics) Closed() bool { return d.Volume.OddColumns == 0 }

func (d Diagnostics) String() string {
	var b strings.Builder
	name := d.Name
	if name == "" {
		name = "mesh"
	}
	fmt.Fprintf(&b, "voxelize %s: bounds %s, cell %g, grid %dx%dx%d (%s voxels)",
		name, d.Bound, d.Cell, d.Dims.X, d.Dims.Y, d.Dims.Z,
		humanize.Comma(int64(d.Dims.X)*int64(d.Dims.Y)*int64(d.Dims.Z)))
	fmt.Fprintf(&b, "; surface %s, volume %s",
		humanize.Comma(int64(d.Surface)), humanize.Comma(int64(d.Interior)))
	fmt.Fprintf(&b, "; triangles %s", humanize.Comma(d.Raster.Triangles))
	if d.Raster.Degenerate > 0 {
		fmt.Fprintf(&b, " (%s degenerate)", humanize.Comma(d.Raster.Degenerate))
	}
	if d.Raster.Clamped > 0 {
		fmt.Fprintf(&b, " (%s clamped)", humanize.Comma(d.Raster.Clamped))
	}
	fmt.Fprintf(&b, "; faces %s raw, %s kept, %s discarded",
		humanize.Comma(int64(d.Dedup.Raw)), humanize.Comma(int64(d.Dedup.Kept)), humanize.Comma(int64(d.Dedup.Discarded)))
	if d.Extract.Isolated > 0 || d.Extract.Buried > 0 {
		fmt.Fprintf(&b, "; %d isolated, %d buried surface voxels", d.Extract.Isolated, d.Extract.Buried)
	}
	if !d.Closed() {
		fmt.Fprintf(&b, "; %d odd columns, shell not closed", d.Volume.OddColumns)
	}
	fmt.Fprintf(&b, "; took %s (raster %s, extract %s, dedup %s, classify %s)",
		d.Stages.Total, d.Stages.Rasterize, d.Stages.Extract, d.Stages.Dedup, d.Stages.Classify)
	return b.String()
}
