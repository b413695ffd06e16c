// Command voxelize evaluates a scene script, tessellates every model it
// defines and converts each mesh into surface and volume voxel sets.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/voxelize/pkg/config"
	"github.com/chazu/voxelize/pkg/export"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/voxelize"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// TOML configuration file.
	configFile = flag.String("config", "", "")

	// Scene script to voxelize. Empty means the built-in sphere.
	sceneFile = flag.String("scene", "", "")

	// Overrides for configuration values.
	cellSize    = flag.Float64("cell", 0, "")
	numWorkers  = flag.Int("workers", 0, "")
	meshCells   = flag.Int("mesh-cells", 0, "")
	outPath     = flag.String("out", "", "")
	outFormat   = flag.String("format", "", "")
	compression = flag.String("compress", "", "")
	logLevel    = flag.String("log-level", "", "")
)

const helpMessage = `
voxelize converts the models of a scene script into voxel sets

Usage: voxelize [options]

      -config     =string   TOML configuration file.
      -scene      =string   Scene script. Without it a unit sphere is voxelized.
      -cell       =number   Voxel edge length.
      -workers    =number   Worker goroutines per stage (0 = one per CPU).
      -mesh-cells =number   Marching cubes resolution for scene solids.
      -out        =string   Output file. Several models get the model name appended.
      -format     =string   Output format: npy or binvox.
      -compress   =string   Output compression: none, zstd or snappy.
      -log-level  =string   debug, info, warning, error or silent.
  -h, -help       (flag)    Show help message

Command-line values override the configuration file.
`

// builtinScene is voxelized when no scene file is given.
const builtinScene = `
;; A unit sphere centred on the origin.
(model "sphere" (sphere :radius 1))
`

var usage = func() {
	fmt.Printf(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if *showHelp || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "voxelize: %v\n", err)
		vlog.Shutdown()
		os.Exit(1)
	}
	vlog.Shutdown()
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, _ := vlog.ParseMode(cfg.Logging.Level)
	vlog.SetLogMode(mode)
	cfg.Logging.SetLogger()

	source := builtinScene
	if *sceneFile != "" {
		data, err := os.ReadFile(*sceneFile)
		if err != nil {
			return err
		}
		source = string(data)
	}

	app := NewApp(cfg.Mesh.Cells, voxelize.Options{
		CellSize:  cfg.Voxelize.CellSize,
		Workers:   cfg.Voxelize.EffectiveWorkers(),
		BatchSize: cfg.Voxelize.BatchSize,
		MaxDepth:  cfg.Voxelize.MaxDepth,
		MaxVoxels: cfg.Voxelize.MaxVoxels,
	})
	tl := vlog.NewTimeLog()
	result := app.Run(source)
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(os.Stderr, "line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintln(os.Stderr, e.Message)
		}
	}
	var failed error
	if len(result.Errors) > 0 {
		failed = fmt.Errorf("%d errors", len(result.Errors))
	}
	if len(result.Models) == 0 {
		if failed == nil {
			vlog.Warningf("scene defines no models")
		}
		return failed
	}
	tl.Infof("voxelized %d models", len(result.Models))

	if cfg.Output.Path != "" {
		if err := writeModels(cfg.Output, result.Models); err != nil {
			return err
		}
	}
	return failed
}

// writeModels exports every voxelized model according to out.
func writeModels(out config.OutputConfig, models []ModelResult) error {
	format, err := export.ParseFormat(out.Format)
	if err != nil {
		return err
	}
	codec, err := export.ParseCodec(out.Compression)
	if err != nil {
		return err
	}
	base := out.Path
	if ext := codec.Ext(); ext != "" && !strings.HasSuffix(base, ext) {
		base += ext
	}
	for _, m := range models {
		path := outputPath(base, m.Name, len(models))
		r := m.Voxels
		if err := export.WriteFile(path, format, codec, r.Grid, r.Surface, r.Volume); err != nil {
			return err
		}
		vlog.Infof("wrote %s", path)
	}
	return nil
}

// applyFlags copies explicitly set command-line values over cfg.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cell":
			cfg.Voxelize.CellSize = *cellSize
		case "workers":
			cfg.Voxelize.Workers = *numWorkers
		case "mesh-cells":
			cfg.Mesh.Cells = *meshCells
		case "out":
			cfg.Output.Path = *outPath
		case "format":
			cfg.Output.Format = *outFormat
		case "compress":
			cfg.Output.Compression = *compression
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
}

// outputPath returns base unchanged for a single model. With several models
// the model name is inserted before the extension: out.npy -> out-name.npy.
func outputPath(base, model string, models int) string {
	if models <= 1 {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	// Keep compound extensions such as .binvox.zst together.
	if inner := filepath.Ext(stem); inner != "" && (ext == ".zst" || ext == ".sz") {
		ext = inner + ext
		stem = strings.TrimSuffix(stem, inner)
	}
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, model)
	return stem + "-" + name + ext
}
