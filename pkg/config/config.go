// Package config loads the TOML configuration of the voxelize command.
package config

import (
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/export"
	"github.com/chazu/voxelize/pkg/vlog"
)

// Config is the full set of tunables. The zero value is not usable; start
// from Default.
type Config struct {
	Voxelize VoxelizeConfig `toml:"voxelize"`
	Mesh     MeshConfig     `toml:"mesh"`
	Output   OutputConfig   `toml:"output"`
	Logging  LoggingConfig  `toml:"logging"`
}

// VoxelizeConfig controls the voxelization pipeline.
type VoxelizeConfig struct {
	CellSize  float64 `toml:"cell_size"`
	Workers   int     `toml:"workers"` // 0 means one per CPU
	BatchSize int     `toml:"batch_size"`
	MaxDepth  int     `toml:"max_depth"`
	MaxVoxels int     `toml:"max_voxels"`
}

// MeshConfig controls how scene solids are tessellated.
type MeshConfig struct {
	Cells int `toml:"cells"` // marching cubes resolution
}

// OutputConfig selects where and how results are written.
type OutputConfig struct {
	Path        string `toml:"path"` // empty means no export
	Format      string `toml:"format"`
	Compression string `toml:"compression"`
}

// LoggingConfig adds a level to the log file settings.
type LoggingConfig struct {
	vlog.LogConfig
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Voxelize: VoxelizeConfig{
			CellSize:  0.05,
			BatchSize: 64,
			MaxDepth:  96,
			MaxVoxels: 1 << 30,
		},
		Mesh: MeshConfig{Cells: 200},
		Output: OutputConfig{
			Format:      string(export.FormatNPY),
			Compression: string(export.CodecNone),
		},
		Logging: LoggingConfig{
			LogConfig: vlog.LogConfig{MaxSize: 100, MaxAge: 30},
			Level:     "info",
		},
	}
}

// Load reads a TOML file over the defaults. Keys the configuration does not
// know are an error, so typos do not go unnoticed.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode TOML config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	v := c.Voxelize
	if !(v.CellSize > 0) {
		return errors.Errorf("voxelize.cell_size must be positive, got %g", v.CellSize)
	}
	if v.Workers < 0 {
		return errors.Errorf("voxelize.workers must not be negative, got %d", v.Workers)
	}
	if v.BatchSize < 0 || v.MaxDepth < 0 || v.MaxVoxels < 0 {
		return errors.New("voxelize: batch_size, max_depth and max_voxels must not be negative")
	}
	if c.Mesh.Cells < 2 {
		return errors.Errorf("mesh.cells must be at least 2, got %d", c.Mesh.Cells)
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if _, err := export.ParseCodec(c.Output.Compression); err != nil {
		return err
	}
	if _, err := vlog.ParseMode(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// EffectiveWorkers resolves a workers setting of 0 to the CPU count.
func (v VoxelizeConfig) EffectiveWorkers() int {
	if v.Workers > 0 {
		return v.Workers
	}
	return runtime.NumCPU()
}
