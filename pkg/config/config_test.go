package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxelize.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Voxelize.MaxDepth != 96 || c.Mesh.Cells != 200 {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Voxelize.CellSize != Default().Voxelize.CellSize {
		t.Errorf("Load(\"\") did not return defaults")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[voxelize]
cell_size = 0.25
workers   = 3

[mesh]
cells = 80

[output]
path        = "out.binvox"
format      = "binvox"
compression = "zstd"

[logging]
logfile      = "/tmp/voxelize.log"
max_log_size = 10
level        = "debug"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Voxelize.CellSize != 0.25 || c.Voxelize.Workers != 3 {
		t.Errorf("voxelize = %+v", c.Voxelize)
	}
	if c.Voxelize.MaxDepth != 96 || c.Voxelize.BatchSize != 64 {
		t.Errorf("unset keys lost their defaults: %+v", c.Voxelize)
	}
	if c.Mesh.Cells != 80 {
		t.Errorf("mesh.cells = %d", c.Mesh.Cells)
	}
	if c.Output.Path != "out.binvox" || c.Output.Format != "binvox" || c.Output.Compression != "zstd" {
		t.Errorf("output = %+v", c.Output)
	}
	if c.Logging.Logfile != "/tmp/voxelize.log" || c.Logging.MaxSize != 10 || c.Logging.MaxAge != 30 || c.Logging.Level != "debug" {
		t.Errorf("logging = %+v", c.Logging)
	}
	if c.Voxelize.EffectiveWorkers() != 3 {
		t.Errorf("EffectiveWorkers() = %d", c.Voxelize.EffectiveWorkers())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad syntax", "[voxelize\n", "decode"},
		{"unknown key", "[voxelize]\ncel_size = 1\n", "unknown keys"},
		{"zero cell size", "[voxelize]\ncell_size = 0\n", "cell_size"},
		{"negative workers", "[voxelize]\nworkers = -1\n", "workers"},
		{"coarse mesh", "[mesh]\ncells = 1\n", "mesh.cells"},
		{"bad format", "[output]\nformat = \"stl\"\n", "format"},
		{"bad compression", "[output]\ncompression = \"gzip\"\n", "compression"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestEffectiveWorkersDefault(t *testing.T) {
	if n := (VoxelizeConfig{}).EffectiveWorkers(); n < 1 {
		t.Errorf("EffectiveWorkers() = %d", n)
	}
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load("../../examples/voxelize.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Voxelize.CellSize != 0.1 || cfg.Mesh.Cells != 120 {
		t.Errorf("cell_size %g, cells %d", cfg.Voxelize.CellSize, cfg.Mesh.Cells)
	}
	if cfg.Output.Format != "binvox" || cfg.Output.Compression != "zstd" {
		t.Errorf("output %+v", cfg.Output)
	}
}
