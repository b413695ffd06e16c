package main

import (
	"github.com/chazu/voxelize/pkg/engine"
	"github.com/chazu/voxelize/pkg/kernel"
	"github.com/chazu/voxelize/pkg/kernel/sdfx"
	"github.com/chazu/voxelize/pkg/tessellate"
	"github.com/chazu/voxelize/pkg/vlog"
	"github.com/chazu/voxelize/pkg/voxelize"
)

// App runs a scene script through the whole pipeline: evaluate, tessellate
// each model and voxelize its mesh.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	opts   voxelize.Options
}

// ModelResult is the outcome for one model of the scene.
type ModelResult struct {
	Name   string
	Mesh   *kernel.Mesh
	Voxels *voxelize.Result
}

// EvalErrorData is an evaluation or pipeline error with its source position
// when known.
type EvalErrorData struct {
	Line    int
	Col     int
	Message string
}

// RunResult is the full result of one run.
type RunResult struct {
	Models []ModelResult
	Errors []EvalErrorData
}

// NewApp creates an App with the sdfx kernel at the given marching cubes
// resolution.
func NewApp(meshCells int, opts voxelize.Options) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.NewWithCells(meshCells),
		opts:   opts,
	}
}

// Run evaluates source and voxelizes every model it defines.
func (a *App) Run(source string) RunResult {
	var result RunResult

	// Step 1: Evaluate the Lisp source into a scene.
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		vlog.Errorf("evaluate: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Tessellate each model into a triangle mesh.
	meshes, err := tessellate.Tessellate(s, a.kernel)
	if err != nil {
		vlog.Errorf("tessellate: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 3: Voxelize each mesh.
	for _, m := range meshes {
		r, err := voxelize.Voxelize(m, a.opts)
		if err != nil {
			vlog.Errorf("voxelize %s: %v", m.PartName, err)
			result.Errors = append(result.Errors, EvalErrorData{Message: m.PartName + ": " + err.Error()})
			continue
		}
		result.Models = append(result.Models, ModelResult{Name: m.PartName, Mesh: m, Voxels: r})
	}
	return result
}
