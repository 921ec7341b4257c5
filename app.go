package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/sketchsolver/pkg/bake"
	"github.com/chazu/sketchsolver/pkg/engine"
	"github.com/chazu/sketchsolver/pkg/kernel"
	"github.com/chazu/sketchsolver/pkg/kernel/sdfx"
	"github.com/chazu/sketchsolver/pkg/sketch"
)

// colorPalette is a default palette used to assign distinct colors to regions.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. The frontend draws the sketch and calls these
// bindings as the user adds geometry and drags points.
type App struct {
	ctx    context.Context
	log    *slog.Logger
	engine *engine.Engine
	kernel kernel.Kernel

	mu sync.Mutex
	sk *sketch.Solver
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// SketchView is the state the frontend redraws from after every edit.
type SketchView struct {
	Sketch     *bake.Snapshot `json:"sketch"`
	Solved     bool           `json:"solved"`
	Error      string         `json:"error,omitempty"`
	Iterations int            `json:"iterations"`
	Driving    []sketch.ID    `json:"driving"`
}

// ConstraintResult reports an AddConstraint attempt. A constraint that makes
// the sketch unsolvable is removed again, so ID is zero and Sketch shows the
// geometry from before the attempt.
type ConstraintResult struct {
	ID sketch.ConstraintID `json:"id"`
	SketchView
}

// EvalResult is the result of evaluating a script.
type EvalResult struct {
	SketchView
	Errors []EvalErrorData `json:"errors"`
}

// ExtrudeResult holds one mesh per closed region.
type ExtrudeResult struct {
	Meshes []MeshData      `json:"meshes"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates a new App with an engine, the sdfx kernel and an empty
// sketch.
func NewApp() *App {
	log := slog.Default().With("component", "app")
	sk := sketch.New()
	if err := sk.Initialize(); err != nil {
		log.Error("sketch initialize failed", "error", err)
	}
	return &App{
		log:    log,
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
		sk:     sk,
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sk.Destroy()
}

// view must be called with a.mu held.
func (a *App) view(res sketch.SolveResult) SketchView {
	snap, err := bake.Bake(a.sk)
	if err != nil {
		a.log.Error("bake failed", "error", err)
	}
	return SketchView{
		Sketch:     snap,
		Solved:     res.Success,
		Error:      res.Error,
		Iterations: res.Iterations,
		Driving:    a.sk.DrivingPoints(),
	}
}

// NewSketch discards the current sketch.
func (a *App) NewSketch() SketchView {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sk.Clear(); err != nil {
		return SketchView{Error: err.Error()}
	}
	return a.view(a.sk.Solve())
}

// AddPoint adds a point at (x, y).
func (a *App) AddPoint(x, y float64, fixed bool) (sketch.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fixed {
		return a.sk.AddFixedPoint(x, y)
	}
	return a.sk.AddPoint(x, y)
}

// AddLine adds a line between two existing points.
func (a *App) AddLine(p1, p2 sketch.ID) (sketch.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.AddLine(p1, p2)
}

// AddCircle adds a circle around an existing center point.
func (a *App) AddCircle(center sketch.ID, radius float64) (sketch.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.AddCircle(center, radius)
}

// AddArc adds an arc from start to end around center.
func (a *App) AddArc(center, start, end sketch.ID, ccw bool) (sketch.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.AddArc(center, start, end, ccw)
}

// SetFixed toggles a point between free and fixed.
func (a *App) SetFixed(id sketch.ID, fixed bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.SetFixed(id, fixed)
}

// Remove deletes an entity and everything that depends on it.
func (a *App) Remove(id sketch.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.RemoveEntity(id)
}

// AddConstraint adds a constraint and solves. If the sketch no longer
// solves, the constraint is removed and the prior geometry is reported.
// A nil value takes the type's default.
func (a *App) AddConstraint(kind string, ids []sketch.ID, value *float64) (ConstraintResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, err := sketch.ParseConstraintType(kind)
	if err != nil {
		return ConstraintResult{}, err
	}
	var opts []sketch.ConstraintOption
	if value != nil {
		opts = append(opts, sketch.WithValue(*value))
	}
	cid, err := a.sk.AddConstraint(t, ids, opts...)
	if err != nil {
		return ConstraintResult{}, err
	}

	res := a.sk.Solve()
	if !res.Success {
		if err := a.sk.RemoveConstraint(cid); err != nil {
			return ConstraintResult{}, fmt.Errorf("roll back %s: %w", cid, err)
		}
		a.log.Info("constraint rejected", "constraint", cid, "type", t, "error", res.Error)
		return ConstraintResult{SketchView: a.view(res)}, nil
	}
	return ConstraintResult{ID: cid, SketchView: a.view(res)}, nil
}

// SetConstraintValue edits a dimension and solves.
func (a *App) SetConstraintValue(id sketch.ConstraintID, v float64) (SketchView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sk.SetConstraintValue(id, v); err != nil {
		return SketchView{}, err
	}
	return a.view(a.sk.Solve()), nil
}

// RemoveConstraint deletes a constraint.
func (a *App) RemoveConstraint(id sketch.ConstraintID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.RemoveConstraint(id)
}

// Drag pins a point to the cursor and solves. Call it on every pointer
// move; the residual system is reused between calls.
func (a *App) Drag(id sketch.ID, x, y float64) (SketchView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sk.SetDrivingPoint(id, x, y); err != nil {
		return SketchView{}, err
	}
	return a.view(a.sk.Solve()), nil
}

// EndDrag releases the dragged point.
func (a *App) EndDrag(id sketch.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sk.ClearDrivingPoint(id)
}

// Solve solves the current sketch.
func (a *App) Solve() SketchView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view(a.sk.Solve())
}

// Snapshot returns the baked sketch without solving.
func (a *App) Snapshot() *bake.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, err := bake.Bake(a.sk)
	if err != nil {
		a.log.Error("bake failed", "error", err)
	}
	return snap
}

// Evaluate runs a sketch script. On success the script's sketch replaces
// the current one.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	ev, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate fatal error", "error", err)
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

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sk.Destroy()
	a.sk = ev.Sketch
	result.SketchView = a.view(ev.Final)
	return result
}

// Extrude extrudes every closed region of the sketch to height.
func (a *App) Extrude(height float64) ExtrudeResult {
	result := ExtrudeResult{
		Meshes: []MeshData{},
		Errors: []EvalErrorData{},
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	meshes, err := bake.ExtrudeAll(a.sk, a.kernel, height)
	if err != nil {
		a.log.Error("extrude failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "extrusion failed: " + err.Error(),
		})
		return result
	}

	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}
