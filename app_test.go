package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sketchsolver/pkg/kernel/sdfx"
	"github.com/chazu/sketchsolver/pkg/sketch"
)

// newTestApp returns an App with a coarse kernel so extrusions stay fast.
func newTestApp(t *testing.T) *App {
	t.Helper()
	app := NewApp()
	app.kernel = sdfx.New(sdfx.WithMeshCells(40))
	t.Cleanup(func() { app.shutdown(nil) })
	return app
}

// TestE2EPlateExample exercises the full pipeline: script → engine →
// solved sketch → baked snapshot → extruded mesh. This is the same path the
// Wails bindings take, without the Wails runtime.
func TestE2EPlateExample(t *testing.T) {
	app := newTestApp(t)

	source, err := os.ReadFile("examples/plate.sketch")
	require.NoError(t, err)

	result := app.Evaluate(string(source))
	require.Empty(t, result.Errors)
	require.True(t, result.Solved, result.Error)

	snap := result.Sketch
	require.NotNil(t, snap)
	require.Len(t, snap.Points, 5)
	require.Len(t, snap.Lines, 4)
	require.Len(t, snap.Circles, 1)

	c, o := snap.Points[2], snap.Points[4]
	assert.InDelta(t, 60, c.X, 1e-6)
	assert.InDelta(t, 40, c.Y, 1e-6)
	assert.InDelta(t, 30, o.X, 1e-6)
	assert.InDelta(t, 20, o.Y, 1e-6)
	assert.InDelta(t, 8, snap.Circles[0].Radius, 1e-6)

	ext := app.Extrude(6)
	require.Empty(t, ext.Errors)
	require.Len(t, ext.Meshes, 1, "the bore is a hole, not a second region")
	m := ext.Meshes[0]
	assert.Equal(t, snap.Lines[0].ID, m.Name)
	assert.Equal(t, colorPalette[0], m.Color)
	assert.NotEmpty(t, m.Vertices)
	assert.Len(t, m.Normals, len(m.Vertices))
	assert.NotEmpty(t, m.Indices)
}

func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")
	assert.Empty(t, result.Errors)
	assert.True(t, result.Solved)
	require.NotNil(t, result.Sketch)
	assert.Empty(t, result.Sketch.Points)
}

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("(point 1 2")
	require.NotEmpty(t, result.Errors)
	assert.NotEmpty(t, result.Errors[0].Message)
	assert.Nil(t, result.Sketch)
}

func TestE2EFailedEvaluationKeepsSketch(t *testing.T) {
	app := newTestApp(t)
	_, err := app.AddPoint(1, 2, false)
	require.NoError(t, err)

	result := app.Evaluate("(point 1)")
	require.NotEmpty(t, result.Errors)
	assert.Len(t, app.Snapshot().Points, 1)
}

func TestE2EEvaluateReplacesSketch(t *testing.T) {
	app := newTestApp(t)
	_, err := app.AddPoint(1, 2, false)
	require.NoError(t, err)

	result := app.Evaluate("(point 5 5) (point 6 6)")
	require.Empty(t, result.Errors)
	snap := app.Snapshot()
	require.Len(t, snap.Points, 2)
	assert.Equal(t, 5.0, snap.Points[0].X)

	// The new sketch is live.
	_, err = app.AddPoint(7, 7, true)
	require.NoError(t, err)
	assert.Len(t, app.Snapshot().Points, 3)
	assert.Equal(t, sketch.Fixed, app.sk.Points()[2].Mode)
}
