package bake

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sketchsolver/pkg/sketch"
)

func newSketch(t *testing.T) *sketch.Solver {
	t.Helper()
	sk := sketch.New(sketch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, sk.Initialize())
	t.Cleanup(sk.Destroy)
	return sk
}

func point(t *testing.T, sk *sketch.Solver, x, y float64) sketch.ID {
	t.Helper()
	id, err := sk.AddPoint(x, y)
	require.NoError(t, err)
	return id
}

func line(t *testing.T, sk *sketch.Solver, a, b sketch.ID) sketch.ID {
	t.Helper()
	id, err := sk.AddLine(a, b)
	require.NoError(t, err)
	return id
}

func circle(t *testing.T, sk *sketch.Solver, x, y, r float64) sketch.ID {
	t.Helper()
	id, err := sk.AddCircle(point(t, sk, x, y), r)
	require.NoError(t, err)
	return id
}

// rect adds a closed rectangle and returns its line ids.
func rect(t *testing.T, sk *sketch.Solver, x0, y0, x1, y1 float64) []sketch.ID {
	t.Helper()
	a := point(t, sk, x0, y0)
	b := point(t, sk, x1, y0)
	c := point(t, sk, x1, y1)
	d := point(t, sk, x0, y1)
	return []sketch.ID{line(t, sk, a, b), line(t, sk, b, c), line(t, sk, c, d), line(t, sk, d, a)}
}

func TestBake(t *testing.T) {
	sk := newSketch(t)
	a := point(t, sk, 0, 0)
	b := point(t, sk, 3, 4)
	l := line(t, sk, a, b)
	c := circle(t, sk, 1, 1, 2)
	s := point(t, sk, 2, 0)
	e := point(t, sk, 0, 2)
	arc, err := sk.AddArc(a, s, e, true)
	require.NoError(t, err)

	snap, err := Bake(sk)
	require.NoError(t, err)

	assert.Len(t, snap.Points, 5)
	assert.Equal(t, Point{ID: b.String(), X: 3, Y: 4}, snap.Points[1])
	assert.Equal(t, []Line{{ID: l.String(), X2: 3, Y2: 4}}, snap.Lines)
	assert.Equal(t, []Circle{{ID: c.String(), CX: 1, CY: 1, Radius: 2}}, snap.Circles)

	require.Len(t, snap.Arcs, 1)
	got := snap.Arcs[0]
	assert.Equal(t, arc.String(), got.ID)
	assert.InDelta(t, 2, got.Radius, 1e-12)
	assert.InDelta(t, 0, got.StartAngle, 1e-12)
	assert.InDelta(t, 90, got.EndAngle, 1e-12)
	assert.True(t, got.CCW)
}

func TestBakeTracksSolve(t *testing.T) {
	sk := newSketch(t)
	a, err := sk.AddFixedPoint(0, 0)
	require.NoError(t, err)
	b := point(t, sk, 10, 3)
	l := line(t, sk, a, b)
	_, err = sk.AddConstraint(sketch.Horizontal, []sketch.ID{l})
	require.NoError(t, err)
	require.True(t, sk.Solve().Success)

	snap, err := Bake(sk)
	require.NoError(t, err)
	assert.InDelta(t, 0, snap.Lines[0].Y2, 1e-6)
}

func TestBakeNotInitialized(t *testing.T) {
	_, err := Bake(sketch.New())
	assert.ErrorIs(t, err, sketch.ErrNotInitialized)
}

func TestDegrees(t *testing.T) {
	assert.InDelta(t, 0, degrees(0, 1), 1e-12)
	assert.InDelta(t, 180, degrees(0, -1), 1e-12)
	assert.InDelta(t, 270, degrees(-1, 0), 1e-12)
}
