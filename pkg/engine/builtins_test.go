package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sketchsolver/pkg/sketch"
)

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(circle c :radius 5)`, `(circle c "__kw_radius" 5)`},
		{"multiple keywords", `(point 0 0 :fixed true :tag 1)`, `(point 0 0 "__kw_fixed" true "__kw_tag" 1)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(fixed-point 0 0)`, `(fixed_point 0 0)`},
		{"hyphenated keyword kept", `(constrain :point-on-line p l)`, `(constrain "__kw_point-on-line" p l)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative literal preserved", `(point -3 -4)`, `(point -3 -4)`},
		{"comment converted", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, preprocessSource(tt.input))
		})
	}
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "pointOnLine", camelCase("point-on-line"))
	assert.Equal(t, "pointOnCircle", camelCase("point_on_circle"))
	assert.Equal(t, "horizontal", camelCase("horizontal"))
	assert.Equal(t, "pointOnLine", camelCase("pointOnLine"))
}

func evaluate(t *testing.T, source string) *Evaluation {
	t.Helper()
	ev, evalErrs, err := NewEngine().Evaluate(source)
	require.NoError(t, err)
	require.Empty(t, evalErrs)
	require.NotNil(t, ev)
	return ev
}

func TestHorizontalScript(t *testing.T) {
	ev := evaluate(t, `
(def a (fixed-point 0 0))
(def b (point 10 5))
(def l (line a b))
(constrain :horizontal l)
(solve)
`)
	require.Len(t, ev.Solves, 1)
	assert.True(t, ev.Solves[0].Success)
	assert.True(t, ev.Final.Success)

	pts := ev.Sketch.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, sketch.Fixed, pts[0].Mode)
	assert.InDelta(t, 0, pts[1].Y, 1e-6)
}

func TestDriveScript(t *testing.T) {
	ev := evaluate(t, `
(def a (point 0 0 :fixed true))
(def b (point 10 0))
(line a b)
(solve)
(drive b 20 5)
(solve)
(release)
`)
	require.Len(t, ev.Solves, 2)
	b := ev.Sketch.Points()[1]
	assert.InDelta(t, 20, b.X, 1e-6)
	assert.InDelta(t, 5, b.Y, 1e-6)
	assert.Empty(t, ev.Sketch.DrivingPoints())
}

func TestCircleArcAndValues(t *testing.T) {
	ev := evaluate(t, `
(def o (fixed-point 0 0))
(def c (circle o :radius 2))
(def r (constrain :radius c :value 5))
(def p (point 1 1))
(constrain :point-on-circle p c)
(solve)
(def s (point 3 0))
(def e (point 0 3))
(def a (arc o s e :ccw false))
(set-value r 6)
`)
	require.True(t, ev.Final.Success, ev.Final.Error)
	var circles, arcs int
	for _, e := range ev.Sketch.Entities() {
		switch v := e.(type) {
		case sketch.Circle:
			circles++
			assert.InDelta(t, 6, v.Radius, 1e-6)
		case sketch.Arc:
			arcs++
			assert.False(t, v.CCW)
		}
	}
	assert.Equal(t, 1, circles)
	assert.Equal(t, 1, arcs)

	p := ev.Sketch.Points()[1]
	assert.InDelta(t, 6, math.Hypot(p.X, p.Y), 1e-6)
}

func TestReferenceDimensionScript(t *testing.T) {
	ev := evaluate(t, `
(def a (fixed-point 0 0))
(def b (point 3 4))
(def d (constrain :distance a b :reference true))
(constrain :horizontal a b)
(solve)
`)
	cons := ev.Sketch.Constraints()
	require.Len(t, cons, 2)
	assert.False(t, cons[0].Driving)
	assert.InDelta(t, 3, cons[0].Value, 1e-6)
}

func TestCoordinateAccessors(t *testing.T) {
	ev := evaluate(t, `
(def a (fixed-point 0 0))
(def b (point 3 4))
(def d (constrain :distance a b :value 10))
(solve)
(def mid (point (/ (x-of b) 2) (/ (y-of b) 2)))
(move mid 0 0)
(set-fixed mid true)
(value-of d)
`)
	pts := ev.Sketch.Points()
	require.Len(t, pts, 3)
	assert.InDelta(t, 10, math.Hypot(pts[1].X, pts[1].Y), 1e-6)
	assert.Equal(t, sketch.Point{ID: pts[2].ID, Mode: sketch.Fixed}, pts[2])
}

func TestRemoveScript(t *testing.T) {
	ev := evaluate(t, `
(def a (point 0 0))
(def b (point 1 0))
(def l (line a b))
(def h (constrain :horizontal l))
(remove h)
(remove a)
`)
	assert.Len(t, ev.Sketch.Entities(), 1, "line goes with its endpoint")
	assert.Empty(t, ev.Sketch.Constraints())
}

func TestFailedSolveIsNotAScriptError(t *testing.T) {
	ev := evaluate(t, `
(def a (fixed-point 0 0))
(def b (fixed-point 10 0))
(constrain :distance a b :value 3)
(solve)
`)
	require.Len(t, ev.Solves, 1)
	assert.False(t, ev.Solves[0].Success)
	assert.False(t, ev.Final.Success)
	assert.ErrorIs(t, ev.Final.Err, sketch.ErrSolveDidNotConverge)
}

func TestClearScript(t *testing.T) {
	ev := evaluate(t, `
(point 0 0)
(point 1 1)
(clear)
(point 2 2)
`)
	assert.Len(t, ev.Sketch.Points(), 1)
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"point needs coordinates", `(point 1)`},
		{"point rejects strings", `(point "a" 1)`},
		{"line needs points", `(line 1 2)`},
		{"circle needs radius", `(def o (point 0 0)) (circle o)`},
		{"bad radius", `(def o (point 0 0)) (circle o -1)`},
		{"unknown constraint", `(def a (point 0 0)) (constrain :glue a)`},
		{"bad selection", `(def a (point 0 0)) (constrain :parallel a a)`},
		{"drive needs target", `(def a (point 0 0)) (drive a 1)`},
		{"remove needs handle", `(remove 3)`},
		{"set-value on non-constraint", `(def a (point 0 0)) (set-value a 1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, evalErrs, err := NewEngine().Evaluate(tt.source)
			require.NoError(t, err)
			assert.Nil(t, ev)
			require.NotEmpty(t, evalErrs)
			assert.NotEmpty(t, evalErrs[0].Message)
		})
	}
}
