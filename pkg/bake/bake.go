// Package bake finalizes a sketch. A Snapshot holds plain coordinates with
// no constraint graph and is what gets persisted; Extrude turns a closed
// region of the sketch into a mesh through a geometry kernel.
package bake

import (
	"math"

	"github.com/chazu/sketchsolver/pkg/sketch"
)

// Snapshot is the baked form of a sketch.
type Snapshot struct {
	Points  []Point  `json:"points" yaml:"points"`
	Lines   []Line   `json:"lines,omitempty" yaml:"lines,omitempty"`
	Circles []Circle `json:"circles,omitempty" yaml:"circles,omitempty"`
	Arcs    []Arc    `json:"arcs,omitempty" yaml:"arcs,omitempty"`
}

type Point struct {
	ID string  `json:"id" yaml:"id"`
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
}

type Line struct {
	ID string  `json:"id" yaml:"id"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

type Circle struct {
	ID     string  `json:"id" yaml:"id"`
	CX     float64 `json:"cx" yaml:"cx"`
	CY     float64 `json:"cy" yaml:"cy"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// Arc angles are in degrees, measured counterclockwise from +X.
type Arc struct {
	ID         string  `json:"id" yaml:"id"`
	CX         float64 `json:"cx" yaml:"cx"`
	CY         float64 `json:"cy" yaml:"cy"`
	Radius     float64 `json:"radius" yaml:"radius"`
	StartAngle float64 `json:"startAngle" yaml:"start_angle"`
	EndAngle   float64 `json:"endAngle" yaml:"end_angle"`
	CCW        bool    `json:"ccw" yaml:"ccw"`
}

// Bake captures the current coordinates of every entity in sk.
func Bake(sk *sketch.Solver) (*Snapshot, error) {
	if !sk.Initialized() {
		return nil, sketch.ErrNotInitialized
	}

	snap := &Snapshot{Points: []Point{}}
	for _, e := range sk.Entities() {
		switch v := e.(type) {
		case sketch.Point:
			snap.Points = append(snap.Points, Point{ID: v.ID.String(), X: v.X, Y: v.Y})
		case sketch.Line:
			a, _ := sk.Point(v.P1)
			b, _ := sk.Point(v.P2)
			snap.Lines = append(snap.Lines, Line{
				ID: v.ID.String(),
				X1: a.X, Y1: a.Y,
				X2: b.X, Y2: b.Y,
			})
		case sketch.Circle:
			c, _ := sk.Point(v.Center)
			snap.Circles = append(snap.Circles, Circle{ID: v.ID.String(), CX: c.X, CY: c.Y, Radius: v.Radius})
		case sketch.Arc:
			c, _ := sk.Point(v.Center)
			s, _ := sk.Point(v.Start)
			t, _ := sk.Point(v.End)
			snap.Arcs = append(snap.Arcs, Arc{
				ID:         v.ID.String(),
				CX:         c.X,
				CY:         c.Y,
				Radius:     math.Hypot(s.X-c.X, s.Y-c.Y),
				StartAngle: degrees(s.Y-c.Y, s.X-c.X),
				EndAngle:   degrees(t.Y-c.Y, t.X-c.X),
				CCW:        v.CCW,
			})
		}
	}
	return snap, nil
}

// degrees returns atan2(y, x) in [0, 360).
func degrees(y, x float64) float64 {
	d := math.Atan2(y, x) * 180 / math.Pi
	if d < 0 {
		d += 360
	}
	return d
}
