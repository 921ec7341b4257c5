package sketch

import (
	"maps"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// overlay holds the transient driving targets. It sits beside the store so
// that a point's permanent Mode is never touched by a drag.
type overlay struct {
	targets map[ID]v2.Vec
}

func newOverlay() *overlay {
	return &overlay{targets: make(map[ID]v2.Vec)}
}

// set pins id at (x, y). It reports whether the driving set changed, as
// opposed to an already-driving point moving to a new target.
func (o *overlay) set(id ID, x, y float64) bool {
	_, had := o.targets[id]
	o.targets[id] = v2.Vec{X: x, Y: y}
	return !had
}

func (o *overlay) target(id ID) (v2.Vec, bool) {
	v, ok := o.targets[id]
	return v, ok
}

func (o *overlay) release(id ID) bool {
	if _, ok := o.targets[id]; !ok {
		return false
	}
	delete(o.targets, id)
	return true
}

func (o *overlay) releaseAll() bool {
	if len(o.targets) == 0 {
		return false
	}
	clear(o.targets)
	return true
}

func (o *overlay) ids() []ID {
	return slices.Sorted(maps.Keys(o.targets))
}
