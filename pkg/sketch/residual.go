package sketch

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/sketchsolver/pkg/newton"
)

// degenerate is the length below which a direction is treated as zero and
// left unnormalized.
const degenerate = 1e-12

// equation is one scalar residual. c holds every point coordinate and
// circle radius of the system, indexed by slot.
type equation struct {
	constraint ConstraintID // zero for implicit arc equations
	f          func(c []float64) float64
}

// system is the assembled residual system for one revision of the graph.
// Slots address coords: two per point, one per circle radius.
type system struct {
	rev        uint64
	coords     []float64
	pointSlot  map[ID]int
	radiusSlot map[ID]int
	driving    map[ID]int
	unknowns   []int
	eqs        []equation
	work       []float64
}

// assemble builds the system for the live graph. Unknowns are the
// coordinates of points that are neither fixed nor driving, followed by
// circle radii.
func assemble(st *store, ov *overlay, rev uint64) *system {
	sys := &system{
		rev:        rev,
		pointSlot:  make(map[ID]int),
		radiusSlot: make(map[ID]int),
		driving:    make(map[ID]int),
	}
	ids := st.sortedIDs()

	for _, id := range ids {
		p, ok := st.entities[id].(Point)
		if !ok {
			continue
		}
		slot := len(sys.coords)
		sys.pointSlot[id] = slot
		sys.coords = append(sys.coords, p.X, p.Y)
		if _, pinned := ov.target(id); pinned {
			sys.driving[id] = slot
			continue
		}
		if p.Mode == Free {
			sys.unknowns = append(sys.unknowns, slot, slot+1)
		}
	}
	for _, id := range ids {
		c, ok := st.entities[id].(Circle)
		if !ok {
			continue
		}
		slot := len(sys.coords)
		sys.radiusSlot[id] = slot
		sys.coords = append(sys.coords, c.Radius)
		sys.unknowns = append(sys.unknowns, slot)
	}
	sys.work = make([]float64, len(sys.coords))

	b := builder{st: st, sys: sys}
	for _, id := range ids {
		if a, ok := st.entities[id].(Arc); ok {
			b.arc(a)
		}
	}
	for _, cid := range st.sortedConstraintIDs() {
		c := st.constraints[cid]
		if !c.Driving {
			continue
		}
		b.constraint(c)
	}
	return sys
}

// load refreshes boundary values and the warm start from the store and
// the overlay, without rebuilding equations.
func (sys *system) load(st *store, ov *overlay) {
	for id, slot := range sys.pointSlot {
		p := st.entities[id].(Point)
		sys.coords[slot], sys.coords[slot+1] = p.X, p.Y
	}
	for id, slot := range sys.driving {
		t, _ := ov.target(id)
		sys.coords[slot], sys.coords[slot+1] = t.X, t.Y
	}
	for id, slot := range sys.radiusSlot {
		sys.coords[slot] = st.entities[id].(Circle).Radius
	}
}

func (sys *system) initial() []float64 {
	x := make([]float64, len(sys.unknowns))
	for i, slot := range sys.unknowns {
		x[i] = sys.coords[slot]
	}
	return x
}

func (sys *system) apply(dst, x []float64) {
	copy(dst, sys.coords)
	for i, slot := range sys.unknowns {
		dst[slot] = x[i]
	}
}

func (sys *system) residual(dst, x []float64) {
	sys.apply(sys.work, x)
	for i, e := range sys.eqs {
		dst[i] = e.f(sys.work)
	}
}

func (sys *system) problem() newton.Problem {
	return newton.Problem{
		Dim:       len(sys.unknowns),
		Equations: len(sys.eqs),
		Residual:  sys.residual,
	}
}

// writeBack stores the solution x into the entities. Driving points land
// exactly on their targets; fixed points keep their coordinates.
func (sys *system) writeBack(st *store, x []float64) {
	sol := make([]float64, len(sys.coords))
	sys.apply(sol, x)
	for id, slot := range sys.pointSlot {
		p := st.entities[id].(Point)
		p.X, p.Y = sol[slot], sol[slot+1]
		st.put(p)
	}
	for id, slot := range sys.radiusSlot {
		c := st.entities[id].(Circle)
		c.Radius = sol[slot]
		st.put(c)
	}
}

type builder struct {
	st  *store
	sys *system
}

func (b *builder) emit(cid ConstraintID, f func(c []float64) float64) {
	b.sys.eqs = append(b.sys.eqs, equation{constraint: cid, f: f})
}

func (b *builder) kind(id ID) Kind { return b.st.entities[id].Kind() }

func (b *builder) slot(id ID) int { return b.sys.pointSlot[id] }

func (b *builder) ends(line ID) (int, int) {
	l := b.st.entities[line].(Line)
	return b.slot(l.P1), b.slot(l.P2)
}

func (b *builder) center(curve ID) int {
	switch e := b.st.entities[curve].(type) {
	case Circle:
		return b.slot(e.Center)
	case Arc:
		return b.slot(e.Center)
	}
	panic(fmt.Sprintf("sketch: %s is not a curve", curve))
}

func (b *builder) radius(curve ID) func(c []float64) float64 {
	switch e := b.st.entities[curve].(type) {
	case Circle:
		slot := b.sys.radiusSlot[e.ID]
		return func(c []float64) float64 { return c[slot] }
	case Arc:
		cs, ss := b.slot(e.Center), b.slot(e.Start)
		return func(c []float64) float64 { return vec(c, ss).Sub(vec(c, cs)).Length() }
	}
	panic(fmt.Sprintf("sketch: %s is not a curve", curve))
}

// arc keeps the end point on the circle through the start point.
func (b *builder) arc(a Arc) {
	cs, ss, es := b.slot(a.Center), b.slot(a.Start), b.slot(a.End)
	b.emit(0, func(c []float64) float64 {
		ctr := vec(c, cs)
		return vec(c, es).Sub(ctr).Length() - vec(c, ss).Sub(ctr).Length()
	})
}

// constraint emits the residuals of one driving constraint.
func (b *builder) constraint(con *Constraint) {
	id := con.ID
	ids := con.Entities

	switch con.Type {
	case Horizontal, Vertical:
		var p, q int
		if len(ids) == 1 {
			p, q = b.ends(ids[0])
		} else {
			p, q = b.slot(ids[0]), b.slot(ids[1])
		}
		axis := 1
		if con.Type == Vertical {
			axis = 0
		}
		b.emit(id, func(c []float64) float64 { return c[q+axis] - c[p+axis] })

	case Coincident, Concentric:
		b.coincide(id, b.slot(ids[0]), b.slot(ids[1]))

	case Parallel, Perpendicular:
		a1, a2 := b.ends(ids[0])
		b1, b2 := b.ends(ids[1])
		perp := con.Type == Perpendicular
		b.emit(id, func(c []float64) float64 {
			u := vec(c, a2).Sub(vec(c, a1))
			v := vec(c, b2).Sub(vec(c, b1))
			d := nonzero(u.Length() * v.Length())
			if perp {
				return u.Dot(v) / d
			}
			return cross(u, v) / d
		})

	case Equal:
		if b.kind(ids[0]) == KindLine {
			a1, a2 := b.ends(ids[0])
			b1, b2 := b.ends(ids[1])
			b.emit(id, func(c []float64) float64 {
				return vec(c, a2).Sub(vec(c, a1)).Length() - vec(c, b2).Sub(vec(c, b1)).Length()
			})
			return
		}
		r1, r2 := b.radius(ids[0]), b.radius(ids[1])
		b.emit(id, func(c []float64) float64 { return r1(c) - r2(c) })

	case Angle:
		a1, a2 := b.ends(ids[0])
		b1, b2 := b.ends(ids[1])
		theta := con.Value * math.Pi / 180
		sin, cos := math.Sincos(theta)
		// sin(phi - theta), phi being the signed angle from the first line
		// to the second.
		b.emit(id, func(c []float64) float64 {
			u := vec(c, a2).Sub(vec(c, a1))
			v := vec(c, b2).Sub(vec(c, b1))
			return (cross(u, v)*cos - u.Dot(v)*sin) / nonzero(u.Length()*v.Length())
		})

	case Tangent:
		if b.kind(ids[0]) == KindLine {
			a1, a2 := b.ends(ids[0])
			cs, r := b.center(ids[1]), b.radius(ids[1])
			b.emit(id, func(c []float64) float64 {
				a := vec(c, a1)
				u := vec(c, a2).Sub(a)
				return math.Abs(cross(u, vec(c, cs).Sub(a)))/nonzero(u.Length()) - r(c)
			})
			return
		}
		c1, c2 := b.center(ids[0]), b.center(ids[1])
		r1, r2 := b.radius(ids[0]), b.radius(ids[1])
		internal := con.Internal
		b.emit(id, func(c []float64) float64 {
			d := vec(c, c2).Sub(vec(c, c1)).Length()
			if internal {
				return d - math.Abs(r1(c)-r2(c))
			}
			return d - (r1(c) + r2(c))
		})

	case Distance:
		var p, q int
		if len(ids) == 1 {
			p, q = b.ends(ids[0])
		} else {
			p, q = b.slot(ids[0]), b.slot(ids[1])
		}
		want := con.Value
		b.emit(id, func(c []float64) float64 { return vec(c, q).Sub(vec(c, p)).Length() - want })

	case Radius:
		r := b.radius(ids[0])
		want := con.Value
		b.emit(id, func(c []float64) float64 { return r(c) - want })

	case Midpoint:
		p := b.slot(ids[0])
		a1, a2 := b.ends(ids[1])
		b.emit(id, func(c []float64) float64 { return c[p] - (c[a1]+c[a2])/2 })
		b.emit(id, func(c []float64) float64 { return c[p+1] - (c[a1+1]+c[a2+1])/2 })

	case PointOnLine:
		b.onLine(id, b.slot(ids[0]), ids[1])

	case PointOnCircle:
		p := b.slot(ids[0])
		cs, r := b.center(ids[1]), b.radius(ids[1])
		b.emit(id, func(c []float64) float64 { return vec(c, p).Sub(vec(c, cs)).Length() - r(c) })

	case Symmetric:
		p, q := b.slot(ids[0]), b.slot(ids[1])
		if b.kind(ids[2]) == KindPoint {
			o := b.slot(ids[2])
			b.emit(id, func(c []float64) float64 { return (c[p]+c[q])/2 - c[o] })
			b.emit(id, func(c []float64) float64 { return (c[p+1]+c[q+1])/2 - c[o+1] })
			return
		}
		a1, a2 := b.ends(ids[2])
		b.emit(id, func(c []float64) float64 {
			a := vec(c, a1)
			u := vec(c, a2).Sub(a)
			mid := vec(c, p).Add(vec(c, q)).MulScalar(0.5)
			return cross(u, mid.Sub(a)) / nonzero(u.Length())
		})
		b.emit(id, func(c []float64) float64 {
			u := vec(c, a2).Sub(vec(c, a1))
			return vec(c, q).Sub(vec(c, p)).Dot(u) / nonzero(u.Length())
		})

	case Collinear:
		if b.kind(ids[0]) == KindLine {
			l := b.st.entities[ids[1]].(Line)
			b.onLine(id, b.slot(l.P1), ids[0])
			b.onLine(id, b.slot(l.P2), ids[0])
			return
		}
		p0, p1 := b.slot(ids[0]), b.slot(ids[1])
		for _, pid := range ids[2:] {
			pk := b.slot(pid)
			b.emit(id, func(c []float64) float64 {
				a := vec(c, p0)
				u := vec(c, p1).Sub(a)
				return cross(u, vec(c, pk).Sub(a)) / nonzero(u.Length())
			})
		}

	default:
		panic(fmt.Sprintf("sketch: no residuals for constraint type %s", con.Type))
	}
}

func (b *builder) coincide(id ConstraintID, p, q int) {
	b.emit(id, func(c []float64) float64 { return c[q] - c[p] })
	b.emit(id, func(c []float64) float64 { return c[q+1] - c[p+1] })
}

// onLine emits the signed distance of the point at slot p from line.
func (b *builder) onLine(id ConstraintID, p int, line ID) {
	a1, a2 := b.ends(line)
	b.emit(id, func(c []float64) float64 {
		a := vec(c, a1)
		u := vec(c, a2).Sub(a)
		return cross(u, vec(c, p).Sub(a)) / nonzero(u.Length())
	})
}

func vec(c []float64, slot int) v2.Vec { return v2.Vec{X: c[slot], Y: c[slot+1]} }

func cross(a, b v2.Vec) float64 { return a.X*b.Y - a.Y*b.X }

func nonzero(l float64) float64 {
	if l < degenerate {
		return 1
	}
	return l
}
