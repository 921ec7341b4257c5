package sketch

import "fmt"

// Kind enumerates the entity variants.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindCircle
	KindArc
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	case KindArc:
		return "arc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode is the permanent, user-declared state of a point.
type Mode int

const (
	Free  Mode = iota // coordinates are unknowns
	Fixed             // coordinates are boundary values
)

func (m Mode) String() string {
	switch m {
	case Free:
		return "free"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the effective state of a point: its Mode, unless the driving
// overlay currently pins it.
type State int

const (
	StateFree State = iota
	StateFixed
	StateDriving
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateFixed:
		return "fixed"
	case StateDriving:
		return "driving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Entity is the closed union of sketch entities: Point, Line, Circle, Arc.
type Entity interface {
	EntityID() ID
	Kind() Kind
	// Refs lists the point ids this entity is built from.
	Refs() []ID
	entity() // marker method restricting implementations to this package
}

// Point is the only entity with its own coordinates.
type Point struct {
	ID   ID      `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode Mode    `json:"mode"`
}

func (p Point) EntityID() ID { return p.ID }
func (Point) Kind() Kind { return KindPoint }
func (Point) Refs() []ID { return nil }
func (Point) entity() {}

// Fixed reports whether the point is permanently fixed.
func (p Point) Fixed() bool { return p.Mode == Fixed }

// Line is a segment between two points.
type Line struct {
	ID ID `json:"id"`
	P1 ID `json:"p1"`
	P2 ID `json:"p2"`
}

func (l Line) EntityID() ID { return l.ID }
func (Line) Kind() Kind { return KindLine }
func (l Line) Refs() []ID { return []ID{l.P1, l.P2} }
func (Line) entity() {}

// Circle is a center point plus a radius. The radius is an unknown of the
// solve unless a constraint pins it.
type Circle struct {
	ID     ID      `json:"id"`
	Center ID      `json:"center"`
	Radius float64 `json:"radius"`
}

func (c Circle) EntityID() ID { return c.ID }
func (Circle) Kind() Kind { return KindCircle }
func (c Circle) Refs() []ID { return []ID{c.Center} }
func (Circle) entity() {}

// Arc runs from Start to End around Center. Its radius is the distance from
// Center to Start; the solver keeps End on the same circle.
type Arc struct {
	ID     ID   `json:"id"`
	Center ID   `json:"center"`
	Start  ID   `json:"start"`
	End    ID   `json:"end"`
	CCW    bool `json:"ccw"`
}

func (a Arc) EntityID() ID { return a.ID }
func (Arc) Kind() Kind { return KindArc }
func (a Arc) Refs() []ID { return []ID{a.Center, a.Start, a.End} }
func (Arc) entity() {}

// isCurve reports whether k has a center and a radius.
func isCurve(k Kind) bool { return k == KindCircle || k == KindArc }
