package sketch

import "fmt"

// kindSet is a bitmask of entity kinds accepted in one selection slot.
type kindSet uint8

const (
	setPoint  kindSet = 1 << KindPoint
	setLine   kindSet = 1 << KindLine
	setCircle kindSet = 1 << KindCircle
	setArc    kindSet = 1 << KindArc
	setCurve          = setCircle | setArc
)

func (s kindSet) has(k Kind) bool { return s&(1<<k) != 0 }

// pattern is one accepted selection shape. When variadic is set the last
// slot may repeat.
type pattern struct {
	slots    []kindSet
	variadic bool
}

func (p pattern) accepts(n int) bool {
	if p.variadic {
		return n >= len(p.slots)
	}
	return n == len(p.slots)
}

func (p pattern) slot(i int) kindSet {
	if i >= len(p.slots) {
		return p.slots[len(p.slots)-1]
	}
	return p.slots[i]
}

// rule is the registry entry of a constraint type.
type rule struct {
	min, max int // max 0 means unbounded
	patterns []pattern
	// valued types carry a dimension; the others ignore Value.
	valued bool
}

func fixed(slots ...kindSet) pattern { return pattern{slots: slots} }

var registry = [numConstraintTypes]rule{
	Horizontal:    {min: 1, max: 2, patterns: []pattern{fixed(setLine), fixed(setPoint, setPoint)}},
	Vertical:      {min: 1, max: 2, patterns: []pattern{fixed(setLine), fixed(setPoint, setPoint)}},
	Coincident:    {min: 2, max: 2, patterns: []pattern{fixed(setPoint, setPoint)}},
	Parallel:      {min: 2, max: 2, patterns: []pattern{fixed(setLine, setLine)}},
	Perpendicular: {min: 2, max: 2, patterns: []pattern{fixed(setLine, setLine)}},
	Equal:         {min: 2, max: 2, patterns: []pattern{fixed(setLine, setLine), fixed(setCurve, setCurve)}},
	Angle:         {min: 2, max: 2, patterns: []pattern{fixed(setLine, setLine)}, valued: true},
	Tangent:       {min: 2, max: 2, patterns: []pattern{fixed(setLine, setCurve), fixed(setCurve, setCurve)}},
	Distance:      {min: 1, max: 2, patterns: []pattern{fixed(setPoint, setPoint), fixed(setLine)}, valued: true},
	Radius:        {min: 1, max: 1, patterns: []pattern{fixed(setCurve)}, valued: true},
	Midpoint:      {min: 2, max: 2, patterns: []pattern{fixed(setPoint, setLine)}},
	PointOnLine:   {min: 2, max: 2, patterns: []pattern{fixed(setPoint, setLine)}},
	PointOnCircle: {min: 2, max: 2, patterns: []pattern{fixed(setPoint, setCurve)}},
	Symmetric:     {min: 3, max: 3, patterns: []pattern{fixed(setPoint, setPoint, setLine), fixed(setPoint, setPoint, setPoint)}},
	Concentric:    {min: 2, max: 2, patterns: []pattern{fixed(setCurve, setCurve)}},
	Collinear: {min: 2, patterns: []pattern{
		fixed(setLine, setLine),
		{slots: []kindSet{setPoint, setPoint, setPoint}, variadic: true},
	}},
}

// storedPatterns describes the stored form of types whose ids are rewritten
// before storage.
var storedPatterns = map[ConstraintType][]pattern{
	Concentric: {fixed(setPoint, setPoint)},
}

// Validate checks a selection of entity kinds, in the caller's order,
// against the accepted patterns for t. It returns nil or a *SelectionError.
func Validate(t ConstraintType, kinds []Kind) error {
	_, err := canonicalOrder(t, kinds)
	return err
}

// IsValued reports whether constraints of type t carry a dimension.
func IsValued(t ConstraintType) bool {
	return t >= 0 && t < numConstraintTypes && registry[t].valued
}

// canonicalOrder returns the permutation that puts kinds into the first
// matching pattern of t: perm[i] is the index in kinds of slot i. Entities
// of the same kind keep their relative order.
func canonicalOrder(t ConstraintType, kinds []Kind) ([]int, error) {
	if t < 0 || t >= numConstraintTypes {
		return nil, &SelectionError{Type: t, Kinds: kinds, Reason: "unknown constraint type"}
	}
	r := registry[t]
	if len(kinds) < r.min || (r.max > 0 && len(kinds) > r.max) {
		return nil, &SelectionError{Type: t, Kinds: kinds, Reason: countReason(r)}
	}
	for _, p := range r.patterns {
		if perm, ok := match(p, kinds); ok {
			return perm, nil
		}
	}
	return nil, &SelectionError{Type: t, Kinds: kinds, Reason: "selection does not match " + describePatterns(r.patterns)}
}

func match(p pattern, kinds []Kind) ([]int, bool) {
	if !p.accepts(len(kinds)) {
		return nil, false
	}
	used := make([]bool, len(kinds))
	perm := make([]int, len(kinds))
	for i := range kinds {
		want := p.slot(i)
		found := -1
		for j, k := range kinds {
			if !used[j] && want.has(k) {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		used[found] = true
		perm[i] = found
	}
	return perm, true
}

func countReason(r rule) string {
	switch {
	case r.max == 0:
		return fmt.Sprintf("needs at least %d entities", r.min)
	case r.min == r.max:
		return fmt.Sprintf("needs exactly %d entities", r.min)
	default:
		return fmt.Sprintf("needs %d to %d entities", r.min, r.max)
	}
}

func describePatterns(ps []pattern) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += " or "
		}
		out += "["
		for j, s := range p.slots {
			if j > 0 {
				out += ", "
			}
			out += s.String()
		}
		if p.variadic {
			out += "..."
		}
		out += "]"
	}
	return out
}

func (s kindSet) String() string {
	switch s {
	case setPoint:
		return "point"
	case setLine:
		return "line"
	case setCircle:
		return "circle"
	case setArc:
		return "arc"
	case setCurve:
		return "circle/arc"
	default:
		return fmt.Sprintf("kindSet(%d)", uint8(s))
	}
}

// matchesStored reports whether stored kinds fit t's stored form.
func matchesStored(t ConstraintType, kinds []Kind) bool {
	if t < 0 || t >= numConstraintTypes {
		return false
	}
	ps, ok := storedPatterns[t]
	if !ok {
		ps = registry[t].patterns
	}
	for _, p := range ps {
		if perm, ok := match(p, kinds); ok {
			for i, j := range perm {
				if i != j {
					return false
				}
			}
			return true
		}
	}
	return false
}
