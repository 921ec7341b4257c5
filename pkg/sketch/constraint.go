package sketch

import (
	"fmt"
	"slices"
)

// ConstraintType enumerates the constraint kinds the solver understands.
type ConstraintType int

const (
	Horizontal ConstraintType = iota
	Vertical
	Coincident
	Parallel
	Perpendicular
	Equal
	Angle
	Tangent
	Distance
	Radius
	Midpoint
	PointOnLine
	PointOnCircle
	Symmetric
	Concentric
	Collinear

	numConstraintTypes
)

var constraintNames = [numConstraintTypes]string{
	Horizontal:    "horizontal",
	Vertical:      "vertical",
	Coincident:    "coincident",
	Parallel:      "parallel",
	Perpendicular: "perpendicular",
	Equal:         "equal",
	Angle:         "angle",
	Tangent:       "tangent",
	Distance:      "distance",
	Radius:        "radius",
	Midpoint:      "midpoint",
	PointOnLine:   "pointOnLine",
	PointOnCircle: "pointOnCircle",
	Symmetric:     "symmetric",
	Concentric:    "concentric",
	Collinear:     "collinear",
}

func (t ConstraintType) String() string {
	if t >= 0 && t < numConstraintTypes {
		return constraintNames[t]
	}
	return fmt.Sprintf("ConstraintType(%d)", int(t))
}

// MarshalText encodes the type by name.
func (t ConstraintType) MarshalText() ([]byte, error) {
	if t < 0 || t >= numConstraintTypes {
		return nil, fmt.Errorf("sketch: unknown constraint type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (t *ConstraintType) UnmarshalText(b []byte) error {
	parsed, err := ParseConstraintType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseConstraintType maps a name such as "pointOnLine" to its type.
func ParseConstraintType(name string) (ConstraintType, error) {
	for i, n := range constraintNames {
		if n == name {
			return ConstraintType(i), nil
		}
	}
	return 0, fmt.Errorf("sketch: unknown constraint type %q", name)
}

// ConstraintTypes lists every type in declaration order.
func ConstraintTypes() []ConstraintType {
	types := make([]ConstraintType, numConstraintTypes)
	for i := range types {
		types[i] = ConstraintType(i)
	}
	return types
}

// Constraint relates an ordered list of entities. Entities is stored in the
// canonical order of its type. Angle values are in degrees.
type Constraint struct {
	ID       ConstraintID   `json:"id"`
	Type     ConstraintType `json:"type"`
	Entities []ID           `json:"entities"`
	Value    float64        `json:"value,omitempty"`
	HasValue bool           `json:"has_value,omitempty"`
	// Driving constraints take part in the solve. A non-driving
	// (reference) constraint only reports the measured value.
	Driving bool `json:"driving"`
	// Internal selects internal tangency between two curves.
	Internal bool `json:"internal,omitempty"`
}

// References reports whether the constraint mentions id.
func (c *Constraint) References(id ID) bool {
	return slices.Contains(c.Entities, id)
}

func (c *Constraint) clone() Constraint {
	out := *c
	out.Entities = slices.Clone(c.Entities)
	return out
}

// ConstraintOption adjusts a constraint as it is added.
type ConstraintOption func(*constraintConfig)

type constraintConfig struct {
	value     float64
	hasValue  bool
	reference bool
	internal  *bool
}

// WithValue sets the dimension instead of the default derived from the
// current geometry.
func WithValue(v float64) ConstraintOption {
	return func(c *constraintConfig) {
		c.value = v
		c.hasValue = true
	}
}

// AsReference adds the constraint as a non-driving reference dimension.
func AsReference() ConstraintOption {
	return func(c *constraintConfig) {
		c.reference = true
	}
}

// WithInternal forces internal (true) or external (false) tangency between
// two curves instead of inferring it from the current configuration.
func WithInternal(internal bool) ConstraintOption {
	return func(c *constraintConfig) {
		c.internal = &internal
	}
}
