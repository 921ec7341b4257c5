package sketch

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationSeverity indicates whether a finding means the graph is
// corrupt or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant violated
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single finding from Check.
type ValidationError struct {
	Entity     ID           // offending entity, zero if none
	Constraint ConstraintID // offending constraint, zero if none
	Message    string
	Severity   ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.Constraint != 0:
		return fmt.Sprintf("[%s] constraint %s: %s", e.Severity, e.Constraint, e.Message)
	case !e.Entity.IsZero():
		return fmt.Sprintf("[%s] entity %s: %s", e.Severity, e.Entity, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// check runs the structural tier, then the geometric tier. It never
// mutates the store.
func check(st *store, ov *overlay) []ValidationError {
	var errs []ValidationError
	errs = append(errs, checkEntityRefs(st)...)
	errs = append(errs, checkConstraintRefs(st)...)
	errs = append(errs, checkOverlay(st, ov)...)
	errs = append(errs, checkGeometry(st)...)
	errs = append(errs, checkDuplicateConstraints(st)...)
	return errs
}

// checkEntityRefs verifies that every line, circle and arc is built from
// live points.
func checkEntityRefs(st *store) []ValidationError {
	var errs []ValidationError
	for _, id := range st.sortedIDs() {
		for _, ref := range st.entities[id].Refs() {
			e, ok := st.entities[ref]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Entity:   id,
					Message:  fmt.Sprintf("reference %s does not exist", ref),
					Severity: SeverityError,
				})
			case e.Kind() != KindPoint:
				errs = append(errs, ValidationError{
					Entity:   id,
					Message:  fmt.Sprintf("reference %s is a %s, not a point", ref, e.Kind()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// checkConstraintRefs verifies that constraints reference live entities
// in the stored order their type expects.
func checkConstraintRefs(st *store) []ValidationError {
	var errs []ValidationError
	for _, cid := range st.sortedConstraintIDs() {
		c := st.constraints[cid]
		kinds := make([]Kind, 0, len(c.Entities))
		dangling := false
		for _, eid := range c.Entities {
			e, ok := st.entities[eid]
			if !ok {
				errs = append(errs, ValidationError{
					Constraint: cid,
					Message:    fmt.Sprintf("entity %s does not exist", eid),
					Severity:   SeverityError,
				})
				dangling = true
				continue
			}
			kinds = append(kinds, e.Kind())
		}
		if dangling {
			continue
		}
		if !matchesStored(c.Type, kinds) {
			errs = append(errs, ValidationError{
				Constraint: cid,
				Message:    fmt.Sprintf("%s does not accept stored selection %v", c.Type, kinds),
				Severity:   SeverityError,
			})
		}
	}
	return errs
}

func checkOverlay(st *store, ov *overlay) []ValidationError {
	var errs []ValidationError
	for _, id := range ov.ids() {
		if _, err := st.point(id); err != nil {
			errs = append(errs, ValidationError{
				Entity:   id,
				Message:  "driving target set on a missing or non-point entity",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// checkGeometry flags degenerate geometry: lines whose endpoints are the
// same point, non-positive radii, and arcs sharing start and end.
func checkGeometry(st *store) []ValidationError {
	var errs []ValidationError
	for _, id := range st.sortedIDs() {
		switch e := st.entities[id].(type) {
		case Line:
			if e.P1 == e.P2 {
				errs = append(errs, ValidationError{
					Entity:   id,
					Message:  "line starts and ends at the same point",
					Severity: SeverityError,
				})
			}
		case Circle:
			if e.Radius <= 0 {
				errs = append(errs, ValidationError{
					Entity:   id,
					Message:  fmt.Sprintf("circle radius is %.4f, must be positive", e.Radius),
					Severity: SeverityError,
				})
			}
		case Arc:
			if e.Start == e.End {
				errs = append(errs, ValidationError{
					Entity:   id,
					Message:  "arc starts and ends at the same point",
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// checkDuplicateConstraints warns when two driving constraints of the same
// type relate the same entities; the second adds only redundant equations.
func checkDuplicateConstraints(st *store) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]ConstraintID)
	for _, cid := range st.sortedConstraintIDs() {
		c := st.constraints[cid]
		if !c.Driving {
			continue
		}
		key := constraintKey(c)
		if first, ok := seen[key]; ok {
			errs = append(errs, ValidationError{
				Constraint: cid,
				Message:    fmt.Sprintf("duplicates constraint %s", first),
				Severity:   SeverityWarning,
			})
			continue
		}
		seen[key] = cid
	}
	return errs
}

func constraintKey(c *Constraint) string {
	ids := slices.Clone(c.Entities)
	// Operand order is irrelevant for these.
	switch c.Type {
	case Coincident, Parallel, Perpendicular, Equal, Concentric:
		slices.Sort(ids)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return fmt.Sprintf("%s|%s|%g", c.Type, strings.Join(parts, ","), c.Value)
}
