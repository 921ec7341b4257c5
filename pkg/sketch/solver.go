package sketch

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/google/uuid"

	"github.com/chazu/sketchsolver/pkg/config"
	"github.com/chazu/sketchsolver/pkg/newton"
)

// SolveResult reports the outcome of one Solve call. On failure the store is
// left exactly as it was before the call.
type SolveResult struct {
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Iterations int           `json:"iterations"`
	Residual   float64       `json:"residual"`
	Unknowns   int           `json:"unknowns"`
	Equations  int           `json:"equations"`
	Duration   time.Duration `json:"duration"`

	// Err is the typed cause behind Error.
	Err error `json:"-"`
}

// Solver is the sketch facade. It is not safe for concurrent use; callers
// that share one across goroutines must serialize access.
type Solver struct {
	initialized bool
	session     string
	log         *slog.Logger
	settings    newton.Settings

	st  *store
	ov  *overlay
	rev uint64
	sys *system
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger; the solver adds component and session
// attributes to it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// WithSettings overrides the Newton settings.
func WithSettings(ns newton.Settings) Option {
	return func(s *Solver) { s.settings = ns }
}

// WithConfig applies the solver section of a loaded configuration.
func WithConfig(c config.Solver) Option {
	return func(s *Solver) { s.settings = c.Settings() }
}

// New returns an uninitialized solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		session:  uuid.NewString(),
		log:      slog.Default(),
		settings: newton.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "sketch", "session", s.session)
	return s
}

// Initialize prepares the solver for use. Calling it on an initialized
// solver is a no-op.
func (s *Solver) Initialize() error {
	if s.initialized {
		return nil
	}
	s.st = newStore()
	s.ov = newOverlay()
	s.sys = nil
	s.rev++
	s.initialized = true
	s.log.Debug("solver initialized")
	return nil
}

// Initialized reports whether Initialize has been called since the last
// Destroy.
func (s *Solver) Initialized() bool { return s.initialized }

// Session identifies this solver instance in logs.
func (s *Solver) Session() string { return s.session }

// Destroy releases all state. The solver must be initialized again before
// further use.
func (s *Solver) Destroy() {
	if !s.initialized {
		return
	}
	s.st, s.ov, s.sys = nil, nil, nil
	s.initialized = false
	s.log.Debug("solver destroyed")
}

// Clear removes every entity, constraint and driving target.
func (s *Solver) Clear() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	s.st.clear()
	s.ov.releaseAll()
	s.sys = nil
	s.touch()
	return nil
}

// touch marks a structural change; the next Solve reassembles.
func (s *Solver) touch() { s.rev++ }

// AddPoint adds a free point.
func (s *Solver) AddPoint(x, y float64) (ID, error) {
	return s.addPoint(x, y, Free)
}

// AddFixedPoint adds a point the solver never moves.
func (s *Solver) AddFixedPoint(x, y float64) (ID, error) {
	return s.addPoint(x, y, Fixed)
}

func (s *Solver) addPoint(x, y float64, mode Mode) (ID, error) {
	if !s.initialized {
		return ZeroID, ErrNotInitialized
	}
	if !finite(x) || !finite(y) {
		return ZeroID, fmt.Errorf("%w: point (%g, %g) is not finite", ErrInvalidValue, x, y)
	}
	id := ID(nextID())
	s.st.put(Point{ID: id, X: x, Y: y, Mode: mode})
	s.touch()
	return id, nil
}

// AddLine adds a segment between two distinct existing points.
func (s *Solver) AddLine(p1, p2 ID) (ID, error) {
	if !s.initialized {
		return ZeroID, ErrNotInitialized
	}
	if err := s.st.requirePoints(p1, p2); err != nil {
		return ZeroID, err
	}
	if p1 == p2 {
		return ZeroID, fmt.Errorf("%w: line endpoints are both %s", ErrInvalidEntityReference, p1)
	}
	id := ID(nextID())
	s.st.put(Line{ID: id, P1: p1, P2: p2})
	s.touch()
	return id, nil
}

// AddCircle adds a circle around an existing center point.
func (s *Solver) AddCircle(center ID, radius float64) (ID, error) {
	if !s.initialized {
		return ZeroID, ErrNotInitialized
	}
	if err := s.st.requirePoints(center); err != nil {
		return ZeroID, err
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return ZeroID, fmt.Errorf("%w: circle radius %g must be positive", ErrInvalidValue, radius)
	}
	id := ID(nextID())
	s.st.put(Circle{ID: id, Center: center, Radius: radius})
	s.touch()
	return id, nil
}

// AddArc adds an arc around center from start to end. Its radius is the
// distance from center to start; the solver keeps end on the same circle.
func (s *Solver) AddArc(center, start, end ID, ccw bool) (ID, error) {
	if !s.initialized {
		return ZeroID, ErrNotInitialized
	}
	if err := s.st.requirePoints(center, start, end); err != nil {
		return ZeroID, err
	}
	if center == start || center == end {
		return ZeroID, fmt.Errorf("%w: arc center %s doubles as an endpoint", ErrInvalidEntityReference, center)
	}
	id := ID(nextID())
	s.st.put(Arc{ID: id, Center: center, Start: start, End: end, CCW: ccw})
	s.touch()
	return id, nil
}

// Entity returns any entity by id.
func (s *Solver) Entity(id ID) (Entity, bool) {
	if !s.initialized {
		return nil, false
	}
	return s.st.get(id)
}

// Point returns the point with id.
func (s *Solver) Point(id ID) (Point, bool) {
	e, _ := s.Entity(id)
	p, ok := e.(Point)
	return p, ok
}

// Line returns the line with id.
func (s *Solver) Line(id ID) (Line, bool) {
	e, _ := s.Entity(id)
	l, ok := e.(Line)
	return l, ok
}

// Circle returns the circle with id.
func (s *Solver) Circle(id ID) (Circle, bool) {
	e, _ := s.Entity(id)
	c, ok := e.(Circle)
	return c, ok
}

// Arc returns the arc with id.
func (s *Solver) Arc(id ID) (Arc, bool) {
	e, _ := s.Entity(id)
	a, ok := e.(Arc)
	return a, ok
}

// Entities returns every entity in creation order.
func (s *Solver) Entities() []Entity {
	if !s.initialized {
		return nil
	}
	ids := s.st.sortedIDs()
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = s.st.entities[id]
	}
	return out
}

// Points returns every point in creation order.
func (s *Solver) Points() []Point {
	var out []Point
	for _, e := range s.Entities() {
		if p, ok := e.(Point); ok {
			out = append(out, p)
		}
	}
	return out
}

// PointState reports whether a point is free, fixed, or currently driving.
func (s *Solver) PointState(id ID) (State, bool) {
	p, ok := s.Point(id)
	if !ok {
		return 0, false
	}
	if _, driving := s.ov.target(id); driving {
		return StateDriving, true
	}
	if p.Fixed() {
		return StateFixed, true
	}
	return StateFree, true
}

// SetFixed switches a point between Free and Fixed.
func (s *Solver) SetFixed(id ID, fixed bool) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	p, err := s.st.point(id)
	if err != nil {
		return err
	}
	mode := Free
	if fixed {
		mode = Fixed
	}
	if p.Mode == mode {
		return nil
	}
	p.Mode = mode
	s.st.put(p)
	s.touch()
	return nil
}

// MovePoint sets a point's coordinates directly, without solving. The new
// position becomes the warm start of the next solve.
func (s *Solver) MovePoint(id ID, x, y float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	p, err := s.st.point(id)
	if err != nil {
		return err
	}
	if !finite(x) || !finite(y) {
		return fmt.Errorf("%w: point (%g, %g) is not finite", ErrInvalidValue, x, y)
	}
	p.X, p.Y = x, y
	s.st.put(p)
	return nil
}

// RemoveEntity deletes an entity. Removing a point also removes the lines,
// circles and arcs built on it; every constraint referencing a removed
// entity goes too.
func (s *Solver) RemoveEntity(id ID) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	before := len(s.st.constraints)
	removed := s.st.remove(id)
	if len(removed) == 0 {
		return unknownEntity(id)
	}
	for _, rid := range removed {
		s.ov.release(rid)
	}
	s.touch()
	s.log.Debug("entity removed",
		"entity", id,
		"cascade", len(removed)-1,
		"constraints", before-len(s.st.constraints))
	return nil
}

// AddConstraint relates the selected entities. The selection may be given
// in any order; it is stored in the canonical order of the type. Valued
// types take their dimension from WithValue or, failing that, from the
// current geometry (90 degrees for an angle).
func (s *Solver) AddConstraint(t ConstraintType, ids []ID, opts ...ConstraintOption) (ConstraintID, error) {
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	if t < 0 || t >= numConstraintTypes {
		return 0, &SelectionError{Type: t, Reason: "unknown constraint type"}
	}
	var cfg constraintConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	kinds := make([]Kind, len(ids))
	for i, id := range ids {
		e, ok := s.st.get(id)
		if !ok {
			return 0, unknownEntity(id)
		}
		kinds[i] = e.Kind()
	}
	perm, err := canonicalOrder(t, kinds)
	if err != nil {
		return 0, err
	}
	ordered := make([]ID, len(perm))
	for i, j := range perm {
		ordered[i] = ids[j]
	}
	if dup := firstDuplicate(ordered); !dup.IsZero() {
		return 0, &SelectionError{Type: t, Kinds: kinds, Reason: fmt.Sprintf("entity %s selected twice", dup)}
	}

	c := &Constraint{
		ID:       ConstraintID(nextID()),
		Type:     t,
		Entities: ordered,
		Driving:  !cfg.reference,
	}

	if t == Tangent && isCurve(kinds[perm[0]]) {
		if cfg.internal != nil {
			c.Internal = *cfg.internal
		} else {
			c.Internal = s.insideTangent(ordered[0], ordered[1])
		}
	}
	if t == Concentric {
		c.Entities = []ID{s.centerOf(ordered[0]), s.centerOf(ordered[1])}
	}

	if IsValued(t) {
		c.HasValue = true
		switch {
		case cfg.hasValue && !cfg.reference:
			c.Value = cfg.value
		case t == Angle && !cfg.reference:
			c.Value = 90
		default:
			c.Value = s.measure(c)
		}
		if err := checkValue(t, c.Value); err != nil {
			return 0, err
		}
	}

	s.st.constraints[c.ID] = c
	s.touch()
	s.log.Debug("constraint added",
		"constraint", c.ID,
		"type", t,
		"entities", c.Entities,
		"driving", c.Driving)
	return c.ID, nil
}

// RemoveConstraint deletes a constraint.
func (s *Solver) RemoveConstraint(id ConstraintID) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.st.constraints[id]; !ok {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidConstraintReference, id)
	}
	delete(s.st.constraints, id)
	s.touch()
	return nil
}

// SetConstraintValue changes the dimension of a distance, angle or radius
// constraint. The change takes effect on the next solve.
func (s *Solver) SetConstraintValue(id ConstraintID, v float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	c, ok := s.st.constraints[id]
	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidConstraintReference, id)
	}
	if !IsValued(c.Type) {
		return fmt.Errorf("%w: %s constraint has no value", ErrInvalidValue, c.Type)
	}
	if err := checkValue(c.Type, v); err != nil {
		return err
	}
	c.Value = v
	// Residual closures capture the value.
	s.touch()
	return nil
}

// Constraint returns a copy of the constraint with id.
func (s *Solver) Constraint(id ConstraintID) (Constraint, bool) {
	if !s.initialized {
		return Constraint{}, false
	}
	c, ok := s.st.constraints[id]
	if !ok {
		return Constraint{}, false
	}
	return c.clone(), true
}

// Constraints returns copies of every constraint in creation order.
func (s *Solver) Constraints() []Constraint {
	if !s.initialized {
		return nil
	}
	ids := s.st.sortedConstraintIDs()
	out := make([]Constraint, len(ids))
	for i, id := range ids {
		out[i] = s.st.constraints[id].clone()
	}
	return out
}

// SetDrivingPoint pins a point at (x, y) for subsequent solves until it is
// released. Its Fixed/Free mode is untouched. Retargeting a point that is
// already driving does not reassemble the system.
func (s *Solver) SetDrivingPoint(id ID, x, y float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if _, err := s.st.point(id); err != nil {
		return err
	}
	if !finite(x) || !finite(y) {
		return fmt.Errorf("%w: target (%g, %g) is not finite", ErrInvalidValue, x, y)
	}
	if s.ov.set(id, x, y) {
		s.touch()
	}
	return nil
}

// ClearDrivingPoint releases one driving point. Releasing a point that is
// not driving is a no-op.
func (s *Solver) ClearDrivingPoint(id ID) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.ov.release(id) {
		s.touch()
	}
	return nil
}

// ClearAllDrivingPoints releases every driving point.
func (s *Solver) ClearAllDrivingPoints() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.ov.releaseAll() {
		s.touch()
	}
	return nil
}

// DrivingPoints lists the currently driving points.
func (s *Solver) DrivingPoints() []ID {
	if !s.initialized {
		return nil
	}
	return s.ov.ids()
}

// Solve moves free points so that every driving constraint holds and every
// driving point sits on its target. Positions are written back only when
// the iteration converges.
func (s *Solver) Solve() SolveResult {
	if !s.initialized {
		solveTotal.WithLabelValues("uninitialized").Inc()
		return SolveResult{Error: ErrNotInitialized.Error(), Err: ErrNotInitialized}
	}
	start := time.Now()
	sys := s.system()

	x0 := sys.initial()
	res, err := newton.Solve(sys.problem(), x0, s.settings)
	out := SolveResult{
		Iterations: res.Iterations,
		Residual:   res.Norm,
		Unknowns:   len(sys.unknowns),
		Equations:  len(sys.eqs),
	}
	switch {
	case err != nil:
		out.Err = err
	case !res.Converged():
		out.Err = fmt.Errorf("%w: %s after %d iterations, residual %.3g",
			ErrSolveDidNotConverge, res.Status, res.Iterations, res.Norm)
	case slices.ContainsFunc(res.X, func(v float64) bool { return !finite(v) }):
		out.Err = fmt.Errorf("%w: solution is not finite", ErrSolveDidNotConverge)
	default:
		sys.writeBack(s.st, res.X)
		s.refreshReferences()
		out.Success = true
	}
	out.Duration = time.Since(start)

	solveDuration.Observe(out.Duration.Seconds())
	solveIterations.Observe(float64(out.Iterations))
	if out.Success {
		solveTotal.WithLabelValues("converged").Inc()
		s.log.Debug("sketch solved",
			"iterations", out.Iterations,
			"residual", out.Residual,
			"unknowns", out.Unknowns,
			"equations", out.Equations,
			"duration", out.Duration)
		return out
	}
	out.Error = out.Err.Error()
	solveTotal.WithLabelValues("failed").Inc()
	s.log.Info("sketch solve failed",
		"error", out.Error,
		"unknowns", out.Unknowns,
		"equations", out.Equations,
		"driving", len(sys.driving))
	return out
}

// system returns the residual system for the current revision, assembling
// it only after a structural change.
func (s *Solver) system() *system {
	if s.sys == nil || s.sys.rev != s.rev {
		s.sys = assemble(s.st, s.ov, s.rev)
		systemRebuilds.Inc()
	}
	s.sys.load(s.st, s.ov)
	return s.sys
}

// Check runs the structural and geometric checks. An empty result means
// the sketch is well formed.
func (s *Solver) Check() []ValidationError {
	if !s.initialized {
		return []ValidationError{{Message: ErrNotInitialized.Error(), Severity: SeverityError}}
	}
	return check(s.st, s.ov)
}

// refreshReferences updates the values of non-driving dimensions.
func (s *Solver) refreshReferences() {
	for _, c := range s.st.constraints {
		if !c.Driving && c.HasValue {
			c.Value = s.measure(c)
		}
	}
}

// measure returns the current value of a distance, angle (degrees) or
// radius constraint.
func (s *Solver) measure(c *Constraint) float64 {
	ids := c.Entities
	switch c.Type {
	case Distance:
		if len(ids) == 1 {
			a, b := s.endpoints(ids[0])
			return b.Sub(a).Length()
		}
		return s.pos(ids[1]).Sub(s.pos(ids[0])).Length()
	case Angle:
		a1, a2 := s.endpoints(ids[0])
		b1, b2 := s.endpoints(ids[1])
		u, v := a2.Sub(a1), b2.Sub(b1)
		return math.Atan2(cross(u, v), u.Dot(v)) * 180 / math.Pi
	case Radius:
		return s.curveRadius(ids[0])
	}
	return c.Value
}

// insideTangent infers internal tangency when one curve's center lies
// within the other curve.
func (s *Solver) insideTangent(a, b ID) bool {
	d := s.pos(s.centerOf(a)).Sub(s.pos(s.centerOf(b))).Length()
	return d < max(s.curveRadius(a), s.curveRadius(b))
}

func (s *Solver) centerOf(curve ID) ID {
	switch e := s.st.entities[curve].(type) {
	case Circle:
		return e.Center
	case Arc:
		return e.Center
	}
	panic(fmt.Sprintf("sketch: %s is not a curve", curve))
}

func (s *Solver) curveRadius(curve ID) float64 {
	switch e := s.st.entities[curve].(type) {
	case Circle:
		return e.Radius
	case Arc:
		return s.pos(e.Start).Sub(s.pos(e.Center)).Length()
	}
	panic(fmt.Sprintf("sketch: %s is not a curve", curve))
}

func (s *Solver) pos(id ID) v2.Vec {
	p := s.st.entities[id].(Point)
	return v2.Vec{X: p.X, Y: p.Y}
}

func (s *Solver) endpoints(line ID) (v2.Vec, v2.Vec) {
	l := s.st.entities[line].(Line)
	return s.pos(l.P1), s.pos(l.P2)
}

func checkValue(t ConstraintType, v float64) error {
	switch {
	case !finite(v):
		return fmt.Errorf("%w: %s value %g is not finite", ErrInvalidValue, t, v)
	case t == Distance && v < 0:
		return fmt.Errorf("%w: distance %g is negative", ErrInvalidValue, v)
	case t == Radius && v <= 0:
		return fmt.Errorf("%w: radius %g must be positive", ErrInvalidValue, v)
	}
	return nil
}

func firstDuplicate(ids []ID) ID {
	for i, id := range ids {
		if slices.Contains(ids[i+1:], id) {
			return id
		}
	}
	return ZeroID
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
