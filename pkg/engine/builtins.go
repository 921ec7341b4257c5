package engine

import (
	"fmt"
	"strings"
	"unicode"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/sketchsolver/pkg/sketch"
)

// ---------------------------------------------------------------------------
// Sexp wrappers for sketch handles
// ---------------------------------------------------------------------------

// sexpEntity is the script-side handle of a point, line, circle or arc.
type sexpEntity struct {
	id   sketch.ID
	kind sketch.Kind
}

func (e *sexpEntity) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", e.kind, e.id)
}
func (e *sexpEntity) Type() *zygo.RegisteredType { return nil }

// sexpConstraint is the script-side handle of a constraint.
type sexpConstraint struct {
	id sketch.ConstraintID
	ct sketch.ConstraintType
}

func (c *sexpConstraint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(constraint %s %s)", c.ct, c.id)
}
func (c *sexpConstraint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a keyword rewritten by preprocessSource and
// returns its bare name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into positional values and :keyword value pairs.
// A trailing keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:name) or a plain string ("name").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toEntity(s zygo.Sexp) (sketch.ID, error) {
	if e, ok := s.(*sexpEntity); ok {
		return e.id, nil
	}
	return sketch.ZeroID, fmt.Errorf("expected sketch entity, got %T (%s)", s, s.SexpString(nil))
}

func toConstraint(s zygo.Sexp) (sketch.ConstraintID, error) {
	if c, ok := s.(*sexpConstraint); ok {
		return c.id, nil
	}
	return 0, fmt.Errorf("expected constraint, got %T (%s)", s, s.SexpString(nil))
}

// toConstraintType reads :point-on-line, :pointOnLine or "point_on_line".
func toConstraintType(s zygo.Sexp) (sketch.ConstraintType, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	return sketch.ParseConstraintType(camelCase(name))
}

func camelCase(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// xy reads two numeric positional arguments starting at args[i].
func xy(args []zygo.Sexp, i int) (float64, float64, error) {
	if len(args) < i+2 {
		return 0, 0, fmt.Errorf("expected x and y")
	}
	x, err := toFloat64(args[i])
	if err != nil {
		return 0, 0, fmt.Errorf("x: %w", err)
	}
	y, err := toFloat64(args[i+1])
	if err != nil {
		return 0, 0, fmt.Errorf("y: %w", err)
	}
	return x, y, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// session is the per-evaluation state the builtins share.
type session struct {
	sk     *sketch.Solver
	solves []sketch.SolveResult
}

func (s *session) entity(id sketch.ID) zygo.Sexp {
	e, _ := s.sk.Entity(id)
	return &sexpEntity{id: id, kind: e.Kind()}
}

// registerBuiltins installs the sketch DSL into env. Source must already
// have been through preprocessSource.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (point 10 5)  (point 0 0 :fixed true)
	// -----------------------------------------------------------------------
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		x, y, err := xy(pa.positional, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		fixed := false
		if v, ok := pa.kw["fixed"]; ok {
			if fixed, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("point: fixed: %w", err)
			}
		}
		var id sketch.ID
		if fixed {
			id, err = s.sk.AddFixedPoint(x, y)
		} else {
			id, err = s.sk.AddPoint(x, y)
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		return s.entity(id), nil
	})

	// -----------------------------------------------------------------------
	// (fixed-point 0 0)
	// -----------------------------------------------------------------------
	env.AddFunction("fixed_point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		x, y, err := xy(args, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fixed-point: %w", err)
		}
		id, err := s.sk.AddFixedPoint(x, y)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fixed-point: %w", err)
		}
		return s.entity(id), nil
	})

	// -----------------------------------------------------------------------
	// (line a b)
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires two points, got %d arguments", len(args))
		}
		p1, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: p1: %w", err)
		}
		p2, err := toEntity(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: p2: %w", err)
		}
		id, err := s.sk.AddLine(p1, p2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		return s.entity(id), nil
	})

	// -----------------------------------------------------------------------
	// (circle center 5)  (circle center :radius 5)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("circle requires a center point")
		}
		center, err := toEntity(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
		}
		rs, ok := pa.kw["radius"]
		if !ok {
			if len(pa.positional) < 2 {
				return zygo.SexpNull, fmt.Errorf("circle requires a radius")
			}
			rs = pa.positional[1]
		}
		r, err := toFloat64(rs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		id, err := s.sk.AddCircle(center, r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		return s.entity(id), nil
	})

	// -----------------------------------------------------------------------
	// (arc center start end :ccw false)
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("arc requires center, start and end points")
		}
		var ids [3]sketch.ID
		for i, label := range []string{"center", "start", "end"} {
			id, err := toEntity(pa.positional[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %s: %w", label, err)
			}
			ids[i] = id
		}
		ccw := true
		if v, ok := pa.kw["ccw"]; ok {
			var err error
			if ccw, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: ccw: %w", err)
			}
		}
		id, err := s.sk.AddArc(ids[0], ids[1], ids[2], ccw)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		return s.entity(id), nil
	})

	// -----------------------------------------------------------------------
	// (constrain :distance a b :value 12 :reference false)
	// (constrain :tangent c1 c2 :internal true)
	//
	// The first argument names the type and is read before keyword parsing,
	// so :horizontal is not mistaken for a keyword pair.
	// -----------------------------------------------------------------------
	env.AddFunction("constrain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("constrain requires a type and at least one entity")
		}
		ct, err := toConstraintType(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("constrain: %w", err)
		}
		pa := parseArgs(args[1:])

		ids := make([]sketch.ID, len(pa.positional))
		for i, v := range pa.positional {
			if ids[i], err = toEntity(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("constrain %s: entity %d: %w", ct, i+1, err)
			}
		}
		var opts []sketch.ConstraintOption
		if v, ok := pa.kw["value"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("constrain %s: value: %w", ct, err)
			}
			opts = append(opts, sketch.WithValue(f))
		}
		if v, ok := pa.kw["reference"]; ok {
			ref, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("constrain %s: reference: %w", ct, err)
			}
			if ref {
				opts = append(opts, sketch.AsReference())
			}
		}
		if v, ok := pa.kw["internal"]; ok {
			internal, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("constrain %s: internal: %w", ct, err)
			}
			opts = append(opts, sketch.WithInternal(internal))
		}

		id, err := s.sk.AddConstraint(ct, ids, opts...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("constrain %s: %w", ct, err)
		}
		return &sexpConstraint{id: id, ct: ct}, nil
	})

	// -----------------------------------------------------------------------
	// (set-value dim 20)
	// -----------------------------------------------------------------------
	env.AddFunction("set_value", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("set-value requires a constraint and a value")
		}
		id, err := toConstraint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: %w", err)
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: value: %w", err)
		}
		if err := s.sk.SetConstraintValue(id, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (drive p 20 5)
	// -----------------------------------------------------------------------
	env.AddFunction("drive", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("drive requires a point and a target x y")
		}
		id, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drive: %w", err)
		}
		x, y, err := xy(args, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drive: %w", err)
		}
		if err := s.sk.SetDrivingPoint(id, x, y); err != nil {
			return zygo.SexpNull, fmt.Errorf("drive: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (release p)  (release)
	// -----------------------------------------------------------------------
	env.AddFunction("release", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, s.sk.ClearAllDrivingPoints()
		}
		for _, a := range args {
			id, err := toEntity(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("release: %w", err)
			}
			if err := s.sk.ClearDrivingPoint(id); err != nil {
				return zygo.SexpNull, fmt.Errorf("release: %w", err)
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (set-fixed p true)
	// -----------------------------------------------------------------------
	env.AddFunction("set_fixed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("set-fixed requires a point and true or false")
		}
		id, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-fixed: %w", err)
		}
		fixed, err := toBool(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-fixed: %w", err)
		}
		if err := s.sk.SetFixed(id, fixed); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-fixed: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (move p 3 4)
	// -----------------------------------------------------------------------
	env.AddFunction("move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("move requires a point and x y")
		}
		id, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		x, y, err := xy(args, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		if err := s.sk.MovePoint(id, x, y); err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (remove handle) for an entity or a constraint
	// -----------------------------------------------------------------------
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove requires exactly one handle")
		}
		var err error
		switch h := args[0].(type) {
		case *sexpEntity:
			err = s.sk.RemoveEntity(h.id)
		case *sexpConstraint:
			err = s.sk.RemoveConstraint(h.id)
		default:
			err = fmt.Errorf("expected entity or constraint, got %T (%s)", h, h.SexpString(nil))
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (x-of p)  (y-of p)  (value-of dim)
	// -----------------------------------------------------------------------
	coord := func(label string, pick func(sketch.Point) float64) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires one point", label)
			}
			id, err := toEntity(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			p, ok := s.sk.Point(id)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: %s is not a live point", label, id)
			}
			return &zygo.SexpFloat{Val: pick(p)}, nil
		}
	}
	env.AddFunction("x_of", coord("x-of", func(p sketch.Point) float64 { return p.X }))
	env.AddFunction("y_of", coord("y-of", func(p sketch.Point) float64 { return p.Y }))

	env.AddFunction("value_of", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("value-of requires one constraint")
		}
		id, err := toConstraint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("value-of: %w", err)
		}
		c, ok := s.sk.Constraint(id)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("value-of: %s no longer exists", id)
		}
		return &zygo.SexpFloat{Val: c.Value}, nil
	})

	// -----------------------------------------------------------------------
	// (solve) returns true on convergence. Non-convergence is not a script
	// error; the outcome is recorded for the caller.
	// -----------------------------------------------------------------------
	env.AddFunction("solve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		res := s.sk.Solve()
		s.solves = append(s.solves, res)
		return &zygo.SexpBool{Val: res.Success}, nil
	})

	// -----------------------------------------------------------------------
	// (clear)
	// -----------------------------------------------------------------------
	env.AddFunction("clear", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return zygo.SexpNull, s.sk.Clear()
	})
}
