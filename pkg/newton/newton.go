// Package newton solves square and non-square systems of nonlinear equations
// with a damped Newton iteration. When the Jacobian is square and well
// conditioned the correction comes from an LU solve; otherwise it is the
// minimum-norm least-squares correction from a thin SVD, which makes the
// method a Gauss-Newton step for over- and under-determined systems.
package newton

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Status describes how an iteration ended.
type Status int

const (
	Converged      Status = iota // residual norm fell below tolerance
	IterationLimit               // MaxIterations reached first
	Singular                     // Jacobian has numerical rank zero
	Stalled                      // no damped step reduced the residual
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationLimit:
		return "iteration limit"
	case Singular:
		return "singular jacobian"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Problem is a residual system r(x) = 0 with Dim unknowns and Equations
// scalar residuals. Residual writes r(x) into dst; it must not retain x.
type Problem struct {
	Dim       int
	Equations int
	Residual  func(dst, x []float64)
}

// Settings tunes the iteration.
type Settings struct {
	Tolerance     float64 // convergence threshold on the 2-norm of r, relative to 1+max|x|
	MaxIterations int
	MinStep       float64 // smallest damping factor tried before giving up
	Rcond         float64 // relative singular value cutoff, above the finite-difference noise
	Step          float64 // finite-difference step, 0 selects the formula default
}

// DefaultSettings returns settings suited to interactive sketch solving.
func DefaultSettings() Settings {
	return Settings{
		Tolerance:     1e-9,
		MaxIterations: 50,
		MinStep:       1.0 / 1024,
		Rcond:         1e-8,
	}
}

// Result is the outcome of Solve. X is always populated with the best
// iterate found, even when Status is not Converged.
type Result struct {
	X          []float64
	Status     Status
	Iterations int
	Norm       float64
}

// Converged reports whether the iteration reached tolerance.
func (r Result) Converged() bool { return r.Status == Converged }

// ErrDimension is returned when x0 does not match the problem size.
var ErrDimension = errors.New("newton: dimension mismatch")

// Solve iterates from the warm start x0. Only malformed problems produce an
// error; failing to converge is reported through Result.Status.
func Solve(p Problem, x0 []float64, s Settings) (Result, error) {
	if len(x0) != p.Dim {
		return Result{}, fmt.Errorf("%w: len(x0)=%d, dim=%d", ErrDimension, len(x0), p.Dim)
	}
	if p.Dim < 0 || p.Equations < 0 || p.Residual == nil {
		return Result{}, fmt.Errorf("%w: invalid problem", ErrDimension)
	}
	s = s.withDefaults()

	x := make([]float64, p.Dim)
	copy(x, x0)
	r := make([]float64, p.Equations)
	p.Residual(r, x)
	norm := floats.Norm(r, 2)

	res := Result{X: x, Norm: norm}
	if norm <= s.tolerance(x) {
		res.Status = Converged
		return res, nil
	}
	if p.Dim == 0 || p.Equations == 0 {
		// Nothing to move: the boundary values alone decide the outcome.
		res.Status = Singular
		return res, nil
	}

	jac := mat.NewDense(p.Equations, p.Dim, nil)
	jset := &fd.JacobianSettings{
		Formula:     fd.Central,
		OriginValue: r,
		Step:        s.Step,
	}
	dx := make([]float64, p.Dim)
	trial := make([]float64, p.Dim)
	rTrial := make([]float64, p.Equations)

	for res.Iterations < s.MaxIterations {
		res.Iterations++

		jset.OriginValue = r
		fd.Jacobian(jac, p.Residual, x, jset)

		ok := correction(dx, jac, r, s.Rcond)
		if !ok {
			res.Status = Singular
			return res, nil
		}

		accepted := false
		for alpha := 1.0; alpha >= s.MinStep; alpha /= 2 {
			floats.AddScaledTo(trial, x, alpha, dx)
			p.Residual(rTrial, trial)
			n := floats.Norm(rTrial, 2)
			if n < norm || n <= s.tolerance(trial) {
				copy(x, trial)
				copy(r, rTrial)
				norm = n
				accepted = true
				break
			}
		}
		res.Norm = norm
		if norm <= s.tolerance(x) {
			res.Status = Converged
			return res, nil
		}
		// Away from a root, a rejected or vanishing correction means a
		// least-squares minimum of an inconsistent system.
		if !accepted || floats.Norm(dx, 2) <= s.Tolerance*scale(x) {
			res.Status = Stalled
			return res, nil
		}
	}

	res.Status = IterationLimit
	return res, nil
}

// tolerance is the convergence threshold at x. Residuals are lengths, so
// the threshold grows with the coordinate magnitude the finite-difference
// Jacobian and rounding can resolve.
func (s Settings) tolerance(x []float64) float64 {
	return s.Tolerance * scale(x)
}

func scale(x []float64) float64 {
	if len(x) == 0 {
		return 1
	}
	return 1 + floats.Norm(x, math.Inf(1))
}

// correction solves J·dx = -r into dst. It returns false when J has no
// usable rank.
func correction(dst []float64, jac *mat.Dense, r []float64, rcond float64) bool {
	m, n := jac.Dims()
	neg := make([]float64, m)
	floats.ScaleTo(neg, -1, r)
	b := mat.NewVecDense(m, neg)
	out := mat.NewVecDense(n, dst)

	if m == n {
		var lu mat.LU
		lu.Factorize(jac)
		if lu.Cond() < 1/rcond {
			if err := lu.SolveVecTo(out, false, b); err == nil {
				return true
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(jac, mat.SVDThin) {
		return false
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return false
	}
	svd.SolveVecTo(out, b, rank)
	return true
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.MinStep <= 0 || s.MinStep > 1 {
		s.MinStep = d.MinStep
	}
	if s.Rcond <= 0 {
		s.Rcond = d.Rcond
	}
	return s
}
