// Package engine runs sketch scripts. A script is a zygomys Lisp program
// that builds a sketch through DSL builtins:
//
//	(def a (fixed-point 0 0))
//	(def b (point 10 5))
//	(def base (line a b))
//	(constrain :horizontal base)
//	(constrain :distance a b :value 12)
//	(solve)
//
// Each evaluation runs in a fresh sandbox against a fresh sketch.Solver and
// ends with a final solve.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/sketchsolver/pkg/sketch"
)

// EvalError is a non-fatal error in user code, such as a parse error or a
// builtin rejecting its arguments.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Evaluation is the sketch a script produced.
type Evaluation struct {
	Sketch *sketch.Solver
	// Solves holds the outcome of every (solve) call in the script.
	Solves []sketch.SolveResult
	// Final is the solve run after the script finished.
	Final sketch.SolveResult
}

// Engine evaluates sketch scripts. It is safe for concurrent use; a newer
// evaluation supersedes one still in flight.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout    time.Duration
	base       *slog.Logger // handed to solvers, which add their own attrs
	log        *slog.Logger
	solverOpts []sketch.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger used by the engine and the solvers it creates.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSolverOptions passes options to every sketch.Solver the engine creates.
func WithSolverOptions(opts ...sketch.Option) Option {
	return func(e *Engine) { e.solverOpts = append(e.solverOpts, opts...) }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: EvalTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.base = e.log
	e.log = e.log.With("component", "engine")
	return e
}

// Evaluate runs source and returns the sketch it built.
//
// Return semantics:
//   - On success: evaluation + nil errors + nil error
//   - On parse/eval failure: nil evaluation + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
//
// A final solve that does not converge is still a success; see
// Evaluation.Final.
func (e *Engine) Evaluate(source string) (*Evaluation, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		ev, evalErrs, err := e.evaluate(source)
		ch <- evalResult{eval: ev, errors: evalErrs, err: err}
	}()

	ev, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
	switch {
	case err != nil:
		e.log.Warn("evaluation failed", "generation", gen, "error", err)
	case len(evalErrs) > 0:
		e.log.Debug("evaluation rejected", "generation", gen, "errors", len(evalErrs))
	default:
		e.log.Debug("evaluation finished",
			"generation", gen,
			"duration", time.Since(start),
			"entities", len(ev.Sketch.Entities()),
			"solved", ev.Final.Success)
	}
	return ev, evalErrs, err
}

func (e *Engine) evaluate(source string) (*Evaluation, []EvalError, error) {
	sk := sketch.New(append([]sketch.Option{sketch.WithLogger(e.base)}, e.solverOpts...)...)
	if err := sk.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize sketch: %w", err)
	}
	s := &session{sk: sk}

	if strings.TrimSpace(source) != "" {
		// The sandbox denies user code filesystem and system access.
		env := zygo.NewZlispSandbox()
		defer env.Stop()
		registerBuiltins(env, s)

		if err := env.LoadString(preprocessSource(source)); err != nil {
			return nil, parseZygomysError(err), nil
		}
		if _, err := env.Run(); err != nil {
			return nil, parseZygomysError(err), nil
		}
	}

	return &Evaluation{
		Sketch: sk,
		Solves: s.solves,
		Final:  sk.Solve(),
	}, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
