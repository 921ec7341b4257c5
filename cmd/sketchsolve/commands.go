package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/sketchsolver/pkg/bake"
	"github.com/chazu/sketchsolver/pkg/config"
	"github.com/chazu/sketchsolver/pkg/engine"
	"github.com/chazu/sketchsolver/pkg/kernel/sdfx"
	"github.com/chazu/sketchsolver/pkg/sketch"
)

// errUnsolved marks a script whose final solve did not converge.
var errUnsolved = errors.New("sketch did not solve")

// scriptError carries the evaluation errors of a rejected script.
type scriptError struct {
	errs []engine.EvalError
}

func (e *scriptError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, ee := range e.errs {
		msgs[i] = ee.Error()
	}
	return "script rejected: " + strings.Join(msgs, "; ")
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUnsolved):
		return exitUnsolved
	default:
		return exitError
	}
}

type options struct {
	configPath string
	format     string
	extrude    float64
	meshCells  int
}

// Report is what run prints.
type Report struct {
	Solved     bool           `json:"solved" yaml:"solved"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Iterations int            `json:"iterations" yaml:"iterations"`
	Residual   float64        `json:"residual" yaml:"residual"`
	Sketch     *bake.Snapshot `json:"sketch,omitempty" yaml:"sketch,omitempty"`
	Meshes     []MeshSummary  `json:"meshes,omitempty" yaml:"meshes,omitempty"`
	Issues     []string       `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// MeshSummary describes one extruded region.
type MeshSummary struct {
	Name      string     `json:"name" yaml:"name"`
	Vertices  int        `json:"vertices" yaml:"vertices"`
	Triangles int        `json:"triangles" yaml:"triangles"`
	Min       [3]float32 `json:"min" yaml:"min"`
	Max       [3]float32 `json:"max" yaml:"max"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sketchsolve",
		Short:         "Solve 2D constraint sketches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "output format: json or yaml")

	run := &cobra.Command{
		Use:   "run <script>",
		Short: "Evaluate a sketch script and print the solved geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}
	run.Flags().Float64Var(&opts.extrude, "extrude", 0, "extrude every closed region to this height")
	run.Flags().IntVar(&opts.meshCells, "mesh-cells", sdfx.DefaultMeshCells, "marching cubes resolution for --extrude")

	check := &cobra.Command{
		Use:   "check <script>",
		Short: "Evaluate a sketch script and report structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkScript(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	root.AddCommand(run, check)
	return root
}

// evaluate loads config and source and runs the script.
func evaluate(stderr io.Writer, path string, opts *options) (*engine.Evaluation, *slog.Logger, error) {
	if opts.format != "json" && opts.format != "yaml" {
		return nil, nil, fmt.Errorf("unknown format %q (want json or yaml)", opts.format)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	log := cfg.Log.Logger(stderr)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read script: %w", err)
	}

	eng := engine.NewEngine(
		engine.WithLogger(log),
		engine.WithTimeout(cfg.Engine.EvalTimeout),
		engine.WithSolverOptions(sketch.WithConfig(cfg.Solver)),
	)
	ev, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, nil, err
	}
	if len(evalErrs) > 0 {
		return nil, nil, &scriptError{errs: evalErrs}
	}
	return ev, log, nil
}

func runScript(stdout, stderr io.Writer, path string, opts *options) error {
	ev, log, err := evaluate(stderr, path, opts)
	if err != nil {
		return err
	}
	defer ev.Sketch.Destroy()

	snap, err := bake.Bake(ev.Sketch)
	if err != nil {
		return err
	}
	rep := Report{
		Solved:     ev.Final.Success,
		Error:      ev.Final.Error,
		Iterations: ev.Final.Iterations,
		Residual:   ev.Final.Residual,
		Sketch:     snap,
	}

	if opts.extrude > 0 && ev.Final.Success {
		meshes, err := bake.ExtrudeAll(ev.Sketch, sdfx.New(sdfx.WithMeshCells(opts.meshCells)), opts.extrude)
		if err != nil {
			return fmt.Errorf("extrude: %w", err)
		}
		for _, m := range meshes {
			min, max := m.Bounds()
			rep.Meshes = append(rep.Meshes, MeshSummary{
				Name:      m.Name,
				Vertices:  m.VertexCount(),
				Triangles: m.TriangleCount(),
				Min:       min,
				Max:       max,
			})
		}
		log.Info("extruded regions", "count", len(meshes), "height", opts.extrude)
	}

	if err := write(stdout, opts.format, rep); err != nil {
		return err
	}
	if !rep.Solved {
		return fmt.Errorf("%w: %s", errUnsolved, rep.Error)
	}
	return nil
}

func checkScript(stdout, stderr io.Writer, path string, opts *options) error {
	ev, _, err := evaluate(stderr, path, opts)
	if err != nil {
		return err
	}
	defer ev.Sketch.Destroy()

	rep := Report{
		Solved:     ev.Final.Success,
		Error:      ev.Final.Error,
		Iterations: ev.Final.Iterations,
		Residual:   ev.Final.Residual,
	}
	failed := false
	for _, ve := range ev.Sketch.Check() {
		rep.Issues = append(rep.Issues, ve.Error())
		failed = failed || ve.Severity == sketch.SeverityError
	}
	if err := write(stdout, opts.format, rep); err != nil {
		return err
	}
	if failed {
		return errors.New("sketch has structural errors")
	}
	return nil
}

func write(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
