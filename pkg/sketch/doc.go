// Package sketch is the 2D parametric sketch solver. A Solver owns points,
// lines, circles and arcs keyed by process-unique ids, a set of declarative
// constraints between them, and a transient overlay of driving points used
// while the user drags. Solve assembles the live constraint graph into a
// residual system, runs a damped Newton iteration warm-started from the
// current positions, and writes the result back only when it converges.
package sketch
