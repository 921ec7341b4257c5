package bake

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/sketchsolver/pkg/kernel"
	"github.com/chazu/sketchsolver/pkg/sketch"
)

// ErrNotClosed is returned when a boundary is not a single closed loop of
// lines or a single circle.
var ErrNotClosed = errors.New("bake: boundary is not closed")

// Region is an area of the sketch to extrude. Each boundary is either one
// circle id or the ids of lines forming one closed loop, in any order.
type Region struct {
	Outline []sketch.ID
	Holes   [][]sketch.ID
}

// boundary is a resolved closed curve.
type boundary struct {
	name     string
	vertices [][2]float64 // polygon loop
	circle   *Circle      // or a circle
}

func (b *boundary) profile(k kernel.Kernel) (kernel.Profile, error) {
	if b.circle != nil {
		return k.Circle(b.circle.CX, b.circle.CY, b.circle.Radius)
	}
	return k.Polygon(b.vertices)
}

// contains reports whether the point (x, y) lies inside b.
func (b *boundary) contains(x, y float64) bool {
	if b.circle != nil {
		return math.Hypot(x-b.circle.CX, y-b.circle.CY) < b.circle.Radius
	}
	in := false
	vs := b.vertices
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		if (vs[i][1] > y) != (vs[j][1] > y) &&
			x < (vs[j][0]-vs[i][0])*(y-vs[i][1])/(vs[j][1]-vs[i][1])+vs[i][0] {
			in = !in
		}
	}
	return in
}

// anchor returns a point on b.
func (b *boundary) anchor() (float64, float64) {
	if b.circle != nil {
		return b.circle.CX + b.circle.Radius, b.circle.CY
	}
	return b.vertices[0][0], b.vertices[0][1]
}

// resolve turns boundary ids into coordinates.
func resolve(sk *sketch.Solver, ids []sketch.ID) (*boundary, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty boundary", ErrNotClosed)
	}
	if c, ok := sk.Circle(ids[0]); ok {
		if len(ids) != 1 {
			return nil, fmt.Errorf("%w: circle %s mixed with other entities", ErrNotClosed, c.ID)
		}
		center, _ := sk.Point(c.Center)
		return &boundary{
			name:   c.ID.String(),
			circle: &Circle{ID: c.ID.String(), CX: center.X, CY: center.Y, Radius: c.Radius},
		}, nil
	}

	lines := make([]sketch.Line, 0, len(ids))
	for _, id := range ids {
		l, ok := sk.Line(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a line", sketch.ErrInvalidEntityReference, id)
		}
		lines = append(lines, l)
	}
	order, err := chain(lines)
	if err != nil {
		return nil, err
	}
	b := &boundary{name: lines[0].ID.String()}
	for _, id := range order {
		p, _ := sk.Point(id)
		b.vertices = append(b.vertices, [2]float64{p.X, p.Y})
	}
	return b, nil
}

// chain orders the endpoints of lines into a single closed walk.
func chain(lines []sketch.Line) ([]sketch.ID, error) {
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: a loop needs at least 3 lines, got %d", ErrNotClosed, len(lines))
	}
	adj := make(map[sketch.ID][]int)
	for i, l := range lines {
		adj[l.P1] = append(adj[l.P1], i)
		adj[l.P2] = append(adj[l.P2], i)
	}
	for p, ls := range adj {
		if len(ls) != 2 {
			return nil, fmt.Errorf("%w: point %s joins %d lines", ErrNotClosed, p, len(ls))
		}
	}

	used := make([]bool, len(lines))
	start := lines[0].P1
	order := []sketch.ID{start}
	cur, edge := start, 0
	for {
		used[edge] = true
		l := lines[edge]
		next := l.P1
		if next == cur {
			next = l.P2
		}
		if next == start {
			break
		}
		order = append(order, next)
		cur = next
		edge = -1
		for _, i := range adj[cur] {
			if !used[i] {
				edge = i
				break
			}
		}
		if edge < 0 {
			return nil, fmt.Errorf("%w: walk stopped at %s", ErrNotClosed, cur)
		}
	}
	if len(order) != len(lines) {
		return nil, fmt.Errorf("%w: lines form more than one loop", ErrNotClosed)
	}
	return order, nil
}

// Extrude builds the mesh of r lifted to height.
func Extrude(sk *sketch.Solver, k kernel.Kernel, r Region, height float64) (*kernel.Mesh, error) {
	if !sk.Initialized() {
		return nil, sketch.ErrNotInitialized
	}
	outer, err := resolve(sk, r.Outline)
	if err != nil {
		return nil, fmt.Errorf("outline: %w", err)
	}
	holes := make([]*boundary, 0, len(r.Holes))
	for i, h := range r.Holes {
		b, err := resolve(sk, h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		holes = append(holes, b)
	}
	return extrude(k, outer, holes, height)
}

func extrude(k kernel.Kernel, outer *boundary, holes []*boundary, height float64) (*kernel.Mesh, error) {
	p, err := outer.profile(k)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", outer.name, err)
	}
	for _, h := range holes {
		hp, err := h.profile(k)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", h.name, err)
		}
		p = k.DifferenceProfile(p, hp)
	}
	s, err := k.Extrude(p, height)
	if err != nil {
		return nil, fmt.Errorf("extrude %s: %w", outer.name, err)
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("bake: ToMesh failed for %s: %w", outer.name, err)
	}
	mesh.Name = outer.name
	return mesh, nil
}

// Regions finds every closed region of sk: each circle and each connected
// set of lines that forms a single loop. A boundary lying inside another
// becomes a hole of the innermost boundary enclosing it. Open chains and
// arcs are ignored.
func Regions(sk *sketch.Solver) ([]Region, error) {
	if !sk.Initialized() {
		return nil, sketch.ErrNotInitialized
	}

	var (
		ids    [][]sketch.ID
		bounds []*boundary
	)
	for _, group := range loopCandidates(sk) {
		b, err := resolve(sk, group)
		if errors.Is(err, ErrNotClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, group)
		bounds = append(bounds, b)
	}

	// parent[i] is the smallest boundary containing i, or -1.
	parent := make([]int, len(bounds))
	for i, b := range bounds {
		parent[i] = -1
		x, y := b.anchor()
		for j, o := range bounds {
			if i == j || !o.contains(x, y) || o.area() <= b.area() {
				continue
			}
			if parent[i] < 0 || o.area() < bounds[parent[i]].area() {
				parent[i] = j
			}
		}
	}

	// Boundaries at even depth are outlines; odd depth are holes.
	depth := func(i int) int {
		d := 0
		for p := parent[i]; p >= 0; p = parent[p] {
			d++
		}
		return d
	}
	index := make(map[int]int)
	var regions []Region
	for i := range bounds {
		if depth(i)%2 == 0 {
			index[i] = len(regions)
			regions = append(regions, Region{Outline: ids[i]})
		}
	}
	for i := range bounds {
		if depth(i)%2 == 1 {
			r := &regions[index[parent[i]]]
			r.Holes = append(r.Holes, ids[i])
		}
	}
	return regions, nil
}

// ExtrudeAll extrudes every region Regions finds.
func ExtrudeAll(sk *sketch.Solver, k kernel.Kernel, height float64) ([]*kernel.Mesh, error) {
	regions, err := Regions(sk)
	if err != nil {
		return nil, err
	}
	meshes := make([]*kernel.Mesh, 0, len(regions))
	for _, r := range regions {
		m, err := Extrude(sk, k, r, height)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func (b *boundary) area() float64 {
	if b.circle != nil {
		return math.Pi * b.circle.Radius * b.circle.Radius
	}
	var a float64
	vs := b.vertices
	for i := range vs {
		j := (i + 1) % len(vs)
		a += vs[i][0]*vs[j][1] - vs[j][0]*vs[i][1]
	}
	return math.Abs(a) / 2
}

// loopCandidates groups the lines of sk by connectivity and lists each
// circle on its own. Groups are ordered by their smallest id.
func loopCandidates(sk *sketch.Solver) [][]sketch.ID {
	parent := make(map[sketch.ID]sketch.ID)
	var find func(sketch.ID) sketch.ID
	find = func(id sketch.ID) sketch.ID {
		p, ok := parent[id]
		if !ok || p == id {
			parent[id] = id
			return id
		}
		root := find(p)
		parent[id] = root
		return root
	}

	var (
		lines  []sketch.Line
		groups [][]sketch.ID
	)
	for _, e := range sk.Entities() {
		switch v := e.(type) {
		case sketch.Line:
			lines = append(lines, v)
			parent[find(v.P1)] = find(v.P2)
		case sketch.Circle:
			groups = append(groups, []sketch.ID{v.ID})
		}
	}

	byRoot := make(map[sketch.ID][]sketch.ID)
	var roots []sketch.ID
	for _, l := range lines {
		r := find(l.P1)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], l.ID)
	}
	for _, r := range roots {
		groups = append(groups, byRoot[r])
	}
	slices.SortFunc(groups, func(a, b []sketch.ID) int {
		return cmp.Compare(a[0], b[0])
	})
	return groups
}
