package bake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sketchsolver/pkg/kernel"
	"github.com/chazu/sketchsolver/pkg/kernel/sdfx"
	"github.com/chazu/sketchsolver/pkg/sketch"
)

func newKernel() kernel.Kernel { return sdfx.New(sdfx.WithMeshCells(40)) }

func TestChainOrdersShuffledLines(t *testing.T) {
	sk := newSketch(t)
	ids := rect(t, sk, 0, 0, 4, 2)
	shuffled := []sketch.ID{ids[2], ids[0], ids[3], ids[1]}

	b, err := resolve(sk, shuffled)
	require.NoError(t, err)
	require.Len(t, b.vertices, 4)
	assert.InDelta(t, 8, b.area(), 1e-12)
	assert.True(t, b.contains(1, 1))
	assert.False(t, b.contains(5, 1))
}

func TestResolveRejectsOpenBoundaries(t *testing.T) {
	sk := newSketch(t)
	a := point(t, sk, 0, 0)
	b := point(t, sk, 1, 0)
	c := point(t, sk, 1, 1)
	d := point(t, sk, 0, 1)
	ab, bc, cd := line(t, sk, a, b), line(t, sk, b, c), line(t, sk, c, d)
	tri := rect(t, sk, 5, 5, 6, 6)
	circ := circle(t, sk, 0, 0, 1)

	tests := []struct {
		name string
		ids  []sketch.ID
	}{
		{"empty", nil},
		{"too few lines", []sketch.ID{ab, bc}},
		{"open chain", []sketch.ID{ab, bc, cd}},
		{"two loops", append([]sketch.ID{ab, bc, cd, line(t, sk, d, a)}, tri...)},
		{"circle with lines", []sketch.ID{circ, ab}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(sk, tt.ids)
			assert.ErrorIs(t, err, ErrNotClosed)
		})
	}

	_, err := resolve(sk, []sketch.ID{a, b, c})
	assert.ErrorIs(t, err, sketch.ErrInvalidEntityReference)
}

func TestExtrudeRectangleWithHole(t *testing.T) {
	sk := newSketch(t)
	outline := rect(t, sk, 0, 0, 10, 10)
	hole := circle(t, sk, 5, 5, 2)
	k := newKernel()

	plain, err := Extrude(sk, k, Region{Outline: outline}, 3)
	require.NoError(t, err)
	holed, err := Extrude(sk, k, Region{Outline: outline, Holes: [][]sketch.ID{{hole}}}, 3)
	require.NoError(t, err)

	assert.Equal(t, outline[0].String(), holed.Name)
	assert.Greater(t, holed.TriangleCount(), plain.TriangleCount())

	min, max := holed.Bounds()
	assert.InDelta(t, 0, min[0], 0.5)
	assert.InDelta(t, 10, max[1], 0.5)
	assert.InDelta(t, 3, max[2], 0.5)
}

func TestExtrudeCircle(t *testing.T) {
	sk := newSketch(t)
	c := circle(t, sk, 0, 0, 4)
	m, err := Extrude(sk, newKernel(), Region{Outline: []sketch.ID{c}}, 2)
	require.NoError(t, err)
	assert.Equal(t, c.String(), m.Name)

	min, max := m.Bounds()
	assert.InDelta(t, -4, min[0], 0.5)
	assert.InDelta(t, 4, max[0], 0.5)
}

func TestExtrudeErrors(t *testing.T) {
	sk := newSketch(t)
	outline := rect(t, sk, 0, 0, 1, 1)

	_, err := Extrude(sk, newKernel(), Region{Outline: outline[:3]}, 1)
	assert.ErrorIs(t, err, ErrNotClosed)

	_, err = Extrude(sk, newKernel(), Region{Outline: outline}, -1)
	assert.Error(t, err)

	_, err = Extrude(sketch.New(), newKernel(), Region{Outline: outline}, 1)
	assert.ErrorIs(t, err, sketch.ErrNotInitialized)
}

func TestRegions(t *testing.T) {
	sk := newSketch(t)
	outer := rect(t, sk, 0, 0, 10, 10)
	hole := circle(t, sk, 3, 3, 1)
	island := rect(t, sk, 5, 5, 8, 8)
	boss := circle(t, sk, 6.5, 6.5, 1)
	separate := circle(t, sk, 20, 0, 2)

	// An open chain is ignored.
	a := point(t, sk, 30, 0)
	b := point(t, sk, 31, 0)
	line(t, sk, a, b)

	regions, err := Regions(sk)
	require.NoError(t, err)
	require.Len(t, regions, 3)

	assert.Equal(t, outer, regions[0].Outline)
	assert.ElementsMatch(t, [][]sketch.ID{{hole}, island}, regions[0].Holes)
	assert.Equal(t, []sketch.ID{boss}, regions[1].Outline)
	assert.Empty(t, regions[1].Holes)
	assert.Equal(t, []sketch.ID{separate}, regions[2].Outline)
}

func TestExtrudeAll(t *testing.T) {
	sk := newSketch(t)
	rect(t, sk, 0, 0, 4, 4)
	circle(t, sk, 10, 0, 1)

	meshes, err := ExtrudeAll(sk, newKernel(), 1)
	require.NoError(t, err)
	require.Len(t, meshes, 2)
	for _, m := range meshes {
		assert.False(t, m.IsEmpty())
		assert.NotEmpty(t, m.Name)
	}
}
