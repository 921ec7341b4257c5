package sdfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sketchsolver/pkg/kernel"
)

// Coarse meshes keep the marching cubes runs fast.
func newKernel() *SdfxKernel { return New(WithMeshCells(40)) }

func square(t *testing.T, k *SdfxKernel, size float64) kernel.Profile {
	t.Helper()
	p, err := k.Polygon([][2]float64{{0, 0}, {size, 0}, {size, size}, {0, size}})
	require.NoError(t, err)
	return p
}

func TestPolygonBounds(t *testing.T) {
	k := newKernel()
	min, max := square(t, k, 10).Bounds()
	assert.InDeltaSlice(t, []float64{0, 0}, min[:], 1e-9)
	assert.InDeltaSlice(t, []float64{10, 10}, max[:], 1e-9)
}

func TestPolygonNeedsThreeVertices(t *testing.T) {
	_, err := newKernel().Polygon([][2]float64{{0, 0}, {1, 1}})
	assert.Error(t, err)
}

func TestCircleBounds(t *testing.T) {
	p, err := newKernel().Circle(5, -2, 3)
	require.NoError(t, err)
	min, max := p.Bounds()
	assert.InDeltaSlice(t, []float64{2, -5}, min[:], 1e-9)
	assert.InDeltaSlice(t, []float64{8, 1}, max[:], 1e-9)
}

func TestCircleRejectsBadRadius(t *testing.T) {
	_, err := newKernel().Circle(0, 0, -1)
	assert.Error(t, err)
}

func TestExtrudeStandsOnBase(t *testing.T) {
	k := newKernel()
	s, err := k.Extrude(square(t, k, 10), 4)
	require.NoError(t, err)

	min, max := s.BoundingBox()
	assert.InDeltaSlice(t, []float64{0, 0, 0}, min[:], 1e-9)
	assert.InDeltaSlice(t, []float64{10, 10, 4}, max[:], 1e-9)

	_, err = k.Extrude(square(t, k, 10), 0)
	assert.Error(t, err)
}

func TestToMesh(t *testing.T) {
	k := newKernel()
	s, err := k.Extrude(square(t, k, 10), 4)
	require.NoError(t, err)

	m, err := k.ToMesh(s)
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	assert.Len(t, m.Normals, len(m.Vertices))
	assert.Len(t, m.Indices, m.TriangleCount()*3)

	min, max := m.Bounds()
	const tol = 0.5
	assert.InDelta(t, 0, min[0], tol)
	assert.InDelta(t, 10, max[0], tol)
	assert.InDelta(t, 4, max[2], tol)
}

func TestProfileWithHole(t *testing.T) {
	k := newKernel()
	hole, err := k.Circle(5, 5, 2)
	require.NoError(t, err)

	plain, err := k.Extrude(square(t, k, 10), 4)
	require.NoError(t, err)
	holed, err := k.Extrude(k.DifferenceProfile(square(t, k, 10), hole), 4)
	require.NoError(t, err)

	plainMesh, err := k.ToMesh(plain)
	require.NoError(t, err)
	holedMesh, err := k.ToMesh(holed)
	require.NoError(t, err)
	assert.Greater(t, holedMesh.TriangleCount(), plainMesh.TriangleCount(),
		"the hole wall adds triangles")
}

func TestUnionProfile(t *testing.T) {
	k := newKernel()
	c, err := k.Circle(10, 5, 3)
	require.NoError(t, err)
	u := k.UnionProfile(square(t, k, 10), c)
	min, max := u.Bounds()
	assert.InDelta(t, 0, min[0], 1e-9)
	assert.InDelta(t, 13, max[0], 1e-9)
}

func TestSolidOps(t *testing.T) {
	k := newKernel()
	a, err := k.Extrude(square(t, k, 10), 2)
	require.NoError(t, err)
	b := k.Translate(a, 5, 0, 1)

	min, max := b.BoundingBox()
	assert.InDeltaSlice(t, []float64{5, 0, 1}, min[:], 1e-9)
	assert.InDeltaSlice(t, []float64{15, 10, 3}, max[:], 1e-9)

	m, err := k.ToMesh(k.Union(a, b))
	require.NoError(t, err)
	assert.False(t, m.IsEmpty())

	m, err = k.ToMesh(k.Difference(a, b))
	require.NoError(t, err)
	assert.False(t, m.IsEmpty())
}
