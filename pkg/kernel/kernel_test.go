package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      Mesh
		vertices  int
		triangles int
	}{
		{"empty", Mesh{}, 0, 0},
		{"one vertex", Mesh{Vertices: []float32{1, 2, 3}}, 1, 0},
		{"quad", Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2, 2, 3, 0},
		}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.vertices, tt.mesh.VertexCount())
			assert.Equal(t, tt.triangles, tt.mesh.TriangleCount())
			assert.Equal(t, tt.vertices == 0, tt.mesh.IsEmpty())
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{
		1, 2, 3,
		-1, 5, 0,
		4, -2, 7,
	}}
	min, max := m.Bounds()
	assert.Equal(t, [3]float32{-1, -2, 0}, min)
	assert.Equal(t, [3]float32{4, 5, 7}, max)

	min, max = (&Mesh{}).Bounds()
	assert.Zero(t, min)
	assert.Zero(t, max)
}

type boxProfile struct{ min, max [2]float64 }

func (p boxProfile) Bounds() (min, max [2]float64) { return p.min, p.max }

type boxSolid struct{ min, max [3]float64 }

func (s boxSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

// boundsKernel tracks bounding boxes only.
type boundsKernel struct{}

func (boundsKernel) Polygon(vs [][2]float64) (Profile, error) {
	p := boxProfile{min: vs[0], max: vs[0]}
	for _, v := range vs[1:] {
		for i := range 2 {
			p.min[i] = min(p.min[i], v[i])
			p.max[i] = max(p.max[i], v[i])
		}
	}
	return p, nil
}

func (boundsKernel) Circle(cx, cy, r float64) (Profile, error) {
	return boxProfile{min: [2]float64{cx - r, cy - r}, max: [2]float64{cx + r, cy + r}}, nil
}

func (boundsKernel) UnionProfile(a, _ Profile) Profile      { return a }
func (boundsKernel) DifferenceProfile(a, _ Profile) Profile { return a }

func (boundsKernel) Extrude(p Profile, h float64) (Solid, error) {
	lo, hi := p.Bounds()
	return boxSolid{min: [3]float64{lo[0], lo[1], 0}, max: [3]float64{hi[0], hi[1], h}}, nil
}

func (boundsKernel) Union(a, _ Solid) Solid      { return a }
func (boundsKernel) Difference(a, _ Solid) Solid { return a }

func (boundsKernel) Translate(s Solid, x, y, z float64) Solid {
	b := s.(boxSolid)
	d := [3]float64{x, y, z}
	for i := range 3 {
		b.min[i] += d[i]
		b.max[i] += d[i]
	}
	return b
}

func (boundsKernel) ToMesh(Solid) (*Mesh, error) { return &Mesh{}, nil }

var _ Kernel = boundsKernel{}

func TestKernelContract(t *testing.T) {
	var k Kernel = boundsKernel{}
	p, err := k.Polygon([][2]float64{{0, 0}, {4, 0}, {4, 3}})
	require.NoError(t, err)
	s, err := k.Extrude(p, 2)
	require.NoError(t, err)
	s = k.Translate(s, 1, 1, 1)

	min, max := s.BoundingBox()
	assert.Equal(t, [3]float64{1, 1, 1}, min)
	assert.Equal(t, [3]float64{5, 4, 3}, max)
}
