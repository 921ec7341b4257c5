// Package sdfx implements kernel.Kernel on the github.com/deadsy/sdfx
// signed distance field library.
package sdfx

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/sketchsolver/pkg/kernel"
)

var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 200

type profile struct {
	s sdf.SDF2
}

func (p *profile) Bounds() (min, max [2]float64) {
	bb := p.s.BoundingBox()
	return [2]float64{bb.Min.X, bb.Min.Y}, [2]float64{bb.Max.X, bb.Max.Y}
}

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution. Values below one are
// ignored.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func unwrap2(p kernel.Profile) sdf.SDF2 { return p.(*profile).s }
func wrap2(s sdf.SDF2) kernel.Profile   { return &profile{s: s} }

func unwrap3(s kernel.Solid) sdf.SDF3 { return s.(*solid).s }
func wrap3(s sdf.SDF3) kernel.Solid   { return &solid{s: s} }

// Polygon creates a closed polygon. Vertex order may be either winding.
func (k *SdfxKernel) Polygon(vertices [][2]float64) (kernel.Profile, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	vs := make([]v2.Vec, len(vertices))
	for i, v := range vertices {
		vs[i] = v2.Vec{X: v[0], Y: v[1]}
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	return wrap2(s), nil
}

// Circle creates a disc centered at (cx, cy).
func (k *SdfxKernel) Circle(cx, cy, radius float64) (kernel.Profile, error) {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Circle2D: %w", err)
	}
	return wrap2(sdf.Transform2D(s, sdf.Translate2d(v2.Vec{X: cx, Y: cy}))), nil
}

// UnionProfile returns the union of two profiles.
func (k *SdfxKernel) UnionProfile(a, b kernel.Profile) kernel.Profile {
	return wrap2(sdf.Union2D(unwrap2(a), unwrap2(b)))
}

// DifferenceProfile returns a with b cut out.
func (k *SdfxKernel) DifferenceProfile(a, b kernel.Profile) kernel.Profile {
	return wrap2(sdf.Difference2D(unwrap2(a), unwrap2(b)))
}

// Extrude lifts p into a prism standing on the z=0 plane.
// sdf.Extrude3D centers the prism on z=0, so it is shifted up by half its
// height.
func (k *SdfxKernel) Extrude(p kernel.Profile, height float64) (kernel.Solid, error) {
	if height <= 0 {
		return nil, fmt.Errorf("extrusion height must be positive, got %g", height)
	}
	s := sdf.Extrude3D(unwrap2(p), height)
	return wrap3(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap3(sdf.Union3D(unwrap3(a), unwrap3(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap3(sdf.Difference3D(unwrap3(a), unwrap3(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap3(sdf.Transform3D(unwrap3(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes. Every
// triangle gets its own three vertices carrying the face normal.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(unwrap3(s), renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		for j := range 3 {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
