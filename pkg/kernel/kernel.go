// Package kernel defines the geometry kernel that turns closed sketch
// profiles into solids and meshes. The sdfx subpackage is the
// implementation.
package kernel

// Profile is an opaque handle to a closed 2D region.
type Profile interface {
	// Bounds returns the axis-aligned bounding rectangle.
	Bounds() (min, max [2]float64)
}

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds 2D profiles, extrudes them and tessellates the result.
type Kernel interface {
	// Profiles
	Polygon(vertices [][2]float64) (Profile, error)
	Circle(cx, cy, radius float64) (Profile, error)
	UnionProfile(a, b Profile) Profile
	DifferenceProfile(a, b Profile) Profile

	// Extrude lifts p into a prism from z=0 to z=height.
	Extrude(p Profile, height float64) (Solid, error)

	// Solid operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Translate(s Solid, x, y, z float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
