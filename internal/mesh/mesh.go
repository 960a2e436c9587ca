// Package mesh extrudes the boundaries of one layer into a triangle soup
// ready for upload to a renderer.
package mesh

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/ungerik/go3d/float64/mat4"
	"github.com/ungerik/go3d/float64/vec4"
)

// FloatsPerVertex is the stride of Mesh.Vertices: position then normal
const FloatsPerVertex = 6

// Color is an RGB colour with components in [0, 1]
type Color struct {
	R, G, B float32
}

// Vertex is one entry of the vertex buffer
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// Stats counts what Build did with the boundaries it saw
type Stats struct {
	Boundaries          int // Boundaries on the layer that produced geometry
	Degenerate          int // Boundaries skipped for having fewer than 3 points
	EmptyTriangulations int // Boundaries that got walls but no caps
	WallTriangles       int
	CapTriangles        int // Triangulated faces; each is emitted on both caps
}

// Mesh is the extruded geometry of one layer. Vertices holds three
// vertices per triangle and no indices.
type Mesh struct {
	Layer   int16
	ZBounds [2]float32 // Bottom and top, Bottom <= Top
	Color   Color

	Vertices    []float32    // FloatsPerVertex values per vertex
	BoundPoints [][3]float32 // Outline points at both z bounds
	Stats       Stats
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / FloatsPerVertex
}

// TriangleCount returns the number of triangles
func (m *Mesh) TriangleCount() int {
	return m.VertexCount() / 3
}

// IsEmpty returns true if the mesh has no geometry
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i
func (m *Mesh) Vertex(i int) Vertex {
	f := m.Vertices[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
	return Vertex{
		Position: [3]float32{f[0], f[1], f[2]},
		Normal:   [3]float32{f[3], f[4], f[5]},
	}
}

func (m *Mesh) appendVertex(x, y, z float64, n [3]float32) {
	m.Vertices = append(m.Vertices, float32(x), float32(y), float32(z), n[0], n[1], n[2])
}

// Bounds is an axis-aligned rectangle in the xy plane
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// EmptyBounds returns bounds that any point extends
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
	}
}

// IsEmpty reports whether no point was added
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Extend grows b to include (x, y)
func (b Bounds) Extend(x, y float64) Bounds {
	b.MinX = math.Min(b.MinX, x)
	b.MaxX = math.Max(b.MaxX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxY = math.Max(b.MaxY, y)
	return b
}

// Union returns bounds covering both b and o
func (b Bounds) Union(o Bounds) Bounds {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.MinX, o.MinY).Extend(o.MaxX, o.MaxY)
}

// TransformPoint applies tr to the point p (w = 1)
func TransformPoint(tr *mat4.T, p [3]float32) vec4.T {
	return tr.MulVec4(&vec4.T{float64(p[0]), float64(p[1]), float64(p[2]), 1})
}

// Bounds returns the xy extent of the bound points after applying tr
func (m *Mesh) Bounds(tr *mat4.T) Bounds {
	b := EmptyBounds()
	for _, p := range m.BoundPoints {
		q := TransformPoint(tr, p)
		b = b.Extend(q[0], q[1])
	}
	return b
}

// WriteRaw writes the vertex buffer as little-endian float32 values
func (m *Mesh) WriteRaw(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, m.Vertices)
}
