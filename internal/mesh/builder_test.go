package mesh

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/dyuri/gdsview/internal/model"
	"github.com/ungerik/go3d/float64/mat4"
	"github.com/ungerik/go3d/float64/vec4"
)

func boundary(layer int16, pts ...model.Point) model.Element {
	el := model.NewElement(model.Boundary)
	el.Layer = layer
	el.Points = pts
	return el
}

// squareLayout holds one 1x1 model-unit square on layer 1, wound clockwise
func squareLayout() *model.Layout {
	l := model.NewLayout()
	l.UserUnitsPerDBUnit = 1e-3
	l.MetersPerDBUnit = 1e-9
	l.Structures = []model.Structure{{
		Name:     "TOP",
		Elements: []model.Element{boundary(1, model.Point{X: 0, Y: 0}, model.Point{X: 0, Y: 1000}, model.Point{X: 1000, Y: 1000}, model.Point{X: 1000, Y: 0}, model.Point{X: 0, Y: 0})},
	}}
	return l
}

func length(v [3]float32) float64 {
	return math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
}

// TestBuildSquare tests the extrusion of a single square
func TestBuildSquare(t *testing.T) {
	m := Build(squareLayout(), 1, [2]float32{0, 10}, Color{R: 1})

	if m.Stats.CapTriangles != 2 {
		t.Errorf("CapTriangles = %d, want 2", m.Stats.CapTriangles)
	}
	if m.Stats.WallTriangles != 8 {
		t.Errorf("WallTriangles = %d, want 8", m.Stats.WallTriangles)
	}
	if m.TriangleCount() != 8+2*2 {
		t.Errorf("TriangleCount = %d, want 12", m.TriangleCount())
	}
	if len(m.Vertices)%(3*FloatsPerVertex) != 0 {
		t.Errorf("len(Vertices) = %d, not whole triangles", len(m.Vertices))
	}
	if m.Color.R != 1 || m.Layer != 1 {
		t.Errorf("Mesh carries layer %d colour %v, want 1 and red", m.Layer, m.Color)
	}

	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		if l := length(v.Normal); math.Abs(l-1) > 1e-6 {
			t.Errorf("|normal| of vertex %d = %v, want 1", i, l)
		}
		if v.Position[2] != 0 && v.Position[2] != 10 {
			t.Errorf("Vertex %d at z = %v, want 0 or 10", i, v.Position[2])
		}
	}
}

// TestBuildFacesOutward tests that every triangle winds counter-clockwise
// when seen from the side its normal points to
func TestBuildFacesOutward(t *testing.T) {
	for _, layout := range []*model.Layout{squareLayout(), reversedSquare()} {
		m := Build(layout, 1, [2]float32{0, 10}, Color{})
		for tri := 0; tri < m.TriangleCount(); tri++ {
			a, b, c := m.Vertex(tri*3), m.Vertex(tri*3+1), m.Vertex(tri*3+2)
			face := cross(sub(b.Position, a.Position), sub(c.Position, a.Position))
			if dot(face, a.Normal) <= 0 {
				t.Errorf("Triangle %d winds against its normal %v", tri, a.Normal)
			}

			// Normals point away from the centre of the solid
			centroid := [3]float32{
				(a.Position[0] + b.Position[0] + c.Position[0]) / 3,
				(a.Position[1] + b.Position[1] + c.Position[1]) / 3,
				(a.Position[2] + b.Position[2] + c.Position[2]) / 3,
			}
			if dot(sub(centroid, [3]float32{0.5, 0.5, 5}), a.Normal) <= 0 {
				t.Errorf("Triangle %d normal %v points inward", tri, a.Normal)
			}
		}
	}
}

func reversedSquare() *model.Layout {
	l := squareLayout()
	pts := l.Structures[0].Elements[0].Points
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
	return l
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func TestBuildSwapsZBounds(t *testing.T) {
	m := Build(squareLayout(), 1, [2]float32{10, 0}, Color{})
	if m.ZBounds != [2]float32{0, 10} {
		t.Errorf("ZBounds = %v, want [0 10]", m.ZBounds)
	}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		if v.Normal[2] == 1 && v.Position[2] != 10 {
			t.Errorf("Upward cap vertex %d at z = %v, want 10", i, v.Position[2])
		}
	}
}

func TestBuildSkipsContextInfo(t *testing.T) {
	l := squareLayout()
	l.Structures[0].Name = model.ContextInfoName

	for _, layer := range []int16{0, 1, 2} {
		if m := Build(l, layer, [2]float32{0, 1}, Color{}); !m.IsEmpty() {
			t.Errorf("Layer %d: got %d triangles from %s", layer, m.TriangleCount(), model.ContextInfoName)
		}
	}
}

func TestBuildFiltersLayerAndKind(t *testing.T) {
	l := squareLayout()
	path := model.NewElement(model.Path)
	path.Layer = 1
	path.Points = []model.Point{{X: 0, Y: 0}, {X: 0, Y: 1000}, {X: 1000, Y: 1000}}
	l.Structures[0].Elements = append(l.Structures[0].Elements,
		boundary(2, model.Point{X: 0, Y: 0}, model.Point{X: 0, Y: 500}, model.Point{X: 500, Y: 500}, model.Point{X: 0, Y: 0}),
		path,
	)

	if m := Build(l, 1, [2]float32{0, 1}, Color{}); m.Stats.Boundaries != 1 {
		t.Errorf("Layer 1 Boundaries = %d, want 1", m.Stats.Boundaries)
	}
	if m := Build(l, 2, [2]float32{0, 1}, Color{}); m.Stats.Boundaries != 1 || m.Stats.CapTriangles != 1 {
		t.Errorf("Layer 2 stats = %+v, want one triangle boundary", m.Stats)
	}
}

func TestBuildSkipsDegenerate(t *testing.T) {
	l := model.NewLayout()
	l.Structures = []model.Structure{{
		Name: "TOP",
		Elements: []model.Element{
			boundary(1),
			boundary(1, model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}, model.Point{X: 0, Y: 0}),
			boundary(1, model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}, model.Point{X: 10, Y: 0}, model.Point{X: 0, Y: 0}),
		},
	}}

	m := Build(l, 1, [2]float32{0, 1}, Color{})
	if !m.IsEmpty() {
		t.Errorf("Got %d triangles from degenerate boundaries", m.TriangleCount())
	}
	if m.Stats.Degenerate != 3 {
		t.Errorf("Degenerate = %d, want 3", m.Stats.Degenerate)
	}
}

type emptyTriangulator struct{}

func (emptyTriangulator) Triangulate(g PSLG) (Triangulation, error) {
	return Triangulation{Points: g.Points}, nil
}

func TestBuildEmptyTriangulationKeepsWalls(t *testing.T) {
	m := Build(squareLayout(), 1, [2]float32{0, 10}, Color{}, WithTriangulator(emptyTriangulator{}))
	if m.Stats.WallTriangles != 8 || m.TriangleCount() != 8 {
		t.Errorf("Got %d triangles (%d walls), want 8 walls only", m.TriangleCount(), m.Stats.WallTriangles)
	}
	if m.Stats.EmptyTriangulations != 1 {
		t.Errorf("EmptyTriangulations = %d, want 1", m.Stats.EmptyTriangulations)
	}
}

func TestBuildScale(t *testing.T) {
	l := squareLayout()
	l.UserUnitsPerDBUnit = 0
	m := Build(l, 1, [2]float32{0, 1}, Color{})
	if b := m.Bounds(&mat4.Ident); math.Abs(b.MaxX-(1-InsetDelta)) > 1e-6 {
		t.Errorf("MaxX with default scale = %v, want %v", b.MaxX, 1-InsetDelta)
	}

	m = Build(squareLayout(), 1, [2]float32{0, 1}, Color{}, WithScale(1))
	if b := m.Bounds(&mat4.Ident); math.Abs(b.MaxX-(1000-InsetDelta)) > 1e-3 {
		t.Errorf("MaxX with scale 1 = %v, want %v", b.MaxX, 1000-InsetDelta)
	}
}

func TestMeshBounds(t *testing.T) {
	m := Build(squareLayout(), 1, [2]float32{0, 10}, Color{})
	if len(m.BoundPoints) != 8 {
		t.Fatalf("Got %d bound points, want 8", len(m.BoundPoints))
	}

	tr := mat4.Ident
	tr[3] = vec4.T{5, -2, 0, 1}
	b := m.Bounds(&tr)
	want := Bounds{MinX: 5.01, MaxX: 5.99, MinY: -1.99, MaxY: -1.01}
	if math.Abs(b.MinX-want.MinX) > 1e-6 || math.Abs(b.MaxX-want.MaxX) > 1e-6 ||
		math.Abs(b.MinY-want.MinY) > 1e-6 || math.Abs(b.MaxY-want.MaxY) > 1e-6 {
		t.Errorf("Bounds = %+v, want %+v", b, want)
	}

	if !(&Mesh{}).Bounds(&mat4.Ident).IsEmpty() {
		t.Error("Bounds of an empty mesh is not empty")
	}
}

func TestWriteRaw(t *testing.T) {
	m := Build(squareLayout(), 1, [2]float32{0, 10}, Color{})
	var buf bytes.Buffer
	if err := m.WriteRaw(&buf); err != nil {
		t.Fatalf("WriteRaw failed: %v", err)
	}
	if buf.Len() != len(m.Vertices)*4 {
		t.Fatalf("Wrote %d bytes, want %d", buf.Len(), len(m.Vertices)*4)
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32(buf.Bytes()))
	if first != m.Vertices[0] {
		t.Errorf("First float = %v, want %v", first, m.Vertices[0])
	}
}
