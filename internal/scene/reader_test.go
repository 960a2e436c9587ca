package scene

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/dyuri/gdsview/internal/model"
)

const sample = `# demo scene
comment: two layers of the test chip
gdsii: "chip v2.gds"
rotate: z 90
translate: 1 0 0
layer: 1
color: 255 0 0
zbounds: 0 0.5
layer: 2
color: #00ff00
zbounds: 1.5 0.5
stl: out/layer2.stl

gdsii: /abs/other.gds
layer: 7
`

// TestRead tests parsing of a complete scene file
func TestRead(t *testing.T) {
	s, err := NewReader(strings.NewReader(sample), "/scenes").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(s.Comments) != 1 || s.Comments[0] != "two layers of the test chip" {
		t.Errorf("Comments = %q", s.Comments)
	}
	if len(s.Parts) != 2 {
		t.Fatalf("Got %d parts, want 2", len(s.Parts))
	}

	p := s.Parts[0]
	if p.Path != filepath.Join("/scenes", "chip v2.gds") {
		t.Errorf("Path = %q, want the quoted name resolved against the scene dir", p.Path)
	}
	if len(p.Transform) != 2 || p.Transform[0].Rotate == nil || p.Transform[1].Translate == nil {
		t.Fatalf("Transform = %+v, want rotate then translate", p.Transform)
	}
	if len(p.Meshes) != 2 {
		t.Fatalf("Got %d meshes, want 2", len(p.Meshes))
	}

	m := p.Meshes[0]
	if m.Layer != 1 || m.Color != (RGB{255, 0, 0}) || m.ZBounds != [2]float32{0, 0.5} {
		t.Errorf("Mesh 0 = %+v", m)
	}
	m = p.Meshes[1]
	if m.Layer != 2 || m.Color != (RGB{0, 255, 0}) {
		t.Errorf("Mesh 1 = %+v", m)
	}
	if m.STL != filepath.Join("/scenes", "out/layer2.stl") {
		t.Errorf("STL = %q", m.STL)
	}

	q := s.Parts[1]
	if q.Path != "/abs/other.gds" || len(q.Meshes) != 1 || q.Meshes[0].Color != Palette(7) {
		t.Errorf("Part 1 = %+v, want default colour for layer 7", q)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"layer before part", "layer: 1\n", "line 1"},
		{"color before layer", "gdsii: a.gds\ncolor: 1 2 3\n", "line 2"},
		{"bad axis", "gdsii: a.gds\nrotate: w 10\n", "unknown axis"},
		{"bad number", "gdsii: a.gds\nlayer: 1\nzbounds: 0 high\n", "line 3"},
		{"unknown", "gdsii: a.gds\nscale: 2\n", "unknown directive"},
		{"color range", "gdsii: a.gds\nlayer: 1\ncolor: 300 0 0\n", "0-255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input), "").Read()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Read error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"gdsii: a.gds", []string{"gdsii:", "a.gds"}},
		{"  color:\t1  2 3 \r", []string{"color:", "1", "2", "3"}},
		{`gdsii: "my chip.gds"`, []string{"gdsii:", "my chip.gds"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := tokenize(tt.line)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

// TestMatrix tests that transform steps apply in file order
func TestMatrix(t *testing.T) {
	s, err := NewReader(strings.NewReader(sample), "").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	m, err := s.Parts[0].Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	// (1,0,0) rotated 90 degrees about z is (0,1,0), then moved by (1,0,0)
	p := mesh.TransformPoint(&m, [3]float32{1, 0, 0})
	if math.Abs(p[0]-1) > 1e-12 || math.Abs(p[1]-1) > 1e-12 || math.Abs(p[2]) > 1e-12 {
		t.Errorf("TransformPoint = %v, want [1 1 0]", p)
	}
}

func TestRotationMatrix(t *testing.T) {
	tests := []struct {
		axis string
		in   [3]float32
		want [3]float64
	}{
		{"z", [3]float32{1, 0, 0}, [3]float64{0, 1, 0}},
		{"x", [3]float32{0, 1, 0}, [3]float64{0, 0, 1}},
		{"Y", [3]float32{0, 0, 1}, [3]float64{1, 0, 0}},
	}

	for _, tt := range tests {
		r, err := RotationMatrix(tt.axis, 90)
		if err != nil {
			t.Fatalf("RotationMatrix(%q) failed: %v", tt.axis, err)
		}
		p := mesh.TransformPoint(&r, tt.in)
		for i := range tt.want {
			if math.Abs(p[i]-tt.want[i]) > 1e-12 {
				t.Errorf("RotationMatrix(%q) maps %v to %v, want %v", tt.axis, tt.in, p, tt.want)
				break
			}
		}
	}

	if _, err := RotationMatrix("w", 10); err == nil {
		t.Error("RotationMatrix accepted axis w")
	}
}

func TestMatrixOrder(t *testing.T) {
	pc := PartConfig{Transform: []Step{
		{Translate: &[3]float64{1, 0, 0}},
		{Rotate: &Rotation{Axis: "z", Degrees: 90}},
	}}
	m, err := pc.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	// Moved to (1,0,0) first, then rotated onto +y
	p := mesh.TransformPoint(&m, [3]float32{0, 0, 0})
	if math.Abs(p[0]) > 1e-12 || math.Abs(p[1]-1) > 1e-12 {
		t.Errorf("TransformPoint = %v, want [0 1 0]", p)
	}

	if _, err := (&PartConfig{Transform: []Step{{}}}).Matrix(); err == nil {
		t.Error("Matrix accepted an empty step")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := NewReader(strings.NewReader(sample), "").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(s); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	again, err := NewReader(&buf, "").Read()
	if err != nil {
		t.Fatalf("Read of written scene failed: %v\n%s", err, buf.String())
	}

	if len(again.Parts) != 2 || again.Parts[0].Path != "chip v2.gds" {
		t.Fatalf("Parts = %+v", again.Parts)
	}
	if got, want := again.Parts[0].Meshes[1], s.Parts[0].Meshes[1]; got != want {
		t.Errorf("Mesh = %+v, want %+v", got, want)
	}
	if len(again.Parts[0].Transform) != 2 {
		t.Errorf("Transform = %+v, want 2 steps", again.Parts[0].Transform)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	s, err := NewReader(strings.NewReader(sample), "").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, s); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	again, err := ReadYAML(&buf, "")
	if err != nil {
		t.Fatalf("ReadYAML failed: %v\n%s", err, buf.String())
	}

	if len(again.Parts) != 2 {
		t.Fatalf("Got %d parts, want 2", len(again.Parts))
	}
	m := again.Parts[0].Meshes[1]
	if m.Color != (RGB{0, 255, 0}) || m.ZBounds != [2]float32{1.5, 0.5} || m.STL != "out/layer2.stl" {
		t.Errorf("Mesh = %+v", m)
	}
	if r := again.Parts[0].Transform[0].Rotate; r == nil || r.Axis != "z" || r.Degrees != 90 {
		t.Errorf("Rotate = %+v, want z 90", r)
	}
}

func TestReadYAMLHexColour(t *testing.T) {
	input := `
parts:
  - gdsii: chip.gds
    meshes:
      - layer: 3
        color: "#0080ff"
        zbounds: [0, 1]
`
	s, err := ReadYAML(strings.NewReader(input), "/data")
	if err != nil {
		t.Fatalf("ReadYAML failed: %v", err)
	}
	if s.Parts[0].Path != filepath.Join("/data", "chip.gds") {
		t.Errorf("Path = %q", s.Parts[0].Path)
	}
	if c := s.Parts[0].Meshes[0].Color; c != (RGB{0, 128, 255}) {
		t.Errorf("Color = %v, want 0 128 255", c)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.gdsiiview")
	if err := os.WriteFile(path, []byte("gdsii: chip.gds\nlayer: 1\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	s, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if s.Parts[0].Path != filepath.Join(dir, "chip.gds") {
		t.Errorf("Path = %q", s.Parts[0].Path)
	}
}

func TestGenerate(t *testing.T) {
	b := func(layer int16) model.Element {
		el := model.NewElement(model.Boundary)
		el.Layer = layer
		return el
	}
	path := model.NewElement(model.Path)
	path.Layer = 9

	layout := model.NewLayout()
	layout.Name = "DEMO"
	layout.Structures = []model.Structure{{Name: "TOP", Elements: []model.Element{b(5), b(2), path, b(5)}}}

	s := Generate("chip.gds", layout, 0.5)
	meshes := s.Parts[0].Meshes
	if len(meshes) != 2 {
		t.Fatalf("Got %d meshes, want 2 (path-only layer skipped)", len(meshes))
	}
	if meshes[0].Layer != 2 || meshes[1].Layer != 5 {
		t.Errorf("Layers = %d, %d, want 2, 5", meshes[0].Layer, meshes[1].Layer)
	}
	if meshes[1].ZBounds != [2]float32{0.5, 1} {
		t.Errorf("ZBounds = %v, want [0.5 1]", meshes[1].ZBounds)
	}
	if meshes[0].Color == meshes[1].Color {
		t.Error("Layers share a colour")
	}
	if len(s.Comments) != 1 {
		t.Errorf("Comments = %q, want the library name", s.Comments)
	}
}

func TestNewParts(t *testing.T) {
	s, err := NewReader(strings.NewReader(sample), "").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	parts, err := s.NewParts()
	if err != nil {
		t.Fatalf("NewParts failed: %v", err)
	}
	if len(parts) != 2 || len(parts[0].Specs) != 2 {
		t.Fatalf("Got %d parts, want 2 with 2 meshes in the first", len(parts))
	}
	if c := parts[0].Specs[0].Color; c.R != 1 || c.G != 0 {
		t.Errorf("Spec colour = %v, want red", c)
	}
	if p := mesh.TransformPoint(&parts[0].Transform, [3]float32{0, 0, 0}); p[0] != 1 {
		t.Errorf("Part origin maps to %v, want x = 1", p)
	}
}
