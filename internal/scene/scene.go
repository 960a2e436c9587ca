// Package scene reads and writes scene files: which layout files to show,
// which layers to extrude from them, and where to place them.
package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/dyuri/gdsview/internal/part"
	"github.com/ungerik/go3d/float64/mat4"
	"github.com/ungerik/go3d/float64/vec4"
)

// Scene is the content of a scene file
type Scene struct {
	Comments []string     `yaml:"comments,omitempty"`
	Parts    []PartConfig `yaml:"parts"`
}

// PartConfig places one layout file in the scene
type PartConfig struct {
	Path      string       `yaml:"gdsii"`
	Transform []Step       `yaml:"transform,omitempty"`
	Meshes    []MeshConfig `yaml:"meshes"`
}

// Step is one placement operation. Exactly one field is set.
type Step struct {
	Rotate    *Rotation   `yaml:"rotate,omitempty"`
	Translate *[3]float64 `yaml:"translate,omitempty"`
}

// Rotation turns a part about a coordinate axis
type Rotation struct {
	Axis    string  `yaml:"axis"` // "x", "y" or "z"
	Degrees float64 `yaml:"degrees"`
}

// MeshConfig requests the extrusion of one layer
type MeshConfig struct {
	Layer   int16      `yaml:"layer"`
	Color   RGB        `yaml:"color"`
	ZBounds [2]float32 `yaml:"zbounds"`
	STL     string     `yaml:"stl,omitempty"`
}

// Matrix composes the transform steps; later steps apply after earlier ones
func (pc *PartConfig) Matrix() (mat4.T, error) {
	m := mat4.Ident
	for i, st := range pc.Transform {
		var step mat4.T
		switch {
		case st.Rotate != nil:
			r, err := RotationMatrix(st.Rotate.Axis, st.Rotate.Degrees)
			if err != nil {
				return m, fmt.Errorf("step %d: %w", i, err)
			}
			step = r
		case st.Translate != nil:
			t := st.Translate
			step = TranslationMatrix(t[0], t[1], t[2])
		default:
			return m, fmt.Errorf("step %d: empty transform step", i)
		}
		m = compose(&step, &m)
	}
	return m, nil
}

// RotationMatrix returns a counter-clockwise rotation by degrees about the
// named axis ("x", "y" or "z")
func RotationMatrix(axis string, degrees float64) (mat4.T, error) {
	rad := degrees * math.Pi / 180
	m := mat4.Ident
	switch strings.ToLower(axis) {
	case "x":
		m.AssignXRotation(rad)
	case "y":
		m.AssignYRotation(rad)
	case "z":
		m.AssignZRotation(rad)
	default:
		return m, fmt.Errorf("unknown rotation axis %q", axis)
	}
	return m, nil
}

// TranslationMatrix returns a translation by (x, y, z)
func TranslationMatrix(x, y, z float64) mat4.T {
	m := mat4.Ident
	m[3] = vec4.T{x, y, z, 1}
	return m
}

// compose returns a*b; b applies first
func compose(a, b *mat4.T) mat4.T {
	var out mat4.T
	for col := range b {
		out[col] = a.MulVec4(&b[col])
	}
	return out
}

// MeshSpecs converts the mesh requests for part loading
func (pc *PartConfig) MeshSpecs() []part.MeshSpec {
	specs := make([]part.MeshSpec, len(pc.Meshes))
	for i, mc := range pc.Meshes {
		specs[i] = part.MeshSpec{
			Layer:   mc.Layer,
			ZBounds: mc.ZBounds,
			Color:   mc.Color.Mesh(),
			STLPath: mc.STL,
		}
	}
	return specs
}

// NewParts creates an unloaded part for every part of the scene
func (s *Scene) NewParts(opts ...part.Option) ([]*part.Part, error) {
	parts := make([]*part.Part, 0, len(s.Parts))
	for i := range s.Parts {
		pc := &s.Parts[i]
		m, err := pc.Matrix()
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", pc.Path, err)
		}
		popts := append([]part.Option{part.WithTransform(m)}, opts...)
		parts = append(parts, part.New(pc.Path, pc.MeshSpecs(), popts...))
	}
	return parts, nil
}
