package scene

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dyuri/gdsview/internal/model"
	"gopkg.in/yaml.v3"
)

// Writer handles writing scenes in the .gdsiiview format
type Writer struct {
	w io.Writer
}

// NewWriter creates a new scene writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write outputs the scene
func (w *Writer) Write(s *Scene) error {
	for _, c := range s.Comments {
		if _, err := fmt.Fprintf(w.w, "comment: %s\n", c); err != nil {
			return err
		}
	}

	for i, p := range s.Parts {
		if i > 0 || len(s.Comments) > 0 {
			fmt.Fprintln(w.w)
		}
		if err := w.writePart(p); err != nil {
			return fmt.Errorf("write part %s: %w", p.Path, err)
		}
	}
	return nil
}

func (w *Writer) writePart(p PartConfig) error {
	if _, err := fmt.Fprintf(w.w, "gdsii: %s\n", quote(p.Path)); err != nil {
		return err
	}

	for _, st := range p.Transform {
		switch {
		case st.Rotate != nil:
			fmt.Fprintf(w.w, "rotate: %s %s\n", st.Rotate.Axis, formatFloat(st.Rotate.Degrees))
		case st.Translate != nil:
			t := st.Translate
			fmt.Fprintf(w.w, "translate: %s %s %s\n", formatFloat(t[0]), formatFloat(t[1]), formatFloat(t[2]))
		}
	}

	for _, m := range p.Meshes {
		fmt.Fprintf(w.w, "layer: %d\n", m.Layer)
		fmt.Fprintf(w.w, "color: %d %d %d\n", m.Color.R, m.Color.G, m.Color.B)
		fmt.Fprintf(w.w, "zbounds: %s %s\n", formatFloat32(m.ZBounds[0]), formatFloat32(m.ZBounds[1]))
		if m.STL != "" {
			fmt.Fprintf(w.w, "stl: %s\n", quote(m.STL))
		}
	}
	return nil
}

// WriteYAML writes the scene in YAML form
func WriteYAML(out io.Writer, s *Scene) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode yaml scene: %w", err)
	}
	return enc.Close()
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// Generate builds a scene showing every layer of layout that holds
// boundaries. Layers are stacked bottom up in layer order, each thickness
// high, and coloured from the default palette.
func Generate(path string, layout *model.Layout, thickness float32) *Scene {
	p := PartConfig{Path: path}
	z := float32(0)
	for i, lc := range layout.Layers() {
		if lc.Boundaries == 0 {
			continue
		}
		p.Meshes = append(p.Meshes, MeshConfig{
			Layer:   lc.Layer,
			Color:   Palette(i),
			ZBounds: [2]float32{z, z + thickness},
		})
		z += thickness
	}

	s := &Scene{Parts: []PartConfig{p}}
	if layout.Name != "" {
		s.Comments = []string{"library " + layout.Name}
	}
	return s
}
