// Package preview renders a top-down view of extruded meshes to an image.
package preview

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/gogpu/gg"
	"github.com/ungerik/go3d/float64/mat4"
)

// ErrNothingToDraw is returned when no item has cap geometry
var ErrNothingToDraw = errors.New("nothing to draw")

// Item is one mesh placed in the scene
type Item struct {
	Mesh      *mesh.Mesh
	Transform mat4.T
}

// Options controls the output image
type Options struct {
	Width      int
	Height     int
	Margin     int // Pixels left free on every side
	Background mesh.Color
}

// DefaultOptions returns a 1024x1024 image on a dark background
func DefaultOptions() Options {
	return Options{
		Width:      1024,
		Height:     1024,
		Margin:     16,
		Background: mesh.Color{R: 0.1, G: 0.1, B: 0.12},
	}
}

// Render draws the top caps of all items, lowest top first, looking down
// the z axis. The union of the item bounds is fitted into the image with
// the aspect ratio kept.
func Render(items []Item, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}

	bounds := mesh.EmptyBounds()
	var drawn []Item
	for _, it := range items {
		if it.Mesh == nil || it.Mesh.Stats.CapTriangles == 0 {
			continue
		}
		bounds = bounds.Union(it.Mesh.Bounds(&it.Transform))
		drawn = append(drawn, it)
	}
	if len(drawn) == 0 || bounds.IsEmpty() {
		return nil, ErrNothingToDraw
	}

	// Higher tops are painted last
	sort.SliceStable(drawn, func(i, j int) bool {
		return top(drawn[i]) < top(drawn[j])
	})

	dc := gg.NewContext(opts.Width, opts.Height)
	bg := opts.Background
	dc.ClearWithColor(gg.RGB(float64(bg.R), float64(bg.G), float64(bg.B)))

	fit(dc, bounds, opts)
	for _, it := range drawn {
		if err := drawTop(dc, it); err != nil {
			return nil, fmt.Errorf("draw layer %d: %w", it.Mesh.Layer, err)
		}
	}
	return dc, nil
}

// SavePNG renders items and writes the result to path
func SavePNG(path string, items []Item, opts Options) error {
	dc, err := Render(items, opts)
	if err != nil {
		return err
	}
	defer dc.Close()

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// fit maps bounds onto the image, flipping y so that it grows upwards
func fit(dc *gg.Context, b mesh.Bounds, opts Options) {
	w := float64(opts.Width - 2*opts.Margin)
	h := float64(opts.Height - 2*opts.Margin)
	if w <= 0 || h <= 0 {
		w, h = float64(opts.Width), float64(opts.Height)
	}

	dx, dy := b.MaxX-b.MinX, b.MaxY-b.MinY
	s := 1.0
	switch {
	case dx > 0 && dy > 0:
		s = min(w/dx, h/dy)
	case dx > 0:
		s = w / dx
	case dy > 0:
		s = h / dy
	}

	dc.Translate(float64(opts.Width)/2, float64(opts.Height)/2)
	dc.Scale(s, -s)
	dc.Translate(-(b.MinX+b.MaxX)/2, -(b.MinY+b.MaxY)/2)
}

// drawTop fills the top cap triangles of one item as a single path
func drawTop(dc *gg.Context, it Item) error {
	m := it.Mesh
	dc.SetRGB(float64(m.Color.R), float64(m.Color.G), float64(m.Color.B))
	dc.SetFillRule(gg.FillRuleNonZero)

	for i := 0; i+2 < m.VertexCount(); i += 3 {
		a := m.Vertex(i)
		if a.Normal[2] <= 0 || a.Normal[0] != 0 || a.Normal[1] != 0 {
			continue
		}
		for k := 0; k < 3; k++ {
			p := m.Vertex(i + k).Position
			q := mesh.TransformPoint(&it.Transform, p)
			if k == 0 {
				dc.MoveTo(q[0], q[1])
			} else {
				dc.LineTo(q[0], q[1])
			}
		}
		dc.ClosePath()
	}
	return dc.Fill()
}

// top returns the highest transformed z of an item's bound points
func top(it Item) float64 {
	z := 0.0
	for i, p := range it.Mesh.BoundPoints {
		q := mesh.TransformPoint(&it.Transform, p)
		if i == 0 || q[2] > z {
			z = q[2]
		}
	}
	return z
}
