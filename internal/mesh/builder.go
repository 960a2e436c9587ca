package mesh

import (
	"github.com/dyuri/gdsview/internal/logging"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/gogpu/gg"
	"github.com/sirupsen/logrus"
)

const (
	// InsetDelta is how far, in model units, each vertex is pulled in along
	// its adjacent edge normals before walls and caps are built
	InsetDelta = 0.01

	// DefaultScale converts database units to model units when the layout
	// carries no usable UNITS
	DefaultScale = 1e-3
)

var (
	upNormal   = [3]float32{0, 0, 1}
	downNormal = [3]float32{0, 0, -1}
)

// Builder extrudes boundaries into meshes
type Builder struct {
	log          logrus.FieldLogger
	triangulator Triangulator
	scale        float64 // Overrides the layout units when positive
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger sets the logger used for diagnostics
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithTriangulator replaces the default earcut triangulator
func WithTriangulator(t Triangulator) Option {
	return func(b *Builder) {
		if t != nil {
			b.triangulator = t
		}
	}
}

// WithScale sets the database-unit to model-unit factor instead of taking
// it from the layout
func WithScale(scale float64) Option {
	return func(b *Builder) {
		b.scale = scale
	}
}

// NewBuilder creates a builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		log:          logging.Discard(),
		triangulator: Earcut{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build extrudes every boundary on layer between the two z bounds. Structure
// hierarchy is ignored: all structures are scanned except the tool metadata
// structure. Boundaries with fewer than three distinct points are skipped.
func Build(layout *model.Layout, layer int16, zbounds [2]float32, color Color, opts ...Option) *Mesh {
	return NewBuilder(opts...).Build(layout, layer, zbounds, color)
}

// Build implements the package level Build for a configured builder.
// The layout is only read, so concurrent builds on one layout are safe.
func (b *Builder) Build(layout *model.Layout, layer int16, zbounds [2]float32, color Color) *Mesh {
	if zbounds[0] > zbounds[1] {
		zbounds[0], zbounds[1] = zbounds[1], zbounds[0]
	}
	m := &Mesh{Layer: layer, ZBounds: zbounds, Color: color}

	scale := b.scale
	if scale <= 0 {
		scale = layout.UserUnitsPerDBUnit
	}
	if scale <= 0 {
		scale = DefaultScale
	}

	log := b.log.WithField("layer", layer)
	for si := range layout.Structures {
		s := &layout.Structures[si]
		if s.Name == model.ContextInfoName {
			continue
		}
		for ei := range s.Elements {
			el := &s.Elements[ei]
			if el.Kind != model.Boundary || el.Layer != layer {
				continue
			}
			pts := ScalePoints(el.Points, scale)
			if len(pts) < 3 {
				m.Stats.Degenerate++
				log.WithFields(logrus.Fields{
					"structure": s.Name,
					"element":   ei,
					"points":    len(el.Points),
				}).Debug("skipping degenerate boundary")
				continue
			}
			b.extrude(m, pts, log.WithFields(logrus.Fields{"structure": s.Name, "element": ei}))
		}
	}

	log.WithFields(logrus.Fields{
		"boundaries": m.Stats.Boundaries,
		"triangles":  m.TriangleCount(),
	}).Debug("built mesh")
	return m
}

// extrude appends the walls and caps of one outline to m
func (b *Builder) extrude(m *Mesh, pts []gg.Vec2, log logrus.FieldLogger) {
	z1, z2 := float64(m.ZBounds[0]), float64(m.ZBounds[1])
	winding := WindingOf(pts)
	normals := OutwardNormals(pts)
	inset := Inset(pts, normals, InsetDelta)
	m.Stats.Boundaries++

	// Walls, one quad per edge facing along the edge normal
	n := len(inset)
	for i := 0; i < n; i++ {
		p1, p2 := inset[i], inset[(i+1)%n]
		if winding == CW {
			p1, p2 = p2, p1
		}
		nrm := [3]float32{float32(normals[i].X), float32(normals[i].Y), 0}
		m.appendVertex(p1.X, p1.Y, z1, nrm)
		m.appendVertex(p2.X, p2.Y, z1, nrm)
		m.appendVertex(p2.X, p2.Y, z2, nrm)
		m.appendVertex(p2.X, p2.Y, z2, nrm)
		m.appendVertex(p1.X, p1.Y, z2, nrm)
		m.appendVertex(p1.X, p1.Y, z1, nrm)
		m.Stats.WallTriangles += 2
	}

	// Caps
	tri, err := b.triangulator.Triangulate(ClosedPSLG(inset))
	if err != nil {
		log.Debugf("triangulation incomplete: %v", err)
	}
	if len(tri.Triangles) == 0 {
		m.Stats.EmptyTriangulations++
		log.Debug("empty triangulation, walls only")
	}
	for _, t := range tri.Triangles {
		a, c, d := tri.Points[t[0]], tri.Points[t[1]], tri.Points[t[2]]
		if c.Sub(a).Cross(d.Sub(a)) < 0 {
			c, d = d, c
		}
		// Top faces up with counter-clockwise winding, bottom reversed
		m.appendVertex(a.X, a.Y, z2, upNormal)
		m.appendVertex(c.X, c.Y, z2, upNormal)
		m.appendVertex(d.X, d.Y, z2, upNormal)
		m.appendVertex(a.X, a.Y, z1, downNormal)
		m.appendVertex(d.X, d.Y, z1, downNormal)
		m.appendVertex(c.X, c.Y, z1, downNormal)
		m.Stats.CapTriangles++
	}

	for _, p := range inset {
		m.BoundPoints = append(m.BoundPoints,
			[3]float32{float32(p.X), float32(p.Y), float32(z1)},
			[3]float32{float32(p.X), float32(p.Y), float32(z2)},
		)
	}
}
