package model

import "sort"

// ContextInfoName is the structure name layout editors use to stash tool
// metadata. It never carries drawable geometry.
const ContextInfoName = "$$$CONTEXT_INFO$$$"

// Layout represents a complete parsed stream file.
// A Layout is read-only once returned by the parser.
type Layout struct {
	Version            int16   // HEADER record, 0 if absent
	Name               string  // LIBNAME record
	UserUnitsPerDBUnit float64 // First UNITS value
	MetersPerDBUnit    float64 // Second UNITS value
	Structures         []Structure
}

// Structure is a named collection of elements (a cell).
type Structure struct {
	Name     string
	Elements []Element
}

// Point is a coordinate pair in database units
type Point struct {
	X int32
	Y int32
}

// ElementKind identifies the element variant
type ElementKind int

const (
	Boundary ElementKind = iota // Filled polygon
	Path                        // Stroked line
	SRef                        // Single structure reference
	ARef                        // Array structure reference
	Box                         // Rectangle outline
)

func (k ElementKind) String() string {
	switch k {
	case Boundary:
		return "BOUNDARY"
	case Path:
		return "PATH"
	case SRef:
		return "SREF"
	case ARef:
		return "AREF"
	case Box:
		return "BOX"
	}
	return "UNKNOWN"
}

// PathType defines the end cap of a path
type PathType int16

const (
	PathFlush  PathType = 0 // Square end flush with the last point
	PathRound  PathType = 1 // Round end
	PathSquare PathType = 2 // Square end extended by half the width
)

// Element is one geometric item of a structure.
// Path is set only for Path elements and Ref only for SRef/ARef elements.
type Element struct {
	Kind     ElementKind
	Layer    int16
	DataType int16
	Points   []Point
	Path     *PathAttrs
	Ref      *RefAttrs
}

// PathAttrs holds the stroke attributes of a Path element
type PathAttrs struct {
	Type  PathType
	Width int32 // Negative means absolute width
}

// RefAttrs holds the instancing attributes of an SRef or ARef element.
type RefAttrs struct {
	Name      string
	Target    int   // Index into Layout.Structures, -1 when unresolved
	Cols      int16 // ARef only
	Rows      int16 // ARef only
	Transform Transform
}

// Transform is the STRANS/MAG/ANGLE group of a reference
type Transform struct {
	Reflect         bool    // Reflect about the x-axis before rotation
	Angle           float64 // Counter-clockwise rotation in degrees
	AngleIsAbsolute bool
	Magnification   float64 // 1 means no scaling
	MagIsAbsolute   bool
}

// NewElement creates an element of the given kind with the attribute
// group that kind carries, initialized to the format defaults.
func NewElement(kind ElementKind) Element {
	el := Element{Kind: kind}
	switch kind {
	case Path:
		el.Path = &PathAttrs{Type: PathFlush}
	case SRef, ARef:
		el.Ref = &RefAttrs{
			Target:    -1,
			Cols:      1,
			Rows:      1,
			Transform: Transform{Magnification: 1},
		}
	}
	return el
}

// NewLayout creates an empty layout with unit scale factors
func NewLayout() *Layout {
	return &Layout{
		UserUnitsPerDBUnit: 1,
		MetersPerDBUnit:    1,
		Structures:         make([]Structure, 0),
	}
}

// Structure returns the first structure with exactly the given name.
func (l *Layout) Structure(name string) (*Structure, bool) {
	for i := range l.Structures {
		if l.Structures[i].Name == name {
			return &l.Structures[i], true
		}
	}
	return nil, false
}

// Resolve returns the structure a reference points at. It returns false for
// non-reference elements and for references the parser could not match.
func (l *Layout) Resolve(el *Element) (*Structure, bool) {
	if el.Ref == nil || el.Ref.Target < 0 || el.Ref.Target >= len(l.Structures) {
		return nil, false
	}
	return &l.Structures[el.Ref.Target], true
}

// LayerCount summarizes the elements found on one layer
type LayerCount struct {
	Layer      int16
	Boundaries int
	Paths      int
	Boxes      int
}

// Layers returns per-layer element counts sorted by layer number.
// References carry no layer and are not counted.
func (l *Layout) Layers() []LayerCount {
	byLayer := make(map[int16]*LayerCount)
	for _, s := range l.Structures {
		for _, el := range s.Elements {
			if el.Ref != nil {
				continue
			}
			lc, ok := byLayer[el.Layer]
			if !ok {
				lc = &LayerCount{Layer: el.Layer}
				byLayer[el.Layer] = lc
			}
			switch el.Kind {
			case Boundary:
				lc.Boundaries++
			case Path:
				lc.Paths++
			case Box:
				lc.Boxes++
			}
		}
	}

	result := make([]LayerCount, 0, len(byLayer))
	for _, lc := range byLayer {
		result = append(result, *lc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Layer < result[j].Layer })
	return result
}

// ElementCount returns the total number of elements in all structures
func (l *Layout) ElementCount() int {
	n := 0
	for _, s := range l.Structures {
		n += len(s.Elements)
	}
	return n
}

// FilterLayers returns a copy of the layout holding only the geometry on
// layers keep accepts. References and the context info structure are kept
// whole. Point slices are shared with l.
func (l *Layout) FilterLayers(keep func(layer int16) bool) *Layout {
	out := *l
	out.Structures = make([]Structure, len(l.Structures))
	for i, s := range l.Structures {
		out.Structures[i] = Structure{Name: s.Name}
		if s.Name == ContextInfoName {
			out.Structures[i].Elements = append([]Element(nil), s.Elements...)
			continue
		}
		for _, el := range s.Elements {
			if el.Ref != nil || keep(el.Layer) {
				out.Structures[i].Elements = append(out.Structures[i].Elements, el)
			}
		}
	}
	return &out
}
