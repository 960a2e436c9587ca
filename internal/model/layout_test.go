package model

import "testing"

func TestNewElementDefaults(t *testing.T) {
	el := NewElement(ARef)
	if el.Ref == nil {
		t.Fatal("ARef element has no RefAttrs")
	}
	if el.Path != nil {
		t.Error("ARef element should not carry PathAttrs")
	}
	if el.Ref.Target != -1 {
		t.Errorf("Target = %d, want -1", el.Ref.Target)
	}
	if el.Ref.Cols != 1 || el.Ref.Rows != 1 {
		t.Errorf("Cols/Rows = %d/%d, want 1/1", el.Ref.Cols, el.Ref.Rows)
	}
	if el.Ref.Transform.Magnification != 1 {
		t.Errorf("Magnification = %v, want 1", el.Ref.Transform.Magnification)
	}

	b := NewElement(Boundary)
	if b.Ref != nil || b.Path != nil {
		t.Error("Boundary element should not carry attribute groups")
	}
	p := NewElement(Path)
	if p.Path == nil || p.Path.Type != PathFlush {
		t.Errorf("Path attrs = %+v, want flush", p.Path)
	}
}

func TestResolve(t *testing.T) {
	l := NewLayout()
	l.Structures = append(l.Structures,
		Structure{Name: "A"},
		Structure{Name: "B"},
	)

	ref := NewElement(SRef)
	ref.Ref.Name = "B"
	if _, ok := l.Resolve(&ref); ok {
		t.Error("unresolved reference should not resolve")
	}

	ref.Ref.Target = 1
	s, ok := l.Resolve(&ref)
	if !ok {
		t.Fatal("Resolve failed for resolved reference")
	}
	if s.Name != "B" {
		t.Errorf("resolved name = %q, want %q", s.Name, "B")
	}

	ref.Ref.Target = 7
	if _, ok := l.Resolve(&ref); ok {
		t.Error("out-of-range target should not resolve")
	}

	b := NewElement(Boundary)
	if _, ok := l.Resolve(&b); ok {
		t.Error("boundary should not resolve")
	}
}

func TestLayers(t *testing.T) {
	l := NewLayout()
	b1 := NewElement(Boundary)
	b1.Layer = 5
	b2 := NewElement(Boundary)
	b2.Layer = 1
	p := NewElement(Path)
	p.Layer = 5
	ref := NewElement(SRef)
	l.Structures = append(l.Structures,
		Structure{Name: "TOP", Elements: []Element{b1, p, ref}},
		Structure{Name: "SUB", Elements: []Element{b2}},
	)

	layers := l.Layers()
	if len(layers) != 2 {
		t.Fatalf("Got %d layers, want 2", len(layers))
	}
	if layers[0].Layer != 1 || layers[0].Boundaries != 1 {
		t.Errorf("layers[0] = %+v, want layer 1 with 1 boundary", layers[0])
	}
	if layers[1].Layer != 5 || layers[1].Boundaries != 1 || layers[1].Paths != 1 {
		t.Errorf("layers[1] = %+v, want layer 5 with 1 boundary and 1 path", layers[1])
	}
	if n := l.ElementCount(); n != 4 {
		t.Errorf("ElementCount = %d, want 4", n)
	}
}

func TestStructureLookupIsCaseSensitive(t *testing.T) {
	l := NewLayout()
	l.Structures = append(l.Structures, Structure{Name: "Top"})
	if _, ok := l.Structure("TOP"); ok {
		t.Error("lookup should be case-sensitive")
	}
	if _, ok := l.Structure("Top"); !ok {
		t.Error("exact name lookup failed")
	}
}

func TestFilterLayers(t *testing.T) {
	on := func(kind ElementKind, layer int16) Element {
		el := NewElement(kind)
		el.Layer = layer
		return el
	}
	ref := NewElement(SRef)
	ref.Ref.Name = "CELL"

	l := NewLayout()
	l.Name = "LIB"
	l.Structures = []Structure{
		{Name: "TOP", Elements: []Element{on(Boundary, 1), on(Path, 2), ref, on(Box, 1)}},
		{Name: ContextInfoName, Elements: []Element{on(Boundary, 63)}},
	}

	out := l.FilterLayers(func(layer int16) bool { return layer == 1 })
	if out.Name != "LIB" || len(out.Structures) != 2 {
		t.Fatalf("Filtered layout = %q with %d structures", out.Name, len(out.Structures))
	}

	top := out.Structures[0].Elements
	if len(top) != 3 {
		t.Fatalf("Got %d elements in TOP, want 3", len(top))
	}
	if top[0].Kind != Boundary || top[1].Kind != SRef || top[2].Kind != Box {
		t.Errorf("Kinds = %s %s %s, want BOUNDARY SREF BOX", top[0].Kind, top[1].Kind, top[2].Kind)
	}
	if len(out.Structures[1].Elements) != 1 {
		t.Error("Context info structure was filtered")
	}
	if len(l.Structures[0].Elements) != 4 {
		t.Error("FilterLayers modified its receiver")
	}
}
