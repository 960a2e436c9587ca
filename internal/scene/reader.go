package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reader handles reading scenes in the line-oriented .gdsiiview format:
//
//	gdsii: chip.gds
//	rotate: z 90
//	translate: 0 0 1.5
//	layer: 5
//	color: 255 128 0
//	zbounds: 0 0.5
//
// "gdsii:" starts a part, "layer:" starts a mesh of the current part.
// Relative paths are resolved against dir.
type Reader struct {
	scanner *bufio.Scanner
	dir     string
	line    int

	scene *Scene
	part  *PartConfig
	mesh  *MeshConfig
}

// NewReader creates a new scene reader
func NewReader(r io.Reader, dir string) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		dir:     dir,
	}
}

// Read parses the whole file
func (r *Reader) Read() (*Scene, error) {
	r.scene = &Scene{}

	for r.scanner.Scan() {
		r.line++
		fields := tokenize(r.scanner.Text())

		// Skip empty lines and comments
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if err := r.apply(fields[0], fields[1:]); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	r.flushPart()
	return r.scene, nil
}

func (r *Reader) apply(key string, args []string) error {
	switch key {
	case "gdsii:":
		if len(args) != 1 {
			return fmt.Errorf("gdsii: wants one path, got %d values", len(args))
		}
		r.flushPart()
		r.part = &PartConfig{Path: r.resolve(args[0])}

	case "comment:":
		r.scene.Comments = append(r.scene.Comments, strings.Join(args, " "))

	case "transform:":
		// Accepted for compatibility, carries nothing

	case "rotate:":
		if err := r.needPart(key); err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("rotate: wants an axis and an angle")
		}
		axis := strings.ToLower(args[0])
		if axis != "x" && axis != "y" && axis != "z" {
			return fmt.Errorf("rotate: unknown axis %q", args[0])
		}
		deg, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("rotate: angle %q: %w", args[1], err)
		}
		r.part.Transform = append(r.part.Transform, Step{Rotate: &Rotation{Axis: axis, Degrees: deg}})

	case "translate:":
		if err := r.needPart(key); err != nil {
			return err
		}
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("translate: %w", err)
		}
		r.part.Transform = append(r.part.Transform, Step{Translate: &[3]float64{v[0], v[1], v[2]}})

	case "layer:":
		if err := r.needPart(key); err != nil {
			return err
		}
		if len(args) != 1 {
			return fmt.Errorf("layer: wants one number")
		}
		layer, err := strconv.ParseInt(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("layer: %q: %w", args[0], err)
		}
		r.flushMesh()
		r.mesh = &MeshConfig{Layer: int16(layer), Color: Palette(int(layer))}

	case "color:":
		if err := r.needMesh(key); err != nil {
			return err
		}
		c, err := ParseColor(args)
		if err != nil {
			return fmt.Errorf("color: %w", err)
		}
		r.mesh.Color = c

	case "zbounds:":
		if err := r.needMesh(key); err != nil {
			return err
		}
		v, err := parseFloats(args, 2)
		if err != nil {
			return fmt.Errorf("zbounds: %w", err)
		}
		r.mesh.ZBounds = [2]float32{float32(v[0]), float32(v[1])}

	case "stl:":
		if err := r.needMesh(key); err != nil {
			return err
		}
		if len(args) != 1 {
			return fmt.Errorf("stl: wants one path")
		}
		r.mesh.STL = r.resolve(args[0])

	default:
		return fmt.Errorf("unknown directive %q", key)
	}
	return nil
}

func (r *Reader) needPart(key string) error {
	if r.part == nil {
		return fmt.Errorf("%s before any gdsii:", key)
	}
	return nil
}

func (r *Reader) needMesh(key string) error {
	if r.mesh == nil {
		return fmt.Errorf("%s before any layer:", key)
	}
	return nil
}

func (r *Reader) flushMesh() {
	if r.mesh != nil && r.part != nil {
		r.part.Meshes = append(r.part.Meshes, *r.mesh)
	}
	r.mesh = nil
}

func (r *Reader) flushPart() {
	r.flushMesh()
	if r.part != nil {
		r.scene.Parts = append(r.scene.Parts, *r.part)
	}
	r.part = nil
}

func (r *Reader) resolve(path string) string {
	if r.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.dir, path)
}

// tokenize splits a line at whitespace. Double quotes group words and are
// removed.
func tokenize(line string) []string {
	var fields []string
	var sb strings.Builder
	quoted, inToken := false, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
			inToken = true
		case !quoted && (c == ' ' || c == '\t' || c == '\r' || c == '\n'):
			if sb.Len() > 0 {
				fields = append(fields, sb.String())
				sb.Reset()
			}
			inToken = false
		default:
			sb.WriteRune(c)
			inToken = true
		}
	}
	if inToken && sb.Len() > 0 {
		fields = append(fields, sb.String())
	}
	return fields
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(args))
	}
	v := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", a, err)
		}
		v[i] = f
	}
	return v, nil
}

// ReadYAML reads a scene in YAML form. Relative paths are resolved against
// dir.
func ReadYAML(r io.Reader, dir string) (*Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml scene: %w", err)
	}

	rd := &Reader{dir: dir}
	for i := range s.Parts {
		p := &s.Parts[i]
		p.Path = rd.resolve(p.Path)
		for j := range p.Meshes {
			if p.Meshes[j].STL != "" {
				p.Meshes[j].STL = rd.resolve(p.Meshes[j].STL)
			}
		}
	}
	return &s, nil
}

// ReadFile reads a scene file, choosing the format by extension
func ReadFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(f, dir)
	}
	return NewReader(f, dir).Read()
}
