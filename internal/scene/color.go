package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dyuri/gdsview/internal/mesh"
	"gopkg.in/yaml.v3"
)

// RGB is an 8-bit per channel colour
type RGB struct {
	R, G, B uint8
}

// Mesh converts the colour to the renderer's [0, 1] range
func (c RGB) Mesh() mesh.Color {
	return mesh.Color{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
	}
}

// Hex returns the colour as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Default layer colours, cycled by Palette
var palette = []RGB{
	{230, 25, 75},
	{60, 180, 75},
	{0, 130, 200},
	{245, 130, 48},
	{145, 30, 180},
	{70, 240, 240},
	{240, 50, 230},
	{210, 245, 60},
	{250, 190, 212},
	{0, 128, 128},
	{170, 110, 40},
	{128, 128, 128},
}

// Palette returns the i-th default colour
func Palette(i int) RGB {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// ParseColor parses either three decimal components ("255 128 0") or a
// single "#rrggbb" token
func ParseColor(fields []string) (RGB, error) {
	switch len(fields) {
	case 1:
		return parseHexColor(fields[0])
	case 3:
		var c [3]uint8
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return RGB{}, fmt.Errorf("colour component %q: want 0-255", f)
			}
			c[i] = uint8(v)
		}
		return RGB{c[0], c[1], c[2]}, nil
	}
	return RGB{}, fmt.Errorf("colour needs 3 components or #rrggbb, got %d values", len(fields))
}

// parseHexColor parses a color string like "#ff0000"
func parseHexColor(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") || len(s) != 7 {
		return RGB{}, fmt.Errorf("colour %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MarshalYAML writes the colour as [r, g, b]
func (c RGB) MarshalYAML() (interface{}, error) {
	return []int{int(c.R), int(c.G), int(c.B)}, nil
}

// UnmarshalYAML accepts [r, g, b] or "#rrggbb"
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var fields []string
	switch value.Kind {
	case yaml.ScalarNode:
		fields = []string{value.Value}
	case yaml.SequenceNode:
		for _, n := range value.Content {
			fields = append(fields, n.Value)
		}
	default:
		return fmt.Errorf("line %d: colour must be a list or #rrggbb", value.Line)
	}
	parsed, err := ParseColor(fields)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*c = parsed
	return nil
}
