package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/dyuri/gdsview/internal/part"
	"github.com/dyuri/gdsview/internal/preview"
	"github.com/dyuri/gdsview/internal/scene"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// mesh command
var meshCmd = &cobra.Command{
	Use:   "mesh <input.gds>",
	Short: "Extrude one layer into a raw vertex buffer",
	Long: `Extrude every boundary of a layer between two heights and write the
triangles as little-endian float32 values, six per vertex (position then
normal), three vertices per triangle.`,
	Args: cobra.ExactArgs(1),
	RunE: runMesh,
}

func init() {
	meshCmd.Flags().StringP("output", "o", "", "Output file (required)")
	meshCmd.MarkFlagRequired("output")
	meshCmd.Flags().Int16P("layer", "l", 0, "Layer to extrude")
	meshCmd.Flags().Float64("scale", 0, "Model units per database unit (default: from UNITS)")
	addMeshFlags(meshCmd)
}

func runMesh(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	layer, _ := cmd.Flags().GetInt16("layer")
	scale, _ := cmd.Flags().GetFloat64("scale")

	z, err := zBounds(cmd)
	if err != nil {
		return err
	}
	color, err := meshColor(cmd, layer)
	if err != nil {
		return err
	}

	layout, log, err := loadLayout(cmd, inputPath)
	if err != nil {
		return err
	}
	opts, err := buildOptions(cmd, log)
	if err != nil {
		return err
	}
	if scale > 0 {
		opts = append(opts, mesh.WithScale(scale))
	}

	m := mesh.NewBuilder(opts...).Build(layout, layer, z, color.Mesh())

	// Create output file
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	if err := m.WriteRaw(bw); err != nil {
		return fmt.Errorf("write vertices: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write vertices: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote layer %d of %s to %s\n", layer, inputPath, outputPath)
	fmt.Fprintf(os.Stderr, "  Boundaries: %d, Degenerate: %d, Walls only: %d\n",
		m.Stats.Boundaries, m.Stats.Degenerate, m.Stats.EmptyTriangulations)
	fmt.Fprintf(os.Stderr, "  Triangles: %d (%d wall, %d cap faces), Vertices: %d\n",
		m.TriangleCount(), m.Stats.WallTriangles, m.Stats.CapTriangles, m.VertexCount())
	return nil
}

// preview command
var previewCmd = &cobra.Command{
	Use:   "preview <input.gds|scene.gdsiiview>",
	Short: "Render a top-down PNG",
	Long: `Render the top faces of the extruded layers as seen from above.

A layout file shows every layer that holds boundaries, stacked in layer
order. A scene file (.gdsiiview, .yaml) shows exactly the parts, layers,
colours and placements it lists.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringP("output", "o", "preview.png", "Output PNG file")
	previewCmd.Flags().Int("width", 1024, "Image width in pixels")
	previewCmd.Flags().Int("height", 1024, "Image height in pixels")
	previewCmd.Flags().String("triangulator", "ear", "Cap triangulator: ear, fan")
}

func runPreview(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	var s *scene.Scene
	if isScene(inputPath) {
		if s, err = scene.ReadFile(inputPath); err != nil {
			return fmt.Errorf("read scene: %w", err)
		}
	} else {
		layout, _, err := loadLayout(cmd, inputPath)
		if err != nil {
			return err
		}
		s = scene.Generate(inputPath, layout, 0.5)
	}

	parts, err := loadParts(cmd, s, log)
	if err != nil {
		return err
	}

	var items []preview.Item
	for _, p := range parts {
		for _, m := range p.Meshes() {
			items = append(items, preview.Item{Mesh: m, Transform: p.Transform})
		}
	}

	opts := preview.DefaultOptions()
	opts.Width, opts.Height = width, height
	if err := preview.SavePNG(outputPath, items, opts); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Rendered %d mesh(es) to %s\n", len(items), outputPath)
	return nil
}

func isScene(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gdsiiview", ".yaml", ".yml":
		return true
	}
	return false
}

// loadParts creates and loads every part of a scene. A part that fails to
// load is reported and skipped.
func loadParts(cmd *cobra.Command, s *scene.Scene, log logrus.FieldLogger) ([]*part.Part, error) {
	popts, err := parseOptions(cmd, log)
	if err != nil {
		return nil, err
	}
	bopts, err := buildOptions(cmd, log)
	if err != nil {
		return nil, err
	}

	parts, err := s.NewParts(
		part.WithLogger(log),
		part.WithParseOptions(popts...),
		part.WithBuildOptions(bopts...),
	)
	if err != nil {
		return nil, err
	}

	loaded := parts[:0]
	for _, p := range parts {
		if err := p.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", warnStyle.Render("skipping part:"), err)
			continue
		}
		loaded = append(loaded, p)
	}
	if len(loaded) == 0 && len(parts) > 0 {
		return nil, fmt.Errorf("no part could be loaded")
	}
	return loaded, nil
}

// layerSet converts --layer values, which must fit the 16-bit LAYER field.
func layerSet(layers []int) (map[int16]bool, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("no layer selected")
	}
	set := make(map[int16]bool, len(layers))
	for _, l := range layers {
		if l < math.MinInt16 || l > math.MaxInt16 {
			return nil, fmt.Errorf("layer %d out of range [%d, %d]", l, math.MinInt16, math.MaxInt16)
		}
		set[int16(l)] = true
	}
	return set, nil
}

// filter command
var filterCmd = &cobra.Command{
	Use:   "filter <input.gds>",
	Short: "Write a copy of a layout holding only some layers",
	Long: `Write a new stream holding only the geometry on the selected layers.

References and the layout editor context structure are kept unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringP("output", "o", "", "Output file (required)")
	filterCmd.MarkFlagRequired("output")
	filterCmd.Flags().IntSliceP("layer", "l", nil, "Layers to keep (repeatable)")
	filterCmd.Flags().Bool("invert", false, "Drop the selected layers instead")
}

func runFilter(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	layers, _ := cmd.Flags().GetIntSlice("layer")
	invert, _ := cmd.Flags().GetBool("invert")

	selected, err := layerSet(layers)
	if err != nil {
		return err
	}

	layout, _, err := loadLayout(cmd, inputPath)
	if err != nil {
		return err
	}
	filtered := layout.FilterLayers(func(layer int16) bool {
		return selected[layer] != invert
	})

	// Create output file
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	w := gdsii.NewWriter(bw)
	name, _ := cmd.Flags().GetString("charset")
	enc, err := charsetByName(name)
	if err != nil {
		return err
	}
	if enc != nil {
		w.SetCharset(enc)
	}
	if err := w.WriteLayout(filtered); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %d of %d elements to %s (%d bytes)\n",
		filtered.ElementCount(), layout.ElementCount(), outputPath, w.Written())
	return nil
}
