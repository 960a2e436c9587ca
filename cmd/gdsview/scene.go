package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dyuri/gdsview/internal/part"
	"github.com/dyuri/gdsview/internal/scene"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// scene command group
var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Create and inspect scene files",
}

func init() {
	sceneCmd.AddCommand(sceneInitCmd)
	sceneCmd.AddCommand(sceneShowCmd)
}

var sceneInitCmd = &cobra.Command{
	Use:   "init <input.gds>",
	Short: "Write a scene showing every layer of a layout",
	Long: `Write a scene file with one mesh per layer that holds boundaries.
Layers are stacked bottom up in layer order and coloured from the default
palette. The result is meant as a starting point for editing.`,
	Args: cobra.ExactArgs(1),
	RunE: runSceneInit,
}

func init() {
	sceneInitCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	sceneInitCmd.Flags().Float32("thickness", 0.5, "Height of every layer")
	sceneInitCmd.Flags().Bool("yaml", false, "Write YAML instead of the .gdsiiview format")
}

func runSceneInit(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	thickness, _ := cmd.Flags().GetFloat32("thickness")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	layout, _, err := loadLayout(cmd, inputPath)
	if err != nil {
		return err
	}

	// Paths in the scene are relative to the scene file
	ref := inputPath
	if outputPath != "" {
		ref = relativeTo(filepath.Dir(outputPath), inputPath)
		if strings.HasSuffix(strings.ToLower(outputPath), ".yaml") || strings.HasSuffix(strings.ToLower(outputPath), ".yml") {
			asYAML = true
		}
	}
	s := scene.Generate(ref, layout, thickness)

	// Determine output writer
	output := os.Stdout
	if outputPath != "" {
		output, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer output.Close()
	}

	if asYAML {
		return scene.WriteYAML(output, s)
	}
	return scene.NewWriter(output).Write(s)
}

func relativeTo(dir, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(absDir, abs)
	if err != nil {
		return abs
	}
	return rel
}

var sceneShowCmd = &cobra.Command{
	Use:   "show <scene.gdsiiview>",
	Short: "Display the contents of a scene",
	Long: `Display the parts and meshes a scene file requests.

With --load every part is loaded and the resulting meshes and bounds are
shown as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runSceneShow,
}

func init() {
	sceneShowCmd.Flags().Bool("load", false, "Load the parts and show mesh statistics")
	sceneShowCmd.Flags().String("triangulator", "ear", "Cap triangulator: ear, fan")
}

func runSceneShow(cmd *cobra.Command, args []string) error {
	load, _ := cmd.Flags().GetBool("load")

	s, err := scene.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}

	fmt.Println(titleStyle.Render("Scene: " + args[0]))
	fmt.Println(strings.Repeat("=", 50))
	for _, c := range s.Comments {
		fmt.Println(dimStyle.Render("# " + c))
	}

	for _, pc := range s.Parts {
		fmt.Printf("\nPart: %s\n", pc.Path)
		for _, st := range pc.Transform {
			switch {
			case st.Rotate != nil:
				fmt.Printf("  rotate %s %g\n", st.Rotate.Axis, st.Rotate.Degrees)
			case st.Translate != nil:
				fmt.Printf("  translate %g %g %g\n", st.Translate[0], st.Translate[1], st.Translate[2])
			}
		}
		for _, mc := range pc.Meshes {
			swatch := colorSwatch(mc.Color)
			fmt.Printf("  %s layer %-5d z %g..%g", swatch, mc.Layer, mc.ZBounds[0], mc.ZBounds[1])
			if mc.STL != "" {
				fmt.Printf("  stl %s", mc.STL)
			}
			fmt.Println()
		}
	}

	if !load {
		return nil
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	parts, err := loadParts(cmd, s, log)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Loaded"))
	for _, p := range parts {
		printPart(p)
	}
	return nil
}

func colorSwatch(c scene.RGB) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("■")
}

func printPart(p *part.Part) {
	snap := p.Snapshot()
	if snap == nil {
		fmt.Printf("%s: %s\n", p.Path, warnStyle.Render("not loaded"))
		return
	}
	b := p.Bounds()
	fmt.Printf("%s %s\n", p.Path, dimStyle.Render(snap.Generation.String()))
	if !b.IsEmpty() {
		fmt.Printf("  bounds x %.4g..%.4g y %.4g..%.4g\n", b.MinX, b.MaxX, b.MinY, b.MaxY)
	}
	for i, m := range snap.Meshes {
		fmt.Printf("  layer %-5d %6d triangles  %d boundaries", m.Layer, m.TriangleCount(), m.Stats.Boundaries)
		if m.Stats.Degenerate > 0 {
			fmt.Printf("  %s", warnStyle.Render(fmt.Sprintf("%d degenerate", m.Stats.Degenerate)))
		}
		if stl := p.Specs[i].STLPath; stl != "" {
			fmt.Printf("  %s", dimStyle.Render("stl export not supported: "+stl))
		}
		fmt.Println()
	}
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch <scene.gdsiiview>",
	Short: "Reload the parts of a scene whenever their files change",
	Long: `Load every part of a scene and poll the layout files for changes.
A changed file is parsed again and its meshes rebuilt; if that fails the
previous meshes stay in place. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", time.Second, "Polling interval")
	watchCmd.Flags().String("triangulator", "ear", "Cap triangulator: ear, fan")
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	// Reloads are logged at info level
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose && !cmd.Flags().Changed("log-level") {
		log.SetLevel(logrus.InfoLevel)
	}

	s, err := scene.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	parts, err := loadParts(cmd, s, log)
	if err != nil {
		return err
	}
	for _, p := range parts {
		printPart(p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range parts {
		wg.Add(1)
		go func(p *part.Part) {
			defer wg.Done()
			p.Watch(ctx, interval, func(err error) {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", errStyle.Render("reload failed:"), err)
					return
				}
				printPart(p)
			})
		}(p)
	}

	fmt.Fprintf(os.Stderr, "Watching %d part(s), press Ctrl-C to stop\n", len(parts))
	wg.Wait()
	return nil
}
