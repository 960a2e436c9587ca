package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/logging"
	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/dyuri/gdsview/internal/scene"
	"github.com/dyuri/gdsview/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"})
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gdsview",
	Short: "Inspect GDSII layouts and extrude them into 3D meshes",
	Long: `gdsview is a tool for working with GDSII stream files.

It can summarize and validate layouts, extrude the polygons of a layer
into a triangle mesh, render a top-down preview, and manage scene files
that place several layouts and layers in one view.

Input files may be gzip, zstd, xz or lz4 compressed. A file inside a disk
image is addressed as image.iso:/path/in/image.gds.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().String("charset", "ascii", "Encoding of names in the stream: ascii, latin1, cp1252")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(layersCmd)
	rootCmd.AddCommand(structuresCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(meshCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the stderr logger from the persistent flags
func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		level = "debug"
	}
	return logging.New(os.Stderr, level)
}

func charsetByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "ascii":
		return nil, nil
	case "latin1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unknown charset: %s", name)
}

// parseOptions collects the parser options shared by all commands
func parseOptions(cmd *cobra.Command, log logrus.FieldLogger) ([]gdsii.Option, error) {
	name, _ := cmd.Flags().GetString("charset")
	enc, err := charsetByName(name)
	if err != nil {
		return nil, err
	}
	return []gdsii.Option{gdsii.WithLogger(log), gdsii.WithCharset(enc)}, nil
}

// loadLayout reads the layout named on the command line
func loadLayout(cmd *cobra.Command, path string) (*model.Layout, *logrus.Logger, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := parseOptions(cmd, log)
	if err != nil {
		return nil, nil, err
	}

	layout, err := source.ReadLayout(path, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse layout: %w", err)
	}
	return layout, log, nil
}

// addMeshFlags registers the flags selecting what to extrude
func addMeshFlags(cmd *cobra.Command) {
	cmd.Flags().Float32Slice("z", []float32{0, 1}, "Bottom and top of the extrusion")
	cmd.Flags().String("color", "", "Mesh colour: r,g,b (0-255) or #rrggbb (default: layer palette)")
	cmd.Flags().String("triangulator", "ear", "Cap triangulator: ear, fan")
}

// buildOptions reads the triangulator flag
func buildOptions(cmd *cobra.Command, log logrus.FieldLogger) ([]mesh.Option, error) {
	name, _ := cmd.Flags().GetString("triangulator")
	tr, err := mesh.TriangulatorByName(name)
	if err != nil {
		return nil, err
	}
	return []mesh.Option{mesh.WithLogger(log), mesh.WithTriangulator(tr)}, nil
}

func zBounds(cmd *cobra.Command) ([2]float32, error) {
	z, _ := cmd.Flags().GetFloat32Slice("z")
	if len(z) != 2 {
		return [2]float32{}, fmt.Errorf("--z wants two values, got %d", len(z))
	}
	return [2]float32{z[0], z[1]}, nil
}

func meshColor(cmd *cobra.Command, layer int16) (scene.RGB, error) {
	s, _ := cmd.Flags().GetString("color")
	if s == "" {
		return scene.Palette(int(layer)), nil
	}
	return scene.ParseColor(strings.Split(s, ","))
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gdsview version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}
