package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/spf13/cobra"
)

// info command
var infoCmd = &cobra.Command{
	Use:   "info <input.gds>",
	Short: "Display layout information",
	Long: `Display metadata and statistics about a GDSII layout.

Shows the library name, stream version, units, and counts of structures,
elements and layers.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("json", false, "Output as JSON")
	infoCmd.Flags().Bool("brief", false, "Show only summary")
}

func runInfo(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	brief, _ := cmd.Flags().GetBool("brief")

	layout, _, err := loadLayout(cmd, inputPath)
	if err != nil {
		return err
	}

	// Output based on format
	if jsonOutput {
		return outputInfoJSON(inputPath, layout)
	}
	return outputInfoText(inputPath, layout, brief)
}

func outputInfoText(path string, layout *model.Layout, brief bool) error {
	layers := layout.Layers()

	if brief {
		// Brief mode: just the counts
		fmt.Printf("%s: LIB=%s Structures=%d Elements=%d Layers=%d\n",
			path, layout.Name, len(layout.Structures), layout.ElementCount(), len(layers))
		return nil
	}

	// Full human-readable output
	fmt.Println(titleStyle.Render("Layout: " + path))
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	fmt.Println("Library:")
	fmt.Printf("  Name:             %s\n", layout.Name)
	fmt.Printf("  Stream version:   %d\n", layout.Version)
	fmt.Printf("  User units/DBU:   %g\n", layout.UserUnitsPerDBUnit)
	fmt.Printf("  Meters/DBU:       %g\n", layout.MetersPerDBUnit)
	fmt.Println()

	fmt.Println("Contents:")
	fmt.Printf("  Structures:       %d\n", len(layout.Structures))
	fmt.Printf("  Elements:         %d\n", layout.ElementCount())
	fmt.Printf("  Layers:           %d\n", len(layers))
	fmt.Printf("  References:       %d (%d unresolved)\n", countRefs(layout, false), countRefs(layout, true))
	fmt.Println()

	// Layer details (if not too many)
	if len(layers) > 0 && len(layers) <= 20 {
		fmt.Println("Layers:")
		printLayers(layers)
	}
	return nil
}

func outputInfoJSON(path string, layout *model.Layout) error {
	layers := make([]map[string]interface{}, 0)
	for _, lc := range layout.Layers() {
		layers = append(layers, map[string]interface{}{
			"layer":      lc.Layer,
			"boundaries": lc.Boundaries,
			"paths":      lc.Paths,
			"boxes":      lc.Boxes,
		})
	}

	info := map[string]interface{}{
		"file": path,
		"library": map[string]interface{}{
			"name":               layout.Name,
			"version":            layout.Version,
			"userUnitsPerDBUnit": layout.UserUnitsPerDBUnit,
			"metersPerDBUnit":    layout.MetersPerDBUnit,
		},
		"counts": map[string]int{
			"structures": len(layout.Structures),
			"elements":   layout.ElementCount(),
			"references": countRefs(layout, false),
			"unresolved": countRefs(layout, true),
		},
		"layers": layers,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func countRefs(layout *model.Layout, unresolvedOnly bool) int {
	n := 0
	for _, s := range layout.Structures {
		for i := range s.Elements {
			el := &s.Elements[i]
			if el.Ref == nil {
				continue
			}
			if _, ok := layout.Resolve(el); !unresolvedOnly || !ok {
				n++
			}
		}
	}
	return n
}

func printLayers(layers []model.LayerCount) {
	fmt.Println(dimStyle.Render("  LAYER  BOUNDARIES  PATHS  BOXES"))
	for _, lc := range layers {
		fmt.Printf("  %5d  %10d  %5d  %5d\n", lc.Layer, lc.Boundaries, lc.Paths, lc.Boxes)
	}
}

// layers command
var layersCmd = &cobra.Command{
	Use:   "layers <input.gds>",
	Short: "List the layers of a layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, _, err := loadLayout(cmd, args[0])
		if err != nil {
			return err
		}
		printLayers(layout.Layers())
		return nil
	},
}

// structures command
var structuresCmd = &cobra.Command{
	Use:   "structures <input.gds>",
	Short: "List the structures of a layout",
	Long: `List every structure with its element count and the structures it
references. Unresolved references are marked.`,
	Args: cobra.ExactArgs(1),
	RunE: runStructures,
}

func init() {
	structuresCmd.Flags().Bool("refs", false, "Show references of every structure")
}

func runStructures(cmd *cobra.Command, args []string) error {
	showRefs, _ := cmd.Flags().GetBool("refs")

	layout, _, err := loadLayout(cmd, args[0])
	if err != nil {
		return err
	}

	for _, s := range layout.Structures {
		name := s.Name
		if name == model.ContextInfoName {
			name = dimStyle.Render(name)
		}
		fmt.Printf("%-32s %6d elements\n", name, len(s.Elements))

		if !showRefs {
			continue
		}
		for i := range s.Elements {
			el := &s.Elements[i]
			if el.Ref == nil {
				continue
			}
			line := fmt.Sprintf("  %s -> %s", el.Kind, el.Ref.Name)
			if el.Kind == model.ARef {
				line += fmt.Sprintf(" [%dx%d]", el.Ref.Cols, el.Ref.Rows)
			}
			if _, ok := layout.Resolve(el); !ok {
				line += " " + warnStyle.Render("(unresolved)")
			}
			fmt.Println(line)
		}
	}
	return nil
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate <input.gds>",
	Short: "Validate layout structure",
	Long: `Validate a layout against the structural rules of the stream format.

Checks names, point counts, unit values and reference targets.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("strict", false, "Fail on warnings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	strict, _ := cmd.Flags().GetBool("strict")

	layout, _, err := loadLayout(cmd, inputPath)
	if err != nil {
		return err
	}

	var errs, warns []gdsii.Issue
	for _, is := range gdsii.Validate(layout) {
		if is.Severity == gdsii.SeverityError {
			errs = append(errs, is)
		} else {
			warns = append(warns, is)
		}
	}

	printValidation(inputPath, errs, warns, strict)

	// Return error if validation failed
	if len(errs) > 0 || (strict && len(warns) > 0) {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func printValidation(file string, errs, warns []gdsii.Issue, strict bool) {
	fmt.Printf("Validating: %s\n", file)
	fmt.Println(strings.Repeat("=", 50))

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Println(okStyle.Render("✓ Valid layout - no issues found"))
		return
	}

	// Print errors
	if len(errs) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(errs))
		for _, is := range errs {
			fmt.Printf("  %s %s\n", errStyle.Render("✗"), is)
		}
	}

	// Print warnings
	if len(warns) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(warns))
		for _, is := range warns {
			fmt.Printf("  %s %s\n", warnStyle.Render("⚠"), is)
		}
	}

	// Summary
	fmt.Println()
	if len(errs) > 0 {
		fmt.Printf("Validation failed: %d error(s)", len(errs))
		if len(warns) > 0 {
			fmt.Printf(", %d warning(s)", len(warns))
		}
		fmt.Println()
	} else if len(warns) > 0 {
		fmt.Printf("Validation passed with %d warning(s)\n", len(warns))
		if strict {
			fmt.Println("(use without --strict to ignore warnings)")
		}
	}
}
