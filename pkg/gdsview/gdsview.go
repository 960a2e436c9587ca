// Package gdsview provides functions for reading GDSII stream files and
// turning their polygons into renderable meshes.
//
// This package can be used as a library to inspect layouts and extrude
// layers programmatically.
//
// Example usage:
//
//	layout, err := gdsview.ParseFile("chip.gds")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m := gdsview.BuildMesh(layout, 5, [2]float32{0, 0.5}, gdsview.Color{R: 1})
//	out, _ := os.Create("layer5.bin")
//	defer out.Close()
//	m.WriteRaw(out)
package gdsview

import (
	"errors"
	"io"

	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/dyuri/gdsview/internal/scene"
	"github.com/dyuri/gdsview/internal/source"
)

// Color is an RGB colour with components in [0, 1]
type Color = mesh.Color

// Parse reads a GDSII stream and returns the layout with references
// resolved.
//
// Example:
//
//	f, _ := os.Open("chip.gds")
//	defer f.Close()
//	layout, err := Parse(f)
func Parse(r io.Reader) (*model.Layout, error) {
	layout, err := gdsii.Parse(r)
	return layout, wrap(err)
}

// ParseFile reads a GDSII file. Compressed files (gzip, zstd, xz, lz4) are
// unpacked transparently, and "disk.iso:/path/chip.gds" reads a file stored
// inside a disk image.
func ParseFile(path string) (*model.Layout, error) {
	layout, err := source.ReadLayout(path)
	return layout, wrap(err)
}

// BuildMesh extrudes every boundary on layer between zbounds.
//
// The result never fails: degenerate polygons are skipped and counted in
// the mesh statistics.
func BuildMesh(layout *model.Layout, layer int16, zbounds [2]float32, color Color) *mesh.Mesh {
	return mesh.Build(layout, layer, zbounds, color)
}

// WriteLayout writes a layout as a GDSII stream.
//
// Example:
//
//	out, _ := os.Create("copy.gds")
//	defer out.Close()
//	err := WriteLayout(out, layout)
func WriteLayout(w io.Writer, layout *model.Layout) error {
	return gdsii.WriteLayout(w, layout)
}

// ReadScene reads a .gdsiiview or YAML scene file
func ReadScene(path string) (*scene.Scene, error) {
	return scene.ReadFile(path)
}

// ValidationError represents a validation issue found in a layout
type ValidationError struct {
	Field   string // Structure name, empty for library level issues
	Message string // Error description
	Level   string // "error" or "warning"
}

// Validate checks a layout for structural problems that other tools would
// reject.
//
// Returns a list of validation errors/warnings. An empty list means
// the layout is valid.
func Validate(layout *model.Layout) []ValidationError {
	issues := gdsii.Validate(layout)
	result := make([]ValidationError, len(issues))
	for i, is := range issues {
		result[i] = ValidationError{
			Field:   is.Structure,
			Message: is.Message,
			Level:   is.Severity.String(),
		}
	}
	return result
}

// Common errors
var (
	ErrFileUnreadable      = &Error{Code: "file_unreadable", Message: "file unreadable"}
	ErrInvalidRecordLength = &Error{Code: "invalid_record_length", Message: "invalid record length"}
	ErrTruncatedRecord     = &Error{Code: "truncated_record", Message: "truncated record"}
	ErrMissingUnits        = &Error{Code: "missing_units", Message: "missing UNITS record"}
	ErrMissingStructName   = &Error{Code: "missing_struct_name", Message: "structure without a name"}
	ErrInvalidFormat       = &Error{Code: "invalid_format", Message: "invalid file format"}
)

// Error represents a gdsview error
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// wrap converts stream errors to *Error, keeping the original as cause
func wrap(err error) error {
	if err == nil {
		return nil
	}

	var ge *gdsii.Error
	if !errors.As(err, &ge) {
		return err
	}

	base := ErrInvalidFormat
	switch ge.Kind {
	case gdsii.KindFileUnreadable:
		base = ErrFileUnreadable
	case gdsii.KindInvalidRecordLength:
		base = ErrInvalidRecordLength
	case gdsii.KindTruncatedRecord:
		base = ErrTruncatedRecord
	case gdsii.KindMissingUnits:
		base = ErrMissingUnits
	case gdsii.KindMissingStructName:
		base = ErrMissingStructName
	}
	return &Error{Code: base.Code, Message: base.Message, Cause: err}
}
