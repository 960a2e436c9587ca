package gdsii

import (
	"fmt"

	"github.com/dyuri/gdsview/internal/model"
	"github.com/elliotwutingfeng/asciiset"
)

// Limits from the stream format definition
const (
	maxNameLength   = 32
	maxBoundaryXY   = 8191 // Points a single XY record can hold for a boundary
	minBoundaryXY   = 4    // Three vertices plus the closing point
	contextInfoName = model.ContextInfoName
)

// nameChars is the character set the format allows in structure names
var nameChars, _ = asciiset.MakeASCIISet(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_?$",
)

// Severity of a validation issue
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one finding of Validate
type Issue struct {
	Severity  Severity
	Structure string
	Message   string
}

func (i Issue) String() string {
	if i.Structure == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Structure, i.Message)
}

// Validate checks a parsed layout against the format's structural rules.
// The parser is lenient; Validate reports what a strict reader would reject.
func Validate(layout *model.Layout) []Issue {
	var issues []Issue
	add := func(sev Severity, structure, format string, args ...interface{}) {
		issues = append(issues, Issue{Severity: sev, Structure: structure, Message: fmt.Sprintf(format, args...)})
	}

	if layout.UserUnitsPerDBUnit <= 0 || layout.MetersPerDBUnit <= 0 {
		add(SeverityError, "", "non-positive UNITS (%g, %g)", layout.UserUnitsPerDBUnit, layout.MetersPerDBUnit)
	}
	if len(layout.Structures) == 0 {
		add(SeverityWarning, "", "library holds no structures")
	}

	seen := make(map[string]bool)
	for _, s := range layout.Structures {
		if seen[s.Name] {
			add(SeverityError, s.Name, "duplicate structure name")
		}
		seen[s.Name] = true

		if s.Name != contextInfoName {
			if bad, ok := invalidNameChar(s.Name); ok {
				add(SeverityWarning, s.Name, "name contains character %q outside [A-Za-z0-9_?$]", bad)
			}
		}
		if len(s.Name) > maxNameLength {
			add(SeverityWarning, s.Name, "name longer than %d characters", maxNameLength)
		}

		for i, el := range s.Elements {
			validateElement(&el, func(sev Severity, format string, args ...interface{}) {
				add(sev, s.Name, "element %d (%s): %s", i, el.Kind, fmt.Sprintf(format, args...))
			})
		}
	}

	return issues
}

func validateElement(el *model.Element, add func(Severity, string, ...interface{})) {
	switch el.Kind {
	case model.Boundary:
		n := len(el.Points)
		if n < minBoundaryXY {
			add(SeverityError, "boundary has %d points, want at least %d", n, minBoundaryXY)
			return
		}
		if n > maxBoundaryXY {
			add(SeverityWarning, "boundary has %d points, more than %d", n, maxBoundaryXY)
		}
		if el.Points[0] != el.Points[n-1] {
			add(SeverityWarning, "boundary is not closed")
		}
	case model.Box:
		if len(el.Points) != 5 {
			add(SeverityError, "box has %d points, want 5", len(el.Points))
		}
	case model.Path:
		if len(el.Points) < 2 {
			add(SeverityError, "path has %d points, want at least 2", len(el.Points))
		}
	case model.SRef, model.ARef:
		if el.Ref.Name == "" {
			add(SeverityError, "reference without SNAME")
		} else if el.Ref.Target < 0 {
			add(SeverityWarning, "reference to unknown structure %q", el.Ref.Name)
		}
		want := 1
		if el.Kind == model.ARef {
			want = 3
		}
		if len(el.Points) != want {
			add(SeverityError, "reference has %d points, want %d", len(el.Points), want)
		}
		if el.Kind == model.ARef && (el.Ref.Cols < 1 || el.Ref.Rows < 1) {
			add(SeverityError, "array of %dx%d instances", el.Ref.Cols, el.Ref.Rows)
		}
	}
}

// invalidNameChar returns the first byte of name not allowed in names
func invalidNameChar(name string) (byte, bool) {
	for i := 0; i < len(name); i++ {
		if !nameChars.Contains(name[i]) {
			return name[i], true
		}
	}
	return 0, false
}
