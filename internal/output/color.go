package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Paint formats and colors a value
type Paint func(format string, a ...interface{}) string

// ColorScheme holds the paints for each kind of table cell. Every paint is
// usable when colors are disabled; it then only formats.
type ColorScheme struct {
	// K paints K values and job names
	K Paint

	// Success, Error and Warning paint job statuses and the summary line
	Success Paint
	Error   Paint
	Warning Paint

	Header   Paint
	Duration Paint

	// Undefined paints statistics with no value at a K
	Undefined Paint

	// Disabled is true when no escape codes are written
	Disabled bool
}

// NewColorScheme colors output only when w is a terminal and noColor is false
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	enabled := !noColor && isTTY(w)

	paint := func(attrs ...color.Attribute) Paint {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.Sprintf
	}

	return &ColorScheme{
		K:         paint(color.FgCyan, color.Bold),
		Success:   paint(color.FgGreen),
		Error:     paint(color.FgRed, color.Bold),
		Warning:   paint(color.FgYellow),
		Header:    paint(color.Bold),
		Duration:  paint(color.FgBlue),
		Undefined: paint(color.Faint),
		Disabled:  !enabled,
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Status returns the paint for a job status as produced by DispatchRows
func (cs *ColorScheme) Status(status string) Paint {
	switch status {
	case StatusSuccess:
		return cs.Success
	case StatusCancelled:
		return cs.Warning
	default:
		return cs.Error
	}
}
