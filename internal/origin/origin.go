// Package origin tracks the source position attached to every token,
// expression, and error produced while assembling a program.
package origin

import "fmt"

// Origin is a position in an assembly source file. It is immutable once
// constructed and copied by value.
type Origin struct {
	File   string
	Line   int
	Column int
}

// Unknown is used where no meaningful position exists (synthesized
// directives, implicit halts).
var Unknown = Origin{File: "<unknown>"}

func (o Origin) String() string {
	if o.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Column)
	}
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// IsUnknown reports whether o carries no real source position.
func (o Origin) IsUnknown() bool {
	return o.File == "" || o.File == "<unknown>"
}
