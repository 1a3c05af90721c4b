// Package importer reads point-of-interest files, normalizes their
// records, and upserts them into the catalog store.
package importer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// File-level failures. They abort the current file but never the run.
var (
	// ErrUnsupportedFormat marks a path whose extension matches no parser.
	ErrUnsupportedFormat = eris.New("unsupported file format")
	// ErrMalformedInput marks a file whose structure cannot be parsed.
	ErrMalformedInput = eris.New("malformed input")
)

// FieldError names one field that failed validation and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports a record that failed normalization. It is
// record-level: the importer records it and continues with the next
// record. Fields lists every failing field, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// FieldNames returns the failing field names in order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}
