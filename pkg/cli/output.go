package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText prints aligned columns.
	FormatText OutputFormat = "text"
	// FormatJSON prints one JSON array of objects.
	FormatJSON OutputFormat = "json"
)

// Table is a header row plus data rows. Each row has one cell per header.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Formatter writes a Table.
type Formatter interface {
	Write(w io.Writer, t Table) error
}

// TextFormatter writes tab-aligned columns.
type TextFormatter struct{}

// Write writes t as aligned text columns.
func (f *TextFormatter) Write(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter writes rows as objects keyed by header.
type JSONFormatter struct {
	Indent bool
}

// Write writes t as a JSON array.
func (f *JSONFormatter) Write(w io.Writer, t Table) error {
	objects := make([]map[string]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
		obj := make(map[string]string, len(row))
		for j, cell := range row {
			obj[t.Headers[j]] = cell
		}
		objects = append(objects, obj)
	}

	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(objects)
}

// NewFormatter returns the formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	default:
		return nil, NewUsageError("unknown output format %q (want text or json)", format)
	}
}
