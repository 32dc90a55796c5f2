// Package output renders command results as tables, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/tidwall/pretty"
	"golang.org/x/term"
)

// Format types for output.
type Format string

const (
	// FormatText is the human readable table output.
	FormatText Format = "text"
	// FormatJSON represents JSON output format.
	FormatJSON Format = "json"
	// FormatYAML represents YAML output format.
	FormatYAML Format = "yaml"
)

// ParseFormat converts s to a Format. An empty string is text.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	switch format {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of: text, json, yaml", s)
	}
}

// Table is data laid out as rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	table := tablewriter.NewTable(w)
	if len(t.Headers) > 0 {
		headers := make([]any, len(t.Headers))
		for i, h := range t.Headers {
			headers[i] = h
		}
		table.Header(headers...)
	}
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}

// JSON writes data as indented JSON, colored when w is a terminal.
func JSON(w io.Writer, data any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return err
	}
	out := buf.Bytes()
	if isTerminal(w) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

// YAML writes data as YAML.
func YAML(w io.Writer, data any) error {
	out, err := yaml.MarshalWithOptions(data,
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Write renders data in format. Text output is produced by text.
func Write(w io.Writer, format Format, data any, text func(io.Writer) error) error {
	switch format {
	case FormatJSON:
		return JSON(w, data)
	case FormatYAML:
		return YAML(w, data)
	default:
		return text(w)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
