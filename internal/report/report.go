// Package report renders batch reports as CSV, JSON or XLSX.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"polgen/internal/domain"
)

// Format is a report output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, json or xlsx, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

// FormatFromPath picks a format from the file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatCSV
}

// ContentType is the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Write renders rep in the given format.
func Write(out io.Writer, rep *domain.BatchReport, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(out, rep)
	case FormatXLSX:
		return WriteXLSX(out, rep)
	default:
		return WriteCSV(out, rep)
	}
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(out io.Writer, rep *domain.BatchReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("report.WriteJSON: %w", err)
	}
	return nil
}

// WriteFile renders rep to path.
func WriteFile(path string, rep *domain.BatchReport, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report.WriteFile: %w", err)
	}
	if err := Write(f, rep, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
