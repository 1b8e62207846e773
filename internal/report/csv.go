package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"polgen/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the report header row.
var columns = []string{
	"Row",
	"Identifier",
	"Material Type",
	"Vendor Code",
	"Title",
	"Status",
	"POL Number",
	"State",
	"Failed Stage",
	"Attempts",
	"Error Kind",
	"Error Message",
	"Invalid Fields",
	"Warnings",
}

// Columns returns a copy of the report header row.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Writer wraps csv.Writer for exporting submission results as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteResults converts results to CSV rows and writes them.
func (w *Writer) WriteResults(results []domain.SubmissionResult) error {
	for i := range results {
		if err := w.csv.Write(resultToRow(&results[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, header and every result of rep to out.
func WriteCSV(out io.Writer, rep *domain.BatchReport) error {
	if _, err := out.Write(BOM); err != nil {
		return fmt.Errorf("report.WriteCSV: %w", err)
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("report.WriteCSV: %w", err)
	}
	if err := w.WriteResults(rep.Results); err != nil {
		return fmt.Errorf("report.WriteCSV: %w", err)
	}
	w.Flush()
	return w.Error()
}

// resultToRow converts one result to a row. Rows are 1-based to match the
// input file a librarian is looking at.
func resultToRow(r *domain.SubmissionResult) []string {
	row := make([]string, len(columns))
	row[0] = strconv.Itoa(r.Index + 1)
	row[1] = r.Identifier
	row[2] = r.MaterialType
	row[3] = r.VendorCode
	row[4] = r.Title
	row[5] = string(r.Status)
	row[6] = r.POLNumber
	row[7] = string(r.State)
	row[8] = string(r.FailedStage)
	row[9] = strconv.Itoa(r.Attempts)
	if r.Error != nil {
		row[10] = r.Error.Kind
		row[11] = r.Error.Message
		fields := make([]string, len(r.Error.Fields))
		for i, f := range r.Error.Fields {
			fields[i] = f.Field
		}
		row[12] = strings.Join(fields, ", ")
	}
	row[13] = strings.Join(r.Warnings, "; ")
	return row
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized report filename.
// Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name string, at time.Time, format Format) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), at.Format("2006-01-02"), format)
}
