package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"polgen/internal/domain"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with a Results sheet (one row per item) and a
// Summary sheet with the run counts.
func WriteXLSX(out io.Writer, rep *domain.BatchReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("report.WriteXLSX: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("report.WriteXLSX: header: %w", err)
	}
	for i := range rep.Results {
		row := resultToRow(&rep.Results[i])
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report.WriteXLSX: %w", err)
		}
		if err := f.SetSheetRow(resultsSheet, cell, &cells); err != nil {
			return fmt.Errorf("report.WriteXLSX: row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("report.WriteXLSX: %w", err)
	}
	s := rep.Summary
	summary := [][]string{
		{"Run ID", rep.RunID.String()},
		{"Dry Run", strconv.FormatBool(rep.DryRun)},
		{"Aborted", strconv.FormatBool(rep.Aborted)},
		{"Abort Reason", rep.AbortReason},
		{"Total", strconv.Itoa(s.Total)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Not Attempted", strconv.Itoa(s.NotAttempted)},
		{"Skipped Duplicates", strconv.Itoa(s.Skipped)},
		{"Validated", strconv.Itoa(s.Validated)},
	}
	for i, kv := range summary {
		row := []interface{}{kv[0], kv[1]}
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(i+1), &row); err != nil {
			return fmt.Errorf("report.WriteXLSX: summary: %w", err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("report.WriteXLSX: %w", err)
	}
	return nil
}
