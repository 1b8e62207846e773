package batchinput

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"polgen/internal/domain"
)

// ReadXLSX decodes the first sheet of a workbook. Row 1 is the header.
func ReadXLSX(r io.Reader) ([]domain.BatchItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadXLSX: open workbook: %v: %w", err, domain.ErrInvalidInput)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadXLSX: reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("batchinput.ReadXLSX: sheet %q is empty: %w", sheet, domain.ErrInvalidInput)
	}

	items, err := itemsFromRows(rows[0], rows[1:])
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadXLSX: %w", err)
	}
	return items, nil
}
