package batchinput

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"polgen/internal/domain"
)

// ReadCSV decodes a CSV file whose first row is the header.
func ReadCSV(r io.Reader) ([]domain.BatchItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("batchinput.ReadCSV: empty file: %w", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("batchinput.ReadCSV: reading header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadCSV: %v: %w", err, domain.ErrInvalidInput)
	}

	items, err := itemsFromRows(header, rows)
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadCSV: %w", err)
	}
	return items, nil
}
