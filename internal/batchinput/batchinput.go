// Package batchinput reads batch items from JSON, CSV, XLSX, binary MARC and
// Amazon order exports.
package batchinput

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"polgen/internal/domain"
)

// Format names a batch input encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatAmazon Format = "amazon"
	FormatMARC   Format = "marc"
)

// Column names recognized in tabular input. Any other column is an override.
const (
	ColIdentifier     = "identifier"
	ColIdentifierType = "identifier_type"
	ColMaterialType   = "material_type"
	ColVendorCode     = "vendor_code"
	ColFundCode       = "fund_code"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatAmazon, FormatMARC:
		return f, nil
	}
	return "", fmt.Errorf("unsupported input format %q: %w", s, domain.ErrInvalidInput)
}

// FormatFromPath infers the format from a file extension. Amazon exports are
// plain CSV and must be requested explicitly.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".mrc", ".marc":
		return FormatMARC, nil
	}
	return "", fmt.Errorf("cannot infer input format from %q: %w", path, domain.ErrInvalidInput)
}

// Options controls how rows become items.
type Options struct {
	// Defaults fill material type, vendor and fund where a row leaves them
	// blank. Defaults.Overrides fill override fields the same way.
	Defaults domain.BatchItem
}

// Read decodes items from r in the given format.
func Read(r io.Reader, format Format, opts Options) ([]domain.BatchItem, error) {
	var (
		items []domain.BatchItem
		err   error
	)
	switch format {
	case FormatJSON:
		items, err = ReadJSON(r)
	case FormatCSV:
		items, err = ReadCSV(r)
	case FormatXLSX:
		items, err = ReadXLSX(r)
	case FormatAmazon:
		items, err = ReadAmazon(r)
	case FormatMARC:
		items, err = ReadMARC(r)
	default:
		return nil, fmt.Errorf("batchinput.Read: unsupported format %q: %w", format, domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batchinput.Read: no items: %w", domain.ErrInvalidInput)
	}
	for i := range items {
		applyDefaults(&items[i], opts.Defaults)
	}
	return items, nil
}

// ReadFile opens path and decodes it. An empty format is inferred from the
// extension.
func ReadFile(path string, format Format, opts Options) ([]domain.BatchItem, error) {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadFile: %w", err)
	}
	defer f.Close()
	return Read(f, format, opts)
}

// ReadJSON decodes a JSON array of items.
func ReadJSON(r io.Reader) ([]domain.BatchItem, error) {
	var items []domain.BatchItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("batchinput.ReadJSON: %v: %w", err, domain.ErrInvalidInput)
	}
	return items, nil
}

func applyDefaults(item *domain.BatchItem, def domain.BatchItem) {
	if strings.TrimSpace(item.MaterialType) == "" {
		item.MaterialType = def.MaterialType
	}
	if strings.TrimSpace(item.VendorCode) == "" {
		item.VendorCode = def.VendorCode
	}
	if strings.TrimSpace(item.FundCode) == "" {
		item.FundCode = def.FundCode
	}
	if item.IdentifierType == "" {
		item.IdentifierType = def.IdentifierType
	}
	for k, v := range def.Overrides {
		if strings.TrimSpace(item.Overrides[k]) != "" {
			continue
		}
		if item.Overrides == nil {
			item.Overrides = make(map[string]string, len(def.Overrides))
		}
		item.Overrides[k] = v
	}
}

// normalizeHeader lower-cases a column name and joins words with underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// itemsFromRows maps a header row plus data rows onto items. Blank rows are
// skipped; rows missing an identifier are kept so they surface as failures.
func itemsFromRows(header []string, rows [][]string) ([]domain.BatchItem, error) {
	cols := make([]string, len(header))
	hasIdentifier := false
	for i, h := range header {
		cols[i] = normalizeHeader(h)
		if cols[i] == ColIdentifier {
			hasIdentifier = true
		}
	}
	if !hasIdentifier {
		return nil, fmt.Errorf("missing %q column: %w", ColIdentifier, domain.ErrInvalidInput)
	}

	var items []domain.BatchItem
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		var item domain.BatchItem
		for i, col := range cols {
			if col == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			switch col {
			case ColIdentifier:
				item.Identifier = v
			case ColIdentifierType:
				item.IdentifierType = domain.IdentifierType(strings.ToLower(v))
			case ColMaterialType:
				item.MaterialType = v
			case ColVendorCode:
				item.VendorCode = v
			case ColFundCode:
				item.FundCode = v
			default:
				if v == "" {
					continue
				}
				if item.Overrides == nil {
					item.Overrides = make(map[string]string)
				}
				item.Overrides[col] = v
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
