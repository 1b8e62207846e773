// Package amazoncsv reads Amazon Business order-history exports. The same
// rows feed the marketplace index and the batch importer.
package amazoncsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"polgen/internal/domain"
)

// Column headers used from the export.
const (
	colTitle         = "Title"
	colOrderID       = "Order ID"
	colOrderDate     = "Order Date"
	colASIN          = "ASIN"
	colNetTotal      = "Item Net Total"
	colQuantity      = "Item Quantity"
	colBrand         = "Brand"
	colManufacturer  = "Manufacturer"
	colAccountGroup  = "Account Group"
	colPONumber      = "PO Number"
	colReceivingNote = "Receiving Note"
	colCurrency      = "Currency"
)

// Order is one line of an Amazon order export.
type Order struct {
	Title         string
	OrderID       string
	OrderDate     time.Time
	ASIN          string
	ISBN          string
	NetTotal      float64
	Quantity      int
	Brand         string
	Manufacturer  string
	AccountGroup  string
	PONumber      string
	ReceivingNote string
	Currency      string
}

// UnitPrice is the net total divided by quantity.
func (o Order) UnitPrice() float64 {
	if o.Quantity <= 0 {
		return o.NetTotal
	}
	return o.NetTotal / float64(o.Quantity)
}

// Author returns the brand, or the manufacturer when no brand is set.
func (o Order) Author() string {
	if o.Brand != "" {
		return o.Brand
	}
	return o.Manufacturer
}

var nonISBNChars = regexp.MustCompile(`[^0-9X]`)

// ISBNFromASIN returns the ISBN-13 for an ASIN that is an ISBN. Book ASINs are
// usually the ISBN-10.
func ISBNFromASIN(asin string) string {
	s := nonISBNChars.ReplaceAllString(strings.ToUpper(asin), "")
	switch len(s) {
	case 10:
		if isbn13, ok := domain.ISBN10To13(s); ok {
			return isbn13
		}
	case 13:
		if domain.ISBNChecksumValid(s) {
			return s
		}
	}
	return ""
}

var orderDateLayouts = []string{"01/02/2006", "2006-01-02", "01-02-2006", "1/2/2006"}

func parseOrderDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseAmount(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ReadOrders parses an order export. Rows without a title or ASIN are skipped.
func ReadOrders(r io.Reader) ([]Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("amazoncsv: empty file: %w", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("amazoncsv: reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{colTitle, colASIN} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("amazoncsv: missing column %q: %w", required, domain.ErrInvalidInput)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var orders []Order
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("amazoncsv: line %d: %w", line, err)
		}

		title, asin := get(row, colTitle), get(row, colASIN)
		if title == "" || asin == "" {
			continue
		}
		qty, err := strconv.Atoi(get(row, colQuantity))
		if err != nil || qty <= 0 {
			qty = 1
		}
		currency := strings.ToUpper(get(row, colCurrency))
		if currency == "" {
			currency = "USD"
		}
		orders = append(orders, Order{
			Title:         title,
			OrderID:       get(row, colOrderID),
			OrderDate:     parseOrderDate(get(row, colOrderDate)),
			ASIN:          asin,
			ISBN:          ISBNFromASIN(asin),
			NetTotal:      parseAmount(get(row, colNetTotal)),
			Quantity:      qty,
			Brand:         get(row, colBrand),
			Manufacturer:  get(row, colManufacturer),
			AccountGroup:  get(row, colAccountGroup),
			PONumber:      get(row, colPONumber),
			ReceivingNote: get(row, colReceivingNote),
			Currency:      currency,
		})
	}
	return orders, nil
}

// ReadOrdersFile opens path and parses it with ReadOrders.
func ReadOrdersFile(path string) ([]Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("amazoncsv: opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadOrders(f)
}
