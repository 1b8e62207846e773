package amazoncsv

import (
	"context"
	"fmt"
	"strconv"

	"polgen/internal/domain"
	"polgen/internal/port"
)

const serviceName = "amazon"

// Index is an in-memory marketplace source built from order exports, keyed by
// ISBN-13. The latest order for an ISBN wins.
type Index struct {
	byISBN map[string]Order
}

// NewIndex builds an Index from parsed orders. Orders whose ASIN is not an
// ISBN are not indexed.
func NewIndex(orders []Order) *Index {
	idx := &Index{byISBN: make(map[string]Order, len(orders))}
	for _, o := range orders {
		if o.ISBN == "" {
			continue
		}
		if prev, ok := idx.byISBN[o.ISBN]; ok && prev.OrderDate.After(o.OrderDate) {
			continue
		}
		idx.byISBN[o.ISBN] = o
	}
	return idx
}

// LoadIndex reads the export at path and builds an Index.
func LoadIndex(path string) (*Index, error) {
	orders, err := ReadOrdersFile(path)
	if err != nil {
		return nil, err
	}
	return NewIndex(orders), nil
}

// Len returns the number of indexed ISBNs.
func (x *Index) Len() int {
	return len(x.byISBN)
}

func (x *Index) Enrich(_ context.Context, id domain.Identifier) (*domain.MarketplaceRecord, error) {
	if id.Value == "" {
		return nil, fmt.Errorf("amazoncsv.Index.Enrich: %w: empty identifier", domain.ErrInvalidIdentifier)
	}
	if id.Type != domain.IdentifierTypeISBN {
		return nil, nil
	}
	key := id.Value
	if len(key) == 10 {
		isbn13, ok := domain.ISBN10To13(key)
		if !ok {
			return nil, nil
		}
		key = isbn13
	}
	o, ok := x.byISBN[key]
	if !ok {
		return nil, nil
	}

	available := true
	rec := &domain.MarketplaceRecord{
		Source:    serviceName,
		Currency:  domain.Known(o.Currency),
		Available: &available,
	}
	if o.NetTotal > 0 {
		rec.Price = domain.Known(strconv.FormatFloat(o.UnitPrice(), 'f', 2, 64))
	}
	return rec, nil
}

// compile-time check
var _ port.MarketplaceEnricher = (*Index)(nil)
