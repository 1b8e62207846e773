package batchinput

import (
	"fmt"
	"io"
	"strconv"

	"polgen/internal/domain"
	"polgen/internal/marketplace/amazoncsv"
)

// ReadAmazon turns an Amazon order export into items, one per book line.
// Lines whose ASIN is not an ISBN are dropped.
func ReadAmazon(r io.Reader) ([]domain.BatchItem, error) {
	orders, err := amazoncsv.ReadOrders(r)
	if err != nil {
		return nil, fmt.Errorf("batchinput.ReadAmazon: %w", err)
	}
	return FromAmazonOrders(orders), nil
}

// FromAmazonOrders maps order lines onto items. The unit price is the net
// total over the quantity and the PO number becomes the vendor reference.
func FromAmazonOrders(orders []amazoncsv.Order) []domain.BatchItem {
	items := make([]domain.BatchItem, 0, len(orders))
	for _, o := range orders {
		if o.ISBN == "" {
			continue
		}
		overrides := map[string]string{
			domain.FieldTitle: o.Title,
			domain.FieldPrice: strconv.FormatFloat(o.UnitPrice(), 'f', 2, 64),
		}
		set := func(k, v string) {
			if v != "" {
				overrides[k] = v
			}
		}
		if o.Quantity > 0 {
			set(domain.FieldQuantity, strconv.Itoa(o.Quantity))
		}
		set(domain.FieldAuthor, o.Author())
		set(domain.FieldCurrency, o.Currency)
		set(domain.FieldVendorReference, o.PONumber)
		set(domain.FieldReceivingNote, o.ReceivingNote)
		if !o.OrderDate.IsZero() {
			set(domain.FieldOrderDate, o.OrderDate.Format("2006-01-02"))
		}

		items = append(items, domain.BatchItem{
			Identifier:     o.ISBN,
			IdentifierType: domain.IdentifierTypeISBN,
			Overrides:      overrides,
		})
	}
	return items
}
