// Package pol merges template defaults, catalog metadata, marketplace data and
// caller order fields into a validated purchase order line.
package pol

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"polgen/internal/domain"
)

// layer is one merge source, highest precedence first.
type layer struct {
	source domain.FieldSource
	values map[string]string
}

// Build merges the layers for one item and validates the result. Precedence,
// highest first: caller order fields, catalog record, marketplace record,
// template defaults. Blank and unknown values never shadow a lower layer.
//
// On validation failure the partially built document is returned together with
// a *domain.ValidationError naming every failing field.
func Build(tmpl *domain.Template, item domain.BatchItem, bib *domain.BibliographicRecord, mkt *domain.MarketplaceRecord) (*domain.POLDocument, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("pol.Build: %w: no template", domain.ErrUnknownMaterialType)
	}
	id, err := domain.ParseIdentifier(item.Identifier, item.IdentifierType)
	if err != nil {
		return nil, fmt.Errorf("pol.Build: %w", err)
	}

	layers := []layer{
		{domain.FieldSourceOrder, orderLayer(item, id)},
		{domain.FieldSourceCatalog, knownValues(bibFields(bib))},
		{domain.FieldSourceMarketplace, knownValues(mktFields(mkt))},
		{domain.FieldSourceTemplate, tmpl.Defaults()},
	}

	doc := &domain.POLDocument{
		MaterialType: tmpl.MaterialType(),
		Identifier:   id,
		Fields:       make(map[string]string),
		Provenance:   make(map[string]domain.FieldSource),
	}
	for _, name := range fieldUniverse(tmpl, layers) {
		for _, l := range layers {
			if v := strings.TrimSpace(l.values[name]); v != "" {
				doc.Fields[name] = v
				doc.Provenance[name] = l.source
				break
			}
		}
	}

	if vErr := normalizeAndValidate(tmpl, doc); vErr.HasErrors() {
		return doc, vErr
	}
	return doc, nil
}

// orderLayer is the caller's ground truth: overrides, vendor and fund codes,
// and the identifier itself.
func orderLayer(item domain.BatchItem, id domain.Identifier) map[string]string {
	out := item.OrderFields()
	switch id.Type {
	case domain.IdentifierTypeISBN:
		if out[domain.FieldISBN] == "" {
			out[domain.FieldISBN] = id.Value
		}
	case domain.IdentifierTypeOCLC:
		if out[domain.FieldOCLCNumber] == "" {
			out[domain.FieldOCLCNumber] = id.Value
		}
	}
	return out
}

func bibFields(bib *domain.BibliographicRecord) map[string]domain.FieldValue {
	if bib == nil {
		return nil
	}
	return bib.Fields()
}

func mktFields(mkt *domain.MarketplaceRecord) map[string]domain.FieldValue {
	if mkt == nil {
		return nil
	}
	return mkt.Fields()
}

func knownValues(fields map[string]domain.FieldValue) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v.Known {
			out[k] = v.Value
		}
	}
	return out
}

// fieldUniverse is every field named by the template or any layer, sorted.
func fieldUniverse(tmpl *domain.Template, layers []layer) []string {
	seen := make(map[string]bool)
	for _, name := range tmpl.FieldNames() {
		seen[name] = true
	}
	for _, l := range layers {
		for name := range l.values {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeAndValidate(tmpl *domain.Template, doc *domain.POLDocument) *domain.ValidationError {
	vErr := &domain.ValidationError{}

	for _, name := range tmpl.Required() {
		if doc.Fields[name] == "" {
			vErr.Add(name, "required field is missing")
		}
	}

	if raw, ok := doc.Fields[domain.FieldPrice]; ok {
		price, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(raw, ",", ""), "$"), 64)
		switch {
		case err != nil, math.IsNaN(price), math.IsInf(price, 0):
			vErr.Add(domain.FieldPrice, fmt.Sprintf("%q is not a number", raw))
		case price <= 0:
			vErr.Add(domain.FieldPrice, "must be greater than zero")
		default:
			doc.Fields[domain.FieldPrice] = strconv.FormatFloat(price, 'f', 2, 64)
		}
	}

	if raw, ok := doc.Fields[domain.FieldQuantity]; ok {
		if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
			vErr.Add(domain.FieldQuantity, fmt.Sprintf("%q is not a positive integer", raw))
		}
	}

	if cur, ok := doc.Fields[domain.FieldCurrency]; ok {
		cur = strings.ToUpper(cur)
		doc.Fields[domain.FieldCurrency] = cur
		if len(cur) != 3 {
			vErr.Add(domain.FieldCurrency, fmt.Sprintf("%q is not an ISO 4217 code", cur))
		}
	}

	return vErr
}
