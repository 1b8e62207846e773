// Package catalog normalizes union-catalog responses into canonical
// bibliographic records.
package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"polgen/internal/domain"
)

// Mapping is a field-mapping table for one source schema: canonical field name
// to candidate paths in the decoded JSON document, tried in order. Path
// segments are object keys, array indexes, or "*" to fan out over an array.
type Mapping map[string][]string

// Apply builds a canonical record from doc. Every canonical field is set or
// left explicitly unknown; nothing in doc outside the table is consulted.
func (m Mapping) Apply(source string, doc map[string]interface{}) *domain.BibliographicRecord {
	rec := &domain.BibliographicRecord{Source: source}
	for _, field := range domain.BibliographicFields {
		paths, ok := m[field]
		if !ok {
			continue
		}
		for _, path := range paths {
			values := lookup(doc, strings.Split(path, "."))
			if len(values) == 0 {
				continue
			}
			if field == domain.FieldAuthor {
				for _, a := range normalizeAuthors(values) {
					rec.Set(domain.FieldAuthor, a)
				}
				if len(rec.Authors) > 0 {
					break
				}
				continue
			}
			if v := normalizeField(field, values[0]); v != "" {
				rec.Set(field, v)
				break
			}
		}
	}
	return rec
}

// lookup walks path through doc and returns every scalar it reaches.
func lookup(node interface{}, path []string) []string {
	if len(path) == 0 {
		return scalars(node)
	}
	seg := path[0]
	switch n := node.(type) {
	case map[string]interface{}:
		child, ok := n[seg]
		if !ok {
			return nil
		}
		return lookup(child, path[1:])
	case []interface{}:
		if seg == "*" {
			var out []string
			for _, child := range n {
				out = append(out, lookup(child, path[1:])...)
			}
			return out
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil
		}
		return lookup(n[idx], path[1:])
	}
	return nil
}

func scalars(node interface{}) []string {
	switch n := node.(type) {
	case string:
		if s := strings.TrimSpace(n); s != "" {
			return []string{s}
		}
	case float64:
		return []string{strconv.FormatFloat(n, 'f', -1, 64)}
	case json.Number:
		return []string{n.String()}
	case bool:
		return []string{strconv.FormatBool(n)}
	case []interface{}:
		var out []string
		for _, child := range n {
			out = append(out, scalars(child)...)
		}
		return out
	}
	return nil
}

var (
	yearRe          = regexp.MustCompile(`\d{4}`)
	titleTrailingRe = regexp.MustCompile(`[\s/:;,.=]+$`)
	priceRe         = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

func normalizeField(field, v string) string {
	v = strings.TrimSpace(v)
	switch field {
	case domain.FieldTitle:
		return titleTrailingRe.ReplaceAllString(v, "")
	case domain.FieldPublicationYear:
		return yearRe.FindString(v)
	case domain.FieldISBN:
		if isbn, ok := domain.NormalizeISBN(v); ok {
			return isbn
		}
		return ""
	case domain.FieldOCLCNumber:
		if oclc, ok := domain.NormalizeOCLC(v); ok {
			return oclc
		}
		return ""
	case domain.FieldPrice:
		return NormalizePrice(v)
	case domain.FieldPublisher, domain.FieldPublicationPlace:
		return strings.TrimRight(v, " ,:;")
	}
	return v
}

// normalizeAuthors splits "a; b" lists, trims trailing punctuation and drops
// duplicates while keeping the first-seen order.
func normalizeAuthors(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			part = strings.TrimRight(strings.TrimSpace(part), " ,.")
			if part == "" || seen[strings.ToLower(part)] {
				continue
			}
			seen[strings.ToLower(part)] = true
			out = append(out, part)
		}
	}
	return out
}

// NormalizePrice extracts the first decimal number from v and formats it with
// two decimals. Returns "" if v holds no number.
func NormalizePrice(v string) string {
	m := priceRe.FindString(strings.ReplaceAll(v, ",", ""))
	if m == "" {
		return ""
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}
