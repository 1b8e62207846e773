package domain

import (
	"fmt"
	"strings"
)

// Identifier is a normalized lookup key for one item.
type Identifier struct {
	Type  IdentifierType `json:"type"`
	Value string         `json:"value"`
}

func (i Identifier) String() string {
	return string(i.Type) + ":" + i.Value
}

var oclcPrefixes = []string{"(ocolc)", "ocolc", "ocm", "ocn", "on"}

// ParseIdentifier normalizes raw according to typ. With IdentifierTypeAuto (or
// an empty type) a valid ISBN wins, otherwise the value is tried as an OCLC
// number.
func ParseIdentifier(raw string, typ IdentifierType) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, fmt.Errorf("%w: empty value", ErrInvalidIdentifier)
	}

	switch typ {
	case IdentifierTypeISBN:
		isbn, ok := NormalizeISBN(raw)
		if !ok {
			return Identifier{}, fmt.Errorf("%w: %q is not a valid ISBN", ErrInvalidIdentifier, raw)
		}
		return Identifier{Type: IdentifierTypeISBN, Value: isbn}, nil
	case IdentifierTypeOCLC:
		oclc, ok := NormalizeOCLC(raw)
		if !ok {
			return Identifier{}, fmt.Errorf("%w: %q is not a valid OCLC number", ErrInvalidIdentifier, raw)
		}
		return Identifier{Type: IdentifierTypeOCLC, Value: oclc}, nil
	case IdentifierTypeAuto, "":
		if isbn, ok := NormalizeISBN(raw); ok && looksLikeISBN(isbn) {
			return Identifier{Type: IdentifierTypeISBN, Value: isbn}, nil
		}
		if oclc, ok := NormalizeOCLC(raw); ok {
			return Identifier{Type: IdentifierTypeOCLC, Value: oclc}, nil
		}
		return Identifier{}, fmt.Errorf("%w: %q is neither an ISBN nor an OCLC number", ErrInvalidIdentifier, raw)
	default:
		return Identifier{}, fmt.Errorf("%w: unsupported identifier type %q", ErrInvalidIdentifier, typ)
	}
}

// NormalizeISBN strips hyphens, spaces and an "ISBN" prefix and checks the
// shape of an ISBN-10 or ISBN-13. Check digits are not enforced here; use
// ISBNChecksumValid to report them.
func NormalizeISBN(raw string) (string, bool) {
	s := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw)))
	s = strings.TrimPrefix(s, "ISBN:")
	s = strings.TrimPrefix(s, "ISBN")
	switch len(s) {
	case 10:
		if allDigits(s[:9]) && (isDigit(s[9]) || s[9] == 'X') {
			return s, true
		}
	case 13:
		if allDigits(s) {
			return s, true
		}
	}
	return "", false
}

// ISBNChecksumValid verifies the check digit of a normalized ISBN-10 or ISBN-13.
func ISBNChecksumValid(isbn string) bool {
	switch len(isbn) {
	case 10:
		return validISBN10(isbn)
	case 13:
		return validISBN13(isbn)
	}
	return false
}

// looksLikeISBN separates ISBNs from bare OCLC numbers during auto-detection:
// 13-digit values need the Bookland prefix, 10-digit values a valid check digit.
func looksLikeISBN(isbn string) bool {
	if len(isbn) == 13 {
		return strings.HasPrefix(isbn, "978") || strings.HasPrefix(isbn, "979")
	}
	return validISBN10(isbn)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func validISBN10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case isDigit(c):
			d = int(c - '0')
		case c == 'X' && i == 9:
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

// ISBN10To13 converts a valid ISBN-10 to its 978-prefixed ISBN-13 form.
func ISBN10To13(isbn10 string) (string, bool) {
	if len(isbn10) != 10 || !validISBN10(isbn10) {
		return "", false
	}
	body := "978" + isbn10[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return fmt.Sprintf("%s%d", body, check), true
}

// NormalizeOCLC strips the common OCLC prefixes and leading zeros. Valid OCLC
// numbers are 1 to 12 digits.
func NormalizeOCLC(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range oclcPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	if s == "" || len(s) > 12 {
		return "", false
	}
	if !allDigits(s) {
		return "", false
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "", false
	}
	return s, true
}
