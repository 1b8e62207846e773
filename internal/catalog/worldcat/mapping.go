package worldcat

import (
	"strings"

	"polgen/internal/catalog"
	"polgen/internal/domain"
)

// Brief-bib field layouts differ by generalFormat. Serials carry ISSNs and an
// open date range, video records often lack a creator and put the
// responsibility statement elsewhere, scores keep the composer in creator.
var (
	bookMapping = catalog.Mapping{
		domain.FieldTitle:            {"title"},
		domain.FieldAuthor:           {"creator"},
		domain.FieldISBN:             {"isbns.0", "isbn13", "isbn"},
		domain.FieldOCLCNumber:       {"oclcNumber"},
		domain.FieldFormat:           {"generalFormat"},
		domain.FieldPublisher:        {"publisher"},
		domain.FieldPublicationYear:  {"machineReadableDate", "date"},
		domain.FieldPublicationPlace: {"publicationPlace"},
	}

	serialMapping = catalog.Mapping{
		domain.FieldTitle:            {"title"},
		domain.FieldAuthor:           {"creator", "corporateName"},
		domain.FieldISBN:             {"isbns.0"},
		domain.FieldOCLCNumber:       {"oclcNumber"},
		domain.FieldFormat:           {"generalFormat"},
		domain.FieldPublisher:        {"publisher"},
		domain.FieldPublicationYear:  {"date", "machineReadableDate"},
		domain.FieldPublicationPlace: {"publicationPlace"},
	}

	videoMapping = catalog.Mapping{
		domain.FieldTitle:            {"title"},
		domain.FieldAuthor:           {"creator", "statementOfResponsibility"},
		domain.FieldISBN:             {"isbns.0"},
		domain.FieldOCLCNumber:       {"oclcNumber"},
		domain.FieldFormat:           {"specificFormat", "generalFormat"},
		domain.FieldPublisher:        {"publisher"},
		domain.FieldPublicationYear:  {"machineReadableDate", "date"},
		domain.FieldPublicationPlace: {"publicationPlace"},
	}

	scoreMapping = catalog.Mapping{
		domain.FieldTitle:            {"title"},
		domain.FieldAuthor:           {"creator"},
		domain.FieldISBN:             {"isbns.0"},
		domain.FieldOCLCNumber:       {"oclcNumber"},
		domain.FieldFormat:           {"generalFormat"},
		domain.FieldPublisher:        {"publisher"},
		domain.FieldPublicationYear:  {"date"},
		domain.FieldPublicationPlace: {"publicationPlace"},
	}
)

var formatMappings = map[string]catalog.Mapping{
	"book":    bookMapping,
	"jrnl":    serialMapping,
	"serial":  serialMapping,
	"news":    serialMapping,
	"video":   videoMapping,
	"vis":     videoMapping,
	"msscr":   scoreMapping,
	"musscr":  scoreMapping,
	"score":   scoreMapping,
	"archv":   bookMapping,
	"kit":     bookMapping,
	"compfil": bookMapping,
}

// MappingFor returns the field-mapping table for a generalFormat value.
// Unrecognized formats use the book layout.
func MappingFor(generalFormat string) catalog.Mapping {
	if m, ok := formatMappings[strings.ToLower(strings.TrimSpace(generalFormat))]; ok {
		return m
	}
	return bookMapping
}
