package template

import "polgen/internal/domain"

type builtinTemplate struct {
	aliases []string
	fields  map[string]domain.FieldSpec
}

func required() domain.FieldSpec { return domain.FieldSpec{Required: true} }

func requiredWith(def string) domain.FieldSpec {
	return domain.FieldSpec{Required: true, Default: def}
}

func optional() domain.FieldSpec { return domain.FieldSpec{} }

func optionalWith(def string) domain.FieldSpec { return domain.FieldSpec{Default: def} }

// orderFields are the acquisitions fields every material type carries.
func orderFields(orderType, materialType string) map[string]domain.FieldSpec {
	return map[string]domain.FieldSpec{
		domain.FieldVendor:            required(),
		domain.FieldFund:              required(),
		domain.FieldPrice:             required(),
		domain.FieldCurrency:          requiredWith("USD"),
		domain.FieldOrderType:         requiredWith(orderType),
		domain.FieldMaterialType:      requiredWith(materialType),
		domain.FieldQuantity:          requiredWith("1"),
		domain.FieldAcquisitionMethod: requiredWith("VENDOR_SYSTEM"),
		domain.FieldOwningLibrary:     optional(),
		domain.FieldOwner:             optional(),
		domain.FieldShelvingLocation:  optional(),
		domain.FieldItemPolicy:        optional(),
		domain.FieldVendorAccount:     optional(),
		domain.FieldVendorReference:   optional(),
		domain.FieldReportingCode:     optional(),
		domain.FieldReceivingNote:     optional(),
		domain.FieldNote:              optional(),
		domain.FieldOrderDate:         optional(),
		domain.FieldRush:              optionalWith("false"),
		domain.FieldInterestedUser:    optional(),
		domain.FieldExpectedReceipt:   optional(),
	}
}

func withFields(base map[string]domain.FieldSpec, extra map[string]domain.FieldSpec) map[string]domain.FieldSpec {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

var builtins = map[string]builtinTemplate{
	"book": {
		aliases: []string{"monograph", "print_book", "printed_book"},
		fields: withFields(orderFields("PRINTED_BOOK_OT", "BOOK"), map[string]domain.FieldSpec{
			domain.FieldTitle:            required(),
			domain.FieldAuthor:           optional(),
			domain.FieldISBN:             optional(),
			domain.FieldOCLCNumber:       optional(),
			domain.FieldPublisher:        optional(),
			domain.FieldPublicationYear:  optional(),
			domain.FieldPublicationPlace: optional(),
		}),
	},
	"film": {
		aliases: []string{"dvd", "video", "bluray", "blu-ray"},
		fields: withFields(orderFields("VISUAL_MTL_OT", "DVD"), map[string]domain.FieldSpec{
			domain.FieldTitle:           required(),
			domain.FieldAuthor:          optional(),
			domain.FieldISBN:            optional(),
			domain.FieldOCLCNumber:      optional(),
			domain.FieldPublisher:       optional(),
			domain.FieldPublicationYear: optional(),
		}),
	},
	"serial": {
		aliases: []string{"journal", "periodical", "continuation"},
		fields: withFields(orderFields("PRINTED_JOURNAL_CO", "ISSUE"), map[string]domain.FieldSpec{
			domain.FieldTitle:      required(),
			domain.FieldISBN:       optional(),
			domain.FieldOCLCNumber: optional(),
			domain.FieldPublisher:  optional(),
		}),
	},
	"score": {
		aliases: []string{"music_score", "sheet_music"},
		fields: withFields(orderFields("SCORE_OT", "SCORE"), map[string]domain.FieldSpec{
			domain.FieldTitle:           required(),
			domain.FieldAuthor:          optional(),
			domain.FieldISBN:            optional(),
			domain.FieldOCLCNumber:      optional(),
			domain.FieldPublisher:       optional(),
			domain.FieldPublicationYear: optional(),
		}),
	},
	"manuscript": {
		aliases: []string{"archival"},
		fields: withFields(orderFields("MANUSCRIPT", "MANUSCRIPT"), map[string]domain.FieldSpec{
			domain.FieldTitle:           required(),
			domain.FieldAuthor:          optional(),
			domain.FieldOCLCNumber:      optional(),
			domain.FieldPublicationYear: optional(),
		}),
	},
	"mixed": {
		aliases: []string{"kit", "mixed_material"},
		fields: withFields(orderFields("MIXED", "MIXED"), map[string]domain.FieldSpec{
			domain.FieldTitle:      required(),
			domain.FieldISBN:       optional(),
			domain.FieldOCLCNumber: optional(),
			domain.FieldPublisher:  optional(),
		}),
	},
}
