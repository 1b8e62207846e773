package domain

// Canonical POL field names shared by templates, the merge and the ILS payload.
const (
	FieldTitle            = "title"
	FieldAuthor           = "author"
	FieldISBN             = "isbn"
	FieldOCLCNumber       = "oclc_number"
	FieldFormat           = "format"
	FieldPublisher        = "publisher"
	FieldPublicationYear  = "publication_year"
	FieldPublicationPlace = "publication_place"
	FieldPrice            = "price"
	FieldCurrency         = "currency"
	FieldCoverURL         = "cover_url"
	FieldAvailability     = "availability"

	FieldVendor            = "vendor"
	FieldVendorAccount     = "vendor_account"
	FieldFund              = "fund"
	FieldOwner             = "owner"
	FieldOwningLibrary     = "owning_library"
	FieldShelvingLocation  = "shelving_location"
	FieldItemPolicy        = "item_policy"
	FieldOrderType         = "order_type"
	FieldMaterialType      = "material_type"
	FieldAcquisitionMethod = "acquisition_method"
	FieldQuantity          = "quantity"
	FieldReportingCode     = "reporting_code"
	FieldVendorReference   = "vendor_reference_number"
	FieldReceivingNote     = "receiving_note"
	FieldNote              = "note"
	FieldOrderDate         = "order_date"
	FieldRush              = "rush"
	FieldInterestedUser    = "interested_user"
	FieldExpectedReceipt   = "expected_receipt_date"
)

// BibliographicFields is the fixed set of fields every BibliographicRecord
// reports, known or not.
var BibliographicFields = []string{
	FieldTitle,
	FieldAuthor,
	FieldISBN,
	FieldOCLCNumber,
	FieldFormat,
	FieldPublisher,
	FieldPublicationYear,
	FieldPublicationPlace,
	FieldPrice,
}

// MarketplaceFields is the fixed set of fields a MarketplaceRecord reports.
var MarketplaceFields = []string{
	FieldPrice,
	FieldCurrency,
	FieldCoverURL,
	FieldAvailability,
}
