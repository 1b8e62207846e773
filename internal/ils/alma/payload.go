package alma

import (
	"strconv"
	"strings"
	"time"

	"polgen/internal/domain"
)

type valueDesc struct {
	Value string `json:"value"`
	Desc  string `json:"desc,omitempty"`
}

type amount struct {
	Sum      string    `json:"sum"`
	Currency valueDesc `json:"currency"`
}

type fundDistribution struct {
	Amount   amount    `json:"amount"`
	FundCode valueDesc `json:"fund_code"`
}

type resourceMetadata struct {
	Title               string   `json:"title"`
	Author              string   `json:"author,omitempty"`
	ISBN                string   `json:"isbn,omitempty"`
	Publisher           string   `json:"publisher,omitempty"`
	PublicationPlace    string   `json:"publication_place,omitempty"`
	PublicationYear     string   `json:"publication_year,omitempty"`
	SystemControlNumber []string `json:"system_control_number,omitempty"`
}

type itemCopy struct {
	ItemPolicy     *valueDesc `json:"item_policy,omitempty"`
	IsTempLocation string     `json:"is_temp_location"`
}

type location struct {
	Quantity         string     `json:"quantity"`
	Library          valueDesc  `json:"library"`
	ShelvingLocation string     `json:"shelving_location,omitempty"`
	Copy             []itemCopy `json:"copy,omitempty"`
}

type interestedUser struct {
	PrimaryID                 string `json:"primary_id"`
	NotifyReceivingActivation string `json:"notify_receiving_activation"`
	HoldItem                  string `json:"hold_item"`
	NotifyRenewal             string `json:"notify_renewal"`
	NotifyCancel              string `json:"notify_cancel"`
}

type note struct {
	NoteText string `json:"note_text"`
}

// poLine is the subset of the Alma po_line object polgen writes.
type poLine struct {
	Owner                 valueDesc          `json:"owner"`
	Type                  valueDesc          `json:"type"`
	Vendor                valueDesc          `json:"vendor"`
	VendorAccount         string             `json:"vendor_account,omitempty"`
	AcquisitionMethod     valueDesc          `json:"acquisition_method"`
	MaterialType          valueDesc          `json:"material_type"`
	Rush                  string             `json:"rush"`
	NoCharge              string             `json:"no_charge"`
	Price                 amount             `json:"price"`
	FundDistribution      []fundDistribution `json:"fund_distribution"`
	VendorReferenceNumber string             `json:"vendor_reference_number,omitempty"`
	ReportingCode         string             `json:"reporting_code,omitempty"`
	ReceivingNote         string             `json:"receiving_note,omitempty"`
	SourceType            valueDesc          `json:"source_type"`
	ResourceMetadata      resourceMetadata   `json:"resource_metadata"`
	Location              []location         `json:"location,omitempty"`
	ExpectedReceiptDate   string             `json:"expected_receipt_date,omitempty"`
	InterestedUser        []interestedUser   `json:"interested_user,omitempty"`
	Note                  []note             `json:"note,omitempty"`
}

// renderOptions carries the ILS settings that shape the payload.
type renderOptions struct {
	ExpectedReceiptDays int
	DefaultCurrency     string
	Now                 time.Time
}

var orderDateLayouts = []string{"2006-01-02", "20060102", "01/02/2006", "01-02-2006", "1/2/2006", time.RFC3339}

// almaDate formats t the way the acquisitions API expects dates.
func almaDate(t time.Time) string {
	return t.Format("2006-01-02") + "Z"
}

func parseOrderDate(s string) (time.Time, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func renderPOLine(doc *domain.POLDocument, opts renderOptions) poLine {
	f := doc.Fields
	currency := f[domain.FieldCurrency]
	if currency == "" {
		currency = opts.DefaultCurrency
	}

	quantity := 1
	if n, err := strconv.Atoi(f[domain.FieldQuantity]); err == nil && n > 0 {
		quantity = n
	}
	unit, _ := strconv.ParseFloat(f[domain.FieldPrice], 64)
	total := strconv.FormatFloat(unit*float64(quantity), 'f', 2, 64)

	owner := f[domain.FieldOwner]
	if owner == "" {
		owner = f[domain.FieldOwningLibrary]
	}

	line := poLine{
		Owner:             valueDesc{Value: owner},
		Type:              valueDesc{Value: f[domain.FieldOrderType]},
		Vendor:            valueDesc{Value: f[domain.FieldVendor]},
		VendorAccount:     f[domain.FieldVendorAccount],
		AcquisitionMethod: valueDesc{Value: f[domain.FieldAcquisitionMethod]},
		MaterialType:      valueDesc{Value: f[domain.FieldMaterialType]},
		Rush:              boolString(f[domain.FieldRush]),
		NoCharge:          "false",
		Price: amount{
			Sum:      f[domain.FieldPrice],
			Currency: valueDesc{Value: currency},
		},
		FundDistribution: []fundDistribution{{
			Amount:   amount{Sum: total, Currency: valueDesc{Value: currency}},
			FundCode: valueDesc{Value: f[domain.FieldFund]},
		}},
		VendorReferenceNumber: f[domain.FieldVendorReference],
		ReportingCode:         f[domain.FieldReportingCode],
		ReceivingNote:         f[domain.FieldReceivingNote],
		SourceType:            valueDesc{Value: "API"},
		ResourceMetadata: resourceMetadata{
			Title:            f[domain.FieldTitle],
			Author:           f[domain.FieldAuthor],
			ISBN:             f[domain.FieldISBN],
			Publisher:        f[domain.FieldPublisher],
			PublicationPlace: f[domain.FieldPublicationPlace],
			PublicationYear:  f[domain.FieldPublicationYear],
		},
	}
	if oclc := f[domain.FieldOCLCNumber]; oclc != "" {
		line.ResourceMetadata.SystemControlNumber = []string{"(OCoLC)" + oclc}
	}

	if lib := f[domain.FieldOwningLibrary]; lib != "" {
		loc := location{
			Quantity:         strconv.Itoa(quantity),
			Library:          valueDesc{Value: lib},
			ShelvingLocation: f[domain.FieldShelvingLocation],
		}
		cp := itemCopy{IsTempLocation: "false"}
		if policy := f[domain.FieldItemPolicy]; policy != "" {
			cp.ItemPolicy = &valueDesc{Value: policy}
		}
		loc.Copy = []itemCopy{cp}
		line.Location = []location{loc}
	}

	ordered := opts.Now
	if t, ok := parseOrderDate(f[domain.FieldOrderDate]); ok {
		ordered = t
	}
	if t, ok := parseOrderDate(f[domain.FieldExpectedReceipt]); ok {
		line.ExpectedReceiptDate = almaDate(t)
	} else if opts.ExpectedReceiptDays > 0 {
		line.ExpectedReceiptDate = almaDate(ordered.AddDate(0, 0, opts.ExpectedReceiptDays))
	}

	if user := f[domain.FieldInterestedUser]; user != "" {
		line.InterestedUser = []interestedUser{{
			PrimaryID:                 user,
			NotifyReceivingActivation: "true",
			HoldItem:                  "false",
			NotifyRenewal:             "false",
			NotifyCancel:              "false",
		}}
	}

	if n := f[domain.FieldNote]; n != "" {
		line.Note = append(line.Note, note{NoteText: n})
	}
	if doc.Identifier.Value != "" {
		line.Note = append(line.Note, note{NoteText: "Created by polgen for " + doc.Identifier.String()})
	}

	return line
}

func boolString(v string) string {
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil && b {
		return "true"
	}
	return "false"
}
