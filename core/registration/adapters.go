package registration

import (
	"strings"
	"time"
)

// The three origin tables have structurally different schemas. Each row type
// below mirrors its origin table and owns the one normalization function that
// produces the canonical Registration, so consumers never branch on source.

type WebsiteRow struct {
	ID                string
	OrganizationID    string
	GuardianName      string
	GuardianEmail     string
	GuardianPhone     string
	ParentEmail       string // account email, may differ from the form's guardian email
	ChildFirstName    string
	ChildLastName     string
	ChildDateOfBirth  time.Time
	ChildGender       string
	FeeAmount         float64
	FeePaid           bool
	PaymentVerified   bool
	PaymentMethod     string
	ProofOfPaymentURL string
	DiscountAmount    float64
	DocumentsUploaded bool
	Status            string
	StudentID         string
	ParentID          string
	ReviewedBy        string
	ReviewedAt        time.Time
	RejectionReason   string
	CreatedAt         time.Time
}

// Normalize maps a website row onto the canonical shape. The mapping is near
// 1:1 and the status passes through unchanged.
func (row WebsiteRow) Normalize() Registration {
	return Registration{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		Source:            SourceWebsite,
		GuardianName:      row.GuardianName,
		GuardianEmail:     row.GuardianEmail,
		GuardianPhone:     row.GuardianPhone,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth,
		ChildGender:       row.ChildGender,
		FeeAmount:         row.FeeAmount,
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod,
		ProofOfPaymentURL: row.ProofOfPaymentURL,
		DiscountAmount:    row.DiscountAmount,
		DocumentsUploaded: row.DocumentsUploaded,
		Status:            Status(row.Status),
		StudentID:         row.StudentID,
		ParentID:          row.ParentID,
		ReviewedBy:        row.ReviewedBy,
		ReviewedAt:        row.ReviewedAt,
		RejectionReason:   row.RejectionReason,
		CreatedAt:         row.CreatedAt,
	}
}

type AppRow struct {
	ID                string
	OrganizationID    string
	ParentID          string
	ParentFirstName   string // joined from the parent profile
	ParentLastName    string
	ParentEmail       string
	ParentPhone       string
	ChildFirstName    string
	ChildLastName     string
	ChildDateOfBirth  time.Time
	ChildGender       string
	FeeAmount         float64
	FeePaid           bool
	PaymentVerified   bool
	PaymentMethod     string
	ProofOfPaymentURL string
	DiscountAmount    float64
	Status            string
	StudentID         string
	ReviewedBy        string
	ReviewedAt        time.Time
	RejectionReason   string
	CreatedAt         time.Time
}

// Normalize maps an in-app row onto the canonical shape. The guardian name is
// synthesized from the joined parent profile; in-app registrations always have
// their documents uploaded through the app, so the flag is asserted.
func (row AppRow) Normalize() Registration {
	name := strings.TrimSpace(strings.TrimSpace(row.ParentFirstName) + " " + strings.TrimSpace(row.ParentLastName))
	if name == "" {
		name = "Parent"
	}
	return Registration{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		Source:            SourceInApp,
		GuardianName:      name,
		GuardianEmail:     row.ParentEmail,
		GuardianPhone:     row.ParentPhone,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth,
		ChildGender:       row.ChildGender,
		FeeAmount:         row.FeeAmount,
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod,
		ProofOfPaymentURL: row.ProofOfPaymentURL,
		DiscountAmount:    row.DiscountAmount,
		DocumentsUploaded: true,
		Status:            Status(row.Status),
		StudentID:         row.StudentID,
		ParentID:          row.ParentID,
		ReviewedBy:        row.ReviewedBy,
		ReviewedAt:        row.ReviewedAt,
		RejectionReason:   row.RejectionReason,
		CreatedAt:         row.CreatedAt,
	}
}

type AftercareRow struct {
	ID                string
	OrganizationID    string
	GuardianName      string
	GuardianEmail     string
	GuardianPhone     string
	ChildFirstName    string
	ChildLastName     string
	ChildDateOfBirth  time.Time
	ChildGender       string
	OriginalFee       *float64
	CurrentFee        *float64
	FeePaid           bool
	PaymentVerified   bool
	PaymentMethod     string
	ProofOfPaymentURL string
	DocumentsUploaded bool
	Status            string
	StudentID         string
	ParentID          string
	ReviewedBy        string
	ReviewedAt        time.Time
	RejectionReason   string
	CreatedAt         time.Time
}

// MapAftercareStatus remaps the aftercare system's status vocabulary onto the
// canonical one. Reviews write canonical statuses back to the aftercare table,
// so those map to themselves; anything else counts as pending. Repositories
// share this mapping so their pending guard matches what Normalize reports.
func MapAftercareStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "paid", "enrolled", string(StatusApproved):
		return StatusApproved
	case "cancelled", string(StatusRejected):
		return StatusRejected
	default:
		return StatusPending
	}
}

// Normalize maps an aftercare row onto the canonical shape. The aftercare
// system tracks its own status vocabulary, remapped here; the discount is
// derived from the gap between original and current fee when both are known.
func (row AftercareRow) Normalize() Registration {
	status := MapAftercareStatus(row.Status)

	var fee, discount float64
	if row.CurrentFee != nil {
		fee = *row.CurrentFee
	}
	if row.OriginalFee != nil && row.CurrentFee != nil {
		discount = *row.OriginalFee - *row.CurrentFee
	}

	return Registration{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		Source:            SourceAftercare,
		GuardianName:      row.GuardianName,
		GuardianEmail:     row.GuardianEmail,
		GuardianPhone:     row.GuardianPhone,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth,
		ChildGender:       row.ChildGender,
		FeeAmount:         fee,
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod,
		ProofOfPaymentURL: row.ProofOfPaymentURL,
		DiscountAmount:    discount,
		DocumentsUploaded: row.DocumentsUploaded,
		Status:            status,
		StudentID:         row.StudentID,
		ParentID:          row.ParentID,
		ReviewedBy:        row.ReviewedBy,
		ReviewedAt:        row.ReviewedAt,
		RejectionReason:   row.RejectionReason,
		CreatedAt:         row.CreatedAt,
	}
}
