package registration

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("registration not found")

	// ErrAlreadyReviewed is returned when the authoritative conditional
	// status write matches no pending row: another reviewer got there first.
	ErrAlreadyReviewed = errors.New("registration has already been reviewed")

	// ErrNotProvisioned marks an origin table that does not exist for this
	// tenant. The merger treats it as an empty source, silently.
	ErrNotProvisioned = errors.New("origin table not provisioned")
)

// Source is the origination channel of a registration.
type Source string

const (
	SourceWebsite   Source = "website"
	SourceInApp     Source = "in_app"
	SourceAftercare Source = "aftercare"
)

var Sources = []Source{SourceWebsite, SourceInApp, SourceAftercare}

func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceWebsite, SourceInApp, SourceAftercare:
		return Source(s), true
	}
	return "", false
}

// Status of a registration. Transitions only pending -> approved and
// pending -> rejected; never reversed here.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Registration is the canonical shape all three origin channels normalize to.
type Registration struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Source         Source `json:"source"`

	GuardianName  string `json:"guardian_name"`
	GuardianEmail string `json:"guardian_email"`
	GuardianPhone string `json:"guardian_phone"`

	ChildFirstName   string    `json:"child_first_name"`
	ChildLastName    string    `json:"child_last_name"`
	ChildDateOfBirth time.Time `json:"child_date_of_birth"`
	ChildGender      string    `json:"child_gender"`

	FeeAmount         float64 `json:"fee_amount"`
	FeePaid           bool    `json:"fee_paid"`
	PaymentVerified   bool    `json:"payment_verified"`
	PaymentMethod     string  `json:"payment_method"`
	ProofOfPaymentURL string  `json:"proof_of_payment_url"`
	DiscountAmount    float64 `json:"discount_amount"`
	DocumentsUploaded bool    `json:"documents_uploaded"`

	Status          Status    `json:"status"`
	StudentID       string    `json:"student_id,omitempty"`
	ParentID        string    `json:"parent_id,omitempty"`
	ReviewedBy      string    `json:"reviewed_by,omitempty"`
	ReviewedAt      time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

func (r Registration) ChildName() string {
	return strings.TrimSpace(r.ChildFirstName + " " + r.ChildLastName)
}

// StatusUpdate is the write-back applied to an origin row when a registration
// is approved or rejected.
type StatusUpdate struct {
	Status          Status
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason string
	StudentID       string
	ParentID        string
}

// QueryFilter narrows List results. Search does a case-insensitive substring
// match on child name, guardian name and guardian email.
type QueryFilter struct {
	Status Status
	Search string
}

// Repository reads and writes the three origin tables. Reads return origin
// rows (not canonical registrations); normalization happens in core.
type Repository interface {
	QueryWebsite(ctx context.Context, orgID string) ([]WebsiteRow, error)
	QueryApp(ctx context.Context, orgID string) ([]AppRow, error)
	QueryAftercare(ctx context.Context, orgID string) ([]AftercareRow, error)

	GetWebsite(ctx context.Context, id string) (WebsiteRow, error)
	GetApp(ctx context.Context, id string) (AppRow, error)
	GetAftercare(ctx context.Context, id string) (AftercareRow, error)

	// UpdateStatusIfPending applies upd to the origin row only while its
	// status is still pending; it returns ErrAlreadyReviewed otherwise.
	UpdateStatusIfPending(ctx context.Context, src Source, id string, upd StatusUpdate) error

	SetPaymentVerified(ctx context.Context, src Source, id string, verified bool, verifiedBy string, at time.Time) error
}

// proofSentinels are placeholder values a proof-of-payment URL field may hold
// instead of an actual upload.
var proofSentinels = map[string]struct{}{
	"pending":   {},
	"n/a":       {},
	"na":        {},
	"none":      {},
	"null":      {},
	"undefined": {},
}

// HasPlausibleProofOfPayment reports whether the registration carries a
// proof-of-payment value that looks like a real upload.
func (r Registration) HasPlausibleProofOfPayment() bool {
	url := strings.ToLower(strings.TrimSpace(r.ProofOfPaymentURL))
	if url == "" {
		return false
	}
	_, sentinel := proofSentinels[url]
	return !sentinel
}

// CanApprove is the business predicate gating the approve action. It is pure:
// the UI calls it per row to enable/disable the approve control.
//
// Website registrations owing a fee require verified payment; in-app and
// aftercare registrations also accept an unverified but plausible proof of
// payment. Registrations owing nothing are always approvable.
func CanApprove(r Registration) bool {
	if r.Status != StatusPending {
		return false
	}
	if r.FeeAmount <= 0 {
		return true
	}
	switch r.Source {
	case SourceWebsite:
		return r.PaymentVerified
	default: // in-app, aftercare
		return r.PaymentVerified || r.HasPlausibleProofOfPayment()
	}
}
