package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/littleoaks/schoolops/core/registration"
)

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) *registrationRepository {
	return &registrationRepository{db: db}
}

// table names per source; the three origin schemas are deliberately separate.
func tableFor(src registration.Source) string {
	switch src {
	case registration.SourceWebsite:
		return "website_registrations"
	case registration.SourceInApp:
		return "app_registrations"
	default:
		return "aftercare_registrations"
	}
}

type websiteRow struct {
	ID                string      `db:"id"`
	OrganizationID    string      `db:"organization_id"`
	GuardianName      null.String `db:"guardian_name"`
	GuardianEmail     null.String `db:"guardian_email"`
	GuardianPhone     null.String `db:"guardian_phone"`
	ParentEmail       null.String `db:"parent_email"`
	ChildFirstName    string      `db:"child_first_name"`
	ChildLastName     string      `db:"child_last_name"`
	ChildDateOfBirth  null.Time   `db:"child_date_of_birth"`
	ChildGender       null.String `db:"child_gender"`
	FeeAmount         float64     `db:"fee_amount"`
	FeePaid           bool        `db:"fee_paid"`
	PaymentVerified   bool        `db:"payment_verified"`
	PaymentMethod     null.String `db:"payment_method"`
	ProofOfPaymentURL null.String `db:"proof_of_payment_url"`
	DiscountAmount    float64     `db:"discount_amount"`
	DocumentsUploaded bool        `db:"documents_uploaded"`
	Status            string      `db:"status"`
	StudentID         null.String `db:"student_id"`
	ParentID          null.String `db:"parent_id"`
	ReviewedBy        null.String `db:"reviewed_by"`
	ReviewedAt        null.Time   `db:"reviewed_at"`
	RejectionReason   null.String `db:"rejection_reason"`
	CreatedAt         time.Time   `db:"created_at"`
}

func (row websiteRow) toCore() registration.WebsiteRow {
	return registration.WebsiteRow{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		GuardianName:      row.GuardianName.String,
		GuardianEmail:     row.GuardianEmail.String,
		GuardianPhone:     row.GuardianPhone.String,
		ParentEmail:       row.ParentEmail.String,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth.Time,
		ChildGender:       row.ChildGender.String,
		FeeAmount:         row.FeeAmount,
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod.String,
		ProofOfPaymentURL: row.ProofOfPaymentURL.String,
		DiscountAmount:    row.DiscountAmount,
		DocumentsUploaded: row.DocumentsUploaded,
		Status:            row.Status,
		StudentID:         row.StudentID.String,
		ParentID:          row.ParentID.String,
		ReviewedBy:        row.ReviewedBy.String,
		ReviewedAt:        row.ReviewedAt.Time,
		RejectionReason:   row.RejectionReason.String,
		CreatedAt:         row.CreatedAt,
	}
}

const websiteColumns = `w.id, w.organization_id, w.guardian_name, w.guardian_email, w.guardian_phone,
	w.parent_email, w.child_first_name, w.child_last_name, w.child_date_of_birth, w.child_gender,
	w.fee_amount, w.fee_paid, w.payment_verified, w.payment_method, w.proof_of_payment_url,
	w.discount_amount, w.documents_uploaded, w.status, w.student_id, w.parent_id,
	w.reviewed_by, w.reviewed_at, w.rejection_reason, w.created_at`

func (repo registrationRepository) QueryWebsite(ctx context.Context, orgID string) ([]registration.WebsiteRow, error) {
	var rows []websiteRow
	query := `SELECT ` + websiteColumns + `
		FROM website_registrations w
		WHERE w.organization_id = $1
		ORDER BY w.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		if isUndefinedTable(err) {
			return nil, registration.ErrNotProvisioned
		}
		return nil, errors.Wrap(err, "querying website registrations")
	}

	out := make([]registration.WebsiteRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (repo registrationRepository) GetWebsite(ctx context.Context, id string) (registration.WebsiteRow, error) {
	var row websiteRow
	query := `SELECT ` + websiteColumns + ` FROM website_registrations w WHERE w.id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return registration.WebsiteRow{}, trapNoRowsErr(err, registration.ErrNotFound, "getting website registration")
	}
	return row.toCore(), nil
}

type appRow struct {
	ID                string      `db:"id"`
	OrganizationID    string      `db:"organization_id"`
	ParentID          null.String `db:"parent_id"`
	ParentFirstName   null.String `db:"parent_first_name"`
	ParentLastName    null.String `db:"parent_last_name"`
	ParentEmail       null.String `db:"parent_email"`
	ParentPhone       null.String `db:"parent_phone"`
	ChildFirstName    string      `db:"child_first_name"`
	ChildLastName     string      `db:"child_last_name"`
	ChildDateOfBirth  null.Time   `db:"child_date_of_birth"`
	ChildGender       null.String `db:"child_gender"`
	FeeAmount         float64     `db:"fee_amount"`
	FeePaid           bool        `db:"fee_paid"`
	PaymentVerified   bool        `db:"payment_verified"`
	PaymentMethod     null.String `db:"payment_method"`
	ProofOfPaymentURL null.String `db:"proof_of_payment_url"`
	DiscountAmount    float64     `db:"discount_amount"`
	Status            string      `db:"status"`
	StudentID         null.String `db:"student_id"`
	ReviewedBy        null.String `db:"reviewed_by"`
	ReviewedAt        null.Time   `db:"reviewed_at"`
	RejectionReason   null.String `db:"rejection_reason"`
	CreatedAt         time.Time   `db:"created_at"`
}

func (row appRow) toCore() registration.AppRow {
	return registration.AppRow{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		ParentID:          row.ParentID.String,
		ParentFirstName:   row.ParentFirstName.String,
		ParentLastName:    row.ParentLastName.String,
		ParentEmail:       row.ParentEmail.String,
		ParentPhone:       row.ParentPhone.String,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth.Time,
		ChildGender:       row.ChildGender.String,
		FeeAmount:         row.FeeAmount,
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod.String,
		ProofOfPaymentURL: row.ProofOfPaymentURL.String,
		DiscountAmount:    row.DiscountAmount,
		Status:            row.Status,
		StudentID:         row.StudentID.String,
		ReviewedBy:        row.ReviewedBy.String,
		ReviewedAt:        row.ReviewedAt.Time,
		RejectionReason:   row.RejectionReason.String,
		CreatedAt:         row.CreatedAt,
	}
}

// the guardian identity of an in-app registration lives on the joined parent profile
const appColumns = `a.id, a.organization_id, a.parent_id, p.first_name AS parent_first_name,
	p.last_name AS parent_last_name, p.email AS parent_email, p.phone AS parent_phone,
	a.child_first_name, a.child_last_name, a.child_date_of_birth, a.child_gender,
	a.fee_amount, a.fee_paid, a.payment_verified, a.payment_method, a.proof_of_payment_url,
	a.discount_amount, a.status, a.student_id, a.reviewed_by, a.reviewed_at,
	a.rejection_reason, a.created_at`

func (repo registrationRepository) QueryApp(ctx context.Context, orgID string) ([]registration.AppRow, error) {
	var rows []appRow
	query := `SELECT ` + appColumns + `
		FROM app_registrations a
		LEFT JOIN parent_profiles p ON p.id = a.parent_id
		WHERE a.organization_id = $1
		ORDER BY a.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		if isUndefinedTable(err) {
			return nil, registration.ErrNotProvisioned
		}
		return nil, errors.Wrap(err, "querying app registrations")
	}

	out := make([]registration.AppRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (repo registrationRepository) GetApp(ctx context.Context, id string) (registration.AppRow, error) {
	var row appRow
	query := `SELECT ` + appColumns + `
		FROM app_registrations a
		LEFT JOIN parent_profiles p ON p.id = a.parent_id
		WHERE a.id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return registration.AppRow{}, trapNoRowsErr(err, registration.ErrNotFound, "getting app registration")
	}
	return row.toCore(), nil
}

type aftercareRow struct {
	ID                string       `db:"id"`
	OrganizationID    string       `db:"organization_id"`
	GuardianName      null.String  `db:"guardian_name"`
	GuardianEmail     null.String  `db:"guardian_email"`
	GuardianPhone     null.String  `db:"guardian_phone"`
	ChildFirstName    string       `db:"child_first_name"`
	ChildLastName     string       `db:"child_last_name"`
	ChildDateOfBirth  null.Time    `db:"child_date_of_birth"`
	ChildGender       null.String  `db:"child_gender"`
	OriginalFee       null.Float64 `db:"original_fee"`
	CurrentFee        null.Float64 `db:"current_fee"`
	FeePaid           bool         `db:"fee_paid"`
	PaymentVerified   bool         `db:"payment_verified"`
	PaymentMethod     null.String  `db:"payment_method"`
	ProofOfPaymentURL null.String  `db:"proof_of_payment_url"`
	DocumentsUploaded bool         `db:"documents_uploaded"`
	Status            string       `db:"status"`
	StudentID         null.String  `db:"student_id"`
	ParentID          null.String  `db:"parent_id"`
	ReviewedBy        null.String  `db:"reviewed_by"`
	ReviewedAt        null.Time    `db:"reviewed_at"`
	RejectionReason   null.String  `db:"rejection_reason"`
	CreatedAt         time.Time    `db:"created_at"`
}

func (row aftercareRow) toCore() registration.AftercareRow {
	return registration.AftercareRow{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		GuardianName:      row.GuardianName.String,
		GuardianEmail:     row.GuardianEmail.String,
		GuardianPhone:     row.GuardianPhone.String,
		ChildFirstName:    row.ChildFirstName,
		ChildLastName:     row.ChildLastName,
		ChildDateOfBirth:  row.ChildDateOfBirth.Time,
		ChildGender:       row.ChildGender.String,
		OriginalFee:       row.OriginalFee.Ptr(),
		CurrentFee:        row.CurrentFee.Ptr(),
		FeePaid:           row.FeePaid,
		PaymentVerified:   row.PaymentVerified,
		PaymentMethod:     row.PaymentMethod.String,
		ProofOfPaymentURL: row.ProofOfPaymentURL.String,
		DocumentsUploaded: row.DocumentsUploaded,
		Status:            row.Status,
		StudentID:         row.StudentID.String,
		ParentID:          row.ParentID.String,
		ReviewedBy:        row.ReviewedBy.String,
		ReviewedAt:        row.ReviewedAt.Time,
		RejectionReason:   row.RejectionReason.String,
		CreatedAt:         row.CreatedAt,
	}
}

const aftercareColumns = `c.id, c.organization_id, c.guardian_name, c.guardian_email, c.guardian_phone,
	c.child_first_name, c.child_last_name, c.child_date_of_birth, c.child_gender,
	c.original_fee, c.current_fee, c.fee_paid, c.payment_verified, c.payment_method,
	c.proof_of_payment_url, c.documents_uploaded, c.status, c.student_id, c.parent_id,
	c.reviewed_by, c.reviewed_at, c.rejection_reason, c.created_at`

func (repo registrationRepository) QueryAftercare(ctx context.Context, orgID string) ([]registration.AftercareRow, error) {
	var rows []aftercareRow
	query := `SELECT ` + aftercareColumns + `
		FROM aftercare_registrations c
		WHERE c.organization_id = $1
		ORDER BY c.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		if isUndefinedTable(err) {
			return nil, registration.ErrNotProvisioned
		}
		return nil, errors.Wrap(err, "querying aftercare registrations")
	}

	out := make([]registration.AftercareRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (repo registrationRepository) GetAftercare(ctx context.Context, id string) (registration.AftercareRow, error) {
	var row aftercareRow
	query := `SELECT ` + aftercareColumns + ` FROM aftercare_registrations c WHERE c.id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return registration.AftercareRow{}, trapNoRowsErr(err, registration.ErrNotFound, "getting aftercare registration")
	}
	return row.toCore(), nil
}

// UpdateStatusIfPending is the authoritative approval/rejection commit: the
// WHERE status = 'pending' guard is what prevents two concurrent reviewers
// from both completing the transition.
func (repo registrationRepository) UpdateStatusIfPending(ctx context.Context, src registration.Source, id string, upd registration.StatusUpdate) error {
	// the aftercare table keeps its own status vocabulary; pending there is
	// anything MapAftercareStatus does not remap to a terminal status
	pendingGuard := `status = 'pending'`
	if src == registration.SourceAftercare {
		pendingGuard = `lower(status) NOT IN ('paid', 'enrolled', 'approved', 'cancelled', 'rejected')`
	}
	query := fmt.Sprintf(`UPDATE %s SET
			status = $1,
			reviewed_by = NULLIF($2, '')::uuid,
			reviewed_at = $3,
			rejection_reason = NULLIF($4, ''),
			student_id = COALESCE(NULLIF($5, '')::uuid, student_id),
			parent_id = COALESCE(NULLIF($6, '')::uuid, parent_id)
		WHERE id = $7 AND %s`, tableFor(src), pendingGuard)

	result, err := repo.db.ExecContext(ctx, query,
		string(upd.Status), upd.ReviewedBy, upd.ReviewedAt.UTC(), upd.RejectionReason, upd.StudentID, upd.ParentID, id)
	if err != nil {
		return errors.Wrap(err, "updating registration status")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return registration.ErrAlreadyReviewed
	}
	return nil
}

func (repo registrationRepository) SetPaymentVerified(ctx context.Context, src registration.Source, id string, verified bool, verifiedBy string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET
			payment_verified = $1,
			payment_verified_by = NULLIF($2, '')::uuid,
			payment_verified_at = $3
		WHERE id = $4`, tableFor(src))

	result, err := repo.db.ExecContext(ctx, query, verified, verifiedBy, at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating payment verification")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return registration.ErrNotFound
	}
	return nil
}
