package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/littleoaks/schoolops/core/billing"
)

type billingRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *sqlx.DB) *billingRepository {
	return &billingRepository{db: db}
}

type feeStructureRow struct {
	ID             string      `db:"id"`
	OrganizationID string      `db:"organization_id"`
	Name           string      `db:"name"`
	Description    null.String `db:"description"`
	FeeType        null.String `db:"fee_type"`
	Amount         float64     `db:"amount"`
	EffectiveFrom  null.Time   `db:"effective_from"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (row feeStructureRow) toCore() billing.FeeStructure {
	return billing.FeeStructure{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		Description:    row.Description.String,
		FeeType:        row.FeeType.String,
		Amount:         row.Amount,
		EffectiveFrom:  row.EffectiveFrom.Time,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
	}
}

func (repo billingRepository) QueryActiveFeeStructures(ctx context.Context, orgID string) ([]billing.FeeStructure, error) {
	var rows []feeStructureRow
	query := `SELECT id, organization_id, name, description, fee_type, amount, effective_from, is_active, created_at
		FROM fee_structures
		WHERE organization_id = $1 AND is_active
		ORDER BY effective_from DESC, created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}

	out := make([]billing.FeeStructure, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (repo billingRepository) CreateFeeStructure(ctx context.Context, fs billing.FeeStructure) (billing.FeeStructure, error) {
	fs.ID = uuid.New().String()
	query := `INSERT INTO fee_structures
			(id, organization_id, name, description, fee_type, amount, effective_from, is_active, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, '0001-01-01'::date), $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		fs.ID, fs.OrganizationID, fs.Name, fs.Description, fs.FeeType, fs.Amount,
		fs.EffectiveFrom.Format("2006-01-02"), fs.IsActive, fs.CreatedAt.UTC())
	if err != nil {
		return billing.FeeStructure{}, errors.Wrap(err, "inserting fee structure")
	}
	return fs, nil
}

func (repo billingRepository) CreateStudentFees(ctx context.Context, fees ...billing.StudentFee) error {
	query := `INSERT INTO student_fees (id, student_id, fee_structure_id, amount, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, fee := range fees {
		fee.ID = uuid.New().String()
		_, err := repo.db.ExecContext(ctx, query,
			fee.ID, fee.StudentID, fee.FeeStructureID, fee.Amount,
			fee.DueDate.Format("2006-01-02"), fee.Status, fee.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting student fee")
		}
	}
	return nil
}
