package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/littleoaks/schoolops/core/org"
)

type orgRepository struct {
	db *sqlx.DB
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *sqlx.DB) *orgRepository {
	return &orgRepository{db: db}
}

func (repo orgRepository) GetOrganization(ctx context.Context, id string) (org.Organization, error) {
	var row struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `SELECT id, name, created_at FROM organizations WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return org.Organization{}, trapNoRowsErr(err, org.ErrNotFound, "getting organization")
	}
	return org.Organization{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

func (repo orgRepository) GetParentByEmail(ctx context.Context, email string) (org.Parent, error) {
	var row struct {
		ID        string      `db:"id"`
		FirstName null.String `db:"first_name"`
		LastName  null.String `db:"last_name"`
		Email     string      `db:"email"`
		Phone     null.String `db:"phone"`
		CreatedAt time.Time   `db:"created_at"`
	}
	query := `SELECT id, first_name, last_name, email, phone, created_at
		FROM parent_profiles
		WHERE lower(email) = lower($1)
		LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, email); err != nil {
		return org.Parent{}, trapNoRowsErr(err, org.ErrParentNotFound, "getting parent by email")
	}
	return org.Parent{
		ID:        row.ID,
		FirstName: row.FirstName.String,
		LastName:  row.LastName.String,
		Email:     row.Email,
		Phone:     row.Phone.String,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (repo orgRepository) IsParentLinked(ctx context.Context, parentID, orgID string) (bool, error) {
	var linked bool
	query := `SELECT EXISTS (
		SELECT 1 FROM parent_organizations WHERE parent_id = $1 AND organization_id = $2
	)`
	if err := repo.db.GetContext(ctx, &linked, query, parentID, orgID); err != nil {
		return false, errors.Wrap(err, "checking parent-organization link")
	}
	return linked, nil
}
