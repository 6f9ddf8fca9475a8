package inmemdb

import (
	"context"
	"time"

	"github.com/littleoaks/schoolops/core/registration"
)

type registrationRepository struct {
	db *DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) *registrationRepository {
	return &registrationRepository{db: db}
}

func (repo *registrationRepository) QueryWebsite(_ context.Context, orgID string) ([]registration.WebsiteRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if !repo.db.websiteProvisioned {
		return nil, registration.ErrNotProvisioned
	}
	rows := make([]registration.WebsiteRow, 0, len(repo.db.website))
	for _, row := range repo.db.website {
		if row.OrganizationID == orgID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (repo *registrationRepository) QueryApp(_ context.Context, orgID string) ([]registration.AppRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if !repo.db.appProvisioned {
		return nil, registration.ErrNotProvisioned
	}
	rows := make([]registration.AppRow, 0, len(repo.db.app))
	for _, row := range repo.db.app {
		if row.OrganizationID == orgID {
			rows = append(rows, repo.joinParent(*row))
		}
	}
	return rows, nil
}

func (repo *registrationRepository) QueryAftercare(_ context.Context, orgID string) ([]registration.AftercareRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if !repo.db.aftercareProvisioned {
		return nil, registration.ErrNotProvisioned
	}
	rows := make([]registration.AftercareRow, 0, len(repo.db.aftercare))
	for _, row := range repo.db.aftercare {
		if row.OrganizationID == orgID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (repo *registrationRepository) GetWebsite(_ context.Context, id string) (registration.WebsiteRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, ok := repo.db.website[id]
	if !ok {
		return registration.WebsiteRow{}, registration.ErrNotFound
	}
	return *row, nil
}

func (repo *registrationRepository) GetApp(_ context.Context, id string) (registration.AppRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, ok := repo.db.app[id]
	if !ok {
		return registration.AppRow{}, registration.ErrNotFound
	}
	return repo.joinParent(*row), nil
}

func (repo *registrationRepository) GetAftercare(_ context.Context, id string) (registration.AftercareRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, ok := repo.db.aftercare[id]
	if !ok {
		return registration.AftercareRow{}, registration.ErrNotFound
	}
	return *row, nil
}

func (repo *registrationRepository) UpdateStatusIfPending(_ context.Context, src registration.Source, id string, upd registration.StatusUpdate) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	get := func() (status *string, reviewedBy, rejectionReason, studentID, parentID *string, reviewedAt *time.Time, ok bool) {
		switch src {
		case registration.SourceWebsite:
			if row, found := repo.db.website[id]; found {
				return &row.Status, &row.ReviewedBy, &row.RejectionReason, &row.StudentID, &row.ParentID, &row.ReviewedAt, true
			}
		case registration.SourceInApp:
			if row, found := repo.db.app[id]; found {
				return &row.Status, &row.ReviewedBy, &row.RejectionReason, &row.StudentID, &row.ParentID, &row.ReviewedAt, true
			}
		case registration.SourceAftercare:
			if row, found := repo.db.aftercare[id]; found {
				return &row.Status, &row.ReviewedBy, &row.RejectionReason, &row.StudentID, &row.ParentID, &row.ReviewedAt, true
			}
		}
		return nil, nil, nil, nil, nil, nil, false
	}

	status, reviewedBy, rejectionReason, studentID, parentID, reviewedAt, ok := get()
	if !ok {
		return registration.ErrNotFound
	}
	pending := *status == string(registration.StatusPending)
	if src == registration.SourceAftercare {
		// aftercare rows carry their own status vocabulary
		pending = registration.MapAftercareStatus(*status) == registration.StatusPending
	}
	if !pending {
		return registration.ErrAlreadyReviewed
	}

	*status = string(upd.Status)
	*reviewedBy = upd.ReviewedBy
	*reviewedAt = upd.ReviewedAt
	*rejectionReason = upd.RejectionReason
	if upd.StudentID != "" {
		*studentID = upd.StudentID
	}
	if upd.ParentID != "" {
		*parentID = upd.ParentID
	}
	return nil
}

func (repo *registrationRepository) SetPaymentVerified(_ context.Context, src registration.Source, id string, verified bool, _ string, _ time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	switch src {
	case registration.SourceWebsite:
		if row, ok := repo.db.website[id]; ok {
			row.PaymentVerified = verified
			return nil
		}
	case registration.SourceInApp:
		if row, ok := repo.db.app[id]; ok {
			row.PaymentVerified = verified
			return nil
		}
	case registration.SourceAftercare:
		if row, ok := repo.db.aftercare[id]; ok {
			row.PaymentVerified = verified
			return nil
		}
	}
	return registration.ErrNotFound
}

// joinParent mirrors the SQL join the real repository does for in-app rows.
// caller must hold db.mu
func (repo *registrationRepository) joinParent(row registration.AppRow) registration.AppRow {
	if p, ok := repo.db.parents[row.ParentID]; ok {
		row.ParentFirstName = p.FirstName
		row.ParentLastName = p.LastName
		row.ParentEmail = p.Email
		row.ParentPhone = p.Phone
	}
	return row
}
