package inmemdb

import (
	"context"
	"strings"

	"github.com/littleoaks/schoolops/core/org"
)

type orgRepository struct {
	db *DB
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *DB) *orgRepository {
	return &orgRepository{db: db}
}

func (repo *orgRepository) GetOrganization(_ context.Context, id string) (org.Organization, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	o, ok := repo.db.orgs[id]
	if !ok {
		return org.Organization{}, org.ErrNotFound
	}
	return *o, nil
}

func (repo *orgRepository) GetParentByEmail(_ context.Context, email string) (org.Parent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.parents {
		if strings.EqualFold(p.Email, email) {
			return *p, nil
		}
	}
	return org.Parent{}, org.ErrParentNotFound
}

func (repo *orgRepository) IsParentLinked(_ context.Context, parentID, orgID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.parentLinks[parentID][orgID], nil
}
