package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/littleoaks/schoolops/core/billing"
)

var billingPKCount int

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) *billingRepository {
	return &billingRepository{db: db}
}

func (repo *billingRepository) QueryActiveFeeStructures(_ context.Context, orgID string) ([]billing.FeeStructure, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]billing.FeeStructure, 0, len(repo.db.feeStructures))
	for _, fs := range repo.db.feeStructures {
		if fs.OrganizationID == orgID && fs.IsActive {
			out = append(out, *fs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EffectiveFrom.Equal(out[j].EffectiveFrom) {
			return out[i].EffectiveFrom.After(out[j].EffectiveFrom)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (repo *billingRepository) CreateFeeStructure(_ context.Context, fs billing.FeeStructure) (billing.FeeStructure, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	billingPKCount++
	fs.ID = "fee-structure-" + strconv.Itoa(billingPKCount)
	repo.db.feeStructures[fs.ID] = &fs
	return fs, nil
}

func (repo *billingRepository) CreateStudentFees(_ context.Context, fees ...billing.StudentFee) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, fee := range fees {
		billingPKCount++
		fee.ID = "student-fee-" + strconv.Itoa(billingPKCount)
		repo.db.studentFees = append(repo.db.studentFees, fee)
	}
	return nil
}
