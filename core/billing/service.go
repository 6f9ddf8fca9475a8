package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/littleoaks/schoolops/core/student"
)

var nowFunc = time.Now // mockable

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryActiveFeeStructures(ctx context.Context, orgID string) ([]FeeStructure, error) {
	return svc.repo.QueryActiveFeeStructures(ctx, orgID)
}

func (svc *Service) CreateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error) {
	if fs.CreatedAt.IsZero() {
		fs.CreatedAt = nowFunc().UTC()
	}
	return svc.repo.CreateFeeStructure(ctx, fs)
}

// AssignInitialFees sets up the first two monthly obligations (current and
// next calendar month, due on the 1st) for a newly created student. When no
// tuition structure applies, nothing is billed and no error is returned.
func (svc *Service) AssignInitialFees(ctx context.Context, st student.Student, enrollmentDate time.Time) error {
	candidates, err := svc.repo.QueryActiveFeeStructures(ctx, st.OrganizationID)
	if err != nil {
		return errors.Wrap(err, "loading fee structures")
	}

	fs := SelectTuitionFee(candidates, st.DateOfBirth, enrollmentDate)
	if fs == nil {
		return nil
	}

	now := nowFunc().UTC()
	first := firstOfMonth(enrollmentDate)
	fees := []StudentFee{
		{
			StudentID:      st.ID,
			FeeStructureID: fs.ID,
			Amount:         fs.Amount,
			DueDate:        first,
			Status:         FeeStatusPending,
			CreatedAt:      now,
		},
		{
			StudentID:      st.ID,
			FeeStructureID: fs.ID,
			Amount:         fs.Amount,
			DueDate:        first.AddDate(0, 1, 0),
			Status:         FeeStatusPending,
			CreatedAt:      now,
		},
	}
	if err := svc.repo.CreateStudentFees(ctx, fees...); err != nil {
		return errors.Wrap(err, "inserting student fees")
	}
	return nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
