package billing

import (
	"context"
	"strings"
	"time"
)

// StudentFee statuses.
const (
	FeeStatusPending = "pending"
	FeeStatusPaid    = "paid"
)

type (
	// FeeStructure is a billing policy configured per organization. It is
	// immutable from this engine's point of view: the selector only reads.
	FeeStructure struct {
		ID             string    `json:"id"`
		OrganizationID string    `json:"organization_id"`
		Name           string    `json:"name"`
		Description    string    `json:"description"`
		FeeType        string    `json:"fee_type"`
		Amount         float64   `json:"amount"`
		EffectiveFrom  time.Time `json:"effective_from"`
		IsActive       bool      `json:"is_active"`
		CreatedAt      time.Time `json:"created_at"` // UTC
	}

	// StudentFee is one billed obligation of a student against a structure.
	StudentFee struct {
		ID             string    `json:"id"`
		StudentID      string    `json:"student_id"`
		FeeStructureID string    `json:"fee_structure_id"`
		Amount         float64   `json:"amount"`
		DueDate        time.Time `json:"due_date"`
		Status         string    `json:"status"`
		CreatedAt      time.Time `json:"created_at"` // UTC
	}

	Repository interface {
		QueryActiveFeeStructures(ctx context.Context, orgID string) ([]FeeStructure, error)
		CreateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error)
		CreateStudentFees(ctx context.Context, fees ...StudentFee) error
	}
)

// IsTuition classifies a structure as a tuition fee (vs uniform, registration,
// aftercare...) from its type, name or description.
func (fs FeeStructure) IsTuition() bool {
	for _, s := range []string{fs.FeeType, fs.Name, fs.Description} {
		s = strings.ToLower(s)
		if strings.Contains(s, "tuition") || strings.Contains(s, "school fee") || strings.Contains(s, "monthly fee") {
			return true
		}
	}
	return false
}
