package student

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateCode is returned by Repository.CreateStudent when the
	// student-code unique constraint is violated. Any other insert failure
	// must NOT be mapped to it; the code allocator only retries on this one.
	ErrDuplicateCode = errors.New("a student with this student code already exists")
)

type (
	Student struct {
		ID              string    `json:"id"`
		StudentCode     string    `json:"student_code"`
		OrganizationID  string    `json:"organization_id"`
		FirstName       string    `json:"first_name"`
		LastName        string    `json:"last_name"`
		DateOfBirth     time.Time `json:"date_of_birth"`
		Gender          string    `json:"gender"`
		ParentID        string    `json:"parent_id,omitempty"`
		FeesPaid        bool      `json:"fees_paid"`
		PaymentVerified bool      `json:"payment_verified"`
		CreatedAt       time.Time `json:"created_at"` // UTC
	}

	NewStudent struct {
		OrganizationID   string
		OrganizationName string
		FirstName        string
		LastName         string
		DateOfBirth      time.Time
		Gender           string
		ParentID         string
	}

	Repository interface {
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// GetStudentByName matches (organization, first name, last name) exactly.
		GetStudentByName(ctx context.Context, orgID, firstName, lastName string) (Student, error)
		// FindStudentByNameFold is the case-insensitive variant used by payment mirroring.
		FindStudentByNameFold(ctx context.Context, orgID, firstName, lastName string) (Student, error)
		// MaxCodeWithPrefix returns the highest existing student code starting
		// with prefix (string ordering), or "" when none exists.
		MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error)
		CountWithPrefix(ctx context.Context, prefix string) (int, error)
		CreateStudent(ctx context.Context, st Student) (Student, error)
		SetParent(ctx context.Context, studentID, parentID string) error
		// SetPaymentFlags mirrors payment verification onto the student record.
		SetPaymentFlags(ctx context.Context, studentID string, verified bool) error
	}
)
