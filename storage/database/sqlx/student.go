package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/littleoaks/schoolops/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID              string      `db:"id"`
	StudentCode     string      `db:"student_code"`
	OrganizationID  string      `db:"organization_id"`
	FirstName       string      `db:"first_name"`
	LastName        string      `db:"last_name"`
	DateOfBirth     null.Time   `db:"date_of_birth"`
	Gender          null.String `db:"gender"`
	ParentID        null.String `db:"parent_id"`
	FeesPaid        bool        `db:"fees_paid"`
	PaymentVerified bool        `db:"payment_verified"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (row studentRow) toCore() student.Student {
	return student.Student{
		ID:              row.ID,
		StudentCode:     row.StudentCode,
		OrganizationID:  row.OrganizationID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		DateOfBirth:     row.DateOfBirth.Time,
		Gender:          row.Gender.String,
		ParentID:        row.ParentID.String,
		FeesPaid:        row.FeesPaid,
		PaymentVerified: row.PaymentVerified,
		CreatedAt:       row.CreatedAt,
	}
}

const studentColumns = `id, student_code, organization_id, first_name, last_name,
	date_of_birth, gender, parent_id, fees_paid, payment_verified, created_at`

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.toCore(), nil
}

func (repo studentRepository) GetStudentByName(ctx context.Context, orgID, firstName, lastName string) (student.Student, error) {
	var row studentRow
	query := `SELECT ` + studentColumns + ` FROM students
		WHERE organization_id = $1 AND first_name = $2 AND last_name = $3
		ORDER BY created_at LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, orgID, firstName, lastName); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "matching student by name")
	}
	return row.toCore(), nil
}

func (repo studentRepository) FindStudentByNameFold(ctx context.Context, orgID, firstName, lastName string) (student.Student, error) {
	var row studentRow
	query := `SELECT ` + studentColumns + ` FROM students
		WHERE organization_id = $1 AND lower(first_name) = lower($2) AND lower(last_name) = lower($3)
		ORDER BY created_at LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, orgID, firstName, lastName); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "matching student by name")
	}
	return row.toCore(), nil
}

func (repo studentRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	query := `SELECT student_code FROM students
		WHERE student_code LIKE $1 || '%'
		ORDER BY student_code DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &code, query, prefix); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "querying max student code")
	}
	return code, nil
}

func (repo studentRepository) CountWithPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	query := `SELECT count(*) FROM students WHERE student_code LIKE $1 || '%'`
	if err := repo.db.GetContext(ctx, &count, query, prefix); err != nil {
		return 0, errors.Wrap(err, "counting student codes")
	}
	return count, nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.New().String()
	query := `INSERT INTO students
			(id, student_code, organization_id, first_name, last_name, date_of_birth, gender, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '0001-01-01'::date), NULLIF($7, ''), NULLIF($8, '')::uuid, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		st.ID, st.StudentCode, st.OrganizationID, st.FirstName, st.LastName,
		st.DateOfBirth.Format("2006-01-02"), st.Gender, st.ParentID, st.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "students_student_code_key") {
			return student.Student{}, student.ErrDuplicateCode
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) SetParent(ctx context.Context, studentID, parentID string) error {
	query := `UPDATE students SET parent_id = NULLIF($1, '')::uuid WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, query, parentID, studentID); err != nil {
		return errors.Wrap(err, "linking parent to student")
	}
	return nil
}

func (repo studentRepository) SetPaymentFlags(ctx context.Context, studentID string, verified bool) error {
	query := `UPDATE students SET payment_verified = $1, fees_paid = $1 WHERE id = $2`
	result, err := repo.db.ExecContext(ctx, query, verified, studentID)
	if err != nil {
		return errors.Wrap(err, "updating student payment flags")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}
