package inmemdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/littleoaks/schoolops/core/student"
)

var studentPKCount int

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return *st, nil
}

func (repo *studentRepository) GetStudentByName(_ context.Context, orgID, firstName, lastName string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, st := range repo.db.students {
		if st.OrganizationID == orgID && st.FirstName == firstName && st.LastName == lastName {
			return *st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FindStudentByNameFold(_ context.Context, orgID, firstName, lastName string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, st := range repo.db.students {
		if st.OrganizationID == orgID &&
			strings.EqualFold(st.FirstName, firstName) &&
			strings.EqualFold(st.LastName, lastName) {
			return *st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) MaxCodeWithPrefix(_ context.Context, prefix string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var max string
	for _, st := range repo.db.students {
		if strings.HasPrefix(st.StudentCode, prefix) && st.StudentCode > max {
			max = st.StudentCode
		}
	}
	return max, nil
}

func (repo *studentRepository) CountWithPrefix(_ context.Context, prefix string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, st := range repo.db.students {
		if strings.HasPrefix(st.StudentCode, prefix) {
			count++
		}
	}
	return count, nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.students {
		if existing.StudentCode == st.StudentCode {
			return student.Student{}, student.ErrDuplicateCode
		}
	}

	studentPKCount++
	st.ID = "student-" + strconv.Itoa(studentPKCount)
	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) SetParent(_ context.Context, studentID, parentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	st.ParentID = parentID
	return nil
}

func (repo *studentRepository) SetPaymentFlags(_ context.Context, studentID string, verified bool) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	st.PaymentVerified = verified
	st.FeesPaid = verified
	return nil
}
