package student

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	maxCode   string
	maxErr    error
	count     int
	countErr  error
	createErr func(attempt int) error

	attempts int
	created  []Student
}

var _ Repository = (*stubRepo)(nil)

func (r *stubRepo) GetStudentByID(context.Context, string) (Student, error) {
	return Student{}, ErrNotFound
}

func (r *stubRepo) GetStudentByName(context.Context, string, string, string) (Student, error) {
	return Student{}, ErrNotFound
}

func (r *stubRepo) FindStudentByNameFold(context.Context, string, string, string) (Student, error) {
	return Student{}, ErrNotFound
}

func (r *stubRepo) MaxCodeWithPrefix(context.Context, string) (string, error) {
	return r.maxCode, r.maxErr
}

func (r *stubRepo) CountWithPrefix(context.Context, string) (int, error) {
	return r.count, r.countErr
}

func (r *stubRepo) CreateStudent(_ context.Context, st Student) (Student, error) {
	r.attempts++
	if r.createErr != nil {
		if err := r.createErr(r.attempts); err != nil {
			return Student{}, err
		}
	}
	st.ID = "st1"
	r.created = append(r.created, st)
	return st, nil
}

func (r *stubRepo) SetParent(context.Context, string, string) error { return nil }

func (r *stubRepo) SetPaymentFlags(context.Context, string, bool) error { return nil }

func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
}

func Test_codePrefix(t *testing.T) {
	now := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		orgName string
		want    string
	}{
		{name: "simple name", orgName: "Little Oaks", want: "LIT-21-"},
		{name: "short name padded", orgName: "Go", want: "GOX-21-"},
		{name: "empty name", orgName: "", want: "STU-21-"},
		{name: "non-ascii only", orgName: "学校", want: "STU-21-"},
		{name: "punctuation skipped", orgName: "A.B. Kids", want: "ABK-21-"},
		{name: "digits kept", orgName: "4 Kids", want: "4KI-21-"},
		{name: "lower-cased input", orgName: "sunny side", want: "SUN-21-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codePrefix(tt.orgName, now))
		})
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)

	newStudent := NewStudent{
		OrganizationID:   "org1",
		OrganizationName: "Little Oaks",
		FirstName:        "Jane",
		LastName:         "Doe",
	}

	t.Run("first code under a fresh prefix", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{count: 0}

		st, err := NewService(repo).Create(ctx, newStudent)
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0001", st.StudentCode)
		assert.Equal(t, now, st.CreatedAt)
	})

	t.Run("continues from the highest existing code", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{maxCode: "LIT-21-0007"}

		st, err := NewService(repo).Create(ctx, newStudent)
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0008", st.StudentCode)
	})

	t.Run("unparseable max falls back to count", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{maxCode: "LIT-21-LEGACY", count: 12}

		st, err := NewService(repo).Create(ctx, newStudent)
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0013", st.StudentCode)
	})

	t.Run("retries only on duplicate-code conflicts", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{
			maxCode: "LIT-21-0001",
			createErr: func(attempt int) error {
				if attempt <= 2 {
					return ErrDuplicateCode
				}
				return nil
			},
		}

		st, err := NewService(repo).Create(ctx, newStudent)
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0004", st.StudentCode)
		assert.Equal(t, 3, repo.attempts)
	})

	t.Run("wrapped duplicate errors still retry", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{
			createErr: func(attempt int) error {
				if attempt == 1 {
					return errors.Wrap(ErrDuplicateCode, "inserting student")
				}
				return nil
			},
		}

		st, err := NewService(repo).Create(ctx, newStudent)
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0002", st.StudentCode)
	})

	t.Run("gives up after exhausting attempts", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{
			createErr: func(int) error { return ErrDuplicateCode },
		}

		_, err := NewService(repo).Create(ctx, newStudent)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted")
		assert.Equal(t, maxCodeAttempts, repo.attempts)
	})

	t.Run("non-conflict insert failures abort immediately", func(t *testing.T) {
		mockNow(t, now)
		boom := errors.New("connection reset")
		repo := &stubRepo{
			createErr: func(int) error { return boom },
		}

		_, err := NewService(repo).Create(ctx, newStudent)
		require.Error(t, err)
		assert.Equal(t, boom, errors.Cause(err))
		assert.Equal(t, 1, repo.attempts)
	})

	t.Run("max-code query failure aborts", func(t *testing.T) {
		mockNow(t, now)
		repo := &stubRepo{maxErr: errors.New("db down")}

		_, err := NewService(repo).Create(ctx, newStudent)
		require.Error(t, err)
		assert.Zero(t, repo.attempts)
	})
}
