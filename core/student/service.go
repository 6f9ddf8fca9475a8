package student

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

const (
	codeSeqWidth    = 4
	maxCodeAttempts = 6

	defaultOrgCode = "STU"
)

var nowFunc = time.Now // mockable

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new student with a freshly allocated student code.
// Student codes are allocated optimistically: the starting sequence is derived
// from the highest existing code under the org+year prefix and the insert is
// retried with an incremented sequence on a duplicate-code conflict, up to
// maxCodeAttempts. Non-conflict failures abort immediately.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := nowFunc().UTC()
	prefix := codePrefix(ns.OrganizationName, now)

	seq, err := svc.startingSequence(ctx, prefix)
	if err != nil {
		return Student{}, err
	}

	st := Student{
		OrganizationID: ns.OrganizationID,
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		DateOfBirth:    ns.DateOfBirth,
		Gender:         ns.Gender,
		ParentID:       ns.ParentID,
		CreatedAt:      now,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		st.StudentCode = fmt.Sprintf("%s%0*d", prefix, codeSeqWidth, seq+attempt)
		created, err := svc.repo.CreateStudent(ctx, st)
		if errors.Cause(err) == ErrDuplicateCode {
			continue
		}
		if err != nil {
			return Student{}, errors.Wrap(err, "creating student")
		}
		return created, nil
	}
	return Student{}, errors.Errorf("allocating student code: prefix %q exhausted after %d attempts", prefix, maxCodeAttempts)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByName(ctx context.Context, orgID, firstName, lastName string) (Student, error) {
	return svc.repo.GetStudentByName(ctx, orgID, firstName, lastName)
}

func (svc *Service) FindByNameFold(ctx context.Context, orgID, firstName, lastName string) (Student, error) {
	return svc.repo.FindStudentByNameFold(ctx, orgID, firstName, lastName)
}

func (svc *Service) SetParent(ctx context.Context, studentID, parentID string) error {
	return svc.repo.SetParent(ctx, studentID, parentID)
}

func (svc *Service) SetPaymentFlags(ctx context.Context, studentID string, verified bool) error {
	return svc.repo.SetPaymentFlags(ctx, studentID, verified)
}

// startingSequence derives the next free sequence under prefix from the
// highest existing code; when that code does not parse (legacy data), it falls
// back to a count-based estimate.
func (svc *Service) startingSequence(ctx context.Context, prefix string) (int, error) {
	max, err := svc.repo.MaxCodeWithPrefix(ctx, prefix)
	if err != nil {
		return 0, errors.Wrap(err, "querying max student code")
	}
	if max != "" {
		if seq, err := strconv.Atoi(strings.TrimPrefix(max, prefix)); err == nil {
			return seq + 1, nil
		}
	}
	count, err := svc.repo.CountWithPrefix(ctx, prefix)
	if err != nil {
		return 0, errors.Wrap(err, "counting student codes")
	}
	return count + 1, nil
}

// codePrefix builds the "ABC-25-" style code prefix: a 3-character normalized
// org code (alphanumerics only, upper-cased, truncated or right-padded with X;
// STU when nothing usable remains) plus the 2-digit year.
func codePrefix(orgName string, now time.Time) string {
	var b strings.Builder
	for _, r := range orgName {
		if b.Len() == 3 {
			break
		}
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	code := b.String()
	if code == "" {
		code = defaultOrgCode
	}
	for len(code) < 3 {
		code += "X"
	}
	return fmt.Sprintf("%s-%02d-", code, now.Year()%100)
}
