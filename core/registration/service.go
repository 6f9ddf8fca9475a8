package registration

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/billing"
	"github.com/littleoaks/schoolops/core/org"
	"github.com/littleoaks/schoolops/core/student"
)

var nowFunc = time.Now // mockable

type (
	// ApprovalResult is what the UI needs to confirm an approval outcome.
	ApprovalResult struct {
		StudentCreated bool   `json:"student_created"`
		StudentCode    string `json:"student_code"`
		ParentLinked   bool   `json:"parent_linked"`
	}

	// VerifyResult distinguishes full success from the partial case where the
	// origin row was updated but no matching student row could be mirrored.
	VerifyResult struct {
		StudentUpdated bool `json:"student_updated"`
	}

	// Service is the orchestrator: it reconciles the three origin channels
	// into the canonical view and drives the approval state machine.
	Service struct {
		repo     Repository
		orgs     org.Repository
		students *student.Service
		billing  *billing.Service
		dispatch *Dispatcher
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	orgs org.Repository,
	students *student.Service,
	billingSvc *billing.Service,
	dispatch *Dispatcher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		orgs:     orgs,
		students: students,
		billing:  billingSvc,
		dispatch: dispatch,
		logger:   logger,
	}
}

// List fetches all three origin channels concurrently, normalizes and merges
// them newest-first, then applies the filter. A channel whose table is not
// provisioned for this tenant contributes nothing; any other read error is
// logged and the remaining channels still merge.
func (svc *Service) List(ctx context.Context, orgID string, filter QueryFilter) ([]Registration, error) {
	var (
		wg                    sync.WaitGroup
		website, inApp, after []Registration
	)

	fetch := func(dst *[]Registration, src Source, query func() ([]Registration, error)) {
		defer wg.Done()
		regs, err := query()
		switch errors.Cause(err) {
		case nil:
			*dst = regs
		case ErrNotProvisioned:
			// tenant has no such channel
		default:
			svc.logger.Error("listing "+string(src)+" registrations", err, core.OrgContext{ID: orgID})
		}
	}

	wg.Add(3)
	go fetch(&website, SourceWebsite, func() ([]Registration, error) {
		rows, err := svc.repo.QueryWebsite(ctx, orgID)
		return normalizeWebsite(rows), err
	})
	go fetch(&inApp, SourceInApp, func() ([]Registration, error) {
		rows, err := svc.repo.QueryApp(ctx, orgID)
		return normalizeApp(rows), err
	})
	go fetch(&after, SourceAftercare, func() ([]Registration, error) {
		rows, err := svc.repo.QueryAftercare(ctx, orgID)
		return normalizeAftercare(rows), err
	})
	wg.Wait()

	return Filter(Merge(website, inApp, after), filter), nil
}

// Get re-reads the authoritative origin row and normalizes it.
func (svc *Service) Get(ctx context.Context, src Source, id string) (Registration, error) {
	switch src {
	case SourceWebsite:
		row, err := svc.repo.GetWebsite(ctx, id)
		if err != nil {
			return Registration{}, err
		}
		return row.Normalize(), nil
	case SourceInApp:
		row, err := svc.repo.GetApp(ctx, id)
		if err != nil {
			return Registration{}, err
		}
		return row.Normalize(), nil
	case SourceAftercare:
		row, err := svc.repo.GetAftercare(ctx, id)
		if err != nil {
			return Registration{}, err
		}
		return row.Normalize(), nil
	}
	return Registration{}, errors.Errorf("unknown source %q", src)
}

// CanApprove exposes the pure gating predicate for UI use.
func (svc *Service) CanApprove(reg Registration) bool { return CanApprove(reg) }

// Approve drives the pending -> approved transition:
//
//	re-fetch -> resolve parent (website) -> resolve-or-create student ->
//	assign initial fees (new students only) -> conditional status write ->
//	cross-system sync (website) -> notifications.
//
// Only the status write and non-collision student-creation failures are
// fatal; every other side effect degrades to a log line.
func (svc *Service) Approve(ctx context.Context, src Source, id string, enrollmentDate time.Time, reviewerID string) (ApprovalResult, error) {
	var res ApprovalResult

	// act on fresh data, never on the cached list the UI rendered
	reg, err := svc.Get(ctx, src, id)
	if err != nil {
		return res, err
	}
	if reg.Status != StatusPending {
		return res, ErrAlreadyReviewed
	}

	orgName := svc.lookupOrgName(ctx, reg.OrganizationID)

	parentID := reg.ParentID
	if src == SourceWebsite {
		parentID, res.ParentLinked = svc.resolveWebsiteParent(ctx, reg)
	}

	st, created, err := svc.resolveStudent(ctx, reg, orgName, parentID)
	if err != nil {
		return res, err
	}
	res.StudentCreated = created
	res.StudentCode = st.StudentCode

	if !created && parentID != "" && st.ParentID != parentID {
		if err := svc.students.SetParent(ctx, st.ID, parentID); err != nil {
			svc.logger.Warn("linking parent to student", err, core.OrgContext{ID: reg.OrganizationID})
		}
	}

	// fee auto-assignment only for brand-new students: an existing or linked
	// student already carries obligations and must not be billed twice
	if created {
		if err := svc.billing.AssignInitialFees(ctx, st, enrollmentDate); err != nil {
			svc.logger.Warn("assigning initial fees", err, core.OrgContext{ID: reg.OrganizationID})
		}
	}

	upd := StatusUpdate{
		Status:     StatusApproved,
		ReviewedBy: reviewerID,
		ReviewedAt: nowFunc().UTC(),
		StudentID:  st.ID,
		ParentID:   parentID,
	}
	if err := svc.repo.UpdateStatusIfPending(ctx, src, id, upd); err != nil {
		return ApprovalResult{}, err
	}

	if src == SourceWebsite {
		if linked := svc.dispatch.SyncRegistration(ctx, reg, st); linked != nil {
			res.ParentLinked = *linked
		}
		if parentID == "" {
			// the sync function may have resolved and written a parent reference
			if row, err := svc.repo.GetWebsite(ctx, id); err == nil && row.ParentID != "" {
				parentID = row.ParentID
			}
		}
	}

	if parentID != "" {
		svc.dispatch.NotifyParent(ctx, reg.OrganizationID, parentID,
			"Registration approved",
			"The registration for "+reg.ChildName()+" has been approved.")
	}
	svc.dispatch.SendGuardianNotice(reg, orgName, st.StudentCode, "", true)

	return res, nil
}

// Reject drives the pending -> rejected transition. The reason is required
// and validated before any write happens.
func (svc *Service) Reject(ctx context.Context, src Source, id, reason, reviewerID string) error {
	if core.CleanString(reason) == "" {
		return core.NewValidationError(
			errors.New("a rejection reason is required"),
			core.FieldError{Field: "reason", Error: "this field is required"},
		)
	}

	reg, err := svc.Get(ctx, src, id)
	if err != nil {
		return err
	}
	if reg.Status != StatusPending {
		return ErrAlreadyReviewed
	}

	upd := StatusUpdate{
		Status:          StatusRejected,
		ReviewedBy:      reviewerID,
		ReviewedAt:      nowFunc().UTC(),
		RejectionReason: core.CleanString(reason),
	}
	if err := svc.repo.UpdateStatusIfPending(ctx, src, id, upd); err != nil {
		return err
	}

	if src == SourceInApp && reg.ParentID != "" {
		svc.dispatch.NotifyParent(ctx, reg.OrganizationID, reg.ParentID,
			"Registration update",
			"The registration for "+reg.ChildName()+" could not be approved: "+core.CleanString(reason))
	}
	svc.dispatch.SendGuardianNotice(reg, svc.lookupOrgName(ctx, reg.OrganizationID), "", core.CleanString(reason), false)

	return nil
}

// VerifyPayment flips payment verification on the origin row, then mirrors
// the flags onto the matching student record. The origin write is fatal on
// failure; a missing or un-mirrorable student yields a partial success.
func (svc *Service) VerifyPayment(ctx context.Context, src Source, id string, verify bool, reviewerID string) (VerifyResult, error) {
	reg, err := svc.Get(ctx, src, id)
	if err != nil {
		return VerifyResult{}, err
	}

	if err := svc.repo.SetPaymentVerified(ctx, src, id, verify, reviewerID, nowFunc().UTC()); err != nil {
		return VerifyResult{}, errors.Wrap(err, "updating payment verification")
	}

	st, err := svc.students.FindByNameFold(ctx, reg.OrganizationID, reg.ChildFirstName, reg.ChildLastName)
	if err != nil {
		svc.logger.Warn("payment verification not mirrored: no matching student", err, core.OrgContext{ID: reg.OrganizationID})
		return VerifyResult{StudentUpdated: false}, nil
	}
	if err := svc.students.SetPaymentFlags(ctx, st.ID, verify); err != nil {
		svc.logger.Warn("payment verification not mirrored onto student", err, core.OrgContext{ID: reg.OrganizationID})
		return VerifyResult{StudentUpdated: false}, nil
	}
	return VerifyResult{StudentUpdated: true}, nil
}

// resolveWebsiteParent looks for an existing guardian profile by any of the
// candidate emails on the registration and, when found, makes sure it is
// linked to the organization. Everything here is non-fatal: approval proceeds
// with or without a resolved parent.
func (svc *Service) resolveWebsiteParent(ctx context.Context, reg Registration) (parentID string, linked bool) {
	row, err := svc.repo.GetWebsite(ctx, reg.ID)
	if err != nil {
		svc.logger.Warn("re-reading website registration for parent emails", err, core.OrgContext{ID: reg.OrganizationID})
		return reg.ParentID, false
	}

	seen := make(map[string]struct{}, 2)
	for _, email := range []string{row.GuardianEmail, row.ParentEmail} {
		email = core.CleanString(email, true)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		p, err := svc.orgs.GetParentByEmail(ctx, email)
		if errors.Cause(err) == org.ErrParentNotFound {
			continue
		}
		if err != nil {
			svc.logger.Warn("looking up parent by email", err, core.OrgContext{ID: reg.OrganizationID})
			continue
		}

		isLinked, err := svc.orgs.IsParentLinked(ctx, p.ID, reg.OrganizationID)
		if err != nil {
			svc.logger.Warn("checking parent-organization link", err, core.OrgContext{ID: reg.OrganizationID})
			isLinked = false
		}
		if isLinked {
			return p.ID, true
		}
		return p.ID, svc.dispatch.LinkParentToSchool(ctx, p.ID, reg.OrganizationID)
	}
	return reg.ParentID, false
}

// resolveStudent finds the student this registration belongs to, or creates
// one. Lookup order: explicit back-reference, then exact name match within the
// organization, then creation with a fresh student code.
func (svc *Service) resolveStudent(ctx context.Context, reg Registration, orgName, parentID string) (student.Student, bool, error) {
	if reg.StudentID != "" {
		st, err := svc.students.GetByID(ctx, reg.StudentID)
		if err == nil {
			return st, false, nil
		}
		if errors.Cause(err) != student.ErrNotFound {
			return student.Student{}, false, errors.Wrap(err, "loading referenced student")
		}
	}

	st, err := svc.students.GetByName(ctx, reg.OrganizationID, reg.ChildFirstName, reg.ChildLastName)
	if err == nil {
		return st, false, nil
	}
	if errors.Cause(err) != student.ErrNotFound {
		return student.Student{}, false, errors.Wrap(err, "matching student by name")
	}

	st, err = svc.students.Create(ctx, student.NewStudent{
		OrganizationID:   reg.OrganizationID,
		OrganizationName: orgName,
		FirstName:        reg.ChildFirstName,
		LastName:         reg.ChildLastName,
		DateOfBirth:      reg.ChildDateOfBirth,
		Gender:           reg.ChildGender,
		ParentID:         parentID,
	})
	if err != nil {
		return student.Student{}, false, err
	}
	return st, true, nil
}

func (svc *Service) lookupOrgName(ctx context.Context, orgID string) string {
	o, err := svc.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		svc.logger.Warn("looking up organization", err, core.OrgContext{ID: orgID})
		return ""
	}
	return o.Name
}

func normalizeWebsite(rows []WebsiteRow) []Registration {
	regs := make([]Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.Normalize())
	}
	return regs
}

func normalizeApp(rows []AppRow) []Registration {
	regs := make([]Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.Normalize())
	}
	return regs
}

func normalizeAftercare(rows []AftercareRow) []Registration {
	regs := make([]Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.Normalize())
	}
	return regs
}
