package registration

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/student"
)

// Dispatcher wraps every outbound side effect that must never fail the
// enclosing workflow: external function invocations and guardian emails are
// fired, failures are logged, and nothing propagates.
type Dispatcher struct {
	funcs  core.FunctionCaller
	mail   core.EmailService
	logger core.Logger
}

func NewDispatcher(funcs core.FunctionCaller, mailSvc core.EmailService, logger core.Logger) *Dispatcher {
	return &Dispatcher{funcs: funcs, mail: mailSvc, logger: logger}
}

type syncResponse struct {
	ParentLinked *bool  `json:"parent_linked"`
	ParentID     string `json:"parent_id"`
}

// SyncRegistration pushes an approved website registration to the external
// sync function. The response may carry a fresher parent-linked flag; nil is
// returned when the call failed or the function had nothing to report.
func (d *Dispatcher) SyncRegistration(ctx context.Context, reg Registration, st student.Student) *bool {
	payload := map[string]interface{}{
		"registration_id": reg.ID,
		"organization_id": reg.OrganizationID,
		"student_id":      st.ID,
		"student_code":    st.StudentCode,
		"guardian_email":  reg.GuardianEmail,
	}
	var resp syncResponse
	if err := d.funcs.Invoke(ctx, core.FuncSyncRegistration, payload, &resp); err != nil {
		d.logger.Warn("dispatcher: registration sync failed", err, core.OrgContext{ID: reg.OrganizationID})
		return nil
	}
	return resp.ParentLinked
}

// LinkParentToSchool attempts to link an existing parent profile to the
// organization. It reports success; failure is logged and non-fatal.
func (d *Dispatcher) LinkParentToSchool(ctx context.Context, parentID, orgID string) bool {
	payload := map[string]interface{}{
		"parent_id":       parentID,
		"organization_id": orgID,
	}
	if err := d.funcs.Invoke(ctx, core.FuncLinkParentSchool, payload, nil); err != nil {
		d.logger.Warn("dispatcher: parent link failed", err, core.OrgContext{ID: orgID})
		return false
	}
	return true
}

// NotifyParent fires a push notification at the parent's devices.
func (d *Dispatcher) NotifyParent(ctx context.Context, orgID, parentID, title, body string) {
	payload := map[string]interface{}{
		"parent_id": parentID,
		"title":     title,
		"body":      body,
	}
	if err := d.funcs.Invoke(ctx, core.FuncNotifyParent, payload, nil); err != nil {
		d.logger.Warn("dispatcher: parent notification failed", err, core.OrgContext{ID: orgID})
	}
}

// SendGuardianNotice emails the guardian about the registration outcome.
// EmailService implementations already send asynchronously and log their own
// failures, so this never blocks nor fails.
func (d *Dispatcher) SendGuardianNotice(reg Registration, orgName, studentCode, reason string, approved bool) {
	if reg.GuardianEmail == "" {
		return
	}

	tmpl, subject := "registration_rejected", fmt.Sprintf("Registration update for %s", reg.ChildName())
	if approved {
		tmpl, subject = "registration_approved", fmt.Sprintf("Registration approved for %s", reg.ChildName())
	}

	d.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: reg.GuardianName, Address: reg.GuardianEmail}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]interface{}{
			"GuardianName": reg.GuardianName,
			"ChildName":    reg.ChildName(),
			"SchoolName":   orgName,
			"StudentCode":  studentCode,
			"Reason":       reason,
		},
	})
}
