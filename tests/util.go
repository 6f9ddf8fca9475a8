package testutil

import (
	"net/mail"
	"testing"
	"time"

	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/billing"
	"github.com/littleoaks/schoolops/core/org"
	"github.com/littleoaks/schoolops/core/registration"
	"github.com/littleoaks/schoolops/core/student"
	inmemdb "github.com/littleoaks/schoolops/storage/database/inmem"
)

// NewConfig returns a self-contained test configuration; nothing is read
// from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:             "SchoolOps",
		Env:                 "TEST",
		Debug:               true,
		TestMode:            true,
		Build:               "test",
		DefaultFromEmail:    mail.Address{Address: "noreply@test.cd"},
		ParentPortalBaseURL: "http://localhost:3000",
	}
}

// Logger satisfies core.Logger; entries go to the test log.
type Logger struct {
	T *testing.T
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger { return &Logger{T: t} }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.T.Helper()
	l.T.Logf("%s: %s %v", level, msg, args)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func CreateOrganization(t *testing.T, db *inmemdb.DB, id, name string) org.Organization {
	t.Helper()
	o := org.Organization{ID: id, Name: name}
	db.AddOrganization(o)
	return o
}

func CreateParent(t *testing.T, db *inmemdb.DB, id, firstName, lastName, email string) org.Parent {
	t.Helper()
	p := org.Parent{ID: id, FirstName: firstName, LastName: lastName, Email: email}
	db.AddParent(p)
	return p
}

func CreateStudent(t *testing.T, db *inmemdb.DB, id, code, orgID, firstName, lastName string) student.Student {
	t.Helper()
	st := student.Student{
		ID:             id,
		StudentCode:    code,
		OrganizationID: orgID,
		FirstName:      firstName,
		LastName:       lastName,
		CreatedAt:      time.Now().UTC(),
	}
	db.AddStudent(st)
	return st
}

func CreateFeeStructure(t *testing.T, db *inmemdb.DB, id, orgID, name, feeType string, amount float64, active bool) billing.FeeStructure {
	t.Helper()
	fs := billing.FeeStructure{
		ID:             id,
		OrganizationID: orgID,
		Name:           name,
		FeeType:        feeType,
		Amount:         amount,
		EffectiveFrom:  time.Now().UTC().AddDate(-1, 0, 0),
		IsActive:       active,
		CreatedAt:      time.Now().UTC(),
	}
	db.AddFeeStructure(fs)
	return fs
}

// WebsiteRow returns a pending website registration with sane defaults;
// override fields on the result before adding it to the DB.
func WebsiteRow(id, orgID string, createdAt ...time.Time) registration.WebsiteRow {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	return registration.WebsiteRow{
		ID:                id,
		OrganizationID:    orgID,
		ChildFirstName:    "Jane",
		ChildLastName:     "Doe",
		ChildDateOfBirth:  time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		GuardianName:      "John Doe",
		GuardianEmail:     "john@test.cd",
		Status:            string(registration.StatusPending),
		FeeAmount:         200,
		DocumentsUploaded: true,
		CreatedAt:         tstamp,
	}
}

func AppRow(id, orgID, parentID string, createdAt ...time.Time) registration.AppRow {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	return registration.AppRow{
		ID:               id,
		OrganizationID:   orgID,
		ParentID:         parentID,
		ChildFirstName:   "Jim",
		ChildLastName:    "Doe",
		ChildDateOfBirth: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:           string(registration.StatusPending),
		FeeAmount:        200,
		CreatedAt:        tstamp,
	}
}

func AftercareRow(id, orgID string, createdAt ...time.Time) registration.AftercareRow {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	return registration.AftercareRow{
		ID:             id,
		OrganizationID: orgID,
		ChildFirstName: "Joy",
		ChildLastName:  "Doe",
		GuardianName:   "John Doe",
		Status:         "active",
		CreatedAt:      tstamp,
	}
}
