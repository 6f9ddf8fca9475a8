package inmemdb

import (
	"sync"

	"github.com/littleoaks/schoolops/core/billing"
	"github.com/littleoaks/schoolops/core/org"
	"github.com/littleoaks/schoolops/core/registration"
	"github.com/littleoaks/schoolops/core/student"
)

// DB is an in-memory stand-in for the real store, used by tests and local
// development. Repositories constructed from the same DB share its tables.
type DB struct {
	mu sync.RWMutex

	website   map[string]*registration.WebsiteRow
	app       map[string]*registration.AppRow
	aftercare map[string]*registration.AftercareRow

	// per-channel provisioning flags: an unprovisioned channel behaves like
	// a missing origin table
	websiteProvisioned   bool
	appProvisioned       bool
	aftercareProvisioned bool

	students      map[string]*student.Student
	feeStructures map[string]*billing.FeeStructure
	studentFees   []billing.StudentFee

	orgs        map[string]*org.Organization
	parents     map[string]*org.Parent
	parentLinks map[string]map[string]bool // parentID -> orgID
}

func Open() *DB {
	return &DB{
		website:              make(map[string]*registration.WebsiteRow),
		app:                  make(map[string]*registration.AppRow),
		aftercare:            make(map[string]*registration.AftercareRow),
		websiteProvisioned:   true,
		appProvisioned:       true,
		aftercareProvisioned: true,
		students:             make(map[string]*student.Student),
		feeStructures:        make(map[string]*billing.FeeStructure),
		orgs:                 make(map[string]*org.Organization),
		parents:              make(map[string]*org.Parent),
		parentLinks:          make(map[string]map[string]bool),
	}
}

// Seed helpers

func (db *DB) AddWebsite(row registration.WebsiteRow) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.website[row.ID] = &row
}

func (db *DB) AddApp(row registration.AppRow) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.app[row.ID] = &row
}

func (db *DB) AddAftercare(row registration.AftercareRow) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.aftercare[row.ID] = &row
}

func (db *DB) AddOrganization(o org.Organization) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.orgs[o.ID] = &o
}

func (db *DB) AddParent(p org.Parent) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.parents[p.ID] = &p
}

func (db *DB) AddStudent(st student.Student) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.students[st.ID] = &st
}

func (db *DB) AddFeeStructure(fs billing.FeeStructure) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.feeStructures[fs.ID] = &fs
}

func (db *DB) LinkParent(parentID, orgID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.parentLinks[parentID] == nil {
		db.parentLinks[parentID] = make(map[string]bool)
	}
	db.parentLinks[parentID][orgID] = true
}

// SetProvisioned toggles whether a channel's origin table exists.
func (db *DB) SetProvisioned(src registration.Source, provisioned bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	switch src {
	case registration.SourceWebsite:
		db.websiteProvisioned = provisioned
	case registration.SourceInApp:
		db.appProvisioned = provisioned
	case registration.SourceAftercare:
		db.aftercareProvisioned = provisioned
	}
}

// Inspection helpers

func (db *DB) StudentFees() []billing.StudentFee {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fees := make([]billing.StudentFee, len(db.studentFees))
	copy(fees, db.studentFees)
	return fees
}

func (db *DB) Students() []student.Student {
	db.mu.RLock()
	defer db.mu.RUnlock()
	students := make([]student.Student, 0, len(db.students))
	for _, st := range db.students {
		students = append(students, *st)
	}
	return students
}
