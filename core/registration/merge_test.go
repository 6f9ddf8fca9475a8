package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func reg(id string, src Source, createdAt time.Time) Registration {
	return Registration{ID: id, Source: src, Status: StatusPending, CreatedAt: createdAt}
}

func ids(regs []Registration) []string {
	out := make([]string, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.ID)
	}
	return out
}

func TestMerge(t *testing.T) {
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	t.Run("newest first across sources", func(t *testing.T) {
		merged := Merge(
			[]Registration{reg("w1", SourceWebsite, base.Add(time.Hour)), reg("w2", SourceWebsite, base)},
			[]Registration{reg("a1", SourceInApp, base.Add(3*time.Hour))},
			[]Registration{reg("c1", SourceAftercare, base.Add(2*time.Hour))},
		)
		assert.Equal(t, []string{"a1", "c1", "w1", "w2"}, ids(merged))
	})

	t.Run("ties keep input order", func(t *testing.T) {
		merged := Merge(
			[]Registration{reg("w1", SourceWebsite, base)},
			[]Registration{reg("a1", SourceInApp, base)},
		)
		assert.Equal(t, []string{"w1", "a1"}, ids(merged))
	})

	t.Run("no cross-source dedup", func(t *testing.T) {
		merged := Merge(
			[]Registration{reg("same-family", SourceWebsite, base)},
			[]Registration{reg("same-family", SourceInApp, base)},
		)
		assert.Len(t, merged, 2)
	})

	t.Run("empty and nil lists", func(t *testing.T) {
		assert.Empty(t, Merge())
		assert.Empty(t, Merge(nil, []Registration{}))
	})
}

func TestFilter(t *testing.T) {
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	w1 := reg("w1", SourceWebsite, base)
	w1.ChildFirstName, w1.ChildLastName = "Jane", "Doe"
	w1.GuardianName, w1.GuardianEmail = "John Doe", "john@test.cd"

	a1 := reg("a1", SourceInApp, base)
	a1.Status = StatusApproved
	a1.ChildFirstName, a1.ChildLastName = "Amani", "Kalenga"
	a1.GuardianName, a1.GuardianEmail = "Grace Kalenga", "grace@test.cd"

	regs := []Registration{w1, a1}

	tests := []struct {
		name    string
		filter  QueryFilter
		wantIDs []string
	}{
		{name: "no filter", filter: QueryFilter{}, wantIDs: []string{"w1", "a1"}},
		{name: "status", filter: QueryFilter{Status: StatusApproved}, wantIDs: []string{"a1"}},
		{name: "search child name", filter: QueryFilter{Search: "amani"}, wantIDs: []string{"a1"}},
		{name: "search guardian name", filter: QueryFilter{Search: "JOHN"}, wantIDs: []string{"w1"}},
		{name: "search email", filter: QueryFilter{Search: "grace@"}, wantIDs: []string{"a1"}},
		{name: "search full child name", filter: QueryFilter{Search: "jane doe"}, wantIDs: []string{"w1"}},
		{name: "search is trimmed", filter: QueryFilter{Search: "  jane  "}, wantIDs: []string{"w1"}},
		{name: "status and search must both match", filter: QueryFilter{Status: StatusApproved, Search: "jane"}, wantIDs: []string{}},
		{name: "no match", filter: QueryFilter{Search: "nobody"}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIDs, ids(Filter(regs, tt.filter)))
		})
	}
}
