package registration

import (
	"sort"
	"strings"
)

// Merge unions registrations from any number of sources into one collection
// ordered by CreatedAt descending. Rows from different sources are independent
// identities: no cross-source deduplication is attempted (a family registering
// through two channels shows up twice; known limitation).
func Merge(lists ...[]Registration) []Registration {
	var size int
	for _, l := range lists {
		size += len(l)
	}
	merged := make([]Registration, 0, size)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// Filter applies the QueryFilter client-side: status equality and a
// case-insensitive substring search over child name, guardian name and email.
func Filter(regs []Registration, filter QueryFilter) []Registration {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if filter.Status == "" && search == "" {
		return regs
	}

	out := make([]Registration, 0, len(regs))
	for _, r := range regs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r Registration, search string) bool {
	for _, s := range []string{r.ChildName(), r.GuardianName, r.GuardianEmail} {
		if strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}
