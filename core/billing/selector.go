package billing

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

// ageRangeRegex matches "3-4", "3 - 4 years", "0-2 yrs" style ranges in a
// structure's name or description.
var ageRangeRegex = regexp.MustCompile(`(\d{1,2})\s*-\s*(\d{1,2})`)

// SelectTuitionFee picks the one applicable tuition structure for a child, or
// nil when none applies. It is deterministic and total: candidates are
// filtered to active tuition structures, ordered by EffectiveFrom descending
// then CreatedAt descending (most recent policy wins ties), and the first
// structure whose age band contains the child's age at enrollment is chosen.
// Structures without a parseable age band act as catch-all candidates.
func SelectTuitionFee(candidates []FeeStructure, dateOfBirth, enrollmentDate time.Time) *FeeStructure {
	tuition := make([]FeeStructure, 0, len(candidates))
	for _, fs := range candidates {
		if fs.IsActive && fs.IsTuition() {
			tuition = append(tuition, fs)
		}
	}
	if len(tuition) == 0 {
		return nil
	}

	sort.SliceStable(tuition, func(i, j int) bool {
		if !tuition[i].EffectiveFrom.Equal(tuition[j].EffectiveFrom) {
			return tuition[i].EffectiveFrom.After(tuition[j].EffectiveFrom)
		}
		return tuition[i].CreatedAt.After(tuition[j].CreatedAt)
	})

	age := ageAt(dateOfBirth, enrollmentDate)

	var fallback *FeeStructure
	for i := range tuition {
		fs := tuition[i]
		lo, hi, ok := ageBand(fs)
		if !ok {
			if fallback == nil {
				fallback = &tuition[i]
			}
			continue
		}
		if age >= lo && age <= hi {
			return &tuition[i]
		}
	}
	return fallback
}

// ageAt returns the child's age in whole years at the given date.
func ageAt(dateOfBirth, at time.Time) int {
	years := at.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func ageBand(fs FeeStructure) (lo, hi int, ok bool) {
	for _, s := range []string{fs.Name, fs.Description} {
		if m := ageRangeRegex.FindStringSubmatch(s); m != nil {
			lo, _ = strconv.Atoi(m[1])
			hi, _ = strconv.Atoi(m[2])
			if lo <= hi {
				return lo, hi, true
			}
		}
	}
	return 0, 0, false
}
