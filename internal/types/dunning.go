package types

import (
	"sort"

	"github.com/samber/lo"
)

// NormalizeRetryOffsets turns a configured list of dunning retry-day offsets
// into the canonical schedule: deduplicated, ascending, negatives dropped,
// and 0 always included so the first attempt lands on the due date itself.
// Attempt numbering (1-based) is derived from the position in this list, so
// the ordering here is load-bearing.
func NormalizeRetryOffsets(offsets []int) []int {
	valid := lo.Filter(offsets, func(d int, _ int) bool { return d >= 0 })
	valid = append(valid, 0)
	valid = lo.Uniq(valid)
	sort.Ints(valid)
	return valid
}
