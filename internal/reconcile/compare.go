package reconcile

import (
	"fmt"
	"sort"
)

// Tuple constrains the per-entity record types the comparator operates on:
// fixed-width value records whose fields are all comparable scalars, with a
// canonical string rendering used for report output.
type Tuple interface {
	comparable
	fmt.Stringer
}

// Result is the outcome of comparing the two sides of one entity type.
//
// LeftCount is the number of distinct reference records (the left side is
// deduplicated by set construction). RightCount is the raw legacy row count.
// The asymmetry is deliberate and matches the behavior monitoring jobs have
// come to depend on: duplicate rows on the reference side collapse, duplicate
// rows on the legacy side inflate the count and trip the mismatch check.
type Result struct {
	Unmatched  []string
	LeftCount  int
	RightCount int
}

// Clean reports whether the comparison found no deviation. Both conditions
// are required: an empty unmatched set does not imply equal counts (duplicate
// rows collapse into the same set entry), and equal counts do not imply equal
// content.
func (r Result) Clean() bool {
	return len(r.Unmatched) == 0 && r.LeftCount == r.RightCount
}

// Compare computes the symmetric difference between the reference (left) and
// legacy (right) record collections. A record is unmatched when it appears on
// exactly one side, ignoring multiplicity. Unmatched records are returned in
// lexicographic order of their canonical form so report output is stable.
func Compare[R Tuple](left, right []R) Result {
	leftSet := make(map[R]struct{}, len(left))
	for _, rec := range left {
		leftSet[rec] = struct{}{}
	}

	rightSet := make(map[R]struct{}, len(right))
	for _, rec := range right {
		rightSet[rec] = struct{}{}
	}

	var unmatched []string
	for rec := range leftSet {
		if _, ok := rightSet[rec]; !ok {
			unmatched = append(unmatched, rec.String())
		}
	}
	for rec := range rightSet {
		if _, ok := leftSet[rec]; !ok {
			unmatched = append(unmatched, rec.String())
		}
	}
	sort.Strings(unmatched)

	return Result{
		Unmatched:  unmatched,
		LeftCount:  len(leftSet),
		RightCount: len(right),
	}
}
