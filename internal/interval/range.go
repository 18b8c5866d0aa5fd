package interval

import (
	"sort"
	"time"
)

// Range is a half-open time interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Of returns the range starting at start and lasting the given number of minutes.
func Of(start time.Time, minutes int) Range {
	return Range{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

// Overlaps is the half-open overlap predicate: s1 < e2 && s2 < e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool {
	return !o.Start.Before(r.Start) && !o.End.After(r.End)
}

func (r Range) Empty() bool {
	return !r.Start.Before(r.End)
}

func (r Range) Minutes() int {
	return int(r.End.Sub(r.Start) / time.Minute)
}

// Coalesce merges overlapping and adjacent ranges into a minimal, ascending set of
// disjoint ranges. Empty ranges are dropped. The input slice is not modified.
func Coalesce(ranges []Range) []Range {
	sorted := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.Empty() {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged
}

// TotalMinutes sums the lengths of already disjoint ranges.
func TotalMinutes(ranges []Range) int {
	total := 0
	for _, r := range ranges {
		total += r.Minutes()
	}
	return total
}
