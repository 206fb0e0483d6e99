// Package predicate is the reusable predicate kit over diagnoses and
// procedures that every PSI evaluator composes (spec.md §4.C).
package predicate

import (
	"time"

	"psiengine/internal/encounter"
)

// Filter narrows a diagnosis match by position and/or POA. A zero
// value (empty Position/POA) means "don't filter on this dimension".
type Filter struct {
	Position encounter.Position
	POA      encounter.POA
}

func matches(d encounter.Diagnosis, codes map[string]struct{}, f Filter) bool {
	if _, ok := codes[d.Code]; !ok {
		return false
	}
	if f.Position != "" && d.Position != f.Position {
		return false
	}
	if f.POA != "" && d.POA != f.POA {
		return false
	}
	return true
}

// toSet turns a code slice into a membership set once per call; callers
// evaluating many predicates against the same code list should build the
// set once and reuse it via the *Set variants below.
func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// HasDx reports whether any diagnosis matches codes under filter f.
func HasDx(dx []encounter.Diagnosis, codes []string, f Filter) bool {
	return HasDxSet(dx, toSet(codes), f)
}

// HasDxSet is HasDx for a pre-built membership set.
func HasDxSet(dx []encounter.Diagnosis, codes map[string]struct{}, f Filter) bool {
	for _, d := range dx {
		if matches(d, codes, f) {
			return true
		}
	}
	return false
}

// MatchingDx returns every diagnosis matching codes under filter f, in
// encounter order.
func MatchingDx(dx []encounter.Diagnosis, codes []string, f Filter) []encounter.Diagnosis {
	return MatchingDxSet(dx, toSet(codes), f)
}

// MatchingDxSet is MatchingDx for a pre-built membership set.
func MatchingDxSet(dx []encounter.Diagnosis, codes map[string]struct{}, f Filter) []encounter.Diagnosis {
	var out []encounter.Diagnosis
	for _, d := range dx {
		if matches(d, codes, f) {
			out = append(out, d)
		}
	}
	return out
}

// HasProc reports whether any procedure code is in codes.
func HasProc(proc []encounter.Procedure, codes []string) bool {
	return HasProcSet(proc, toSet(codes))
}

// HasProcSet is HasProc for a pre-built membership set.
func HasProcSet(proc []encounter.Procedure, codes map[string]struct{}) bool {
	for _, p := range proc {
		if _, ok := codes[p.Code]; ok {
			return true
		}
	}
	return false
}

// CountProc counts procedures whose code is in codes.
func CountProc(proc []encounter.Procedure, codes []string) int {
	set := toSet(codes)
	n := 0
	for _, p := range proc {
		if _, ok := set[p.Code]; ok {
			n++
		}
	}
	return n
}

// FirstProcDate returns the earliest timestamp among procedures whose
// code is in codes, ignoring entries with a nil DateTime. Returns nil
// if none qualify.
func FirstProcDate(proc []encounter.Procedure, codes []string) *time.Time {
	return FirstProcDateSet(proc, toSet(codes))
}

// FirstProcDateSet is FirstProcDate for a pre-built membership set.
func FirstProcDateSet(proc []encounter.Procedure, codes map[string]struct{}) *time.Time {
	var best *time.Time
	for _, p := range proc {
		if p.DateTime == nil {
			continue
		}
		if _, ok := codes[p.Code]; !ok {
			continue
		}
		if best == nil || p.DateTime.Before(*best) {
			t := *p.DateTime
			best = &t
		}
	}
	return best
}

// LastProcDate returns the latest timestamp among procedures whose code
// is in codes, ignoring entries with a nil DateTime.
func LastProcDate(proc []encounter.Procedure, codes []string) *time.Time {
	return LastProcDateSet(proc, toSet(codes))
}

// LastProcDateSet is LastProcDate for a pre-built membership set.
func LastProcDateSet(proc []encounter.Procedure, codes map[string]struct{}) *time.Time {
	var best *time.Time
	for _, p := range proc {
		if p.DateTime == nil {
			continue
		}
		if _, ok := codes[p.Code]; !ok {
			continue
		}
		if best == nil || p.DateTime.After(*best) {
			t := *p.DateTime
			best = &t
		}
	}
	return best
}

// ProceduresIn returns the codes of procedures whose code is in codes,
// used by PSI-12's "every OR procedure is in {venacip,thromp}" check.
func ProceduresIn(proc []encounter.Procedure, codes []string) []string {
	set := toSet(codes)
	var out []string
	for _, p := range proc {
		if _, ok := set[p.Code]; ok {
			out = append(out, p.Code)
		}
	}
	return out
}

// DayOffset returns the whole-calendar-day delta from-to, truncating
// both timestamps to midnight local first so time-of-day never affects
// the result (spec.md §4.C: "day arithmetic uses calendar-day
// truncation").
func DayOffset(from, to time.Time) int {
	f := truncateDay(from)
	t := truncateDay(to)
	return int(t.Sub(f).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return truncateDay(a).Equal(truncateDay(b))
}

// Before reports whether a is strictly before b by calendar day.
func Before(a, b time.Time) bool {
	return truncateDay(a).Before(truncateDay(b))
}

// OnOrBefore reports whether a's calendar day is not after b's.
func OnOrBefore(a, b time.Time) bool {
	return !truncateDay(a).After(truncateDay(b))
}

// AddDays returns t truncated to midnight, plus n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return truncateDay(t).AddDate(0, 0, n)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
