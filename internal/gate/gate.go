// Package gate implements the denominator gates shared by every PSI
// evaluator before any PSI-specific population/exclusion logic runs
// (spec.md §4.D).
package gate

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
)

// Result is the outcome of the common gate: either it excludes the
// encounter outright (with a rationale line) or it passes.
type Result struct {
	Excluded  bool
	Rationale string
}

// pass is the zero-value "no exclusion" result, named for readability
// at call sites.
var pass = Result{}

// Check runs the five common gates in spec.md §4.D order, short-
// circuiting on the first one that fires:
//  1. Ungroupable DRG (999)
//  2. Missing required fields (SEX, AGE, DQTR, YEAR, principal dx)
//  3. Principal diagnosis in MDC 14 (obstetric)
//  4. Principal diagnosis in MDC 15 (neonatal)
//  5. Age < 18
//
// The age floor is evaluated unconditionally here, before any per-PSI
// obstetric carve-out — see spec.md §9's documented divergence.
func Check(e *encounter.Encounter, reg *codeset.Registry) Result {
	if e.DRG != nil && *e.DRG == 999 {
		return Result{true, "Ungroupable DRG"}
	}

	if !hasRequiredFields(e) {
		return Result{true, "Missing required fields"}
	}

	principal, hasPrincipal := e.PrincipalDiagnosis()
	if hasPrincipal && reg.Has("MDC14PRINDX_CODES", principal.Code) {
		return Result{true, "Obstetric MDC 14"}
	}
	if hasPrincipal && reg.Has("MDC15PRINDX_CODES", principal.Code) {
		return Result{true, "Neonatal MDC 15"}
	}

	if e.Age == nil || *e.Age < 18 {
		return Result{true, "Age < 18"}
	}

	return pass
}

func hasRequiredFields(e *encounter.Encounter) bool {
	if !e.HasSex || !e.HasDischargeQ || !e.HasDischargeYr {
		return false
	}
	if e.Age == nil {
		return false
	}
	_, hasPrincipal := e.PrincipalDiagnosis()
	return hasPrincipal
}
