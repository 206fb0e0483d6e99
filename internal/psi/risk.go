package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// ImmuneCategory classifies the degree of immune compromise recorded
// on an encounter, used by PSI-13 to annotate (not exclude) sepsis
// cases (spec.md §4.F).
type ImmuneCategory string

const (
	ImmuneSevere            ImmuneCategory = "severe_immune_compromise"
	ImmuneModerate          ImmuneCategory = "moderate_immune_compromise"
	ImmuneMalignancyTreated ImmuneCategory = "malignancy_with_treatment"
	ImmuneBaseline          ImmuneCategory = "baseline_risk"
)

// classifyImmuneStatus picks the highest-severity immune category that
// applies to the encounter.
func classifyImmuneStatus(e *encounter.Encounter, reg *codeset.Registry) ImmuneCategory {
	if predicate.HasDx(e.Diagnoses, reg.Set("SEVEREIMMUNED_CODES"), predicate.Filter{}) {
		return ImmuneSevere
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("MODERATEIMMUNED_CODES"), predicate.Filter{}) {
		return ImmuneModerate
	}
	hasMalignancy := predicate.HasDx(e.Diagnoses, reg.Set("MALIGNANCY_CODES"), predicate.Filter{})
	hasTreatmentProc := predicate.HasProcSet(e.Procedures, reg.Union("CHEMOTHERAPYP_CODES", "RADIATIONP_CODES"))
	if hasMalignancy && hasTreatmentProc {
		return ImmuneMalignancyTreated
	}
	return ImmuneBaseline
}

// ProcedureComplexity classifies the count of distinct procedure codes
// (of any kind, not only abdominopelvic ones) recorded on the index date
// for PSI-15 (spec.md §4.F).
type ProcedureComplexity string

const (
	ComplexityHigh     ProcedureComplexity = "high_complexity"
	ComplexityModerate ProcedureComplexity = "moderate_complexity"
	ComplexityLow      ProcedureComplexity = "low_complexity"
)

// classifyProcedureComplexity buckets the encounter by how many
// distinct procedure codes were recorded on the earliest procedure
// date among the supplied candidate codes.
func classifyProcedureComplexity(e *encounter.Encounter, candidateCodes []string) ProcedureComplexity {
	indexDate := predicate.FirstProcDate(e.Procedures, candidateCodes)
	if indexDate == nil {
		return ComplexityLow
	}
	seen := map[string]struct{}{}
	for _, p := range e.Procedures {
		if p.DateTime == nil {
			continue
		}
		if !predicate.SameDay(*p.DateTime, *indexDate) {
			continue
		}
		seen[p.Code] = struct{}{}
	}
	switch {
	case len(seen) >= 5:
		return ComplexityHigh
	case len(seen) >= 2:
		return ComplexityModerate
	default:
		return ComplexityLow
	}
}
