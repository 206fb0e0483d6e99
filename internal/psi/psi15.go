package psi

import (
	"strings"

	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// organMatch pairs an organ's injury diagnosis code set with the
// procedure code set whose presence in the 1-30 day window after the
// index abdominopelvic procedure qualifies that organ for PSI-15's
// numerator (spec.md §4.11).
type organMatch struct {
	organ   string
	dxSet   string
	procSet string
}

var psi15Organs = []organMatch{
	{organ: "spleen", dxSet: "SPLEEN15D_CODES", procSet: "SPLEEN15P_CODES"},
	{organ: "adrenal", dxSet: "ADRENAL15D_CODES", procSet: "ADRENAL15P_CODES"},
	{organ: "vessel", dxSet: "VESSEL15D_CODES", procSet: "VESSEL15P_CODES"},
	{organ: "diaphragm", dxSet: "DIAPHR15D_CODES", procSet: "DIAPHR15P_CODES"},
	{organ: "gastrointestinal", dxSet: "GI15D_CODES", procSet: "GI15P_CODES"},
	{organ: "genitourinary", dxSet: "GU15D_CODES", procSet: "GU15P_CODES"},
}

// evaluatePSI15 implements PSI-15, abdominopelvic accidental puncture
// or laceration, matching each candidate organ injury against its own
// procedure code set within the post-index timing window.
func evaluatePSI15(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	abdomi15p := reg.Set("ABDOMI15P_CODES")
	hasIndexProcedure := predicate.HasProc(e.Procedures, abdomi15p)

	if !age18Plus(e) || !isSurgicalOrMedicalDRG(e, reg) || !hasIndexProcedure {
		rationale = append(rationale, "Population exclusion: age < 18, not surgical/medical DRG, or no abdominopelvic procedure")
		return Exclusion, rationale, details
	}

	indexDate := predicate.FirstProcDate(e.Procedures, abdomi15p)
	if indexDate == nil {
		rationale = append(rationale, "Exclusion: missing index abdominopelvic procedure date")
		return Exclusion, rationale, details
	}

	allInjuryCodes := map[string]struct{}{}
	for _, om := range psi15Organs {
		for code := range reg.Union(om.dxSet) {
			allInjuryCodes[code] = struct{}{}
		}
	}
	if predicate.HasDxSet(e.Diagnoses, allInjuryCodes, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of accidental puncture or laceration for any organ")
		return Exclusion, rationale, details
	}

	var qualifyingOrgans []string
	organDetails := map[string]any{}

	for _, om := range psi15Organs {
		dxCodes := reg.Set(om.dxSet)

		injuryMatches := predicate.MatchingDx(e.Diagnoses, dxCodes, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})

		var relatedProcMatches []encounter.Procedure
		for _, p := range e.Procedures {
			if !reg.Has(om.procSet, p.Code) {
				continue
			}
			if flags.ValidateTiming {
				if p.DateTime == nil {
					continue
				}
				days := predicate.DayOffset(*indexDate, *p.DateTime)
				if days < 1 || days > 30 {
					continue
				}
			}
			relatedProcMatches = append(relatedProcMatches, p)
		}

		poaInjuryMatches := predicate.MatchingDx(e.Diagnoses, dxCodes, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes})
		excludedByPOA := len(poaInjuryMatches) > 0 && len(relatedProcMatches) > 0

		organDetails[om.organ] = map[string]any{
			"has_injury_dx":              len(injuryMatches) > 0,
			"has_related_proc_in_window": len(relatedProcMatches) > 0,
			"is_poa_excluded":            excludedByPOA,
		}

		if len(injuryMatches) > 0 && len(relatedProcMatches) > 0 && !excludedByPOA {
			qualifyingOrgans = append(qualifyingOrgans, om.organ)
		}
	}

	details["organ_analysis"] = organDetails

	complexity := classifyProcedureComplexity(e, abdomi15p)
	details["risk_category"] = string(complexity)

	if len(qualifyingOrgans) == 0 {
		rationale = append(rationale, "No qualifying accidental puncture or laceration (injury + procedure + timing + organ match) found")
		return DenominatorOnly, rationale, details
	}

	details["qualifying_organs"] = qualifyingOrgans
	rationale = append(rationale, "Numerator: accidental puncture or laceration found for organs: "+strings.Join(qualifyingOrgans, ", "))
	return Inclusion, rationale, details
}
