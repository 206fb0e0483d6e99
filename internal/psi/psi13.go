package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI13 implements PSI-13, postoperative sepsis, and annotates
// the result with an immune-compromise category rather than excluding
// on it (spec.md §4.9).
func evaluatePSI13(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	orproc := reg.Set("ORPROC_CODES")
	if !age18Plus(e) || !isSurgicalDRG(e, reg) || !e.IsElective() || !predicate.HasProc(e.Procedures, orproc) {
		rationale = append(rationale, "Population exclusion: not elective surgical DRG (age>=18) or no OR procedure")
		return Exclusion, rationale, details
	}

	infecid := reg.Set("INFECID_CODES")
	septicemia := reg.Set("SEPTI2D_CODES")

	if predicate.HasDx(e.Diagnoses, septicemia, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of sepsis")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, septicemia, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of sepsis POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, infecid, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of general infection")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, infecid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of general infection POA=Y")
		return Exclusion, rationale, details
	}

	if flags.ValidateTiming && e.AdmitDate != nil {
		firstOR := wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		if firstOR.present() && predicate.DayOffset(*e.AdmitDate, firstOR.t) >= 10 {
			rationale = append(rationale, "Exclusion: first OR procedure on/after 10th day of admission")
			return Exclusion, rationale, details
		}
	}

	immuneCategory := classifyImmuneStatus(e, reg)
	details["risk_category"] = string(immuneCategory)

	matches := predicate.MatchingDx(e.Diagnoses, septicemia, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(matches) == 0 {
		rationale = append(rationale, "No qualifying postoperative sepsis diagnosis found")
		rationale = append(rationale, "Risk category: "+string(immuneCategory))
		return DenominatorOnly, rationale, details
	}

	details["sepsis_dx_matches"] = matchCodes(matches)
	rationale = append(rationale, "Numerator: postoperative sepsis diagnosis, POA=N")
	rationale = append(rationale, "Risk category: "+string(immuneCategory))
	return Inclusion, rationale, details
}
