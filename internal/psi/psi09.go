package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI09 implements PSI-09, postoperative hemorrhage or hematoma
// (spec.md §4.5).
func evaluatePSI09(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	orproc := reg.Set("ORPROC_CODES")
	if !age18Plus(e) || !isSurgicalDRG(e, reg) || !predicate.HasProc(e.Procedures, orproc) {
		rationale = append(rationale, "Population exclusion: not surgical DRG (age>=18) or no OR procedure")
		return Exclusion, rationale, details
	}

	pohmri2d := reg.Set("POHMRI2D_CODES")
	hemoth2p := reg.Set("HEMOTH2P_CODES")

	if predicate.HasDx(e.Diagnoses, pohmri2d, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of postoperative hemorrhage/hematoma")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, pohmri2d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of postoperative hemorrhage/hematoma POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("COAGDID_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of coagulation disorder")
		return Exclusion, rationale, details
	}
	medbleedd := reg.Set("MEDBLEEDD_CODES")
	if predicate.HasDx(e.Diagnoses, medbleedd, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of medication-related coagulopathy")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, medbleedd, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of medication-related coagulopathy POA=Y")
		return Exclusion, rationale, details
	}

	var firstOR, firstHemo *timeRef
	if flags.ValidateTiming {
		firstOR = wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		firstHemo = wrapTime(predicate.FirstProcDate(e.Procedures, hemoth2p))
		firstThromb := wrapTime(predicate.FirstProcDate(e.Procedures, reg.Set("THROMBOLYTICP_CODES")))

		if orCodes := predicate.ProceduresIn(e.Procedures, orproc); len(orCodes) == 1 && reg.Has("HEMOTH2P_CODES", orCodes[0]) {
			rationale = append(rationale, "Exclusion: only OR procedure is hemorrhage treatment")
			return Exclusion, rationale, details
		}
		if firstHemo.present() && firstOR.present() && predicate.Before(firstHemo.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: hemorrhage treatment before first OR procedure")
			return Exclusion, rationale, details
		}
		if firstThromb.present() && firstHemo.present() && predicate.OnOrBefore(firstThromb.t, firstHemo.t) {
			rationale = append(rationale, "Exclusion: thrombolytic therapy before/same day as hemorrhage treatment")
			return Exclusion, rationale, details
		}
	}

	numeratorDx := predicate.MatchingDx(e.Diagnoses, pohmri2d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	hasTreatment := predicate.HasProc(e.Procedures, hemoth2p)

	if len(numeratorDx) == 0 || !hasTreatment {
		rationale = append(rationale, "No qualifying postoperative hemorrhage/hematoma diagnosis and treatment procedure found")
		return DenominatorOnly, rationale, details
	}

	if flags.ValidateTiming {
		if firstOR == nil {
			firstOR = wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		}
		if firstHemo == nil {
			firstHemo = wrapTime(predicate.FirstProcDate(e.Procedures, hemoth2p))
		}
		if !firstOR.present() || !firstHemo.present() {
			rationale = append(rationale, "Numerator: missing procedure dates for timing validation")
			return DenominatorOnly, rationale, details
		}
		if !firstHemo.t.After(firstOR.t) {
			rationale = append(rationale, "Numerator: hemorrhage treatment occurred before/same day as first OR procedure")
			return DenominatorOnly, rationale, details
		}
	}

	details["hemorrhage_dx_matches"] = matchCodes(numeratorDx)
	details["has_treatment_procedure"] = true
	rationale = append(rationale, "Numerator: postoperative hemorrhage/hematoma with qualifying treatment")
	return Inclusion, rationale, details
}
