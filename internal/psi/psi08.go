package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI08 implements PSI-08, in-hospital fall with fracture
// (spec.md §4.4), with hierarchical hip-fracture-first numerator logic.
func evaluatePSI08(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	if !age18Plus(e) || !isSurgicalOrMedicalDRG(e, reg) {
		rationale = append(rationale, "Population exclusion: not surgical/medical DRG or age < 18")
		return Exclusion, rationale, details
	}

	fxid := reg.Set("FXID_CODES")
	hipfxid := reg.Set("HIPFXID_CODES")
	hipSet := make(map[string]struct{}, len(hipfxid))
	for _, c := range hipfxid {
		hipSet[c] = struct{}{}
	}

	if predicate.HasDx(e.Diagnoses, fxid, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of fracture")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, fxid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of fracture POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("PROSFXID_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of joint prosthesis-associated fracture")
		return Exclusion, rationale, details
	}

	hipMatches := predicate.MatchingDx(e.Diagnoses, hipfxid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(hipMatches) > 0 {
		details["fracture_type"] = "hip_fracture"
		details["hip_fracture_matches"] = matchCodes(hipMatches)
		rationale = append(rationale, "Numerator: hip fracture diagnosis, POA=N")
		return Inclusion, rationale, details
	}

	otherMatches := predicate.MatchingDx(e.Diagnoses, fxid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	var filtered []encounter.Diagnosis
	for _, m := range otherMatches {
		if _, isHip := hipSet[m.Code]; !isHip {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > 0 {
		details["fracture_type"] = "other_fracture"
		details["other_fracture_matches"] = matchCodes(filtered)
		rationale = append(rationale, "Numerator: other fracture diagnosis, POA=N")
		return Inclusion, rationale, details
	}

	rationale = append(rationale, "No qualifying in-hospital fracture found")
	return DenominatorOnly, rationale, details
}
