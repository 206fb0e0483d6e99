package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI05 implements PSI-05, retained surgical item or unretrieved
// device fragment (spec.md §4.1).
func evaluatePSI05(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	isSurgicalOrMedical := age18Plus(e) && isSurgicalOrMedicalDRG(e, reg)
	isObstetric := isObstetricPrincipal(e, reg)
	if !isSurgicalOrMedical && !isObstetric {
		rationale = append(rationale, "Population exclusion: not surgical/medical DRG (age>=18) or obstetric principal diagnosis")
		return Exclusion, rationale, details
	}

	foreiid := reg.Set("FOREIID_CODES")

	if predicate.HasDx(e.Diagnoses, foreiid, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of retained surgical item")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, foreiid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of retained surgical item POA=Y")
		return Exclusion, rationale, details
	}

	matches := predicate.MatchingDx(e.Diagnoses, foreiid, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(matches) > 0 {
		details["retained_surgical_item_matches"] = matchCodes(matches)
		rationale = append(rationale, "Numerator: retained surgical item diagnosis, POA=N")
		return Inclusion, rationale, details
	}
	rationale = append(rationale, "No qualifying retained surgical item diagnosis found")
	return DenominatorOnly, rationale, details
}
