package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI06 implements PSI-06, iatrogenic pneumothorax (spec.md §4.2).
func evaluatePSI06(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	if !age18Plus(e) || !isSurgicalOrMedicalDRG(e, reg) {
		rationale = append(rationale, "Population exclusion: not surgical/medical DRG or age < 18")
		return Exclusion, rationale, details
	}

	iatptxd := reg.Set("IATPTXD_CODES")

	if predicate.HasDx(e.Diagnoses, iatptxd, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of non-traumatic pneumothorax")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, iatptxd, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of non-traumatic pneumothorax POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("CTRAUMD_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of specified chest trauma")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("PLEURAD_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of pleural effusion")
		return Exclusion, rationale, details
	}
	if predicate.HasProc(e.Procedures, reg.Set("THORAIP_CODES")) || predicate.HasProc(e.Procedures, reg.Set("CARDSIP_CODES")) {
		rationale = append(rationale, "Exclusion: thoracic surgery or trans-pleural cardiac procedure")
		return Exclusion, rationale, details
	}

	matches := predicate.MatchingDx(e.Diagnoses, reg.Set("IATROID_CODES"), predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(matches) > 0 {
		details["iatrogenic_pneumothorax_matches"] = matchCodes(matches)
		rationale = append(rationale, "Numerator: iatrogenic pneumothorax diagnosis, POA=N")
		return Inclusion, rationale, details
	}
	rationale = append(rationale, "No qualifying iatrogenic pneumothorax diagnosis found")
	return DenominatorOnly, rationale, details
}
