package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI07 implements PSI-07, CVC-related bloodstream infection
// (spec.md §4.3).
func evaluatePSI07(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	isSurgicalOrMedical := age18Plus(e) && isSurgicalOrMedicalDRG(e, reg)
	isObstetric := isObstetricPrincipal(e, reg)
	if !isSurgicalOrMedical && !isObstetric {
		rationale = append(rationale, "Population exclusion: not surgical/medical DRG (age>=18) or obstetric principal diagnosis")
		return Exclusion, rationale, details
	}

	idtmc3d := reg.Set("IDTMC3D_CODES")

	if predicate.HasDx(e.Diagnoses, idtmc3d, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of CVC-related bloodstream infection")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, idtmc3d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of CVC-related bloodstream infection POA=Y")
		return Exclusion, rationale, details
	}
	if e.LengthOfStay != nil && *e.LengthOfStay < 2 {
		rationale = append(rationale, "Exclusion: length of stay < 2 days")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("CANCEID_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of cancer")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("IMMUNID_CODES"), predicate.Filter{}) || predicate.HasProc(e.Procedures, reg.Set("IMMUNIP_CODES")) {
		rationale = append(rationale, "Exclusion: diagnosis/procedure of immunocompromised state")
		return Exclusion, rationale, details
	}

	matches := predicate.MatchingDx(e.Diagnoses, idtmc3d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(matches) > 0 {
		details["cvc_bsi_matches"] = matchCodes(matches)
		rationale = append(rationale, "Numerator: CVC-related bloodstream infection diagnosis, POA=N")
		return Inclusion, rationale, details
	}
	rationale = append(rationale, "No qualifying CVC-related bloodstream infection diagnosis found")
	return DenominatorOnly, rationale, details
}
