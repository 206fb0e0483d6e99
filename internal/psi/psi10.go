package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI10 implements PSI-10, postoperative acute kidney injury
// requiring dialysis (spec.md §4.6).
func evaluatePSI10(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	orproc := reg.Set("ORPROC_CODES")
	if !age18Plus(e) || !isSurgicalDRG(e, reg) || !e.IsElective() || !predicate.HasProc(e.Procedures, orproc) {
		rationale = append(rationale, "Population exclusion: not elective surgical DRG (age>=18) or no OR procedure")
		return Exclusion, rationale, details
	}

	physidb := reg.Set("PHYSIDB_CODES")
	dialyip := reg.Set("DIALYIP_CODES")
	dialy2p := reg.Set("DIALY2P_CODES")

	if predicate.HasDx(e.Diagnoses, physidb, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of acute kidney failure")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, physidb, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of acute kidney failure POA=Y")
		return Exclusion, rationale, details
	}

	var firstOR *timeRef
	if flags.ValidateTiming {
		firstOR = wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		firstDialy := wrapTime(predicate.FirstProcDate(e.Procedures, dialyip))
		firstDialy2 := wrapTime(predicate.FirstProcDate(e.Procedures, dialy2p))

		if firstDialy.present() && firstOR.present() && predicate.OnOrBefore(firstDialy.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: dialysis procedure before/same day as first OR procedure")
			return Exclusion, rationale, details
		}
		if firstDialy2.present() && firstOR.present() && predicate.OnOrBefore(firstDialy2.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: dialysis access procedure before/same day as first OR procedure")
			return Exclusion, rationale, details
		}
	}

	cardiacShock := append(append(reg.Set("CARDIID_CODES"), reg.Set("CARDRID_CODES")...), reg.Set("SHOCKID_CODES")...)
	if predicate.HasDx(e.Diagnoses, cardiacShock, predicate.Filter{Position: encounter.Principal}) ||
		predicate.HasDx(e.Diagnoses, cardiacShock, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: principal/POA diagnosis of cardiac arrest, dysrhythmia, or shock")
		return Exclusion, rationale, details
	}

	crenlfd := reg.Set("CRENLFD_CODES")
	if predicate.HasDx(e.Diagnoses, crenlfd, predicate.Filter{Position: encounter.Principal}) ||
		predicate.HasDx(e.Diagnoses, crenlfd, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: principal/POA diagnosis of CKD stage 5 or ESRD")
		return Exclusion, rationale, details
	}

	if predicate.HasDx(e.Diagnoses, reg.Set("URINARYOBSID_CODES"), predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of urinary tract obstruction")
		return Exclusion, rationale, details
	}

	solKidneyPOA := predicate.HasDx(e.Diagnoses, reg.Set("SOLKIDD_CODES"), predicate.Filter{POA: encounter.POAYes})
	hasNephrectomy := predicate.HasProc(e.Procedures, reg.Set("PNEPHREP_CODES"))
	if solKidneyPOA && hasNephrectomy {
		rationale = append(rationale, "Exclusion: solitary kidney (POA) with partial/total nephrectomy")
		return Exclusion, rationale, details
	}

	numeratorDx := predicate.MatchingDx(e.Diagnoses, physidb, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	hasDialysis := predicate.HasProc(e.Procedures, dialyip)

	if len(numeratorDx) == 0 || !hasDialysis {
		rationale = append(rationale, "No qualifying postoperative AKI diagnosis and dialysis procedure found")
		return DenominatorOnly, rationale, details
	}

	if flags.ValidateTiming {
		firstDialy := wrapTime(predicate.FirstProcDate(e.Procedures, dialyip))
		if !firstOR.present() || !firstDialy.present() {
			rationale = append(rationale, "Numerator: missing procedure dates for timing validation")
			return DenominatorOnly, rationale, details
		}
		if !firstDialy.t.After(firstOR.t) {
			rationale = append(rationale, "Numerator: dialysis occurred before/same day as first OR procedure")
			return DenominatorOnly, rationale, details
		}
	}

	details["aki_dx_matches"] = matchCodes(numeratorDx)
	details["has_dialysis_procedure"] = true
	rationale = append(rationale, "Numerator: postoperative AKI requiring dialysis")
	return Inclusion, rationale, details
}
