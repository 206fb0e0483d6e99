package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI11 implements PSI-11, postoperative respiratory failure,
// with a four-criteria numerator (spec.md §4.7).
func evaluatePSI11(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	orproc := reg.Set("ORPROC_CODES")
	if !age18Plus(e) || !isSurgicalDRG(e, reg) || !e.IsElective() || !predicate.HasProc(e.Procedures, orproc) {
		rationale = append(rationale, "Population exclusion: not elective surgical DRG (age>=18) or no OR procedure")
		return Exclusion, rationale, details
	}

	acurf3d := reg.Set("ACURF3D_CODES")
	trachip := reg.Set("TRACHIP_CODES")

	if predicate.HasDx(e.Diagnoses, acurf3d, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of acute respiratory failure")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, acurf3d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of acute respiratory failure POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("TRACHID_CODES"), predicate.Filter{POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: any diagnosis of tracheostomy POA=Y")
		return Exclusion, rationale, details
	}
	if orCodes := predicate.ProceduresIn(e.Procedures, orproc); len(orCodes) == 1 && reg.Has("TRACHIP_CODES", orCodes[0]) {
		rationale = append(rationale, "Exclusion: only OR procedure is tracheostomy")
		return Exclusion, rationale, details
	}
	if flags.ValidateTiming {
		firstOR := wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		firstTrachip := wrapTime(predicate.FirstProcDate(e.Procedures, trachip))
		if firstTrachip.present() && firstOR.present() && predicate.Before(firstTrachip.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: tracheostomy procedure before first OR procedure")
			return Exclusion, rationale, details
		}
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("MALHYPD_CODES"), predicate.Filter{}) {
		rationale = append(rationale, "Exclusion: diagnosis of malignant hyperthermia")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("NEUROMD_CODES"), predicate.Filter{POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: diagnosis of neuromuscular disorder POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("DGNEUID_CODES"), predicate.Filter{POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: diagnosis of degenerative neurological disorder POA=Y")
		return Exclusion, rationale, details
	}
	highRiskSurgery := reg.Union("NUCRANP_CODES", "PRESOPP_CODES", "LUNGCIP_CODES", "LUNGTRANSP_CODES")
	if predicate.HasProcSet(e.Procedures, highRiskSurgery) {
		rationale = append(rationale, "Exclusion: high-risk surgery (head/neck, esophageal, or lung transplant)")
		return Exclusion, rationale, details
	}
	if e.MDC != nil && *e.MDC == 4 {
		rationale = append(rationale, "Exclusion: MDC 4 (respiratory system disorders)")
		return Exclusion, rationale, details
	}

	reintubation := reg.Set("PR9604P_CODES")
	ventilation := reg.Set("PR9671P_CODES")
	extendedVent := reg.Set("PR9672P_CODES")
	acurf2d := reg.Set("ACURF2D_CODES")

	var firstOR *timeRef
	if flags.ValidateTiming {
		firstOR = wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
	}

	criteria := map[string]bool{}

	criteria["acute_respiratory_failure_dx"] = len(predicate.MatchingDx(e.Diagnoses, acurf2d, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})) > 0

	if flags.ValidateTiming && firstOR.present() {
		extAfter := wrapTime(predicate.LastProcDate(e.Procedures, extendedVent))
		criteria["postop_extended_ventilation"] = extAfter.present() && predicate.OnOrBefore(firstOR.t, extAfter.t)

		ventAfter := wrapTime(predicate.LastProcDate(e.Procedures, ventilation))
		criteria["postop_mechanical_ventilation"] = ventAfter.present() && predicate.DayOffset(firstOR.t, ventAfter.t) >= 2

		reintubationAfter := wrapTime(predicate.LastProcDate(e.Procedures, reintubation))
		criteria["postop_reintubation"] = reintubationAfter.present() && predicate.DayOffset(firstOR.t, reintubationAfter.t) >= 1
	} else {
		criteria["postop_reintubation"] = predicate.HasProc(e.Procedures, reintubation)
		criteria["postop_mechanical_ventilation"] = predicate.HasProc(e.Procedures, ventilation)
		criteria["postop_extended_ventilation"] = predicate.HasProc(e.Procedures, extendedVent)
	}

	fired := false
	for _, v := range criteria {
		if v {
			fired = true
			break
		}
	}

	if !fired {
		rationale = append(rationale, "No qualifying postoperative respiratory failure criterion satisfied")
		return DenominatorOnly, rationale, details
	}

	details["criteria"] = criteria
	rationale = append(rationale, "Numerator: postoperative respiratory failure criterion satisfied")
	return Inclusion, rationale, details
}
