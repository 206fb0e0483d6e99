package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// evaluatePSI12 implements PSI-12, perioperative pulmonary embolism or
// deep vein thrombosis, including the day-10 admission timing exclusion
// (spec.md §4.8).
func evaluatePSI12(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	orproc := reg.Set("ORPROC_CODES")
	if !age18Plus(e) || !isSurgicalDRG(e, reg) || !predicate.HasProc(e.Procedures, orproc) {
		rationale = append(rationale, "Population exclusion: not surgical DRG (age>=18) or no OR procedure")
		return Exclusion, rationale, details
	}

	dvtPE := reg.Union("DEEPVIB_CODES", "PULMOID_CODES")

	if predicate.HasDxSet(e.Diagnoses, dvtPE, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of DVT or PE")
		return Exclusion, rationale, details
	}
	if predicate.HasDxSet(e.Diagnoses, dvtPE, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of DVT or PE POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("HITD_CODES"), predicate.Filter{Position: encounter.Secondary}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of heparin-induced thrombocytopenia")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, reg.Set("NEURTRAD_CODES"), predicate.Filter{POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: any diagnosis of acute brain or spinal injury POA=Y")
		return Exclusion, rationale, details
	}
	if predicate.HasProc(e.Procedures, reg.Set("ECMOP_CODES")) {
		rationale = append(rationale, "Exclusion: ECMO procedure present")
		return Exclusion, rationale, details
	}

	if flags.ValidateTiming && e.AdmitDate != nil {
		venacip := reg.Set("VENACIP_CODES")
		thromp := reg.Set("THROMP_CODES")
		firstOR := wrapTime(predicate.FirstProcDate(e.Procedures, orproc))
		firstVenacip := wrapTime(predicate.FirstProcDate(e.Procedures, venacip))
		firstThromp := wrapTime(predicate.FirstProcDate(e.Procedures, thromp))

		if firstVenacip.present() && firstOR.present() && predicate.OnOrBefore(firstVenacip.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: vena cava interruption before/same day as first OR procedure")
			return Exclusion, rationale, details
		}
		if firstThromp.present() && firstOR.present() && predicate.OnOrBefore(firstThromp.t, firstOR.t) {
			rationale = append(rationale, "Exclusion: thrombectomy before/same day as first OR procedure")
			return Exclusion, rationale, details
		}

		allOR := predicate.ProceduresIn(e.Procedures, orproc)
		if len(allOR) > 0 {
			venacipThromp := reg.Union("VENACIP_CODES", "THROMP_CODES")
			onlyVenacipThromp := true
			for _, code := range allOR {
				if _, ok := venacipThromp[code]; !ok {
					onlyVenacipThromp = false
					break
				}
			}
			if onlyVenacipThromp {
				rationale = append(rationale, "Exclusion: only OR procedures are vena cava interruption/thrombectomy")
				return Exclusion, rationale, details
			}
		}

		if firstOR.present() && predicate.DayOffset(*e.AdmitDate, firstOR.t) >= 10 {
			rationale = append(rationale, "Exclusion: first OR procedure on/after 10th day of admission")
			return Exclusion, rationale, details
		}
	}

	matches := predicate.MatchingDxSet(e.Diagnoses, dvtPE, predicate.Filter{Position: encounter.Secondary, POA: encounter.POANo})
	if len(matches) > 0 {
		details["pe_dvt_matches"] = matchCodes(matches)
		rationale = append(rationale, "Numerator: perioperative PE/DVT diagnosis, POA=N")
		return Inclusion, rationale, details
	}
	rationale = append(rationale, "No qualifying perioperative PE/DVT diagnosis found")
	return DenominatorOnly, rationale, details
}
