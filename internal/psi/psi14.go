package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/predicate"
)

// Stratum distinguishes the open vs. non-open abdominopelvic surgery
// population for PSI-14 (spec.md §4.10).
type Stratum string

const (
	StratumOpen    Stratum = "open_approach"
	StratumNonOpen Stratum = "non_open_approach"
)

// evaluatePSI14 implements PSI-14, postoperative wound dehiscence,
// stratified by open vs. non-open abdominopelvic approach.
func evaluatePSI14(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any) {
	var rationale []string
	details := map[string]any{}

	abdomiOpen := reg.Set("ABDOMIPOPEN_CODES")
	abdomiOther := reg.Set("ABDOMIPOTHER_CODES")

	isOpen := predicate.HasProc(e.Procedures, abdomiOpen)
	isNonOpen := predicate.HasProc(e.Procedures, abdomiOther)

	if !age18Plus(e) || (!isOpen && !isNonOpen) {
		rationale = append(rationale, "Population exclusion: age < 18 or no abdominopelvic surgery procedure")
		return Exclusion, rationale, details
	}

	reclosure := reg.Set("RECLOIP_CODES")
	abwallcd := reg.Set("ABWALLCD_CODES")

	if predicate.HasDx(e.Diagnoses, abwallcd, predicate.Filter{Position: encounter.Principal}) {
		rationale = append(rationale, "Exclusion: principal diagnosis of wound disruption")
		return Exclusion, rationale, details
	}
	if predicate.HasDx(e.Diagnoses, abwallcd, predicate.Filter{Position: encounter.Secondary, POA: encounter.POAYes}) {
		rationale = append(rationale, "Exclusion: secondary diagnosis of wound disruption POA=Y")
		return Exclusion, rationale, details
	}
	if e.LengthOfStay != nil && *e.LengthOfStay < 2 {
		rationale = append(rationale, "Exclusion: length of stay < 2 days")
		return Exclusion, rationale, details
	}

	if flags.ValidateTiming {
		lastReclosure := wrapTime(predicate.LastProcDate(e.Procedures, reclosure))
		if lastReclosure.present() {
			firstOpen := wrapTime(predicate.FirstProcDate(e.Procedures, abdomiOpen))
			if firstOpen.present() && predicate.OnOrBefore(lastReclosure.t, firstOpen.t) {
				rationale = append(rationale, "Exclusion: reclosure before/same day as first open abdominopelvic surgery")
				return Exclusion, rationale, details
			}
			firstOther := wrapTime(predicate.FirstProcDate(e.Procedures, abdomiOther))
			if firstOther.present() && predicate.OnOrBefore(lastReclosure.t, firstOther.t) {
				rationale = append(rationale, "Exclusion: reclosure before/same day as first non-open abdominopelvic surgery")
				return Exclusion, rationale, details
			}
		}
	}

	hasReclosure := predicate.HasProc(e.Procedures, reclosure)
	dxMatches := predicate.MatchingDx(e.Diagnoses, abwallcd, predicate.Filter{POA: encounter.POANo})

	if !hasReclosure || len(dxMatches) == 0 {
		rationale = append(rationale, "No qualifying wound disruption diagnosis and reclosure procedure found")
		return DenominatorOnly, rationale, details
	}

	stratum := StratumNonOpen
	if isOpen {
		stratum = StratumOpen
	}
	details["stratum"] = string(stratum)
	details["disruption_dx_matches"] = matchCodes(dxMatches)
	details["has_reclosure_procedure"] = true
	rationale = append(rationale, "Numerator: postoperative wound dehiscence with reclosure, stratum="+string(stratum))
	return Inclusion, rationale, details
}
