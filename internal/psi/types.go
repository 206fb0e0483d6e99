// Package psi implements the eleven PSI 05-15 evaluators (spec.md §4.E)
// and their risk categorizers (§4.F).
package psi

import (
	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
)

// Status is the verdict an evaluator reaches for one (encounter, PSI)
// pair.
type Status string

const (
	Inclusion       Status = "Inclusion"
	Exclusion       Status = "Exclusion"
	DenominatorOnly Status = "Denominator-only"
)

// Name is a closed enumeration of the eleven supported indicators.
type Name string

const (
	PSI05 Name = "PSI_05"
	PSI06 Name = "PSI_06"
	PSI07 Name = "PSI_07"
	PSI08 Name = "PSI_08"
	PSI09 Name = "PSI_09"
	PSI10 Name = "PSI_10"
	PSI11 Name = "PSI_11"
	PSI12 Name = "PSI_12"
	PSI13 Name = "PSI_13"
	PSI14 Name = "PSI_14"
	PSI15 Name = "PSI_15"
)

// All is the full set of indicators this engine implements, in the
// published order.
var All = []Name{PSI05, PSI06, PSI07, PSI08, PSI09, PSI10, PSI11, PSI12, PSI13, PSI14, PSI15}

// Result is the authoritative verdict for one (encounter, PSI) pair,
// plus the informational rationale trail and structured detail fields
// (spec.md §3).
type Result struct {
	EncounterID string
	PSIName     Name
	Status      Status
	Rationale   []string
	Details     map[string]any
}

// Flags are the configuration knobs passed to every evaluator (spec.md
// §6): validate_timing gates every timing-dependent exclusion/numerator
// check. DebugMode is carried along but no evaluator reads it; results
// contain the same rationale and details with or without it.
type Flags struct {
	ValidateTiming bool
	DebugMode      bool
}

// evalFunc is the shape every per-PSI evaluator implements.
type evalFunc func(e *encounter.Encounter, reg *codeset.Registry, flags Flags) (Status, []string, map[string]any)

var evaluators = map[Name]evalFunc{
	PSI05: evaluatePSI05,
	PSI06: evaluatePSI06,
	PSI07: evaluatePSI07,
	PSI08: evaluatePSI08,
	PSI09: evaluatePSI09,
	PSI10: evaluatePSI10,
	PSI11: evaluatePSI11,
	PSI12: evaluatePSI12,
	PSI13: evaluatePSI13,
	PSI14: evaluatePSI14,
	PSI15: evaluatePSI15,
}

// Evaluate dispatches to the named PSI's evaluator and wraps its
// verdict in a Result. An unrecognized name is the engine's
// UnsupportedPSI case (spec.md §7): Exclusion with an explanatory
// rationale, never an error return, since evaluators never raise.
func Evaluate(e *encounter.Encounter, name Name, reg *codeset.Registry, flags Flags) Result {
	fn, ok := evaluators[name]
	if !ok {
		return Result{
			EncounterID: e.EncounterID,
			PSIName:     name,
			Status:      Exclusion,
			Rationale:   []string{"PSI " + string(name) + " is not implemented by this engine"},
			Details:     map[string]any{},
		}
	}
	status, rationale, details := fn(e, reg, flags)
	if details == nil {
		details = map[string]any{}
	}
	return Result{
		EncounterID: e.EncounterID,
		PSIName:     name,
		Status:      status,
		Rationale:   rationale,
		Details:     details,
	}
}

func matchCodes(matches []encounter.Diagnosis) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Code)
	}
	return out
}

func isSurgicalOrMedicalDRG(e *encounter.Encounter, reg *codeset.Registry) bool {
	return reg.Has("SURGI2R_CODES", e.MSDRGText) || reg.Has("MEDIC2R_CODES", e.MSDRGText)
}

func isSurgicalDRG(e *encounter.Encounter, reg *codeset.Registry) bool {
	return reg.Has("SURGI2R_CODES", e.MSDRGText)
}

func age18Plus(e *encounter.Encounter) bool {
	return e.Age != nil && *e.Age >= 18
}

func isObstetricPrincipal(e *encounter.Encounter, reg *codeset.Registry) bool {
	principal, ok := e.PrincipalDiagnosis()
	return ok && reg.Has("MDC14PRINDX_CODES", principal.Code)
}
