package psi

import (
	"testing"
	"time"

	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
)

func adult(age int) *encounter.Encounter {
	return &encounter.Encounter{
		EncounterID:    "E1",
		Age:            &age,
		HasSex:         true,
		HasDischargeQ:  true,
		HasDischargeYr: true,
	}
}

func withSurgicalDRG(e *encounter.Encounter) *encounter.Encounter {
	e.MSDRGText = "470"
	return e
}

func surgicalRegistry(extra map[string][]string) *codeset.Registry {
	cols := map[string][]string{
		"Surgical DRGs (SURGI2R)": {"470", "460"},
		"Medical DRGs (MEDIC2R)":  {"190"},
		"OR Procedures (ORPROC)":  {"0QSF0ZZ"},
	}
	for k, v := range extra {
		cols[k] = v
	}
	return codeset.NewRegistry(cols)
}

func TestPSI05Inclusion(t *testing.T) {
	e := withSurgicalDRG(adult(45))
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "T8171XA", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{"Foreign Body (FOREIID)": {"T8171XA"}})

	status, _, details := evaluatePSI05(e, reg, Flags{})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	if _, ok := details["retained_surgical_item_matches"]; !ok {
		t.Error("expected retained_surgical_item_matches detail")
	}
}

func TestPSI05ExcludesWhenPOAYes(t *testing.T) {
	e := withSurgicalDRG(adult(45))
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "T8171XA", Position: encounter.Secondary, POA: encounter.POAYes},
	}
	reg := surgicalRegistry(map[string][]string{"Foreign Body (FOREIID)": {"T8171XA"}})

	status, _, _ := evaluatePSI05(e, reg, Flags{})
	if status != Exclusion {
		t.Fatalf("status = %v, want Exclusion", status)
	}
}

func TestPSI08HipFracturePriorityOverOtherFracture(t *testing.T) {
	e := withSurgicalDRG(adult(70))
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "S72001A", Position: encounter.Secondary, POA: encounter.POANo}, // hip
		{Code: "S42001A", Position: encounter.Secondary, POA: encounter.POANo}, // other, also in FXID
	}
	reg := surgicalRegistry(map[string][]string{
		"Fracture (FXID)":     {"S72001A", "S42001A"},
		"Hip Fracture (HIPFXID)": {"S72001A"},
	})

	status, rationale, details := evaluatePSI08(e, reg, Flags{})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	if details["fracture_type"] != "hip_fracture" {
		t.Errorf("fracture_type = %v, want hip_fracture", details["fracture_type"])
	}
	if len(rationale) == 0 {
		t.Error("expected rationale trail")
	}
}

func TestPSI08OtherFractureWhenNoHipMatch(t *testing.T) {
	e := withSurgicalDRG(adult(70))
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "S42001A", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Fracture (FXID)":        {"S42001A"},
		"Hip Fracture (HIPFXID)": {"S72001A"},
	})

	status, _, details := evaluatePSI08(e, reg, Flags{})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	if details["fracture_type"] != "other_fracture" {
		t.Errorf("fracture_type = %v, want other_fracture", details["fracture_type"])
	}
}

func TestPSI09ExcludesWhenHemorrhageTreatmentBeforeFirstOR(t *testing.T) {
	or := mustParse(t, "2024-02-10 08:00:00")
	hemo := mustParse(t, "2024-02-09 08:00:00") // before first OR

	e := withSurgicalDRG(adult(50))
	e.Procedures = []encounter.Procedure{
		{Code: "0QSF0ZZ", DateTime: &or},
		{Code: "HEMO1", DateTime: &hemo},
	}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "I97410", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Postop Hemorrhage (POHMRI2D)": {"I97410"},
		"Hemorrhage Control (HEMOTH2P)": {"HEMO1"},
	})

	status, rationale, _ := evaluatePSI09(e, reg, Flags{ValidateTiming: true})
	if status != Exclusion {
		t.Fatalf("status = %v, rationale=%v, want Exclusion", status, rationale)
	}
}

func TestPSI09IncludesWhenTimingOrdersCorrectly(t *testing.T) {
	or := mustParse(t, "2024-02-10 08:00:00")
	hemo := mustParse(t, "2024-02-11 08:00:00") // after first OR

	e := withSurgicalDRG(adult(50))
	e.Procedures = []encounter.Procedure{
		{Code: "0QSF0ZZ", DateTime: &or},
		{Code: "HEMO1", DateTime: &hemo},
	}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "I97410", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Postop Hemorrhage (POHMRI2D)":  {"I97410"},
		"Hemorrhage Control (HEMOTH2P)": {"HEMO1"},
	})

	status, _, _ := evaluatePSI09(e, reg, Flags{ValidateTiming: true})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
}

func TestPSI12ExcludesWhenFirstORIsDay10OrLater(t *testing.T) {
	admit := mustParse(t, "2024-01-01 00:00:00")
	or := mustParse(t, "2024-01-11 08:00:00") // day 10 since admission

	e := withSurgicalDRG(adult(60))
	e.AdmitDate = &admit
	e.Procedures = []encounter.Procedure{
		{Code: "0QSF0ZZ", DateTime: &or},
	}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "I2609", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Deep Vein Thrombosis (DEEPVIB)": {"I2609"},
	})

	status, rationale, _ := evaluatePSI12(e, reg, Flags{ValidateTiming: true})
	if status != Exclusion {
		t.Fatalf("status = %v, rationale=%v, want Exclusion (first OR on/after day 10 of admission)", status, rationale)
	}
}

func TestPSI12IncludesPerioperativePEWhenTimingClears(t *testing.T) {
	admit := mustParse(t, "2024-01-01 00:00:00")
	or := mustParse(t, "2024-01-03 08:00:00") // day 2, clears the day-10 rule

	e := withSurgicalDRG(adult(60))
	e.AdmitDate = &admit
	e.Procedures = []encounter.Procedure{
		{Code: "0QSF0ZZ", DateTime: &or},
	}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "I2609", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Deep Vein Thrombosis (DEEPVIB)": {"I2609"},
	})

	status, _, details := evaluatePSI12(e, reg, Flags{ValidateTiming: true})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	if _, ok := details["pe_dvt_matches"]; !ok {
		t.Error("expected pe_dvt_matches detail")
	}
}

func TestPSI14StratifiesOpenVsNonOpen(t *testing.T) {
	e := adult(55)
	e.Procedures = []encounter.Procedure{{Code: "OPEN1"}}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "T8131XA", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := codeset.NewRegistry(map[string][]string{
		"Open Abdominopelvic (ABDOMIPOPEN)":   {"OPEN1"},
		"Other Abdominopelvic (ABDOMIPOTHER)": {"NONOPEN1"},
		"Wound Disruption (ABWALLCD)":         {"T8131XA"},
		"Reclosure (RECLOIP)":                 {"RECLOSE1"},
	})
	e.Procedures = append(e.Procedures, encounter.Procedure{Code: "RECLOSE1"})

	status, _, details := evaluatePSI14(e, reg, Flags{})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	if details["stratum"] != string(StratumOpen) {
		t.Errorf("stratum = %v, want open", details["stratum"])
	}

	nonOpen := adult(55)
	nonOpen.Procedures = []encounter.Procedure{{Code: "NONOPEN1"}, {Code: "RECLOSE1"}}
	nonOpen.Diagnoses = e.Diagnoses

	status, _, details = evaluatePSI14(nonOpen, reg, Flags{})
	if status != Inclusion {
		t.Fatalf("non-open status = %v, want Inclusion", status)
	}
	if details["stratum"] != string(StratumNonOpen) {
		t.Errorf("stratum = %v, want non-open", details["stratum"])
	}
}

func TestPSI15OrganMatch(t *testing.T) {
	index := mustParse(t, "2024-03-01 08:00:00")
	related := mustParse(t, "2024-03-10 08:00:00") // 9 days after index, within [1,30]

	e := withSurgicalDRG(adult(40))
	e.Procedures = []encounter.Procedure{
		{Code: "SURG1", DateTime: &index},
		{Code: "SPLEENPROC", DateTime: &related},
	}
	e.Diagnoses = []encounter.Diagnosis{
		{Code: "M1", Position: encounter.Principal},
		{Code: "SPLEENDX", Position: encounter.Secondary, POA: encounter.POANo},
	}
	reg := surgicalRegistry(map[string][]string{
		"Abdominopelvic Procedures, index (ABDOMI15P)": {"SURG1"},
		"Spleen Injury (SPLEEN15D)":                     {"SPLEENDX"},
		"Spleen Procedure (SPLEEN15P)":                  {"SPLEENPROC"},
	})

	status, _, details := evaluatePSI15(e, reg, Flags{ValidateTiming: true})
	if status != Inclusion {
		t.Fatalf("status = %v, want Inclusion", status)
	}
	organs, ok := details["qualifying_organs"].([]string)
	if !ok || len(organs) == 0 || organs[0] != "spleen" {
		t.Errorf("qualifying_organs = %v, want [spleen]", details["qualifying_organs"])
	}
	if _, ok := details["risk_category"]; !ok {
		t.Error("expected risk_category detail")
	}
}

func TestPSI15MissingIndexDateExcludes(t *testing.T) {
	e := withSurgicalDRG(adult(40))
	e.Procedures = []encounter.Procedure{{Code: "SURG1"}} // no DateTime
	reg := surgicalRegistry(map[string][]string{
		"Abdominopelvic Procedures, index (ABDOMI15P)": {"SURG1"},
	})

	status, rationale, _ := evaluatePSI15(e, reg, Flags{ValidateTiming: true})
	if status != Exclusion {
		t.Fatalf("status = %v, rationale=%v, want Exclusion for missing index date", status, rationale)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return tm
}
