package gate

import (
	"testing"

	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
)

func baseEncounter() *encounter.Encounter {
	age := 45
	drg := 470
	return &encounter.Encounter{
		EncounterID:    "E1",
		Age:            &age,
		HasSex:         true,
		HasDischargeQ:  true,
		HasDischargeYr: true,
		DRG:            &drg,
		Diagnoses: []encounter.Diagnosis{
			{Code: "M1711", Position: encounter.Principal},
		},
	}
}

func TestCheckPasses(t *testing.T) {
	reg := codeset.NewRegistry(nil)
	res := Check(baseEncounter(), reg)
	if res.Excluded {
		t.Fatalf("expected pass, got exclusion: %s", res.Rationale)
	}
}

func TestCheckUngroupableDRG(t *testing.T) {
	reg := codeset.NewRegistry(nil)
	e := baseEncounter()
	drg999 := 999
	e.DRG = &drg999

	res := Check(e, reg)
	if !res.Excluded || res.Rationale != "Ungroupable DRG" {
		t.Errorf("got %+v, want Ungroupable DRG exclusion", res)
	}
}

func TestCheckMissingRequiredFields(t *testing.T) {
	reg := codeset.NewRegistry(nil)
	e := baseEncounter()
	e.HasSex = false

	res := Check(e, reg)
	if !res.Excluded || res.Rationale != "Missing required fields" {
		t.Errorf("got %+v, want missing-required-fields exclusion", res)
	}
}

func TestCheckObstetricPrincipal(t *testing.T) {
	reg := codeset.NewRegistry(map[string][]string{
		"MDC14 (MDC14PRINDX)": {"O800"},
	})
	e := baseEncounter()
	e.Diagnoses = []encounter.Diagnosis{{Code: "O800", Position: encounter.Principal}}

	res := Check(e, reg)
	if !res.Excluded || res.Rationale != "Obstetric MDC 14" {
		t.Errorf("got %+v, want Obstetric MDC 14 exclusion", res)
	}
}

func TestCheckAgeUnder18(t *testing.T) {
	reg := codeset.NewRegistry(nil)
	e := baseEncounter()
	age := 12
	e.Age = &age

	res := Check(e, reg)
	if !res.Excluded || res.Rationale != "Age < 18" {
		t.Errorf("got %+v, want Age < 18 exclusion", res)
	}
}
