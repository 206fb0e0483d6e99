package batch

import (
	"testing"

	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/psi"
)

func encounterWithFORE(id string, age int, poa encounter.POA) *encounter.Encounter {
	return &encounter.Encounter{
		EncounterID:    id,
		Age:            &age,
		HasSex:         true,
		HasDischargeQ:  true,
		HasDischargeYr: true,
		MSDRGText:      "470",
		Diagnoses: []encounter.Diagnosis{
			{Code: "M1", Position: encounter.Principal},
			{Code: "T8171XA", Position: encounter.Secondary, POA: poa},
		},
	}
}

func testRegistry() *codeset.Registry {
	return codeset.NewRegistry(map[string][]string{
		"Surgical DRGs (SURGI2R)": {"470"},
		"Foreign Body (FOREIID)":  {"T8171XA"},
	})
}

func TestRunPreservesRowOrderAndAppliesGate(t *testing.T) {
	records := []*encounter.Encounter{
		encounterWithFORE("A", 45, encounter.POANo),  // inclusion
		encounterWithFORE("B", 10, encounter.POANo),  // gated: age < 18
		encounterWithFORE("C", 45, encounter.POAYes), // exclusion (POA=Y)
	}
	reg := testRegistry()

	out := Run(records, reg, Options{
		SelectedPSIs: []psi.Name{psi.PSI05},
		Workers:      2,
	})

	if len(out.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(out.Results))
	}
	if out.RowIndex[0] != 0 || out.RowIndex[1] != 1 || out.RowIndex[2] != 2 {
		t.Fatalf("RowIndex = %v, want [0 1 2]", out.RowIndex)
	}
	if out.Results[0].Status != psi.Inclusion {
		t.Errorf("row 0 status = %v, want Inclusion", out.Results[0].Status)
	}
	if out.Results[1].Status != psi.Exclusion || out.Results[1].Rationale[0] != "Age < 18" {
		t.Errorf("row 1 = %+v, want gate Age < 18 exclusion", out.Results[1])
	}
	if out.Results[2].Status != psi.Exclusion {
		t.Errorf("row 2 status = %v, want Exclusion", out.Results[2].Status)
	}
}

func TestRunSummaryAggregation(t *testing.T) {
	records := []*encounter.Encounter{
		encounterWithFORE("A", 45, encounter.POANo),
		encounterWithFORE("B", 46, encounter.POANo),
		encounterWithFORE("C", 47, encounter.POAYes),
	}
	reg := testRegistry()

	out := Run(records, reg, Options{
		SelectedPSIs: []psi.Name{psi.PSI05},
		Workers:      1,
	})

	if len(out.Summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(out.Summaries))
	}
	s := out.Summaries[0]
	if s.TotalCases != 3 || s.Inclusions != 2 || s.Exclusions != 1 {
		t.Errorf("summary = %+v, want total=3 inclusions=2 exclusions=1", s)
	}
	wantRate := float64(2) / float64(2) * 1000
	if s.RatePer1000 != wantRate {
		t.Errorf("RatePer1000 = %v, want %v", s.RatePer1000, wantRate)
	}
}

func TestRunHandlesEmptyRecordSet(t *testing.T) {
	reg := testRegistry()
	out := Run(nil, reg, Options{SelectedPSIs: []psi.Name{psi.PSI05}})
	if len(out.Results) != 0 {
		t.Errorf("got %d results, want 0", len(out.Results))
	}
	if len(out.Summaries) != 1 || out.Summaries[0].TotalCases != 0 {
		t.Errorf("summaries = %+v, want one zeroed summary", out.Summaries)
	}
}
