package resultio

import (
	"encoding/json"
	"testing"

	"psiengine/internal/batch"
	"psiengine/internal/psi"
)

func TestToRowLiftsKnownDetailKeysToColumns(t *testing.T) {
	r := psi.Result{
		EncounterID: "E1",
		PSIName:     psi.PSI08,
		Status:      psi.Inclusion,
		Rationale:   []string{"Population exclusion: none", "Numerator: hip fracture"},
		Details: map[string]any{
			"fracture_type":        "hip_fracture",
			"hip_fracture_matches": []string{"S72001A"},
		},
	}

	row := ToRow(3, r)
	if row.RowIndex != 3 || row.EncounterID != "E1" || row.PSIName != "PSI_08" {
		t.Errorf("row = %+v", row)
	}
	if row.Rationale != "Population exclusion: none; Numerator: hip fracture" {
		t.Errorf("Rationale = %q", row.Rationale)
	}
	if row.DetailFractureType == nil || *row.DetailFractureType != "hip_fracture" {
		t.Errorf("DetailFractureType = %v, want hip_fracture", row.DetailFractureType)
	}
	if row.DetailsJSON == nil {
		t.Fatal("expected DetailsJSON to hold the unlifted hip_fracture_matches key")
	}
	var rest map[string]any
	if err := json.Unmarshal([]byte(*row.DetailsJSON), &rest); err != nil {
		t.Fatalf("unmarshal DetailsJSON: %v", err)
	}
	if _, ok := rest["hip_fracture_matches"]; !ok {
		t.Errorf("rest = %v, want hip_fracture_matches key", rest)
	}
}

func TestToRowLeavesDetailsJSONNilWhenNoUnliftedKeys(t *testing.T) {
	r := psi.Result{
		EncounterID: "E1",
		PSIName:     psi.PSI14,
		Status:      psi.DenominatorOnly,
		Details:     map[string]any{"stratum": "open"},
	}
	row := ToRow(0, r)
	if row.DetailsJSON != nil {
		t.Errorf("DetailsJSON = %v, want nil when every key lifts to a column", *row.DetailsJSON)
	}
	if row.DetailStratum == nil || *row.DetailStratum != "open" {
		t.Errorf("DetailStratum = %v, want open", row.DetailStratum)
	}
}

func TestToSummaryRow(t *testing.T) {
	s := batch.RunSummary{
		PSIName:         psi.PSI05,
		TotalCases:      10,
		Inclusions:      2,
		Exclusions:      3,
		DenominatorOnly: 5,
		RatePer1000:     285.714,
	}
	row := ToSummaryRow(s)
	if row.PSIName != "PSI_05" || row.TotalCases != 10 || row.Inclusions != 2 {
		t.Errorf("row = %+v", row)
	}
}
