// Package resultio writes the batch driver's output to Parquet and/or
// PostgreSQL (spec.md §4.K).
package resultio

import (
	"encoding/json"
	"strings"

	"psiengine/internal/batch"
	"psiengine/internal/psi"
)

// ResultRow is the flat, Parquet/Postgres-friendly projection of one
// psi.Result. Detail_* fields cover six scalar detail keys
// (fracture_type, risk_category, stratum and the three has_*_procedure
// flags); fields an evaluator didn't set are left nil, mirroring the
// teacher's *string/*float64 optional-column convention. Every other
// detail key (code match lists, per-organ analysis, PSI-11's criteria
// map, qualifying_organs) falls through to DetailsJSON instead of its
// own column.
type ResultRow struct {
	RowIndex    int64   `parquet:"row_index"`
	EncounterID string  `parquet:"encounter_id"`
	PSIName     string  `parquet:"psi_name"`
	Status      string  `parquet:"status"`
	Rationale   string  `parquet:"rationale"` // "; "-joined
	DetailsJSON *string `parquet:"details_json,optional"`

	DetailFractureType          *string `parquet:"detail_fracture_type,optional"`
	DetailRiskCategory          *string `parquet:"detail_risk_category,optional"`
	DetailStratum               *string `parquet:"detail_stratum,optional"`
	DetailHasTreatmentProcedure *bool   `parquet:"detail_has_treatment_procedure,optional"`
	DetailHasDialysisProcedure  *bool   `parquet:"detail_has_dialysis_procedure,optional"`
	DetailHasReclosureProcedure *bool   `parquet:"detail_has_reclosure_procedure,optional"`
}

// ToRow projects a psi.Result (plus its input row index) into a
// ResultRow, lifting simple detail fields to their own columns and
// marshaling the rest to DetailsJSON.
func ToRow(rowIndex int, r psi.Result) ResultRow {
	row := ResultRow{
		RowIndex:    int64(rowIndex),
		EncounterID: r.EncounterID,
		PSIName:     string(r.PSIName),
		Status:      string(r.Status),
		Rationale:   strings.Join(r.Rationale, "; "),
	}

	rest := make(map[string]any, len(r.Details))
	for k, v := range r.Details {
		switch k {
		case "fracture_type":
			row.DetailFractureType = strPtr(v)
		case "risk_category":
			row.DetailRiskCategory = strPtr(v)
		case "stratum":
			row.DetailStratum = strPtr(v)
		case "has_treatment_procedure":
			row.DetailHasTreatmentProcedure = boolPtr(v)
		case "has_dialysis_procedure":
			row.DetailHasDialysisProcedure = boolPtr(v)
		case "has_reclosure_procedure":
			row.DetailHasReclosureProcedure = boolPtr(v)
		default:
			rest[k] = v
		}
	}

	if len(rest) > 0 {
		if b, err := json.Marshal(rest); err == nil {
			s := string(b)
			row.DetailsJSON = &s
		}
	}

	return row
}

func strPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func boolPtr(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

// SummaryRow is the Parquet/Postgres projection of one batch.RunSummary.
type SummaryRow struct {
	PSIName         string  `parquet:"psi_name"`
	TotalCases      int64   `parquet:"total_cases"`
	Inclusions      int64   `parquet:"inclusions"`
	Exclusions      int64   `parquet:"exclusions"`
	DenominatorOnly int64   `parquet:"denominator_only"`
	RatePer1000     float64 `parquet:"rate_per_1000"`
}

// ToSummaryRow projects a batch.RunSummary into a SummaryRow.
func ToSummaryRow(s batch.RunSummary) SummaryRow {
	return SummaryRow{
		PSIName:         string(s.PSIName),
		TotalCases:      int64(s.TotalCases),
		Inclusions:      int64(s.Inclusions),
		Exclusions:      int64(s.Exclusions),
		DenominatorOnly: int64(s.DenominatorOnly),
		RatePer1000:     s.RatePer1000,
	}
}
