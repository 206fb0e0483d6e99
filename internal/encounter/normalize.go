package encounter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord is the flat field view of one input row, as produced by a
// CSV or JSON record source (internal/recordio). Lookups are by exact
// field name; a missing or blank field is treated identically to an
// absent one throughout Normalize.
type RawRecord map[string]string

func (r RawRecord) get(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// Normalize builds the canonical Encounter for one raw input row.
// rowIndex is the row's 0-based position in the batch, used for the
// "Row_<index>" EncounterID fallback.
func Normalize(raw RawRecord, rowIndex int) *Encounter {
	e := &Encounter{
		EncounterID: encounterID(raw, rowIndex),
	}

	if v, ok := firstOf(raw, "EncounterID", "Encounter_ID"); ok {
		e.EncounterID = v
	}

	if v, ok := raw.get("AGE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.Age = &n
		}
	} else if v, ok := firstOf(raw, "Age"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.Age = &n
		}
	}

	_, e.HasSex = firstOf(raw, "SEX")
	_, e.HasDischargeQ = firstOf(raw, "DQTR")
	_, e.HasDischargeYr = firstOf(raw, "YEAR")

	if v, ok := firstOf(raw, "ATYPE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.AdmissionType = &n
		}
	}
	if v, ok := firstOf(raw, "MDC"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.MDC = &n
		}
	}

	e.MSDRGText, _ = firstOf(raw, "MS-DRG")
	e.DRG = resolveDRG(raw)

	e.AdmitDate = parseDateSafe(firstOfOpt(raw, "admission_date", "Admission_Date"))
	e.DischargeDate = parseDateSafe(firstOfOpt(raw, "discharge_date", "Discharge_Date"))

	if v, ok := firstOf(raw, "length_of_stay", "Length_of_stay"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			e.LengthOfStay = &f
		}
	}

	e.Diagnoses = extractDiagnoses(raw)
	e.Procedures = extractProcedures(raw)

	return e
}

func encounterID(raw RawRecord, rowIndex int) string {
	if v, ok := firstOf(raw, "EncounterID", "Encounter_ID"); ok {
		return v
	}
	return fmt.Sprintf("Row_%d", rowIndex)
}

// firstOf returns the first present, non-blank value among keys.
func firstOf(raw RawRecord, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := raw.get(k); ok {
			return v, true
		}
	}
	return "", false
}

func firstOfOpt(raw RawRecord, keys ...string) (string, bool) {
	return firstOf(raw, keys...)
}

// resolveDRG prefers DRG, falls back to MS-DRG, coerces to int; an
// unparseable or absent value resolves to nil (spec.md §4.B).
func resolveDRG(raw RawRecord) *int {
	v, ok := firstOf(raw, "DRG")
	if !ok {
		v, ok = firstOf(raw, "MS-DRG")
		if !ok {
			return nil
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

// dateLayouts are tried in order; permissive parsing per spec.md §4.B.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseDateSafe(v string, ok bool) *time.Time {
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// normalizeTimeString expands HHMMSS/HHMM into HH:MM:SS; HH:MM:SS is
// returned unchanged (spec.md §4.B).
func normalizeTimeString(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if strings.Contains(v, ":") {
		return v, true
	}
	switch len(v) {
	case 6:
		return v[0:2] + ":" + v[2:4] + ":" + v[4:6], true
	case 4:
		return v[0:2] + ":" + v[2:4] + ":00", true
	default:
		return "", false
	}
}

func combineDateTime(dateStr, timeStr string, haveTime bool) *time.Time {
	if haveTime {
		if ts, ok := normalizeTimeString(timeStr); ok {
			if t, err := time.Parse("2006-01-02 15:04:05", dateStr+" "+ts); err == nil {
				return &t
			}
			for _, layout := range []string{"1/2/2006 15:04:05", "2006/01/02 15:04:05"} {
				if t, err := time.Parse(layout, dateStr+" "+ts); err == nil {
					return &t
				}
			}
		}
	}
	return parseDateSafe(dateStr, true)
}

// normalizePOA maps a raw POA token to the closed POA enum; anything
// outside {Y,N,U,W} normalizes to POANone (spec.md §3).
func normalizePOA(v string) POA {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "Y":
		return POAYes
	case "N":
		return POANo
	case "U":
		return POAUnknown
	case "W":
		return POAUndetermine
	default:
		return POANone
	}
}

func normalizeCode(v string) string {
	v = strings.TrimSpace(v)
	v = strings.ReplaceAll(v, ".", "")
	return strings.ToUpper(v)
}

// extractDiagnoses builds the ordered diagnosis list per spec.md §4.B:
// position 1 from DX1 falling back to Pdx (POA from POA1); positions
// 2..30 from DX{i} falling back to Sdx{i-1} (POA from POA{i} or
// POA_Sdx{i-1} respectively).
func extractDiagnoses(raw RawRecord) []Diagnosis {
	var out []Diagnosis

	dx1, ok := raw.get("DX1")
	poa1Key := "POA1"
	if !ok {
		dx1, ok = raw.get("Pdx")
	}
	if ok {
		poa, _ := raw.get(poa1Key)
		out = append(out, Diagnosis{
			Code:     normalizeCode(dx1),
			POA:      normalizePOA(poa),
			Position: Principal,
			Sequence: 1,
		})
	}

	for i := 2; i <= 30; i++ {
		stdDX := fmt.Sprintf("DX%d", i)
		stdPOA := fmt.Sprintf("POA%d", i)
		altDX := fmt.Sprintf("Sdx%d", i-1)
		altPOA := fmt.Sprintf("POA_Sdx%d", i-1)

		dx, ok := raw.get(stdDX)
		poaKey := stdPOA
		if !ok {
			dx, ok = raw.get(altDX)
			poaKey = altPOA
		}
		if !ok {
			continue
		}
		poa, _ := raw.get(poaKey)
		out = append(out, Diagnosis{
			Code:     normalizeCode(dx),
			POA:      normalizePOA(poa),
			Position: Secondary,
			Sequence: i,
		})
	}

	return out
}

// extractProcedures builds the ordered procedure list per spec.md §4.B.
func extractProcedures(raw RawRecord) []Procedure {
	var out []Procedure
	for i := 1; i <= 20; i++ {
		code, ok := raw.get(fmt.Sprintf("Proc%d", i))
		if !ok {
			continue
		}
		dateStr, haveDate := raw.get(fmt.Sprintf("Proc%d_Date", i))
		timeStr, haveTime := raw.get(fmt.Sprintf("Proc%d_Time", i))

		var dt *time.Time
		if haveDate {
			dt = combineDateTime(dateStr, timeStr, haveTime)
		}

		out = append(out, Procedure{
			Code:     normalizeCode(code),
			DateTime: dt,
			Sequence: i,
		})
	}
	return out
}
