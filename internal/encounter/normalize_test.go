package encounter

import "testing"

func TestNormalizeFallsBackToRowIndexEncounterID(t *testing.T) {
	raw := RawRecord{"AGE": "45"}
	e := Normalize(raw, 7)
	if e.EncounterID != "Row_7" {
		t.Errorf("EncounterID = %q, want Row_7", e.EncounterID)
	}
}

func TestNormalizeDRGFallsBackToMSDRG(t *testing.T) {
	raw := RawRecord{"MS-DRG": "470"}
	e := Normalize(raw, 0)
	if e.DRG == nil || *e.DRG != 470 {
		t.Errorf("DRG = %v, want 470", e.DRG)
	}
	if e.MSDRGText != "470" {
		t.Errorf("MSDRGText = %q, want 470", e.MSDRGText)
	}
}

func TestNormalizeDiagnosesPrefersStandardOverAltFieldNames(t *testing.T) {
	raw := RawRecord{
		"DX1":  "m1711",
		"POA1": "n",
		"Pdx":  "Z9999", // should be ignored since DX1 is present
	}
	e := Normalize(raw, 0)
	if len(e.Diagnoses) != 1 {
		t.Fatalf("got %d diagnoses, want 1", len(e.Diagnoses))
	}
	d := e.Diagnoses[0]
	if d.Code != "M1711" || d.POA != POANo || d.Position != Principal || d.Sequence != 1 {
		t.Errorf("diagnosis = %+v", d)
	}
}

func TestNormalizeDiagnosesFallsBackToSdxFields(t *testing.T) {
	raw := RawRecord{
		"Pdx":      "Z9999",
		"Sdx1":     "T8171XA",
		"POA_Sdx1": "Y",
	}
	e := Normalize(raw, 0)
	if len(e.Diagnoses) != 2 {
		t.Fatalf("got %d diagnoses, want 2", len(e.Diagnoses))
	}
	secondary := e.Diagnoses[1]
	if secondary.Code != "T8171XA" || secondary.POA != POAYes || secondary.Position != Secondary || secondary.Sequence != 2 {
		t.Errorf("secondary diagnosis = %+v", secondary)
	}
}

func TestNormalizeInvalidPOANormalizesToNone(t *testing.T) {
	raw := RawRecord{"DX1": "M1711", "POA1": "?"}
	e := Normalize(raw, 0)
	if e.Diagnoses[0].POA != POANone {
		t.Errorf("POA = %q, want empty POANone for invalid input", e.Diagnoses[0].POA)
	}
}

func TestNormalizeProceduresCombineDateAndTime(t *testing.T) {
	raw := RawRecord{
		"Proc1":      "0QSF0ZZ",
		"Proc1_Date": "2024-02-10",
		"Proc1_Time": "0830",
	}
	e := Normalize(raw, 0)
	if len(e.Procedures) != 1 {
		t.Fatalf("got %d procedures, want 1", len(e.Procedures))
	}
	p := e.Procedures[0]
	if p.Code != "0QSF0ZZ" || p.DateTime == nil {
		t.Fatalf("procedure = %+v", p)
	}
	if p.DateTime.Hour() != 8 || p.DateTime.Minute() != 30 {
		t.Errorf("DateTime = %v, want 08:30", p.DateTime)
	}
}

func TestNormalizeProcedureWithoutDateLeavesDateTimeNil(t *testing.T) {
	raw := RawRecord{"Proc1": "0QSF0ZZ"}
	e := Normalize(raw, 0)
	if e.Procedures[0].DateTime != nil {
		t.Errorf("DateTime = %v, want nil when no date supplied", e.Procedures[0].DateTime)
	}
}

func TestNormalizeRequiredFieldPresenceFlags(t *testing.T) {
	raw := RawRecord{"SEX": "1", "DQTR": "2", "YEAR": "2024"}
	e := Normalize(raw, 0)
	if !e.HasSex || !e.HasDischargeQ || !e.HasDischargeYr {
		t.Errorf("presence flags = sex:%v dqtr:%v year:%v, want all true", e.HasSex, e.HasDischargeQ, e.HasDischargeYr)
	}
}
