// Package encounter holds the canonical, immutable view of one inpatient
// encounter record and the field-level normalization that produces it.
package encounter

import "time"

// Position distinguishes a diagnosis's role on the claim.
type Position string

const (
	Principal Position = "PRINCIPAL"
	Secondary Position = "SECONDARY"
)

// POA is the present-on-admission indicator. Empty is the "not
// specified / not applicable" case — every invalid raw value normalizes
// to it, never to a zero value that could be confused with "N".
type POA string

const (
	POAYes         POA = "Y"
	POANo          POA = "N"
	POAUnknown     POA = "U"
	POAUndetermine POA = "W"
	POANone        POA = ""
)

// Diagnosis is one coded diagnosis on the claim.
type Diagnosis struct {
	Code     string
	POA      POA
	Position Position
	Sequence int
}

// Procedure is one coded procedure on the claim, with its optional
// combined date+time. DateTime is nil when no date was present or the
// date/time failed to parse; Code is retained either way.
type Procedure struct {
	Code     string
	DateTime *time.Time
	Sequence int
}

// Encounter is the canonical, immutable view of one inpatient stay.
// Built once per input row by Normalize; never mutated afterward.
type Encounter struct {
	EncounterID string

	Age            *int
	HasSex         bool
	HasDischargeQ  bool
	HasDischargeYr bool
	AdmissionType  *int
	MDC            *int

	DRG       *int
	MSDRGText string

	AdmitDate     *time.Time
	DischargeDate *time.Time
	LengthOfStay  *float64

	Diagnoses  []Diagnosis
	Procedures []Procedure
}

// PrincipalDiagnosis returns the position-1 diagnosis, if present.
func (e *Encounter) PrincipalDiagnosis() (Diagnosis, bool) {
	for _, d := range e.Diagnoses {
		if d.Position == Principal {
			return d, true
		}
	}
	return Diagnosis{}, false
}

// IsElective reports whether the admission type denotes an elective
// admission (ATYPE == 3 per spec.md §3).
func (e *Encounter) IsElective() bool {
	return e.AdmissionType != nil && *e.AdmissionType == 3
}
