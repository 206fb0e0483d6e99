package psi

import "psiengine/internal/encounter"

func electiveAdult(age int) *encounter.Encounter {
	e := withSurgicalDRG(adult(age))
	atype := 3
	e.AdmissionType = &atype
	return e
}
