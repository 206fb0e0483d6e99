package psi

import "testing"

func TestEvaluateUnsupportedPSI(t *testing.T) {
	e := adult(30)
	reg := surgicalRegistry(nil)

	res := Evaluate(e, Name("PSI_99"), reg, Flags{})
	if res.Status != Exclusion {
		t.Fatalf("status = %v, want Exclusion", res.Status)
	}
	if len(res.Rationale) == 0 {
		t.Error("expected explanatory rationale for unsupported PSI")
	}
	if res.Details == nil {
		t.Error("expected non-nil Details map")
	}
}

func TestEvaluateDispatchesAllPublishedNames(t *testing.T) {
	e := withSurgicalDRG(adult(45))
	reg := surgicalRegistry(nil)

	for _, name := range All {
		res := Evaluate(e, name, reg, Flags{})
		if res.PSIName != name {
			t.Errorf("PSIName = %v, want %v", res.PSIName, name)
		}
		if res.Status == "" {
			t.Errorf("%v: empty status", name)
		}
	}
}
