package psi

import "time"

// timeRef wraps an optional *time.Time so evaluators can chain
// "present and satisfies predicate" checks without repeating nil
// guards at every call site.
type timeRef struct {
	t time.Time
}

func wrapTime(t *time.Time) *timeRef {
	if t == nil {
		return nil
	}
	return &timeRef{t: *t}
}

func (r *timeRef) present() bool {
	return r != nil
}
