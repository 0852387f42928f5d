package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when expected and actual bindings differ.
type AssertionError struct {
	What       string   // "results", "step 2 added", ...
	Missing    []string // expected but not seen
	Unexpected []string // seen but not expected
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s differ", e.What)
	for _, m := range e.Missing {
		fmt.Fprintf(&buf, "\n  missing:    %s", m)
	}
	for _, u := range e.Unexpected {
		fmt.Fprintf(&buf, "\n  unexpected: %s", u)
	}
	return buf.String()
}

// compareBindings compares two binding lists as multisets.
// Returns nil when they hold the same bindings.
func compareBindings(what string, want, got []Binding) *AssertionError {
	counts := make(map[string]int)
	for _, b := range want {
		counts[b.String()]++
	}
	for _, b := range got {
		counts[b.String()]--
	}

	var missing, unexpected []string
	for key, n := range counts {
		for ; n > 0; n-- {
			missing = append(missing, key)
		}
		for ; n < 0; n++ {
			unexpected = append(unexpected, key)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return &AssertionError{What: what, Missing: missing, Unexpected: unexpected}
}

// assertBindings records a failed comparison on the result.
func assertBindings(result *Result, what string, want, got []Binding) {
	if err := compareBindings(what, want, got); err != nil {
		result.AddError(err.Error())
	}
}
