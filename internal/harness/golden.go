package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result without backend-specific detail: results are
// sorted, and events are sorted within each step.
func Snapshot(name string, r *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n\n", name)
	buf.WriteString(r.Description)

	buf.WriteString("\nresults:\n")
	lines := make([]string, len(r.Results))
	for i, b := range r.Results {
		lines[i] = b.String()
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintf(&buf, "  %s\n", line)
	}

	if len(r.Events) > 0 {
		events := append([]Event(nil), r.Events...)
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Step != events[j].Step {
				return events[i].Step < events[j].Step
			}
			// Removals are delivered first.
			if events[i].Kind != events[j].Kind {
				return events[i].Kind == "removed"
			}
			return events[i].Binding.String() < events[j].Binding.String()
		})
		buf.WriteString("\nevents:\n")
		for _, e := range events {
			fmt.Fprintf(&buf, "  %s\n", e)
		}
	}

	return []byte(buf.String())
}

// RunWithGolden executes a scenario on every backend, fails the test on
// any unmet expectation or backend disagreement, and compares the
// snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	results, err := RunAll(context.Background(), scenario)
	if err != nil {
		return err
	}

	reference := Snapshot(scenario.Name, results[0])
	for _, r := range results {
		for _, msg := range r.Errors {
			t.Errorf("%s: %s", r.Backend, msg)
		}
		if diff := cmp.Diff(string(reference), string(Snapshot(scenario.Name, r))); diff != "" {
			t.Errorf("%s disagrees with %s (-%s +%s):\n%s", r.Backend, results[0].Backend, results[0].Backend, r.Backend, diff)
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, reference)

	return nil
}
