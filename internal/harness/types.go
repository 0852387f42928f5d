package harness

import (
	"fmt"
	"sort"
	"strings"
)

// Binding maps result labels to declared fact names.
type Binding map[string]string

// String renders the binding as label=name pairs sorted by label.
func (b Binding) String() string {
	labels := make([]string, 0, len(b))
	for label := range b {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = label + "=" + b[label]
	}
	return strings.Join(parts, " ")
}

// Event is one observer notification seen during a step.
type Event struct {
	Step    int     `json:"step"`
	Kind    string  `json:"kind"` // "added" or "removed"
	Binding Binding `json:"binding"`
}

func (e Event) String() string {
	return fmt.Sprintf("step %d: %s %s", e.Step, e.Kind, e.Binding)
}

// Result is the outcome of running a scenario against one backend.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Backend names the store the scenario ran against.
	Backend Backend `json:"backend"`

	// Description is the compiled specification in description format.
	Description string `json:"description"`

	// Results are the initial query results.
	Results []Binding `json:"results"`

	// Events are the observer notifications, in step order.
	Events []Event `json:"events"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(backend Backend) *Result {
	return &Result{
		Pass:    true,
		Backend: backend,
		Results: []Binding{},
		Events:  []Event{},
		Errors:  []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
