package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path of the fact type model (.cue or .yaml).
	// Relative paths are resolved from the scenario file's directory.
	Model string `yaml:"model"`

	// Specification is the expression to compile and run.
	Specification string `yaml:"specification"`

	// Given names the starting facts, in the specification's given order.
	Given []string `yaml:"given"`

	// Facts are saved before the query runs.
	Facts []FactDecl `yaml:"facts"`

	// Expect lists the initial results. Order does not matter.
	Expect []Binding `yaml:"expect"`

	// Steps save more facts while an observer watches.
	Steps []Step `yaml:"steps,omitempty"`
}

// FactDecl declares one named fact.
type FactDecl struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Fields map[string]any `yaml:"fields,omitempty"`

	// Predecessors maps roles to a fact name, or to a list of names for a
	// multiple-predecessor role.
	Predecessors map[string]any `yaml:"predecessors,omitempty"`
}

// Step saves facts and names the notifications they must cause.
type Step struct {
	Save    []FactDecl `yaml:"save"`
	Added   []Binding  `yaml:"added,omitempty"`
	Removed []Binding  `yaml:"removed,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// name refers to an earlier declaration.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if s.Specification == "" {
		return fmt.Errorf("specification is required")
	}

	declared := make(map[string]bool)
	if err := declareFacts("facts", s.Facts, declared); err != nil {
		return err
	}
	for i, name := range s.Given {
		if !declared[name] {
			return fmt.Errorf("given[%d]: unknown fact %q", i, name)
		}
	}
	if err := checkBindings("expect", s.Expect, declared); err != nil {
		return err
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		if len(step.Save) == 0 {
			return fmt.Errorf("%s: save list is required and must be non-empty", where)
		}
		if err := declareFacts(where+".save", step.Save, declared); err != nil {
			return err
		}
		if err := checkBindings(where+".added", step.Added, declared); err != nil {
			return err
		}
		if err := checkBindings(where+".removed", step.Removed, declared); err != nil {
			return err
		}
	}

	return nil
}

func declareFacts(where string, decls []FactDecl, declared map[string]bool) error {
	for i, d := range decls {
		if d.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", where, i)
		}
		if d.Type == "" {
			return fmt.Errorf("%s[%d]: type is required", where, i)
		}
		if declared[d.Name] {
			return fmt.Errorf("%s[%d]: fact %q declared twice", where, i, d.Name)
		}
		for role, v := range d.Predecessors {
			names, err := predecessorNames(v)
			if err != nil {
				return fmt.Errorf("%s[%d].predecessors.%s: %w", where, i, role, err)
			}
			for _, name := range names {
				if !declared[name] {
					return fmt.Errorf("%s[%d].predecessors.%s: unknown fact %q", where, i, role, name)
				}
			}
		}
		declared[d.Name] = true
	}
	return nil
}

func checkBindings(where string, bindings []Binding, declared map[string]bool) error {
	for i, b := range bindings {
		if len(b) == 0 {
			return fmt.Errorf("%s[%d]: binding is empty", where, i)
		}
		for label, name := range b {
			if !declared[name] {
				return fmt.Errorf("%s[%d].%s: unknown fact %q", where, i, label, name)
			}
		}
	}
	return nil
}

// predecessorNames accepts a single name or a list of names.
func predecessorNames(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		names := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected fact name, got %T", item)
			}
			names[i] = s
		}
		return names, nil
	default:
		return nil, fmt.Errorf("expected fact name or list of names, got %T", v)
	}
}
