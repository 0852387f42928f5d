package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a model from YAML with the same shape as LoadCUE:
//
//	types:
//	  Airline:
//	    name: Skylane.Airline
//	  Booking:
//	    name: Skylane.Booking
//	    predecessors:
//	      flight: Flight
//	      passengers: {type: Passenger, many: true}
//
// Declaration order is preserved.
func LoadYAML(src []byte) (*Model, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &ModelError{Field: "yaml", Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, &ModelError{Field: "types", Message: "types is required"}
	}

	typesNode := mappingValue(doc.Content[0], "types")
	if typesNode == nil || typesNode.Kind != yaml.MappingNode {
		return nil, &ModelError{Field: "types", Message: "types is required"}
	}

	m := NewModel()
	for i := 0; i+1 < len(typesNode.Content); i += 2 {
		alias := typesNode.Content[i].Value
		t, err := yamlType(alias, typesNode.Content[i+1])
		if err != nil {
			return nil, err
		}
		m.add(t)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a model file, choosing the format by extension.
func Load(path string) (*Model, error) {
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUEFile(path)
	case ".yaml", ".yml":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model: %w", err)
		}
		return LoadYAML(src)
	default:
		return nil, fmt.Errorf("model %s: unsupported extension (want .cue, .yaml, or .yml)", path)
	}
}

type yamlRole struct {
	Type string `yaml:"type"`
	Many bool   `yaml:"many"`
}

func yamlType(alias string, node *yaml.Node) (*FactType, error) {
	t := &FactType{Alias: alias, Name: alias}
	if node.Kind != yaml.MappingNode {
		// "Airline:" with no body declares a type named after its alias.
		return t, nil
	}

	if n := mappingValue(node, "name"); n != nil {
		t.Name = n.Value
	}

	if preds := mappingValue(node, "predecessors"); preds != nil {
		for i := 0; i+1 < len(preds.Content); i += 2 {
			name := preds.Content[i].Value
			val := preds.Content[i+1]
			if val.Kind == yaml.ScalarNode {
				t.Roles = append(t.Roles, Role{Name: name, Target: val.Value})
				continue
			}
			var r yamlRole
			if err := val.Decode(&r); err != nil {
				return nil, &ModelError{Field: alias + "." + name, Message: err.Error()}
			}
			if r.Type == "" {
				return nil, &ModelError{Field: alias + "." + name, Message: "role needs a target type"}
			}
			t.Roles = append(t.Roles, Role{Name: name, Target: r.Type, Many: r.Many})
		}
	}

	if conds := mappingValue(node, "conditions"); conds != nil {
		t.Conditions = make(map[string]string)
		if err := conds.Decode(&t.Conditions); err != nil {
			return nil, &ModelError{Field: alias + ".conditions", Message: err.Error()}
		}
	}

	return t, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
