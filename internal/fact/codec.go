package fact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireFact is the JSON envelope used by the CLI and scenario files.
// Hash is optional on input; when present it must match.
type wireFact struct {
	Type         string                     `json:"type,omitempty"`
	Hash         string                     `json:"hash,omitempty"`
	Fields       map[string]any             `json:"fields"`
	Predecessors map[string]json.RawMessage `json:"predecessors"`
}

// MarshalJSON renders {"type","hash","fields","predecessors"}.
// The fields and predecessors members use the canonical encoding.
func (f Fact) MarshalJSON() ([]byte, error) {
	canonical := f.canonical
	if canonical == "" {
		c, err := Canonicalize(f.Fields, f.Predecessors)
		if err != nil {
			return nil, err
		}
		canonical = c
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	writeString(&buf, f.Reference.Type)
	buf.WriteString(`,"hash":`)
	writeString(&buf, f.Reference.Hash)
	buf.WriteByte(',')
	// Splice the canonical object's members into the envelope.
	buf.WriteString(canonical[1:])
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the envelope produced by MarshalJSON and recomputes
// the reference.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var w wireFact
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return malformed("%v", err)
	}
	decoded, err := fromWire(w.Type, w)
	if err != nil {
		return err
	}
	if w.Hash != "" && w.Hash != decoded.Reference.Hash {
		return malformed("hash %s does not match content of %s", w.Hash, decoded.Reference)
	}
	*f = decoded
	return nil
}

// Decode parses stored canonical data for a fact of the given type.
func Decode(factType, canonical string) (Fact, error) {
	var w wireFact
	dec := json.NewDecoder(bytes.NewReader([]byte(canonical)))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return Fact{}, malformed("%s: %v", factType, err)
	}
	return fromWire(factType, w)
}

// DecodeAll parses a JSON array of fact envelopes.
func DecodeAll(data []byte) ([]Fact, error) {
	var facts []Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, err
	}
	return facts, nil
}

func fromWire(factType string, w wireFact) (Fact, error) {
	fields := make([]Field, 0, len(w.Fields))
	for name, raw := range w.Fields {
		v, err := valueOf(name, raw)
		if err != nil {
			return Fact{}, err
		}
		fields = append(fields, Field{Name: name, Value: v})
	}

	preds := make([]Predecessor, 0, len(w.Predecessors))
	for role, raw := range w.Predecessors {
		p, err := decodePredecessor(role, raw)
		if err != nil {
			return Fact{}, err
		}
		preds = append(preds, p)
	}

	return New(factType, fields, preds)
}

func decodePredecessor(role string, raw json.RawMessage) (Predecessor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, malformed("predecessor %s is empty", role)
	}
	switch trimmed[0] {
	case '{':
		var ref Reference
		if err := json.Unmarshal(trimmed, &ref); err != nil {
			return nil, malformed("predecessor %s: %v", role, err)
		}
		if ref.Hash == "" || ref.Type == "" {
			return nil, malformed("predecessor %s: reference needs hash and type", role)
		}
		return Single{Role: role, Reference: ref}, nil
	case '[':
		var refs []Reference
		if err := json.Unmarshal(trimmed, &refs); err != nil {
			return nil, malformed("predecessor %s: %v", role, err)
		}
		return Multiple{Role: role, References: refs}, nil
	default:
		return nil, malformed("predecessor %s: %s", role, fmt.Sprintf("unexpected %q", trimmed[0]))
	}
}
