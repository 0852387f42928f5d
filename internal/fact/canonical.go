package fact

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"
)

// Canonicalize produces the canonical JSON form of a fact:
//
//	{"fields":{name:value,...},"predecessors":{role:{"hash":h,"type":t}|[...],...}}
//
// CRITICAL: this is the only serialization that may be hashed.
//
// Key differences from json.Marshal:
//  1. Names sorted by UTF-16 code units, regardless of input order
//  2. Only quote, backslash, and control characters are escaped
//     (no HTML escaping, U+2028/U+2029 left literal)
//  3. Numbers use ECMAScript formatting (1e+21, 1e-7, no "-0")
func Canonicalize(fields []Field, predecessors []Predecessor) (string, error) {
	fs := slices.Clone(fields)
	slices.SortStableFunc(fs, func(a, b Field) int { return compareKeys(a.Name, b.Name) })
	ps := slices.Clone(predecessors)
	slices.SortStableFunc(ps, func(a, b Predecessor) int { return compareKeys(a.RoleName(), b.RoleName()) })

	var buf bytes.Buffer
	buf.WriteString(`{"fields":{`)
	for i, f := range fs {
		if i > 0 {
			if fs[i-1].Name == f.Name {
				return "", &DataError{Code: CodeDuplicateName, Name: f.Name, Message: "duplicate field"}
			}
			buf.WriteByte(',')
		}
		writeString(&buf, f.Name)
		buf.WriteByte(':')
		if err := writeValue(&buf, f.Name, f.Value); err != nil {
			return "", err
		}
	}

	buf.WriteString(`},"predecessors":{`)
	for i, p := range ps {
		if i > 0 {
			if ps[i-1].RoleName() == p.RoleName() {
				return "", &DataError{Code: CodeDuplicateName, Name: p.RoleName(), Message: "duplicate predecessor role"}
			}
			buf.WriteByte(',')
		}
		writeString(&buf, p.RoleName())
		buf.WriteByte(':')
		switch pred := p.(type) {
		case Single:
			writeReference(&buf, pred.Reference)
		case Multiple:
			buf.WriteByte('[')
			for j, ref := range pred.References {
				if j > 0 {
					buf.WriteByte(',')
				}
				writeReference(&buf, ref)
			}
			buf.WriteByte(']')
		default:
			return "", malformed("unknown predecessor variant %T", p)
		}
	}
	buf.WriteString(`}}`)

	return buf.String(), nil
}

func writeReference(buf *bytes.Buffer, ref Reference) {
	buf.WriteString(`{"hash":`)
	writeString(buf, ref.Hash)
	buf.WriteString(`,"type":`)
	writeString(buf, ref.Type)
	buf.WriteByte('}')
}

func writeValue(buf *bytes.Buffer, name string, v Value) error {
	switch val := v.(type) {
	case String:
		writeString(buf, string(val))
	case Boolean:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		s, err := formatNumber(float64(val))
		if err != nil {
			return &DataError{Code: CodeInvalidFieldValue, Name: name, Message: err.Error()}
		}
		buf.WriteString(s)
	default:
		return unsupported(name, v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString escapes s the way JSON.stringify does.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hexDigits[c>>4])
					buf.WriteByte(hexDigits[c&0xF])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString(`�`)
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// formatNumber renders f as ECMAScript Number.prototype.toString would.
func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported number %v", f)
	}
	if f == 0 {
		return "0", nil
	}

	format := byte('f')
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// e-07 -> e-7
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return string(b), nil
}
