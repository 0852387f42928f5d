package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRootHash = "52bexk3CJadZJk31WH3KhvQAGr6CNHLdGIL+0vW7auWFznhfcpE/FKAQgC7syq+4aP78XgWhhJUevNoYyC25BA=="

func TestCanonicalizeEmpty(t *testing.T) {
	got, err := Canonicalize(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"fields":{},"predecessors":{}}`, got)
}

func TestCanonicalizeSortsNamesAndRoles(t *testing.T) {
	ref := Reference{Type: "Test.Root", Hash: testRootHash}
	got, err := Canonicalize(
		[]Field{{Name: "zebra", Value: Number(1)}, {Name: "alpha", Value: String("a")}},
		[]Predecessor{
			Multiple{Role: "parents", References: []Reference{ref, ref}},
			Single{Role: "root", Reference: ref},
		},
	)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"alpha":"a","zebra":1},"predecessors":{`+
			`"parents":[{"hash":"`+testRootHash+`","type":"Test.Root"},{"hash":"`+testRootHash+`","type":"Test.Root"}],`+
			`"root":{"hash":"`+testRootHash+`","type":"Test.Root"}}}`,
		got)
}

func TestCanonicalizeUTF16Ordering(t *testing.T) {
	// U+FFFD sorts after U+1F600 in UTF-8 byte order but before it in
	// UTF-16 code units (0xFFFD > 0xD83D).
	got, err := Canonicalize([]Field{
		{Name: "�", Value: Boolean(true)},
		{Name: "\U0001F600", Value: Boolean(false)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"fields":{"😀":false,"�":true},"predecessors":{}}`, got)
}

func TestCanonicalizeStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", `"hello"`},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"backspace", "a\bb", `"a\bb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"non-ascii literal", "café", `"café"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize([]Field{{Name: "s", Value: String(tt.input)}}, nil)
			require.NoError(t, err)
			assert.Equal(t, `{"fields":{"s":`+tt.expected+`},"predecessors":{}}`, got)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{-42, "-42"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{123456789, "123456789"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{-2.5e-8, "-2.5e-8"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got, err := formatNumber(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCanonicalizeDuplicateField(t *testing.T) {
	_, err := Canonicalize([]Field{
		{Name: "a", Value: Number(1)},
		{Name: "a", Value: Number(2)},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsDataError(err))
}

func TestCanonicalizeDuplicateRole(t *testing.T) {
	ref := Reference{Type: "Test.Root", Hash: testRootHash}
	_, err := Canonicalize(nil, []Predecessor{
		Single{Role: "root", Reference: ref},
		Single{Role: "root", Reference: ref},
	})
	require.Error(t, err)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeDuplicateName, de.Code)
}
