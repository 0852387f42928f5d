package fact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(testRoot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "Test.Root",
		"hash": "`+testRootHash+`",
		"fields": {"identifier": "testroot"},
		"predecessors": {}
	}`, string(data))
}

func TestDecodeRoundTrip(t *testing.T) {
	root := testRoot()
	succ := MustMake("Test.Successor",
		map[string]any{"identifier": "testsuccessor", "count": 2.5, "ok": true},
		Single{Role: "root", Reference: root.Reference},
		Multiple{Role: "peers", References: []Reference{root.Reference}})

	for _, f := range []Fact{root, succ} {
		got, err := Decode(f.Type(), f.Canonical())
		require.NoError(t, err)
		assert.Equal(t, f, got)
		assert.Equal(t, f.Canonical(), got.Canonical())
	}
}

func TestUnmarshalJSONComputesHash(t *testing.T) {
	var f Fact
	err := json.Unmarshal([]byte(`{"type":"Test.Root","fields":{"identifier":"testroot"},"predecessors":{}}`), &f)
	require.NoError(t, err)
	assert.Equal(t, testRootHash, f.Reference.Hash)
}

func TestUnmarshalJSONHashMismatch(t *testing.T) {
	var f Fact
	err := json.Unmarshal([]byte(`{"type":"Test.Root","hash":"bogus","fields":{"identifier":"testroot"},"predecessors":{}}`), &f)
	require.Error(t, err)
	assert.True(t, IsDataError(err))
}

func TestDecodeRejectsNestedValues(t *testing.T) {
	_, err := Decode("Test.Root", `{"fields":{"x":{"y":1}},"predecessors":{}}`)
	require.Error(t, err)
	assert.True(t, IsUnsupportedFieldType(err))

	_, err = Decode("Test.Root", `{"fields":{"x":null},"predecessors":{}}`)
	require.Error(t, err)
	assert.True(t, IsUnsupportedFieldType(err))
}

func TestDecodeAll(t *testing.T) {
	facts, err := DecodeAll([]byte(`[
		{"type":"Test.Root","fields":{"identifier":"testroot"},"predecessors":{}},
		{"type":"Test.Successor","fields":{"identifier":"testsuccessor"},
		 "predecessors":{"root":{"type":"Test.Root","hash":"` + testRootHash + `"}}}
	]`))
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, testRootHash, facts[0].Reference.Hash)

	p, ok := facts[1].Predecessor("root")
	require.True(t, ok)
	assert.Equal(t, []Reference{facts[0].Reference}, p.Targets())
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("Skylane.Airline.Day:" + testRootHash)
	require.NoError(t, err)
	assert.Equal(t, Reference{Type: "Skylane.Airline.Day", Hash: testRootHash}, ref)
	assert.Equal(t, "Skylane.Airline.Day:"+testRootHash, ref.String())

	_, err = ParseReference("nohash")
	assert.Error(t, err)
}
