package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareBindings_Match(t *testing.T) {
	want := []Binding{{"flight": "f101"}, {"flight": "f102"}}
	got := []Binding{{"flight": "f102"}, {"flight": "f101"}}
	assert.Nil(t, compareBindings("results", want, got))
}

func TestCompareBindings_Multiset(t *testing.T) {
	want := []Binding{{"flight": "f101"}, {"flight": "f101"}}
	got := []Binding{{"flight": "f101"}}

	err := compareBindings("results", want, got)
	require.NotNil(t, err)
	assert.Equal(t, []string{"flight=f101"}, err.Missing)
	assert.Empty(t, err.Unexpected)
}

func TestCompareBindings_Reports(t *testing.T) {
	want := []Binding{{"airline": "sky", "flight": "f101"}}
	got := []Binding{{"airline": "sky", "flight": "f102"}}

	err := compareBindings("step 2 added", want, got)
	require.NotNil(t, err)
	assert.Equal(t,
		"step 2 added differ\n"+
			"  missing:    airline=sky flight=f101\n"+
			"  unexpected: airline=sky flight=f102",
		err.Error())
}

func TestAssertBindings_MarksResult(t *testing.T) {
	r := NewResult(BackendSQLite)
	assertBindings(r, "results", nil, nil)
	assert.True(t, r.Pass)

	assertBindings(r, "results", []Binding{{"x": "a"}}, nil)
	assert.False(t, r.Pass)
	assert.Len(t, r.Errors, 1)
}

func TestBinding_String(t *testing.T) {
	assert.Equal(t, "a=1 b=2 c=3", Binding{"c": "3", "a": "1", "b": "2"}.String())
	assert.Equal(t, "", Binding{}.String())
}
