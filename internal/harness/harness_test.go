package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		sc, err := LoadScenario(path)
		require.NoError(t, err, path)
		t.Run(sc.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, sc))
		})
	}
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "predecessor_shorthand.yaml"))
	require.NoError(t, err)
	sc.Expect = []Binding{{"flight": "f102"}}

	for _, backend := range Backends {
		t.Run(string(backend), func(t *testing.T) {
			r, err := Run(context.Background(), sc, backend)
			require.NoError(t, err)
			assert.False(t, r.Pass)
			require.Len(t, r.Errors, 1)
			assert.Contains(t, r.Errors[0], "missing:    flight=f102")
			assert.Contains(t, r.Errors[0], "unexpected: flight=f102 flightCancellation=f102_cancelled")
		})
	}
}

func TestRun_CompileError(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "predecessor_shorthand.yaml"))
	require.NoError(t, err)
	sc.Specification = "Given<FlightCancellation>.Match(c => c.airline)"

	_, err = Run(context.Background(), sc, BackendMemory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile specification")
}

func TestRun_UnknownBackend(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "predecessor_shorthand.yaml"))
	require.NoError(t, err)

	_, err = Run(context.Background(), sc, Backend("postgres"))
	assert.ErrorContains(t, err, `unknown backend "postgres"`)
}

func TestSnapshot_SortsWithinSteps(t *testing.T) {
	r := NewResult(BackendMemory)
	r.Description = "(x: X) {\n}\n"
	r.Results = []Binding{{"x": "b"}, {"x": "a"}}
	r.Events = []Event{
		{Step: 1, Kind: "added", Binding: Binding{"x": "d"}},
		{Step: 1, Kind: "added", Binding: Binding{"x": "c"}},
		{Step: 1, Kind: "removed", Binding: Binding{"x": "a"}},
	}

	assert.Equal(t,
		"scenario: s\n\n(x: X) {\n}\n"+
			"\nresults:\n  x=a\n  x=b\n"+
			"\nevents:\n  step 1: removed x=a\n  step 1: added x=c\n  step 1: added x=d\n",
		string(Snapshot("s", r)))
}
