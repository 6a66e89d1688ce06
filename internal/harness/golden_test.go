package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden traces pin event order and requests for these scenarios.
// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"guest_cart", "merge_on_signin"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "guest_cart.yaml"))
	require.NoError(t, err)
	result := runScenario(t, s)

	require.NoError(t, AssertGolden(t, "guest_cart", result))
}

func TestTraceJSON_Canonical(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Run: "r-1", Seq: 1, Kind: "intent", Name: "cart.add"},
		{Run: "r-1", Seq: 2, Kind: "completion", Name: "cart.replace.done", Detail: "failed: <down> & out"},
	}
	result.Calls = []string{"PUT /api/cart"}

	first, err := TraceJSON("canon", result)
	require.NoError(t, err)
	second, err := TraceJSON("canon", result)
	require.NoError(t, err)
	assert.Equal(t, first, second, "canonical JSON must be deterministic")

	assert.Equal(t,
		`{"calls":["PUT /api/cart"],"scenario_name":"canon","trace":[`+
			`{"kind":"intent","name":"cart.add","run":"r-1","seq":1},`+
			`{"detail":"failed: <down> & out","kind":"completion","name":"cart.replace.done","run":"r-1","seq":2}]}`,
		string(first))
}

func TestTraceJSON_Empty(t *testing.T) {
	out, err := TraceJSON("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"calls":[],"scenario_name":"empty","trace":[]}`, string(out))
}
