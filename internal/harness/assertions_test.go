package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Run: "r-1", Seq: 1, Kind: "intent", Name: "session.signin"},
		{Run: "r-1", Seq: 2, Kind: "completion", Name: "session.signin.done", Detail: "ok"},
		{Run: "r-1", Seq: 3, Kind: "intent", Name: "cart.merge"},
		{Run: "r-1", Seq: 4, Kind: "completion", Name: "cart.merge.done", Detail: "failed: Cart service down"},
		{Run: "r-1", Seq: 5, Kind: "intent", Name: "cart.add"},
		{Run: "r-1", Seq: 6, Kind: "intent", Name: "cart.add"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Event: "cart.merge"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Event: "cart.merge.done", Detail: "failed: Cart service down"}))

	err := assertTraceContains(trace, Assertion{Event: "cart.merge.done", Detail: "ok"})
	require.Error(t, err)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, `with detail "ok"`)
	assert.Equal(t, "not found in trace", assertErr.Actual)

	err = assertTraceContains(trace, Assertion{Event: "checkout.place"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout.place")
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[r-1 #4] completion cart.merge.done (failed: Cart service down)")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"session.signin", "cart.merge", "cart.add"}}))

	err := assertTraceOrder(trace, Assertion{Events: []string{"cart.merge", "session.signin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart.merge (pos 3) should be before session.signin (pos 1)")

	err = assertTraceOrder(trace, Assertion{Events: []string{"cart.merge", "cart.load"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event: cart.load")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "cart.add", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "cart.load", Count: 0}))

	err := assertTraceCount(trace, Assertion{Event: "cart.add", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertRequestCount(t *testing.T) {
	calls := []string{"GET /api/auth/me", "POST /api/cart/merge", "GET /api/auth/me"}

	assert.NoError(t, assertRequestCount(calls, Assertion{Route: "GET /api/auth/me", Count: 2}))
	assert.NoError(t, assertRequestCount(calls, Assertion{Route: "GET /api/cart", Count: 0}))

	err := assertRequestCount(calls, Assertion{Route: "POST /api/cart/merge", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 requests")
}

func decodeState(t *testing.T, doc string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}

func TestLookupPath(t *testing.T) {
	state := decodeState(t, `{
		"cart": {"items": [{"product": {"id": 2}, "quantity": 3}], "subtotal": 45.00, "lastError": ""},
		"session": {"status": "guest"}
	}`)

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"session.status", "guest", true},
		{"cart.items.#", 1, true},
		{"cart.items.0.quantity", float64(3), true},
		{"cart.items.0.product.id", float64(2), true},
		{"cart.#", 3, true},
		{"cart.items.1", nil, false},
		{"cart.items.x", nil, false},
		{"session.user.email", nil, false},
		{"session.status.length", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := lookupPath(state, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"int vs float", 3, float64(3), true},
		{"float vs float", 25.5, 25.5, true},
		{"int vs len", 2, 2, true},
		{"number mismatch", 3, float64(4), false},
		{"number vs string", 3, "3", false},
		{"string", "guest", "guest", true},
		{"string mismatch", "guest", "authenticated", false},
		{"bool", false, false, true},
		{"bool vs number", true, float64(1), false},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"list", []any{1, "a"}, []any{float64(1), "a"}, true},
		{"list length", []any{1}, []any{float64(1), float64(2)}, false},
		{"map subset", map[string]any{"id": 2}, map[string]any{"id": float64(2), "name": "Product 2"}, true},
		{"map mismatch", map[string]any{"id": 2}, map[string]any{"id": float64(3)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestAssertFinalState(t *testing.T) {
	state := decodeState(t, `{"session": {"status": "guest"}, "cart": {"count": 2}}`)

	assert.NoError(t, assertFinalState(state, Assertion{Expect: map[string]any{
		"session.status": "guest",
		"cart.count":     2,
		"session.user":   nil,
	}}))

	err := assertFinalState(state, Assertion{Expect: map[string]any{
		"session.status": "authenticated",
		"cart.missing":   1,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart.missing: not present (want 1)")
	assert.Contains(t, err.Error(), "session.status = guest (string), want authenticated (string)")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.Calls = []string{"POST /api/cart/merge"}
	result.State = decodeState(t, `{"cart": {"count": 1}}`)

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Event: "cart.merge"},
		{Type: AssertTraceOrder, Events: []string{"session.signin", "cart.merge"}},
		{Type: AssertTraceCount, Event: "cart.add", Count: 2},
		{Type: AssertRequestCount, Route: "POST /api/cart/merge", Count: 1},
		{Type: AssertFinalState, Expect: map[string]any{"cart.count": 1}},
	})
	assert.Empty(t, failures)

	failures = EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Event: "cart.add", Count: 2},
		{Type: AssertRequestCount, Route: "GET /api/cart", Count: 1},
		{Type: "bogus"},
	})
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "assertions[1]")
	assert.Contains(t, failures[1], `assertions[2]: unknown assertion type "bogus"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
