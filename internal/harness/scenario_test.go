package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
allow_guest_checkout: true
seed:
  users:
    - {email: ada@example.com, password: password123, name: Ada}
  carts:
    ada@example.com: [{product: 2, quantity: 3}]
  local_cart: "[]"
flow:
  - do: cart.add
    args:
      product: 1
    expect:
      cart.count: 1
assertions:
  - type: trace_contains
    event: cart.add
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.True(t, scenario.AllowGuestCheckout)
	require.Len(t, scenario.Seed.Users, 1)
	assert.Equal(t, "ada@example.com", scenario.Seed.Users[0].Email)
	assert.Equal(t, []SeedLine{{Product: 2, Quantity: 3}}, scenario.Seed.Carts["ada@example.com"])
	assert.Equal(t, "[]", scenario.Seed.LocalCart)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "cart.add", scenario.Flow[0].Do)
	assert.Equal(t, 1, scenario.Flow[0].Args["product"])
	assert.Equal(t, 1, scenario.Flow[0].Expect["cart.count"])
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertTraceContains, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "Typo in assertions key"
flow:
  - do: cart.clear
assertion:
  - type: trace_contains
    event: cart.clear
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
flow: [{do: cart.clear}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			content: `
name: x
description: "x"
flow: []
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "missing assertions",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown action",
			content: `
name: x
description: "x"
flow: [{do: cart.explode}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: `unknown action "cart.explode"`,
		},
		{
			name: "missing do",
			content: `
name: x
description: "x"
flow: [{args: {product: 1}}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "flow[0]: do is required",
		},
		{
			name: "bad seed line",
			content: `
name: x
description: "x"
seed:
  carts:
    demo@example.com: [{product: 1, quantity: 0}]
flow: [{do: cart.clear}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "product and quantity must be positive",
		},
		{
			name: "seed user without password",
			content: `
name: x
description: "x"
seed:
  users: [{email: a@example.com}]
flow: [{do: cart.clear}]
assertions: [{type: trace_contains, event: cart.clear}]
`,
			wantErr: "seed.users[0]",
		},
		{
			name: "unknown assertion type",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: trace_magic}]
`,
			wantErr: `unknown assertion type "trace_magic"`,
		},
		{
			name: "trace_order without events",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: trace_order}]
`,
			wantErr: "events list is required",
		},
		{
			name: "request_count without route",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: request_count, count: 1}]
`,
			wantErr: "route is required",
		},
		{
			name: "final_state without expect",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: final_state}]
`,
			wantErr: "expect is required",
		},
		{
			name: "negative count",
			content: `
name: x
description: "x"
flow: [{do: cart.clear}]
assertions: [{type: trace_count, event: cart.clear, count: -1}]
`,
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_cart.yaml", "a_cart.yml", "checkout.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c_cart.yaml"), []byte("x"), 0644))

	all, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_cart.yml"),
		filepath.Join(dir, "b_cart.yaml"),
		filepath.Join(dir, "checkout.yaml"),
		filepath.Join(dir, "nested", "c_cart.yaml"),
	}, all)

	carts, err := FindScenarios(dir, "*_cart")
	require.NoError(t, err)
	assert.Len(t, carts, 3)

	_, err = FindScenarios(dir, "[")
	assert.Error(t, err)
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	names := map[string]bool{}
	for _, f := range files {
		s, err := LoadScenario(f)
		require.NoError(t, err, f)
		assert.False(t, names[s.Name], "duplicate scenario name %s", s.Name)
		names[s.Name] = true
	}
}
