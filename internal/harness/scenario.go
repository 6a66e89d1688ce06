package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end storefront run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// AllowGuestCheckout lets guests place orders.
	AllowGuestCheckout bool `yaml:"allow_guest_checkout,omitempty"`

	// Seed prepares the backend and the Local Store before the first boot.
	Seed Seed `yaml:"seed,omitempty"`

	// Flow contains the steps. The loop is settled after every step.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace, requests and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed is the state that exists before the client starts.
type Seed struct {
	// Users are extra backend accounts besides the demo account.
	Users []SeedUser `yaml:"users,omitempty"`

	// Carts are server carts keyed by account email.
	Carts map[string][]SeedLine `yaml:"carts,omitempty"`

	// LocalCart is stored verbatim under the cart key, so it may be corrupt.
	LocalCart string `yaml:"local_cart,omitempty"`
}

// SeedUser is a backend account.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SeedLine is one server cart line.
type SeedLine struct {
	Product  int64 `yaml:"product"`
	Quantity int   `yaml:"quantity"`
}

// Step is one user action.
type Step struct {
	// Do names the action, e.g. "cart.add" or "auth.signin".
	Do string `yaml:"do"`

	// Args are the action's arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect holds state paths checked once the step has settled.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates the trace, the requests or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the engine event name (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Detail must equal the event's detail when set (trace_contains).
	Detail string `yaml:"detail,omitempty"`

	// Events is the expected order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Route is "METHOD /path" (request_count).
	Route string `yaml:"route,omitempty"`

	// Count is the expected number of occurrences (trace_count, request_count).
	Count int `yaml:"count,omitempty"`

	// Expect maps state paths to values (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRequestCount  = "request_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, u := range s.Seed.Users {
		if u.Email == "" || u.Password == "" {
			return fmt.Errorf("seed.users[%d]: email and password are required", i)
		}
	}
	for email, lines := range s.Seed.Carts {
		for i, l := range lines {
			if l.Product <= 0 || l.Quantity <= 0 {
				return fmt.Errorf("seed.carts[%s][%d]: product and quantity must be positive", email, i)
			}
		}
	}

	for i, step := range s.Flow {
		if step.Do == "" {
			return fmt.Errorf("flow[%d]: do is required", i)
		}
		if _, ok := actions[step.Do]; !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Do)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRequestCount:
		if a.Route == "" {
			return fmt.Errorf("assertions[%d]: route is required for request_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
