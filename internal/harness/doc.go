// Package harness runs storefront scenarios end to end.
//
// A scenario boots the full client core (storefront.App) against the
// deterministic fake backend, drives it through a list of steps, settles
// the event loop after each one and then checks assertions against the
// resulting trace, the requests the backend received and the final state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: guest_merge_on_signin
//	description: "Guest items are merged exactly once on sign-in"
//	seed:
//	  carts:
//	    demo@example.com: [{product: 2, quantity: 1}]
//	flow:
//	  - do: cart.add
//	    args: {product: 1}
//	  - do: auth.signin
//	    expect:
//	      cart.items.#: 2
//	assertions:
//	  - type: request_count
//	    route: POST /api/cart/merge
//	    count: 1
//	  - type: final_state
//	    expect:
//	      reconcile.state: serverAuthoritative
//
// # Assertion Types
//
//   - trace_contains: an event with the name (and detail, when given) was processed
//   - trace_order: events were first processed in the listed order
//   - trace_count: an event was processed exactly N times
//   - request_count: the backend received route exactly N times
//   - final_state: dotted paths into the final state have the expected values
//
// State paths index lists by number and take a list's length with "#"
// (cart.items.0.quantity, cart.items.#).
//
// # Deterministic Testing
//
// The engine run ids are fixed per scenario, remote work runs serially on
// the loop, the wall clock is the test epoch and feedback timers are
// disabled, so a scenario produces the same trace on every run. The trace
// and the backend requests are compared with testdata/golden/<name>.golden.
package harness
