// Package engine implements the single-writer event loop that drives the
// storefront state containers.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every mutation of client state runs as an event on one goroutine. The
// session, cart, checkout and catalog containers never change their state
// directly from an exported method; they enqueue an intent event instead.
// This ensures:
// - Shared state has exactly one writer, so no locks guard mutations
// - Events apply in a total order stamped by the logical clock
// - A journal of processed events reproduces what happened
//
// Event Processing Flow:
// 1. Exported container operations call Dispatch (intent events)
// 2. Remote work runs off-loop via Go; its result comes back as a
//    completion event applied on the loop, in arrival order
// 3. Timers scheduled with After post timer events
// 4. Run / RunUntilIdle dequeue events one at a time and apply them
// 5. Each processed event is appended to the Journal, if one is set
//
// In-flight remote work is never cancelled. A superseded request's result
// is applied when it arrives.
//
// Feeds carry typed notifications between containers. Subscribers run
// synchronously on the loop, in subscription order.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All events stamped with monotonic seq counter from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Log and Continue:
// An event that fails (or panics) is logged and journaled; the loop keeps
// going. RunUntilIdle stops only on context cancellation or when the step
// quota is exceeded.
package engine
