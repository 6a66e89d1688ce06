// Package store provides the SQLite-backed Local Store.
//
// The store holds:
//   - kv: keyed JSON blobs. The guest cart snapshot lives under a single
//     key (target_cart_v1 by default); session cookies live under
//     session_cookies so a later process can restore the session.
//   - journal: an append-only log of events processed by the engine,
//     read back by `storefront trace`.
//
// Reads of the cart snapshot never fail on bad data. Every entry is
// validated field by field; entries that fail are dropped and a blob that
// is not a JSON array is treated as an empty cart.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
