// Package ir holds the wire and domain types shared by every storefront
// component: catalog entries, cart lines, auth payloads, checkout requests,
// orders and saved profile records.
//
// ir imports nothing internal. All other internal packages import ir, which
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types for money - Money is an integer count of cents
//   - JSON tags use the backend's camelCase field names
//   - Content digests use canonical JSON (RFC 8785) with domain separation
package ir
