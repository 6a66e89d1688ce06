// Package cart implements the Cart Store: the in-memory authoritative cart,
// its pure item algebra, and the remote-backed server mode.
//
// In ModeLocal (guest) every mutation commits immediately. In ModeServer a
// mutation computes the desired cart client-side, sends the whole snapshot
// to the server, and commits whatever the server returns. A failed call
// leaves the committed items untouched and sets LastError.
//
// Every commit is published on the Changes feed tagged with its Origin so
// that subscribers can tell a user edit from a server result.
package cart
