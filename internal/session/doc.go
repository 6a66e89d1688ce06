// Package session implements the Session Manager: the authentication state
// of the storefront client (checking, guest, authenticated) and the signup
// form state.
//
// Every status change is published on the Transitions feed. The
// reconciliation controller subscribes to it; nothing else in the client
// observes session changes implicitly.
//
// All state changes run on the engine loop. Exported operations enqueue an
// intent and return immediately; call Engine.RunUntilIdle (or run the loop)
// to let them settle.
package session
