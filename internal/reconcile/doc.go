// Package reconcile implements the Reconciliation Controller: the state
// machine that keeps the guest cart, the server cart and the session
// lifecycle consistent.
//
// States:
//
//	uninitialized ──Boot──▶ hydratedGuest ──authenticated──▶ syncingToServer
//	      ▲                       ▲                                 │
//	      │                       └────────signed out◀──────── serverAuthoritative ◀┘
//
// On every authentication the controller opens a new epoch and claims the
// epoch's single initial operation through an engine.OnceGuard: a merge of
// the guest items when the user signed in with a non-empty guest cart, a
// plain load otherwise. Cart commits are tagged with an origin, so server
// results, hydration and resets are never mistaken for user edits and
// written back.
package reconcile
