// Package gateway is the REST/JSON client for the storefront backend.
//
// Every /api endpoint the client uses is one method on Client. Each method is
// a single HTTP round trip and fails with one of three typed errors:
//
//   - *TransportError: the request never produced a response
//   - *APIError: the server answered with a non-2xx status
//   - *DecodeError: a 2xx body could not be decoded
//
// Message(err, fallback) turns any of them into the human-readable text the
// state containers display. An APIError carries the body's {message} when it
// is a non-blank string, else the operation's fixed fallback text.
//
// The session is cookie-based. The client keeps a cookie jar scoped by the
// public suffix list so cookies can be exported after a run and imported by
// the next process.
package gateway
