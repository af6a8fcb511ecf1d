// Package auth implements the listener authorization lifecycle.
//
// # Initiator
//
// [Initiator] starts an Authorization Code + PKCE round-trip: it generates a verifier/challenge pair,
// records the pending transaction for the browser session and returns the Spotify authorize URL.
// The caller redirects; nothing else happens in that request.
//
// # Processing Guard
//
// [Guards] hands out one [Guard] per callback delivery. A guard moves Idle -> InProgress with a single
// compare-and-swap before any I/O and then to Completed or Failed. It never resets, so a replayed
// delivery cannot repeat the token exchange.
//
// # Token Lifecycle
//
// [Call] wraps an authenticated request. A 401 triggers at most one refresh and one retry; anything
// else that goes wrong on that path clears the stored tokens, restarts authorization once and returns
// a [*ReauthError] carrying the authorize URL.
package auth
