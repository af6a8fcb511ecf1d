// Package tasks orchestrates the listener-facing flows: the OAuth callback and playlist materialization.
//
// # Flows
//
//  1. [Creator.Create] : entry point for "create my playlist"
//     - Uses a stored access token when the session has one
//     - Otherwise starts authorization and redirects to Spotify
//
//  2. [CallbackHandler.Handle] : the OAuth redirect target
//     - Validates the query, guards against duplicate deliveries
//     - Consumes the pending PKCE transaction and exchanges the code
//     - Persists tokens, resolves the artist template and materializes it
//
//  3. [Materializer.Run] : profile -> create playlist -> add tracks -> redirect
//     - The profile call goes through the token lifecycle, so an expired token is refreshed once
//     - A failed track insert is logged and recorded, never fatal
//
// # Outcomes
//
// Every flow returns an [Outcome] whose [Kind] the HTTP layer switches on; re-authorization is a
// variant, not an error message.
package tasks
