// Package models defines the records that flow between the authorization core and its stores.
//
//   - [TokenRecord] : access + refresh token for one browser session (persistent)
//   - [Transaction] : PKCE verifier + artist for one authorization round-trip (transient)
//   - [Materialization] : a playlist created for a listener, with the track insert result
//
// The store interfaces ([CredentialStore], [TransactionStore], [MaterializationLog]) are implemented by
// the repositories and cache packages and consumed by the auth and tasks packages.
package models
