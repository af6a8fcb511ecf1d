// Package repositories implements SQLite persistence for listener credentials and playlist history.
//
// Key Implementations:
//   - [CredentialRepository] : token records keyed by browser session, the persistent half of the credential store
//   - [MaterializationRepository] : history of playlists created for listeners
//
// All timestamps are written in UTC so that range comparisons in SQL order correctly.
package repositories
