// Package services implements the Spotify calls mixlink makes on a listener's behalf.
//
// # Spotify Implementation
//
// [SpotifyService] is a public OAuth2 client (PKCE, no client secret) built on [oauth2.Config].
// It is stateless with respect to listeners: every Web API method takes the access token to use,
// so a single instance serves all sessions concurrently.
//
// Token endpoint failures surface as [*oauth2.RetrieveError]; [DescribeTokenError] extracts the
// provider's error code and description for logging.
//
// Web API failures surface as [*APIError] carrying the status and raw body; [IsUnauthorized] detects
// an expired or revoked access token (HTTP 401).
//
// # Catalog Verification
//
// [TrackVerifier] is an operator tool that uses the zmb3/spotify SDK over a client-credentials
// token to confirm every catalog track reference resolves.
package services
