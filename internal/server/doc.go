// Package server provides HTTP routing, middleware, and the listener-facing pages.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// "METHOD /path" patterns on an [http.ServeMux]. [Middleware] must be added before routes are registered;
// the first middleware added is the outermost.
//
// # Routes
//
//	GET  /{artist}           landing page, or a redirect to the fallback URL for unknown artists
//	POST /{artist}/playlist  create the playlist, authorizing first when the session holds no token
//	GET  /callback           complete authorization and create the playlist
//	GET  /healthz            liveness
//
// Every other path redirects to the fallback URL.
//
// # Sessions
//
// [SessionMiddleware] keys each browser by the mixlink_session cookie. Stored credentials and the pending
// authorization transaction both hang off that id, see [SessionID].
//
// # Outcomes
//
// Handlers never decide flow semantics. They hand the request to the tasks package and translate the
// resulting outcome: redirects become 302s, failures render a generic message page, and a repeated
// callback either replays the first redirect or shows a self-refreshing "in progress" page.
package server
