// Package server provides HTTP routing, middleware, and the import API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Import API
//
// [APIHandler] exposes the import pipeline over HTTP:
//
//   - POST /api/import runs an import and returns the result payload;
//     "async": true in the body runs it in the background and returns 202
//   - GET /api/progress reports the live state of the current or last run
//   - GET /api/works lists imported works with their theme songs
//   - GET /health reports service liveness
//
// Only one run is active at a time; a second request while a run is in
// progress returns 409.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow used
// by the CLI login command. When the user runs the auth command, a temporary
// HTTP server starts on localhost, handles the Annict callback, and shuts
// down after receiving the token.
//
// The handler validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
package server
