// Package services talks to the earnings API: logging in, keeping a session's tokens fresh,
// and the admin earnings calls.
//
// # Environments
//
// An [Environment] (Garage or Studio) picks the base URL. It is chosen at login and fixed for
// the lifetime of the [Session] created from that login.
//
// # Transport
//
// [APIClient] sends JSON over HTTPS with a non-empty User-Agent on every request. Bearer
// credentials are applied with [oauth2.Token.SetAuthHeader]. Transport failures surface as
// [*NetworkError]; status handling belongs to the callers.
//
// # Authentication
//
// [AuthGateway.Login] posts credentials to /v1/auth/login and only admits tokens whose admin
// claim is exactly true. Rejected non-admin logins are logged; passwords never are.
//
// # Sessions
//
// [Session.GetValidToken] is the single synchronization point. It returns the stored access
// token while it has more than the refresh buffer (60 seconds by default) left, and otherwise
// refreshes with a GET to /v1/auth/refresh using the refresh token as the bearer credential.
// Concurrent refreshes for the same refresh token are coalesced with singleflight. A rejected
// refresh kills the session without touching the stored pair.
//
// [Session.TokenSource] exposes the same logic as an [oauth2.TokenSource].
//
// # Earnings
//
// [EarningsGateway] lists, creates and bulk deletes earnings. A 401 from any of these is
// reclassified as session expiry rather than an API error.
//
// # Lifecycle
//
// [Notifier] is the boundary to the shell: it holds the current session, and broadcasts
// login, logout and session expiry to subscribed observers.
//
// # Error Handling
//
//   - [*NetworkError] : transport failure, wraps [shared.ErrNetwork]
//   - [*HTTPError] : non-2xx response, wraps [shared.ErrAPIRequest]
//   - [*ParseError] : 2xx body with the wrong shape, wraps [shared.ErrParse]
//   - [*SessionExpiredError] : session can no longer authorize, wraps [shared.ErrSessionExpired]
//   - [shared.ErrNotAdmin] : login rejected by the admin gate
//
// Use [IsSessionExpired] to decide between showing an error and forcing a new login.
package services
