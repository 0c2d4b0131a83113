// Package auth is the session core of the Internum corporate portal. It
// issues and validates short-lived JWT access tokens, manages long-lived
// refresh-token records bound to browser cookies, and exposes the
// permission checks the portal's route handlers rely on.
//
// Token model:
//   - Access tokens are stateless HS256 JWTs with a minute-scale TTL. They
//     are never stored server-side; validity is signature plus expiry.
//   - Refresh tokens are opaque identifiers persisted via Bun. Every login
//     creates a new record; silent refresh rotates the record atomically,
//     and use of an already-rotated token is treated as a theft signal that
//     revokes the user's whole session family.
//
// User lifecycle:
//   - Users carry a UserStatus (active or disabled). The lifecycle machine
//     centralizes the transition, timestamps, and activity events so the
//     admin surface and the auth core agree on the same invariants.
//
// Background maintenance:
//   - Scheduler owns the periodic purge of expired refresh-token and
//     password-reset rows. It is an injected, start/stop task rather than an
//     ambient global, and a tick that fires while the previous run is still
//     in flight is skipped.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing logins,
//     logouts, silent refreshes, reuse detection, and status changes. Sinks
//     run best-effort (errors are logged) so forwarding to a database or
//     queue never blocks authentication.
package auth
