// Package session manages the client half of an authenticated session against
// a remote identity service: establishing it, persisting the access token,
// refreshing it, and tearing it down.
//
// Lifecycle:
//   - A Manager is constructed once per process, seeded with whatever token the
//     TokenStore still holds, and Restore runs at startup to silently
//     re-establish the session ("who am I" with the stored token). Absence of a
//     session is a normal outcome, never surfaced as an error.
//   - UI or command surfaces call Login, VerifyLoginOTP, SetPassword, Logout,
//     and friends; they read the session reactively through Snapshot and
//     OnChange listeners.
//   - Every other outbound request in the application reads the current token
//     through GetAccessToken, a synchronous accessor backed by an atomic cell,
//     or mounts BearerTransport, which attaches it automatically and retries
//     once after a refresh when a request comes back 401.
//
// Token storage:
//   - TokenStore is a small durable key/value contract. Storage failures
//     never propagate: a failed read means "no token", a failed write is a
//     no-op. BunTokenStore persists to SQLite via Bun; MemoryTokenStore keeps
//     the token in-process for tests and ephemeral runs.
//
// Error classification:
//   - Every operation funnels failures through Classify, which maps transport
//     and HTTP failures into a small set of user-presentable messages and
//     go-errors categories. Operations both store the message on the session
//     (for passive display) and return the failure to the caller.
package session
