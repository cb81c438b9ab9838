// Package auth keeps the editor's view of who is signed in and what they are entitled to.
//
// Three pieces compose:
//   - [SessionStore] mirrors the identity provider. It bootstraps the persisted session once and then
//     applies every provider notification in order.
//   - [EntitlementCache] holds the (plan, credits) pair read from the backend. Refreshes never fail to
//     their caller; any failure falls back to free with zero credits.
//   - [Context] is the application-wide object consumers read and act through.
//
// # Lifecycle
//
// A Context starts in Bootstrapping with loading set. Start reads the persisted session within a
// bounded time and then moves to Authenticated or Anonymous exactly once, clearing loading even when
// the read fails. Later sign-ins and sign-outs move between Authenticated and Anonymous; they never
// return to Bootstrapping.
//
// Every change to a non-nil session triggers an entitlement refresh in the background. A nil session
// resets the entitlement to its default and discards refreshes still in flight.
//
// # Ordering
//
// Entitlement refreshes are numbered when they start. A response is applied only when no later refresh
// or reset has been applied, so overlapping refreshes settle on the one started last.
//
// After Close nothing is written: provider notifications are unsubscribed and late responses are dropped.
package auth
