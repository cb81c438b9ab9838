// Package server provides the local HTTP plumbing for flows that leave the terminal for a browser.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [RequestLogger] is the only
// middleware shipped.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Checkout Return
//
// [CheckoutHandler] serves /checkout/success and /checkout/cancel for the upgrade flow. The CLI creates a
// checkout session, opens the payment page, and waits on [CheckoutHandler.Result]. Only the first
// return is accepted. The handler never trusts the return as proof of payment: callers re-read the
// entitlement from the backend afterwards.
//
// [Listen] binds the address up front and serves in the background; [Callback.Shutdown] stops it.
package server
