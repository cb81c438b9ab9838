// Package services implements the network clients of the editor.
//
// # Identity
//
// [IdentityService] speaks the GoTrue (Supabase Auth) REST API: sign up, password sign in, refresh token
// grant and logout. Every request carries the project's anon key in the apikey header. The service owns the
// current session, persists it through a [SessionStorage] and announces each change to subscribers registered
// with OnAuthStateChange, in the order the changes were applied.
//
// [IdentityService.StartAutoRefresh] renews the session before it expires and emits TOKEN_REFRESHED, or
// SIGNED_OUT when the provider rejects the refresh token.
//
// # Backend
//
// [APIService] is the raw client: it returns status, headers and body without interpreting them. It can be
// throttled with a [rate.Limiter] and bound to an [oauth2.TokenSource] that supplies the bearer token.
//
// [BackendService] layers the LenaVS routes on top:
//   - GET  /user/me                  plan and credits_remaining
//   - POST /user/consume-credit      403 when the balance is exhausted
//   - POST /video/generate           403 when the balance is exhausted
//   - POST /video/upload             multipart, one of musicaOriginal, musicaInstrumental, video, imagem
//   - POST /lyrics/upload            multipart field letra
//   - POST /lyrics/manual            {"text": ...}
//   - POST /payment/create-session   {"currency": "BRL"|"USD"} returning {"url": ...}
//
// # Error Handling
//
// Non-2xx replies become [*APIError] (wrapping [shared.ErrAPIRequest]) and are further classified:
//   - [shared.ErrSessionInvalid] : 401 from any route
//   - [shared.ErrInsufficientCredits] : 403 from consume-credit or generate
//   - [shared.ErrEntitlementFetch] : any failure of GetMe
//   - [shared.ErrIdentity] : rejection from the identity provider ([*IdentityError])
package services
