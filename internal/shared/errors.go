package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Identity errors, shown to the user as form messages
	ErrIdentity         = fmt.Errorf("identity provider error")
	ErrWeakPassword     = fmt.Errorf("password must be at least 6 characters")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionInvalid   = fmt.Errorf("session invalid or expired")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Degraded silently to defaults, never user-facing
	ErrBootstrap        = fmt.Errorf("session bootstrap failed")
	ErrEntitlementFetch = fmt.Errorf("entitlement fetch failed")

	// Entitlement errors
	ErrInsufficientCredits = fmt.Errorf("insufficient credits")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrProjectNotFound    = fmt.Errorf("project not found")
	ErrStanzaNotFound     = fmt.Errorf("stanza not found")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
