// package services holds the HTTP clients for the identity provider and the LenaVS backend
package services

import (
	"context"
	"io"

	"github.com/desertthunder/lenavs/internal/models"
)

// IdentityProvider is the identity collaborator: it owns the live session and announces changes to it.
type IdentityProvider interface {
	// GetSession returns the stored session, or nil when signed out.
	GetSession(ctx context.Context) (*models.Session, error)

	// OnAuthStateChange registers fn for every session change and returns its unsubscribe function.
	// Changes are delivered in the order they were applied.
	OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func()

	// SignUp registers an account. The session is nil when email confirmation is pending.
	SignUp(ctx context.Context, email, password, name string) (*models.Session, error)

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// SignOut ends the session.
	SignOut(ctx context.Context) error
}

// EntitlementSource reads the authoritative plan and credit balance.
type EntitlementSource interface {
	GetMe(ctx context.Context) (models.Entitlement, error)
}

// Backend is the set of authenticated backend operations used by the editor workflows.
type Backend interface {
	EntitlementSource
	ConsumeCredit(ctx context.Context) error
	GenerateVideo(ctx context.Context, req GenerateRequest) (string, error)
	UploadMedia(ctx context.Context, kind models.MediaKind, filename string, content io.Reader) (string, error)
	UploadLyrics(ctx context.Context, filename string, content io.Reader) (*LyricsResult, error)
	ProcessLyrics(ctx context.Context, text string) (*LyricsResult, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

var (
	_ IdentityProvider = (*IdentityService)(nil)
	_ Backend          = (*BackendService)(nil)
)
