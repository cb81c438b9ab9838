// package tasks implements the credit-gated editor workflows: video export and media upload.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
)

// Account is the slice of the composed session context the workflows need.
// Satisfied by *auth.Context.
type Account interface {
	IsAuthenticated() bool
	Entitlement() models.Entitlement
	ConsumeCreditOptimistic() bool
	RefreshEntitlement(ctx context.Context) models.Entitlement
	Invalidate(ctx context.Context)
}

// ExportResult contains the outcome of a single export.
type ExportResult struct {
	VideoURL        string             // Rendered video location (empty on failure)
	CreditConsumed  bool               // Whether a credit was debited server-side
	UpgradeRequired bool               // Set when the backend or pre-flight refused for lack of credits
	Entitlement     models.Entitlement // Entitlement after reconciliation
}

// ExportEngine runs exports against the backend and keeps the account's entitlement in step.
type ExportEngine struct {
	account Account
	backend services.Backend
	logger  *log.Logger
}

// NewExportEngine creates an engine. A nil logger discards output.
func NewExportEngine(account Account, backend services.Backend, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExportEngine{account: account, backend: backend, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Export renders p into a video.
//
// Free users are checked for credits before anything is sent; a free user at zero gets
// [shared.ErrInsufficientCredits] and UpgradeRequired without a request being made. Otherwise one credit is
// taken locally, debited server-side and the render is requested. Whatever happens after the pre-flight,
// the entitlement is re-read from the backend before returning.
func (e *ExportEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, p *models.Project) (*ExportResult, error) {
	result, err := e.export(ctx, progress, p)
	if err != nil {
		e.sendProgress(progress, exportFailedUpdate(err))
	}
	return result, err
}

func (e *ExportEngine) export(ctx context.Context, progress chan<- ProgressUpdate, p *models.Project) (*ExportResult, error) {
	if e.account == nil || e.backend == nil {
		return nil, fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}
	if !e.account.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	if err := checkExportable(p); err != nil {
		return nil, err
	}

	result := &ExportResult{}
	entitlement := e.account.Entitlement()
	e.sendProgress(progress, preflightUpdate(entitlement))

	if !entitlement.CanConsume() {
		result.UpgradeRequired = true
		result.Entitlement = entitlement
		return result, fmt.Errorf("%w: upgrade required", shared.ErrInsufficientCredits)
	}

	defer func() {
		result.Entitlement = e.account.RefreshEntitlement(ctx)
		e.sendProgress(progress, reconcileUpdate(result.Entitlement))
	}()

	if !entitlement.Unlimited() {
		e.account.ConsumeCreditOptimistic()
		e.sendProgress(progress, consumeCreditUpdate(e.account.Entitlement()))

		if err := e.backend.ConsumeCredit(ctx); err != nil {
			return result, e.fail(ctx, result, err)
		}
		result.CreditConsumed = true
	}

	e.sendProgress(progress, generateUpdate(p))
	url, err := e.backend.GenerateVideo(ctx, services.NewGenerateRequest(p))
	if err != nil {
		return result, e.fail(ctx, result, err)
	}

	result.VideoURL = url
	e.logger.Info("video generated", "project", p.Name, "url", url)
	e.sendProgress(progress, exportDoneUpdate(url))
	return result, nil
}

// fail marks the result for the error and signs out when the backend rejected the session.
func (e *ExportEngine) fail(ctx context.Context, result *ExportResult, err error) error {
	switch {
	case errors.Is(err, shared.ErrInsufficientCredits):
		result.UpgradeRequired = true
	case services.IsSessionInvalid(err):
		e.account.Invalidate(ctx)
	}
	e.logger.Warn("export failed", "error", err)
	return err
}

// checkExportable applies the client-side checks that run before any credit is spent.
func checkExportable(p *models.Project) error {
	if p == nil {
		return fmt.Errorf("%w: no project", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name is required", shared.ErrInvalidInput)
	}
	if !p.Media.HasAudio() {
		return fmt.Errorf("%w: upload an audio track first", shared.ErrInvalidInput)
	}
	if p.AudioPath() == "" {
		return fmt.Errorf("%w: no %s audio uploaded", shared.ErrInvalidInput, p.AudioType)
	}
	return p.Validate()
}
