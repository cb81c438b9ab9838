// Typed LenaVS backend calls
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
)

// BackendService wraps [APIService] with the backend's routes and status semantics.
//
// A 401 from any call means the backend no longer accepts the session and is reported as
// [shared.ErrSessionInvalid]; a 403 from a credit-consuming call is [shared.ErrInsufficientCredits].
type BackendService struct {
	api *APIService
}

// NewBackendService creates a typed client over api.
func NewBackendService(api *APIService) *BackendService {
	return &BackendService{api: api}
}

// GenerateRequest is the body of POST /video/generate.
type GenerateRequest struct {
	ProjectName     string          `json:"projectName"`
	AudioType       string          `json:"audioType"`
	AudioPath       string          `json:"audioPath"`
	BackgroundType  string          `json:"backgroundType"`
	BackgroundPath  string          `json:"backgroundPath,omitempty"`
	BackgroundColor string          `json:"backgroundColor"`
	Stanzas         []models.Stanza `json:"stanzas"`
	VideoFormat     string          `json:"videoFormat"`
}

// NewGenerateRequest builds the render request for p.
func NewGenerateRequest(p *models.Project) GenerateRequest {
	bgType, bgPath := p.Media.Background()
	return GenerateRequest{
		ProjectName:     p.Name,
		AudioType:       string(p.AudioType),
		AudioPath:       p.AudioPath(),
		BackgroundType:  bgType,
		BackgroundPath:  bgPath,
		BackgroundColor: p.BackgroundColor,
		Stanzas:         p.Stanzas,
		VideoFormat:     p.VideoFormat,
	}
}

// LyricsResult is the backend's split of raw lyrics into stanza texts.
type LyricsResult struct {
	Stanzas []string `json:"stanzas"`
	Message string   `json:"message"`
}

// classify maps a non-2xx reply to the error taxonomy. creditGated marks routes where 403 means no credits.
func classify(resp *APIResponse, path string, creditGated bool) error {
	err := resp.Err(path)
	if err == nil {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", shared.ErrSessionInvalid, err)
	case http.StatusForbidden:
		if creditGated {
			return fmt.Errorf("%w: %w", shared.ErrInsufficientCredits, err)
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return err
}

// GetMe fetches the caller's entitlement from GET /user/me.
func (b *BackendService) GetMe(ctx context.Context) (models.Entitlement, error) {
	const path = "/user/me"

	resp, err := b.api.Get(ctx, path)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%w: %w", shared.ErrEntitlementFetch, err)
	}
	if err := classify(resp, path, false); err != nil {
		return models.Entitlement{}, fmt.Errorf("%w: %w", shared.ErrEntitlementFetch, err)
	}

	var payload struct {
		Plan    string `json:"plan"`
		Credits *int   `json:"credits_remaining"`
	}
	if err := resp.Decode(&payload); err != nil {
		return models.Entitlement{}, fmt.Errorf("%w: %w", shared.ErrEntitlementFetch, err)
	}

	plan, err := models.ParsePlan(payload.Plan)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%w: %w", shared.ErrEntitlementFetch, err)
	}
	if payload.Credits == nil {
		return models.Entitlement{}, fmt.Errorf("%w: reply has no credits_remaining", shared.ErrEntitlementFetch)
	}
	return models.Entitlement{Plan: plan, Credits: max(*payload.Credits, 0)}, nil
}

// ConsumeCredit debits one credit server-side.
func (b *BackendService) ConsumeCredit(ctx context.Context) error {
	const path = "/user/consume-credit"

	resp, err := b.api.Post(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return classify(resp, path, true)
}

// GenerateVideo renders a project and returns the video URL.
func (b *BackendService) GenerateVideo(ctx context.Context, req GenerateRequest) (string, error) {
	const path = "/video/generate"

	resp, err := b.api.PostJSON(ctx, path, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := classify(resp, path, true); err != nil {
		return "", err
	}

	var payload struct {
		VideoURL string `json:"videoUrl"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}
	return payload.VideoURL, nil
}

// UploadMedia uploads a media file and returns the backend storage path for it.
func (b *BackendService) UploadMedia(ctx context.Context, kind models.MediaKind, filename string, content io.Reader) (string, error) {
	const path = "/video/upload"

	resp, err := b.api.PostMultipart(ctx, path, FilePart{Field: string(kind), Filename: filename, Content: content})
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := classify(resp, path, false); err != nil {
		return "", err
	}

	var payload struct {
		Files map[string]string `json:"files"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}

	stored, ok := payload.Files[string(kind)]
	if !ok || stored == "" {
		return "", fmt.Errorf("%w: upload response has no path for %s", shared.ErrAPIRequest, kind)
	}
	return stored, nil
}

// UploadLyrics sends a lyrics document (.txt, .docx, .pdf) to be split into stanzas.
func (b *BackendService) UploadLyrics(ctx context.Context, filename string, content io.Reader) (*LyricsResult, error) {
	const path = "/lyrics/upload"

	resp, err := b.api.PostMultipart(ctx, path, FilePart{Field: "letra", Filename: filename, Content: content})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return decodeLyrics(resp, path)
}

// ProcessLyrics sends pasted lyrics text to be split into stanzas.
func (b *BackendService) ProcessLyrics(ctx context.Context, text string) (*LyricsResult, error) {
	const path = "/lyrics/manual"

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: lyrics text is empty", shared.ErrInvalidInput)
	}

	resp, err := b.api.PostJSON(ctx, path, map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return decodeLyrics(resp, path)
}

func decodeLyrics(resp *APIResponse, path string) (*LyricsResult, error) {
	if err := classify(resp, path, false); err != nil {
		return nil, err
	}

	var result LyricsResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckoutRequest is the body of POST /payment/create-session.
//
// The return URLs are optional; without them the backend sends the browser to its own pages.
type CheckoutRequest struct {
	Currency   string `json:"currency"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

// CreateCheckoutSession starts a subscription checkout and returns the URL to open.
func (b *BackendService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	const path = "/payment/create-session"

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency != "BRL" && req.Currency != "USD" {
		return "", fmt.Errorf("%w: currency must be BRL or USD, got %q", shared.ErrInvalidArgument, req.Currency)
	}

	resp, err := b.api.PostJSON(ctx, path, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := classify(resp, path, false); err != nil {
		return "", err
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}
	if payload.URL == "" {
		return "", fmt.Errorf("%w: checkout response has no url", shared.ErrAPIRequest)
	}
	return payload.URL, nil
}

// IsSessionInvalid reports whether err means the backend rejected the session.
func IsSessionInvalid(err error) bool {
	return errors.Is(err, shared.ErrSessionInvalid)
}
