// Raw HTTP client for the LenaVS backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultAPIBaseURL = "http://localhost:10000/api"

// APIService makes raw HTTP requests to the backend and hands back the status, headers and body untouched.
//
// Typed calls with status mapping live in [BackendService].
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithLimiter throttles every request through l.
func WithLimiter(l *rate.Limiter) APIOption {
	return func(a *APIService) { a.limiter = l }
}

// WithTokenSource attaches "Authorization: Bearer" from ts to every request.
//
// The source is consulted per request with no caching, so a sign-out takes effect on the next call.
func WithTokenSource(ts oauth2.TokenSource) APIOption {
	return func(a *APIService) {
		client := *a.httpClient
		client.Transport = &oauth2.Transport{Source: ts, Base: a.httpClient.Transport}
		a.httpClient = &client
	}
}

// NewAPIService creates a new API service instance for the backend.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Err returns an [*APIError] for non-2xx responses and nil otherwise.
func (r *APIResponse) Err(path string) error {
	if r.OK() {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, Path: path, Message: errorMessage(r.Body)}
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Error, payload.Message, payload.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil, "")
}

// Post performs a POST request with the given JSON data and returns the raw response.
// A nil body sends no payload.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	if data == nil {
		return a.Do(ctx, http.MethodPost, path, nil, "")
	}
	return a.Do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// PostJSON marshals v and posts it to path.
func (a *APIService) PostJSON(ctx context.Context, path string, v any) (*APIResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return a.Post(ctx, path, data)
}

// FilePart is a file field of a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// PostMultipart uploads file as a multipart/form-data body to path.
func (a *APIService) PostMultipart(ctx context.Context, path string, file FilePart) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return a.Do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
}

// Do sends a request and reads the whole reply. Non-2xx statuses are not errors at this level.
func (a *APIService) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
