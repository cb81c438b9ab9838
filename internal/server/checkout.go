package server

import (
	"fmt"
	"html"
	"net/http"
	"sync"
)

// CheckoutStatus is how the payment page sent the user back.
type CheckoutStatus string

const (
	CheckoutSuccess   CheckoutStatus = "success"
	CheckoutCancelled CheckoutStatus = "cancel"
)

// CheckoutResult contains the outcome of a hosted checkout.
type CheckoutResult struct {
	Status    CheckoutStatus
	SessionID string // Provider session id when the return URL carries one
	err       error
}

func (c *CheckoutResult) Error() error {
	return c.err
}

// CheckoutHandler receives the browser return from a hosted checkout page.
//
// Only the first return is accepted; the plan change itself is read back from the backend afterwards.
type CheckoutHandler struct {
	state      string
	resultChan chan CheckoutResult
	once       sync.Once
	returned   bool
	mu         sync.Mutex
}

// NewCheckoutHandler creates a handler. When state is non-empty the return must carry it as ?state=.
func NewCheckoutHandler(state string) *CheckoutHandler {
	return &CheckoutHandler{
		state:      state,
		resultChan: make(chan CheckoutResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CheckoutHandler) Routes() []string {
	return []string{"/checkout/success", "/checkout/cancel"}
}

// SuccessPath is the success return path, including the state parameter.
func (h *CheckoutHandler) SuccessPath() string { return h.path("/checkout/success") }

// CancelPath is the cancel return path, including the state parameter.
func (h *CheckoutHandler) CancelPath() string { return h.path("/checkout/cancel") }

func (h *CheckoutHandler) path(route string) string {
	if h.state == "" {
		return route
	}
	return route + "?state=" + h.state
}

// ServeHTTP handles the checkout return.
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.returned {
		h.mu.Unlock()
		http.Error(w, "Checkout already processed", http.StatusBadRequest)
		return
	}
	h.returned = true
	h.mu.Unlock()

	query := r.URL.Query()
	if h.state != "" && query.Get("state") != h.state {
		h.Send(CheckoutResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	status := CheckoutCancelled
	title, body := "Checkout cancelled", "No charge was made. You can close this window."
	if r.URL.Path == "/checkout/success" {
		status = CheckoutSuccess
		title, body = "Payment received", "Your plan is being updated. You can close this window and return to the terminal."
	}

	h.Send(CheckoutResult{Status: status, SessionID: query.Get("session_id")})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, returnPage, html.EscapeString(title), html.EscapeString(title), html.EscapeString(body))
}

// Send delivers the result through the channel (only once).
func (h *CheckoutHandler) Send(result CheckoutResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *CheckoutHandler) Result() <-chan CheckoutResult {
	return h.resultChan
}

const returnPage = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0f0f14; }
        .container { text-align: center; background: #1b1b24; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.3); }
        h1 { color: #a78bfa; margin: 0 0 1rem 0; }
        p { color: #bbb; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`
