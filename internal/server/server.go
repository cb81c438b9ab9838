// package server contains the local callback server used by browser round trips
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// RequestLogger logs one line per request at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Callback is a short-lived HTTP server for a single browser round trip.
type Callback struct {
	srv  *http.Server
	ln   net.Listener
	errs chan error
}

// Listen binds addr and starts serving handler in the background.
//
// Binding happens before Listen returns, so the browser can be opened immediately.
func Listen(addr string, handler http.Handler) (*Callback, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Callback{
		srv:  &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		errs: make(chan error, 1),
	}
	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.errs <- err
		}
	}()
	return c, nil
}

// Addr is the bound address, useful when listening on port 0.
func (c *Callback) Addr() string {
	return c.ln.Addr().String()
}

// Errors reports a failure of the serve loop.
func (c *Callback) Errors() <-chan error {
	return c.errs
}

// Shutdown stops the server, waiting up to five seconds for in-flight requests.
func (c *Callback) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.srv.Shutdown(ctx)
}
