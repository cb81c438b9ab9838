package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/desertthunder/lenavs/internal/repositories"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// deferredToken lets the API client be built before the auth context that supplies its tokens.
type deferredToken struct {
	mu  sync.RWMutex
	src oauth2.TokenSource
}

func (d *deferredToken) set(src oauth2.TokenSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = src
}

func (d *deferredToken) Token() (*oauth2.Token, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.src == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return d.src.Token()
}

func main() {
	logSink := shared.NewLogSink(os.Stderr)
	logger := shared.NewLogger(logSink)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	opts := RunnerOpts{Config: config, Logger: logger, LogSink: logSink}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Warn("database unavailable, sessions will not persist", "error", err)
	} else {
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		if _, err := shared.RunMigrations(db); err != nil {
			logger.Warn("failed to run migrations", "error", err)
		}
		opts.DB = db
		opts.Projects = repositories.NewProjectRepository(db)
	}

	client := &http.Client{Timeout: config.API.Timeout.Duration}

	var storage services.SessionStorage
	if db != nil {
		storage = repositories.NewSessionRepository(db)
	}
	opts.Identity = services.NewIdentityService(services.IdentityConfig{
		URL:           config.Identity.URL,
		AnonKey:       config.Identity.AnonKey,
		StorageKey:    config.Identity.StorageKey,
		RefreshMargin: config.Identity.RefreshMargin.Duration,
	}, client, storage, shared.WithLogger(logger, "component", "identity"))

	tokens := &deferredToken{}
	apiOpts := []services.APIOption{services.WithTokenSource(tokens)}
	if rps := config.API.RequestsPerSecond; rps > 0 {
		apiOpts = append(apiOpts, services.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	opts.API = services.NewAPIService(config.API.BaseURL, client, apiOpts...)
	opts.Backend = services.NewBackendService(opts.API)

	runner := NewRunner(opts)
	tokens.set(runner.account)

	app := &cli.Command{
		Name:     "lenavs",
		Usage:    "Lyric video studio: account, credits, projects and exports",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(context.Background(), os.Args)
	runner.Close()

	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInsufficientCredits):
			logger.Error("out of credits, run 'lenavs upgrade' to go Pro")
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
