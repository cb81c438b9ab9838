package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/auth"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/desertthunder/lenavs/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ProjectStore is the persistence the project commands need. Satisfied by *repositories.ProjectRepository.
type ProjectStore interface {
	Create(p *models.Project) error
	Get(id string) (*models.Project, error)
	GetBySequence(seq int) (*models.Project, error)
	Update(p *models.Project) error
	Delete(id string) error
	List(criteria map[string]any) ([]*models.Project, error)
}

type autoRefresher interface {
	StartAutoRefresh(ctx context.Context)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	logSink     *shared.LogSink
	output      io.Writer
	input       *bufio.Reader
	db          *sql.DB
	projects    ProjectStore
	identity    services.IdentityProvider
	backend     services.Backend
	api         *services.APIService
	account     *auth.Context
	engine      *tasks.ExportEngine
	openBrowser func(string) error

	startOnce sync.Once
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	LogSink     *shared.LogSink
	Output      io.Writer
	Input       io.Reader
	DB          *sql.DB
	Projects    ProjectStore
	Identity    services.IdentityProvider
	Backend     services.Backend
	API         *services.APIService
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration.
//
// The auth context is built here from Identity and Backend; it is bootstrapped lazily by the first command
// that needs it.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		logSink:     opts.LogSink,
		output:      opts.Output,
		input:       bufio.NewReader(opts.Input),
		db:          opts.DB,
		projects:    opts.Projects,
		identity:    opts.Identity,
		backend:     opts.Backend,
		api:         opts.API,
		openBrowser: opts.OpenBrowser,
	}

	if opts.Identity != nil && opts.Backend != nil {
		r.account = auth.New(opts.Identity, opts.Backend,
			auth.WithLogger(opts.Logger),
			auth.WithBootstrapTimeout(opts.Config.Identity.BootstrapTimeout.Duration),
		)
		r.engine = tasks.NewExportEngine(r.account, opts.Backend, shared.WithLogger(opts.Logger, "component", "export"))
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, creditsCommand, projectCommand, mediaCommand,
		exportCommand, upgradeCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close tears down the auth context and the database.
func (r *Runner) Close() {
	if r.account != nil {
		r.account.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
}

// redirectLogs sends every component's log output to path, used by the TUI to keep logs off the terminal.
// The returned function restores the previous destination.
func (r *Runner) redirectLogs(path string) (func(), error) {
	f, err := shared.OpenLogFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if r.logSink == nil {
		prev := r.logger
		r.logger = shared.NewLogger(f)
		return func() { r.logger = prev; f.Close() }, nil
	}

	r.logSink.Redirect(f)
	return func() { r.logSink.Redirect(os.Stderr); f.Close() }, nil
}

// start bootstraps the auth context once and waits for loading to clear.
func (r *Runner) start(ctx context.Context) (*auth.Context, error) {
	if r.account == nil {
		return nil, fmt.Errorf("%w: identity or backend not configured", shared.ErrServiceUnavailable)
	}
	r.startOnce.Do(func() {
		if ar, ok := r.identity.(autoRefresher); ok {
			ar.StartAutoRefresh(ctx)
		}
		r.account.Start(ctx)
	})
	return r.account, nil
}

// requireSession bootstraps and fails with [shared.ErrNotAuthenticated] when nobody is signed in.
func (r *Runner) requireSession(ctx context.Context) (*auth.Context, *models.Session, error) {
	account, err := r.start(ctx)
	if err != nil {
		return nil, nil, err
	}
	session := account.Session()
	if session == nil {
		return nil, nil, fmt.Errorf("%w: run 'lenavs auth signin' first", shared.ErrNotAuthenticated)
	}
	return account, session, nil
}

// project resolves a sequence number or id to a project owned by userID.
func (r *Runner) project(ref, userID string) (*models.Project, error) {
	if r.projects == nil {
		return nil, fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: project id or number", shared.ErrMissingArgument)
	}

	var p *models.Project
	var err error
	if seq, convErr := strconv.Atoi(ref); convErr == nil {
		p, err = r.projects.GetBySequence(seq)
	} else {
		p, err = r.projects.Get(ref)
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: %s", shared.ErrProjectNotFound, ref)
	}
	return p, nil
}

// prompt reads one line from input after printing label.
func (r *Runner) prompt(label string) (string, error) {
	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimSpace(line), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
