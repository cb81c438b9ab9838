package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/desertthunder/lenavs/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive account dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.account == nil || r.engine == nil {
		return fmt.Errorf("%w: identity or backend not configured", shared.ErrServiceUnavailable)
	}
	if r.projects == nil {
		return fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	restore, err := r.redirectLogs(cmd.String("log-file"))
	if err != nil {
		return err
	}
	defer restore()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the dashboard renders Bootstrapping until Start settles
	model := ui.NewModel(ctx, r.account, r.engine, r.projects)
	go r.start(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
