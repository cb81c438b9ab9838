package main

import (
	"context"
	"errors"

	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/urfave/cli/v3"
)

// Export renders a project into a video, spending one credit on the free plan.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	p, err := r.project(cmd.StringArg("project"), session.User.ID)
	if err != nil {
		return err
	}

	progress, stop := r.followProgress()
	result, err := r.engine.Export(ctx, progress, p)
	stop()

	if err != nil {
		if result != nil && result.UpgradeRequired {
			r.writePlainln("You're out of credits (%s).", result.Entitlement)
			r.writePlain("Run 'lenavs upgrade' to go Pro for unlimited exports.\n")
		}
		if errors.Is(err, shared.ErrSessionInvalid) {
			r.writePlain("Your session expired. Run 'lenavs auth signin' and try again.\n")
		}
		return err
	}

	r.writePlainln("✓ Video ready: %s", result.VideoURL)
	r.writePlain("Plan: %s\n", result.Entitlement)

	if cmd.Bool("open") {
		if err := r.openBrowser(result.VideoURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}
	return nil
}
