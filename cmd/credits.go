package main

import (
	"context"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/urfave/cli/v3"
)

// CreditsShow prints the entitlement loaded during bootstrap.
func (r *Runner) CreditsShow(ctx context.Context, cmd *cli.Command) error {
	account, _, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	return r.writeEntitlement(account.Entitlement(), cmd.Bool("json"))
}

// CreditsRefresh re-reads the entitlement from the backend.
func (r *Runner) CreditsRefresh(ctx context.Context, cmd *cli.Command) error {
	account, _, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	return r.writeEntitlement(account.RefreshEntitlement(ctx), cmd.Bool("json"))
}

func (r *Runner) writeEntitlement(e models.Entitlement, asJSON bool) error {
	if asJSON {
		return r.writeJSON(e, false)
	}

	r.writePlain("Plan:    %s\n", e.Plan)
	if e.Unlimited() {
		return r.writePlain("Credits: unlimited\n")
	}
	r.writePlain("Credits: %d\n", e.Credits)
	if !e.CanConsume() {
		r.writePlain("\nOut of credits. Run 'lenavs upgrade' to go Pro.\n")
	}
	return nil
}
