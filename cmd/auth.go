package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func (r *Runner) credentials(cmd *cli.Command) (string, string, error) {
	email := cmd.String("email")
	if email == "" {
		var err error
		if email, err = r.prompt("Email"); err != nil {
			return "", "", err
		}
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.prompt("Password"); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

// AuthSignUp registers a new account.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	account, err := r.start(ctx)
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing up", "email", email)
	if err := account.SignUp(ctx, email, password, cmd.String("name")); err != nil {
		return err
	}

	if !account.IsAuthenticated() {
		return r.writePlain("✓ Account created. Check %s for a confirmation link, then run 'lenavs auth signin'\n", email)
	}

	entitlement := account.RefreshEntitlement(ctx)
	r.writePlain("✓ Signed up as %s\n", email)
	return r.writePlain("Plan: %s\n", entitlement)
}

// AuthSignIn signs in with email and password.
func (r *Runner) AuthSignIn(ctx context.Context, cmd *cli.Command) error {
	account, err := r.start(ctx)
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email)
	if err := account.SignIn(ctx, email, password); err != nil {
		return err
	}

	entitlement := account.RefreshEntitlement(ctx)
	r.writePlain("✓ Signed in as %s\n", email)
	return r.writePlain("Plan: %s\n", entitlement)
}

// AuthSignOut ends the session locally and remotely.
func (r *Runner) AuthSignOut(ctx context.Context, cmd *cli.Command) error {
	account, err := r.start(ctx)
	if err != nil {
		return err
	}

	if !account.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	if err := account.SignOut(ctx); err != nil {
		r.logger.Warn("remote sign out failed, local session cleared", "error", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus prints the session and entitlement.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	account, err := r.start(ctx)
	if err != nil {
		return err
	}

	snap := account.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"state":         snap.State.String(),
			"authenticated": snap.IsAuthenticated,
			"user":          snap.User,
			"plan":          snap.Plan,
			"credits":       snap.Credits,
		}, true)
	}

	if !snap.IsAuthenticated {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'lenavs auth signin' or 'lenavs auth signup'\n")
	}

	r.writePlainHeader("Account")
	r.writePlain("User:    %s\n", snap.User.Email)
	if snap.User.Name != "" {
		r.writePlain("Name:    %s\n", snap.User.Name)
	}
	r.writePlain("Plan:    %s\n", snap.Plan)
	if snap.Entitlement().Unlimited() {
		return r.writePlain("Credits: unlimited\n")
	}
	return r.writePlain("Credits: %d\n", snap.Credits)
}
