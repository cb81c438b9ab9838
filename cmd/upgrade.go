package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lenavs/internal/server"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/urfave/cli/v3"
)

// Upgrade opens a hosted checkout for the Pro plan and refreshes the entitlement once the browser returns.
//
// The checkout return only says the user came back; the plan is whatever the backend reports afterwards.
func (r *Runner) Upgrade(ctx context.Context, cmd *cli.Command) error {
	account, _, err := r.requireSession(ctx)
	if err != nil {
		return err
	}

	if account.Entitlement().Unlimited() {
		return r.writePlain("✓ Already on the Pro plan\n")
	}

	currency := cmd.String("currency")
	if currency == "" {
		currency = r.config.Checkout.Currency
	}

	wait := cmd.Duration("wait")
	if wait <= 0 {
		checkoutURL, err := r.backend.CreateCheckoutSession(ctx, services.CheckoutRequest{Currency: currency})
		if err != nil {
			return r.backendErr(ctx, err)
		}
		r.writePlain("Open this link to complete your upgrade:\n%s\n", checkoutURL)
		if err := r.openBrowser(checkoutURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
		return r.writePlain("Run 'lenavs credits refresh' once payment is done.\n")
	}

	handler := server.NewCheckoutHandler(shared.GenerateID())
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	callback, err := server.Listen(r.config.Server.Addr(), router)
	if err != nil {
		return fmt.Errorf("failed to start checkout callback server: %w", err)
	}
	defer callback.Shutdown()

	base := "http://" + callback.Addr()
	checkoutURL, err := r.backend.CreateCheckoutSession(ctx, services.CheckoutRequest{
		Currency:   currency,
		SuccessURL: base + handler.SuccessPath(),
		CancelURL:  base + handler.CancelPath(),
	})
	if err != nil {
		return r.backendErr(ctx, err)
	}

	r.logger.Debug("checkout callback listening", "addr", callback.Addr())
	r.writePlain("Opening checkout in your browser...\n")
	r.writePlain("If it doesn't open, visit:\n%s\n\n", checkoutURL)
	if err := r.openBrowser(checkoutURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}
	r.writePlain("Waiting up to %s for checkout to finish...\n", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		if result.Status == server.CheckoutCancelled {
			return r.writePlain("Checkout cancelled. Your plan is unchanged (%s).\n", account.Entitlement())
		}
		r.logger.Info("checkout returned", "session", result.SessionID)
	case err := <-callback.Errors():
		return fmt.Errorf("checkout callback server: %w", err)
	case <-timer.C:
		r.logger.Warn("checkout wait timed out", "after", wait)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	}

	entitlement := account.RefreshEntitlement(ctx)
	if entitlement.Unlimited() {
		return r.writePlain("✓ Welcome to Pro. Exports are now unlimited.\n")
	}
	r.writePlain("Plan: %s\n", entitlement)
	return r.writePlain("Payment may take a moment to confirm. Run 'lenavs credits refresh' to check again.\n")
}
