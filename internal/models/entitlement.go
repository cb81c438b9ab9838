package models

import "fmt"

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan validates a plan name received from the backend.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanFree, PlanPro:
		return Plan(s), nil
	default:
		return "", fmt.Errorf("unknown plan %q", s)
	}
}

// Entitlement is the user's plan and remaining credit balance.
//
// Credits only gate free users; pro is unlimited but the balance is still tracked for display.
type Entitlement struct {
	Plan    Plan `json:"plan"`
	Credits int  `json:"credits_remaining"`
}

// DefaultEntitlement is what anonymous users and failed fetches resolve to.
func DefaultEntitlement() Entitlement {
	return Entitlement{Plan: PlanFree, Credits: 0}
}

// Unlimited reports whether credit checks apply.
func (e Entitlement) Unlimited() bool {
	return e.Plan == PlanPro
}

// CanConsume reports whether a credit-consuming operation should be attempted.
// This is a UX pre-flight only; the backend authorizes.
func (e Entitlement) CanConsume() bool {
	return e.Unlimited() || e.Credits > 0
}

func (e Entitlement) String() string {
	if e.Unlimited() {
		return "pro"
	}
	return fmt.Sprintf("%s (%d credits)", e.Plan, e.Credits)
}
