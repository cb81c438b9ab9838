package auth

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
)

// EntitlementCache holds the user's plan and credit balance.
//
// The (plan, credits) pair is always written together. Every refresh takes a sequence number when it
// starts; a response is applied only if no newer refresh or reset has been applied since, so the
// most recently started refresh wins regardless of completion order.
type EntitlementCache struct {
	source     services.EntitlementSource
	hasSession func() bool
	logger     *log.Logger

	mu       sync.Mutex
	current  models.Entitlement
	issued   uint64
	applied  uint64
	closed   bool
	onChange func()
}

// NewEntitlementCache creates a cache in the default state. hasSession gates fetching.
func NewEntitlementCache(source services.EntitlementSource, hasSession func() bool, logger *log.Logger) *EntitlementCache {
	return &EntitlementCache{
		source:     source,
		hasSession: hasSession,
		logger:     logger,
		current:    models.DefaultEntitlement(),
	}
}

// OnChange registers fn to run after every applied write.
func (c *EntitlementCache) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Get returns the current entitlement.
func (c *EntitlementCache) Get() models.Entitlement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *EntitlementCache) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

func (c *EntitlementCache) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Refresh fetches the authoritative entitlement. It never fails: without a session, or when the fetch
// fails for any reason, the cache falls back to the default.
func (c *EntitlementCache) Refresh(ctx context.Context) models.Entitlement {
	if !c.hasSession() {
		c.Reset()
		return c.Get()
	}

	seq := c.next()
	entitlement, err := c.source.GetMe(ctx)
	if err != nil {
		c.logger.Debug("entitlement fetch failed, using defaults", "seq", seq, "error", err)
		entitlement = models.DefaultEntitlement()
	}

	if !c.applyAuthoritative(seq, entitlement) {
		c.logger.Debug("discarded stale entitlement response", "seq", seq)
	}
	return c.Get()
}

// applyAuthoritative writes a fetched entitlement unless a newer write has been applied.
func (c *EntitlementCache) applyAuthoritative(seq uint64, entitlement models.Entitlement) bool {
	c.mu.Lock()
	if c.closed || seq <= c.applied {
		c.mu.Unlock()
		return false
	}
	c.applied = seq
	c.current = entitlement
	c.mu.Unlock()

	c.changed()
	return true
}

// ConsumeCreditOptimistic decrements the free-plan balance ahead of the server. It reports whether a
// credit was taken; pro plans and empty balances are left alone. The next refresh reconciles.
func (c *EntitlementCache) ConsumeCreditOptimistic() bool {
	c.mu.Lock()
	if c.closed || c.current.Plan != models.PlanFree || c.current.Credits <= 0 {
		c.mu.Unlock()
		return false
	}
	c.current.Credits--
	c.mu.Unlock()

	c.changed()
	return true
}

// Reset restores the default entitlement and discards every refresh still in flight.
func (c *EntitlementCache) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.issued++
	c.applied = c.issued
	c.current = models.DefaultEntitlement()
	c.mu.Unlock()

	c.changed()
}

// Close drops every later write.
func (c *EntitlementCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
