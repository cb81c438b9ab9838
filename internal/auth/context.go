package auth

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"golang.org/x/oauth2"
)

const defaultBootstrapTimeout = 10 * time.Second

// State is the lifecycle phase of a [Context].
type State int

const (
	Bootstrapping State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of a [Context].
type Snapshot struct {
	State           State
	Loading         bool
	IsAuthenticated bool
	User            models.Identity
	Plan            models.Plan
	Credits         int
}

// Entitlement returns the plan and credits of the snapshot.
func (s Snapshot) Entitlement() models.Entitlement {
	return models.Entitlement{Plan: s.Plan, Credits: s.Credits}
}

// Option configures a [Context].
type Option func(*Context)

// WithLogger sets the parent logger; components log through tagged children of it.
func WithLogger(l *log.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithBootstrapTimeout bounds how long Start waits for the persisted session.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.bootstrapTimeout = d
		}
	}
}

// Context is the application-wide auth state: the session, the entitlement and the loading gate.
//
// Consumers read it through Snapshot or Subscribe and act through its methods. It also implements
// [oauth2.TokenSource] so HTTP clients send the live access token.
type Context struct {
	store            *SessionStore
	cache            *EntitlementCache
	logger           *log.Logger
	bootstrapTimeout time.Duration

	startOnce sync.Once
	readyOnce sync.Once
	ready     chan struct{}
	loading   atomic.Bool

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
	done    chan struct{}
}

var _ oauth2.TokenSource = (*Context)(nil)

// New wires a session store and an entitlement cache into a Context. Call Start to bootstrap.
func New(provider services.IdentityProvider, source services.EntitlementSource, opts ...Option) *Context {
	c := &Context{
		bootstrapTimeout: defaultBootstrapTimeout,
		ready:            make(chan struct{}),
		subs:             map[int]chan Snapshot{},
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	c.loading.Store(true)
	c.bg, c.cancel = context.WithCancel(context.Background())

	c.store = NewSessionStore(provider, shared.WithLogger(c.logger, "component", "session"))
	c.cache = NewEntitlementCache(source, func() bool { return c.store.Session() != nil },
		shared.WithLogger(c.logger, "component", "entitlement"))

	c.store.Listen(c.onIdentity)
	c.cache.OnChange(c.publish)
	return c
}

// Start bootstraps the session and, when one is found, the first entitlement, exactly once. The loading
// gate is cleared afterwards whether or not either step succeeded. Later calls return immediately.
func (c *Context) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		defer c.markReady()

		bctx, cancel := context.WithTimeout(ctx, c.bootstrapTimeout)
		defer cancel()

		session := c.store.Bootstrap(bctx)
		if err := c.store.Err(); err != nil {
			c.logger.Warn("continuing without a session", "error", err)
			return
		}
		if session == nil {
			c.logger.Debug("bootstrap settled", "signed_in", false)
			return
		}

		entitlement := c.cache.Refresh(bctx)
		c.logger.Debug("bootstrap settled", "signed_in", true, "entitlement", entitlement)
	})
}

func (c *Context) markReady() {
	c.readyOnce.Do(func() {
		c.loading.Store(false)
		close(c.ready)
		c.publish()
	})
}

// Ready is closed once loading becomes false.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

// onIdentity keeps the entitlement in step with the session. The bootstrap result is refreshed by Start.
func (c *Context) onIdentity(event models.AuthEvent, session *models.Session) {
	switch {
	case session == nil:
		c.cache.Reset()
	case event != models.EventInitialSession:
		c.refreshAsync()
	}
	c.publish()
}

func (c *Context) refreshAsync() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.cache.Refresh(c.bg)
	}()
}

// Snapshot returns the current read model.
//
// The session and the entitlement are read separately. A snapshot without a session always reports the
// default entitlement, so a sign-out never shows the previous account's plan. Subscribers are only sent
// snapshots taken after an identity change has been fully applied.
func (c *Context) Snapshot() Snapshot {
	session := c.store.Session()
	entitlement := c.cache.Get()
	loading := c.loading.Load()
	if session == nil {
		entitlement = models.DefaultEntitlement()
	}

	snap := Snapshot{
		Loading: loading,
		Plan:    entitlement.Plan,
		Credits: entitlement.Credits,
	}
	if session != nil {
		snap.IsAuthenticated = true
		snap.User = session.User
	}

	switch {
	case loading:
		snap.State = Bootstrapping
	case session != nil:
		snap.State = Authenticated
	default:
		snap.State = Anonymous
	}
	return snap
}

// State reports Bootstrapping until Start settles, then Authenticated or Anonymous.
func (c *Context) State() State { return c.Snapshot().State }

func (c *Context) Loading() bool { return c.loading.Load() }

func (c *Context) IsAuthenticated() bool { return c.store.Session() != nil }

func (c *Context) Plan() models.Plan { return c.cache.Get().Plan }

func (c *Context) Credits() int { return c.cache.Get().Credits }

func (c *Context) Entitlement() models.Entitlement { return c.cache.Get() }

// Session returns a copy of the live session, nil when anonymous.
func (c *Context) Session() *models.Session {
	return c.store.Session()
}

// Token implements [oauth2.TokenSource].
func (c *Context) Token() (*oauth2.Token, error) {
	session := c.store.Session()
	if session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return session.Token(), nil
}

// SignUp registers an account; see [SessionStore.SignUp].
func (c *Context) SignUp(ctx context.Context, email, password, name string) error {
	return c.store.SignUp(ctx, email, password, name)
}

// SignIn authenticates; see [SessionStore.SignIn].
func (c *Context) SignIn(ctx context.Context, email, password string) error {
	return c.store.SignIn(ctx, email, password)
}

// SignOut ends the session. Session and entitlement are cleared locally even if the provider fails.
func (c *Context) SignOut(ctx context.Context) error {
	err := c.store.SignOut(ctx)
	c.cache.Reset()
	return err
}

// RefreshEntitlement re-reads plan and credits from the backend.
func (c *Context) RefreshEntitlement(ctx context.Context) models.Entitlement {
	return c.cache.Refresh(ctx)
}

// ConsumeCreditOptimistic takes one credit locally ahead of the server; see [EntitlementCache.ConsumeCreditOptimistic].
func (c *Context) ConsumeCreditOptimistic() bool {
	return c.cache.ConsumeCreditOptimistic()
}

// Invalidate handles a backend rejection of the session by signing out.
func (c *Context) Invalidate(ctx context.Context) {
	if c.store.Session() == nil {
		return
	}
	c.logger.Warn("backend rejected the session, signing out")
	if err := c.SignOut(ctx); err != nil {
		c.logger.Debug("sign out after invalidation", "error", err)
	}
}

// Subscribe delivers the current snapshot and then every change until ctx is done or the Context is closed.
//
// Slow readers only see the latest snapshot.
func (c *Context) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.Snapshot()
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}()

	return ch
}

func (c *Context) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	snap := c.Snapshot()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close stops delivery, detaches from the identity provider and waits for background refreshes.
// Nothing is written after Close returns.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.store.Close()
	c.cache.Close()
	c.cancel()
	c.wg.Wait()
}
