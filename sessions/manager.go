package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultValidationCacheTTL = 60 * time.Second
	defaultStartupTimeout     = 10 * time.Second
)

// Manager owns the session: it is the only writer of the token, user and
// roles, and every controller asks it for the token before calling the API.
type Manager struct {
	tokens         *TokenStore
	checker        Checker
	cacheTTL       time.Duration
	startupTimeout time.Duration
	nowTime        func() time.Time

	mu    sync.RWMutex
	state State
	// epoch increments whenever the session is replaced or cleared so that a
	// slow startup validation cannot resurrect a session the user left.
	epoch     uint64
	initOnce  sync.Once
	initDone  chan struct{}
	listeners map[int]func(State)
	nextID    int
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithValidationCacheTTL sets how long a successful validation is trusted.
func WithValidationCacheTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.cacheTTL = ttl
	}
}

// WithStartupTimeout bounds the background validation run by Init.
func WithStartupTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.startupTimeout = timeout
	}
}

func NewManager(tokens *TokenStore, checker Checker, options ...ManagerOption) (*Manager, error) {
	if tokens == nil {
		return nil, errors.New("[NewManager] token store is required")
	}
	if checker == nil {
		return nil, errors.New("[NewManager] checker is required")
	}

	m := &Manager{
		tokens:         tokens,
		checker:        checker,
		cacheTTL:       defaultValidationCacheTTL,
		startupTimeout: defaultStartupTimeout,
		nowTime:        time.Now,
		state:          State{Status: StatusUninitialized},
		initDone:       make(chan struct{}),
		listeners:      make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Init rehydrates the session from storage. A stored session is considered
// logged in straight away and re-validated in the background; Initialized
// becomes true once that check has finished. Calling Init again is a no-op.
func (m *Manager) Init(ctx context.Context) {
	m.initOnce.Do(func() { m.init(ctx) })
}

func (m *Manager) init(ctx context.Context) {
	stored, err := m.tokens.Load()
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable stored session")
		m.clearStorage()
	}

	if stored == nil {
		m.mu.Lock()
		m.state = State{Status: StatusLoggedOut, Initialized: true}
		m.mu.Unlock()
		close(m.initDone)
		m.notify()
		return
	}

	m.mu.Lock()
	m.state = State{
		Status: StatusOptimistic,
		User:   &stored.User,
		Roles:  stored.Roles,
	}
	epoch := m.epoch
	m.mu.Unlock()
	m.notify()

	go m.validateStored(ctx, stored.Token, epoch)
}

func (m *Manager) validateStored(ctx context.Context, token string, epoch uint64) {
	checkCtx, cancel := context.WithTimeout(ctx, m.startupTimeout)
	defer cancel()

	err := m.checker.Check(checkCtx, token)

	m.mu.Lock()
	switch {
	case m.epoch != epoch:
		// Login or Logout happened meanwhile; their state wins.
	case err != nil && ctx.Err() != nil:
		// The caller went away. The stored session stays optimistic and the
		// next ValidateSession asks the backend again.
		log.Debug().Err(err).Msg("startup validation abandoned")
	case err == nil:
		m.state.Status = StatusLoggedIn
		m.state.LastValidatedAt = m.nowTime()
	default:
		log.Info().Err(err).Msg("stored session rejected")
		m.clearLocked()
	}
	m.state.Initialized = true
	m.mu.Unlock()

	close(m.initDone)
	m.notify()
}

// WaitInitialized blocks until the startup check has completed.
func (m *Manager) WaitInitialized(ctx context.Context) error {
	select {
	case <-m.initDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login stores token, user and roles and marks the session validated now.
func (m *Manager) Login(token string, user users.User, roles users.Roles) {
	if err := m.tokens.Save(token, user, roles); err != nil {
		log.Err(err).Msg("cannot persist session")
	}

	m.mu.Lock()
	m.epoch++
	m.state.Status = StatusLoggedIn
	m.state.User = &user
	m.state.Roles = append(users.Roles(nil), roles...)
	m.state.LastValidatedAt = m.nowTime()
	m.mu.Unlock()

	log.Info().Int64("user_id", user.ID).Msg("logged in")
	m.notify()
}

// Logout clears memory and storage. It is safe to call repeatedly.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
	m.notify()
}

// Invalidate ends the session after the backend rejected the token
// (e.g. a 401 on a protected page). Subscribers use it to redirect to sign-in.
func (m *Manager) Invalidate(reason error) {
	log.Info().Err(reason).Msg("session invalidated")
	m.Logout()
}

// Token returns the persisted access token, or "" when there is none.
// It does not validate.
func (m *Manager) Token() string {
	return m.tokens.Token()
}

// ValidateSession reports whether the session is usable:
//   - before Init has finished it returns the in-memory logged in flag;
//   - within the cache TTL of the last validation it returns true;
//   - without a stored token it clears the session and returns false;
//   - otherwise it asks the backend and clears the session unless it answers 200.
func (m *Manager) ValidateSession(ctx context.Context) bool {
	m.mu.RLock()
	state := m.state
	epoch := m.epoch
	m.mu.RUnlock()

	if !state.Initialized {
		return state.LoggedIn()
	}
	if state.Status == StatusLoggedIn && m.nowTime().Sub(state.LastValidatedAt) < m.cacheTTL {
		return true
	}

	token := m.tokens.Token()
	if token == "" {
		m.Logout()
		return false
	}

	err := m.checker.Check(ctx, token)
	if err != nil && ctx.Err() != nil {
		// The caller went away; that says nothing about the token.
		return false
	}

	m.mu.Lock()
	if m.epoch != epoch {
		current := m.state.Status == StatusLoggedIn
		m.mu.Unlock()
		return current && err == nil
	}
	if err != nil {
		log.Info().Err(err).Msg("session validation failed")
		m.clearLocked()
		m.mu.Unlock()
		m.notify()
		return false
	}
	m.state.LastValidatedAt = m.nowTime()
	changed := m.state.Status != StatusLoggedIn
	if changed {
		m.rehydrateLocked()
	}
	m.mu.Unlock()
	if changed {
		m.notify()
	}
	return true
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// User returns the signed in user, if any.
func (m *Manager) User() (*users.User, bool) {
	state := m.State()
	return state.User, state.User != nil
}

func (m *Manager) Roles() users.Roles {
	return m.State().Roles
}

// OnChange registers fn to be called with every new state. The returned func
// unregisters it.
func (m *Manager) OnChange(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	state := m.state.clone()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

// clearLocked must be called with mu held.
func (m *Manager) clearLocked() {
	m.epoch++
	m.clearStorage()
	initialized := m.state.Initialized
	m.state = State{Status: StatusLoggedOut, Initialized: initialized}
}

// rehydrateLocked restores user and roles from storage after a successful
// validation of a token that was not backed by in-memory state.
func (m *Manager) rehydrateLocked() {
	stored, err := m.tokens.Load()
	if err != nil || stored == nil {
		return
	}
	m.state.Status = StatusLoggedIn
	m.state.User = &stored.User
	m.state.Roles = stored.Roles
}

func (m *Manager) clearStorage() {
	if err := m.tokens.Clear(); err != nil {
		log.Err(err).Msg("cannot clear stored session")
	}
}

