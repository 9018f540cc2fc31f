package tab

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-classroom-client/api"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultFlashTimeout = 3 * time.Second

// Status is the controller's position in its lifecycle:
//
//	Idle -> Loading -> Loaded | Error
//	Loaded -> Submitting -> Loading (refetch) | Loaded with error shown
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusLoaded     Status = "loaded"
	StatusError      Status = "error"
	StatusSubmitting Status = "submitting"
)

// Scope identifies the parent of a list: a class, an assignment or an exam,
// plus an optional search term.
type Scope struct {
	ID     int64
	Search string
}

// Loader fetches one page of a list. page is a zero-based index; loaders of
// endpoints with another numbering convert it with api.PageBase.
type Loader[T any] func(ctx context.Context, scope Scope, page int) (api.Page[T], error)

// FromList adapts an unpaginated list call into a Loader.
func FromList[T any](fn func(ctx context.Context, scope Scope) ([]T, error)) Loader[T] {
	return func(ctx context.Context, scope Scope, _ int) (api.Page[T], error) {
		items, err := fn(ctx, scope)
		if err != nil {
			return api.Page[T]{}, err
		}
		return api.Page[T]{Content: items, TotalPages: 1, TotalElements: int64(len(items))}, nil
	}
}

// Mutation is a create, update, delete or other state changing call.
type Mutation struct {
	Name    string
	Confirm string // prompt shown before the call; empty skips confirmation
	Success string // flash banner shown after success
	Call    func(ctx context.Context) error
}

// Snapshot is a copy of the controller state suitable for rendering.
type Snapshot[T any] struct {
	Status     Status
	Items      []T
	Scope      Scope
	Page       int
	TotalPages int
	Error      string
	Flash      string
	FormOpen   bool
}

func (s Snapshot[T]) Loading() bool {
	return s.Status == StatusLoading
}

func (s Snapshot[T]) Submitting() bool {
	return s.Status == StatusSubmitting
}

type options struct {
	confirmer      Confirmer
	onUnauthorized func(error)
	flashTimeout   time.Duration
	paginated      bool
}

type Option func(*options)

func WithConfirmer(c Confirmer) Option {
	return func(o *options) {
		o.confirmer = c
	}
}

// WithOnUnauthorized sets the hook run when the backend rejects the token.
func WithOnUnauthorized(fn func(error)) Option {
	return func(o *options) {
		o.onUnauthorized = fn
	}
}

func WithFlashTimeout(d time.Duration) Option {
	return func(o *options) {
		o.flashTimeout = d
	}
}

// Paginated enables SetPage.
func Paginated() Option {
	return func(o *options) {
		o.paginated = true
	}
}

// Controller holds one list-and-mutate view. Every mutation is followed by a
// full reload of the list; items are never patched locally.
type Controller[T any] struct {
	name   string
	loader Loader[T]
	opts   options
	logger zerolog.Logger

	lifetime context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	status     Status
	items      []T
	scope      Scope
	page       int
	totalPages int
	errMsg     string
	flash      string
	flashSeq   uint64
	flashTimer *time.Timer
	formOpen   bool
	generation uint64
	closed     bool
	watchers   map[int]func(Snapshot[T])
	nextWatch  int
}

func New[T any](name string, loader Loader[T], opts ...Option) (*Controller[T], error) {
	if loader == nil {
		return nil, errors.Errorf("[tab.New] %s: loader is required", name)
	}
	o := options{
		confirmer:    Deny,
		flashTimeout: defaultFlashTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		name:     name,
		loader:   loader,
		opts:     o,
		logger:   logging.Component("tab").With().Str("tab", name).Logger(),
		lifetime: lifetime,
		cancel:   cancel,
		status:   StatusIdle,
		watchers: make(map[int]func(Snapshot[T])),
	}, nil
}

func (c *Controller[T]) Name() string {
	return c.name
}

// Mount sets the scope, resets the page and loads the list. Items of a
// different scope are dropped before loading.
func (c *Controller[T]) Mount(ctx context.Context, scope Scope) {
	c.mu.Lock()
	if c.scope != scope {
		c.items = nil
	}
	c.scope = scope
	c.page = 0
	c.totalPages = 0
	c.mu.Unlock()
	c.load(ctx)
}

// SetScope reloads when scope differs from the current one.
func (c *Controller[T]) SetScope(ctx context.Context, scope Scope) {
	c.mu.Lock()
	same := c.scope == scope && c.status != StatusIdle
	c.mu.Unlock()
	if same {
		return
	}
	c.Mount(ctx, scope)
}

// Refresh reloads the current scope and page.
func (c *Controller[T]) Refresh(ctx context.Context) {
	c.load(ctx)
}

// SetPage moves to a zero-based page index. Bounds come from the total page
// count last reported by the server.
func (c *Controller[T]) SetPage(ctx context.Context, page int) error {
	if !c.opts.paginated {
		return errors.Wrapf(clienterrors.ErrUnsupported, "[Controller.SetPage] %s is not paginated", c.name)
	}
	c.mu.Lock()
	if page < 0 || (c.totalPages > 0 && page >= c.totalPages) {
		total := c.totalPages
		c.mu.Unlock()
		return errors.Wrapf(clienterrors.ErrPageOutOfRange, "[Controller.SetPage] page %d of %d", page, total)
	}
	c.page = page
	c.mu.Unlock()

	c.load(ctx)
	return nil
}

func (c *Controller[T]) OpenForm() {
	c.mu.Lock()
	c.formOpen = true
	c.mu.Unlock()
	c.emit()
}

func (c *Controller[T]) CloseForm() {
	c.mu.Lock()
	c.formOpen = false
	c.mu.Unlock()
	c.emit()
}

// Mutate runs m. Confirmation, when m asks for it, happens before anything is
// sent. On success the form closes, the list is refetched once and the success
// banner is shown. On failure the list is kept and the error is shown in place;
// the error is also returned.
func (c *Controller[T]) Mutate(ctx context.Context, m Mutation) error {
	if m.Call == nil {
		return errors.Errorf("[Controller.Mutate] %s: mutation %q has no call", c.name, m.Name)
	}
	if err := c.checkAvailable(); err != nil {
		return err
	}

	if m.Confirm != "" {
		ok, err := c.opts.confirmer.Confirm(ctx, m.Confirm)
		if err != nil {
			return errors.Wrapf(err, "[Controller.Mutate] %s confirmation", m.Name)
		}
		if !ok {
			return clienterrors.ErrNotConfirmed
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return clienterrors.ErrClosed
	}
	if c.status == StatusSubmitting {
		c.mu.Unlock()
		return clienterrors.ErrBusy
	}
	prev := c.status
	c.status = StatusSubmitting
	c.errMsg = ""
	c.mu.Unlock()
	c.emit()

	reqCtx, done := c.requestContext(ctx)
	err := m.Call(reqCtx)
	done()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return clienterrors.ErrClosed
	}
	if err != nil {
		c.status = prev
		if prev == StatusIdle || prev == StatusLoading {
			c.status = StatusLoaded
		}
		c.errMsg = api.UserMessage(err, api.GenericErrorMessage)
		c.mu.Unlock()

		c.logger.Info().Err(err).Str("mutation", m.Name).Msg("mutation failed")
		c.checkUnauthorized(err)
		c.emit()
		return err
	}
	c.formOpen = false
	c.setFlashLocked(m.Success)
	c.mu.Unlock()

	c.logger.Debug().Str("mutation", m.Name).Msg("mutation succeeded")
	c.load(ctx)
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Watch registers fn to receive every state change.
func (c *Controller[T]) Watch(fn func(Snapshot[T])) (unwatch func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Close cancels in-flight requests. Responses arriving afterwards are
// dropped. Close is idempotent.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.flashTimer != nil {
		c.flashTimer.Stop()
	}
	c.watchers = map[int]func(Snapshot[T]){}
}

func (c *Controller[T]) load(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	scope, page := c.scope, c.page
	c.status = StatusLoading
	c.errMsg = ""
	c.mu.Unlock()
	c.emit()

	reqCtx, done := c.requestContext(ctx)
	result, err := c.loader(reqCtx, scope, page)
	done()

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().Uint64("generation", gen).Msg("dropping stale response")
		return
	}
	if err != nil {
		c.status = StatusError
		c.errMsg = api.UserMessage(err, api.GenericErrorMessage)
	} else {
		c.status = StatusLoaded
		c.items = result.Content
		c.totalPages = result.TotalPages
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Info().Err(err).Int64("scope", scope.ID).Msg("load failed")
		c.checkUnauthorized(err)
	}
	c.emit()
}

// requestContext ties a request to both the caller and the controller
// lifetime.
func (c *Controller[T]) requestContext(ctx context.Context) (context.Context, func()) {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.lifetime, cancel)
	return reqCtx, func() {
		stop()
		cancel()
	}
}

func (c *Controller[T]) checkAvailable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return clienterrors.ErrClosed
	}
	if c.status == StatusSubmitting {
		return clienterrors.ErrBusy
	}
	return nil
}

func (c *Controller[T]) checkUnauthorized(err error) {
	if c.opts.onUnauthorized == nil {
		return
	}
	if clienterrors.Is(err, clienterrors.ErrUnauthorized) || clienterrors.Is(err, clienterrors.ErrMissingToken) {
		c.opts.onUnauthorized(err)
	}
}

// setFlashLocked must be called with mu held.
func (c *Controller[T]) setFlashLocked(msg string) {
	if msg == "" {
		return
	}
	if c.flashTimer != nil {
		c.flashTimer.Stop()
	}
	c.flash = msg
	c.flashSeq++
	seq := c.flashSeq
	c.flashTimer = time.AfterFunc(c.opts.flashTimeout, func() {
		c.mu.Lock()
		if c.closed || c.flashSeq != seq {
			c.mu.Unlock()
			return
		}
		c.flash = ""
		c.mu.Unlock()
		c.emit()
	})
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Status:     c.status,
		Items:      append([]T(nil), c.items...),
		Scope:      c.scope,
		Page:       c.page,
		TotalPages: c.totalPages,
		Error:      c.errMsg,
		Flash:      c.flash,
		FormOpen:   c.formOpen,
	}
}

func (c *Controller[T]) emit() {
	c.mu.Lock()
	if len(c.watchers) == 0 {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	fns := make([]func(Snapshot[T]), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
