package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-classroom-client/classroom"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/logging"
	"github.com/jrsteele09/go-classroom-client/sessions"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultDebounce = 250 * time.Millisecond

// NoticeAPI is the part of the backend the channel talks to.
type NoticeAPI interface {
	ListNotices(ctx context.Context, userID int64) ([]classroom.Notice, error)
	MarkNoticeRead(ctx context.Context, noticeID int64) error
}

var _ NoticeAPI = (*classroom.Service)(nil)

// Subscriber opens a push subscription for a user. onEvent is called for
// every event received until the subscription is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, userID int64, onEvent func()) (Subscription, error)
}

// Subscription is an open push subscription. After Close returns no more
// events are delivered.
type Subscription interface {
	Close() error
}

// Channel keeps the signed in user's notices in sync. Push events only
// trigger refetches; their payload is ignored. Bursts of events are
// coalesced into one refetch after the debounce delay.
type Channel struct {
	api            NoticeAPI
	subscriber     Subscriber
	debounce       time.Duration
	onUnauthorized func(error)
	logger         zerolog.Logger

	lifetime context.Context
	cancel   context.CancelFunc

	mu           sync.Mutex
	user         *users.User
	generation   uint64
	notices      []classroom.Notice
	lastErr      error
	subscription Subscription
	timer        *time.Timer
	closed       bool
	watchers     map[int]func()
	nextWatch    int
}

type Option func(*Channel)

// WithDebounce sets the trailing debounce applied to push events. Zero
// refetches on every event.
func WithDebounce(d time.Duration) Option {
	return func(c *Channel) {
		c.debounce = d
	}
}

// WithOnUnauthorized sets the hook called when a fetch is rejected with 401
// or no token is available, including refetches triggered by push events.
func WithOnUnauthorized(fn func(error)) Option {
	return func(c *Channel) {
		c.onUnauthorized = fn
	}
}

func NewChannel(api NoticeAPI, subscriber Subscriber, options ...Option) (*Channel, error) {
	if api == nil {
		return nil, errors.New("[notify.NewChannel] notice API is required")
	}
	if subscriber == nil {
		return nil, errors.New("[notify.NewChannel] subscriber is required")
	}
	lifetime, cancel := context.WithCancel(context.Background())
	c := &Channel{
		api:        api,
		subscriber: subscriber,
		debounce:   defaultDebounce,
		logger:     logging.Component("notify"),
		lifetime:   lifetime,
		cancel:     cancel,
		watchers:   make(map[int]func()),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetUser switches the channel to user, closing the previous subscription.
// A nil user just tears everything down. When only the push subscription
// fails the list is still loaded and the error matches ErrPushUnavailable.
func (c *Channel) SetUser(ctx context.Context, user *users.User) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return clienterrors.ErrClosed
	}
	c.generation++
	gen := c.generation
	old := c.detachLocked()
	c.notices = nil
	c.lastErr = nil
	c.user = nil
	if user != nil {
		u := *user
		c.user = &u
	}
	c.mu.Unlock()

	closeSubscription(old, c.logger)
	c.emit()
	if user == nil {
		return nil
	}

	sub, subErr := c.subscriber.Subscribe(ctx, user.ID, func() { c.trigger(gen) })
	if subErr != nil {
		c.logger.Warn().Err(subErr).Int64("user_id", user.ID).Msg("push subscription failed")
	} else {
		c.mu.Lock()
		stale := c.closed || c.generation != gen
		if !stale {
			c.subscription = sub
		}
		c.mu.Unlock()
		if stale {
			closeSubscription(sub, c.logger)
			return nil
		}
	}

	if err := c.FetchNotices(ctx); err != nil {
		return err
	}
	if subErr != nil {
		return errors.Wrapf(clienterrors.ErrPushUnavailable, "[Channel.SetUser] %v", subErr)
	}
	return nil
}

// SessionSource is the part of the session manager a channel follows.
type SessionSource interface {
	State() sessions.State
	OnChange(fn func(sessions.State)) (unsubscribe func())
}

var _ SessionSource = (*sessions.Manager)(nil)

// Follow keeps the channel on the session's user: signing in as someone else
// replaces the subscription and signing out closes it. The returned error is
// the one from switching to the current user. stop detaches from the session.
func (c *Channel) Follow(ctx context.Context, session SessionSource) (stop func(), err error) {
	follow := func(state sessions.State) error {
		user := state.User
		if !state.LoggedIn() {
			user = nil
		}
		if c.following(user) {
			return nil
		}
		return c.SetUser(ctx, user)
	}
	stop = session.OnChange(func(state sessions.State) {
		if err := follow(state); err != nil {
			c.logger.Info().Err(err).Msg("following session change")
		}
	})
	return stop, follow(session.State())
}

// following reports whether the channel is already on user.
func (c *Channel) following(user *users.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || user == nil {
		return c.user == nil && user == nil
	}
	return c.user.ID == user.ID
}

// FetchNotices replaces the list with the server's. Without a user it does
// nothing.
func (c *Channel) FetchNotices(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.user == nil {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	userID := c.user.ID
	c.mu.Unlock()

	notices, err := c.api.ListNotices(ctx, userID)

	c.mu.Lock()
	if c.closed || c.generation != gen {
		c.mu.Unlock()
		return nil
	}
	c.lastErr = err
	if err == nil {
		c.notices = notices
	}
	c.mu.Unlock()

	c.emit()
	c.checkUnauthorized(err)
	return err
}

// MarkAsRead sends one PUT and then flips the read flag of that notice only.
func (c *Channel) MarkAsRead(ctx context.Context, noticeID int64) error {
	c.mu.Lock()
	hasUser := c.user != nil
	gen := c.generation
	c.mu.Unlock()
	if !hasUser {
		return clienterrors.ErrNoUser
	}

	if err := c.api.MarkNoticeRead(ctx, noticeID); err != nil {
		c.checkUnauthorized(err)
		return err
	}

	c.mu.Lock()
	if c.generation == gen {
		for i := range c.notices {
			if c.notices[i].ID == noticeID {
				c.notices[i].Read = true
				break
			}
		}
	}
	c.mu.Unlock()
	c.emit()
	return nil
}

// Notices returns a copy of the current list.
func (c *Channel) Notices() []classroom.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]classroom.Notice(nil), c.notices...)
}

func (c *Channel) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	unread := 0
	for _, n := range c.notices {
		if !n.Read {
			unread++
		}
	}
	return unread
}

// Err returns the error of the last fetch, if it failed.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Watch registers fn to be called after every change of the list.
func (c *Channel) Watch(fn func()) (unwatch func()) {
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

// Close tears down the subscription and any pending refetch.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	old := c.detachLocked()
	c.mu.Unlock()

	closeSubscription(old, c.logger)
}

func (c *Channel) trigger(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != gen {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		if err := c.refetch(gen); err != nil {
			c.logger.Info().Err(err).Msg("refetch after push failed")
		}
	})
}

func (c *Channel) refetch(gen uint64) error {
	c.mu.Lock()
	stale := c.closed || c.generation != gen
	c.mu.Unlock()
	if stale {
		return nil
	}
	return c.FetchNotices(c.lifetime)
}

// detachLocked stops the timer and returns the subscription to close once
// mu is released.
func (c *Channel) detachLocked() Subscription {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	sub := c.subscription
	c.subscription = nil
	return sub
}

func (c *Channel) checkUnauthorized(err error) {
	if c.onUnauthorized == nil || err == nil {
		return
	}
	if clienterrors.Is(err, clienterrors.ErrUnauthorized) || clienterrors.Is(err, clienterrors.ErrMissingToken) {
		c.onUnauthorized(err)
	}
}

func (c *Channel) emit() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func closeSubscription(sub Subscription, logger zerolog.Logger) {
	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		logger.Debug().Err(err).Msg("closing push subscription")
	}
}
