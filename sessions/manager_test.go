package sessions_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/sessions"
	"github.com/jrsteele09/go-classroom-client/storage/memstore"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/stretchr/testify/require"
)

var testUser = users.User{ID: 7, Username: "ada", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}

// fakeChecker counts calls and answers with err.
type fakeChecker struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (fc *fakeChecker) Check(ctx context.Context, token string) error {
	fc.mu.Lock()
	fc.calls++
	err := fc.err
	block := fc.block
	fc.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (fc *fakeChecker) Calls() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.calls
}

type testFixture struct {
	store   *memstore.MemStore
	tokens  *sessions.TokenStore
	checker *fakeChecker
	now     time.Time
	manager *sessions.Manager
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T, stored map[string]string) *testFixture {
	t.Helper()

	f := &testFixture{
		store:   memstore.NewWithValues(stored),
		checker: &fakeChecker{},
		now:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.tokens = sessions.NewTokenStore(f.store)
	m, err := sessions.NewManager(f.tokens, f.checker,
		sessions.WithNowTime(func() time.Time { return f.now }),
		sessions.WithValidationCacheTTL(60*time.Second),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func storedSession(token string) map[string]string {
	userJSON, _ := json.Marshal(testUser)
	return map[string]string{
		sessions.KeyAccessToken: token,
		sessions.KeyUser:        string(userJSON),
		sessions.KeyRoles:       `["TEACHER"]`,
		sessions.KeyUserID:      "7",
	}
}

func initAndWait(t *testing.T, m *sessions.Manager) {
	t.Helper()
	m.Init(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitInitialized(ctx))
}

func TestNewManagerRequiresDependencies(t *testing.T) {
	_, err := sessions.NewManager(nil, &fakeChecker{})
	require.Error(t, err)
	_, err = sessions.NewManager(sessions.NewTokenStore(memstore.New()), nil)
	require.Error(t, err)
}

func TestLoginThenTokenAndLogout(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)

	f.manager.Login("T1", testUser, users.Roles{users.RoleTeacher})
	require.Equal(t, "T1", f.manager.Token())
	state := f.manager.State()
	require.Equal(t, sessions.StatusLoggedIn, state.Status)
	require.Equal(t, int64(7), state.User.ID)
	require.True(t, state.Roles.IsTeacher())

	id, ok := f.tokens.UserID()
	require.True(t, ok)
	require.Equal(t, int64(7), id)

	f.manager.Logout()
	require.Equal(t, "", f.manager.Token())
	require.Equal(t, sessions.StatusLoggedOut, f.manager.State().Status)
	require.Zero(t, f.store.Len())

	// idempotent
	f.manager.Logout()
	require.Equal(t, sessions.StatusLoggedOut, f.manager.State().Status)
}

func TestValidateSessionIsCachedForTTL(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)
	f.manager.Login("T1", testUser, nil)

	f.advance(10 * time.Second)
	require.True(t, f.manager.ValidateSession(context.Background()))
	f.advance(30 * time.Second)
	require.True(t, f.manager.ValidateSession(context.Background()))
	require.Zero(t, f.checker.Calls())

	f.advance(30 * time.Second)
	require.True(t, f.manager.ValidateSession(context.Background()))
	require.Equal(t, 1, f.checker.Calls())

	f.advance(5 * time.Second)
	require.True(t, f.manager.ValidateSession(context.Background()))
	require.Equal(t, 1, f.checker.Calls())
}

func TestValidateSessionWithoutTokenMakesNoCall(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)

	require.False(t, f.manager.ValidateSession(context.Background()))
	require.Zero(t, f.checker.Calls())
	require.Equal(t, sessions.StatusLoggedOut, f.manager.State().Status)
}

func TestValidateSessionRejectedClearsSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)
	f.manager.Login("T1", testUser, nil)

	f.advance(2 * time.Minute)
	f.checker.err = clienterrors.ErrUnauthorized
	require.False(t, f.manager.ValidateSession(context.Background()))
	require.Equal(t, "", f.manager.Token())
	require.Nil(t, f.manager.State().User)
}

func TestValidateSessionCallerCancelledKeepsSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)
	f.manager.Login("T1", testUser, nil)
	f.advance(2 * time.Minute)

	f.checker.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, f.manager.ValidateSession(ctx))
	require.Equal(t, "T1", f.manager.Token())
}

func TestValidateSessionBeforeInitReturnsInMemoryFlag(t *testing.T) {
	f := setupTestFixture(t, storedSession("T1"))
	require.False(t, f.manager.ValidateSession(context.Background()))
	require.Zero(t, f.checker.Calls())
}

func TestInitWithoutStoredSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)

	state := f.manager.State()
	require.True(t, state.Initialized)
	require.Equal(t, sessions.StatusLoggedOut, state.Status)
	require.Zero(t, f.checker.Calls())
}

func TestInitValidStoredSession(t *testing.T) {
	f := setupTestFixture(t, storedSession("T1"))
	initAndWait(t, f.manager)

	state := f.manager.State()
	require.True(t, state.Initialized)
	require.Equal(t, sessions.StatusLoggedIn, state.Status)
	require.Equal(t, "Ada Lovelace", state.User.FullName())
	require.Equal(t, users.Roles{users.RoleTeacher}, state.Roles)
	require.Equal(t, 1, f.checker.Calls())
}

func TestInitIsOptimisticUntilValidated(t *testing.T) {
	f := setupTestFixture(t, storedSession("T1"))
	f.checker.block = make(chan struct{})

	f.manager.Init(context.Background())
	state := f.manager.State()
	require.False(t, state.Initialized)
	require.Equal(t, sessions.StatusOptimistic, state.Status)
	require.True(t, state.LoggedIn())

	close(f.checker.block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.manager.WaitInitialized(ctx))
	require.Equal(t, sessions.StatusLoggedIn, f.manager.State().Status)
}

func TestInitRejectedStoredSessionClearsStorage(t *testing.T) {
	f := setupTestFixture(t, storedSession("T1"))
	f.checker.err = clienterrors.ErrSessionInvalid
	initAndWait(t, f.manager)

	state := f.manager.State()
	require.True(t, state.Initialized)
	require.Equal(t, sessions.StatusLoggedOut, state.Status)
	require.Zero(t, f.store.Len())
}

func TestInitCallerCancelledKeepsStoredSession(t *testing.T) {
	f := setupTestFixture(t, storedSession("T1"))
	f.checker.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	f.manager.Init(ctx)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, f.manager.WaitInitialized(waitCtx))

	state := f.manager.State()
	require.True(t, state.Initialized)
	require.Equal(t, sessions.StatusOptimistic, state.Status)
	require.Equal(t, "T1", f.manager.Token())
	require.Equal(t, 4, f.store.Len())

	// the next check goes back to the backend and settles the session
	close(f.checker.block)
	require.True(t, f.manager.ValidateSession(context.Background()))
	require.Equal(t, sessions.StatusLoggedIn, f.manager.State().Status)
	require.Equal(t, 2, f.checker.Calls())
}

func TestInitCorruptedStorageIsCleared(t *testing.T) {
	f := setupTestFixture(t, map[string]string{sessions.KeyAccessToken: "T1"})
	initAndWait(t, f.manager)

	require.Equal(t, sessions.StatusLoggedOut, f.manager.State().Status)
	require.Zero(t, f.store.Len())
	require.Zero(t, f.checker.Calls())
}

func TestLoginDuringStartupValidationWins(t *testing.T) {
	f := setupTestFixture(t, storedSession("OLD"))
	f.checker.block = make(chan struct{})
	f.checker.err = clienterrors.ErrSessionInvalid

	f.manager.Init(context.Background())
	f.manager.Login("NEW", testUser, nil)
	close(f.checker.block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.manager.WaitInitialized(ctx))
	require.Equal(t, "NEW", f.manager.Token())
	require.Equal(t, sessions.StatusLoggedIn, f.manager.State().Status)
}

func TestOnChangeNotifiesAndUnsubscribes(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)

	var seen []sessions.Status
	unsubscribe := f.manager.OnChange(func(s sessions.State) {
		seen = append(seen, s.Status)
	})
	f.manager.Login("T1", testUser, nil)
	f.manager.Invalidate(clienterrors.ErrUnauthorized)
	unsubscribe()
	f.manager.Login("T2", testUser, nil)

	require.Equal(t, []sessions.Status{sessions.StatusLoggedIn, sessions.StatusLoggedOut}, seen)
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t, nil)
	initAndWait(t, f.manager)

	_, err := f.manager.TokenSource().Token()
	require.ErrorIs(t, err, clienterrors.ErrMissingToken)

	f.manager.Login("T1", testUser, nil)
	tok, err := f.manager.TokenSource().Token()
	require.NoError(t, err)
	require.Equal(t, "T1", tok.AccessToken)
}

func TestValidatorAgainstBackend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, sessions.DefaultValidatePath, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	v := sessions.NewValidator(srv.URL)
	require.NoError(t, v.Check(context.Background(), "good"))

	err := v.Check(context.Background(), "bad")
	require.ErrorIs(t, err, clienterrors.ErrSessionInvalid)
	require.ErrorIs(t, err, clienterrors.ErrUnauthorized)

	require.ErrorIs(t, v.Check(context.Background(), ""), clienterrors.ErrMissingToken)
	require.Equal(t, int32(2), calls.Load())
}

func TestValidatorSkipsExpiredJWT(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	v := sessions.NewValidator(srv.URL, sessions.WithValidatorNowTime(func() time.Time { return now }))

	expired := unsignedJWT(t, map[string]any{"sub": "7", "exp": now.Add(-time.Minute).Unix()})
	require.ErrorIs(t, v.Check(context.Background(), expired), clienterrors.ErrTokenExpired)
	require.Zero(t, calls.Load())
}

func TestParseClaims(t *testing.T) {
	raw := unsignedJWT(t, map[string]any{"sub": "7", "iss": "classroom", "scope": "ROLE_TEACHER ROLE_STUDENT", "exp": 1900000000})
	claims, err := sessions.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "7", claims.Subject)
	require.Equal(t, []string{"ROLE_TEACHER", "ROLE_STUDENT"}, claims.Roles)
	require.False(t, claims.Expired(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = sessions.ParseClaims("opaque-token")
	require.ErrorIs(t, err, clienterrors.ErrTokenMalformed)
}

func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := base64.RawURLEncoding
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "."
}

type countingTransport struct {
	trips atomic.Int32
}

func (ct *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ct.trips.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestValidatorOptions(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/check":
			w.WriteHeader(http.StatusOK)
		case "/slow":
			<-release
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	transport := &countingTransport{}
	v := sessions.NewValidator(srv.URL,
		sessions.WithTransport(transport),
		sessions.WithValidatePath("session/check"),
	)
	require.NoError(t, v.Check(context.Background(), "good"))
	require.Equal(t, int32(1), transport.trips.Load())

	slow := sessions.NewValidator(srv.URL,
		sessions.WithTransport(nil),
		sessions.WithValidatePath("/slow"),
		sessions.WithValidatorTimeout(20*time.Millisecond),
	)
	require.Error(t, slow.Check(context.Background(), "good"))
}
