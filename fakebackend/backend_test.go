package fakebackend_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/fakebackend"
	"github.com/jrsteele09/go-classroom-client/sessions"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *fakebackend.Backend
	teacher fakebackend.Account
	student fakebackend.Account
	elapsed atomic.Int64
}

func setupTestFixture(t *testing.T, options ...fakebackend.Option) *testFixture {
	t.Helper()

	f := &testFixture{}
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	options = append([]fakebackend.Option{
		fakebackend.WithNowTime(func() time.Time { return start.Add(time.Duration(f.elapsed.Load())) }),
	}, options...)
	f.backend = fakebackend.New(options...)
	t.Cleanup(f.backend.Close)
	f.teacher, f.student = f.backend.Seed()
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.elapsed.Add(int64(d))
}

func (f *testFixture) validate(t *testing.T, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.backend.URL()+sessions.DefaultValidatePath, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func (f *testFixture) signIn(t *testing.T, username, password string) api.Envelope[classroom.SignInResult] {
	t.Helper()
	body, err := json.Marshal(classroom.Credentials{Username: username, Password: password})
	require.NoError(t, err)
	resp, err := http.Post(f.backend.URL()+"/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env api.Envelope[classroom.SignInResult]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestSignInIssuesJWT(t *testing.T) {
	f := setupTestFixture(t)

	env := f.signIn(t, "teacher", "Password1")
	require.Equal(t, api.CodeSuccess, env.Code)

	claims, err := sessions.ParseClaims(env.Result.Token)
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)
	require.Equal(t, []string{"ROLE_TEACHER"}, claims.Roles)
	require.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt))
	require.Equal(t, http.StatusOK, f.validate(t, env.Result.Token))
}

func TestSignInWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	env := f.signIn(t, "teacher", "nope")
	require.Equal(t, fakebackend.CodeUnauthenticated, env.Code)
	require.Equal(t, "Invalid username or password", env.Message)
	require.Empty(t, env.Result.Token)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	f := setupTestFixture(t, fakebackend.WithTokenTTL(time.Minute))
	token := f.backend.IssueToken(f.student.User.ID)
	require.Equal(t, http.StatusOK, f.validate(t, token))

	f.advance(2 * time.Minute)
	require.Equal(t, http.StatusUnauthorized, f.validate(t, token))
}

func TestRevokedTokenIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	revoked := f.backend.IssueToken(f.student.User.ID)
	other := f.backend.IssueToken(f.student.User.ID)

	f.backend.RevokeToken(revoked)
	require.Equal(t, http.StatusUnauthorized, f.validate(t, revoked))
	require.Equal(t, http.StatusOK, f.validate(t, other))
}

func TestTamperedTokenIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	token := f.backend.IssueToken(f.teacher.User.ID)

	require.Equal(t, http.StatusUnauthorized, f.validate(t, token+"x"))
	require.Equal(t, http.StatusUnauthorized, f.validate(t, "not-a-jwt"))
}

func TestTokenFromAnotherBackendIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	other := fakebackend.New()
	t.Cleanup(other.Close)
	other.Seed()

	require.Equal(t, http.StatusUnauthorized, f.validate(t, other.IssueToken(f.student.User.ID)))
}

func TestInjectedFailureIsServedOnce(t *testing.T) {
	f := setupTestFixture(t)
	token := f.backend.IssueToken(f.student.User.ID)

	f.backend.FailNextStatus(http.MethodGet, sessions.DefaultValidatePath, http.StatusServiceUnavailable, "down")
	require.Equal(t, http.StatusServiceUnavailable, f.validate(t, token))
	require.Equal(t, http.StatusOK, f.validate(t, token))
	require.Equal(t, 2, f.backend.Calls(http.MethodGet, sessions.DefaultValidatePath))
}
