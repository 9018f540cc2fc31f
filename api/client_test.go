package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-classroom-client/api"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }

func staticTokens(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func missingTokens() oauth2.TokenSource {
	return tokenFunc(func() (*oauth2.Token, error) { return nil, clienterrors.ErrMissingToken })
}

type class struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message, "result": result})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens oauth2.TokenSource) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL, tokens)
	require.NoError(t, err)
	return c
}

func TestGetDecodesResultAndSendsBearer(t *testing.T) {
	var gotAuth, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(api.RequestIDHeader)
		require.Equal(t, "/classes", r.URL.Path)
		writeEnvelope(w, http.StatusOK, api.CodeSuccess, "", []class{{ID: 1, Name: "Math"}, {ID: 2, Name: "Art"}})
	}, staticTokens("T1"))

	classes, err := api.Get[[]class](context.Background(), c, "/classes", nil)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	require.Equal(t, "Bearer T1", gotAuth)
	require.NotEmpty(t, gotRequestID)
}

func TestDomainErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 4000, "Duplicate code", nil)
	}, staticTokens("T1"))

	_, err := api.Send[class](context.Background(), c, http.MethodPost, "/classes", map[string]string{"code": "M1"})
	var domainErr *api.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, 4000, domainErr.Code)
	require.Equal(t, "Duplicate code", api.UserMessage(err, ""))
}

func TestUnauthorizedStatusMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, 1006, "Unauthenticated", nil)
	}, staticTokens("T1"))

	err := c.Do(context.Background(), api.Request{Method: http.MethodGet, Path: "/users/me"}, nil)
	require.ErrorIs(t, err, clienterrors.ErrUnauthorized)
	require.Equal(t, "Unauthenticated", api.UserMessage(err, ""))
}

func TestMissingTokenFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, missingTokens())

	err := c.Do(context.Background(), api.Request{Method: http.MethodGet, Path: "/classes"}, nil)
	require.ErrorIs(t, err, clienterrors.ErrMissingToken)
	require.Zero(t, calls.Load())
}

func TestAnonymousRequestSkipsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, api.CodeSuccess, "", map[string]string{"token": "T9"})
	}, missingTokens())

	var out struct {
		Token string `json:"token"`
	}
	err := c.Do(context.Background(), api.Request{Method: http.MethodPost, Path: "/auth/token", Body: map[string]string{"username": "u"}, Anonymous: true}, &out)
	require.NoError(t, err)
	require.Equal(t, "T9", out.Token)
}

func TestNonJSONErrorFallsBackToGenericMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, staticTokens("T1"))

	err := c.Do(context.Background(), api.Request{Method: http.MethodGet, Path: "/classes"}, nil)
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.Status)
	require.Equal(t, "fallback", api.UserMessage(err, "fallback"))
}

func TestMultipartUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Essay", r.FormValue("title"))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		require.Equal(t, "essay.txt", header.Filename)
		require.Equal(t, "hello", string(content))
		writeEnvelope(w, http.StatusOK, api.CodeSuccess, "", nil)
	}, staticTokens("T1"))

	body := api.NewMultipart().AddField("title", "Essay").AddFile("file", "/tmp/essay.txt", strings.NewReader("hello"))
	err := c.Do(context.Background(), api.Request{Method: http.MethodPost, Path: "/assignments", Multipart: body}, nil)
	require.NoError(t, err)
}

func TestDownloadReturnsBlob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="brief.pdf"`)
		_, _ = w.Write([]byte("%PDF"))
	}, staticTokens("T1"))

	blob, err := c.Download(context.Background(), "/assignments/3/file", nil)
	require.NoError(t, err)
	defer blob.Body.Close()
	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(data))
	require.Equal(t, "brief.pdf", blob.Filename)
}

func TestPageBase(t *testing.T) {
	require.Equal(t, "0", api.ZeroBased.Param(0))
	require.Equal(t, "3", api.OneBased.Param(2))
	require.Equal(t, 2, api.OneBased.Index(3))
}

func TestNewClientRequiresBaseURLAndTokens(t *testing.T) {
	_, err := api.NewClient(" ", staticTokens("T1"))
	require.EqualError(t, err, "[api.NewClient] base URL is required")
	_, err = api.NewClient("http://localhost", nil)
	require.EqualError(t, err, "[api.NewClient] token source is required")
}

func TestMalformedEnvelopeIsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{not json")
	}, staticTokens("T1"))

	_, err := api.Get[[]class](context.Background(), c, "/classes", nil)
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusOK, httpErr.Status)
	require.Contains(t, httpErr.Err.Error(), "[Client.Do] decode envelope")
}

func TestEnvelopeOK(t *testing.T) {
	require.True(t, api.Envelope[any]{Code: api.CodeSuccess}.OK())
	require.False(t, api.Envelope[any]{Code: 4000, Message: "Duplicate code"}.OK())
}
