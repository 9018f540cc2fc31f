package sessions

import (
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	m *Manager
}

// TokenSource exposes the session token to HTTP clients. It fails with
// ErrMissingToken instead of returning an empty token so that callers never
// send an unauthenticated request by accident.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{m: m}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	token := ts.m.Token()
	if token == "" {
		return nil, clienterrors.ErrMissingToken
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
