package sessions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultValidatePath is the backend's token validation endpoint.
const DefaultValidatePath = "/auth/validate"

// Checker decides whether a token is still accepted by the backend.
// A nil error means valid.
type Checker interface {
	Check(ctx context.Context, token string) error
}

// Validator checks tokens against the backend validation endpoint:
// HTTP 200 means valid, any other status or a network error means invalid.
type Validator struct {
	baseURL string
	path    string
	base    http.RoundTripper
	timeout time.Duration
	nowTime func() time.Time
}

var _ Checker = (*Validator)(nil)

type ValidatorOption func(*Validator)

// WithTransport sets the base transport under the bearer header. nil keeps
// http.DefaultTransport.
func WithTransport(rt http.RoundTripper) ValidatorOption {
	return func(v *Validator) {
		if rt != nil {
			v.base = rt
		}
	}
}

func WithValidatorTimeout(timeout time.Duration) ValidatorOption {
	return func(v *Validator) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

func WithValidatePath(path string) ValidatorOption {
	return func(v *Validator) {
		v.path = "/" + strings.TrimLeft(path, "/")
	}
}

func WithValidatorNowTime(nowFunc func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowTime = nowFunc
	}
}

func NewValidator(baseURL string, options ...ValidatorOption) *Validator {
	v := &Validator{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    DefaultValidatePath,
		base:    http.DefaultTransport,
		timeout: 15 * time.Second,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

func (v *Validator) Check(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return clienterrors.ErrMissingToken
	}

	// A JWT that has already expired cannot be valid; skip the round trip.
	if claims, err := ParseClaims(token); err == nil && claims.Expired(v.nowTime()) {
		return clienterrors.Wrapf(clienterrors.ErrTokenExpired, "[Validator.Check] expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}

	hc := &http.Client{
		Timeout: v.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   v.base,
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+v.path, nil)
	if err != nil {
		return clienterrors.Wrapf(err, "[Validator.Check] new request")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return clienterrors.Wrapf(err, "[Validator.Check] request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("token rejected by backend")
		err := fmt.Errorf("[Validator.Check] status %d: %w", resp.StatusCode, clienterrors.ErrSessionInvalid)
		if resp.StatusCode == http.StatusUnauthorized {
			err = fmt.Errorf("%w (%w)", err, clienterrors.ErrUnauthorized)
		}
		return err
	}
	return nil
}
