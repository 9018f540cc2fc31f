package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
)

// Page sizes used by the paginated endpoints.
const (
	ClassPageSize    = 9
	QuestionPageSize = 10
)

// Page numbering of the paginated endpoints. They disagree, so each is kept
// as the backend defines it.
const (
	ClassPageBase    = api.ZeroBased
	QuestionPageBase = api.OneBased
)

// Service is the typed facade over the classroom REST API.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[classroom.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// Client exposes the underlying API client (downloads use it directly).
func (s *Service) Client() *api.Client {
	return s.client
}

// SignInResult is what the backend returns for valid credentials.
type SignInResult struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
	Roles []string   `json:"roles"`
}

// SignIn exchanges credentials for a bearer token. It is the only call made
// without a token.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (*SignInResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	var result SignInResult
	err := s.client.Do(ctx, api.Request{Method: http.MethodPost, Path: "/auth/token", Body: creds, Anonymous: true}, &result)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SignIn]")
	}
	if result.Token == "" {
		return nil, errors.New("[Service.SignIn] backend returned no token")
	}
	return &result, nil
}

func (s *Service) Me(ctx context.Context) (*users.User, error) {
	user, err := api.Get[users.User](ctx, s.client, "/users/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Me]")
	}
	return &user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	user, err := api.Send[users.User](ctx, s.client, http.MethodPut, "/users/me", update)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateProfile]")
	}
	return &user, nil
}

func (s *Service) ChangePassword(ctx context.Context, change users.PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	err := s.client.Do(ctx, api.Request{Method: http.MethodPut, Path: "/users/me/password", Body: change}, nil)
	return errors.Wrap(err, "[Service.ChangePassword]")
}

func (s *Service) do(ctx context.Context, method, path string, body any, op string) error {
	if err := s.client.Do(ctx, api.Request{Method: method, Path: path, Body: body}, nil); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func getPage[T any](ctx context.Context, c *api.Client, path string, query url.Values, base api.PageBase) (api.Page[T], error) {
	page, err := api.Get[api.Page[T]](ctx, c, path, query)
	if err != nil {
		return page, err
	}
	page.Number = base.Index(page.Number)
	return page, nil
}

func pageQuery(base api.PageBase, index, size int) url.Values {
	return url.Values{
		"page": {base.Param(index)},
		"size": {strconv.Itoa(size)},
	}
}

func classPath(classID int64, rest string) string {
	return fmt.Sprintf("/classes/%d%s", classID, rest)
}
