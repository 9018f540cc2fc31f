package sessions

import (
	"encoding/json"
	"strconv"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/storage"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
)

// Fixed storage keys of the persisted session.
const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
	KeyRoles       = "roles"
	KeyUserID      = "userId"
)

// Stored is the persisted token/user/roles triple.
type Stored struct {
	Token string
	User  users.User
	Roles users.Roles
}

// TokenStore persists the session under the fixed keys. The token and the
// user are always written and cleared together.
type TokenStore struct {
	store storage.Store
}

func NewTokenStore(store storage.Store) *TokenStore {
	return &TokenStore{store: store}
}

func (ts *TokenStore) Save(token string, user users.User, roles users.Roles) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[TokenStore.Save] encode user")
	}
	if roles == nil {
		roles = users.Roles{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return errors.Wrap(err, "[TokenStore.Save] encode roles")
	}

	for _, kv := range [][2]string{
		{KeyAccessToken, token},
		{KeyUser, string(userJSON)},
		{KeyRoles, string(rolesJSON)},
		{KeyUserID, strconv.FormatInt(user.ID, 10)},
	} {
		if err := ts.store.Set(kv[0], kv[1]); err != nil {
			_ = ts.Clear()
			return errors.Wrapf(err, "[TokenStore.Save] set %s", kv[0])
		}
	}
	return nil
}

// Load returns the stored session, nil when nothing is stored, or
// ErrStorageCorrupted when only part of it is present or it cannot be decoded.
func (ts *TokenStore) Load() (*Stored, error) {
	token, tokenErr := ts.get(KeyAccessToken)
	userJSON, userErr := ts.get(KeyUser)
	if tokenErr != nil || userErr != nil {
		return nil, errors.Wrap(firstErr(tokenErr, userErr), "[TokenStore.Load]")
	}
	if token == "" && userJSON == "" {
		return nil, nil
	}
	if token == "" || userJSON == "" {
		return nil, errors.Wrap(clienterrors.ErrStorageCorrupted, "[TokenStore.Load] token and user must be stored together")
	}

	stored := &Stored{Token: token}
	if err := json.Unmarshal([]byte(userJSON), &stored.User); err != nil {
		return nil, errors.Wrapf(clienterrors.ErrStorageCorrupted, "[TokenStore.Load] user: %v", err)
	}

	rolesJSON, err := ts.get(KeyRoles)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenStore.Load]")
	}
	if rolesJSON != "" {
		var raw []string
		if err := json.Unmarshal([]byte(rolesJSON), &raw); err != nil {
			return nil, errors.Wrapf(clienterrors.ErrStorageCorrupted, "[TokenStore.Load] roles: %v", err)
		}
		stored.Roles = users.ParseRoles(raw)
	}
	return stored, nil
}

// Token returns the stored access token or "".
func (ts *TokenStore) Token() string {
	token, _ := ts.get(KeyAccessToken)
	return token
}

// UserID returns the cached numeric user id.
func (ts *TokenStore) UserID() (int64, bool) {
	raw, err := ts.get(KeyUserID)
	if err != nil || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (ts *TokenStore) Clear() error {
	if err := ts.store.Delete(KeyAccessToken, KeyUser, KeyRoles, KeyUserID); err != nil {
		return errors.Wrap(err, "[TokenStore.Clear]")
	}
	return nil
}

func (ts *TokenStore) get(key string) (string, error) {
	value, err := ts.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return value, err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
