package fakebackend

import (
	"crypto/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "classroom-fakebackend"

// tokenMinter signs HS256 access tokens and remembers revoked token ids until
// they would have expired anyway.
type tokenMinter struct {
	key     []byte
	ttl     time.Duration
	nowTime func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time
}

func newTokenMinter(ttl time.Duration, nowTime func() time.Time) *tokenMinter {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &tokenMinter{key: key, ttl: ttl, nowTime: nowTime, revoked: make(map[string]time.Time)}
}

// mint creates an access token for acc. Roles travel in a Spring style
// "scope" claim ("ROLE_TEACHER ROLE_ADMIN").
func (m *tokenMinter) mint(acc *Account) (string, error) {
	now := m.nowTime()
	scopes := make([]string, 0, len(acc.Roles))
	for _, role := range acc.Roles {
		scopes = append(scopes, "ROLE_"+string(role))
	}
	claims := jwtlib.MapClaims{
		"iss":   tokenIssuer,
		"sub":   strconv.FormatInt(acc.User.ID, 10),
		"scope": strings.Join(scopes, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
		"jti":   uuid.NewString(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.key)
}

// verify returns the user id of a well signed, unexpired, unrevoked token.
func (m *tokenMinter) verify(raw string) (int64, bool) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(*jwtlib.Token) (any, error) { return m.key, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(m.nowTime),
	)
	if err != nil {
		return 0, false
	}
	if jti, _ := claims["jti"].(string); m.isRevoked(jti) {
		return 0, false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	return userID, err == nil
}

func (m *tokenMinter) revoke(raw string) {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return
	}
	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if jti == "" || err != nil || exp == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked()
	m.revoked[jti] = exp.Time
}

func (m *tokenMinter) isRevoked(jti string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[jti]
	return ok
}

// cleanupLocked drops entries whose token has expired.
func (m *tokenMinter) cleanupLocked() {
	now := m.nowTime()
	for jti, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, jti)
		}
	}
}
