// Package auth hashes passwords and issues and validates bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the user a token was issued to.
type Claims struct {
	Username string `json:"username"`
	ID       uint   `json:"id"`
	jwt.StandardClaims
}

// Key is a named HMAC signing secret.
type Key struct {
	ID     string
	Secret []byte
}

// TokenIssuer mints tokens for authenticated users.
type TokenIssuer interface {
	Issue(username string, id uint) (string, error)
}

// TokenValidator checks tokens presented by clients.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// TokenManager signs tokens with its active key and accepts tokens signed by
// the active key or any retired key, so secrets can be rotated without
// invalidating tokens already in circulation.
type TokenManager struct {
	active Key
	keys   map[string][]byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. A ttl of zero issues tokens that
// never expire.
func NewTokenManager(active Key, retired []Key, ttl time.Duration) (*TokenManager, error) {
	if active.ID == "" || len(active.Secret) == 0 {
		return nil, fmt.Errorf("active signing key must have an id and a non-empty secret")
	}
	keys := map[string][]byte{active.ID: active.Secret}
	for _, k := range retired {
		if k.ID == "" || len(k.Secret) == 0 {
			return nil, fmt.Errorf("retired signing key %q must have an id and a non-empty secret", k.ID)
		}
		if _, dup := keys[k.ID]; dup {
			return nil, fmt.Errorf("duplicate signing key id %q", k.ID)
		}
		keys[k.ID] = k.Secret
	}
	return &TokenManager{
		active: active,
		keys:   keys,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns an HS256 token carrying username and id.
func (m *TokenManager) Issue(username string, id uint) (string, error) {
	now := m.now()
	claims := Claims{
		Username: username,
		ID:       id,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = now.Add(m.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.active.ID

	signed, err := token.SignedString(m.active.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and returns the embedded claims. Every
// failure wraps ErrInvalidToken.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	kid, present := token.Header["kid"]
	if !present {
		return m.active.Secret, nil
	}
	id, ok := kid.(string)
	if !ok {
		return nil, fmt.Errorf("malformed key id %v", kid)
	}
	secret, ok := m.keys[id]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", id)
	}
	return secret, nil
}
