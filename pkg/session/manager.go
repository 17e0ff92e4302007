package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brightbasket/brightbasket-backend/pkg/config"
	redisclient "github.com/brightbasket/brightbasket-backend/pkg/redis"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var ErrInvalidSession = errors.New("invalid session token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Claims is the typed JWT issued to anonymous storefront visitors. The
// session id doubles as the cart owner reference.
type Claims struct {
	SessionID string  `json:"session_id"`
	UserID    *string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and validates storefront session tokens, tracking live
// session ids in Redis so they can be revoked.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	cfg   config.SessionConfig
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("session issuer is required")
	}
	if cfg.TTL() <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, keyer: client, cfg: cfg}, nil
}

// Issue creates a new anonymous session: a fresh session id tracked in Redis
// plus a signed JWT carrying it.
func (m *Manager) Issue(ctx context.Context, now time.Time) (string, string, error) {
	sessionID := uuid.NewString()

	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL())),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("signing session token: %w", err)
	}

	if err := m.store.Set(ctx, m.keyer.SessionKey(sessionID), "1", m.cfg.TTL()); err != nil {
		return "", "", err
	}

	return sessionID, signed, nil
}

// Validate parses the token and confirms the session id is still live.
func (m *Manager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(m.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
	)
	if err != nil {
		return nil, ErrInvalidSession
	}

	if _, err := m.store.Get(ctx, m.keyer.SessionKey(claims.SessionID)); err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	return claims, nil
}

// Revoke drops the session id from Redis; outstanding tokens stop validating.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}
