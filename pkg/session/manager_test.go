package session

import (
	"context"
	"testing"
	"time"

	"github.com/brightbasket/brightbasket-backend/pkg/config"
	redisclient "github.com/brightbasket/brightbasket-backend/pkg/redis"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:            "test-secret",
		Issuer:            "brightbasket",
		ExpirationMinutes: 60,
	}
}

func newTestManager() (*Manager, *fakeStore) {
	store := &fakeStore{data: map[string]string{}}
	return &Manager{store: store, keyer: store, cfg: testConfig()}, store
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()

	sessionID, token, err := mgr.Issue(ctx, time.Now())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if sessionID == "" || token == "" {
		t.Fatalf("expected session id and token")
	}

	claims, err := mgr.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.SessionID != sessionID {
		t.Fatalf("expected session id %s got %s", sessionID, claims.SessionID)
	}
}

func TestValidateRejectsRevokedSession(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()

	sessionID, token, err := mgr.Issue(ctx, time.Now())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := mgr.Revoke(ctx, sessionID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := mgr.Validate(ctx, token); err != ErrInvalidSession {
		t.Fatalf("expected invalid session after revoke, got %v", err)
	}
}

func TestValidateRejectsGarbageToken(t *testing.T) {
	mgr, _ := newTestManager()
	if _, err := mgr.Validate(context.Background(), "not-a-jwt"); err != ErrInvalidSession {
		t.Fatalf("expected invalid session, got %v", err)
	}
	if _, err := mgr.Validate(context.Background(), ""); err != ErrInvalidSession {
		t.Fatalf("expected invalid session for empty token, got %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager()

	_, token, err := mgr.Issue(ctx, time.Now())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := &Manager{store: store, keyer: store, cfg: config.SessionConfig{
		Secret:            "different-secret",
		Issuer:            "brightbasket",
		ExpirationMinutes: 60,
	}}
	if _, err := other.Validate(ctx, token); err != ErrInvalidSession {
		t.Fatalf("expected invalid session for wrong secret, got %v", err)
	}
}

type fakeStore struct {
	data map[string]string
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = "1"
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redisclient.Nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) SessionKey(sessionID string) string {
	return "bb:session:" + sessionID
}
