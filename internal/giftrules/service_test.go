package giftrules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/redis"
)

type stubRuleStore struct {
	rules map[uuid.UUID]*models.FreeProductRule
}

func newStubRuleStore() *stubRuleStore {
	return &stubRuleStore{rules: map[uuid.UUID]*models.FreeProductRule{}}
}

func (s *stubRuleStore) Create(_ context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error) {
	for _, existing := range s.rules {
		if existing.ProductID == rule.ProductID {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	s.rules[rule.ID] = rule
	return rule, nil
}

func (s *stubRuleStore) Update(_ context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error) {
	for id, existing := range s.rules {
		if existing.ProductID == rule.ProductID && id != rule.ID {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	s.rules[rule.ID] = rule
	return rule, nil
}

func (s *stubRuleStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *stubRuleStore) FindByID(_ context.Context, id uuid.UUID) (*models.FreeProductRule, error) {
	if rule, ok := s.rules[id]; ok {
		return rule, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRuleStore) ListActive(_ context.Context) ([]models.FreeProductRule, error) {
	var out []models.FreeProductRule
	for _, rule := range s.rules {
		if rule.IsActive {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (s *stubRuleStore) ListAll(_ context.Context) ([]models.FreeProductRule, error) {
	var out []models.FreeProductRule
	for _, rule := range s.rules {
		out = append(out, *rule)
	}
	return out, nil
}

type stubProductChecker struct {
	known map[uuid.UUID]bool
}

func (s *stubProductChecker) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if s.known[id] {
		return &models.Product{ID: id}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRuleCacheStore struct {
	values map[string]string
	dels   int
}

func newFakeRuleCacheStore() *fakeRuleCacheStore {
	return &fakeRuleCacheStore{values: map[string]string{}}
}

func (f *fakeRuleCacheStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return nil
}

func (f *fakeRuleCacheStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeRuleCacheStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	f.dels++
	return nil
}

func (f *fakeRuleCacheStore) GiftRulesKey() string { return "bb:gift_rules:active" }

func newTestService(t *testing.T, products *stubProductChecker, cacheStore *fakeRuleCacheStore) (Service, *stubRuleStore) {
	t.Helper()
	store := newStubRuleStore()
	var cache *RuleCache
	if cacheStore != nil {
		cache = NewRuleCache(cacheStore, time.Minute, nil)
	}
	svc, err := NewService(store, products, cache)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestCreateRule_Validation(t *testing.T) {
	productID := uuid.New()
	svc, _ := newTestService(t, &stubProductChecker{known: map[uuid.UUID]bool{productID: true}}, nil)

	_, err := svc.Create(context.Background(), UpsertRuleInput{MinOrderValueCents: 100})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing product, got %v", err)
	}

	_, err = svc.Create(context.Background(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: -1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative threshold, got %v", err)
	}

	_, err = svc.Create(context.Background(), UpsertRuleInput{ProductID: uuid.New(), MinOrderValueCents: 100})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown product, got %v", err)
	}
}

func TestCreateRule_DuplicateProductConflicts(t *testing.T) {
	productID := uuid.New()
	svc, _ := newTestService(t, &stubProductChecker{known: map[uuid.UUID]bool{productID: true}}, nil)

	if _, err := svc.Create(context.Background(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: 5000, IsActive: true}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: 9000, IsActive: true})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for second rule on same product, got %v", err)
	}
}

func TestActiveRules_CacheAside(t *testing.T) {
	productID := uuid.New()
	cacheStore := newFakeRuleCacheStore()
	svc, store := newTestService(t, &stubProductChecker{known: map[uuid.UUID]bool{productID: true}}, cacheStore)

	created, err := svc.Create(context.Background(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: 2500, IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cacheStore.dels != 1 {
		t.Fatalf("expected create to invalidate cache once, got %d", cacheStore.dels)
	}

	rules, err := svc.ActiveRules(context.Background())
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 active rule, got %d", len(rules))
	}
	if _, ok := cacheStore.values[cacheStore.GiftRulesKey()]; !ok {
		t.Fatalf("expected read to populate the cache")
	}

	// Served from cache even after a direct store mutation.
	delete(store.rules, created.ID)
	rules, err = svc.ActiveRules(context.Background())
	if err != nil {
		t.Fatalf("active rules from cache: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected cached rule list, got %d rules", len(rules))
	}

	// An admin write drops the cache and the next read sees fresh state.
	if err := svc.Delete(context.Background(), created.ID); err == nil {
		t.Fatalf("expected not found deleting already-removed rule")
	}
	cacheStore.Del(context.Background(), cacheStore.GiftRulesKey())
	rules, err = svc.ActiveRules(context.Background())
	if err != nil {
		t.Fatalf("active rules after invalidation: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected empty rule list after invalidation, got %d", len(rules))
	}
}

func TestUpdateRule_NotFound(t *testing.T) {
	productID := uuid.New()
	svc, _ := newTestService(t, &stubProductChecker{known: map[uuid.UUID]bool{productID: true}}, nil)

	_, err := svc.Update(context.Background(), uuid.New(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: 100})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRule_InvalidatesCache(t *testing.T) {
	productID := uuid.New()
	cacheStore := newFakeRuleCacheStore()
	svc, _ := newTestService(t, &stubProductChecker{known: map[uuid.UUID]bool{productID: true}}, cacheStore)

	created, err := svc.Create(context.Background(), UpsertRuleInput{ProductID: productID, MinOrderValueCents: 2500, IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ActiveRules(context.Background()); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := cacheStore.values[cacheStore.GiftRulesKey()]; ok {
		t.Fatalf("expected delete to invalidate the cached rule list")
	}
}
