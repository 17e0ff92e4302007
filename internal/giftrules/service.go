package giftrules

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db"
	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
)

type ruleStore interface {
	Create(ctx context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error)
	Update(ctx context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FreeProductRule, error)
	ListActive(ctx context.Context) ([]models.FreeProductRule, error)
	ListAll(ctx context.Context) ([]models.FreeProductRule, error)
}

type productChecker interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the admin rule surface plus the read path the cart uses.
type Service interface {
	Create(ctx context.Context, input UpsertRuleInput) (*models.FreeProductRule, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertRuleInput) (*models.FreeProductRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.FreeProductRule, error)
	List(ctx context.Context) ([]models.FreeProductRule, error)
	ActiveRules(ctx context.Context) ([]models.FreeProductRule, error)
}

type service struct {
	repo     ruleStore
	products productChecker
	cache    *RuleCache
}

// NewService builds a rule service. The cache is optional.
func NewService(repo ruleStore, products productChecker, cache *RuleCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gift rule repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, products: products, cache: cache}, nil
}

// UpsertRuleInput captures the payload for create and update.
type UpsertRuleInput struct {
	ProductID          uuid.UUID
	MinOrderValueCents int64
	IsActive           bool
}

func (s *service) Create(ctx context.Context, input UpsertRuleInput) (*models.FreeProductRule, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	rule := &models.FreeProductRule{
		ProductID:          input.ProductID,
		MinOrderValueCents: input.MinOrderValueCents,
		IsActive:           input.IsActive,
	}
	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		if db.IsUniqueViolation(err, "free_product_rules_product_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a rule already exists for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gift rule")
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpsertRuleInput) (*models.FreeProductRule, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift rule")
	}

	existing.ProductID = input.ProductID
	existing.MinOrderValueCents = input.MinOrderValueCents
	existing.IsActive = input.IsActive

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if db.IsUniqueViolation(err, "free_product_rules_product_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a rule already exists for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gift rule")
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "gift rule not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete gift rule")
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.FreeProductRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift rule")
	}
	return rule, nil
}

func (s *service) List(ctx context.Context) ([]models.FreeProductRule, error) {
	rules, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gift rules")
	}
	return rules, nil
}

// ActiveRules serves the cart read path, cache-aside.
func (s *service) ActiveRules(ctx context.Context) ([]models.FreeProductRule, error) {
	if rules, ok := s.cache.Get(ctx); ok {
		return rules, nil
	}
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active gift rules")
	}
	s.cache.Put(ctx, rules)
	return rules, nil
}

func (s *service) validateInput(ctx context.Context, input UpsertRuleInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.MinOrderValueCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_order_value must be non-negative")
	}
	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "product does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify rule product")
	}
	return nil
}
