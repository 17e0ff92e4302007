package product

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db"
	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/pagination"
)

var csvHeader = []string{"slug", "title", "price", "currency", "category", "active"}

type productStore interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
}

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, input UpsertProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertProductInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, string, error)
	ImportCSV(ctx context.Context, r io.Reader) (*ImportSummary, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

type service struct {
	repo productStore
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo productStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// UpsertProductInput captures the payload for create and update.
type UpsertProductInput struct {
	Slug        string
	Title       string
	Description *string
	Category    string
	PriceCents  int64
	Currency    string
	IsActive    bool
}

// ImportSummary reports the outcome of a CSV import.
type ImportSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (s *service) Create(ctx context.Context, input UpsertProductInput) (*models.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	p := &models.Product{
		Slug:        strings.TrimSpace(input.Slug),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		PriceCents:  input.PriceCents,
		Currency:    normalizeCurrency(input.Currency),
		IsActive:    input.IsActive,
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		if db.IsUniqueViolation(err, "products_slug_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpsertProductInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	existing.Slug = strings.TrimSpace(input.Slug)
	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = input.Description
	existing.Category = strings.TrimSpace(input.Category)
	existing.PriceCents = input.PriceCents
	existing.Currency = normalizeCurrency(input.Currency)
	existing.IsActive = input.IsActive

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if db.IsUniqueViolation(err, "products_slug_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Product, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id or slug is required")
	}

	var (
		found *models.Product
		err   error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		found, err = s.repo.FindByID(ctx, id)
	} else {
		found, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return found, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// ImportCSV upserts catalog rows keyed by slug. Malformed rows are skipped
// and counted rather than failing the whole file.
func (s *service) ImportCSV(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading csv header")
	}
	if !headerMatches(header) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unexpected csv header").
			WithDetails(map[string]any{"expected": csvHeader})
	}

	summary := &ImportSummary{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Skipped++
			continue
		}

		input, ok := parseCSVRecord(record)
		if !ok {
			summary.Skipped++
			continue
		}

		existing, err := s.repo.FindBySlug(ctx, input.Slug)
		switch {
		case err == nil:
			if _, err := s.Update(ctx, existing.ID, input); err != nil {
				summary.Skipped++
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := s.Create(ctx, input); err != nil {
				summary.Skipped++
				continue
			}
			summary.Created++
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up slug during import")
		}
	}
	return summary, nil
}

func (s *service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products for export")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv header")
	}
	for _, p := range rows {
		price := decimal.NewFromInt(p.PriceCents).Div(decimal.NewFromInt(100))
		record := []string{
			p.Slug,
			p.Title,
			price.StringFixed(2),
			p.Currency,
			p.Category,
			strconv.FormatBool(p.IsActive),
		}
		if err := writer.Write(record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv record")
		}
	}
	writer.Flush()
	return writer.Error()
}

func validateInput(input UpsertProductInput) error {
	if strings.TrimSpace(input.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	return nil
}

func normalizeCurrency(value string) string {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return "USD"
	}
	return currency
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), csvHeader[i]) {
			return false
		}
	}
	return true
}

func parseCSVRecord(record []string) (UpsertProductInput, bool) {
	if len(record) != len(csvHeader) {
		return UpsertProductInput{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil || price.IsNegative() {
		return UpsertProductInput{}, false
	}
	active, err := strconv.ParseBool(strings.TrimSpace(record[5]))
	if err != nil {
		return UpsertProductInput{}, false
	}

	return UpsertProductInput{
		Slug:       strings.TrimSpace(record[0]),
		Title:      strings.TrimSpace(record[1]),
		Category:   strings.TrimSpace(record[4]),
		PriceCents: price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:   record[3],
		IsActive:   active,
	}, true
}
