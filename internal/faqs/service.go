package faqs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	minTextRunes     = 10
	maxQuestionRunes = 500
	maxAnswerRunes   = 5000
	maxCategoryRunes = 50
)

type store interface {
	Create(ctx context.Context, faq *models.FAQ) error
	Update(ctx context.Context, faq *models.FAQ) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FAQ, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.FAQ, int64, error)
	Categories(ctx context.Context) ([]string, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	Stats(ctx context.Context) (total, active int64, err error)
}

// Service manages storefront help entries.
type Service interface {
	ListPublic(ctx context.Context, params pagination.Params, category, search string) (*pagination.Page[FAQDTO], error)
	Categories(ctx context.Context) ([]string, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Page[FAQDTO], error)
	Create(ctx context.Context, input Input) (*FAQDTO, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*FAQDTO, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*FAQDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
}

// Input is the admin payload for create and update. A nil IsActive keeps the
// current state, or true for a new entry.
type Input struct {
	Question string
	Answer   string
	Category string
	IsActive *bool
}

// ListFilters narrows a listing. Storefront switches to category order.
type ListFilters struct {
	Active     *bool
	Category   string
	Search     string
	Storefront bool
}

type FAQDTO struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Stats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

func FromModel(f models.FAQ) FAQDTO {
	return FAQDTO{
		ID:        f.ID,
		Question:  f.Question,
		Answer:    f.Answer,
		Category:  f.Category,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

var errFAQNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "FAQ not found")

type service struct {
	repo store
}

func NewService(repo store) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "faq repo is required")
	}
	return &service{repo: repo}, nil
}

// ListPublic only returns active entries.
func (s *service) ListPublic(ctx context.Context, params pagination.Params, category, search string) (*pagination.Page[FAQDTO], error) {
	active := true
	return s.List(ctx, params, ListFilters{Active: &active, Category: category, Search: search, Storefront: true})
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	out, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list faq categories")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Page[FAQDTO], error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list faqs")
	}
	items := make([]FAQDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return &pagination.Page[FAQDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*FAQDTO, error) {
	faq := &models.FAQ{IsActive: true}
	if err := apply(faq, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, faq); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create faq")
	}
	dto := FromModel(*faq)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*FAQDTO, error) {
	faq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(faq, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, faq); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update faq")
	}
	dto := FromModel(*faq)
	return &dto, nil
}

func (s *service) ToggleStatus(ctx context.Context, id uuid.UUID) (*FAQDTO, error) {
	if err := s.updateFields(ctx, id, map[string]any{"is_active": gorm.Expr("NOT is_active")}); err != nil {
		return nil, err
	}
	faq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*faq)
	return &dto, nil
}

// Delete is a soft delete; a second call reports not found.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.updateFields(ctx, id, map[string]any{"is_deleted": true})
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	total, active, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "faq stats")
	}
	return &Stats{Total: total, Active: active, Inactive: total - active}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.FAQ, error) {
	faq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errFAQNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load faq")
	}
	return faq, nil
}

func (s *service) updateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	affected, err := s.repo.UpdateFields(ctx, id, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update faq")
	}
	if affected == 0 {
		return errFAQNotFound
	}
	return nil
}

func apply(faq *models.FAQ, input Input) error {
	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer)
	category := strings.TrimSpace(input.Category)

	problems := map[string]string{}
	switch n := utf8.RuneCountInString(question); {
	case n < minTextRunes:
		problems["question"] = atLeast(minTextRunes)
	case n > maxQuestionRunes:
		problems["question"] = atMost(maxQuestionRunes)
	}
	switch n := utf8.RuneCountInString(answer); {
	case n < minTextRunes:
		problems["answer"] = atLeast(minTextRunes)
	case n > maxAnswerRunes:
		problems["answer"] = atMost(maxAnswerRunes)
	}
	switch n := utf8.RuneCountInString(category); {
	case n == 0:
		problems["category"] = "is required"
	case n > maxCategoryRunes:
		problems["category"] = atMost(maxCategoryRunes)
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid faq").WithDetails(problems)
	}

	faq.Question = question
	faq.Answer = answer
	faq.Category = category
	if input.IsActive != nil {
		faq.IsActive = *input.IsActive
	}
	return nil
}

func atLeast(n int) string { return fmt.Sprintf("must be at least %d characters", n) }

func atMost(n int) string { return fmt.Sprintf("must be at most %d characters", n) }
