package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service serves profile reads and the admin customer list.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*Profile, error)
	ListCustomers(ctx context.Context, params pagination.Params, search string) (*pagination.Page[Profile], error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return NewProfile(user), nil
}

func (s *service) ListCustomers(ctx context.Context, params pagination.Params, search string) (*pagination.Page[Profile], error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListCustomers(ctx, params, search)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	page := &pagination.Page[Profile]{
		Items: make([]Profile, 0, len(rows)),
		Meta:  pagination.NewMeta(params, total),
	}
	for i := range rows {
		page.Items = append(page.Items, *NewProfile(&rows[i]))
	}
	return page, nil
}
