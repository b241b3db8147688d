package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateDerivesSlug(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CategoryInput{Name: "Women's Dresses"})
	require.NoError(t, err)
	assert.Equal(t, "women-s-dresses", created.Slug)

	_, err = svc.Create(ctx, CategoryInput{Name: "Dresses", Slug: "women-s-dresses"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CategoryInput{Name: "  "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Create(ctx, CategoryInput{Name: "Shoes", Slug: "Not A Slug"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	missing := uuid.New()
	_, err = svc.Create(ctx, CategoryInput{Name: "Boots", ParentID: &missing})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDeleteBlockedByChildren(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, CategoryInput{Name: "Men"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CategoryInput{Name: "Men Shirts", ParentID: &parent.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, parent.ID)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	err = svc.Delete(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CategoryInput{Name: "Kids"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, CategoryInput{Name: "Kids", ParentID: &created.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	updated, err := svc.Update(ctx, created.ID, CategoryInput{Name: "Children"})
	require.NoError(t, err)
	assert.Equal(t, "children", updated.Slug)
}
