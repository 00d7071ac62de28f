package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
)

func TestCatalogService_PageClamps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.catalogSv.Page(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 1, p.Pages)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p, err = e.catalogSv.Page(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Len(t, p.Products, 5)
}

func TestCatalogService_UnpublishedVisibleToAdminsOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.catalogSv.Product(ctx, "jacket-denim", alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.catalogSv.Product(ctx, "jacket-denim", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	v, err := e.catalogSv.Product(ctx, "jacket-denim", admin)
	require.NoError(t, err)
	assert.Equal(t, "Denim Jacket", v.Product.Name)
}

func TestCatalogService_ProductRelated(t *testing.T) {
	e := newEnv(t)
	v, err := e.catalogSv.Product(context.Background(), "tee-classic", nil)
	require.NoError(t, err)
	for _, r := range v.Related {
		assert.NotEqual(t, "tee-classic", r.ID)
		assert.True(t, r.Published)
	}
}

func TestCatalogService_ByCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	products, err := e.catalogSv.ByCategory(ctx, "T-Shirts")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = e.catalogSv.ByCategory(ctx, "jackets")
	assert.ErrorIs(t, err, domain.ErrNotFound, "only unpublished products in category")
}
