package services

import (
	"context"
	"errors"

	"threadline/internal/domain"
	"threadline/internal/repos"
)

const (
	PerPage      = 8
	relatedCount = 4
)

type CatalogService struct {
	Catalog Catalog
	Reviews *repos.ReviewRepo
}

func NewCatalogService(catalog Catalog, reviews *repos.ReviewRepo) *CatalogService {
	return &CatalogService{Catalog: catalog, Reviews: reviews}
}

type ProductPage struct {
	Products []domain.Product
	Page     int
	Pages    int
	Total    int
}

func (p ProductPage) HasPrev() bool { return p.Page > 1 }
func (p ProductPage) HasNext() bool { return p.Page < p.Pages }
func (p ProductPage) Prev() int     { return p.Page - 1 }
func (p ProductPage) Next() int     { return p.Page + 1 }

// Page returns one page of published products. Pages past the end are clamped to the last one.
func (s *CatalogService) Page(ctx context.Context, page int) (ProductPage, error) {
	if page < 1 {
		page = 1
	}
	products, total, err := s.Catalog.ListPublished(ctx, PerPage, (page-1)*PerPage)
	if err != nil {
		return ProductPage{}, err
	}
	pages := (total + PerPage - 1) / PerPage
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		return s.Page(ctx, pages)
	}
	return ProductPage{Products: products, Page: page, Pages: pages, Total: total}, nil
}

type ProductView struct {
	Product   domain.Product
	Reviews   []domain.Review
	AvgRating float64
	Related   []domain.Product
}

// Product returns a published product with its reviews and related products. Unpublished
// products are not found unless the caller is an admin.
func (s *CatalogService) Product(ctx context.Context, id string, viewer *domain.User) (ProductView, error) {
	p, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	if !p.Published && !viewer.IsAdmin() {
		return ProductView{}, domain.ErrNotFound
	}
	v := ProductView{Product: p}
	if v.Reviews, err = s.Reviews.ListByProduct(ctx, id); err != nil {
		return ProductView{}, err
	}
	v.AvgRating = AverageRating(v.Reviews)
	if v.Related, err = s.Catalog.Related(ctx, p, relatedCount); err != nil {
		return ProductView{}, err
	}
	return v, nil
}

func AverageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

func (s *CatalogService) ByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := s.Catalog.ByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrNotFound
	}
	return products, nil
}

func (s *CatalogService) Search(ctx context.Context, q string) ([]domain.Product, error) {
	return s.Catalog.Search(ctx, q, 50)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.Catalog.Categories(ctx)
}

func (s *CatalogService) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.Catalog.ListAll(ctx)
}

func (s *CatalogService) SetPublished(ctx context.Context, productID string, published bool) error {
	return s.Catalog.SetPublished(ctx, productID, published)
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
