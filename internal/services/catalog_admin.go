package services

import (
	"context"
	"errors"
	"fmt"

	"threadline/internal/domain"
	"threadline/internal/validate"
)

// ProductInput is the admin product form after field parsing.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       int64
	Published   bool
}

func (in ProductInput) clean() (ProductInput, error) {
	var ok bool
	if in.Name, ok = validate.Name(in.Name); !ok {
		return in, fmt.Errorf("%w: name", ErrInvalidInput)
	}
	if in.Description, ok = validate.Text(in.Description, 500); !ok {
		return in, fmt.Errorf("%w: description", ErrInvalidInput)
	}
	if in.Category, ok = validate.Category(in.Category); !ok {
		return in, fmt.Errorf("%w: category", ErrInvalidInput)
	}
	if in.Price <= 0 {
		return in, fmt.Errorf("%w: price", ErrInvalidInput)
	}
	return in, nil
}

// SizeInput is one size row of the add-color form.
type SizeInput struct {
	Label string
	Qty   int
}

// VariantInput is the add-color form.
type VariantInput struct {
	Color string
	Hex   string
	Sizes []SizeInput
}

// CreateProduct adds a product without colors. Its id is derived from the name.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	in, err := in.clean()
	if err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{
		ID:          domain.Slug(in.Name),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Published:   in.Published,
	}
	if _, ok := validate.ID(p.ID); !ok {
		return domain.Product{}, fmt.Errorf("%w: name", ErrInvalidInput)
	}
	if err := s.Catalog.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return p, ErrExists
		}
		return p, err
	}
	return p, nil
}

// UpdateProduct edits name, description, category and price. Publication has its own toggle.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	in, err := in.clean()
	if err != nil {
		return domain.Product{}, err
	}
	p, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p.Name, p.Description, p.Category, p.Price = in.Name, in.Description, in.Category, in.Price
	return p, s.Catalog.UpdateProduct(ctx, p)
}

// AddVariant adds a color with its sizes to a product. Sizes are stored in display order and
// each label may appear once.
func (s *CatalogService) AddVariant(ctx context.Context, productID string, in VariantInput) (domain.Variant, error) {
	color, ok := validate.Color(in.Color)
	if !ok {
		return domain.Variant{}, fmt.Errorf("%w: color", ErrInvalidInput)
	}
	hex, ok := validate.HexColor(in.Hex)
	if !ok {
		return domain.Variant{}, fmt.Errorf("%w: hex", ErrInvalidInput)
	}
	if len(in.Sizes) == 0 {
		return domain.Variant{}, fmt.Errorf("%w: at least one size", ErrInvalidInput)
	}

	vid := domain.VariantID(productID, color)
	qty := map[string]int{}
	for _, sz := range in.Sizes {
		label, ok := validate.Size(sz.Label)
		if !ok || sz.Qty < 0 {
			return domain.Variant{}, fmt.Errorf("%w: size %q", ErrInvalidInput, sz.Label)
		}
		if _, dup := qty[label]; dup {
			return domain.Variant{}, fmt.Errorf("%w: size %s listed twice", ErrInvalidInput, label)
		}
		qty[label] = sz.Qty
	}
	v := domain.Variant{ID: vid, ProductID: productID, ColorName: color, ColorHex: hex, Images: domain.ImagePaths(vid)}
	for _, label := range domain.SizeLabels {
		if n, ok := qty[label]; ok {
			v.Sizes = append(v.Sizes, domain.Size{ID: domain.SizeID(productID, color, label), VariantID: vid, Label: label, AvailableQty: n})
		}
	}

	if err := s.Catalog.AddVariant(ctx, productID, v); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return v, ErrExists
		}
		return v, err
	}
	return v, nil
}

// DeleteProduct removes a product together with its reviews. Placed orders keep their copies.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.Catalog.DeleteProduct(ctx, id); err != nil {
		return p, err
	}
	// The sqlite catalog cascades; a mongo catalog leaves them behind in the review table.
	return p, s.Reviews.DeleteByProduct(ctx, id)
}

// AdminProduct returns any product, published or not, for the admin edit form.
func (s *CatalogService) AdminProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Catalog.Get(ctx, id)
}
