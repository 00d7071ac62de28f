package services

import (
	"context"
	"fmt"

	"threadline/internal/domain"
)

type InventoryService struct {
	Catalog Catalog
}

func NewInventoryService(c Catalog) *InventoryService {
	return &InventoryService{Catalog: c}
}

// Availability converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func Availability(qty int) domain.Availability {
	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}
}

// CheckAvailability reports stock for one size; unknown sizes are out of stock.
func (s *InventoryService) CheckAvailability(ctx context.Context, sizeID string) (domain.Availability, error) {
	sl, err := s.Catalog.FindSize(ctx, sizeID)
	if IsNotFound(err) || (err == nil && !sl.Published) {
		return Availability(0), nil
	}
	if err != nil {
		return domain.Availability{}, err
	}
	return Availability(sl.AvailableQty), nil
}

// InventoryRow is one size entry on the admin inventory page.
type InventoryRow struct {
	SizeID      string
	ProductID   string
	ProductName string
	Color       string
	Size        string
	Qty         int
	Published   bool
}

func (s *InventoryService) Rows(ctx context.Context) ([]InventoryRow, error) {
	products, err := s.Catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []InventoryRow
	for _, p := range products {
		for _, v := range p.Variants {
			for _, sz := range v.Sizes {
				out = append(out, InventoryRow{
					SizeID: sz.ID, ProductID: p.ID, ProductName: p.Name,
					Color: v.ColorName, Size: sz.Label, Qty: sz.AvailableQty, Published: p.Published,
				})
			}
		}
	}
	return out, nil
}

// SetQty overwrites a size's stock and returns the previous quantity.
func (s *InventoryService) SetQty(ctx context.Context, sizeID string, qty int) (int, error) {
	if qty < 0 {
		return 0, fmt.Errorf("%w: negative quantity", ErrInvalidInput)
	}
	sl, err := s.Catalog.FindSize(ctx, sizeID)
	if err != nil {
		return 0, err
	}
	if err := s.Catalog.SetSizeQty(ctx, sizeID, qty); err != nil {
		return 0, err
	}
	return sl.AvailableQty, nil
}
