package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/internal/domain"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

func (s *Store) findProducts(ctx context.Context, filter any, opts ...*options.FindOptions) ([]domain.Product, error) {
	cur, err := s.products.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var out []domain.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for i := range out {
		fillParentIDs(&out[i])
	}
	return out, nil
}

// fillParentIDs restores the parent links that are implied by nesting in the document.
func fillParentIDs(p *domain.Product) {
	for vi := range p.Variants {
		v := &p.Variants[vi]
		v.ProductID = p.ID
		for si := range v.Sizes {
			v.Sizes[si].VariantID = v.ID
		}
	}
}

func (s *Store) ListPublished(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	filter := bson.M{"is_published": true}
	total, err := s.products.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.findProducts(ctx, filter, options.Find().SetSort(newestFirst).SetSkip(int64(offset)).SetLimit(int64(limit)))
	return out, int(total), err
}

func (s *Store) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.findProducts(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "product_name", Value: 1}}))
}

func categoryFilter(category string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(category) + "$", "$options": "i"}
}

func (s *Store) ByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.findProducts(ctx, bson.M{"product_category": categoryFilter(category), "is_published": true},
		options.Find().SetSort(newestFirst))
}

func (s *Store) Related(ctx context.Context, p domain.Product, n int) ([]domain.Product, error) {
	return s.findProducts(ctx, bson.M{
		"product_category": categoryFilter(p.Category),
		"_id":              bson.M{"$ne": p.ID},
		"is_published":     true,
	}, options.Find().SetSort(newestFirst).SetLimit(int64(n)))
}

func (s *Store) Search(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	re := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	return s.findProducts(ctx, bson.M{
		"is_published": true,
		"$or":          bson.A{bson.M{"product_name": re}, bson.M{"product_description": re}},
	}, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var out []string
	vals, err := s.products.Distinct(ctx, "product_category", bson.M{"is_published": true})
	if err != nil {
		return out, err
	}
	for _, v := range vals {
		c, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected product_category type %T", v)
		}
		out = append(out, c)
	}
	return out, err
}

func (s *Store) Get(ctx context.Context, id string) (domain.Product, error) {
	return getProduct(ctx, s.products, bson.M{"_id": id})
}

func getProduct(ctx context.Context, col *mongo.Collection, filter any) (domain.Product, error) {
	var p domain.Product
	if err := col.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	fillParentIDs(&p)
	return p, nil
}

func stockLine(p domain.Product, v domain.Variant, sz domain.Size) domain.StockLine {
	sl := domain.StockLine{
		SizeID:       sz.ID,
		ProductID:    p.ID,
		ProductName:  p.Name,
		Price:        p.Price,
		Color:        v.ColorName,
		Size:         sz.Label,
		AvailableQty: sz.AvailableQty,
		Published:    p.Published,
	}
	if len(v.Images) > 0 {
		sl.Image = v.Images[0]
	}
	return sl
}

func (s *Store) FindSize(ctx context.Context, sizeID string) (domain.StockLine, error) {
	p, err := getProduct(ctx, s.products, bson.M{"product_variants.sizes._id": sizeID})
	if err != nil {
		return domain.StockLine{}, err
	}
	for _, v := range p.Variants {
		for _, sz := range v.Sizes {
			if sz.ID == sizeID {
				return stockLine(p, v, sz), nil
			}
		}
	}
	return domain.StockLine{}, domain.ErrNotFound
}

func (s *Store) Locate(ctx context.Context, productID, color, size string) (domain.StockLine, error) {
	return locate(ctx, s.products, productID, color, size)
}

func locate(ctx context.Context, col *mongo.Collection, productID, color, size string) (domain.StockLine, error) {
	p, err := getProduct(ctx, col, bson.M{"_id": productID})
	if err != nil {
		return domain.StockLine{}, err
	}
	v, ok := p.Variant(color)
	if !ok {
		return domain.StockLine{}, domain.ErrNotFound
	}
	sz, ok := v.Size(size)
	if !ok {
		return domain.StockLine{}, domain.ErrNotFound
	}
	return stockLine(p, v, sz), nil
}

func (s *Store) Stock(ctx context.Context, sizeIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(sizeIDs))
	if len(sizeIDs) == 0 {
		return out, nil
	}
	want := make(map[string]bool, len(sizeIDs))
	for _, id := range sizeIDs {
		want[id] = true
	}
	products, err := s.findProducts(ctx, bson.M{"product_variants.sizes._id": bson.M{"$in": sizeIDs}, "is_published": true})
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		for _, v := range p.Variants {
			for _, sz := range v.Sizes {
				if want[sz.ID] {
					out[sz.ID] = sz.AvailableQty
				}
			}
		}
	}
	return out, nil
}

func (s *Store) SetPublished(ctx context.Context, productID string, published bool) error {
	res, err := s.products.UpdateOne(ctx, bson.M{"_id": productID}, bson.M{"$set": bson.M{"is_published": published}})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetSizeQty(ctx context.Context, sizeID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must be non-negative, got %d", qty)
	}
	update := bson.M{"$set": bson.M{"product_variants.$[].sizes.$[s].available_qty": qty}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s._id": sizeID}},
	})
	res, err := s.products.UpdateOne(ctx, bson.M{"product_variants.sizes._id": sizeID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update size: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Variants == nil {
		p.Variants = []domain.Variant{}
	}
	if _, err := s.products.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := s.products.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"product_name":        p.Name,
		"product_description": p.Description,
		"product_price":       p.Price,
		"product_category":    p.Category,
	}})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddVariant pushes a new color unless the product already has one with that name.
func (s *Store) AddVariant(ctx context.Context, productID string, v domain.Variant) error {
	if v.Sizes == nil {
		v.Sizes = []domain.Size{}
	}
	res, err := s.products.UpdateOne(ctx,
		bson.M{"_id": productID, "product_variants.color_name": bson.M{"$ne": v.ColorName}},
		bson.M{"$push": bson.M{"product_variants": v}})
	if err != nil {
		return fmt.Errorf("failed to add variant: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.Get(ctx, productID); err != nil {
		return err
	}
	return domain.ErrDuplicate
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
