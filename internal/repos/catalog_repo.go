package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

// CatalogRepo reads products with their variants and sizes, and backs the admin catalog edits.
type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const productCols = `id, name, description, price, category, published, created_at`

const stockLineQuery = `
  SELECT s.id AS size_id, p.id AS product_id, p.name AS product_name, p.price,
         v.color_name, s.label, s.available_qty,
         COALESCE(json_extract(v.images_json, '$[0]'), '') AS image,
         p.published
  FROM sizes s
  JOIN variants v ON v.id = s.variant_id
  JOIN products p ON p.id = v.product_id`

type variantRow struct {
	domain.Variant
	ImagesJSON string `db:"images_json"`
}

// ListPublished returns one page of published products, newest first, and the total count.
func (r *CatalogRepo) ListPublished(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products WHERE published = 1`); err != nil {
		return nil, 0, err
	}
	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE published = 1
	  ORDER BY created_at DESC, id
	  LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, r.attachVariants(ctx, out)
}

func (r *CatalogRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products ORDER BY name`); err != nil {
		return nil, err
	}
	return out, r.attachVariants(ctx, out)
}

func (r *CatalogRepo) ByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE LOWER(category) = LOWER(?) AND published = 1
	  ORDER BY created_at DESC, id`, category)
	if err != nil {
		return nil, err
	}
	return out, r.attachVariants(ctx, out)
}

// Related returns up to n other published products in p's category.
func (r *CatalogRepo) Related(ctx context.Context, p domain.Product, n int) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE LOWER(category) = LOWER(?) AND id <> ? AND published = 1
	  ORDER BY created_at DESC, id
	  LIMIT ?`, p.Category, p.ID, n)
	if err != nil {
		return nil, err
	}
	return out, r.attachVariants(ctx, out)
}

// Search matches published products by name or description.
func (r *CatalogRepo) Search(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	like := "%" + strings.ToLower(q) + "%"
	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE published = 1 AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)
	  ORDER BY created_at DESC, id
	  LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, err
	}
	return out, r.attachVariants(ctx, out)
}

func (r *CatalogRepo) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT category FROM products WHERE published = 1 ORDER BY category`)
	return out, err
}

// Get returns a product with all of its variants and sizes, published or not.
func (r *CatalogRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	if err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id); err != nil {
		return domain.Product{}, notFound(err)
	}
	one := []domain.Product{p}
	if err := r.attachVariants(ctx, one); err != nil {
		return domain.Product{}, err
	}
	return one[0], nil
}

// FindSize looks up a size entry by id.
func (r *CatalogRepo) FindSize(ctx context.Context, sizeID string) (domain.StockLine, error) {
	var sl domain.StockLine
	if err := r.db.GetContext(ctx, &sl, stockLineQuery+` WHERE s.id = ?`, sizeID); err != nil {
		return domain.StockLine{}, notFound(err)
	}
	return sl, nil
}

// Locate walks product -> variant (by color) -> size (by label).
func (r *CatalogRepo) Locate(ctx context.Context, productID, color, size string) (domain.StockLine, error) {
	return locate(ctx, r.db, productID, color, size)
}

func locate(ctx context.Context, q sqlx.QueryerContext, productID, color, size string) (domain.StockLine, error) {
	var sl domain.StockLine
	err := sqlx.GetContext(ctx, q, &sl, stockLineQuery+`
	  WHERE p.id = ? AND v.color_name = ? AND s.label = ?`, productID, color, size)
	if err != nil {
		return domain.StockLine{}, notFound(err)
	}
	return sl, nil
}

// Stock returns current availability keyed by size id. Unknown ids are absent from the map.
func (r *CatalogRepo) Stock(ctx context.Context, sizeIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(sizeIDs))
	if len(sizeIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
	  SELECT s.id, s.available_qty
	  FROM sizes s
	  JOIN variants v ON v.id = s.variant_id
	  JOIN products p ON p.id = v.product_id
	  WHERE s.id IN (?) AND p.published = 1`, sizeIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID  string `db:"id"`
		Qty int    `db:"available_qty"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Qty
	}
	return out, nil
}

func (r *CatalogRepo) SetPublished(ctx context.Context, productID string, published bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET published = ? WHERE id = ?`, published, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetSizeQty overwrites the available quantity of one size entry.
func (r *CatalogRepo) SetSizeQty(ctx context.Context, sizeID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must be non-negative, got %d", qty)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE sizes SET available_qty = ? WHERE id = ?`, qty, sizeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateProduct inserts p with its variants and sizes. An existing id is domain.ErrDuplicate.
func (r *CatalogRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := insertProduct(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func insertProduct(ctx context.Context, tx *sqlx.Tx, p domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `
	  INSERT INTO products(id, name, description, price, category, published, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?)
	  ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Published, p.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicate
	}
	for i, v := range p.Variants {
		if err := insertVariant(ctx, tx, p.ID, v, i); err != nil {
			return err
		}
	}
	return nil
}

func insertVariant(ctx context.Context, tx *sqlx.Tx, productID string, v domain.Variant, position int) error {
	if v.Images == nil {
		v.Images = []string{}
	}
	images, err := json.Marshal(v.Images)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
	  INSERT INTO variants(id, product_id, color_name, color_hex, images_json, position)
	  VALUES (?, ?, ?, ?, ?, ?)
	  ON CONFLICT DO NOTHING`,
		v.ID, productID, v.ColorName, v.ColorHex, string(images), position)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicate
	}
	for i, sz := range v.Sizes {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO sizes(id, variant_id, label, available_qty, position) VALUES (?, ?, ?, ?, ?)`,
			sz.ID, v.ID, sz.Label, sz.AvailableQty, i); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProduct overwrites the descriptive fields and price of p.ID. Variants are untouched.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products SET name = ?, description = ?, price = ?, category = ?
	  WHERE id = ?`, p.Name, p.Description, p.Price, p.Category, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddVariant appends a color to an existing product. A color the product already has is
// domain.ErrDuplicate.
func (r *CatalogRepo) AddVariant(ctx context.Context, productID string, v domain.Variant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	var position int
	if err := tx.GetContext(ctx, &position, `SELECT COUNT(*) FROM products WHERE id = ?`, productID); err != nil {
		return err
	}
	if position == 0 {
		return domain.ErrNotFound
	}
	if err := tx.GetContext(ctx, &position, `SELECT COUNT(*) FROM variants WHERE product_id = ?`, productID); err != nil {
		return err
	}
	if err := insertVariant(ctx, tx, productID, v, position); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProduct removes a product; its variants, sizes and reviews go with it. Orders keep
// their own copies of what was bought.
func (r *CatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) attachVariants(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	query, args, err := sqlx.In(`
	  SELECT id, product_id, color_name, color_hex, images_json
	  FROM variants WHERE product_id IN (?)
	  ORDER BY position, id`, ids)
	if err != nil {
		return err
	}
	var vrows []variantRow
	if err := r.db.SelectContext(ctx, &vrows, r.db.Rebind(query), args...); err != nil {
		return err
	}
	if len(vrows) == 0 {
		return nil
	}

	vids := make([]string, len(vrows))
	for i, v := range vrows {
		vids[i] = v.ID
	}
	query, args, err = sqlx.In(`
	  SELECT id, variant_id, label, available_qty
	  FROM sizes WHERE variant_id IN (?)
	  ORDER BY position, id`, vids)
	if err != nil {
		return err
	}
	var sizes []domain.Size
	if err := r.db.SelectContext(ctx, &sizes, r.db.Rebind(query), args...); err != nil {
		return err
	}
	byVariant := map[string][]domain.Size{}
	for _, s := range sizes {
		byVariant[s.VariantID] = append(byVariant[s.VariantID], s)
	}

	byProduct := map[string][]domain.Variant{}
	for _, vr := range vrows {
		v := vr.Variant
		if err := json.Unmarshal([]byte(vr.ImagesJSON), &v.Images); err != nil {
			return fmt.Errorf("variant %s images: %w", v.ID, err)
		}
		v.Sizes = byVariant[v.ID]
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
	}
	return nil
}
