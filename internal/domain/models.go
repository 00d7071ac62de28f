package domain

import "time"

// Product is a catalog entry. Price is in the smallest currency unit.
type Product struct {
	ID          string    `db:"id" bson:"_id" json:"id"`
	Name        string    `db:"name" bson:"product_name" json:"name"`
	Description string    `db:"description" bson:"product_description" json:"description"`
	Price       int64     `db:"price" bson:"product_price" json:"price"`
	Category    string    `db:"category" bson:"product_category" json:"category"`
	Published   bool      `db:"published" bson:"is_published" json:"published"`
	Variants    []Variant `db:"-" bson:"product_variants" json:"variants"`
	CreatedAt   time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

type Variant struct {
	ID        string   `db:"id" bson:"_id" json:"id"`
	ProductID string   `db:"product_id" bson:"-" json:"-"`
	ColorName string   `db:"color_name" bson:"color_name" json:"color_name"`
	ColorHex  string   `db:"color_hex" bson:"color_hex_code" json:"color_hex"`
	Images    []string `db:"-" bson:"images" json:"images"`
	Sizes     []Size   `db:"-" bson:"sizes" json:"sizes"`
}

// Size is the innermost stock record for one product/color/size combination.
type Size struct {
	ID           string `db:"id" bson:"_id" json:"id"`
	VariantID    string `db:"variant_id" bson:"-" json:"-"`
	Label        string `db:"label" bson:"size" json:"size"`
	AvailableQty int    `db:"available_qty" bson:"available_qty" json:"available_qty"`
}

// StockLine is a located size entry together with the fields needed to price and label it.
type StockLine struct {
	SizeID       string `db:"size_id"`
	ProductID    string `db:"product_id"`
	ProductName  string `db:"product_name"`
	Price        int64  `db:"price"`
	Color        string `db:"color_name"`
	Size         string `db:"label"`
	AvailableQty int    `db:"available_qty"`
	Image        string `db:"image"`
	Published    bool   `db:"published"`
}

// Variant returns the variant with the given color, if any.
func (p Product) Variant(color string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ColorName == color {
			return v, true
		}
	}
	return Variant{}, false
}

// Size returns the size entry with the given label, if any.
func (v Variant) Size(label string) (Size, bool) {
	for _, s := range v.Sizes {
		if s.Label == label {
			return s, true
		}
	}
	return Size{}, false
}

// TotalStock sums available quantity over all variants and sizes.
func (p Product) TotalStock() int {
	n := 0
	for _, v := range p.Variants {
		for _, s := range v.Sizes {
			n += s.AvailableQty
		}
	}
	return n
}

type Review struct {
	ID        string    `db:"id"`
	ProductID string    `db:"product_id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	Rating    int       `db:"rating"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// Availability is the shopper-facing stock label for one size.
type Availability struct {
	Status string // IN_STOCK, LOW_STOCK, OUT_OF_STOCK
	Qty    int
}
