package repos

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"threadline/internal/domain"
)

type seedVariant struct {
	color, hex string
	qty        map[string]int
}

type seedProduct struct {
	id, name, desc, category string
	price                    int64
	published                bool
	variants                 []seedVariant
}

var demoCatalog = []seedProduct{
	{"tee-classic", "Classic Crew Tee", "Heavyweight cotton crew neck.", "t-shirts", 79900, true, []seedVariant{
		{"Black", "#111111", map[string]int{"S": 10, "M": 12, "L": 8, "XL": 4}},
		{"White", "#f5f5f5", map[string]int{"S": 6, "M": 9, "L": 7}},
	}},
	{"tee-graphic", "Graphic Tee", "Screen printed front, relaxed fit.", "t-shirts", 89900, true, []seedVariant{
		{"Sand", "#d8c3a5", map[string]int{"M": 5, "L": 5, "XL": 2}},
	}},
	{"shirt-linen", "Linen Shirt", "Breathable linen, button down.", "shirts", 149900, true, []seedVariant{
		{"Sky Blue", "#87ceeb", map[string]int{"S": 3, "M": 5, "L": 5}},
		{"Red", "#b22222", map[string]int{"M": 5, "L": 1}},
	}},
	{"jeans-slim", "Slim Jeans", "Stretch denim, slim through the leg.", "jeans", 249900, true, []seedVariant{
		{"Indigo", "#3f51b5", map[string]int{"S": 4, "M": 6, "L": 6, "XL": 3, "XXL": 1}},
	}},
	{"hoodie-fleece", "Fleece Hoodie", "Brushed fleece with kangaroo pocket.", "hoodies", 199900, true, []seedVariant{
		{"Charcoal", "#36454f", map[string]int{"M": 7, "L": 7, "XL": 5}},
		{"Olive", "#556b2f", map[string]int{"M": 0, "L": 2}},
	}},
	{"jacket-denim", "Denim Jacket", "Trucker jacket, coming soon.", "jackets", 349900, false, []seedVariant{
		{"Indigo", "#3f51b5", map[string]int{"M": 3, "L": 3}},
	}},
}

// SizeID is the stable id of a seeded size entry, e.g. "tee-classic-black-m".
func SizeID(productID, color, size string) string { return domain.SizeID(productID, color, size) }

// DemoProducts is the demo catalog shared by the sqlite and mongo backends.
func DemoProducts() []domain.Product {
	out := make([]domain.Product, 0, len(demoCatalog))
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, sp := range demoCatalog {
		p := domain.Product{
			ID: sp.id, Name: sp.name, Description: sp.desc, Price: sp.price,
			Category: sp.category, Published: sp.published,
			CreatedAt: created.Add(time.Duration(i) * time.Hour),
		}
		for _, sv := range sp.variants {
			vid := domain.VariantID(sp.id, sv.color)
			v := domain.Variant{
				ID: vid, ProductID: sp.id, ColorName: sv.color, ColorHex: sv.hex,
				Images: domain.ImagePaths(vid),
			}
			for _, label := range domain.SizeLabels {
				if qty, ok := sv.qty[label]; ok {
					v.Sizes = append(v.Sizes, domain.Size{ID: domain.SizeID(sp.id, sv.color, label), VariantID: vid, Label: label, AvailableQty: qty})
				}
			}
			p.Variants = append(p.Variants, v)
		}
		out = append(out, p)
	}
	return out
}

func seedCatalog(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/variants/sizes")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	for _, p := range DemoProducts() {
		if err := insertProduct(context.Background(), tx, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedUsers ensures an owner, an admin and two shoppers exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-owner", "owner@threadline.test", "Owner", domain.RoleOwner, "Passw0rd!"),
		mk("u-admin", "admin@threadline.test", "Admin", domain.RoleAdmin, "Passw0rd!"),
		mk("u-alice", "alice@threadline.test", "Alice", domain.RoleUser, "Passw0rd!"),
		mk("u-bob", "bob@threadline.test", "Bob", domain.RoleUser, "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}
