package handlers_test

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"threadline/internal/domain"
)

func productForm(name, price string) url.Values {
	return url.Values{
		"name":        {name},
		"category":    {"shirts"},
		"price":       {price},
		"description": {"Midweight corduroy with two chest pockets."},
		"published":   {"true"},
	}
}

func TestAdminCreatesProductWithColor(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.browser(t).as(ta, "u-admin")

	if resp := admin.get("/admin/products/new"); resp.StatusCode != http.StatusOK {
		t.Fatalf("new product form expected 200, got %d", resp.StatusCode)
	}
	if resp := admin.post("/admin/products", productForm("Corduroy Overshirt", "22.5.0")); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad price expected 400, got %d", resp.StatusCode)
	}

	var resp *http.Response
	entries := captureLogs(t, func() { resp = admin.post("/admin/products", productForm("Corduroy Overshirt", "2299")) })
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/products/corduroy-overshirt" {
		t.Fatalf("create: %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	if e, ok := findLog(entries, "admin.products.create"); !ok || e.Level != "audit" || e.UserID != "u-admin" {
		t.Fatalf("expected admin.products.create audit, got %+v", entries)
	}
	if resp := admin.post("/admin/products", productForm("Corduroy Overshirt", "2299")); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate expected 409, got %d", resp.StatusCode)
	}

	resp = admin.post("/admin/products/corduroy-overshirt/variants", url.Values{
		"color": {"Forest Green"}, "hex": {"#228b22"},
		"size": {"M", "XL"}, "qty_M": {"6"}, "qty_XL": {"2"}, "qty_S": {"9"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("add color expected redirect, got %d", resp.StatusCode)
	}
	if got := stockOf(t, ta, domain.SizeID("corduroy-overshirt", "Forest Green", "M")); got != 6 {
		t.Fatalf("new size stock = %d", got)
	}
	if _, err := ta.catalog.FindSize(ctxBG, domain.SizeID("corduroy-overshirt", "Forest Green", "S")); err == nil {
		t.Fatal("unchecked size must not be created")
	}

	resp = admin.post("/admin/products/corduroy-overshirt/variants", url.Values{"color": {"Navy"}, "size": {"XXXL"}, "qty_XXXL": {"1"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown size expected 400, got %d", resp.StatusCode)
	}
	resp = admin.post("/admin/products/corduroy-overshirt/variants", url.Values{"color": {"Navy"}, "size": {"S"}, "qty_S": {"-1"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative qty expected 400, got %d", resp.StatusCode)
	}

	shopper := ta.browser(t)
	page := shopper.get("/products/corduroy-overshirt")
	body, _ := io.ReadAll(page.Body)
	if page.StatusCode != http.StatusOK || !strings.Contains(string(body), "Forest Green") {
		t.Fatalf("shopper product page: %d", page.StatusCode)
	}
	if resp := addToCart(t, shopper, domain.SizeID("corduroy-overshirt", "Forest Green", "XL"), "2"); resp.StatusCode != http.StatusFound {
		t.Fatalf("new size add to cart expected redirect, got %d", resp.StatusCode)
	}
}

func TestAdminEditsAndDeletesProduct(t *testing.T) {
	ta := newTestApp(t)
	o := placeOrder(t, ta, "cs_keep_copy", "u-alice", 1)
	admin := ta.browser(t).as(ta, "u-admin")

	page := admin.get("/admin/products/shirt-linen")
	body, _ := io.ReadAll(page.Body)
	if page.StatusCode != http.StatusOK || !strings.Contains(string(body), `value="1499.00"`) {
		t.Fatalf("edit form: %d", page.StatusCode)
	}
	if resp := admin.get("/admin/products/no-such-product"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing product expected 404, got %d", resp.StatusCode)
	}

	form := productForm("Linen Shirt", "1299.50")
	if resp := admin.post("/admin/products/shirt-linen", form); resp.StatusCode != http.StatusFound {
		t.Fatalf("update expected redirect, got %d", resp.StatusCode)
	}
	p, err := ta.catalog.Get(ctxBG, "shirt-linen")
	if err != nil {
		t.Fatal(err)
	}
	if p.Price != 129950 || len(p.Variants) != 2 {
		t.Fatalf("updated product: price %d, %d colors", p.Price, len(p.Variants))
	}

	form.Set("category", "Shirts & Tops")
	if resp := admin.post("/admin/products/shirt-linen", form); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad category expected 400, got %d", resp.StatusCode)
	}

	if resp := admin.post("/admin/products/shirt-linen/delete", nil); resp.StatusCode != http.StatusFound {
		t.Fatalf("delete expected redirect, got %d", resp.StatusCode)
	}
	if resp := ta.browser(t).get("/products/shirt-linen"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted product expected 404, got %d", resp.StatusCode)
	}
	kept, err := ta.orders.Get(ctxBG, o.ID)
	if err != nil || kept.Details[0].ProductTitle != "Linen Shirt" {
		t.Fatalf("order should keep its copy: %+v %v", kept.Details, err)
	}
	if resp := admin.post("/admin/products/shirt-linen/delete", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
}

func TestProductAdminNeedsAdmin(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.browser(t).as(ta, "u-alice")

	if resp := alice.post("/admin/products", productForm("Sneaky Tee", "10")); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("shopper create expected 403, got %d", resp.StatusCode)
	}
	if resp := alice.post("/admin/products/tee-classic/delete", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("shopper delete expected 403, got %d", resp.StatusCode)
	}
	if _, err := ta.catalog.Get(ctxBG, "tee-classic"); err != nil {
		t.Fatalf("product should survive: %v", err)
	}
}

func TestAdminUserDetail(t *testing.T) {
	ta := newTestApp(t)
	placeOrder(t, ta, "cs_detail", "u-bob", 1)
	admin := ta.browser(t).as(ta, "u-admin")

	resp := admin.get("/admin/users/u-bob")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "bob@threadline.test") || !strings.Contains(string(body), domain.StatusOrderPlaced) {
		t.Fatalf("user detail: %d", resp.StatusCode)
	}
	if resp := admin.get("/admin/users/u-ghost"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing user expected 404, got %d", resp.StatusCode)
	}
	if resp := ta.browser(t).as(ta, "u-alice").get("/admin/users/u-bob"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("shopper expected 403, got %d", resp.StatusCode)
	}
}

func TestReviewEditByAuthor(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.browser(t).as(ta, "u-alice")
	if resp := alice.post("/products/shirt-linen/reviews", url.Values{"rating": {"2"}, "body": {"Runs small."}}); resp.StatusCode != http.StatusFound {
		t.Fatalf("create review expected redirect, got %d", resp.StatusCode)
	}
	var id string
	if err := ta.db.Get(&id, `SELECT id FROM reviews WHERE user_id = 'u-alice'`); err != nil {
		t.Fatal(err)
	}

	if resp := alice.get("/reviews/" + id + "/edit"); resp.StatusCode != http.StatusOK {
		t.Fatalf("edit form expected 200, got %d", resp.StatusCode)
	}
	bob := ta.browser(t).as(ta, "u-bob")
	if resp := bob.get("/reviews/" + id + "/edit"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("other user's edit form expected 403, got %d", resp.StatusCode)
	}
	var status int
	entries := captureLogs(t, func() {
		status = bob.post("/reviews/"+id+"/edit", url.Values{"rating": {"5"}, "body": {"hijacked"}}).StatusCode
	})
	if status != http.StatusForbidden {
		t.Fatalf("other user's edit expected 403, got %d", status)
	}
	if _, ok := findLog(entries, "access.denied.review"); !ok {
		t.Fatalf("expected access.denied.review, got %+v", entries)
	}
	if resp := ta.browser(t).as(ta, "u-admin").post("/reviews/"+id+"/edit", url.Values{"rating": {"5"}, "body": {"x"}}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin edit expected 403, got %d", resp.StatusCode)
	}

	resp := alice.post("/reviews/"+id+"/edit", url.Values{"rating": {"4"}, "body": {"Runs small, size up."}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/products/shirt-linen" {
		t.Fatalf("edit: %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	var rating int
	var body string
	if err := ta.db.QueryRow(`SELECT rating, body FROM reviews WHERE id = ?`, id).Scan(&rating, &body); err != nil {
		t.Fatal(err)
	}
	if rating != 4 || body != "Runs small, size up." {
		t.Fatalf("review after edit: %d %q", rating, body)
	}
}
