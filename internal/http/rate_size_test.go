package handlers_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"threadline/internal/http/handlers"
	"threadline/internal/repos"
)

// Minimal app with real routes and rate/body size limits
func newRateSizeApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	deps := handlers.NewDeps(db, testConfig(), handlers.Backend{})

	app := fiber.New(fiber.Config{Views: handlers.NewEngine(templatesDir)})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB
	app.Use(requestid.New())

	app.Get("/search", limiter.New(limiter.Config{Max: 3, Expiration: time.Second}), deps.SearchHandler.Search)
	api := app.Group("/api/v1")
	api.Get("/availability", limiter.New(limiter.Config{Max: 3, Expiration: time.Second}), deps.InventoryHandler.Check)
	app.Post("/cart", deps.CartHandler.Add)
	return app
}

// Burst hits return 429.
func TestRateLimits(t *testing.T) {
	app := newRateSizeApp(t)

	for _, path := range []string{"/api/v1/availability?sizeId=tee-classic-black-m", "/search?q=tee"} {
		for i := 0; i < 4; i++ {
			resp, err := app.Test(httptest.NewRequest("GET", path, nil))
			if err != nil {
				t.Fatal(err)
			}
			if i < 3 && resp.StatusCode == http.StatusTooManyRequests {
				t.Fatalf("%s: hit rate limit too early at %d", path, i)
			}
			if i == 3 && resp.StatusCode != http.StatusTooManyRequests {
				t.Fatalf("%s: expected 429 after limit, got %d", path, resp.StatusCode)
			}
		}
	}
}

// Oversized POST bodies are rejected.
func TestBodySizeLimit(t *testing.T) {
	app := newRateSizeApp(t)

	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest("POST", "/cart", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	// Fiber returns an error instead of a response when body too large; treat that as pass
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 413 for oversize, got %d body=%s", resp.StatusCode, string(body))
	}
}
