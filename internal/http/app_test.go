package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"threadline/internal/config"
	"threadline/internal/http/handlers"
	applog "threadline/internal/log"
	"threadline/internal/payment"
	"threadline/internal/repos"
)

var ctxBG = context.Background()

const (
	templatesDir  = "../../web/templates"
	webhookSecret = "whsec_test_secret"
)

func testConfig() config.Config {
	return config.Config{
		DBDSN:               ":memory:",
		AppURL:              "http://shop.test",
		CartSealKey:         "test-seal-key",
		ShippingFee:         9900,
		CartMaxPerLine:      10,
		StripeWebhookSecret: webhookSecret,
	}
}

// fakeGateway opens no real sessions but parses webhooks with the real verifier.
type fakeGateway struct {
	*payment.Gateway
	mu   sync.Mutex
	got  []payment.CheckoutRequest
	fail error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return "", g.fail
	}
	if _, err := payment.EncodeMetadata(req); err != nil {
		return "", err
	}
	g.got = append(g.got, req)
	return "https://checkout.example/cs_test", nil
}

func (g *fakeGateway) requests() []payment.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.CheckoutRequest(nil), g.got...)
}

type testApp struct {
	app     *fiber.App
	db      *sqlx.DB
	gateway *fakeGateway
	users   *repos.UserRepo
	orders  *repos.OrderRepo
	catalog *repos.CatalogRepo
}

// newTestApp wires the full route table the way main does, minus rate limits and access logs.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gw := &fakeGateway{Gateway: payment.NewGateway(payment.Config{WebhookSecret: webhookSecret})}
	deps := handlers.NewDeps(db, cfg, handlers.Backend{Gateway: gw})

	app := fiber.New(fiber.Config{
		Views:          handlers.NewEngine(templatesDir),
		ErrorHandler:   friendlyErrors,
		ReadBufferSize: handlers.ReadBufferSize,
	})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(handlers.AttachUser(deps.Auth))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Next:           func(c *fiber.Ctx) bool { return c.Path() == handlers.WebhookPath },
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	handlers.Mount(app, deps)
	app.Use(handlers.NotFound)

	return &testApp{
		app:     app,
		db:      db,
		gateway: gw,
		users:   repos.NewUserRepo(db),
		orders:  repos.NewOrderRepo(db),
		catalog: repos.NewCatalogRepo(db),
	}
}

func friendlyErrors(c *fiber.Ctx, err error) error {
	applog.Error(c, "server.error", err, nil)
	if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
		"Message": "Something went wrong. Please try again.",
	}); rerr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
	}
	return nil
}

// browser carries cookies between requests and fills in the csrf form field.
type browser struct {
	t   *testing.T
	app *fiber.App
	jar map[string]string
}

func (ta *testApp) browser(t *testing.T) *browser {
	b := &browser{t: t, app: ta.app, jar: map[string]string{}}
	b.get("/login")
	if b.jar["csrf_"] == "" {
		t.Fatal("csrf token missing")
	}
	return b
}

// as signs the browser in by binding a session straight to userID.
func (b *browser) as(ta *testApp, userID string) *browser {
	sid := "sid-" + userID
	if err := ta.users.BindSession(context.Background(), sid, userID); err != nil {
		b.t.Fatalf("bind session: %v", err)
	}
	b.jar["sid"] = sid
	return b
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for k, v := range b.jar {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.jar["csrf_"])
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	UserID string                 `json:"user_id"`
	Path   string                 `json:"path"`
	Fields map[string]interface{} `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
