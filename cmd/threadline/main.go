package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"threadline/internal/config"
	"threadline/internal/fulfillment"
	"threadline/internal/http/handlers"
	"threadline/internal/idempotency"
	applog "threadline/internal/log"
	"threadline/internal/metrics"
	"threadline/internal/mongostore"
	"threadline/internal/outbox"
	"threadline/internal/payment"
	"threadline/internal/repos"
)

func main() {
	cfg := config.Load()
	defer applog.Setup(cfg.LogFile).Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Webhook claims are shared through redis when several instances run.
	var guard idempotency.Guard = idempotency.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		guard = idempotency.NewRedisGuard(rdb, 30*time.Second)
		log.Printf("[idempotency] redis guard at %s", cfg.RedisAddr)
	}

	gateway := payment.NewGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.AppURL + "/success",
		CancelURL:     cfg.AppURL + "/cart",
	})

	backend := handlers.Backend{Gateway: gateway}
	var pending outbox.Source = repos.NewOutboxRepo(db)
	if cfg.StoreBackend == "mongo" {
		mdb, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal(err)
		}
		store := mongostore.New(mdb)
		defer store.Close(context.Background())
		if err := store.CreateIndexes(ctx); err != nil {
			log.Fatal(err)
		}
		if err := store.Seed(ctx, repos.DemoProducts()); err != nil {
			log.Fatal(err)
		}
		backend.Catalog = store
		backend.Orders = store.Orders()
		backend.Fulfiller = fulfillment.NewSequencer(store, guard, cfg.ShippingFee)
		pending = store
		log.Printf("[store] catalog and orders in mongo database %s", cfg.MongoDB)
	} else {
		backend.Fulfiller = fulfillment.NewSequencer(repos.NewFulfillmentStore(db), guard, cfg.ShippingFee)
	}

	var pub outbox.Publisher = outbox.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := outbox.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
	}
	relay := outbox.NewRelay(pending, pub, time.Second)

	deps := handlers.NewDeps(db, cfg, backend)

	app := fiber.New(fiber.Config{
		Views:          handlers.NewEngine(cfg.TemplatesDir),
		ReadBufferSize: handlers.ReadBufferSize,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	app.Use(handlers.AttachUser(deps.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || p == handlers.WebhookPath || p == "/metrics"
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   strings.HasPrefix(cfg.AppURL, "https://"),
		// The payment provider signs its deliveries instead.
		Next: func(c *fiber.Ctx) bool { return c.Path() == handlers.WebhookPath },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// Route-specific throttles run before Mount registers the handlers.
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}))
	app.Get("/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}))
	app.Get("/api/v1/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	app.Post("/checkout", limiter.New(limiter.Config{Max: 10, Expiration: time.Minute}))

	app.Static("/static", "./web/static")
	handlers.Mount(app, deps)
	app.Use(handlers.NotFound)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("[http] listening on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
