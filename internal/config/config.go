package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// DevCartSealKey is the built-in cart seal key. It is public, so a server using it cannot
// tell a forged cart from a real one.
const DevCartSealKey = "dev-only-cart-seal-key-change-me"

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	TemplatesDir string
	AppURL       string

	// StoreBackend selects where catalog and orders live: "sqlite" or "mongo".
	StoreBackend string
	MongoURI     string
	MongoDB      string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	StripeSecretKey     string
	StripeWebhookSecret string

	CartSealKey    string
	ShippingFee    int64 // smallest currency unit
	CartMaxPerLine int
}

func Load() Config {
	cfg := Config{
		Port:                getenv("PORT", "8080"),
		DBDSN:               getenv("DB_DSN", "threadline.db"), // sqlite file in project root
		LogFile:             getenv("LOG_FILE", "./threadline.log"),
		TemplatesDir:        getenv("TEMPLATES_DIR", "./web/templates"),
		AppURL:              strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),
		StoreBackend:        strings.ToLower(getenv("STORE_BACKEND", "sqlite")),
		MongoURI:            getenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:             getenv("MONGO_DB", "threadline"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getenv("KAFKA_TOPIC", "orders"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CartSealKey:         getenv("CART_SEAL_KEY", DevCartSealKey),
		ShippingFee:         int64(getint("SHIPPING_FEE", 9900)),
		CartMaxPerLine:      getint("CART_MAX_PER_LINE", 10),
	}
	if cfg.StoreBackend != "mongo" {
		cfg.StoreBackend = "sqlite"
	}

	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s STORE_BACKEND=%s REDIS_ADDR=%q KAFKA_BROKERS=%v APP_URL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.StoreBackend, cfg.RedisAddr, cfg.KafkaBrokers, cfg.AppURL)
	if cfg.StripeWebhookSecret == "" {
		log.Printf("[config] STRIPE_WEBHOOK_SECRET is empty; webhook deliveries will be rejected")
	}
	if cfg.CartSealKey == DevCartSealKey {
		log.Printf("[config] WARNING: CART_SEAL_KEY is not set; carts are sealed with the public development key and can be forged")
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
