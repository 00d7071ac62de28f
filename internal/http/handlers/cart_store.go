package handlers

import (
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/cart"
)

const cartCookieTTL = 30 * 24 * time.Hour

// ReadBufferSize is the request header budget the server must allow: a full cart cookie
// plus its seal, the session and csrf cookies, and ordinary browser headers.
const ReadBufferSize = 16 << 10

// cookieStore keeps the cart in browser cookies, base64url encoded. Writes made during the
// request are visible to later reads in the same request.
type cookieStore struct {
	c       *fiber.Ctx
	written map[string]*string
}

func openCart(c *fiber.Ctx, sealer *cart.Sealer) *cart.Ledger {
	return cart.Open(&cookieStore{c: c, written: map[string]*string{}}, sealer)
}

func (s *cookieStore) Get(key string) (string, bool) {
	if v, ok := s.written[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	raw := s.c.Cookies(key)
	if raw == "" {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		// Undecodable contents still go to the ledger so verification fails on them.
		return raw, true
	}
	return string(b), true
}

func (s *cookieStore) Set(key, value string) {
	s.written[key] = &value
	s.c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(value)),
		Path:     "/",
		Expires:  time.Now().Add(cartCookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *cookieStore) Delete(key string) {
	s.written[key] = nil
	s.c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
