// Package payment talks to the payment gateway: it opens hosted checkout sessions and turns
// signed webhook deliveries into CompletedEvent values.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"threadline/internal/domain"
)

// Metadata keys carried on the checkout session and read back from the webhook.
const (
	MetaAddress = "customer_address"
	MetaDetails = "order_details"
	MetaUserID  = "user_clerk_id"
	MetaEmail   = "customer_email"
)

const eventCheckoutCompleted = "checkout.session.completed"

// Stripe caps metadata values at 500 characters and a session at 50 keys.
const (
	MetaValueMax = 500
	metaKeysMax  = 50
)

var (
	ErrDisabled     = errors.New("payment gateway not configured")
	ErrBadSignature = errors.New("webhook signature verification failed")
	ErrNoLines      = errors.New("checkout has no line items")
	// ErrMetadataTooLong means the session metadata would not fit the provider's limits.
	ErrMetadataTooLong = errors.New("checkout metadata exceeds provider limits")
)

// OrderLine is one purchased line as serialized into session metadata.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// metaLine is the compact form of OrderLine kept in metadata. Names and prices are looked
// up again from the catalog at fulfillment.
type metaLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is everything needed to open a hosted checkout session.
type CheckoutRequest struct {
	UserID      string
	Email       string
	Address     domain.Address
	Lines       []OrderLine
	ShippingFee int64
}

// CompletedEvent is a verified "checkout session completed" notification.
type CompletedEvent struct {
	EventID       string
	SessionID     string
	AmountTotal   int64
	PaymentStatus string
	Metadata      map[string]string
}

// DedupKey identifies the purchase across redeliveries.
func (e CompletedEvent) DedupKey() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.EventID
}

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

// Gateway wraps the stripe checkout API behind a circuit breaker.
type Gateway struct {
	cfg      Config
	sessions sessionAPI
	breaker  *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
}

func NewGateway(cfg Config) *Gateway {
	var sessions sessionAPI
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		sessions = sc.CheckoutSessions
	}
	return newGateway(cfg, sessions)
}

func newGateway(cfg Config, sessions sessionAPI) *Gateway {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	cb := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: upstreamHealthy,
	})
	return &Gateway{cfg: cfg, sessions: sessions, breaker: cb}
}

// CreateCheckoutSession opens a hosted checkout and returns its URL.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if g.sessions == nil {
		return "", ErrDisabled
	}
	params, err := g.sessionParams(req)
	if err != nil {
		return "", err
	}
	params.Context = ctx

	s, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

func (g *Gateway) sessionParams(req CheckoutRequest) (*stripe.CheckoutSessionParams, error) {
	if len(req.Lines) == 0 {
		return nil, ErrNoLines
	}
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines)+1)
	for _, ln := range req.Lines {
		if ln.Name == "" || ln.Price <= 0 || ln.Quantity <= 0 {
			return nil, fmt.Errorf("invalid line item %q", ln.Name)
		}
		items = append(items, g.lineItem(ln.Name, fmt.Sprintf("%s, %s", ln.Size, ln.Color), ln.Price, int64(ln.Quantity)))
	}
	if req.ShippingFee > 0 {
		items = append(items, g.lineItem("Shipping Fee", "Standard shipping fee", req.ShippingFee, 1))
	}

	meta, err := EncodeMetadata(req)
	if err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:     items,
		SuccessURL:    stripe.String(g.cfg.SuccessURL),
		CancelURL:     stripe.String(g.cfg.CancelURL),
		CustomerEmail: stripe.String(req.Email),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"IN"}),
		},
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	return params, nil
}

// upstreamHealthy reports whether err says nothing about the provider's availability. A
// request the provider rejected (4xx) is our fault and must not open the breaker.
func upstreamHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode > 0 && se.HTTPStatusCode < 500
	}
	return false
}

func (g *Gateway) lineItem(name, desc string, unit, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(g.cfg.Currency),
			UnitAmount: stripe.Int64(unit),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(name),
				Description: stripe.String(desc),
			},
		},
		Quantity: stripe.Int64(qty),
	}
}

// EncodeMetadata serializes the address and lines the way the webhook expects to read them.
// The line list is split across MetaDetails, MetaDetails_2, ... so that every value stays
// within MetaValueMax; JoinDetails reassembles it.
func EncodeMetadata(req CheckoutRequest) (map[string]string, error) {
	addr, err := json.Marshal(req.Address)
	if err != nil {
		return nil, err
	}
	compact := make([]metaLine, len(req.Lines))
	for i, ln := range req.Lines {
		compact[i] = metaLine{ProductID: ln.ProductID, Size: ln.Size, Color: ln.Color, Quantity: ln.Quantity}
	}
	lines, err := json.Marshal(compact)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		MetaAddress: string(addr),
		MetaUserID:  req.UserID,
		MetaEmail:   req.Email,
	}
	for k, v := range meta {
		if utf8.RuneCountInString(v) > MetaValueMax {
			return nil, fmt.Errorf("%w: %s is %d characters", ErrMetadataTooLong, k, utf8.RuneCountInString(v))
		}
	}
	chunks := splitValue(string(lines), MetaValueMax)
	if len(meta)+len(chunks) > metaKeysMax {
		return nil, fmt.Errorf("%w: %d line items", ErrMetadataTooLong, len(req.Lines))
	}
	for i, c := range chunks {
		meta[detailsKey(i)] = c
	}
	return meta, nil
}

// JoinDetails reassembles the serialized line list from its metadata chunks.
func JoinDetails(meta map[string]string) string {
	var b strings.Builder
	for i := 0; ; i++ {
		part, ok := meta[detailsKey(i)]
		if !ok {
			return b.String()
		}
		b.WriteString(part)
	}
}

func detailsKey(i int) string {
	if i == 0 {
		return MetaDetails
	}
	return MetaDetails + "_" + strconv.Itoa(i+1)
}

// splitValue cuts s into pieces of at most limit characters.
func splitValue(s string, limit int) []string {
	var out []string
	for s != "" {
		n, i := 0, 0
		for i < len(s) && n < limit {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

// ParseWebhook verifies the signature header and decodes a completed checkout session.
// ok is false for event types the storefront does not act on.
func (g *Gateway) ParseWebhook(payload []byte, sigHeader string) (ev CompletedEvent, ok bool, err error) {
	if g.cfg.WebhookSecret == "" {
		return CompletedEvent{}, false, ErrDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return CompletedEvent{}, false, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if string(event.Type) != eventCheckoutCompleted {
		return CompletedEvent{}, false, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return CompletedEvent{}, false, fmt.Errorf("decode checkout session: %w", err)
	}
	return CompletedEvent{
		EventID:       event.ID,
		SessionID:     s.ID,
		AmountTotal:   s.AmountTotal,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}, true, nil
}
