// Package checkout hands a cart off to a hosted payment page
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/metrics"
	"github.com/eppla/storefront/internal/types"
)

// DefaultCurrency is used when none is configured
const DefaultCurrency = "eur"

var (
	// ErrEmptyCart rejects a checkout with no lines
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidCurrency rejects a currency that is not a three-letter ISO code
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrGatewayUnavailable means the payment provider could not create a session
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotConfirmed means the provider does not report the session as paid
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
)

// LineItem is one product line of a checkout request
type LineItem struct {
	ProductID  string      `json:"productId"`
	Name       string      `json:"name"`
	Image      string      `json:"image,omitempty"`
	UnitAmount types.Money `json:"unitAmount"`
	Quantity   int         `json:"quantity"`
}

// Request is a provider-neutral payment request
type Request struct {
	Reference  string      `json:"reference,omitempty"`
	Currency   string      `json:"currency"`
	Amount     types.Money `json:"amount"`
	ItemCount  int         `json:"itemCount"`
	LineItems  []LineItem  `json:"lineItems"`
	SuccessURL string      `json:"successUrl,omitempty"`
	CancelURL  string      `json:"cancelUrl,omitempty"`
}

// BuildRequest turns the cart's lines into a payment request. Amount is the
// sum of unit amount times quantity over all lines.
func BuildRequest(c *cart.Cart, currency string) (Request, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if !validCurrency(currency) {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	summary := c.Summary()
	if len(summary.Items) == 0 {
		return Request{}, ErrEmptyCart
	}

	req := Request{
		Currency:  currency,
		Amount:    summary.Total,
		ItemCount: summary.Count,
		LineItems: make([]LineItem, 0, len(summary.Items)),
	}
	for _, item := range summary.Items {
		req.LineItems = append(req.LineItems, LineItem{
			ProductID:  item.Product.ID,
			Name:       item.Product.Name,
			Image:      item.Product.Image,
			UnitAmount: item.Product.Price,
			Quantity:   item.Quantity,
		})
	}
	return req, nil
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Session is a created hosted checkout
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
	Provider    string `json:"provider"`
}

// Gateway creates hosted checkout sessions
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req Request) (Session, error)
	// VerifyPayment returns nil only when the provider reports sessionID as
	// paid for reference
	VerifyPayment(ctx context.Context, sessionID, reference string) error
}

// Outcome is the terminal result of a hosted checkout
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
)

// ParseOutcome validates an outcome name
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(s)) {
	case OutcomeSuccess:
		return OutcomeSuccess, nil
	case OutcomeCancelled, "cancel":
		return OutcomeCancelled, nil
	default:
		return "", fmt.Errorf("unknown checkout outcome %q", s)
	}
}

// Config holds checkout configuration
type Config struct {
	Currency   string `mapstructure:"currency"`
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

// Service drives checkout for carts
type Service struct {
	gateway Gateway
	config  Config
	metrics *metrics.Recorder
}

// NewService creates a checkout service
func NewService(gateway Gateway, config Config) *Service {
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	return &Service{gateway: gateway, config: config, metrics: metrics.NewRecorder()}
}

// Gateway returns the configured gateway
func (s *Service) Gateway() Gateway {
	return s.gateway
}

// Begin builds the request for c and creates a hosted session. The
// reference is echoed back by the provider on return.
func (s *Service) Begin(ctx context.Context, reference string, c *cart.Cart) (Session, Request, error) {
	req, err := BuildRequest(c, s.config.Currency)
	if err != nil {
		return Session{}, Request{}, err
	}
	req.Reference = reference
	req.SuccessURL = expand(s.config.SuccessURL, reference)
	req.CancelURL = expand(s.config.CancelURL, reference)

	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.metrics.RecordCheckout("error")
		log.Error().Err(err).Str("provider", s.gateway.Name()).Str("reference", reference).Msg("Checkout session failed")
		return Session{}, req, err
	}

	s.metrics.RecordCheckout("started")
	log.Info().
		Str("provider", session.Provider).
		Str("session_id", session.ID).
		Int("items", req.ItemCount).
		Str("amount", req.Amount.String()).
		Msg("Checkout session created")
	return session, req, nil
}

// Complete applies a terminal outcome. A success is first confirmed with the
// gateway and then empties the cart; a cancelled checkout leaves it as it was.
// sessionID is the provider session id echoed on the return URL.
func (s *Service) Complete(ctx context.Context, c *cart.Cart, outcome Outcome, sessionID, reference string) error {
	if outcome == OutcomeSuccess {
		if sessionID == "" {
			s.metrics.RecordCheckout("unconfirmed")
			return fmt.Errorf("%w: missing session id", ErrPaymentNotConfirmed)
		}
		if err := s.gateway.VerifyPayment(ctx, sessionID, reference); err != nil {
			s.metrics.RecordCheckout("unconfirmed")
			log.Warn().Err(err).
				Str("provider", s.gateway.Name()).
				Str("session_id", sessionID).
				Str("reference", reference).
				Msg("Checkout success not confirmed")
			return err
		}
		c.Clear()
	}
	s.metrics.RecordCheckout(string(outcome))
	return nil
}

// expand substitutes {REFERENCE} in a return URL template
func expand(template, reference string) string {
	return strings.ReplaceAll(template, "{REFERENCE}", reference)
}
