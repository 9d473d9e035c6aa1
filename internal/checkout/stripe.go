package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeGateway creates Stripe Checkout sessions
type StripeGateway struct {
	client session.Client
}

// NewStripeGateway creates a gateway for the given secret key. A nil backend
// uses the live Stripe API.
func NewStripeGateway(secretKey string, backend stripe.Backend) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{client: session.Client{B: backend, Key: secretKey}}
}

// Name implements Gateway
func (g *StripeGateway) Name() string { return "stripe" }

// CreateSession implements Gateway
func (g *StripeGateway) CreateSession(ctx context.Context, req Request) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(withSessionID(req.SuccessURL)),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.Reference != "" {
		params.ClientReferenceID = stripe.String(req.Reference)
		params.AddMetadata("reference", req.Reference)
	}

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			product.Images = stripe.StringSlice([]string{item.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(int64(item.UnitAmount)),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	s, err := g.client.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return Session{}, fmt.Errorf("%w: stripe %s: %s", ErrGatewayUnavailable, se.Code, se.Msg)
		}
		return Session{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return Session{ID: s.ID, RedirectURL: s.URL, Provider: g.Name()}, nil
}

// VerifyPayment implements Gateway by retrieving the session from Stripe
func (g *StripeGateway) VerifyPayment(ctx context.Context, sessionID, reference string) error {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.client.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: unknown session %s", ErrPaymentNotConfirmed, sessionID)
		}
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if reference != "" && s.ClientReferenceID != reference {
		return fmt.Errorf("%w: session %s belongs to another cart", ErrPaymentNotConfirmed, sessionID)
	}
	switch s.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return nil
	default:
		return fmt.Errorf("%w: session %s payment status %q", ErrPaymentNotConfirmed, sessionID, s.PaymentStatus)
	}
}

// withSessionID appends Stripe's session placeholder so the return handler
// can correlate the payment
func withSessionID(u string) string {
	if u == "" || strings.Contains(u, "{CHECKOUT_SESSION_ID}") {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "session_id={CHECKOUT_SESSION_ID}"
}

// SimulatedGateway stands in for a payment provider when none is
// configured. It redirects straight to the success URL and confirms only the
// sessions it issued.
type SimulatedGateway struct {
	mu       sync.Mutex
	sessions map[string]string // session id -> reference
}

// NewSimulatedGateway creates a gateway with no issued sessions
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{sessions: make(map[string]string)}
}

// Name implements Gateway
func (*SimulatedGateway) Name() string { return "simulated" }

// CreateSession implements Gateway
func (g *SimulatedGateway) CreateSession(_ context.Context, req Request) (Session, error) {
	id := "sim_" + uuid.NewString()
	g.mu.Lock()
	g.sessions[id] = req.Reference
	g.mu.Unlock()

	redirect := req.SuccessURL
	if u, err := url.Parse(req.SuccessURL); err == nil && req.SuccessURL != "" {
		q := u.Query()
		q.Set("session_id", id)
		u.RawQuery = q.Encode()
		redirect = u.String()
	}
	return Session{ID: id, RedirectURL: redirect, Provider: "simulated"}, nil
}

// VerifyPayment implements Gateway. A confirmed session is consumed.
func (g *SimulatedGateway) VerifyPayment(_ context.Context, sessionID, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref, ok := g.sessions[sessionID]
	if !ok || ref != reference {
		return fmt.Errorf("%w: unknown session %s", ErrPaymentNotConfirmed, sessionID)
	}
	delete(g.sessions, sessionID)
	return nil
}
