package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/types"
)

// CheckoutResponse tells the client where to send the shopper
type CheckoutResponse struct {
	SessionID   string      `json:"sessionId"`
	RedirectURL string      `json:"redirectUrl"`
	Provider    string      `json:"provider"`
	Amount      types.Money `json:"amount"`
	Currency    string      `json:"currency"`
	ItemCount   int         `json:"itemCount"`
}

// CheckoutOutcomeResponse is returned when the shopper comes back
type CheckoutOutcomeResponse struct {
	Outcome checkout.Outcome `json:"outcome"`
	Cart    cart.Summary     `json:"cart"`
}

// BeginCheckout creates a hosted payment session for the cart
// POST /api/checkout/:session
func (h *Handlers) BeginCheckout(c *gin.Context) {
	session := c.Param("session")
	sc, ok := h.carts.Lookup(session)
	if !ok {
		respondError(c, checkout.ErrEmptyCart)
		return
	}

	hosted, req, err := h.checkout.Begin(c.Request.Context(), session, sc)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		SessionID:   hosted.ID,
		RedirectURL: hosted.RedirectURL,
		Provider:    hosted.Provider,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ItemCount:   req.ItemCount,
	})
}

// CompleteCheckout applies the provider's return outcome. A success must
// carry the provider's session_id and is confirmed with the gateway first.
// GET /api/checkout/:session/success?session_id=...
// GET /api/checkout/:session/cancel
func (h *Handlers) CompleteCheckout(c *gin.Context) {
	outcome, err := checkout.ParseOutcome(c.Param("outcome"))
	if err != nil {
		notFound(c, err.Error())
		return
	}

	session := c.Param("session")
	if sc, ok := h.carts.Lookup(session); ok {
		err := h.checkout.Complete(c.Request.Context(), sc, outcome, c.Query("session_id"), session)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, CheckoutOutcomeResponse{Outcome: outcome, Cart: h.summary(session)})
}
