// Package handlers exposes the storefront and its admin operations over HTTP.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/internal/assistant"
	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/pipeline"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/types"
)

// Deps are the services the handlers delegate to
type Deps struct {
	Catalog       *catalog.Service
	Pipeline      *pipeline.Pipeline
	Carts         *cart.Registry
	Checkout      *checkout.Service
	Advisor       *assistant.Advisor
	Conversations *assistant.Conversations
	// FeedURL is ingested when an ingest request names no source
	FeedURL string
}

// Handlers holds the HTTP handlers
type Handlers struct {
	catalog       *catalog.Service
	pipeline      *pipeline.Pipeline
	carts         *cart.Registry
	checkout      *checkout.Service
	advisor       *assistant.Advisor
	conversations *assistant.Conversations
	feedURL       string
}

// New creates handlers. Missing cart, advisor and conversation
// dependencies get in-memory defaults.
func New(deps Deps) *Handlers {
	h := &Handlers{
		catalog:       deps.Catalog,
		pipeline:      deps.Pipeline,
		carts:         deps.Carts,
		checkout:      deps.Checkout,
		advisor:       deps.Advisor,
		conversations: deps.Conversations,
		feedURL:       deps.FeedURL,
	}
	if h.carts == nil {
		h.carts = cart.NewRegistry()
	}
	if h.advisor == nil {
		h.advisor = assistant.NewAdvisor(nil, assistant.Config{})
	}
	if h.conversations == nil {
		h.conversations = assistant.NewConversations(h.advisor.Config().HistoryLimit)
	}
	if h.checkout == nil {
		h.checkout = checkout.NewService(checkout.NewSimulatedGateway(), checkout.Config{})
	}
	return h
}

// Register mounts the public storefront routes
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/menu", h.Menu)

		api.POST("/sessions", h.NewSession)

		api.GET("/cart/:session", h.GetCart)
		api.DELETE("/cart/:session", h.ClearCart)
		api.POST("/cart/:session/items", h.AddCartItem)
		api.PATCH("/cart/:session/items/:id", h.UpdateCartItem)
		api.DELETE("/cart/:session/items/:id", h.RemoveCartItem)

		api.POST("/checkout/:session", h.BeginCheckout)
		api.GET("/checkout/:session/:outcome", h.CompleteCheckout)

		api.POST("/assistant", h.Ask)
		api.GET("/assistant/:session", h.Conversation)
	}
}

// RegisterAdmin mounts the operator routes on an already guarded group
func (h *Handlers) RegisterAdmin(admin gin.IRouter) {
	admin.POST("/ingest", h.Ingest)
	admin.POST("/ingest/preview", h.PreviewIngest)
	admin.GET("/runs/last", h.LastRun)
	admin.DELETE("/catalog", h.ClearCatalog)
	admin.GET("/catalog/status", h.CatalogStatus)
	admin.POST("/catalog/hydrate", h.HydrateCatalog)
	admin.GET("/tiers", h.GetTiers)
	admin.PUT("/tiers", h.PutTiers)
	admin.POST("/remote/check", h.CheckRemote)
	admin.POST("/remote/push", h.PushRemote)
	admin.POST("/products/:id/seo", h.GenerateSEO)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrIngestionInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrFeedEmptyOrMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrFeedUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrRemoteWriteDenied):
		return http.StatusForbidden
	case errors.Is(err, types.ErrRemoteUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrRemoteDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrHydrationFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidCurrency),
		errors.Is(err, assistant.ErrEmptyQuery),
		errors.Is(err, pricing.ErrNoTiers):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Hint: types.RemoteHint(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}
