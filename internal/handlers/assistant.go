package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eppla/storefront/internal/assistant"
)

// AskRequest is a shopper question; Session is optional and keeps a log
type AskRequest struct {
	Session string `json:"session"`
	Query   string `json:"query"`
}

// Ask forwards a question with the current catalog to the assistant
// POST /api/assistant
func (h *Handlers) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var (
		reply assistant.Reply
		err   error
	)
	if req.Session != "" {
		reply, err = h.advisor.Ask(c.Request.Context(), h.conversations.Get(req.Session), req.Query, h.catalog.Products())
	} else {
		reply, err = h.advisor.Advise(c.Request.Context(), req.Query, h.catalog.Products())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Conversation returns a session's message log
// GET /api/assistant/:session
func (h *Handlers) Conversation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.conversations.Get(c.Param("session")).Messages()})
}

// GenerateSEO drafts search metadata for a product. The catalog is not
// modified; operators copy the result into the supplier feed.
// POST /internal/admin/products/:id/seo
func (h *Handlers) GenerateSEO(c *gin.Context) {
	id := c.Param("id")
	p, ok := h.catalog.Product(id)
	if !ok {
		notFound(c, fmt.Sprintf("product %q not found", id))
		return
	}
	if !h.advisor.Enabled() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "assistant is disabled: GEMINI_API_KEY not set"})
		return
	}

	seo, err := h.advisor.GenerateSEO(c.Request.Context(), p.Name, p.Category)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, seo)
}
