package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/types"
)

// AddCartItemRequest adds one unit of a product
type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// UpdateCartItemRequest changes a line's quantity by Delta, floored at 1
type UpdateCartItemRequest struct {
	Delta int `json:"delta"`
}

// CartItemResponse is the changed line and the cart after the change
type CartItemResponse struct {
	Item types.CartItem `json:"item"`
	Cart cart.Summary   `json:"cart"`
}

// NewSession issues an opaque session id for carts and conversations
// POST /api/sessions
func (h *Handlers) NewSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session": uuid.NewString()})
}

func (h *Handlers) summary(session string) cart.Summary {
	if sc, ok := h.carts.Lookup(session); ok {
		return sc.Summary()
	}
	return cart.New().Summary()
}

// GetCart returns the session's cart
// GET /api/cart/:session
func (h *Handlers) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.summary(c.Param("session")))
}

// AddCartItem adds a catalog product to the cart
// POST /api/cart/:session/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId is required")
		return
	}
	p, ok := h.catalog.Product(req.ProductID)
	if !ok {
		notFound(c, fmt.Sprintf("product %q not found", req.ProductID))
		return
	}

	sc := h.carts.Get(c.Param("session"))
	item := sc.Add(p)
	c.JSON(http.StatusOK, CartItemResponse{Item: item, Cart: sc.Summary()})
}

// UpdateCartItem adjusts a line's quantity
// PATCH /api/cart/:session/items/:id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := c.Param("id")
	sc, ok := h.carts.Lookup(c.Param("session"))
	if !ok {
		notFound(c, fmt.Sprintf("product %q is not in the cart", id))
		return
	}
	item, ok := sc.UpdateQuantity(id, req.Delta)
	if !ok {
		notFound(c, fmt.Sprintf("product %q is not in the cart", id))
		return
	}
	c.JSON(http.StatusOK, CartItemResponse{Item: item, Cart: sc.Summary()})
}

// RemoveCartItem drops a line; removing an absent line is not an error
// DELETE /api/cart/:session/items/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	if sc, ok := h.carts.Lookup(c.Param("session")); ok {
		sc.Remove(c.Param("id"))
	}
	c.JSON(http.StatusOK, h.summary(c.Param("session")))
}

// ClearCart empties and forgets the session's cart
// DELETE /api/cart/:session
func (h *Handlers) ClearCart(c *gin.Context) {
	h.carts.Delete(c.Param("session"))
	c.Status(http.StatusNoContent)
}
