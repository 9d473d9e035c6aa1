package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/types"
)

// ProductListResponse is a page of the catalog
type ProductListResponse struct {
	Products    []types.Product `json:"products"`
	Count       int             `json:"count"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// ListProducts returns the catalog, optionally filtered to a menu bucket
// GET /api/products?bucket=office&sub=grafeia
func (h *Handlers) ListProducts(c *gin.Context) {
	if !h.catalogServing(c) {
		return
	}
	doc := h.catalog.Snapshot()
	products := doc.Products

	if raw := c.Query("bucket"); raw != "" {
		id, ok := catalog.ParseBucketID(raw)
		if !ok {
			badRequest(c, fmt.Sprintf("unknown bucket %q", raw))
			return
		}
		products = h.catalog.Classifier().Filter(products, id, c.Query("sub"))
	}

	c.JSON(http.StatusOK, ProductListResponse{
		Products:    products,
		Count:       len(products),
		LastUpdated: doc.LastUpdated,
	})
}

// GetProduct returns one product by id or slug
// GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	if !h.catalogServing(c) {
		return
	}
	key := c.Param("id")
	p, ok := h.catalog.Product(key)
	if !ok {
		p, ok = h.catalog.ProductBySlug(key)
	}
	if !ok {
		notFound(c, fmt.Sprintf("product %q not found", key))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Menu returns the navigation buckets with their subcategories
// GET /api/menu
func (h *Handlers) Menu(c *gin.Context) {
	if !h.catalogServing(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": h.catalog.Buckets()})
}

// catalogServing rejects catalog reads while hydration has failed, so clients
// show a retry state instead of an empty catalog
func (h *Handlers) catalogServing(c *gin.Context) bool {
	if h.catalog.State() != catalog.StateFailed {
		return true
	}
	respondError(c, types.ErrHydrationFailure)
	return false
}
