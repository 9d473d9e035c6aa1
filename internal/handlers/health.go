package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eppla/storefront/internal/catalog"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string                 `json:"status"`
	Catalog  catalog.HydrationState `json:"catalog"`
	Source   catalog.Source         `json:"source,omitempty"`
	Products int                    `json:"products"`
	Remote   string                 `json:"remote"`
}

// HealthCheck reports whether a catalog is being served
// GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	st := h.catalog.Status()
	response := HealthResponse{
		Status:   "ok",
		Catalog:  st.State,
		Source:   st.Source,
		Products: st.Products,
		Remote:   st.Remote,
	}

	if st.State == catalog.StateFailed {
		response.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
