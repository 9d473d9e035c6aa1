package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eppla/storefront/internal/pipeline"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/types"
)

// IngestRequest names the feed to ingest. Text wins over URL; with
// neither, the configured feed URL is used.
type IngestRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// IngestFailedResponse carries the partial summary of a failed run
type IngestFailedResponse struct {
	ErrorResponse
	Summary *types.IngestionSummary `json:"summary,omitempty"`
}

// PreviewResponse is a dry-run result
type PreviewResponse struct {
	RecordTag string                `json:"recordTag"`
	Total     int                   `json:"totalRecords"`
	Products  []types.Product       `json:"products"`
	Skipped   []types.SkippedRecord `json:"skipped"`
}

// TierView is a markup tier with its example sale price
type TierView struct {
	types.MarkupTier
	ExampleSalePrice types.Money `json:"exampleSalePrice"`
}

// TiersResponse is the active tier table
type TiersResponse struct {
	Tiers       []TierView              `json:"tiers"`
	MSRPCeiling pricing.MSRPCeilingRule `json:"msrpCeiling"`
}

// PutTiersRequest replaces the tier table; thresholds are in cents
type PutTiersRequest struct {
	Tiers []types.MarkupTier `json:"tiers"`
}

func (h *Handlers) ingestSource(c *gin.Context) (pipeline.Source, bool) {
	var req IngestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return pipeline.Source{}, false
		}
	}
	switch {
	case req.Text != "":
		return pipeline.FromText([]byte(req.Text)), true
	case req.URL != "":
		return pipeline.FromURL(req.URL), true
	default:
		return pipeline.FromURL(h.feedURL), true
	}
}

// Ingest runs a full ingestion and replaces the active catalog
// POST /internal/admin/ingest
// Failures leave the active catalog untouched.
func (h *Handlers) Ingest(c *gin.Context) {
	src, ok := h.ingestSource(c)
	if !ok {
		return
	}

	// the run must finish even if the operator disconnects
	summary, err := h.pipeline.Run(context.WithoutCancel(c.Request.Context()), src)
	if err != nil {
		c.JSON(statusFor(err), IngestFailedResponse{
			ErrorResponse: ErrorResponse{Error: err.Error(), Hint: types.RemoteHint(err)},
			Summary:       summary,
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PreviewIngest parses and prices a feed without installing it
// POST /internal/admin/ingest/preview
func (h *Handlers) PreviewIngest(c *gin.Context) {
	src, ok := h.ingestSource(c)
	if !ok {
		return
	}
	preview, err := h.pipeline.DryRun(c.Request.Context(), src)
	if err != nil {
		respondError(c, err)
		return
	}
	skipped := preview.Skipped
	if skipped == nil {
		skipped = []types.SkippedRecord{}
	}
	c.JSON(http.StatusOK, PreviewResponse{
		RecordTag: preview.RecordTag,
		Total:     preview.Total,
		Products:  preview.Products,
		Skipped:   skipped,
	})
}

// LastRun returns the most recent ingestion summary
// GET /internal/admin/runs/last
func (h *Handlers) LastRun(c *gin.Context) {
	summary, ok := h.pipeline.LastRun()
	if !ok {
		notFound(c, "no ingestion has run yet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": summary, "running": h.pipeline.Running()})
}

// ClearCatalog wipes the local and in-memory catalog
// DELETE /internal/admin/catalog
func (h *Handlers) ClearCatalog(c *gin.Context) {
	if err := h.catalog.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.catalog.Status())
}

// CatalogStatus returns hydration diagnostics
// GET /internal/admin/catalog/status
func (h *Handlers) CatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Status())
}

// HydrateCatalog retries the startup catalog load after a failure. It is a
// no-op while a catalog is already being served.
// POST /internal/admin/catalog/hydrate
func (h *Handlers) HydrateCatalog(c *gin.Context) {
	if err := h.catalog.Hydrate(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.catalog.Status())
}

func tiersResponse(e *pricing.Engine) TiersResponse {
	tiers := e.Tiers()
	views := make([]TierView, len(tiers))
	for i, t := range tiers {
		views[i] = TierView{MarkupTier: t, ExampleSalePrice: pricing.ExampleSalePrice(t)}
	}
	return TiersResponse{Tiers: views, MSRPCeiling: e.MSRPCeiling()}
}

// GetTiers returns the markup tiers used by the next ingestion
// GET /internal/admin/tiers
func (h *Handlers) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, tiersResponse(h.pipeline.Engine()))
}

// PutTiers replaces the markup tiers. Prices already in the catalog are
// unchanged until the next ingestion.
// PUT /internal/admin/tiers
func (h *Handlers) PutTiers(c *gin.Context) {
	var req PutTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	engine, err := h.pipeline.SetTiers(req.Tiers)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, tiersResponse(engine))
}

// CheckRemote writes and reads back the remote health-check document
// POST /internal/admin/remote/check
func (h *Handlers) CheckRemote(c *gin.Context) {
	report, err := h.catalog.CheckRemote(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// PushRemote resends the active catalog to the remote store
// POST /internal/admin/remote/push
func (h *Handlers) PushRemote(c *gin.Context) {
	if err := h.catalog.PushRemote(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pushed": h.catalog.Snapshot().Count})
}
