package catalog

import (
	"context"
	"time"

	"github.com/eppla/storefront/internal/types"
)

// Remote document ids
const (
	ActiveCatalogDocument = "active_catalog"
	HealthCheckDocument   = "_system/healthcheck"
)

// HealthReport is the body of the health-check document
type HealthReport struct {
	LastCheck time.Time `json:"lastCheck"`
	Status    string    `json:"status"`
	Client    string    `json:"client"`
}

// RemoteStore is a document store holding the whole catalog in one document.
// Errors are *types.RemoteError values so callers can tell a denied write
// from an outage with errors.Is.
type RemoteStore interface {
	// Name identifies the backend in logs and errors
	Name() string

	// Push replaces the catalog document
	Push(ctx context.Context, doc types.CatalogDocument) error

	// Pull returns the catalog document, or found=false when none exists
	Pull(ctx context.Context) (doc types.CatalogDocument, found bool, err error)

	// HealthCheck writes then reads the health-check document
	HealthCheck(ctx context.Context, client string) (HealthReport, error)
}

// DisabledRemote is used when no remote credentials are configured
type DisabledRemote struct{}

func (DisabledRemote) Name() string { return "disabled" }

func (DisabledRemote) Push(context.Context, types.CatalogDocument) error {
	return types.ErrRemoteDisabled
}

func (DisabledRemote) Pull(context.Context) (types.CatalogDocument, bool, error) {
	return types.CatalogDocument{}, false, types.ErrRemoteDisabled
}

func (DisabledRemote) HealthCheck(context.Context, string) (HealthReport, error) {
	return HealthReport{}, types.ErrRemoteDisabled
}

func newHealthReport(client string, at time.Time) HealthReport {
	return HealthReport{LastCheck: at.UTC(), Status: "online", Client: client}
}
