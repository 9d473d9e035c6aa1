// Package pipeline runs catalog ingestion: fetch, parse, normalize, replace
// and push
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/eppla/storefront/internal/catalog"
	httpclient "github.com/eppla/storefront/internal/http"
	"github.com/eppla/storefront/internal/metrics"
	"github.com/eppla/storefront/internal/parsers/xml"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/storage"
	"github.com/eppla/storefront/internal/types"
)

// ArchivePrefix is the storage prefix for raw feed copies
const ArchivePrefix = "feeds"

// Fetcher downloads a feed
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Source identifies the feed of one ingestion run
type Source struct {
	Kind types.SourceKind
	// Location is the feed URL or file path
	Location string
	// Raw is the pasted feed text for SourceText
	Raw []byte
}

// FromURL returns a URL source
func FromURL(u string) Source { return Source{Kind: types.SourceURL, Location: u} }

// FromFile returns a file source
func FromFile(path string) Source { return Source{Kind: types.SourceFile, Location: path} }

// FromText returns a pasted-text source
func FromText(raw []byte) Source { return Source{Kind: types.SourceText, Raw: raw} }

// DisplayName returns a name for logs and summaries. URL query strings are
// dropped since they often carry access tokens.
func (s Source) DisplayName() string {
	switch s.Kind {
	case types.SourceURL:
		u, err := url.Parse(s.Location)
		if err != nil {
			return "feed url"
		}
		u.RawQuery = ""
		u.User = nil
		return u.String()
	case types.SourceFile:
		return filepath.Base(s.Location)
	default:
		return "pasted text"
	}
}

// Preview is the outcome of a dry run
type Preview struct {
	RecordTag string                `json:"recordTag"`
	Total     int                   `json:"totalRecords"`
	Products  []types.Product       `json:"products"`
	Skipped   []types.SkippedRecord `json:"skipped,omitempty"`
}

// Pipeline runs at most one ingestion at a time
type Pipeline struct {
	fetcher    Fetcher
	parser     *xml.Parser
	normalizer *catalog.Normalizer
	catalog    *catalog.Service
	archive    storage.Storage
	metrics    *metrics.Recorder
	tracer     trace.Tracer
	now        func() time.Time

	engine  atomic.Pointer[pricing.Engine]
	guard   *semaphore.Weighted
	running atomic.Bool
	last    atomic.Pointer[types.IngestionSummary]
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithArchive stores a raw copy of each fetched feed
func WithArchive(s storage.Storage) Option {
	return func(p *Pipeline) { p.archive = s }
}

// WithFetcher replaces the default HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline feeding svc
func New(svc *catalog.Service, parser *xml.Parser, normalizer *catalog.Normalizer, engine *pricing.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    httpclient.NewClientDefault(),
		parser:     parser,
		normalizer: normalizer,
		catalog:    svc,
		metrics:    metrics.NewRecorder(),
		tracer:     otel.Tracer("storefront/pipeline"),
		now:        time.Now,
		guard:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.engine.Store(engine)
	return p
}

// Engine returns the pricing engine used by the next run
func (p *Pipeline) Engine() *pricing.Engine {
	return p.engine.Load()
}

// SetTiers swaps in a new tier table. The active catalog keeps its prices
// until the next ingestion.
func (p *Pipeline) SetTiers(tiers []types.MarkupTier) (*pricing.Engine, error) {
	next, err := p.engine.Load().WithTiers(tiers)
	if err != nil {
		return nil, err
	}
	p.engine.Store(next)
	log.Info().Int("tiers", len(tiers)).Msg("Markup tiers updated")
	return next, nil
}

// LastRun returns the summary of the most recent run, if any
func (p *Pipeline) LastRun() (types.IngestionSummary, bool) {
	s := p.last.Load()
	if s == nil {
		return types.IngestionSummary{}, false
	}
	return *s, true
}

// Running reports whether an ingestion is in flight
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run ingests src and replaces the active catalog. A second call while one
// is in flight fails immediately with types.ErrIngestionInProgress. The
// catalog is replaced only if the whole feed parsed and produced at least
// one product; the remote push afterwards is best-effort and its failure is
// reported as a warning on the summary.
func (p *Pipeline) Run(ctx context.Context, src Source) (*types.IngestionSummary, error) {
	if !p.guard.TryAcquire(1) {
		p.metrics.RecordIngestion("rejected", 0)
		return nil, types.ErrIngestionInProgress
	}
	defer p.guard.Release(1)
	p.running.Store(true)
	defer p.running.Store(false)

	started := p.now()
	summary := &types.IngestionSummary{
		RunID:      uuid.NewString(),
		Source:     src.Kind,
		SourceName: src.DisplayName(),
		StartedAt:  started,
		Status:     types.RunStatusRunning,
	}

	ctx, span := p.tracer.Start(ctx, "ingestion.run", trace.WithAttributes(
		attribute.String("run_id", summary.RunID),
		attribute.String("source", string(src.Kind)),
	))
	defer span.End()

	logger := log.With().Str("run_id", summary.RunID).Str("source", summary.SourceName).Logger()
	logger.Info().Msg("Starting catalog ingestion")

	if err := p.ingest(ctx, src, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.finish(summary, types.RunStatusFailed, err)
		logger.Error().Err(err).Int("records", summary.TotalRecords).Msg("Catalog ingestion failed")
		return summary, err
	}

	span.SetAttributes(
		attribute.Int("products", summary.Products),
		attribute.Int("skipped", summary.SkippedCount),
	)
	p.finish(summary, types.RunStatusCompleted, nil)

	event := logger.Info()
	if summary.RemoteWarning != nil {
		event = logger.Warn().Str("remote_warning", *summary.RemoteWarning)
	}
	event.
		Int("products", summary.Products).
		Int("skipped", summary.SkippedCount).
		Bool("remote_pushed", summary.RemotePushed).
		Dur("duration", summary.CompletedAt.Sub(started)).
		Msg("Catalog ingestion complete")
	return summary, nil
}

func (p *Pipeline) ingest(ctx context.Context, src Source, summary *types.IngestionSummary) error {
	content, err := p.load(ctx, src)
	if err != nil {
		return err
	}
	p.archiveFeed(ctx, src, summary, content)

	preview, err := p.preview(ctx, content)
	summary.RecordTag = preview.RecordTag
	summary.TotalRecords = preview.Total
	summary.Skipped = preview.Skipped
	summary.SkippedCount = len(preview.Skipped)
	if err != nil {
		return err
	}
	for _, s := range preview.Skipped {
		p.metrics.RecordSkipped(s.Reason)
	}

	if _, err := p.replace(ctx, preview.Products); err != nil {
		return err
	}
	summary.Products = len(preview.Products)

	p.push(ctx, summary)
	return nil
}

// DryRun parses and prices src without touching the catalog
func (p *Pipeline) DryRun(ctx context.Context, src Source) (Preview, error) {
	content, err := p.load(ctx, src)
	if err != nil {
		return Preview{}, err
	}
	return p.preview(ctx, content)
}

func (p *Pipeline) load(ctx context.Context, src Source) ([]byte, error) {
	_, span := p.tracer.Start(ctx, "ingestion.fetch")
	defer span.End()

	switch src.Kind {
	case types.SourceURL:
		if src.Location == "" {
			return nil, fmt.Errorf("%w: no feed url configured", types.ErrFeedUnreachable)
		}
		data, err := p.fetcher.Fetch(ctx, src.Location)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		span.SetAttributes(attribute.Int("bytes", len(data)))
		return data, nil
	case types.SourceFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFeedUnreachable, err)
		}
		return data, nil
	case types.SourceText:
		return src.Raw, nil
	default:
		return nil, fmt.Errorf("unknown feed source kind %q", src.Kind)
	}
}

func (p *Pipeline) preview(ctx context.Context, content []byte) (Preview, error) {
	_, span := p.tracer.Start(ctx, "ingestion.parse")
	defer span.End()

	items, err := p.parser.Parse(content)
	if err != nil {
		span.RecordError(err)
		return Preview{}, err
	}

	result := p.normalizer.Normalize(items.All(), p.engine.Load())
	preview := Preview{
		RecordTag: items.Tag(),
		Total:     result.Total,
		Products:  result.Products,
		Skipped:   result.Skipped,
	}
	span.SetAttributes(
		attribute.String("record_tag", preview.RecordTag),
		attribute.Int("records", preview.Total),
		attribute.Int("products", len(preview.Products)),
	)

	if err := items.Err(); err != nil {
		span.RecordError(err)
		return preview, err
	}
	if len(preview.Products) == 0 {
		return preview, fmt.Errorf("%w: %d records, none valid", types.ErrFeedEmptyOrMalformed, preview.Total)
	}
	return preview, nil
}

func (p *Pipeline) replace(ctx context.Context, products []types.Product) (types.CatalogDocument, error) {
	ctx, span := p.tracer.Start(ctx, "ingestion.replace")
	defer span.End()

	doc, err := p.catalog.Replace(ctx, products)
	if err != nil {
		span.RecordError(err)
		return doc, fmt.Errorf("save catalog: %w", err)
	}
	return doc, nil
}

func (p *Pipeline) push(ctx context.Context, summary *types.IngestionSummary) {
	ctx, span := p.tracer.Start(ctx, "ingestion.push")
	defer span.End()

	err := p.catalog.PushRemote(ctx)
	switch {
	case err == nil:
		summary.RemotePushed = true
	case errors.Is(err, types.ErrRemoteDisabled):
		span.SetAttributes(attribute.Bool("remote_disabled", true))
	default:
		span.RecordError(err)
		summary.RemoteWarning = types.StringPtr(err.Error())
		if hint := types.RemoteHint(err); hint != "" {
			summary.RemoteHint = types.StringPtr(hint)
		}
	}
}

// archiveFeed keeps a raw copy of the feed; failures are only logged
func (p *Pipeline) archiveFeed(ctx context.Context, src Source, summary *types.IngestionSummary, content []byte) {
	if p.archive == nil {
		return
	}
	key := ArchiveKey(summary.StartedAt, summary.RunID)
	err := p.archive.Put(ctx, key, content, &storage.Metadata{
		ContentType: "application/xml",
		Source:      summary.SourceName,
		WrittenAt:   p.now(),
		Custom: map[string]string{
			"run_id": summary.RunID,
			"kind":   string(src.Kind),
			"sha256": httpclient.ComputeSha256(content),
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Str("key", key).Msg("Failed to archive feed")
	}
}

func (p *Pipeline) finish(summary *types.IngestionSummary, status string, err error) {
	completed := p.now()
	summary.Status = status
	summary.CompletedAt = types.TimePtr(completed)
	if err != nil {
		summary.Error = types.StringPtr(err.Error())
	}
	p.metrics.RecordIngestion(status, completed.Sub(summary.StartedAt))

	stored := *summary
	p.last.Store(&stored)
}

// ArchiveKey returns the storage key for a run's raw feed
func ArchiveKey(started time.Time, runID string) string {
	return fmt.Sprintf("%s/%s/%s.xml", ArchivePrefix, started.UTC().Format("2006/01/02"), runID)
}
