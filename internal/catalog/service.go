package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/internal/metrics"
	"github.com/eppla/storefront/internal/types"
)

// HydrationState is the startup load state of the catalog
type HydrationState string

const (
	StateUninitialized HydrationState = "uninitialized"
	StateHydrating     HydrationState = "hydrating"
	StateReady         HydrationState = "ready"
	StateFailed        HydrationState = "failed"
)

// Source names the tier the active catalog came from
type Source string

const (
	SourceNone      Source = ""
	SourceRemote    Source = "remote"
	SourceLocal     Source = "local"
	SourceDefault   Source = "default"
	SourceIngestion Source = "ingestion"
)

// Status is a point-in-time view of the service for diagnostics
type Status struct {
	State       HydrationState `json:"state"`
	Source      Source         `json:"source"`
	Products    int            `json:"products"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Remote      string         `json:"remote"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// Service owns the active catalog. All writes go through Hydrate, Replace and
// Clear; reads never mutate it.
type Service struct {
	local      *LocalStore
	remote     RemoteStore
	classifier *Classifier
	defaults   func() (types.CatalogDocument, error)
	metrics    *metrics.Recorder
	clientName string
	now        func() time.Time

	mu       sync.RWMutex
	state    HydrationState
	source   Source
	doc      types.CatalogDocument
	index    map[string]int
	buckets  []CategoryBucket
	warnings []string
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithDefaultCatalog replaces the bundled fallback catalog
func WithDefaultCatalog(fn func() (types.CatalogDocument, error)) ServiceOption {
	return func(s *Service) { s.defaults = fn }
}

// WithClientName sets the name written to the remote health-check document
func WithClientName(name string) ServiceOption {
	return func(s *Service) { s.clientName = name }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a service with an empty, uninitialized catalog. A nil
// remote is treated as DisabledRemote.
func NewService(local *LocalStore, remote RemoteStore, classifier *Classifier, opts ...ServiceOption) *Service {
	if remote == nil {
		remote = DisabledRemote{}
	}
	if classifier == nil {
		classifier = NewClassifier(DefaultClassifierConfig())
	}
	s := &Service{
		local:      local,
		remote:     remote,
		classifier: classifier,
		defaults:   DefaultCatalog,
		metrics:    metrics.NewRecorder(),
		clientName: "storefront",
		now:        time.Now,
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.install(types.NewCatalogDocument(nil, time.Time{}), SourceNone)
	return s
}

// Hydrate loads the startup catalog from remote, then local, then the bundled
// default. It runs at most once successfully; calls while hydrating or after
// success are ignored. Only when every tier fails does it return
// types.ErrHydrationFailure, after which it may be retried.
func (s *Service) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateHydrating || s.state == StateReady {
		state := s.state
		s.mu.Unlock()
		log.Debug().Str("state", string(state)).Msg("Ignoring hydration trigger")
		return nil
	}
	s.state = StateHydrating
	s.mu.Unlock()

	doc, source, warnings, err := s.loadTiers(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = warnings
	if err != nil {
		s.state = StateFailed
		s.metrics.RecordHydration("failed")
		log.Error().Err(err).Msg("Catalog hydration failed at every tier")
		return err
	}

	// an ingestion may have installed a catalog while we were loading
	if s.source != SourceIngestion {
		s.installLocked(doc, source)
	}
	s.state = StateReady
	s.metrics.RecordHydration(string(source))
	log.Info().
		Str("source", string(source)).
		Int("products", doc.Count).
		Msg("Catalog hydrated")
	return nil
}

func (s *Service) loadTiers(ctx context.Context) (types.CatalogDocument, Source, []string, error) {
	var warnings []string
	var errs []error

	doc, found, err := s.remote.Pull(ctx)
	switch {
	case err != nil:
		errs = append(errs, err)
		if !errors.Is(err, types.ErrRemoteDisabled) {
			s.recordRemoteFailure("pull", err)
			warnings = append(warnings, "remote catalog unavailable, using local copy")
			log.Warn().Err(err).Str("backend", s.remote.Name()).Msg("Remote catalog pull failed")
		}
	case found && len(doc.Products) > 0:
		return doc, SourceRemote, warnings, nil
	}

	doc, found, err = s.local.Load(ctx)
	switch {
	case err != nil:
		errs = append(errs, err)
		warnings = append(warnings, "local catalog unreadable")
		log.Warn().Err(err).Msg("Local catalog load failed")
	case found && len(doc.Products) > 0:
		return doc, SourceLocal, warnings, nil
	}

	doc, err = s.defaults()
	if err != nil {
		errs = append(errs, err)
		if len(errs) == 3 {
			return types.CatalogDocument{}, SourceNone, warnings, fmt.Errorf("%w: %w", types.ErrHydrationFailure, errors.Join(errs...))
		}
		log.Warn().Err(err).Msg("Bundled catalog unavailable, starting empty")
		return types.NewCatalogDocument(nil, time.Time{}), SourceDefault, append(warnings, "bundled catalog unavailable"), nil
	}
	return doc, SourceDefault, warnings, nil
}

// Replace persists products locally and then swaps them in. On error the
// active catalog is left untouched.
func (s *Service) Replace(ctx context.Context, products []types.Product) (types.CatalogDocument, error) {
	doc := types.NewCatalogDocument(slices.Clone(products), s.now())
	if err := s.local.Save(ctx, doc); err != nil {
		return types.CatalogDocument{}, err
	}

	s.mu.Lock()
	s.installLocked(doc, SourceIngestion)
	s.state = StateReady
	s.warnings = nil
	s.mu.Unlock()
	return doc, nil
}

// PushRemote sends the active catalog to the remote store
func (s *Service) PushRemote(ctx context.Context) error {
	doc := s.Snapshot()
	if err := s.remote.Push(ctx, doc); err != nil {
		s.recordRemoteFailure("push", err)
		return err
	}
	return nil
}

// CheckRemote writes and reads back the remote health-check document
func (s *Service) CheckRemote(ctx context.Context) (HealthReport, error) {
	report, err := s.remote.HealthCheck(ctx, s.clientName)
	if err != nil {
		s.recordRemoteFailure("health", err)
		return HealthReport{}, err
	}
	return report, nil
}

// Clear wipes the local and in-memory catalog; the remote copy is untouched
func (s *Service) Clear(ctx context.Context) error {
	if err := s.local.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.installLocked(types.NewCatalogDocument(nil, s.now()), SourceNone)
	s.mu.Unlock()
	return nil
}

func (s *Service) install(doc types.CatalogDocument, source Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installLocked(doc, source)
}

func (s *Service) installLocked(doc types.CatalogDocument, source Source) {
	index := make(map[string]int, len(doc.Products))
	for i, p := range doc.Products {
		index[p.ID] = i
	}
	s.doc = doc
	s.index = index
	s.buckets = s.classifier.Classify(doc.Products)
	s.source = source
	s.metrics.SetCatalogSize(len(doc.Products))
}

func (s *Service) recordRemoteFailure(op string, err error) {
	kind := "unreachable"
	switch {
	case errors.Is(err, types.ErrRemoteWriteDenied):
		kind = "denied"
	case errors.Is(err, types.ErrRemoteDisabled):
		kind = "disabled"
	}
	s.metrics.RecordRemoteFailure(op, kind)
}

// State returns the hydration state
func (s *Service) State() HydrationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a diagnostics view
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:       s.state,
		Source:      s.source,
		Products:    len(s.doc.Products),
		LastUpdated: s.doc.LastUpdated,
		Remote:      s.remote.Name(),
		Warnings:    slices.Clone(s.warnings),
	}
}

// Snapshot returns a copy of the active catalog document
func (s *Service) Snapshot() types.CatalogDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.doc
	doc.Products = slices.Clone(s.doc.Products)
	return doc
}

// Products returns a copy of the active product list
func (s *Service) Products() []types.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Products)
}

// Product looks up a product by id
func (s *Service) Product(id string) (types.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return types.Product{}, false
	}
	return s.doc.Products[i], true
}

// ProductBySlug looks up a product by slug
func (s *Service) ProductBySlug(slug string) (types.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.doc.Products {
		if p.Slug == slug {
			return p, true
		}
	}
	return types.Product{}, false
}

// Buckets returns the navigation menu derived from the active catalog
func (s *Service) Buckets() []CategoryBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CategoryBucket, len(s.buckets))
	for i, b := range s.buckets {
		b.Subcategories = slices.Clone(b.Subcategories)
		out[i] = b
	}
	return out
}

// Classifier returns the classifier used for the menu
func (s *Service) Classifier() *Classifier {
	return s.classifier
}
