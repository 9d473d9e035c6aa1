package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eppla/storefront/internal/storage"
	"github.com/eppla/storefront/internal/types"
)

// LocalCatalogKey is the single key the active catalog lives under
const LocalCatalogKey = "active_catalog"

// LocalStore persists the catalog document in a key-value storage
type LocalStore struct {
	storage storage.Storage
	key     string
}

// NewLocalStore wraps a storage backend
func NewLocalStore(s storage.Storage) *LocalStore {
	return &LocalStore{storage: s, key: LocalCatalogKey}
}

// Save replaces the stored catalog
func (s *LocalStore) Save(ctx context.Context, doc types.CatalogDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	meta := &storage.Metadata{
		ContentType: "application/json",
		Source:      "ingestion",
		WrittenAt:   time.Now().UTC(),
		Custom:      map[string]string{"count": fmt.Sprint(doc.Count)},
	}
	if err := s.storage.Put(ctx, s.key, body, meta); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// Load returns the stored catalog, or found=false when nothing was saved
func (s *LocalStore) Load(ctx context.Context) (types.CatalogDocument, bool, error) {
	body, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return types.CatalogDocument{}, false, nil
	}
	if err != nil {
		return types.CatalogDocument{}, false, fmt.Errorf("failed to load catalog: %w", err)
	}

	var doc types.CatalogDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return types.CatalogDocument{}, false, fmt.Errorf("corrupt local catalog: %w", err)
	}
	return doc, true, nil
}

// Clear removes the stored catalog
func (s *LocalStore) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}

// Info describes the stored catalog document for diagnostics
func (s *LocalStore) Info(ctx context.Context) (*storage.FileInfo, error) {
	return s.storage.GetInfo(ctx, s.key)
}
