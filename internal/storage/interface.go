package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no content exists at a key
var ErrNotFound = errors.New("storage: key not found")

// Metadata contains descriptive data stored next to a value
type Metadata struct {
	ContentType string            `json:"contentType,omitempty"`
	Source      string            `json:"source,omitempty"`
	WrittenAt   time.Time         `json:"writtenAt,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// FileInfo contains information about a stored value
type FileInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"contentType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Storage is a key-value blob store
type Storage interface {
	// Put replaces the content at key; readers see either the old or the new value
	Put(ctx context.Context, key string, content []byte, metadata *Metadata) error

	// Get retrieves content; a missing key yields ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// GetInfo retrieves information about a value without returning it
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if a value exists at key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a value; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// List returns all keys matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
)
