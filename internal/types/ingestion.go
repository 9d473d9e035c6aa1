package types

import (
	"fmt"
	"time"
)

// SourceKind tells where a feed came from
type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceText SourceKind = "text"
	SourceFile SourceKind = "file"
)

// SkippedRecord is a feed record the normalizer rejected
type SkippedRecord struct {
	Position int    `json:"position"`
	ID       string `json:"id,omitempty"`
	Reason   string `json:"reason"`
}

// Err returns the skip as an error wrapping ErrInvalidRecord
func (s SkippedRecord) Err() error {
	if s.ID == "" {
		return fmt.Errorf("%w: record %d: %s", ErrInvalidRecord, s.Position, s.Reason)
	}
	return fmt.Errorf("%w: record %d (%s): %s", ErrInvalidRecord, s.Position, s.ID, s.Reason)
}

// IngestionSummary describes one ingestion run, as shown to the operator
type IngestionSummary struct {
	RunID         string          `json:"runId"`
	Source        SourceKind      `json:"source"`
	SourceName    string          `json:"sourceName,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	Status        string          `json:"status"`
	RecordTag     string          `json:"recordTag,omitempty"`
	TotalRecords  int             `json:"totalRecords"`
	Products      int             `json:"products"`
	SkippedCount  int             `json:"skippedCount"`
	Skipped       []SkippedRecord `json:"skipped,omitempty"`
	RemotePushed  bool            `json:"remotePushed"`
	RemoteWarning *string         `json:"remoteWarning,omitempty"`
	RemoteHint    *string         `json:"remoteHint,omitempty"`
	Error         *string         `json:"error,omitempty"`
}

// Ingestion run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to the given time
func TimePtr(t time.Time) *time.Time {
	return &t
}
