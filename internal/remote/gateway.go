// Package remote defines the gateway to the per-user remote document store
// and its S3/MinIO implementation. The organizer keeps exactly one JSON
// document per user remotely; there are no partial or field-level updates.
package remote

import (
	"context"
	"time"
)

// FileInfo describes the remote document when it exists.
type FileInfo struct {
	ID           string
	ModifiedTime time.Time
}

// Gateway is the narrow contract the sync layer consumes. Each operation is
// idempotent from the caller's perspective; a failed write is logged by the
// caller and retried on the next save cycle.
type Gateway interface {
	// FindDocument returns the user's document metadata, or nil when no
	// remote document exists yet.
	FindDocument(ctx context.Context, userID string) (*FileInfo, error)
	// CreateDocument writes a new document and returns its id.
	CreateDocument(ctx context.Context, userID string, data []byte) (string, error)
	ReadDocument(ctx context.Context, id string) ([]byte, error)
	WriteDocument(ctx context.Context, id string, data []byte) error
}
