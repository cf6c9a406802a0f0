package simplepublish

import (
	"context"
	"io"
	"time"
)

// Uploader is a content-addressed storage provider.
//
// Each call is a single attempt. UploadBatch either stores the whole batch
// and returns one reference for it, or fails and returns no reference; a
// caller must not assume any file of a failed batch was stored.
type Uploader interface {
	// UploadBatch stores files together and returns the batch reference
	UploadBatch(ctx context.Context, files []File) (ContentReference, error)

	// UploadDocument stores the JSON encoding of document
	UploadDocument(ctx context.Context, document any) (ContentReference, error)
}

// DraftStore persists submission drafts by key.
//
// Writes are last-write-wins: Set replaces the stored draft unconditionally.
// Get returns ErrDraftNotFound for unknown keys. Clear of an unknown key is
// not an error.
type DraftStore interface {
	Get(ctx context.Context, key string) (*SubmissionDraft, error)
	Set(ctx context.Context, draft *SubmissionDraft) error
	Clear(ctx context.Context, key string) error
}

// BlobStore defines the interface for storage backends behind the
// self-hosted content-addressed store
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// Clock returns the current time
type Clock func() time.Time
