package urlstrategy

import (
	"context"
)

// URLStrategy derives access URLs from content identifiers.
// The same identifier always yields the same URL.
type URLStrategy interface {
	// GenerateURL creates the access URL for a stored object or batch
	GenerateURL(ctx context.Context, contentID string) (string, error)

	// GenerateFileURL creates the access URL for one file inside a batch
	GenerateFileURL(ctx context.Context, contentID string, fileName string) (string, error)
}
