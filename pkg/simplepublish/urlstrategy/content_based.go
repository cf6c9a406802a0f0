package urlstrategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ContentBasedStrategy generates URLs that route through the application
// API, used when content lives in the self-hosted store
type ContentBasedStrategy struct {
	APIBaseURL string // e.g., "https://api.example.com" or "/api/v1"
}

// NewContentBasedStrategy creates a new content-based URL strategy
func NewContentBasedStrategy(apiBaseURL string) *ContentBasedStrategy {
	return &ContentBasedStrategy{
		APIBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
	}
}

// GenerateURL creates a content-based URL
func (s *ContentBasedStrategy) GenerateURL(ctx context.Context, contentID string) (string, error) {
	if s.APIBaseURL == "" {
		return "", fmt.Errorf("API base URL not configured")
	}
	if contentID == "" {
		return "", fmt.Errorf("content ID is required")
	}
	return fmt.Sprintf("%s/content/%s", s.APIBaseURL, contentID), nil
}

// GenerateFileURL creates a content-based URL for a file inside a batch
func (s *ContentBasedStrategy) GenerateFileURL(ctx context.Context, contentID string, fileName string) (string, error) {
	base, err := s.GenerateURL(ctx, contentID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/files/%s", base, url.PathEscape(fileName)), nil
}
