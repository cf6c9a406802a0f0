package urlstrategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GatewayStrategy generates path-style gateway URLs such as
// https://gateway.example.com/ipfs/<cid>
type GatewayStrategy struct {
	BaseURL string
}

// NewGatewayStrategy creates a new gateway URL strategy
func NewGatewayStrategy(baseURL string) *GatewayStrategy {
	return &GatewayStrategy{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// GenerateURL creates the gateway URL for contentID
func (s *GatewayStrategy) GenerateURL(ctx context.Context, contentID string) (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("gateway base URL not configured")
	}
	if contentID == "" {
		return "", fmt.Errorf("content ID is required")
	}
	return fmt.Sprintf("%s/ipfs/%s", s.BaseURL, contentID), nil
}

// GenerateFileURL creates the gateway URL for a file inside a batch
func (s *GatewayStrategy) GenerateFileURL(ctx context.Context, contentID string, fileName string) (string, error) {
	base, err := s.GenerateURL(ctx, contentID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", base, url.PathEscape(fileName)), nil
}

// SubdomainStrategy generates subdomain gateway URLs such as
// https://<cid>.ipfs.dweb.link
type SubdomainStrategy struct {
	Scheme string
	Host   string
}

// NewSubdomainStrategy creates a subdomain strategy from a gateway URL
func NewSubdomainStrategy(gatewayURL string) (*SubdomainStrategy, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("gateway URL %q has no host", gatewayURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return &SubdomainStrategy{Scheme: scheme, Host: u.Host}, nil
}

// GenerateURL creates the subdomain gateway URL for contentID
func (s *SubdomainStrategy) GenerateURL(ctx context.Context, contentID string) (string, error) {
	if s.Host == "" {
		return "", fmt.Errorf("gateway host not configured")
	}
	if contentID == "" {
		return "", fmt.Errorf("content ID is required")
	}
	// subdomain labels are case-insensitive
	return fmt.Sprintf("%s://%s.ipfs.%s", s.Scheme, strings.ToLower(contentID), s.Host), nil
}

// GenerateFileURL creates the subdomain gateway URL for a file inside a batch
func (s *SubdomainStrategy) GenerateFileURL(ctx context.Context, contentID string, fileName string) (string, error) {
	base, err := s.GenerateURL(ctx, contentID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", base, url.PathEscape(fileName)), nil
}
