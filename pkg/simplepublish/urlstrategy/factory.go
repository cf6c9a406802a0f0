package urlstrategy

import (
	"fmt"
)

// URLStrategyType represents the type of URL strategy
type URLStrategyType string

const (
	// Path-style public gateway URLs
	StrategyTypeGateway URLStrategyType = "gateway"

	// Subdomain gateway URLs
	StrategyTypeSubdomain URLStrategyType = "subdomain"

	// Application-routed URLs
	StrategyTypeContentBased URLStrategyType = "content-based"
)

// DefaultGatewayURL is the public gateway used when none is configured
const DefaultGatewayURL = "https://gateway.pinata.cloud"

// Config holds configuration for URL strategy creation
type Config struct {
	Type       URLStrategyType
	GatewayURL string // For gateway and subdomain strategies
	APIBaseURL string // For content-based strategy
}

// NewURLStrategy creates a URL strategy based on the configuration
func NewURLStrategy(config Config) (URLStrategy, error) {
	switch config.Type {
	case StrategyTypeGateway, "":
		if config.GatewayURL == "" {
			return nil, fmt.Errorf("gateway URL is required for gateway strategy")
		}
		return NewGatewayStrategy(config.GatewayURL), nil

	case StrategyTypeSubdomain:
		if config.GatewayURL == "" {
			return nil, fmt.Errorf("gateway URL is required for subdomain strategy")
		}
		return NewSubdomainStrategy(config.GatewayURL)

	case StrategyTypeContentBased:
		if config.APIBaseURL == "" {
			return nil, fmt.Errorf("API base URL is required for content-based strategy")
		}
		return NewContentBasedStrategy(config.APIBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// NewDefaultStrategy creates a gateway strategy, falling back to the public gateway
func NewDefaultStrategy(gatewayURL string) URLStrategy {
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	return NewGatewayStrategy(gatewayURL)
}
