package config

import (
	"fmt"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithPinning selects the hosted pinning provider. Content-based URLs do not
// resolve for pinned content, so they are switched to gateway URLs.
func WithPinning(credential, apiURL string) Option {
	return func(c *ServerConfig) error {
		c.Provider = ProviderPinning
		c.Credential = credential
		if apiURL != "" {
			c.PinningAPIURL = apiURL
		}
		if c.URLStrategy == urlstrategy.StrategyTypeContentBased {
			c.URLStrategy = urlstrategy.StrategyTypeGateway
		}
		return nil
	}
}

// WithCAS selects the self-hosted content-addressed store
func WithCAS() Option {
	return func(c *ServerConfig) error {
		c.Provider = ProviderCAS
		return nil
	}
}

// WithGatewayURLs configures path-style gateway URLs
func WithGatewayURLs(gatewayURL string) Option {
	return func(c *ServerConfig) error {
		if gatewayURL == "" {
			return fmt.Errorf("gateway URL cannot be empty")
		}
		c.URLStrategy = urlstrategy.StrategyTypeGateway
		c.GatewayURL = gatewayURL
		return nil
	}
}

// WithSubdomainURLs configures subdomain gateway URLs
func WithSubdomainURLs(gatewayURL string) Option {
	return func(c *ServerConfig) error {
		if gatewayURL == "" {
			return fmt.Errorf("gateway URL cannot be empty")
		}
		c.URLStrategy = urlstrategy.StrategyTypeSubdomain
		c.GatewayURL = gatewayURL
		return nil
	}
}

// WithContentBasedURLs configures content-based URL strategy
func WithContentBasedURLs(apiBaseURL string) Option {
	return func(c *ServerConfig) error {
		if apiBaseURL == "" {
			apiBaseURL = "/api/v1"
		}
		c.URLStrategy = urlstrategy.StrategyTypeContentBased
		c.APIBaseURL = apiBaseURL
		return nil
	}
}

// WithMemoryStorage stores content in memory (for testing)
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemStorage stores content under baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": baseDir},
		}
		return nil
	}
}

// WithS3Storage stores content in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.Storage = StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithS3Credentials sets AWS credentials for S3 storage
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("S3 credentials require S3 storage, got: %s", c.Storage.Type)
		}
		c.Storage.Config["access_key_id"] = accessKeyID
		c.Storage.Config["secret_access_key"] = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("S3 endpoint requires S3 storage, got: %s", c.Storage.Type)
		}
		c.Storage.Config["endpoint"] = endpoint
		c.Storage.Config["use_path_style"] = usePathStyle
		c.Storage.Config["create_bucket_if_not_exist"] = true
		return nil
	}
}

// WithPostgresDrafts stores drafts in Postgres
func WithPostgresDrafts(url, schema string) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DraftStore = DraftStorePostgres
		c.DatabaseURL = url
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryDrafts keeps drafts in memory
func WithMemoryDrafts() Option {
	return func(c *ServerConfig) error {
		c.DraftStore = DraftStoreMemory
		c.DatabaseURL = ""
		return nil
	}
}

// WithRule overrides the limits of one attachment role
func WithRule(role simplepublish.Role, maxBytesPerFile int64, maxFilesPerRole int) Option {
	return func(c *ServerConfig) error {
		if maxBytesPerFile <= 0 || maxFilesPerRole <= 0 {
			return fmt.Errorf("limits for %s must be positive", role)
		}
		rules := make(simplepublish.Rules, len(c.Rules)+1)
		for r, rule := range c.Rules {
			rules[r] = rule
		}
		rules[role] = simplepublish.ValidationRule{MaxBytesPerFile: maxBytesPerFile, MaxFilesPerRole: maxFilesPerRole}
		c.Rules = rules
		return nil
	}
}
