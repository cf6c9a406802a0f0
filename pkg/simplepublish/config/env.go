package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Provider:
//
//	PROVIDER - "pinning" or "cas" (default: "pinning" when PINNING_JWT is set, else "cas")
//	PINNING_JWT - Pinning service credential
//	PINNING_API_URL - Pinning API base URL
//
// URLs:
//
//	URL_STRATEGY - "gateway", "subdomain" or "content-based"
//	GATEWAY_URL - Gateway base URL for gateway and subdomain URLs
//	API_BASE_URL - Base path for content-based URLs (default: "/api/v1")
//
// Storage (cas provider only):
//
//	STORAGE_URL - one of:
//	              - "memory://" - In-memory storage (default)
//	              - "file:///path/to/data" - Filesystem storage
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&prefix=published"
//
// Drafts:
//
//	DATABASE_URL - "postgres://..." stores drafts in Postgres; empty or "memory" keeps them in memory
//	DB_SCHEMA - Postgres schema for the draft table
//
// Limits:
//
//	<ROLE>_MAX_BYTES, <ROLE>_MAX_FILES - e.g. PORTFOLIO_ITEM_MAX_BYTES
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyProviderEnv(prefix, c); err != nil {
			return err
		}
		if err := applyURLEnv(prefix, c); err != nil {
			return err
		}
		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}
		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		return applyRulesEnv(prefix, c)
	}
}

func applyProviderEnv(prefix string, c *ServerConfig) error {
	credential, _ := lookupEnv(prefix, "PINNING_JWT")
	if credential != "" {
		c.Credential = credential
	}
	if v, ok := lookupEnv(prefix, "PINNING_API_URL"); ok && v != "" {
		c.PinningAPIURL = v
	}

	provider, ok := lookupEnv(prefix, "PROVIDER")
	switch {
	case ok && provider != "":
		if provider != ProviderPinning && provider != ProviderCAS {
			return fmt.Errorf("unsupported %sPROVIDER: %s (use '%s' or '%s')", prefix, provider, ProviderPinning, ProviderCAS)
		}
		c.Provider = provider
	case credential != "":
		c.Provider = ProviderPinning
	}

	if c.Provider == ProviderPinning && c.URLStrategy == urlstrategy.StrategyTypeContentBased {
		c.URLStrategy = urlstrategy.StrategyTypeGateway
	}
	return nil
}

func applyURLEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "URL_STRATEGY"); ok && v != "" {
		c.URLStrategy = urlstrategy.URLStrategyType(v)
	}
	if v, ok := lookupEnv(prefix, "GATEWAY_URL"); ok && v != "" {
		c.GatewayURL = v
	}
	if v, ok := lookupEnv(prefix, "API_BASE_URL"); ok && v != "" {
		c.APIBaseURL = v
	}
	return nil
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok {
		c.DBSchema = v
	}

	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")
	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DraftStore = DraftStoreMemory
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DraftStore = DraftStorePostgres
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyStorageEnv applies storage configuration from environment
func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, hasURL := lookupEnv(prefix, "STORAGE_URL")

	if !hasURL || storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}

	switch {
	case strings.HasPrefix(storageURL, "file://"):
		return applyFilesystemStorage(storageURL, c)
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyFilesystemStorage configures filesystem storage from URL
// Format: file:///path/to/data
func applyFilesystemStorage(raw string, c *ServerConfig) error {
	path := strings.TrimPrefix(raw, "file://")
	if path == "" {
		return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
	}

	c.Storage = StorageBackendConfig{
		Type:   "fs",
		Config: map[string]interface{}{"base_dir": path},
	}
	return nil
}

// applyS3Storage configures S3 storage from URL
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000
func applyS3Storage(raw string, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	q := u.Query()
	backend := StorageBackendConfig{
		Type: "s3",
		Config: map[string]interface{}{
			"bucket": u.Host,
			"region": "us-east-1",
		},
	}
	if v := q.Get("region"); v != "" {
		backend.Config["region"] = v
	}
	if v := q.Get("prefix"); v != "" {
		backend.Config["prefix"] = v
	}
	if v := q.Get("endpoint"); v != "" {
		// custom endpoints are MinIO-style services
		backend.Config["endpoint"] = v
		backend.Config["use_path_style"] = true
		backend.Config["create_bucket_if_not_exist"] = true
	}
	if v := q.Get("sse"); v != "" {
		backend.Config["enable_sse"] = true
		backend.Config["sse_algorithm"] = v
		if kms := q.Get("kms_key_id"); kms != "" {
			backend.Config["sse_kms_key_id"] = kms
		}
	}

	// Check for AWS credentials in environment
	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		backend.Config["access_key_id"] = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		backend.Config["secret_access_key"] = secretKey
	}
	if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" && q.Get("region") == "" {
		backend.Config["region"] = region
	}

	c.Storage = backend
	return nil
}

func applyRulesEnv(prefix string, c *ServerConfig) error {
	rules := make(simplepublish.Rules, len(c.Rules))
	for role, rule := range c.Rules {
		rules[role] = rule
	}

	for _, role := range simplepublish.AllRoles() {
		name := envRoleName(role)
		rule := rules[role]

		maxBytes, ok, err := parseIntEnv(prefix, name+"_MAX_BYTES")
		if err != nil {
			return err
		}
		if ok {
			rule.MaxBytesPerFile = int64(maxBytes)
		}

		maxFiles, ok, err := parseIntEnv(prefix, name+"_MAX_FILES")
		if err != nil {
			return err
		}
		if ok {
			rule.MaxFilesPerRole = maxFiles
		}

		if rule != (simplepublish.ValidationRule{}) {
			rules[role] = rule
		}
	}

	c.Rules = rules
	return nil
}

// envRoleName turns portfolioItem into PORTFOLIO_ITEM
func envRoleName(role simplepublish.Role) string {
	var b strings.Builder
	for i, r := range string(role) {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
