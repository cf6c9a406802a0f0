package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/cas"
	memorydrafts "github.com/tendant/simple-publish/pkg/simplepublish/draftstore/memory"
	pgdrafts "github.com/tendant/simple-publish/pkg/simplepublish/draftstore/postgres"
	"github.com/tendant/simple-publish/pkg/simplepublish/pinning"
	fsstorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/fs"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
	s3storage "github.com/tendant/simple-publish/pkg/simplepublish/storage/s3"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

// Provider names
const (
	ProviderPinning = "pinning"
	ProviderCAS     = "cas"
)

// Draft store names
const (
	DraftStoreMemory   = "memory"
	DraftStorePostgres = "postgres"
)

// CredentialSetting is the setting reported when the pinning credential is missing
const CredentialSetting = "credential"

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:   "development",
		Provider:      ProviderCAS,
		PinningAPIURL: pinning.DefaultAPIBaseURL,
		GatewayURL:    urlstrategy.DefaultGatewayURL,
		URLStrategy:   urlstrategy.StrategyTypeContentBased,
		APIBaseURL:    "/api/v1",
		Storage: StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		DraftStore: DraftStoreMemory,
		DBSchema:   "",
		Rules:      simplepublish.DefaultRules(),
	}
}

// ServerConfig represents configuration for the publishing service
type ServerConfig struct {
	Environment string // development, production, testing

	// Content-addressed storage provider
	Provider      string // "pinning", "cas"
	Credential    string // pinning service credential
	PinningAPIURL string

	// URL derivation
	URLStrategy urlstrategy.URLStrategyType
	GatewayURL  string
	APIBaseURL  string // used by content-based URLs

	// Blob storage behind the self-hosted provider
	Storage StorageBackendConfig

	// Drafts
	DraftStore  string // "memory", "postgres"
	DatabaseURL string
	DBSchema    string // Postgres schema for the draft table (default: search path)

	Rules simplepublish.Rules
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	switch c.Provider {
	case ProviderPinning:
		if c.Credential == "" {
			return simplepublish.NewMissingCredentialError(CredentialSetting)
		}
	case ProviderCAS:
		if err := c.Storage.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("provider must be '%s' or '%s', got: %s", ProviderPinning, ProviderCAS, c.Provider)
	}

	switch c.URLStrategy {
	case urlstrategy.StrategyTypeGateway, urlstrategy.StrategyTypeSubdomain:
		if c.GatewayURL == "" {
			return errors.New("gateway_url is required for gateway URLs")
		}
	case urlstrategy.StrategyTypeContentBased:
		if c.Provider == ProviderPinning {
			return errors.New("content-based URLs require the cas provider")
		}
	default:
		return fmt.Errorf("unsupported URL strategy: %s", c.URLStrategy)
	}

	if c.DraftStore != DraftStoreMemory && c.DraftStore != DraftStorePostgres {
		return errors.New("draft_store must be 'memory' or 'postgres'")
	}
	if c.DraftStore == DraftStorePostgres && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if len(c.Rules) == 0 {
		return errors.New("at least one attachment rule is required")
	}
	for role, rule := range c.Rules {
		if rule.MaxBytesPerFile <= 0 || rule.MaxFilesPerRole <= 0 {
			return fmt.Errorf("attachment rule for %s must have positive limits", role)
		}
	}

	return nil
}

func (s StorageBackendConfig) validate() error {
	switch s.Type {
	case "memory":
		return nil
	case "fs":
		if getString(s.Config, "base_dir", "") == "" {
			return errors.New("filesystem storage requires base_dir")
		}
		return nil
	case "s3":
		if getString(s.Config, "bucket", "") == "" {
			return errors.New("s3 storage requires bucket")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend type: %s", s.Type)
	}
}

// BuildURLStrategy creates the URL strategy used by the provider
func (c *ServerConfig) BuildURLStrategy() (urlstrategy.URLStrategy, error) {
	return urlstrategy.NewURLStrategy(urlstrategy.Config{
		Type:       c.URLStrategy,
		GatewayURL: c.GatewayURL,
		APIBaseURL: c.APIBaseURL,
	})
}

// BuildUploader creates the configured content-addressed storage provider
func (c *ServerConfig) BuildUploader(logger *zap.Logger) (simplepublish.Uploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	urls, err := c.BuildURLStrategy()
	if err != nil {
		return nil, fmt.Errorf("failed to build URL strategy: %w", err)
	}

	switch c.Provider {
	case ProviderPinning:
		return pinning.New(pinning.Config{
			Credential:  c.Credential,
			APIBaseURL:  c.PinningAPIURL,
			URLStrategy: urls,
			Logger:      logger.Named("pinning"),
		})
	case ProviderCAS:
		blobs, err := c.buildStorageBackend()
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
		}
		return cas.New(blobs, urls, cas.WithLogger(logger.Named("cas")))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.Provider)
	}
}

// BuildDraftStore creates the draft store. The postgres store creates its
// table on first use.
func (c *ServerConfig) BuildDraftStore(ctx context.Context) (simplepublish.DraftStore, error) {
	switch c.DraftStore {
	case DraftStoreMemory:
		return memorydrafts.New(), nil
	case DraftStorePostgres:
		pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		store := pgdrafts.NewWithPool(pool, c.DBSchema)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported draft store: %s", c.DraftStore)
	}
}

// BuildPublisher creates a Publisher instance from the server configuration
func (c *ServerConfig) BuildPublisher(ctx context.Context, logger *zap.Logger) (*simplepublish.Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	uploader, err := c.BuildUploader(logger)
	if err != nil {
		return nil, err
	}

	drafts, err := c.BuildDraftStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build draft store: %w", err)
	}

	return simplepublish.New(
		simplepublish.WithUploader(uploader),
		simplepublish.WithDraftStore(drafts),
		simplepublish.WithRules(c.Rules),
		simplepublish.WithLogger(logger.Named("publisher")),
	)
}

func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets search_path for the session.
// It fails if the schema (when provided) does not exist.
func PingPostgres(databaseURL, schema string) error {
	pool, err := newPool(context.Background(), databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend() (simplepublish.BlobStore, error) {
	config := c.Storage
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: getString(config.Config, "base_dir", "./data/storage"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
