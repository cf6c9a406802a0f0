package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/internal/logger"
	"github.com/tendant/simple-publish/pkg/simplepublish/api"
	"github.com/tendant/simple-publish/pkg/simplepublish/catalog"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

// Config holds process settings. Publishing settings are read by
// config.WithEnv using EnvPrefix.
type Config struct {
	EnvPrefix       string `env:"SIMPLE_PUBLISH_ENV_PREFIX" env-default:""`
	LogJSON         bool   `env:"LOG_JSON" env-default:"true"`
	LogDebug        bool   `env:"LOG_DEBUG" env-default:"false"`
	CatalogFile     string `env:"CATALOG_FILE" env-default:""`
	MaxRequestBytes int64  `env:"MAX_REQUEST_BYTES" env-default:"268435456"`
	APIPrefix       string `env:"API_PREFIX" env-default:"/api/v1"`
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer zl.Sync()

	serverConfig, err := config.Load(config.WithEnv(cfg.EnvPrefix))
	if err != nil {
		zl.Fatal("loading publish configuration", zap.Error(err))
	}
	zl = logger.WithService(zl, serverConfig.Provider, serverConfig.Environment)

	ctx := context.Background()
	publisher, err := serverConfig.BuildPublisher(ctx, zl)
	if err != nil {
		zl.Fatal("building publisher", zap.Error(err))
	}

	opts := []api.Option{
		api.WithLogger(zl.Named("api")),
		api.WithMaxRequestBytes(cfg.MaxRequestBytes),
	}
	if cfg.CatalogFile != "" {
		candidates, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			zl.Fatal("loading candidate catalog", zap.String("file", cfg.CatalogFile), zap.Error(err))
		}
		opts = append(opts, api.WithCatalog(candidates))
		zl.Info("loaded candidate catalog", zap.Int("candidates", len(candidates)))
	}
	handler := api.NewHandler(publisher, publisher.Uploader(), opts...)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	if serverConfig.DraftStore == config.DraftStorePostgres {
		server.R.Get("/healthz/ready", readyHandler(func() error {
			return config.PingPostgres(serverConfig.DatabaseURL, serverConfig.DBSchema)
		}, zl))
	} else {
		app.RoutesHealthzReady(server.R)
	}

	server.R.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Mount("/", handler.Routes())
	})

	zl.Info("starting simple-publish server",
		zap.String("api_prefix", cfg.APIPrefix),
		zap.String("url_strategy", string(serverConfig.URLStrategy)),
		zap.String("draft_store", serverConfig.DraftStore),
	)

	server.Run()
}

// readyHandler answers 200 while check passes and 503 otherwise
func readyHandler(check func() error, zl *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(); err != nil {
			zl.Warn("readiness check failed", zap.Error(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.PlainText(w, r, http.StatusText(http.StatusServiceUnavailable))
			return
		}
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	}
}
