// Package api exposes the publishing pipeline, drafts, matching and stored
// content over HTTP.
package api

import (
	"context"
	"io"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/cas"
	"github.com/tendant/simple-publish/pkg/simplepublish/catalog"
	"github.com/tendant/simple-publish/pkg/simplepublish/match"
)

const defaultMaxRequestBytes = 256 << 20

// ContentSource reads back content stored by the self-hosted provider
type ContentSource interface {
	Fetch(ctx context.Context, cid string) ([]byte, error)
	FetchIndex(ctx context.Context, cid string) (*cas.Index, error)
	FetchFile(ctx context.Context, cid, name string) (io.ReadCloser, error)
}

// Handler serves the HTTP API
type Handler struct {
	publisher       *simplepublish.Publisher
	content         ContentSource
	catalog         []match.Candidate
	logger          *zap.Logger
	maxRequestBytes int64
}

// Option configures a Handler
type Option func(*Handler)

// WithContentSource enables the content routes
func WithContentSource(source ContentSource) Option {
	return func(h *Handler) {
		h.content = source
	}
}

// WithCatalog replaces the demonstration catalog used by /match
func WithCatalog(candidates []match.Candidate) Option {
	return func(h *Handler) {
		h.catalog = candidates
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxRequestBytes limits multipart request bodies
func WithMaxRequestBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxRequestBytes = n
		}
	}
}

// NewHandler creates a handler for publisher. When the publisher's uploader
// can read content back, the content routes are enabled automatically.
func NewHandler(publisher *simplepublish.Publisher, uploader simplepublish.Uploader, opts ...Option) *Handler {
	h := &Handler{
		publisher:       publisher,
		catalog:         catalog.Demo(),
		logger:          zap.NewNop(),
		maxRequestBytes: defaultMaxRequestBytes,
	}
	if source, ok := uploader.(ContentSource); ok {
		h.content = source
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.logger))
	r.Use(RecoveryMiddleware(h.logger))

	r.Post("/profiles", h.PublishProfile)
	r.Post("/jobs", h.PublishJob)

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.CreateDraft)
		r.Put("/{key}", h.SaveDraft)
		r.Get("/{key}", h.GetDraft)
		r.Delete("/{key}", h.DeleteDraft)
		r.Post("/{key}/publish", h.PublishDraft)
	})

	r.Post("/match", h.Match)

	r.Get("/content/{cid}", h.GetContent)
	r.Get("/content/{cid}/files/{name}", h.GetContentFile)

	return r
}
