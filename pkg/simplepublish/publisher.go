package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher runs the validate, upload, publish pipeline for submissions
type Publisher struct {
	uploader Uploader
	drafts   DraftStore
	rules    Rules
	hooks    *Hooks
	logger   *zap.Logger
	now      Clock
}

// Option represents a functional option for configuring the publisher
type Option func(*Publisher)

// WithUploader sets the content-addressed storage provider
func WithUploader(uploader Uploader) Option {
	return func(p *Publisher) {
		p.uploader = uploader
	}
}

// WithDraftStore sets the store used by the draft operations
func WithDraftStore(store DraftStore) Option {
	return func(p *Publisher) {
		p.drafts = store
	}
}

// WithRules replaces the default attachment rules
func WithRules(rules Rules) Option {
	return func(p *Publisher) {
		p.rules = rules
	}
}

// WithHooks sets lifecycle hooks
func WithHooks(hooks *Hooks) Option {
	return func(p *Publisher) {
		p.hooks = hooks
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used for CreatedAt
func WithClock(clock Clock) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.now = clock
		}
	}
}

// New creates a new publisher with the given options
func New(options ...Option) (*Publisher, error) {
	p := &Publisher{
		rules:  DefaultRules(),
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, option := range options {
		option(p)
	}

	if p.uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if p.rules == nil {
		return nil, fmt.Errorf("rules are required")
	}

	return p, nil
}

// Rules returns the attachment rules the publisher validates against
func (p *Publisher) Rules() Rules {
	return p.rules
}

// Uploader returns the provider the publisher uploads to
func (p *Publisher) Uploader() Uploader {
	return p.uploader
}

// PublishRequest is one submission to publish
type PublishRequest struct {
	Fields      SubmissionFields
	Attachments map[Role][]Attachment
}

// Publish validates the submission, uploads one batch per non-empty role
// and then uploads the manifest that references them.
//
// Nothing is uploaded when validation fails. When any batch fails the
// manifest is never uploaded and no manifest is returned. Batches that did
// succeed stay in the provider unreferenced.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishedManifest, error) {
	if err := p.hooks.executeBeforePublish(ctx, &req); err != nil {
		return nil, p.fail(ctx, "before_publish", err)
	}

	if err := ValidateFields(req.Fields); err != nil {
		return nil, p.fail(ctx, "validate", err)
	}
	if err := ValidateByRole(req.Attachments, p.rules); err != nil {
		return nil, p.fail(ctx, "validate", err)
	}

	refs, err := p.uploadBatches(ctx, req.Attachments)
	if err != nil {
		return nil, p.fail(ctx, "upload_batch", err)
	}
	p.hooks.executeAfterBatchUpload(ctx, refs)

	manifest := &PublishedManifest{
		SubjectType:          req.Fields.Subject(),
		Fields:               req.Fields,
		AttachmentReferences: refs,
		CreatedAt:            p.now().UTC(),
	}

	ref, err := p.uploader.UploadDocument(ctx, manifest.Document())
	if err != nil {
		return nil, p.fail(ctx, "upload_manifest", uploadFailure(ManifestTarget, err))
	}
	if ref.IsZero() {
		return nil, p.fail(ctx, "upload_manifest", &UploadError{Target: ManifestTarget, Message: "provider returned an empty content reference"})
	}
	manifest.ManifestReference = ref

	p.logger.Info("published manifest",
		zap.String("subject_type", string(manifest.SubjectType)),
		zap.String("content_id", ref.ContentID),
		zap.Int("batches", countPresent(refs)),
	)
	p.hooks.executeAfterPublish(ctx, manifest)

	return manifest, nil
}

// uploadBatches uploads every non-empty role concurrently and waits for all
// of them. The returned map holds an entry for every known role; roles
// without attachments map to nil.
func (p *Publisher) uploadBatches(ctx context.Context, byRole map[Role][]Attachment) (map[Role]*ContentReference, error) {
	refs := make(map[Role]*ContentReference, len(AllRoles()))
	for _, role := range AllRoles() {
		refs[role] = nil
	}

	var roles []Role
	for _, role := range sortedRoles(byRole) {
		refs[role] = nil
		if len(byRole[role]) > 0 {
			roles = append(roles, role)
		}
	}

	results := make([]ContentReference, len(roles))
	var g errgroup.Group
	for i, role := range roles {
		files := make([]File, 0, len(byRole[role]))
		for _, a := range byRole[role] {
			files = append(files, a.File())
		}

		g.Go(func() error {
			p.logger.Debug("uploading batch", zap.String("role", string(role)), zap.Int("files", len(files)))
			ref, err := p.uploader.UploadBatch(ctx, files)
			if err != nil {
				return uploadFailure(string(role), err)
			}
			if ref.IsZero() {
				return &UploadError{Target: string(role), Message: "provider returned an empty content reference"}
			}
			results[i] = ref
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, role := range roles {
		ref := results[i]
		refs[role] = &ref
	}
	return refs, nil
}

func (p *Publisher) fail(ctx context.Context, operation string, err error) error {
	if errors.Is(err, ErrValidation) {
		p.logger.Info("submission rejected", zap.String("operation", operation), zap.Error(err))
	} else {
		p.logger.Error("publish failed", zap.String("operation", operation), zap.Error(err))
	}
	p.hooks.executeOnError(ctx, operation, err)
	return err
}

func countPresent(refs map[Role]*ContentReference) int {
	n := 0
	for _, ref := range refs {
		if ref != nil {
			n++
		}
	}
	return n
}
