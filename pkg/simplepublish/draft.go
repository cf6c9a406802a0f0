package simplepublish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttachmentInfo describes a selected attachment without its payload
type AttachmentInfo struct {
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	ByteSize int64  `json:"byteSize"`
	MimeType string `json:"mimeType,omitempty"`
}

// SubmissionDraft is an unpublished submission in progress
type SubmissionDraft struct {
	Key         string           `json:"key"`
	SubjectType SubjectType      `json:"subjectType"`
	Fields      json.RawMessage  `json:"fields,omitempty"`
	Attachments []AttachmentInfo `json:"attachments,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NewDraft captures fields and attachment metadata under key
func NewDraft(key string, fields SubmissionFields, attachments map[Role][]Attachment) (*SubmissionDraft, error) {
	if fields == nil {
		return nil, &FieldError{Field: "fields", Reason: "required"}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft fields: %w", err)
	}

	draft := &SubmissionDraft{
		Key:         key,
		SubjectType: fields.Subject(),
		Fields:      raw,
	}
	for _, a := range flatten(attachments) {
		draft.Attachments = append(draft.Attachments, AttachmentInfo{
			Role:     a.Role,
			Name:     a.Name,
			ByteSize: a.ByteSize,
			MimeType: a.MimeType,
		})
	}
	return draft, nil
}

// DecodeFields decodes the draft fields into their concrete type
func (d *SubmissionDraft) DecodeFields() (SubmissionFields, error) {
	return DecodeFields(d.SubjectType, d.Fields)
}

// Clone returns a deep copy of the draft
func (d *SubmissionDraft) Clone() *SubmissionDraft {
	c := *d
	if d.Fields != nil {
		c.Fields = append(json.RawMessage(nil), d.Fields...)
	}
	if d.Attachments != nil {
		c.Attachments = append([]AttachmentInfo(nil), d.Attachments...)
	}
	return &c
}

// Draft operations

// SaveDraft stores the draft, assigning a key when it has none.
// The stored draft replaces any previous one with the same key.
func (p *Publisher) SaveDraft(ctx context.Context, draft *SubmissionDraft) (*SubmissionDraft, error) {
	if p.drafts == nil {
		return nil, ErrNoDraftStore
	}
	if draft == nil {
		return nil, fmt.Errorf("draft is required")
	}
	if _, err := DecodeFields(draft.SubjectType, draft.Fields); err != nil {
		return nil, &FieldError{Field: "fields", Reason: err.Error()}
	}

	saved := draft.Clone()
	if saved.Key == "" {
		saved.Key = uuid.NewString()
	}
	saved.UpdatedAt = p.now().UTC()

	if err := p.drafts.Set(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save draft %s: %w", saved.Key, err)
	}
	p.logger.Debug("saved draft", zap.String("key", saved.Key))
	return saved, nil
}

// LoadDraft returns the draft stored under key
func (p *Publisher) LoadDraft(ctx context.Context, key string) (*SubmissionDraft, error) {
	if p.drafts == nil {
		return nil, ErrNoDraftStore
	}
	return p.drafts.Get(ctx, key)
}

// DiscardDraft removes the draft stored under key
func (p *Publisher) DiscardDraft(ctx context.Context, key string) error {
	if p.drafts == nil {
		return ErrNoDraftStore
	}
	return p.drafts.Clear(ctx, key)
}

// PublishDraft publishes the draft stored under key with the given
// attachment payloads. The draft is cleared only after a successful publish.
func (p *Publisher) PublishDraft(ctx context.Context, key string, attachments map[Role][]Attachment) (*PublishedManifest, error) {
	draft, err := p.LoadDraft(ctx, key)
	if err != nil {
		return nil, err
	}

	fields, err := draft.DecodeFields()
	if err != nil {
		return nil, &FieldError{Field: "fields", Reason: err.Error()}
	}

	manifest, err := p.Publish(ctx, PublishRequest{Fields: fields, Attachments: attachments})
	if err != nil {
		return nil, err
	}

	if err := p.drafts.Clear(ctx, key); err != nil {
		// the manifest is already published; a stale draft is harmless
		p.logger.Warn("failed to clear published draft", zap.String("key", key), zap.Error(err))
	}
	return manifest, nil
}
