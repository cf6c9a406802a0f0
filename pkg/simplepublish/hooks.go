package simplepublish

import (
	"context"
)

// Hook system lets callers observe the publish pipeline without modifying it.
// Before hooks may veto a publish; every other hook is observational.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	// Runs before validation. An error aborts the publish with no upload.
	BeforePublish []BeforePublishHook

	// Runs once per role after every batch of the submission succeeded
	AfterBatchUpload []AfterBatchUploadHook

	// Runs after the manifest has been uploaded
	AfterPublish []AfterPublishHook

	// Runs when any publish step fails
	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforePublishHook is called before a submission is validated
type BeforePublishHook func(hctx *HookContext, req *PublishRequest) error

// AfterBatchUploadHook is called with the reference of a stored batch
type AfterBatchUploadHook func(hctx *HookContext, role Role, ref ContentReference)

// AfterPublishHook is called with the completed manifest
type AfterPublishHook func(hctx *HookContext, manifest *PublishedManifest)

// ErrorHook is called when a publish step fails
type ErrorHook func(hctx *HookContext, operation string, err error)

func (h *Hooks) executeBeforePublish(ctx context.Context, req *PublishRequest) error {
	if h == nil || len(h.BeforePublish) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforePublish {
		if err := hook(hctx, req); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterBatchUpload(ctx context.Context, refs map[Role]*ContentReference) {
	if h == nil || len(h.AfterBatchUpload) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, role := range sortedRoles(refs) {
		ref := refs[role]
		if ref == nil {
			continue
		}
		for _, hook := range h.AfterBatchUpload {
			hook(hctx, role, *ref)
			if hctx.StopChain {
				return
			}
		}
	}
}

func (h *Hooks) executeAfterPublish(ctx context.Context, manifest *PublishedManifest) {
	if h == nil || len(h.AfterPublish) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPublish {
		hook(hctx, manifest)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if h == nil || len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}
