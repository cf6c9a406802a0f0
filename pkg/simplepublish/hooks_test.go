package simplepublish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHooks_NilIsNoop(t *testing.T) {
	var h *Hooks
	ctx := context.Background()

	assert.NoError(t, h.executeBeforePublish(ctx, &PublishRequest{}))
	h.executeAfterBatchUpload(ctx, map[Role]*ContentReference{RoleCertification: {ContentID: "x"}})
	h.executeAfterPublish(ctx, &PublishedManifest{})
	h.executeOnError(ctx, "validate", errors.New("x"))
}

func TestHooks_StopChain(t *testing.T) {
	var calls []string
	h := &Hooks{
		BeforePublish: []BeforePublishHook{
			func(hctx *HookContext, req *PublishRequest) error {
				calls = append(calls, "first")
				hctx.Metadata["seen"] = true
				hctx.StopChain = true
				return nil
			},
			func(hctx *HookContext, req *PublishRequest) error {
				calls = append(calls, "second")
				return nil
			},
		},
	}

	assert.NoError(t, h.executeBeforePublish(context.Background(), &PublishRequest{}))
	assert.Equal(t, []string{"first"}, calls)
}

func TestHooks_BeforePublishCanRewriteRequest(t *testing.T) {
	h := &Hooks{
		BeforePublish: []BeforePublishHook{
			func(hctx *HookContext, req *PublishRequest) error {
				req.Fields = &ProfileFields{Name: "Rewritten", Title: "Engineer"}
				return nil
			},
		},
	}

	req := &PublishRequest{}
	assert.NoError(t, h.executeBeforePublish(context.Background(), req))
	assert.Equal(t, "Rewritten", req.Fields.(*ProfileFields).Name)
}

func TestHooks_AfterBatchUploadSkipsEmptyRoles(t *testing.T) {
	var roles []Role
	h := &Hooks{
		AfterBatchUpload: []AfterBatchUploadHook{
			func(hctx *HookContext, role Role, ref ContentReference) {
				roles = append(roles, role)
			},
		},
	}

	h.executeAfterBatchUpload(context.Background(), map[Role]*ContentReference{
		RoleJobAttachment:  {ContentID: "job"},
		RolePortfolioItem:  nil,
		RoleProfilePicture: {ContentID: "pic"},
	})
	assert.Equal(t, []Role{RoleProfilePicture, RoleJobAttachment}, roles)
}
