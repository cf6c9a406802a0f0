package simplepublish_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/draftstore/memory"
)

func TestDrafts_RequireStore(t *testing.T) {
	p := newPublisher(t, &mockUploader{})
	ctx := context.Background()

	_, err := p.SaveDraft(ctx, &simplepublish.SubmissionDraft{SubjectType: simplepublish.SubjectProfile})
	assert.ErrorIs(t, err, simplepublish.ErrNoDraftStore)
	_, err = p.LoadDraft(ctx, "k")
	assert.ErrorIs(t, err, simplepublish.ErrNoDraftStore)
	assert.ErrorIs(t, p.DiscardDraft(ctx, "k"), simplepublish.ErrNoDraftStore)
	_, err = p.PublishDraft(ctx, "k", nil)
	assert.ErrorIs(t, err, simplepublish.ErrNoDraftStore)
}

func TestDrafts_SaveLoadDiscard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := newPublisher(t, &mockUploader{}, simplepublish.WithDraftStore(store))

	draft, err := simplepublish.NewDraft("", validProfile(), profileAttachments())
	require.NoError(t, err)
	assert.Equal(t, simplepublish.SubjectProfile, draft.SubjectType)
	require.Len(t, draft.Attachments, 3)
	assert.Equal(t, simplepublish.AttachmentInfo{
		Role: simplepublish.RoleProfilePicture, Name: "me.png", ByteSize: 3, MimeType: "image/png",
	}, draft.Attachments[0])

	saved, err := p.SaveDraft(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Key)
	assert.Equal(t, fixedTime, saved.UpdatedAt)
	assert.Empty(t, draft.Key, "caller's draft is not modified")

	loaded, err := p.LoadDraft(ctx, saved.Key)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	fields, err := loaded.DecodeFields()
	require.NoError(t, err)
	assert.Equal(t, validProfile(), fields)

	require.NoError(t, p.DiscardDraft(ctx, saved.Key))
	_, err = p.LoadDraft(ctx, saved.Key)
	assert.ErrorIs(t, err, simplepublish.ErrDraftNotFound)

	assert.NoError(t, p.DiscardDraft(ctx, saved.Key), "discarding twice is not an error")
}

func TestDrafts_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := fixedTime
	p, err := simplepublish.New(
		simplepublish.WithUploader(&mockUploader{}),
		simplepublish.WithDraftStore(store),
		simplepublish.WithClock(func() time.Time { return clock }),
	)
	require.NoError(t, err)

	first, err := simplepublish.NewDraft("draft-1", validProfile(), nil)
	require.NoError(t, err)
	_, err = p.SaveDraft(ctx, first)
	require.NoError(t, err)

	updated := validProfile()
	updated.Title = "Principal Engineer"
	second, err := simplepublish.NewDraft("draft-1", updated, nil)
	require.NoError(t, err)
	clock = fixedTime.Add(time.Minute)
	_, err = p.SaveDraft(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	loaded, err := p.LoadDraft(ctx, "draft-1")
	require.NoError(t, err)
	fields, err := loaded.DecodeFields()
	require.NoError(t, err)
	assert.Equal(t, "Principal Engineer", fields.(*simplepublish.ProfileFields).Title)
	assert.Equal(t, fixedTime.Add(time.Minute), loaded.UpdatedAt)
}

func TestDrafts_InvalidFieldsRejected(t *testing.T) {
	p := newPublisher(t, &mockUploader{}, simplepublish.WithDraftStore(memory.New()))

	_, err := p.SaveDraft(context.Background(), &simplepublish.SubmissionDraft{
		Key:         "bad",
		SubjectType: simplepublish.SubjectJob,
		Fields:      []byte(`{"skills": 42}`),
	})
	var fe *simplepublish.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "fields", fe.Field)

	_, err = simplepublish.NewDraft("k", nil, nil)
	assert.ErrorIs(t, err, simplepublish.ErrValidation)
}

func TestPublishDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears the draft", func(t *testing.T) {
		store := memory.New()
		uploader := &mockUploader{}
		uploader.On("UploadBatch", mock.Anything, filesNamed("me.png")).Return(ref("QmPicture"), nil).Once()
		uploader.On("UploadDocument", mock.Anything, mock.Anything).Return(ref("QmManifest"), nil).Once()
		p := newPublisher(t, uploader, simplepublish.WithDraftStore(store))

		draft, err := simplepublish.NewDraft("draft-1", validProfile(), nil)
		require.NoError(t, err)
		_, err = p.SaveDraft(ctx, draft)
		require.NoError(t, err)

		manifest, err := p.PublishDraft(ctx, "draft-1", map[simplepublish.Role][]simplepublish.Attachment{
			simplepublish.RoleProfilePicture: profileAttachments()[simplepublish.RoleProfilePicture],
		})
		require.NoError(t, err)
		assert.Equal(t, "QmManifest", manifest.ManifestReference.ContentID)
		assert.Equal(t, validProfile(), manifest.Fields)
		assert.Equal(t, 0, store.Len())
		uploader.AssertExpectations(t)
	})

	t.Run("failure keeps the draft", func(t *testing.T) {
		store := memory.New()
		uploader := &mockUploader{}
		p := newPublisher(t, uploader, simplepublish.WithDraftStore(store))

		incomplete := validProfile()
		incomplete.Name = ""
		draft, err := simplepublish.NewDraft("draft-2", incomplete, nil)
		require.NoError(t, err)
		_, err = p.SaveDraft(ctx, draft)
		require.NoError(t, err)

		_, err = p.PublishDraft(ctx, "draft-2", nil)
		assert.ErrorIs(t, err, simplepublish.ErrValidation)
		assert.Equal(t, 1, store.Len())
		uploader.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything)
	})

	t.Run("unknown key", func(t *testing.T) {
		p := newPublisher(t, &mockUploader{}, simplepublish.WithDraftStore(memory.New()))
		_, err := p.PublishDraft(ctx, "missing", nil)
		assert.ErrorIs(t, err, simplepublish.ErrDraftNotFound)
	})
}
