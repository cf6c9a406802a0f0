package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/cas"
	draftmemory "github.com/tendant/simple-publish/pkg/simplepublish/draftstore/memory"
	"github.com/tendant/simple-publish/pkg/simplepublish/match"
	"github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

const jobFieldsJSON = `{
	"title": "Go developer",
	"description": "Build publishing services",
	"skills": ["Go", "PostgreSQL"],
	"experienceLevel": "Senior",
	"budgetMin": "50",
	"budgetMax": "100",
	"remote": true
}`

type testFile struct {
	role, name, mimeType string
	data                 []byte
}

func setupHandlerTest(t *testing.T, uploader simplepublish.Uploader, opts ...simplepublish.Option) (http.Handler, simplepublish.Uploader) {
	t.Helper()
	if uploader == nil {
		store, err := cas.New(memory.New(), urlstrategy.NewContentBasedStrategy("/api/v1"))
		require.NoError(t, err)
		uploader = store
	}

	opts = append([]simplepublish.Option{
		simplepublish.WithUploader(uploader),
		simplepublish.WithDraftStore(draftmemory.New()),
	}, opts...)
	publisher, err := simplepublish.New(opts...)
	require.NoError(t, err)

	return NewHandler(publisher, uploader).Routes(), uploader
}

func multipartRequest(t *testing.T, target, fields string, files ...testFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fields != "" {
		require.NoError(t, w.WriteField(fieldsPart, fields))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.role+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mimeType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestPublishJob(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	w := serve(h, multipartRequest(t, "/jobs", jobFieldsJSON,
		testFile{"jobAttachment", "brief.pdf", "application/pdf", []byte("%PDF brief")},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var manifest struct {
		SubjectType          string                                    `json:"subjectType"`
		AttachmentReferences map[string]*simplepublish.ContentReference `json:"attachmentReferences"`
		ManifestReference    simplepublish.ContentReference            `json:"manifestReference"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))

	assert.Equal(t, "job", manifest.SubjectType)
	assert.Len(t, manifest.AttachmentReferences, 4)
	batch := manifest.AttachmentReferences["jobAttachment"]
	require.NotNil(t, batch)
	assert.Nil(t, manifest.AttachmentReferences["profilePicture"])
	assert.Equal(t, "/api/v1/content/"+manifest.ManifestReference.ContentID, manifest.ManifestReference.URL)

	t.Run("manifest is readable", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/content/"+manifest.ManifestReference.ContentID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		doc, err := simplepublish.ParseManifest(w.Body.Bytes())
		require.NoError(t, err)
		job, ok := doc.Fields.(*simplepublish.JobFields)
		require.True(t, ok)
		assert.Equal(t, "Go developer", job.Title)
		assert.Equal(t, batch.ContentID, doc.AttachmentReferences[simplepublish.RoleJobAttachment].ContentID)
	})

	t.Run("attachment is readable", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/content/"+batch.ContentID+"/files/brief.pdf", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, "%PDF brief", w.Body.String())

		w = serve(h, httptest.NewRequest(http.MethodGet, "/content/"+batch.ContentID+"/files/other.pdf", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("match against published job", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPost, "/match", `{"jobContentId":"`+manifest.ManifestReference.ContentID+`"}`))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp MatchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, match.LevelSenior, resp.Requirements.ExperienceLevel)
		assert.Len(t, resp.Results, match.DefaultTopK)
	})

	t.Run("batch content is not a job", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPost, "/match", `{"jobContentId":"`+batch.ContentID+`"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPublishProfile_JSONBody(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	w := serve(h, jsonRequest(http.MethodPost, "/profiles", `{"name":"Ada","title":"Engineer","remote":true}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var manifest struct {
		SubjectType          string                                    `json:"subjectType"`
		AttachmentReferences map[string]*simplepublish.ContentReference `json:"attachmentReferences"`
		ManifestReference    simplepublish.ContentReference            `json:"manifestReference"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))
	assert.Equal(t, "profile", manifest.SubjectType)
	assert.NotEmpty(t, manifest.ManifestReference.ContentID)
	for role, ref := range manifest.AttachmentReferences {
		assert.Nil(t, ref, role)
	}
}

func TestPublish_ValidationFailure(t *testing.T) {
	rules := simplepublish.DefaultRules()
	rules[simplepublish.RoleProfilePicture] = simplepublish.ValidationRule{MaxBytesPerFile: 4, MaxFilesPerRole: 1}
	h, _ := setupHandlerTest(t, nil, simplepublish.WithRules(rules))

	tests := []struct {
		name   string
		fields string
		files  []testFile
		code   string
		kind   string
	}{
		{
			name:   "file too large",
			fields: `{"name":"Ada","title":"Engineer"}`,
			files:  []testFile{{"profilePicture", "me.png", "image/png", []byte("too large")}},
			code:   "validation_failed",
			kind:   string(simplepublish.KindTooLarge),
		},
		{
			name:   "unknown role",
			fields: `{"name":"Ada","title":"Engineer"}`,
			files:  []testFile{{"coverLetter", "letter.txt", "text/plain", []byte("hi")}},
			code:   "validation_failed",
			kind:   string(simplepublish.KindUnknownRole),
		},
		{
			name:   "missing field",
			fields: `{"title":"Engineer"}`,
			code:   "invalid_field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, multipartRequest(t, "/profiles", tt.fields, tt.files...))
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestPublish_BadRequest(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	w := serve(h, multipartRequest(t, "/jobs", `{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString("plain"))
	req.Header.Set("Content-Type", "text/plain")
	w = serve(h, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingUploader struct {
	documents int
}

func (u *failingUploader) UploadBatch(ctx context.Context, files []simplepublish.File) (simplepublish.ContentReference, error) {
	return simplepublish.ContentReference{}, &simplepublish.NetworkError{Op: "pin", Err: errors.New("connection refused")}
}

func (u *failingUploader) UploadDocument(ctx context.Context, document any) (simplepublish.ContentReference, error) {
	u.documents++
	return simplepublish.ContentReference{ContentID: "doc", URL: "https://example.com/doc"}, nil
}

func TestPublish_UploadFailure(t *testing.T) {
	uploader := &failingUploader{}
	h, _ := setupHandlerTest(t, uploader)

	w := serve(h, multipartRequest(t, "/jobs", jobFieldsJSON,
		testFile{"jobAttachment", "brief.pdf", "application/pdf", []byte("brief")},
	))
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	body := decodeError(t, w)
	assert.Equal(t, "upload_failed", body.Code)
	assert.Equal(t, "jobAttachment", body.Target)
	assert.True(t, body.Retryable)
	assert.Equal(t, 0, uploader.documents)

	t.Run("content routes are disabled", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/content/anything", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDrafts(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	w := serve(h, jsonRequest(http.MethodPost, "/drafts", `{"subjectType":"job","fields":{"title":"Draft job"}}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created simplepublish.SubmissionDraft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Key)
	assert.False(t, created.UpdatedAt.IsZero())

	w = serve(h, jsonRequest(http.MethodPut, "/drafts/"+created.Key, `{"subjectType":"job","fields":`+jobFieldsJSON+`}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(h, httptest.NewRequest(http.MethodGet, "/drafts/"+created.Key, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var loaded simplepublish.SubmissionDraft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.JSONEq(t, jobFieldsJSON, string(loaded.Fields))

	t.Run("invalid subject", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPut, "/drafts/x", `{"subjectType":"invoice"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("publish draft", func(t *testing.T) {
		w := serve(h, multipartRequest(t, "/drafts/"+created.Key+"/publish", "",
			testFile{"jobAttachment", "brief.txt", "text/plain", []byte("brief")},
		))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = serve(h, httptest.NewRequest(http.MethodGet, "/drafts/"+created.Key, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "draft_not_found", decodeError(t, w).Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPut, "/drafts/temp", `{"subjectType":"profile","fields":{}}`))
		require.Equal(t, http.StatusOK, w.Code)

		w = serve(h, httptest.NewRequest(http.MethodDelete, "/drafts/temp", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = serve(h, httptest.NewRequest(http.MethodGet, "/drafts/temp", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMatch(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	t.Run("explicit requirements and candidates", func(t *testing.T) {
		body := `{
			"requirements": {"skillSet":["A","B"],"experienceLevel":"Senior","budgetMin":50,"budgetMax":100,"remote":true},
			"candidates": [
				{"title":"none","skillSet":["X"],"experienceLevel":"Expert","rateRange":{"min":150,"max":200}},
				{"title":"all","skillSet":["A","B","C"],"experienceLevel":"Senior","rateRange":{"min":50,"max":100},"remoteCapable":true}
			],
			"topK": 5
		}`
		w := serve(h, jsonRequest(http.MethodPost, "/match", body))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp MatchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "all", resp.Results[0].Candidate.Title)
		assert.Equal(t, 100, resp.Results[0].Total)
		assert.Equal(t, 1, resp.Results[0].Index)
		assert.Equal(t, 10, resp.Results[1].Total)
	})

	t.Run("job fields use the catalog", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPost, "/match", `{"job":`+jobFieldsJSON+`,"topK":2}`))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp MatchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Results, 2)
	})

	t.Run("missing job", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPost, "/match", `{}`))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := serve(h, jsonRequest(http.MethodPost, "/match", `{"topK":"three"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestJSONBodiesAreCapped(t *testing.T) {
	store, err := cas.New(memory.New(), urlstrategy.NewContentBasedStrategy("/api/v1"))
	require.NoError(t, err)
	publisher, err := simplepublish.New(
		simplepublish.WithUploader(store),
		simplepublish.WithDraftStore(draftmemory.New()),
	)
	require.NoError(t, err)
	h := NewHandler(publisher, store, WithMaxRequestBytes(64)).Routes()

	oversized := `{"subjectType":"job","fields":{"title":"` + strings.Repeat("x", 256) + `"}}`
	tests := []struct {
		method, target string
	}{
		{http.MethodPost, "/drafts"},
		{http.MethodPut, "/drafts/big"},
		{http.MethodPost, "/match"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := serve(h, jsonRequest(tt.method, tt.target, oversized))
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "request_too_large", body.Code)
			assert.Equal(t, int64(64), body.Limit)
		})
	}
}

func TestGetContent_NotFound(t *testing.T) {
	h, _ := setupHandlerTest(t, nil)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/content/sc1unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "content_not_found", decodeError(t, w).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "internal_error")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&simplepublish.ValidationError{Kind: simplepublish.KindTooManyFiles}, http.StatusUnprocessableEntity, "validation_failed"},
		{&simplepublish.FieldError{Field: "title"}, http.StatusUnprocessableEntity, "invalid_field"},
		{&simplepublish.UploadError{Target: "manifest", ProviderStatus: 401}, http.StatusBadGateway, "upload_failed"},
		{&simplepublish.NetworkError{Op: "pin", Err: errors.New("reset")}, http.StatusBadGateway, "provider_unreachable"},
		{simplepublish.ErrDraftNotFound, http.StatusNotFound, "draft_not_found"},
		{simplepublish.ErrNoDraftStore, http.StatusNotImplemented, "drafts_disabled"},
		{simplepublish.NewMissingCredentialError("credential"), http.StatusInternalServerError, "configuration_error"},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "request_too_large"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		status, body := describeError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, body.Code, tt.err.Error())
	}

	_, body := describeError(&simplepublish.UploadError{ProviderStatus: 401})
	assert.False(t, body.Retryable)
}
