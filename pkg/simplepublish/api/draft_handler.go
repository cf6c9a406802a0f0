package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// DraftRequest is the request body for saving a draft
type DraftRequest struct {
	SubjectType simplepublish.SubjectType      `json:"subjectType"`
	Fields      json.RawMessage                `json:"fields"`
	Attachments []simplepublish.AttachmentInfo `json:"attachments,omitempty"`
}

func (req DraftRequest) draft(key string) *simplepublish.SubmissionDraft {
	return &simplepublish.SubmissionDraft{
		Key:         key,
		SubjectType: req.SubjectType,
		Fields:      req.Fields,
		Attachments: req.Attachments,
	}
}

// CreateDraft stores a new draft under a generated key
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.requestFailed(w, r, fmt.Errorf("invalid draft: %w", err))
		return
	}

	saved, err := h.publisher.SaveDraft(r.Context(), req.draft(""))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, saved)
}

// SaveDraft replaces the draft stored under the key
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req DraftRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.requestFailed(w, r, fmt.Errorf("invalid draft: %w", err))
		return
	}

	saved, err := h.publisher.SaveDraft(r.Context(), req.draft(key))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, saved)
}

// GetDraft returns the draft stored under the key
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.publisher.LoadDraft(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, draft)
}

// DeleteDraft discards the draft stored under the key
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.publisher.DiscardDraft(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishDraft publishes a stored draft. The body is multipart/form-data
// carrying the attachment files keyed by role.
func (h *Handler) PublishDraft(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var attachments map[simplepublish.Role][]simplepublish.Attachment
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.requestFailed(w, r, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		attachments, err = readAttachments(r.MultipartForm)
		if err != nil {
			h.requestFailed(w, r, err)
			return
		}
	}

	manifest, err := h.publisher.PublishDraft(r.Context(), key, attachments)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, manifest)
}
