package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

const (
	fieldsPart       = "fields"
	multipartMemory  = 32 << 20
	contentTypeJSON  = "application/json"
	defaultMediaType = "application/octet-stream"
)

// PublishProfile publishes a profile submission.
//
// The body is multipart/form-data with a "fields" part holding the profile
// JSON and one file part per attachment, keyed by role. A plain JSON body
// publishes fields without attachments.
func (h *Handler) PublishProfile(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, simplepublish.SubjectProfile)
}

// PublishJob publishes a job posting submission
func (h *Handler) PublishJob(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, simplepublish.SubjectJob)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, subject simplepublish.SubjectType) {
	raw, attachments, err := h.readSubmission(w, r)
	if err != nil {
		h.requestFailed(w, r, err)
		return
	}

	fields, err := simplepublish.DecodeFields(subject, raw)
	if err != nil {
		writeBadRequest(w, r, fmt.Sprintf("invalid %s fields: %v", subject, err))
		return
	}

	manifest, err := h.publisher.Publish(r.Context(), simplepublish.PublishRequest{
		Fields:      fields,
		Attachments: attachments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, manifest)
}

// readSubmission reads the fields JSON and attachments from the request
func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (json.RawMessage, map[simplepublish.Role][]simplepublish.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeJSON {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, err
		}
		return raw, nil, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	defer r.MultipartForm.RemoveAll()

	var raw json.RawMessage
	if values := r.MultipartForm.Value[fieldsPart]; len(values) > 0 {
		raw = json.RawMessage(values[0])
	}

	attachments, err := readAttachments(r.MultipartForm)
	if err != nil {
		return nil, nil, err
	}
	return raw, attachments, nil
}

// readAttachments loads every file part. The form key is the attachment
// role; unknown roles are passed on so validation can reject them.
func readAttachments(form *multipart.Form) (map[simplepublish.Role][]simplepublish.Attachment, error) {
	keys := make([]string, 0, len(form.File))
	for key := range form.File {
		if key != fieldsPart {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	attachments := make(map[simplepublish.Role][]simplepublish.Attachment, len(keys))
	for _, key := range keys {
		role := simplepublish.Role(key)
		for _, fh := range form.File[key] {
			data, err := readFile(fh)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
			}
			mimeType := fh.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = defaultMediaType
			}
			attachments[role] = append(attachments[role], simplepublish.NewAttachment(role, fh.Filename, mimeType, data))
		}
	}
	return attachments, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// decodeJSON decodes a JSON body capped at the configured request size
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) requestFailed(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, err)
		return
	}
	h.logger.Debug("malformed request", zap.String("request_id", requestID(r)), zap.Error(err))
	writeBadRequest(w, r, err.Error())
}
