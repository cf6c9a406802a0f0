package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// GetContent returns a stored document or batch index
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeError(w, r, simplepublish.ErrObjectNotFound)
		return
	}

	cid := chi.URLParam(r, "cid")
	data, err := h.content.Fetch(r.Context(), cid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// content under a CID never changes
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+cid+`"`)
	_, _ = w.Write(data)
}

// GetContentFile streams one file of a stored batch
func (h *Handler) GetContentFile(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeError(w, r, simplepublish.ErrObjectNotFound)
		return
	}

	cid := chi.URLParam(r, "cid")
	name := chi.URLParam(r, "name")

	index, err := h.content.FetchIndex(r.Context(), cid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	mimeType := ""
	var size int64 = -1
	for _, entry := range index.Files {
		if entry.Name == name {
			mimeType = entry.MimeType
			size = entry.Size
			break
		}
	}
	if size < 0 {
		writeError(w, r, simplepublish.ErrObjectNotFound)
		return
	}
	if mimeType == "" {
		mimeType = defaultMediaType
	}

	rc, err := h.content.FetchFile(r.Context(), cid, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream content file",
			zap.String("cid", cid),
			zap.String("name", name),
			zap.Error(err),
		)
	}
}
