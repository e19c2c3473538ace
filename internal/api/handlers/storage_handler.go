package handlers

import (
	stderrors "errors"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/storage/local"
)

// LocalUploadHandler accepts the browser PUT for URLs signed by the local
// storage backend.
type LocalUploadHandler struct {
	backend *local.Backend
}

func NewLocalUploadHandler(backend *local.Backend) *LocalUploadHandler {
	return &LocalUploadHandler{backend: backend}
}

func (h *LocalUploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(param(r, "object"), "/")
	q := r.URL.Query()
	contentType := q.Get("content_type")

	if err := h.backend.Verify(objectPath, contentType, q.Get("expires"), q.Get("signature")); err != nil {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Upload URL is invalid or expired", nil)
		return
	}
	if got, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); got != "" && !strings.EqualFold(got, contentType) {
		errors.Respond(w, errors.Validation("Content-Type does not match the signed upload", "Content-Type"))
		return
	}

	size, err := h.backend.Write(objectPath, r.Body)
	switch {
	case stderrors.Is(err, local.ErrObjectExists):
		errors.Respond(w, errors.Conflict("Upload URL has already been used"))
		return
	case stderrors.Is(err, local.ErrTooLarge):
		errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "File too large", nil)
		return
	case err != nil:
		log.Error().Err(err).Str("path", objectPath).Msg("failed to store upload")
		errors.Respond(w, errors.Upstream("Failed to store upload", err))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success  bool   `json:"success"`
		FilePath string `json:"filePath"`
		Size     int64  `json:"size"`
	}{true, objectPath, size})
}
