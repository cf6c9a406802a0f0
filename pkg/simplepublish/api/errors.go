package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// ErrorBody is the error payload returned by every endpoint
type ErrorBody struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Role           string `json:"role,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Limit          int64  `json:"limit,omitempty"`
	Field          string `json:"field,omitempty"`
	Target         string `json:"target,omitempty"`
	ProviderStatus int    `json:"providerStatus,omitempty"`
	Retryable      bool   `json:"retryable,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

// ErrorResponse wraps ErrorBody
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// writeError maps domain errors to status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := describeError(err)
	body.RequestID = requestID(r)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: "bad_request", Message: message, RequestID: requestID(r)}})
}

func describeError(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error()}

	var (
		validationErr *simplepublish.ValidationError
		fieldErr      *simplepublish.FieldError
		uploadErr     *simplepublish.UploadError
		networkErr    *simplepublish.NetworkError
		configErr     *simplepublish.ConfigurationError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr):
		body.Code = "validation_failed"
		body.Role = string(validationErr.Role)
		body.FileName = validationErr.FileName
		body.Kind = string(validationErr.Kind)
		body.Limit = validationErr.Limit
		return http.StatusUnprocessableEntity, body

	case errors.As(err, &fieldErr):
		body.Code = "invalid_field"
		body.Field = fieldErr.Field
		return http.StatusUnprocessableEntity, body

	case errors.As(err, &uploadErr):
		body.Code = "upload_failed"
		body.Target = uploadErr.Target
		body.ProviderStatus = uploadErr.ProviderStatus
		body.Retryable = errors.Is(err, simplepublish.ErrNetwork) || uploadErr.ProviderStatus >= 500
		return http.StatusBadGateway, body

	case errors.As(err, &networkErr):
		body.Code = "provider_unreachable"
		body.Retryable = true
		return http.StatusBadGateway, body

	case errors.Is(err, simplepublish.ErrDraftNotFound):
		body.Code = "draft_not_found"
		return http.StatusNotFound, body

	case errors.Is(err, simplepublish.ErrObjectNotFound):
		body.Code = "content_not_found"
		return http.StatusNotFound, body

	case errors.Is(err, simplepublish.ErrNoDraftStore):
		body.Code = "drafts_disabled"
		return http.StatusNotImplemented, body

	case errors.As(err, &maxBytesErr):
		body.Code = "request_too_large"
		body.Limit = maxBytesErr.Limit
		return http.StatusRequestEntityTooLarge, body

	case errors.As(err, &configErr):
		body.Code = "configuration_error"
		return http.StatusInternalServerError, body

	default:
		body.Code = "internal_error"
		return http.StatusInternalServerError, body
	}
}
