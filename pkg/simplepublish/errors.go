package simplepublish

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates a submission failed validation before any upload
	ErrValidation = errors.New("validation failed")

	// ErrMissingCredential indicates the provider credential was not configured
	ErrMissingCredential = errors.New("missing credential")

	// ErrUploadFailed indicates a batch or manifest upload failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrNetwork indicates the provider could not be reached
	ErrNetwork = errors.New("network error")

	// ErrDraftNotFound indicates no draft is stored under the key
	ErrDraftNotFound = errors.New("draft not found")

	// ErrNoDraftStore indicates a draft operation on a publisher without a store
	ErrNoDraftStore = errors.New("draft store not configured")

	// ErrObjectNotFound indicates a blob store has no object under the key
	ErrObjectNotFound = errors.New("object not found")
)

// ValidationKind names the attachment constraint that was violated
type ValidationKind string

const (
	KindTooLarge     ValidationKind = "tooLarge"
	KindTooManyFiles ValidationKind = "tooManyFiles"
	KindUnknownRole  ValidationKind = "unknownRole"
	KindSizeMismatch ValidationKind = "sizeMismatch"
)

// ValidationError reports the first attachment constraint violation
type ValidationError struct {
	Role     Role
	FileName string
	Kind     ValidationKind
	ByteSize int64
	Count    int
	Limit    int64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindTooLarge:
		return fmt.Sprintf("attachment %q for role %s is too large: %d bytes exceeds limit of %d", e.FileName, e.Role, e.ByteSize, e.Limit)
	case KindTooManyFiles:
		return fmt.Sprintf("too many files for role %s: %d exceeds limit of %d", e.Role, e.Count, e.Limit)
	case KindUnknownRole:
		return fmt.Sprintf("no validation rule for role %s", e.Role)
	case KindSizeMismatch:
		return fmt.Sprintf("attachment %q for role %s declares %d bytes but carries %d", e.FileName, e.Role, e.ByteSize, e.Limit)
	default:
		return fmt.Sprintf("attachment validation failed for role %s", e.Role)
	}
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// FieldError reports an invalid submission field
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// ConfigurationError reports a setting that prevents construction
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewMissingCredentialError returns the error raised when setting holds no credential
func NewMissingCredentialError(setting string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Err: ErrMissingCredential}
}

// ManifestTarget is the UploadError target used for the manifest document
const ManifestTarget = "manifest"

// UploadError reports a failed batch or manifest upload.
// Target is the attachment role, or ManifestTarget.
type UploadError struct {
	Target         string
	ProviderStatus int
	Message        string
	Err            error
}

func (e *UploadError) Error() string {
	target := e.Target
	if target == "" {
		target = "provider"
	}
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg = msg + ": " + e.Err.Error()
	}
	if e.ProviderStatus != 0 {
		return fmt.Sprintf("upload to %s failed with status %d: %s", target, e.ProviderStatus, msg)
	}
	return fmt.Sprintf("upload to %s failed: %s", target, msg)
}

func (e *UploadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUploadFailed}
	}
	return []error{ErrUploadFailed, e.Err}
}

// NetworkError reports a transport failure while reaching the provider
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// uploadFailure attaches target to err, keeping provider details when err
// already is an UploadError
func uploadFailure(target string, err error) *UploadError {
	var ue *UploadError
	if errors.As(err, &ue) {
		wrapped := *ue
		if wrapped.Target == "" {
			wrapped.Target = target
		}
		return &wrapped
	}
	return &UploadError{Target: target, Err: err}
}
