package simplepublish

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Role is a named category of attachment governed by its own limits
type Role string

const (
	RoleProfilePicture Role = "profilePicture"
	RoleCertification  Role = "certification"
	RolePortfolioItem  Role = "portfolioItem"
	RoleJobAttachment  Role = "jobAttachment"
)

// AllRoles returns the known attachment roles in their canonical order
func AllRoles() []Role {
	return []Role{RoleProfilePicture, RoleCertification, RolePortfolioItem, RoleJobAttachment}
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// SubjectType identifies what a submission describes
type SubjectType string

const (
	SubjectProfile SubjectType = "profile"
	SubjectJob     SubjectType = "job"
)

// Attachment is a file selected for a submission.
// ByteSize is what validation checks; Data is what gets uploaded.
type Attachment struct {
	Name     string `json:"name"`
	ByteSize int64  `json:"byteSize"`
	Role     Role   `json:"role"`
	MimeType string `json:"mimeType,omitempty"`
	Data     []byte `json:"-"`
}

// NewAttachment creates an attachment whose size is taken from data
func NewAttachment(role Role, name, mimeType string, data []byte) Attachment {
	return Attachment{
		Name:     name,
		ByteSize: int64(len(data)),
		Role:     role,
		MimeType: mimeType,
		Data:     data,
	}
}

// File converts the attachment into the shape sent to an Uploader
func (a Attachment) File() File {
	return File{Name: a.Name, MimeType: a.MimeType, Data: a.Data}
}

// File is a single named payload inside an upload batch
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// ValidationRule limits the attachments of one role
type ValidationRule struct {
	MaxBytesPerFile int64 `json:"maxBytesPerFile"`
	MaxFilesPerRole int   `json:"maxFilesPerRole"`
}

// Rules maps each role to its validation rule
type Rules map[Role]ValidationRule

const (
	mebibyte = 1 << 20
)

// DefaultRules returns the stock per-role limits
func DefaultRules() Rules {
	return Rules{
		RoleProfilePicture: {MaxBytesPerFile: 5 * mebibyte, MaxFilesPerRole: 1},
		RoleCertification:  {MaxBytesPerFile: 10 * mebibyte, MaxFilesPerRole: 5},
		RolePortfolioItem:  {MaxBytesPerFile: 20 * mebibyte, MaxFilesPerRole: 10},
		RoleJobAttachment:  {MaxBytesPerFile: 10 * mebibyte, MaxFilesPerRole: 5},
	}
}

// ContentReference points at content stored by a provider.
// URL is derived from ContentID by the provider and treated as opaque.
type ContentReference struct {
	ContentID string `json:"contentId"`
	URL       string `json:"url"`
}

// IsZero reports whether the reference is empty
func (r ContentReference) IsZero() bool {
	return r.ContentID == ""
}

// ManifestDocument is the published document body, exactly as uploaded
type ManifestDocument struct {
	SubjectType          SubjectType                `json:"subjectType"`
	Fields               SubmissionFields           `json:"fields"`
	AttachmentReferences map[Role]*ContentReference `json:"attachmentReferences"`
	CreatedAt            time.Time                  `json:"createdAt"`
}

// UnmarshalJSON decodes fields into the concrete type named by subjectType
func (d *ManifestDocument) UnmarshalJSON(data []byte) error {
	var raw struct {
		SubjectType          SubjectType                `json:"subjectType"`
		Fields               json.RawMessage            `json:"fields"`
		AttachmentReferences map[Role]*ContentReference `json:"attachmentReferences"`
		CreatedAt            time.Time                  `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields, err := DecodeFields(raw.SubjectType, raw.Fields)
	if err != nil {
		return fmt.Errorf("failed to decode manifest fields: %w", err)
	}

	d.SubjectType = raw.SubjectType
	d.Fields = fields
	d.AttachmentReferences = raw.AttachmentReferences
	d.CreatedAt = raw.CreatedAt
	return nil
}

// PublishedManifest is the result of a successful publish.
// It is created once and never modified afterwards.
type PublishedManifest struct {
	SubjectType          SubjectType                `json:"subjectType"`
	Fields               SubmissionFields           `json:"fields"`
	AttachmentReferences map[Role]*ContentReference `json:"attachmentReferences"`
	CreatedAt            time.Time                  `json:"createdAt"`
	ManifestReference    ContentReference           `json:"manifestReference"`
}

// Document returns the manifest body without its own reference
func (m *PublishedManifest) Document() ManifestDocument {
	return ManifestDocument{
		SubjectType:          m.SubjectType,
		Fields:               m.Fields,
		AttachmentReferences: m.AttachmentReferences,
		CreatedAt:            m.CreatedAt,
	}
}

// ParseManifest decodes a manifest document fetched from a provider
func ParseManifest(data []byte) (*ManifestDocument, error) {
	var doc ManifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// sortedRoles returns the roles of m in canonical order followed by any
// unknown roles sorted by name
func sortedRoles[T any](m map[Role]T) []Role {
	roles := make([]Role, 0, len(m))
	for _, role := range AllRoles() {
		if _, ok := m[role]; ok {
			roles = append(roles, role)
		}
	}

	var extra []Role
	for role := range m {
		if !role.Valid() {
			extra = append(extra, role)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	return append(roles, extra...)
}
