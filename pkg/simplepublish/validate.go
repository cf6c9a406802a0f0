package simplepublish

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks attachments against the per-role rules.
//
// Roles are checked in canonical order. Within a role the file count is
// checked first, then each file in input order; the first violation is
// returned as a *ValidationError. A size equal to the limit is accepted.
// An attachment carrying a payload must declare the payload's length.
func Validate(attachments []Attachment, rules Rules) error {
	byRole := make(map[Role][]Attachment)
	for _, a := range attachments {
		byRole[a.Role] = append(byRole[a.Role], a)
	}

	for _, role := range sortedRoles(byRole) {
		files := byRole[role]
		rule, ok := rules[role]
		if !ok {
			return &ValidationError{Role: role, FileName: files[0].Name, Kind: KindUnknownRole}
		}

		if len(files) > rule.MaxFilesPerRole {
			return &ValidationError{
				Role:  role,
				Kind:  KindTooManyFiles,
				Count: len(files),
				Limit: int64(rule.MaxFilesPerRole),
			}
		}

		for _, f := range files {
			if f.Data != nil && int64(len(f.Data)) != f.ByteSize {
				return &ValidationError{
					Role:     role,
					FileName: f.Name,
					Kind:     KindSizeMismatch,
					ByteSize: f.ByteSize,
					Limit:    int64(len(f.Data)),
				}
			}
			if f.ByteSize > rule.MaxBytesPerFile {
				return &ValidationError{
					Role:     role,
					FileName: f.Name,
					Kind:     KindTooLarge,
					ByteSize: f.ByteSize,
					Limit:    rule.MaxBytesPerFile,
				}
			}
		}
	}

	return nil
}

// ValidateByRole validates attachments grouped by role.
// The map key is authoritative for each attachment's role.
func ValidateByRole(attachments map[Role][]Attachment, rules Rules) error {
	return Validate(flatten(attachments), rules)
}

func flatten(byRole map[Role][]Attachment) []Attachment {
	var out []Attachment
	for _, role := range sortedRoles(byRole) {
		for _, a := range byRole[role] {
			a.Role = role
			out = append(out, a)
		}
	}
	return out
}

// CheckFileName reports whether name can be stored as a single file inside
// a batch directory
func CheckFileName(name string) error {
	switch {
	case name == "":
		return errors.New("file name is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid file name %q", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("file name %q must not contain path separators", name)
	}
	return nil
}

// CheckBatch rejects empty batches, invalid names and duplicate names
func CheckBatch(files []File) error {
	if len(files) == 0 {
		return errors.New("batch contains no files")
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := CheckFileName(f.Name); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate file name %q in batch", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
