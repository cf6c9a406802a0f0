package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// readFields loads submission fields from a YAML or JSON file. Keys use the
// same camelCase names as the published manifest.
func readFields(subject simplepublish.SubjectType, path string) (simplepublish.SubmissionFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fields: %w", err)
	}
	return parseFields(subject, data)
}

// parseFields decodes straight into the concrete fields type, so unquoted
// YAML numbers land in numeric-as-text fields as their literal text
func parseFields(subject simplepublish.SubjectType, data []byte) (simplepublish.SubmissionFields, error) {
	fields, err := simplepublish.DecodeFields(subject, nil)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, fields); err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	return fields, nil
}

// parseAttachFlag splits a role=path flag value
func parseAttachFlag(value string) (simplepublish.Role, string, error) {
	role, path, ok := strings.Cut(value, "=")
	role, path = strings.TrimSpace(role), strings.TrimSpace(path)
	if !ok || role == "" || path == "" {
		return "", "", fmt.Errorf("attachment %q must be role=path", value)
	}
	if !simplepublish.Role(role).Valid() {
		return "", "", fmt.Errorf("unknown attachment role %q", role)
	}
	return simplepublish.Role(role), path, nil
}

// readAttachments loads every role=path value into attachments grouped by role
func readAttachments(values []string) (map[simplepublish.Role][]simplepublish.Attachment, error) {
	byRole := make(map[simplepublish.Role][]simplepublish.Attachment)
	for _, value := range values {
		role, path, err := parseAttachFlag(value)
		if err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}

		name := filepath.Base(path)
		byRole[role] = append(byRole[role], simplepublish.NewAttachment(role, name, detectMimeType(name, data), data))
	}
	return byRole, nil
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
